package registry

import (
	"context"
	"log/slog"

	"github.com/HannahMarsh/onion-circuit/internal/api/structs"
	"github.com/HannahMarsh/onion-circuit/internal/onion"
	"github.com/HannahMarsh/onion-circuit/internal/repositories"
	"github.com/pkg/errors"
)

// Registry is the node directory: relays register their public key, users list them.
type Registry struct {
	repo repositories.RelayRepository
}

func NewRegistry(repo repositories.RelayRepository) *Registry {
	return &Registry{repo: repo}
}

// RegisterNode appends a relay. Repeated registrations are kept as they are.
func (r *Registry) RegisterNode(ctx context.Context, node structs.PublicNodeApi) error {
	slog.Info("Registering relay with", "id", node.NodeID)
	if err := r.repo.Append(ctx, onion.RelayDescriptor{Identity: node.NodeID, PublicKey: node.PubKey}); err != nil {
		return errors.Wrapf(err, "failed to register relay %d", node.NodeID)
	}
	return nil
}

// GetNodeRegistry returns every registration in registration order.
func (r *Registry) GetNodeRegistry(ctx context.Context) (structs.NodeRegistryApi, error) {
	relays, err := r.repo.List(ctx)
	if err != nil {
		return structs.NodeRegistryApi{}, errors.Wrap(err, "failed to list relays")
	}
	nodes := make([]structs.PublicNodeApi, len(relays))
	for i, relay := range relays {
		nodes[i] = structs.PublicNodeApi{NodeID: relay.Identity, PubKey: relay.PublicKey}
	}
	return structs.NodeRegistryApi{Nodes: nodes}, nil
}

func (r *Registry) Close() error {
	return r.repo.Close()
}

// Register satisfies the relay's registrar when the registry runs in-process.
func (r *Registry) Register(ctx context.Context, nodeID int, pubKey string) error {
	return r.RegisterNode(ctx, structs.PublicNodeApi{NodeID: nodeID, PubKey: pubKey})
}

// List satisfies the user's directory when the registry runs in-process.
func (r *Registry) List(ctx context.Context) ([]onion.RelayDescriptor, error) {
	return r.repo.List(ctx)
}

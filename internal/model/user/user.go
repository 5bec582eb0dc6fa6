package user

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"

	"github.com/HannahMarsh/onion-circuit/config"
	"github.com/HannahMarsh/onion-circuit/internal/api/structs"
	"github.com/HannahMarsh/onion-circuit/internal/metrics"
	"github.com/HannahMarsh/onion-circuit/internal/onion"
	"github.com/HannahMarsh/onion-circuit/internal/transport"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Directory lists the currently registered relays.
type Directory interface {
	List(ctx context.Context) ([]onion.RelayDescriptor, error)
}

// User sends onions through the network and receives plaintext from exit relays.
type User struct {
	ID        int
	Port      int
	builder   *onion.Builder
	directory Directory
	transport transport.Transport
	status    *structs.UserStatus
	mu        sync.Mutex // guards builder; a seeded math/rand source is not safe for concurrent use
}

func NewUser(id, port int, builder *onion.Builder, directory Directory, tr transport.Transport) *User {
	return &User{
		ID:        id,
		Port:      port,
		builder:   builder,
		directory: directory,
		transport: tr,
		status:    structs.NewUserStatus(id, port),
	}
}

// NewSelector returns the path selector configured for this process.
func NewSelector(cfg *config.Config) onion.PathSelector {
	if cfg.SeededSelection {
		slog.Warn("Using seeded path selection; circuits are predictable", "seed", cfg.SelectionSeed)
		return rand.New(rand.NewSource(cfg.SelectionSeed))
	}
	return onion.SecureSelector{}
}

// SendMessage routes message to user destinationID over a fresh three-relay circuit.
// It returns once the first hop accepted the onion; delivery is not acknowledged.
func (c *User) SendMessage(ctx context.Context, message string, destinationID int) ([]int, error) {
	sendID := uuid.New().String()
	log := slog.With("user", c.ID, "send", sendID)

	relays, err := c.directory.List(ctx)
	if err != nil {
		metrics.Inc(metrics.SEND_FAILURES, "directory")
		return nil, errors.Wrap(err, "failed to list relays")
	}

	c.mu.Lock()
	o, err := c.builder.BuildOnion([]byte(message), destinationID, relays)
	c.mu.Unlock()
	if err != nil {
		metrics.Inc(metrics.SEND_FAILURES, "build")
		return nil, errors.Wrapf(err, "user %d", c.ID)
	}

	circuit := o.Identities()
	log.Debug("Built onion", "circuit", circuit, "to", config.AddressToName(c.builder.Addressing.UserAddress(destinationID)))

	if err = c.transport.Send(ctx, o.FirstHopAddress, o.Payload); err != nil {
		metrics.Inc(metrics.SEND_FAILURES, "transport")
		return nil, errors.Wrapf(err, "user %d", c.ID)
	}

	c.status.AddSent(message, circuit)
	metrics.Inc(metrics.MSG_SENT)
	log.Info("Sent message", "first_hop", config.AddressToName(o.FirstHopAddress))
	return circuit, nil
}

// ReceiveMessage records a plaintext delivered by an exit relay.
func (c *User) ReceiveMessage(_ context.Context, payload []byte) error {
	c.status.AddReceived(string(payload))
	metrics.Inc(metrics.MSG_RECEIVED)
	slog.Info("Received message", "user", c.ID, "size", len(payload))
	return nil
}

func (c *User) GetStatus() string {
	return c.status.GetStatus()
}

func (c *User) Diagnostics() structs.UserStatus {
	return c.status.Snapshot()
}

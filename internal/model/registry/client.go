package registry

import (
	"context"
	"net/http"

	"github.com/HannahMarsh/onion-circuit/internal/api/api_functions"
	"github.com/HannahMarsh/onion-circuit/internal/api/structs"
	"github.com/HannahMarsh/onion-circuit/internal/onion"
	"github.com/pkg/errors"
)

// Client talks to a registry over HTTP.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{BaseURL: baseURL, HTTP: http.DefaultClient}
}

func (c *Client) Register(ctx context.Context, nodeID int, pubKey string) error {
	var ack structs.RegisterResponseApi
	if err := api_functions.PostJSON(ctx, c.HTTP, c.BaseURL+"/registerNode", structs.PublicNodeApi{NodeID: nodeID, PubKey: pubKey}, &ack); err != nil {
		return errors.Wrapf(err, "failed to register relay %d", nodeID)
	}
	return nil
}

func (c *Client) List(ctx context.Context) ([]onion.RelayDescriptor, error) {
	var registry structs.NodeRegistryApi
	if err := api_functions.GetJSON(ctx, c.HTTP, c.BaseURL+"/getNodeRegistry", &registry); err != nil {
		return nil, errors.Wrap(err, "failed to fetch node registry")
	}
	relays := make([]onion.RelayDescriptor, len(registry.Nodes))
	for i, n := range registry.Nodes {
		relays[i] = onion.RelayDescriptor{Identity: n.NodeID, PublicKey: n.PubKey}
	}
	return relays, nil
}

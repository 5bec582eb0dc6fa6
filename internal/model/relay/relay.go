package relay

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/HannahMarsh/onion-circuit/config"
	"github.com/HannahMarsh/onion-circuit/internal/api/structs"
	"github.com/HannahMarsh/onion-circuit/internal/metrics"
	"github.com/HannahMarsh/onion-circuit/internal/onion"
	"github.com/HannahMarsh/onion-circuit/internal/onion/keys"
	"github.com/HannahMarsh/onion-circuit/internal/transport"
	"github.com/pkg/errors"
)

// Registrar publishes a relay's public key to the directory.
type Registrar interface {
	Register(ctx context.Context, nodeID int, pubKey string) error
}

// Relay represents a participating onion router.
type Relay struct {
	ID         int
	Port       int
	PrivateKey string
	PublicKey  string
	peeler     *onion.Peeler
	transport  transport.Transport
	timeout    time.Duration
	status     *structs.RelayStatus
	wg         sync.WaitGroup
}

// NewRelay generates the relay's key pair and registers its public key.
func NewRelay(ctx context.Context, id, port int, scheme keys.Scheme, tr transport.Transport, registrar Registrar, timeout time.Duration) (*Relay, error) {
	privateKey, publicKey, err := scheme.GenerateKeyPair()
	if err != nil {
		return nil, errors.Wrap(err, "relay.NewRelay(): failed to generate key pair")
	}

	n := &Relay{
		ID:         id,
		Port:       port,
		PrivateKey: privateKey,
		PublicKey:  publicKey,
		peeler:     &onion.Peeler{Scheme: scheme, PrivateKey: privateKey},
		transport:  tr,
		timeout:    timeout,
		status:     structs.NewRelayStatus(id, port),
	}

	if err = registrar.Register(ctx, id, publicKey); err != nil {
		return nil, errors.Wrap(err, "relay.NewRelay(): failed to register with registry")
	}
	slog.Info("Relay registered with registry", "id", id, "scheme", scheme.Name())
	return n, nil
}

func (n *Relay) GetStatus() string {
	return n.status.GetStatus()
}

// Diagnostics is a copy of the relay's last-seen record.
func (n *Relay) Diagnostics() structs.RelayStatus {
	return n.status.Snapshot()
}

// Receive peels one layer off payload and hands the rest to the next hop.
// Nothing is forwarded when peeling fails. Forwarding does not block the caller.
func (n *Relay) Receive(ctx context.Context, payload []byte) error {
	n.status.SetReceived(string(payload))
	metrics.Observe(metrics.PAYLOAD_SIZE, float64(len(payload)))

	start := time.Now()
	layer, err := n.peeler.PeelLayer(payload)
	metrics.Observe(metrics.PEEL_TIME, time.Since(start).Seconds())
	if err != nil {
		slog.Error("Failed to peel layer", "relay", n.ID, "state", layer.State, "err", err)
		n.status.SetState(onion.Failed.String(), true)
		metrics.Inc(metrics.LAYER_COUNT, onion.Failed)
		return errors.Wrapf(err, "relay %d", n.ID)
	}

	n.status.SetPeeled(string(layer.Frame), layer.NextAddress)
	n.status.SetState(layer.State.String(), false)
	slog.Debug("Peeled layer", "relay", n.ID, "next", config.AddressToName(layer.NextAddress))

	n.wg.Add(1)
	go n.forward(context.WithoutCancel(ctx), layer)
	return nil
}

func (n *Relay) forward(ctx context.Context, layer *onion.Layer) {
	defer n.wg.Done()
	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	if err := n.transport.Send(ctx, layer.NextAddress, layer.ForwardPayload); err != nil {
		slog.Error("Failed to forward", "relay", n.ID, "to", config.AddressToName(layer.NextAddress), "err", err)
		n.status.SetState(onion.Failed.String(), true)
		metrics.Inc(metrics.LAYER_COUNT, onion.Failed)
		return
	}
	n.status.SetState(onion.Forwarded.String(), false)
	metrics.Inc(metrics.LAYER_COUNT, onion.Forwarded)
}

// Wait blocks until all in-flight forwards are done.
func (n *Relay) Wait() {
	n.wg.Wait()
}

func (n *Relay) String() string {
	return fmt.Sprintf("Relay %d", n.ID)
}

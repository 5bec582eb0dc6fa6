package onion

import (
	"github.com/HannahMarsh/onion-circuit/internal/onion/keys"
	"github.com/pkg/errors"
)

// CircuitLength is the number of relays every message is routed through.
const CircuitLength = 3

// RelayDescriptor is a relay's directory entry.
type RelayDescriptor struct {
	Identity  int
	PublicKey string
}

// Addressing maps identities onto listening addresses.
type Addressing struct {
	BaseRelayPort int
	BaseUserPort  int
}

func (a Addressing) RelayAddress(identity int) int {
	return a.BaseRelayPort + identity
}

func (a Addressing) UserAddress(identity int) int {
	return a.BaseUserPort + identity
}

// Hop is one layer's recipient: the key the LayerKey is sealed to and the address that
// receives the layer.
type Hop struct {
	PublicKey string
	Address   int
}

// Onion is a fully layered payload ready for its first hop.
type Onion struct {
	Circuit         []RelayDescriptor
	FirstHopAddress int
	Payload         []byte
}

// Identities returns the circuit's relay identities in path order.
func (o *Onion) Identities() []int {
	ids := make([]int, len(o.Circuit))
	for i, r := range o.Circuit {
		ids[i] = r.Identity
	}
	return ids
}

// Builder constructs onions.
type Builder struct {
	Scheme     keys.Scheme
	Selector   PathSelector
	Addressing Addressing
}

// BuildOnion selects a circuit from relays and wraps message for the user destinationID.
func (b *Builder) BuildOnion(message []byte, destinationID int, relays []RelayDescriptor) (*Onion, error) {
	selector := b.Selector
	if selector == nil {
		selector = SecureSelector{}
	}
	circuit, err := SelectCircuit(relays, selector)
	if err != nil {
		return nil, err
	}

	hops := make([]Hop, len(circuit))
	for i, r := range circuit {
		hops[i] = Hop{PublicKey: r.PublicKey, Address: b.Addressing.RelayAddress(r.Identity)}
	}

	payload, err := b.Wrap(message, hops, b.Addressing.UserAddress(destinationID))
	if err != nil {
		return nil, err
	}
	return &Onion{
		Circuit:         circuit,
		FirstHopAddress: hops[0].Address,
		Payload:         payload,
	}, nil
}

// Wrap layers message for hops, innermost (exit) layer first. Layer i tells hop i where to
// forward: hop i+1, or finalAddress for the exit hop. Each layer gets a fresh LayerKey.
func (b *Builder) Wrap(message []byte, hops []Hop, finalAddress int) ([]byte, error) {
	if len(hops) == 0 {
		return nil, errors.New("cannot wrap an onion without hops")
	}
	if _, err := EncodeAddress(int64(finalAddress)); err != nil {
		return nil, err
	}

	layerKeys := make([][]byte, len(hops))
	for i := range layerKeys {
		key, err := keys.GenerateSymmetricKey()
		if err != nil {
			return nil, err
		}
		layerKeys[i] = key
	}

	payload := message
	for i := len(hops) - 1; i >= 0; i-- {
		next := finalAddress
		if i < len(hops)-1 {
			next = hops[i+1].Address
		}

		frame, err := InnerFrame{NextAddress: int64(next), Remainder: payload}.Marshal()
		if err != nil {
			return nil, errors.Wrapf(err, "layer %d", i)
		}
		body, err := keys.EncryptCBC(layerKeys[i], frame)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to encrypt layer %d", i)
		}
		header, err := keys.SealLayerKey(b.Scheme, keys.ExportSymmetricKey(layerKeys[i]), hops[i].PublicKey)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to encrypt layer key %d", i)
		}
		if len(header) != b.Scheme.HeaderLen() {
			return nil, errors.Errorf("layer key %d encrypted to %d characters, expected %d", i, len(header), b.Scheme.HeaderLen())
		}

		layer := make([]byte, 0, len(header)+len(body))
		layer = append(layer, header...)
		payload = append(layer, body...)
	}
	return payload, nil
}

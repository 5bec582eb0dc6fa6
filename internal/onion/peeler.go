package onion

import (
	"github.com/HannahMarsh/onion-circuit/internal/onion/keys"
)

// PeelState tracks how far a relay got with one incoming message.
type PeelState int

const (
	Received PeelState = iota
	KeyRecovered
	BodyDecrypted
	Forwarded
	Failed
)

func (s PeelState) String() string {
	switch s {
	case Received:
		return "received"
	case KeyRecovered:
		return "key_recovered"
	case BodyDecrypted:
		return "body_decrypted"
	case Forwarded:
		return "forwarded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Layer is the result of peeling one layer.
type Layer struct {
	// Frame is the decrypted inner frame, address prefix included.
	Frame          []byte
	NextAddress    int
	ForwardPayload []byte
	State          PeelState
}

// Peeler removes the layer addressed to the holder of PrivateKey.
type Peeler struct {
	Scheme     keys.Scheme
	PrivateKey string
}

// PeelLayer recovers this hop's LayerKey, decrypts the body and splits off the next address.
// On error the returned state is the last one reached and nothing may be forwarded.
func (p *Peeler) PeelLayer(incoming []byte) (*Layer, error) {
	state := Received

	header, body, err := SplitPayload(incoming, p.Scheme.HeaderLen())
	if err != nil {
		return &Layer{State: state}, err
	}

	exported, err := keys.OpenLayerKey(p.Scheme, string(header), p.PrivateKey)
	if err != nil {
		return &Layer{State: state}, kindError(ErrKeyRecovery, err, "%s header", p.Scheme.Name())
	}
	layerKey, err := keys.ImportSymmetricKey(exported)
	if err != nil {
		return &Layer{State: state}, kindError(ErrKeyRecovery, err, "recovered key")
	}
	state = KeyRecovered

	frame, err := keys.DecryptCBC(layerKey, string(body))
	if err != nil {
		return &Layer{State: state}, kindError(ErrLayerDecryption, err, "layer body")
	}
	state = BodyDecrypted

	inner, err := ParseInnerFrame(frame)
	if err != nil {
		return &Layer{Frame: frame, State: state}, err
	}
	next := int(inner.NextAddress)
	if int64(next) != inner.NextAddress {
		return &Layer{Frame: frame, State: state}, kindError(ErrAddressOutOfRange, nil, "address %d does not fit a platform int", inner.NextAddress)
	}

	return &Layer{
		Frame:          frame,
		NextAddress:    next,
		ForwardPayload: inner.Remainder,
		State:          state,
	}, nil
}

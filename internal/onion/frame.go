package onion

import (
	"fmt"
)

// AddressWidth is the number of decimal digits that prefix every inner frame.
// Sender and relays must agree on it or framing desyncs.
const AddressWidth = 10

// MaxAddress is the largest address that fits in AddressWidth digits.
const MaxAddress int64 = 9_999_999_999

// InnerFrame is one layer's plaintext: the next hop's address followed by the payload to forward.
type InnerFrame struct {
	NextAddress int64
	Remainder   []byte
}

// EncodeAddress renders addr as a left-zero-padded decimal string of AddressWidth characters.
func EncodeAddress(addr int64) (string, error) {
	if addr < 0 || addr > MaxAddress {
		return "", kindError(ErrAddressOutOfRange, nil, "address %d", addr)
	}
	return fmt.Sprintf("%0*d", AddressWidth, addr), nil
}

// DecodeAddress parses exactly AddressWidth ASCII digits.
func DecodeAddress(s string) (int64, error) {
	if len(s) != AddressWidth {
		return 0, kindError(ErrMalformedFrame, nil, "address %q is not %d characters", s, AddressWidth)
	}
	var addr int64
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, kindError(ErrMalformedFrame, nil, "address %q is not decimal", s)
		}
		addr = addr*10 + int64(c-'0')
	}
	return addr, nil
}

// Marshal returns zeroPad(NextAddress) || Remainder.
func (f InnerFrame) Marshal() ([]byte, error) {
	prefix, err := EncodeAddress(f.NextAddress)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, AddressWidth+len(f.Remainder))
	out = append(out, prefix...)
	return append(out, f.Remainder...), nil
}

// ParseInnerFrame splits a decrypted layer into the next address and the remainder.
func ParseInnerFrame(frame []byte) (InnerFrame, error) {
	if len(frame) < AddressWidth {
		return InnerFrame{}, kindError(ErrMalformedFrame, nil, "frame of %d bytes is shorter than the address", len(frame))
	}
	addr, err := DecodeAddress(string(frame[:AddressWidth]))
	if err != nil {
		return InnerFrame{}, err
	}
	return InnerFrame{NextAddress: addr, Remainder: frame[AddressWidth:]}, nil
}

// SplitPayload splits an onion payload positionally into the encrypted LayerKey and the encrypted body.
func SplitPayload(payload []byte, headerLen int) (header []byte, body []byte, err error) {
	if len(payload) <= headerLen {
		return nil, nil, kindError(ErrKeyRecovery, nil, "payload of %d bytes has no body after the %d byte key header", len(payload), headerLen)
	}
	return payload[:headerLen], payload[headerLen:], nil
}

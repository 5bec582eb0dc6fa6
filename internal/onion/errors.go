package onion

import "github.com/pkg/errors"

// Error kinds of the circuit protocol. Callers match them with errors.Is.
var (
	ErrInsufficientRelays = errors.New("not enough relays to build a circuit")
	ErrKeyRecovery        = errors.New("failed to recover layer key")
	ErrLayerDecryption    = errors.New("failed to decrypt layer")
	ErrMalformedFrame     = errors.New("malformed inner frame")
	ErrAddressOutOfRange  = errors.New("address does not fit the frame address width")
	ErrTransport          = errors.New("transport error")
)

// kindError keeps the protocol error kind visible to errors.Is while carrying the cause's message.
func kindError(kind error, cause error, format string, args ...any) error {
	if cause == nil {
		return errors.WithMessagef(kind, format, args...)
	}
	return errors.WithMessagef(kind, format+": %v", append(args, cause)...)
}

// TransportError wraps a failed delivery to address.
func TransportError(cause error, address int) error {
	return kindError(ErrTransport, cause, "failed to deliver to %d", address)
}

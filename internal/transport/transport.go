package transport

import (
	"context"
	"net/http"

	"github.com/HannahMarsh/onion-circuit/internal/api/api_functions"
	"github.com/HannahMarsh/onion-circuit/internal/onion"
	"github.com/HannahMarsh/onion-circuit/pkg/cm"
	"github.com/pkg/errors"
)

// Transport delivers a payload to the participant listening on address.
type Transport interface {
	Send(ctx context.Context, address int, payload []byte) error
}

// ReceiveFunc consumes one delivered payload.
type ReceiveFunc func(ctx context.Context, payload []byte) error

// HTTPTransport posts {"message": payload} to http://Host:address/message.
type HTTPTransport struct {
	Host     string
	Client   *http.Client
	Compress bool
}

func NewHTTPTransport(host string) *HTTPTransport {
	return &HTTPTransport{Host: host, Client: http.DefaultClient}
}

func (t *HTTPTransport) Send(ctx context.Context, address int, payload []byte) error {
	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}
	if err := api_functions.SendMessage(ctx, client, baseURL(t.Host, address), payload, t.Compress); err != nil {
		return onion.TransportError(err, address)
	}
	return nil
}

// MemoryTransport delivers in-process. Used by tests and single-binary demos.
type MemoryTransport struct {
	receivers cm.ConcurrentMap[int, ReceiveFunc]
}

func NewMemoryTransport() *MemoryTransport {
	return &MemoryTransport{}
}

func (t *MemoryTransport) Listen(address int, receive ReceiveFunc) {
	t.receivers.Set(address, receive)
}

func (t *MemoryTransport) Unlisten(address int) {
	t.receivers.Delete(address)
}

func (t *MemoryTransport) Send(ctx context.Context, address int, payload []byte) error {
	receive, ok := t.receivers.Get(address)
	if !ok {
		return onion.TransportError(errors.New("nobody listening"), address)
	}
	if err := receive(ctx, append([]byte(nil), payload...)); err != nil {
		return onion.TransportError(err, address)
	}
	return nil
}

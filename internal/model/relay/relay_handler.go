package relay

import (
	"encoding/json"
	"net/http"

	"github.com/HannahMarsh/onion-circuit/internal/api/api_functions"
	"golang.org/x/time/rate"
)

// HandleReceiveMessage handles incoming layers sent to the relay.
func (n *Relay) HandleReceiveMessage(w http.ResponseWriter, r *http.Request) {
	api_functions.HandleReceiveMessage(w, r, n.Receive)
}

// HandleGetStatus returns the full diagnostics record as JSON.
func (n *Relay) HandleGetStatus(w http.ResponseWriter, r *http.Request) {
	api_functions.WriteJSON(w, http.StatusOK, json.RawMessage(n.GetStatus()))
}

func (n *Relay) HandleGetLastReceivedEncryptedMessage(w http.ResponseWriter, r *http.Request) {
	api_functions.WriteResult(w, n.status.Snapshot().LastReceivedEncryptedMessage)
}

func (n *Relay) HandleGetLastReceivedDecryptedMessage(w http.ResponseWriter, r *http.Request) {
	api_functions.WriteResult(w, n.status.Snapshot().LastReceivedDecryptedMessage)
}

func (n *Relay) HandleGetLastMessageDestination(w http.ResponseWriter, r *http.Request) {
	api_functions.WriteResult(w, n.status.Snapshot().LastMessageDestination)
}

func (n *Relay) HandleGetPrivateKey(w http.ResponseWriter, r *http.Request) {
	key := n.PrivateKey
	api_functions.WriteResult(w, &key)
}

// Routes mounts the relay endpoints on mux. A nil limiter disables rate limiting.
func (n *Relay) Routes(mux *http.ServeMux, limiter *rate.Limiter) {
	mux.HandleFunc("/status", api_functions.HandleStatus)
	mux.HandleFunc("/message", api_functions.RateLimit(limiter, n.HandleReceiveMessage))
	mux.HandleFunc("/getStatus", n.HandleGetStatus)
	mux.HandleFunc("/getLastReceivedEncryptedMessage", n.HandleGetLastReceivedEncryptedMessage)
	mux.HandleFunc("/getLastReceivedDecryptedMessage", n.HandleGetLastReceivedDecryptedMessage)
	mux.HandleFunc("/getLastMessageDestination", n.HandleGetLastMessageDestination)
	mux.HandleFunc("/getPrivateKey", n.HandleGetPrivateKey)
}

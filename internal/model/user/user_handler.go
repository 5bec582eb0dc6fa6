package user

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/HannahMarsh/onion-circuit/internal/api/api_functions"
	"github.com/HannahMarsh/onion-circuit/internal/api/structs"
	"github.com/HannahMarsh/onion-circuit/internal/onion"
	"github.com/pkg/errors"
)

func (c *User) HandleReceiveMessage(w http.ResponseWriter, r *http.Request) {
	api_functions.HandleReceiveMessage(w, r, c.ReceiveMessage)
}

// HandleSendMessage processes POST /sendMessage {message, destinationUserId}.
func (c *User) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req structs.SendMessageApi
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Error decoding send request", "err", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if _, err := c.SendMessage(r.Context(), req.Message, req.DestinationUserID); err != nil {
		slog.Error("Error sending message", "user", c.ID, "err", err)
		if errors.Is(err, onion.ErrInsufficientRelays) {
			api_functions.WriteJSON(w, http.StatusInternalServerError, structs.ErrorApi{Error: "Not enough nodes"})
		} else {
			api_functions.WriteJSON(w, http.StatusInternalServerError, structs.ErrorApi{Error: "Failed to send message"})
		}
		return
	}
	api_functions.WriteText(w, http.StatusOK, "success")
}

func (c *User) HandleGetLastReceivedMessage(w http.ResponseWriter, r *http.Request) {
	api_functions.WriteResult(w, c.status.Snapshot().LastReceivedMessage)
}

func (c *User) HandleGetLastSentMessage(w http.ResponseWriter, r *http.Request) {
	api_functions.WriteResult(w, c.status.Snapshot().LastSentMessage)
}

func (c *User) HandleGetLastCircuit(w http.ResponseWriter, r *http.Request) {
	var circuit *[]int
	if last := c.status.Snapshot().LastCircuit; len(last) > 0 {
		circuit = &last
	}
	api_functions.WriteResult(w, circuit)
}

func (c *User) HandleGetStatus(w http.ResponseWriter, r *http.Request) {
	api_functions.WriteJSON(w, http.StatusOK, json.RawMessage(c.GetStatus()))
}

func (c *User) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/status", api_functions.HandleStatus)
	mux.HandleFunc("/message", c.HandleReceiveMessage)
	mux.HandleFunc("/sendMessage", c.HandleSendMessage)
	mux.HandleFunc("/getStatus", c.HandleGetStatus)
	mux.HandleFunc("/getLastReceivedMessage", c.HandleGetLastReceivedMessage)
	mux.HandleFunc("/getLastSentMessage", c.HandleGetLastSentMessage)
	mux.HandleFunc("/getLastCircuit", c.HandleGetLastCircuit)
}

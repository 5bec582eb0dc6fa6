package registry

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/HannahMarsh/onion-circuit/internal/api/api_functions"
	"github.com/HannahMarsh/onion-circuit/internal/api/structs"
)

// HandleRegisterNode processes POST /registerNode.
func (r *Registry) HandleRegisterNode(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var node structs.PublicNodeApi
	if err := json.NewDecoder(req.Body).Decode(&node); err != nil {
		slog.Error("Error decoding relay registration request", "err", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := r.RegisterNode(req.Context(), node); err != nil {
		slog.Error("Error registering relay", "err", err)
		api_functions.WriteJSON(w, http.StatusInternalServerError, structs.ErrorApi{Error: "Failed to register node"})
		return
	}
	api_functions.WriteJSON(w, http.StatusOK, structs.RegisterResponseApi{Message: "Node registered successfully"})
}

// HandleGetNodeRegistry processes GET /getNodeRegistry.
func (r *Registry) HandleGetNodeRegistry(w http.ResponseWriter, req *http.Request) {
	nodes, err := r.GetNodeRegistry(req.Context())
	if err != nil {
		slog.Error("Error listing relays", "err", err)
		api_functions.WriteJSON(w, http.StatusInternalServerError, structs.ErrorApi{Error: "Failed to list nodes"})
		return
	}
	api_functions.WriteJSON(w, http.StatusOK, nodes)
}

// Routes mounts the registry endpoints on mux.
func (r *Registry) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/status", api_functions.HandleStatus)
	mux.HandleFunc("/registerNode", r.HandleRegisterNode)
	mux.HandleFunc("/getNodeRegistry", r.HandleGetNodeRegistry)
}

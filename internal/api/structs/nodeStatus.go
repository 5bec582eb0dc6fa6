package structs

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// RelayStatus is a relay's diagnostics record: what it saw last and how it handled it.
// It is observability only; nothing in the protocol reads it.
type RelayStatus struct {
	NodeID                       int
	Port                         int
	LastReceivedEncryptedMessage *string
	LastReceivedDecryptedMessage *string
	LastMessageDestination       *int
	LastState                    string
	LastUpdate                   time.Time
	LayersPeeled                 int
	LayersFailed                 int
	mu                           sync.RWMutex
}

func NewRelayStatus(id, port int) *RelayStatus {
	return &RelayStatus{NodeID: id, Port: port}
}

func (rs *RelayStatus) SetReceived(encrypted string) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.LastReceivedEncryptedMessage = &encrypted
	rs.LastUpdate = time.Now()
}

func (rs *RelayStatus) SetPeeled(decrypted string, destination int) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.LastReceivedDecryptedMessage = &decrypted
	rs.LastMessageDestination = &destination
	rs.LayersPeeled++
	rs.LastUpdate = time.Now()
}

func (rs *RelayStatus) SetState(state string, failed bool) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.LastState = state
	if failed {
		rs.LayersFailed++
	}
}

// Snapshot returns a copy that is safe to read without the lock.
func (rs *RelayStatus) Snapshot() RelayStatus {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return RelayStatus{
		NodeID:                       rs.NodeID,
		Port:                         rs.Port,
		LastReceivedEncryptedMessage: rs.LastReceivedEncryptedMessage,
		LastReceivedDecryptedMessage: rs.LastReceivedDecryptedMessage,
		LastMessageDestination:       rs.LastMessageDestination,
		LastState:                    rs.LastState,
		LastUpdate:                   rs.LastUpdate,
		LayersPeeled:                 rs.LayersPeeled,
		LayersFailed:                 rs.LayersFailed,
	}
}

func (rs *RelayStatus) GetStatus() string {
	snapshot := rs.Snapshot()
	if str, err := json.Marshal(&snapshot); err != nil {
		slog.Error("Error marshalling relay status", "err", err)
		return ""
	} else {
		return string(str)
	}
}

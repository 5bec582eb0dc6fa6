package structs

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// UserStatus is a user's diagnostics record.
type UserStatus struct {
	UserID              int
	Port                int
	LastReceivedMessage *string
	LastSentMessage     *string
	LastCircuit         []int
	MessagesSent        int
	MessagesReceived    int
	LastUpdate          time.Time
	mu                  sync.RWMutex
}

func NewUserStatus(id, port int) *UserStatus {
	return &UserStatus{UserID: id, Port: port}
}

func (us *UserStatus) AddSent(message string, circuit []int) {
	us.mu.Lock()
	defer us.mu.Unlock()
	us.LastSentMessage = &message
	us.LastCircuit = append([]int(nil), circuit...)
	us.MessagesSent++
	us.LastUpdate = time.Now()
}

func (us *UserStatus) AddReceived(message string) {
	us.mu.Lock()
	defer us.mu.Unlock()
	us.LastReceivedMessage = &message
	us.MessagesReceived++
	us.LastUpdate = time.Now()
}

func (us *UserStatus) Snapshot() UserStatus {
	us.mu.RLock()
	defer us.mu.RUnlock()
	return UserStatus{
		UserID:              us.UserID,
		Port:                us.Port,
		LastReceivedMessage: us.LastReceivedMessage,
		LastSentMessage:     us.LastSentMessage,
		LastCircuit:         append([]int(nil), us.LastCircuit...),
		MessagesSent:        us.MessagesSent,
		MessagesReceived:    us.MessagesReceived,
		LastUpdate:          us.LastUpdate,
	}
}

func (us *UserStatus) GetStatus() string {
	snapshot := us.Snapshot()
	if str, err := json.Marshal(&snapshot); err != nil {
		slog.Error("Error marshalling user status", "err", err)
		return ""
	} else {
		return string(str)
	}
}

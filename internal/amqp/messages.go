package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// RoutingKeyDocumentChanged is the routing key every instance binds to.
const RoutingKeyDocumentChanged = "document.changed"

// DocumentChangedMessage announces that a user's document was persisted.
// It carries no document body; receivers reload from the store.
type DocumentChangedMessage struct {
	UserID    string    `json:"userId"`
	Origin    string    `json:"origin"`
	Hash      string    `json:"hash"`
	Timestamp time.Time `json:"timestamp"`
}

// NewDocumentChangedMessage stamps a notification with the current time.
func NewDocumentChangedMessage(userID, origin, hash string) *DocumentChangedMessage {
	return &DocumentChangedMessage{
		UserID:    userID,
		Origin:    origin,
		Hash:      hash,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *DocumentChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// DocumentChangedMessageFromJSON decodes and checks a notification.
func DocumentChangedMessageFromJSON(data []byte) (*DocumentChangedMessage, error) {
	var msg DocumentChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.UserID == "" {
		return nil, fmt.Errorf("document changed message without user id")
	}
	return &msg, nil
}

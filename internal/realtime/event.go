package realtime

import (
	"encoding/json"
)

const (
	EventMessage = "message"
	EventComment = "comment"
)

// Event is the JSON text frame pushed to stream listeners.
type Event struct {
	Type      string `json:"type"`
	ID        uint   `json:"id"`
	Author    string `json:"author"`
	HTML      string `json:"html"`
	MessageID uint   `json:"message_id,omitempty"`
}

func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

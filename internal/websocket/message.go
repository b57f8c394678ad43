package websocket

import "encoding/json"

// Actions exchanged over the socket.
const (
	ActionSubscribeProject   = "subscribe_project"
	ActionUnsubscribeProject = "unsubscribe_project"
	ActionSubscribed         = "subscribed"
	ActionUnsubscribed       = "unsubscribed"
	ActionError              = "error"
)

// Message defines the structure for websocket messages.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ProjectPayload is the payload of project subscription messages.
type ProjectPayload struct {
	ProjectID string `json:"projectId"`
}

// NewMessage encodes an outbound message.
func NewMessage(action string, payload interface{}) []byte {
	b, _ := json.Marshal(struct {
		Action  string      `json:"action"`
		Payload interface{} `json:"payload,omitempty"`
	}{action, payload})
	return b
}

// NewErrorMessage encodes an error message for a client.
func NewErrorMessage(message string) []byte {
	return NewMessage(ActionError, map[string]string{"message": message})
}

package models

import "encoding/json"

// ClientMessage is a message received from a websocket client.
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ServerMessage is a message pushed to websocket clients.
type ServerMessage struct {
	Type    string      `json:"type"`
	Event   string      `json:"event,omitempty"`
	Payload interface{} `json:"payload,omitempty"`
}

// SubscribePayload is the payload of a client subscribe request. DeviceID is
// an optional scoping hint recorded with the subscription.
type SubscribePayload struct {
	DeviceID string `json:"device_id,omitempty"`
}

// SubscriptionStatus is sent back to a client after subscribe/unsubscribe.
type SubscriptionStatus struct {
	Subscribed bool   `json:"subscribed"`
	DeviceID   string `json:"device_id,omitempty"`
}

// TaskEventPayload carries the full task representation for task.created and
// task.updated events.
type TaskEventPayload struct {
	Task Task `json:"task"`
}

// TaskDeletedPayload carries only the id of the removed task.
type TaskDeletedPayload struct {
	TaskID string `json:"task_id"`
}

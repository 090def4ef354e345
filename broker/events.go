package broker

// EventType identifies a task change event, in <resource>.<action> form.
// The same names are used on the websocket channel and the message bus.
type EventType string

const (
	TaskCreated EventType = "task.created"
	TaskUpdated EventType = "task.updated"
	TaskDeleted EventType = "task.deleted"
)

package broker

// NATS subjects. Task change events are mirrored here for consumers outside
// the websocket fan-out (integrations, audit, future workers).
const (
	TaskEventsTopic = "taskboard.tasks"
)

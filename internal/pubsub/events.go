// Package pubsub provides a generic publish/subscribe event system used to
// fan out controller snapshots and log lines.
package pubsub

import "time"

// EventType names what happened.
type EventType string

const (
	// CreatedEvent announces a new controller, or a new log line.
	CreatedEvent EventType = "created"

	// Render lifecycle events published by the controller.
	StateChangedEvent   EventType = "state_changed"
	ResultEvent         EventType = "result"
	RenderErrorEvent    EventType = "render_error"
	NavigatedEvent      EventType = "navigated"
	ControllerDoneEvent EventType = "controller_done"
)

// Terminal reports whether no events follow this one.
func (t EventType) Terminal() bool {
	return t == ControllerDoneEvent
}

// Event carries a typed payload with the time it was published.
type Event[T any] struct {
	Type      EventType
	Payload   T
	Timestamp time.Time
}

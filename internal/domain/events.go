package domain

type EventType string

const (
	EventCommunicationRouted EventType = "communication_routed"
	EventCallEnded           EventType = "call_ended"
)

// Event is published to the notification sinks after a routing decision or
// a call end has been committed.
type Event struct {
	Type          EventType     `json:"type"`
	Outcome       string        `json:"outcome,omitempty"`
	Communication Communication `json:"communication"`
}

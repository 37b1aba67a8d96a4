package events

import (
	"context"
	"time"
)

type Event interface {
	Type() string
	StreamID() string
	Data() any
	Timestamp() time.Time
	Version() int
}

type Handler interface {
	Handle(ctx context.Context, event Event) error
	CanHandle(eventType string) bool
}

// Publisher accepts events once the unit of work that produced them has
// committed. Publishing never affects the committed data.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type EventStore interface {
	Publisher
	ReadStream(streamID string, fromVersion int) ([]Event, error)
	ReadAll(fromPosition int) ([]Event, error)
	Subscribe(eventTypes []string, handler Handler) error
	Unsubscribe(handler Handler) error
}

type BaseEvent struct {
	EventType    string    `json:"type"`
	Stream       string    `json:"stream"`
	EventData    any       `json:"data"`
	EventTime    time.Time `json:"time"`
	EventVersion int       `json:"version"`
}

func (e BaseEvent) Type() string         { return e.EventType }
func (e BaseEvent) StreamID() string     { return e.Stream }
func (e BaseEvent) Data() any            { return e.EventData }
func (e BaseEvent) Timestamp() time.Time { return e.EventTime }
func (e BaseEvent) Version() int         { return e.EventVersion }

func NewEvent(eventType, streamID string, data any) Event {
	return BaseEvent{
		EventType:    eventType,
		Stream:       streamID,
		EventData:    data,
		EventTime:    time.Now().UTC(),
		EventVersion: 1,
	}
}

// HandlerFunc adapts a function to Handler for a fixed set of event types
type HandlerFunc struct {
	Types []string
	Fn    func(ctx context.Context, event Event) error
}

func (h *HandlerFunc) Handle(ctx context.Context, event Event) error {
	return h.Fn(ctx, event)
}

func (h *HandlerFunc) CanHandle(eventType string) bool {
	if len(h.Types) == 0 {
		return true
	}
	for _, t := range h.Types {
		if t == eventType {
			return true
		}
	}
	return false
}

type discard struct{}

func (discard) Publish(context.Context, Event) error { return nil }

// Discard is a Publisher that drops every event
var Discard Publisher = discard{}

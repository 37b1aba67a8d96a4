package events

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// InMemoryEventStore keeps events per stream and fans them out to
// subscribers synchronously, in publish order.
type InMemoryEventStore struct {
	streams     map[string][]Event
	subscribers map[string][]Handler
	mutex       sync.RWMutex
	allEvents   []Event
	logger      logrus.FieldLogger
}

func NewInMemoryEventStore(logger logrus.FieldLogger) *InMemoryEventStore {
	if logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		logger = l
	}
	return &InMemoryEventStore{
		streams:     make(map[string][]Event),
		subscribers: make(map[string][]Handler),
		allEvents:   make([]Event, 0),
		logger:      logger,
	}
}

var _ EventStore = (*InMemoryEventStore)(nil)

// Publish appends the event to its stream and notifies subscribers.
// Handler failures are logged, not returned.
func (s *InMemoryEventStore) Publish(ctx context.Context, event Event) error {
	s.mutex.Lock()
	streamID := event.StreamID()
	versioned := BaseEvent{
		EventType:    event.Type(),
		Stream:       streamID,
		EventData:    event.Data(),
		EventTime:    event.Timestamp(),
		EventVersion: len(s.streams[streamID]) + 1,
	}
	s.streams[streamID] = append(s.streams[streamID], versioned)
	s.allEvents = append(s.allEvents, versioned)
	handlers := append([]Handler(nil), s.subscribers[versioned.EventType]...)
	s.mutex.Unlock()

	for _, h := range handlers {
		if !h.CanHandle(versioned.EventType) {
			continue
		}
		if err := h.Handle(ctx, versioned); err != nil {
			s.logger.WithFields(logrus.Fields{
				"event":  versioned.EventType,
				"stream": streamID,
			}).WithError(err).Warn("event handler failed")
		}
	}
	return nil
}

func (s *InMemoryEventStore) ReadStream(streamID string, fromVersion int) ([]Event, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	events := s.streams[streamID]
	if fromVersion < 1 {
		fromVersion = 1
	}
	if fromVersion > len(events) {
		return []Event{}, nil
	}
	return append([]Event(nil), events[fromVersion-1:]...), nil
}

func (s *InMemoryEventStore) ReadAll(fromPosition int) ([]Event, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if fromPosition < 0 {
		fromPosition = 0
	}
	if fromPosition >= len(s.allEvents) {
		return []Event{}, nil
	}
	return append([]Event(nil), s.allEvents[fromPosition:]...), nil
}

func (s *InMemoryEventStore) Subscribe(eventTypes []string, handler Handler) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, eventType := range eventTypes {
		s.subscribers[eventType] = append(s.subscribers[eventType], handler)
	}
	return nil
}

func (s *InMemoryEventStore) Unsubscribe(handler Handler) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for eventType, handlers := range s.subscribers {
		kept := make([]Handler, 0, len(handlers))
		for _, h := range handlers {
			if h != handler {
				kept = append(kept, h)
			}
		}
		s.subscribers[eventType] = kept
	}
	return nil
}

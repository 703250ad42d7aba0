package bootstrap

import (
	"context"
	"slices"
	"sync"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
)

// Observer is notified of the CloudEvents a bootstrap run emits.
type Observer interface {
	// OnEvent is called synchronously on the bootstrap goroutine. Observers
	// should return quickly; an error is logged and otherwise ignored.
	OnEvent(ctx context.Context, event cloudevents.Event) error

	// ObserverID returns a unique identifier for this observer.
	ObserverID() string
}

// Subject manages observers and dispatches events to them. Modules reach the
// run's Subject through Runtime to emit their own events.
type Subject interface {
	// RegisterObserver adds an observer. If eventTypes is empty, the observer
	// receives all events.
	RegisterObserver(observer Observer, eventTypes ...string) error

	// UnregisterObserver removes an observer. Unknown observers are ignored.
	UnregisterObserver(observer Observer) error

	// NotifyObservers validates the event and delivers it to every interested
	// observer in registration order.
	NotifyObservers(ctx context.Context, event cloudevents.Event) error

	// GetObservers returns information about the registered observers.
	GetObservers() []ObserverInfo
}

// ObserverInfo describes a registered observer.
type ObserverInfo struct {
	ID           string    `json:"id"`
	EventTypes   []string  `json:"eventTypes"`
	RegisteredAt time.Time `json:"registeredAt"`
}

// FunctionalObserver adapts a function to Observer.
type FunctionalObserver struct {
	id      string
	handler func(ctx context.Context, event cloudevents.Event) error
}

// NewFunctionalObserver creates an observer that calls handler for each event.
func NewFunctionalObserver(id string, handler func(ctx context.Context, event cloudevents.Event) error) Observer {
	return &FunctionalObserver{id: id, handler: handler}
}

func (f *FunctionalObserver) OnEvent(ctx context.Context, event cloudevents.Event) error {
	return f.handler(ctx, event)
}

func (f *FunctionalObserver) ObserverID() string {
	return f.id
}

type observerRegistration struct {
	observer     Observer
	eventTypes   []string
	registeredAt time.Time
}

func (r *observerRegistration) wants(eventType string) bool {
	return len(r.eventTypes) == 0 || slices.Contains(r.eventTypes, eventType)
}

// eventSubject is the Subject of a bootstrap run. Delivery is synchronous so
// observers see events in the order the run emits them.
type eventSubject struct {
	mu            sync.RWMutex
	registrations []*observerRegistration
	logger        Logger
}

func newEventSubject(logger Logger) *eventSubject {
	return &eventSubject{logger: logger}
}

func (s *eventSubject) RegisterObserver(observer Observer, eventTypes ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	reg := &observerRegistration{
		observer:     observer,
		eventTypes:   slices.Clone(eventTypes),
		registeredAt: time.Now(),
	}
	if i := s.index(observer.ObserverID()); i >= 0 {
		s.registrations[i] = reg
	} else {
		s.registrations = append(s.registrations, reg)
	}

	s.logger.Debug("Observer registered", "observerID", observer.ObserverID(), "eventTypes", eventTypes)
	return nil
}

func (s *eventSubject) UnregisterObserver(observer Observer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.index(observer.ObserverID()); i >= 0 {
		s.registrations = slices.Delete(s.registrations, i, i+1)
		s.logger.Debug("Observer unregistered", "observerID", observer.ObserverID())
	}
	return nil
}

func (s *eventSubject) NotifyObservers(ctx context.Context, event cloudevents.Event) error {
	if event.Time().IsZero() {
		event.SetTime(time.Now())
	}
	if err := ValidateCloudEvent(event); err != nil {
		s.logger.Error("Invalid CloudEvent", "eventType", event.Type(), "error", err)
		return err
	}

	s.mu.RLock()
	regs := slices.Clone(s.registrations)
	s.mu.RUnlock()

	for _, reg := range regs {
		if !reg.wants(event.Type()) {
			continue
		}
		s.deliver(ctx, reg.observer, event)
	}
	return nil
}

func (s *eventSubject) deliver(ctx context.Context, o Observer, event cloudevents.Event) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Observer panicked", "observerID", o.ObserverID(), "event", event.Type(), "panic", r)
		}
	}()
	if err := o.OnEvent(ctx, event); err != nil {
		s.logger.Error("Observer error", "observerID", o.ObserverID(), "event", event.Type(), "error", err)
	}
}

func (s *eventSubject) GetObservers() []ObserverInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info := make([]ObserverInfo, 0, len(s.registrations))
	for _, reg := range s.registrations {
		info = append(info, ObserverInfo{
			ID:           reg.observer.ObserverID(),
			EventTypes:   slices.Clone(reg.eventTypes),
			RegisteredAt: reg.registeredAt,
		})
	}
	return info
}

func (s *eventSubject) index(id string) int {
	return slices.IndexFunc(s.registrations, func(r *observerRegistration) bool {
		return r.observer.ObserverID() == id
	})
}

// emit builds a CloudEvent and notifies observers, logging delivery failures.
func (s *eventSubject) emit(ctx context.Context, eventType string, data any) {
	event := NewCloudEvent(eventType, eventSourceName, data, nil)
	if err := s.NotifyObservers(ctx, event); err != nil {
		s.logger.Error("Failed to notify observers", "event", eventType, "error", err)
	}
}

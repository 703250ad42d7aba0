package bootstrap

import (
	"fmt"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"

	"github.com/GoCodeAlone/bootstrap/lifecycle"
)

// CloudEvent is an alias for the CloudEvents Event type.
type CloudEvent = cloudevents.Event

const eventSourceName = lifecycle.EventSource

// NewCloudEvent creates a CloudEvent with a time-ordered id. Data is encoded
// as JSON; metadata entries become extensions.
func NewCloudEvent(eventType, source string, data any, metadata map[string]any) cloudevents.Event {
	event := cloudevents.NewEvent()
	event.SetID(generateEventID())
	event.SetSource(source)
	event.SetType(eventType)
	event.SetTime(time.Now())
	event.SetSpecVersion(cloudevents.VersionV1)

	if data != nil {
		_ = event.SetData(cloudevents.ApplicationJSON, data)
	}
	for key, value := range metadata {
		event.SetExtension(key, value)
	}
	return event
}

// generateEventID returns a UUIDv7, falling back to v4.
func generateEventID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return id.String()
}

// ValidateCloudEvent validates an event against the CloudEvents spec.
func ValidateCloudEvent(event cloudevents.Event) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("CloudEvent validation failed: %w", err)
	}
	return nil
}

package interfaces

import (
	"context"
	"time"
)

// EventType identifies a category of application event
type EventType string

const (
	EventJobCreated   EventType = "job_created"
	EventJobStage     EventType = "job_stage"
	EventJobCompleted EventType = "job_completed"
	EventJobFailed    EventType = "job_failed"
	EventDeviceStatus EventType = "device_status"
)

// Event is a single application event published to subscribers
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
}

// EventHandler processes a published event
type EventHandler func(ctx context.Context, event Event) error

// EventService provides pub/sub event distribution
type EventService interface {
	Subscribe(eventType EventType, handler EventHandler) error
	Publish(ctx context.Context, event Event) error
	PublishSync(ctx context.Context, event Event) error
	Close() error
}

package domain

import "time"

// WebhookEventStatus enumerates processing states of stored provider events.
type WebhookEventStatus string

const (
	WebhookEventPending    WebhookEventStatus = "pending"
	WebhookEventProcessing WebhookEventStatus = "processing"
	WebhookEventProcessed  WebhookEventStatus = "processed"
	WebhookEventIgnored    WebhookEventStatus = "ignored"
	WebhookEventFailed     WebhookEventStatus = "failed"
)

const (
	// MaxWebhookAttempts bounds how often a failing event is retried.
	MaxWebhookAttempts = 5
	// WebhookRetryDelay is the minimum wait before a failed event is claimed
	// again.
	WebhookRetryDelay = 30 * time.Second
)

// WebhookEvent is a verified provider notification queued for processing.
type WebhookEvent struct {
	ID              string
	Provider        string
	ProviderEventID string
	EventType       string
	Payload         []byte
	Status          WebhookEventStatus
	Attempts        int
	LastError       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ProcessedAt     *time.Time
}

package repo

import (
	"context"
	"fmt"
	"time"

	"ecofund/internal/domain"
	"ecofund/internal/infra"
	"ecofund/internal/sqlinline"
)

// WebhookEventRepositoryPG implements domain.WebhookEventRepository.
type WebhookEventRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewWebhookEventRepository creates a webhook event repository backed by PostgreSQL.
func NewWebhookEventRepository(sql infra.SQLExecutor) *WebhookEventRepositoryPG {
	return &WebhookEventRepositoryPG{sql: sql}
}

// Save stores a verified event once per provider event id.
func (r *WebhookEventRepositoryPG) Save(ctx context.Context, event *domain.WebhookEvent) (bool, error) {
	if event.ID == "" {
		event.ID = newID()
	}
	err := r.sql.QueryRow(ctx, sqlinline.QInsertWebhookEvent,
		event.ID,
		event.Provider,
		event.ProviderEventID,
		event.EventType,
		event.Payload,
	).Scan(&event.CreatedAt)
	if err != nil {
		if infra.IsNoRows(err) {
			return false, nil
		}
		return false, fmt.Errorf("insert webhook event: %w", err)
	}
	event.Status = domain.WebhookEventPending
	event.UpdatedAt = event.CreatedAt
	return true, nil
}

// Claim marks the oldest processable event as processing and returns it.
func (r *WebhookEventRepositoryPG) Claim(ctx context.Context) (*domain.WebhookEvent, error) {
	var (
		event  domain.WebhookEvent
		status string
	)
	err := r.sql.QueryRow(ctx, sqlinline.QClaimWebhookEvent,
		domain.MaxWebhookAttempts, int(domain.WebhookRetryDelay/time.Second)).Scan(
		&event.ID,
		&event.Provider,
		&event.ProviderEventID,
		&event.EventType,
		&event.Payload,
		&status,
		&event.Attempts,
		&event.LastError,
		&event.CreatedAt,
		&event.UpdatedAt,
		&event.ProcessedAt,
	)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("claim webhook event: %w", err)
	}
	event.Status = domain.WebhookEventStatus(status)
	return &event, nil
}

// MarkDone records the outcome of processing an event.
func (r *WebhookEventRepositoryPG) MarkDone(ctx context.Context, id string, status domain.WebhookEventStatus, lastError string) error {
	if _, err := r.sql.Exec(ctx, sqlinline.QFinishWebhookEvent, id, string(status), lastError); err != nil {
		return fmt.Errorf("finish webhook event: %w", err)
	}
	return nil
}

package memory

import (
	"context"
	"time"

	"ecofund/internal/domain"
)

const staleProcessingAfter = 5 * time.Minute

// WebhookEventRepository implements domain.WebhookEventRepository in memory.
type WebhookEventRepository struct {
	s *Store
}

func (r *WebhookEventRepository) Save(ctx context.Context, event *domain.WebhookEvent) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := event.Provider + "/" + event.ProviderEventID
	if _, ok := r.s.byEventKey[key]; ok {
		return false, nil
	}
	if event.ID == "" {
		event.ID = newID()
	}
	now := r.s.now()
	event.Status = domain.WebhookEventPending
	event.Attempts = 0
	event.LastError = ""
	event.CreatedAt = now
	event.UpdatedAt = now
	stored := *event
	stored.Payload = append([]byte(nil), event.Payload...)
	r.s.events[event.ID] = &stored
	r.s.byEventKey[key] = event.ID
	r.s.eventOrder = append(r.s.eventOrder, event.ID)
	return true, nil
}

func (r *WebhookEventRepository) Claim(ctx context.Context) (*domain.WebhookEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	var next *domain.WebhookEvent
	for _, id := range r.s.eventOrder {
		e := r.s.events[id]
		switch {
		case e.Status == domain.WebhookEventPending:
		case e.Status == domain.WebhookEventFailed && e.Attempts < domain.MaxWebhookAttempts &&
			now.Sub(e.UpdatedAt) >= domain.WebhookRetryDelay:
		case e.Status == domain.WebhookEventProcessing && e.Attempts < domain.MaxWebhookAttempts &&
			now.Sub(e.UpdatedAt) > staleProcessingAfter:
		default:
			continue
		}
		next = e
		break
	}
	if next == nil {
		return nil, domain.ErrNotFound
	}
	next.Status = domain.WebhookEventProcessing
	next.Attempts++
	next.UpdatedAt = now
	out := *next
	out.Payload = append([]byte(nil), next.Payload...)
	return &out, nil
}

func (r *WebhookEventRepository) MarkDone(ctx context.Context, id string, status domain.WebhookEventStatus, lastError string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.events[id]
	if !ok {
		return domain.ErrNotFound
	}
	now := r.s.now()
	e.Status = status
	e.LastError = lastError
	e.UpdatedAt = now
	if status == domain.WebhookEventProcessed || status == domain.WebhookEventIgnored {
		e.ProcessedAt = &now
	}
	return nil
}

// Event returns a stored event by id.
func (r *WebhookEventRepository) Event(id string) (*domain.WebhookEvent, bool) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.events[id]
	if !ok {
		return nil, false
	}
	out := *e
	return &out, true
}

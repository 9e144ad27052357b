// Package memory provides process-local repositories with the same
// uniqueness and aggregate guarantees as the PostgreSQL adapters. It backs
// DATABASE_URL=memory:// and the service tests.
package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"ecofund/internal/domain"
)

// Store holds all records behind one mutex so that aggregate recomputes read
// a consistent donation set.
type Store struct {
	mu sync.Mutex

	campaigns map[string]*domain.Campaign
	donations map[string]*domain.Donation
	events    map[string]*domain.WebhookEvent
	updates   map[string][]domain.CampaignUpdate // by campaign, oldest first

	// arrival order of events, scanned by Claim
	eventOrder []string

	bySession     map[string]string
	byTransaction map[string]string
	byReceipt     map[string]string
	byEventKey    map[string]string

	now func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		campaigns:     map[string]*domain.Campaign{},
		donations:     map[string]*domain.Donation{},
		events:        map[string]*domain.WebhookEvent{},
		updates:       map[string][]domain.CampaignUpdate{},
		bySession:     map[string]string{},
		byTransaction: map[string]string{},
		byReceipt:     map[string]string{},
		byEventKey:    map[string]string{},
		now:           time.Now,
	}
}

// SetClock replaces the time source used for timestamps and retry delays.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Campaigns returns the campaign repository view of the store.
func (s *Store) Campaigns() *CampaignRepository {
	return &CampaignRepository{s: s}
}

// Donations returns the donation repository view of the store.
func (s *Store) Donations() *DonationRepository {
	return &DonationRepository{s: s}
}

// WebhookEvents returns the webhook event repository view of the store.
func (s *Store) WebhookEvents() *WebhookEventRepository {
	return &WebhookEventRepository{s: s}
}

func newID() string {
	return uuid.NewString()
}

func cloneCampaign(c *domain.Campaign) *domain.Campaign {
	out := *c
	out.Tags = append([]string(nil), c.Tags...)
	return &out
}

func cloneDonation(d *domain.Donation) *domain.Donation {
	out := *d
	if d.ExternalSessionID != nil {
		v := *d.ExternalSessionID
		out.ExternalSessionID = &v
	}
	if d.ExternalPaymentIntentID != nil {
		v := *d.ExternalPaymentIntentID
		out.ExternalPaymentIntentID = &v
	}
	if d.ProcessedAt != nil {
		v := *d.ProcessedAt
		out.ProcessedAt = &v
	}
	return &out
}

func paginate[T any](items []T, page domain.Page) []T {
	start := page.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := len(items)
	if page.Size > 0 && start+page.Size < end {
		end = start + page.Size
	}
	return items[start:end]
}

package domain

import (
	"context"
	"time"
)

// CampaignRepository persists campaigns and owns the aggregate recompute.
type CampaignRepository interface {
	Create(ctx context.Context, campaign *Campaign) error
	Update(ctx context.Context, campaign *Campaign) error
	GetByID(ctx context.Context, id string) (*Campaign, error)
	List(ctx context.Context, filter CampaignFilter) ([]Campaign, int, error)
	ListIDs(ctx context.Context) ([]string, error)
	// Delete removes the campaign and its pending/failed donations. It returns
	// ErrInvalidState when completed or refunded donations reference it.
	Delete(ctx context.Context, id string) error
	// RecomputeTotals rewrites CurrentAmount and DonorCount from the
	// campaign's completed donations in one atomic write.
	RecomputeTotals(ctx context.Context, id string) (*Campaign, error)
	Stats(ctx context.Context) (*CampaignStats, error)
	// AddUpdate stores a progress update and touches the campaign's
	// UpdatedAt. It returns ErrNotFound for an unknown campaign.
	AddUpdate(ctx context.Context, update *CampaignUpdate) error
	// ListUpdates returns up to limit updates, newest first.
	ListUpdates(ctx context.Context, campaignID string, limit int) ([]CampaignUpdate, error)
}

// DonationRepository persists donations. Create enforces uniqueness of the
// external session id (ErrAlreadyProcessed) and of the transaction/receipt
// ids (ErrDuplicateOperation).
type DonationRepository interface {
	Create(ctx context.Context, donation *Donation) error
	GetByID(ctx context.Context, id string) (*Donation, error)
	GetBySessionID(ctx context.Context, sessionID string) (*Donation, error)
	GetByPaymentIntentID(ctx context.Context, paymentIntentID string) (*Donation, error)
	// UpdateStatus moves a donation from one status to another. It returns
	// ErrConflict when the stored status no longer equals from.
	UpdateStatus(ctx context.Context, id string, from, to DonationStatus, processedAt *time.Time) error
	// UpdateRefund sets the cumulative refund on a completed donation whose
	// stored refund still equals prevRefund, moving it to status.
	UpdateRefund(ctx context.Context, id string, prevRefund, refund int64, status DonationStatus, reason string) error
	ListByUser(ctx context.Context, userID string, page Page) ([]Donation, int, error)
	ListByCampaign(ctx context.Context, campaignID string, status DonationStatus, page Page) ([]Donation, int, error)
	Stats(ctx context.Context, filter DonationStatsFilter) (*DonationStats, error)
}

// WebhookEventRepository stores provider events for asynchronous processing.
type WebhookEventRepository interface {
	// Save stores the event; it reports false when the provider event id was
	// already stored.
	Save(ctx context.Context, event *WebhookEvent) (bool, error)
	// Claim locks the oldest processable event, or returns ErrNotFound.
	Claim(ctx context.Context) (*WebhookEvent, error)
	MarkDone(ctx context.Context, id string, status WebhookEventStatus, lastError string) error
}

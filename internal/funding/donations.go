package funding

import (
	"context"
	"fmt"
	"time"

	"ecofund/internal/domain"
)

// DonationList is one page of donations.
type DonationList struct {
	Items []domain.Donation
	Total int
	Page  domain.Page
}

// MyDonations lists the actor's own donations, newest first.
func (s *Service) MyDonations(ctx context.Context, actor Actor, page domain.Page) (*DonationList, error) {
	if actor.UserID == "" {
		return nil, domain.ErrUnauthorized
	}
	page = normalizePage(page)
	items, total, err := s.donations.ListByUser(ctx, actor.UserID, page)
	if err != nil {
		return nil, err
	}
	return &DonationList{Items: items, Total: total, Page: page}, nil
}

// GetDonation returns a donation visible to its owner or an administrator.
func (s *Service) GetDonation(ctx context.Context, actor Actor, id string) (*domain.Donation, error) {
	d, err := s.donations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Admin && d.UserID != actor.UserID {
		return nil, fmt.Errorf("%w: donation belongs to another user", domain.ErrForbidden)
	}
	return d, nil
}

// Receipt is the printable record of a completed donation.
type Receipt struct {
	ReceiptID      string
	TransactionID  string
	DonationID     string
	CampaignTitle  string
	Organizer      string
	OrganizerEmail string
	DonorName      string
	DonorEmail     string
	Amount         int64
	RefundAmount   int64
	Currency       string
	PaymentMethod  domain.PaymentMethod
	Message        string
	DonatedAt      time.Time
	ProcessedAt    *time.Time
}

// DonationReceipt builds the receipt of a completed donation.
func (s *Service) DonationReceipt(ctx context.Context, actor Actor, id string) (*Receipt, error) {
	d, err := s.GetDonation(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if d.Status != domain.DonationStatusCompleted {
		return nil, fmt.Errorf("%w: receipt not available for %s donations", domain.ErrInvalidState, d.Status)
	}
	c, err := s.campaigns.GetByID(ctx, d.CampaignID)
	if err != nil {
		return nil, err
	}
	return &Receipt{
		ReceiptID:      d.ReceiptID,
		TransactionID:  d.TransactionID,
		DonationID:     d.ID,
		CampaignTitle:  c.Title,
		Organizer:      c.Organizer,
		OrganizerEmail: c.OrganizerEmail,
		DonorName:      d.DonorName,
		DonorEmail:     d.DonorEmail,
		Amount:         d.Amount,
		RefundAmount:   d.RefundAmount,
		Currency:       d.Currency,
		PaymentMethod:  d.PaymentMethod,
		Message:        d.Message,
		DonatedAt:      d.CreatedAt,
		ProcessedAt:    d.ProcessedAt,
	}, nil
}

// CampaignDonations lists a campaign's donations for public display. Donor
// identity is stripped and anonymous donors are masked.
func (s *Service) CampaignDonations(ctx context.Context, campaignID string, status domain.DonationStatus, page domain.Page) (*DonationList, error) {
	if status == "" {
		status = domain.DonationStatusCompleted
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, status)
	}
	if _, err := s.campaigns.GetByID(ctx, campaignID); err != nil {
		return nil, err
	}
	page = normalizePage(page)
	items, total, err := s.donations.ListByCampaign(ctx, campaignID, status, page)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i] = anonymize(items[i])
	}
	return &DonationList{Items: items, Total: total, Page: page}, nil
}

func anonymize(d domain.Donation) domain.Donation {
	return domain.Donation{
		ID:            d.ID,
		CampaignID:    d.CampaignID,
		Amount:        d.Amount,
		RefundAmount:  d.RefundAmount,
		Currency:      d.Currency,
		Status:        d.Status,
		PaymentMethod: d.PaymentMethod,
		DonorName:     d.PublicDonorName(),
		IsAnonymous:   d.IsAnonymous,
		Message:       d.Message,
		CreatedAt:     d.CreatedAt,
		ProcessedAt:   d.ProcessedAt,
	}
}

// Timeframes accepted by DonationStats.
var statsTimeframes = map[string]time.Duration{
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
	"90d": 90 * 24 * time.Hour,
	"1y":  365 * 24 * time.Hour,
}

// DonationStats aggregates completed donations over a trailing timeframe,
// optionally for one campaign. An empty timeframe means 30d; "all" disables
// the time bound.
func (s *Service) DonationStats(ctx context.Context, campaignID, timeframe string) (*domain.DonationStats, error) {
	if timeframe == "" {
		timeframe = "30d"
	}
	filter := domain.DonationStatsFilter{CampaignID: campaignID}
	if timeframe != "all" {
		window, ok := statsTimeframes[timeframe]
		if !ok {
			return nil, fmt.Errorf("%w: unknown timeframe %q", domain.ErrInvalidInput, timeframe)
		}
		since := s.now().Add(-window)
		filter.Since = &since
	}
	if campaignID != "" {
		if _, err := s.campaigns.GetByID(ctx, campaignID); err != nil {
			return nil, err
		}
	}
	return s.donations.Stats(ctx, filter)
}

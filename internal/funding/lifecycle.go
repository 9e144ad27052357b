package funding

import (
	"context"
	"fmt"
	"strings"

	"ecofund/internal/domain"
)

// LifecycleResult is a donation after a state change together with its
// campaign. Campaign is nil when the change did not touch aggregates.
type LifecycleResult struct {
	Donation *domain.Donation
	Campaign *domain.Campaign
}

// ChangeStatus moves a donation along the state machine. Moving to refunded
// refunds the full outstanding amount.
func (s *Service) ChangeStatus(ctx context.Context, donationID string, to domain.DonationStatus) (*LifecycleResult, error) {
	d, err := s.donations.GetByID(ctx, donationID)
	if err != nil {
		return nil, err
	}
	if d.Status == to {
		return &LifecycleResult{Donation: d}, nil
	}
	if to == domain.DonationStatusRefunded {
		return s.applyRefund(ctx, d, d.Amount, "status changed to refunded")
	}

	recompute, err := domain.Transition(d.Status, to)
	if err != nil {
		return nil, err
	}
	processedAt := d.ProcessedAt
	if to == domain.DonationStatusCompleted {
		now := s.now()
		processedAt = &now
	}
	if err := s.donations.UpdateStatus(ctx, d.ID, d.Status, to, processedAt); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("donation_id", d.ID).
		Str("from", string(d.Status)).
		Str("to", string(to)).
		Msg("donation status changed")
	return s.afterChange(ctx, d.ID, d.CampaignID, recompute)
}

// Refund adds amount to the donation's cumulative refund. A refund reaching
// the full amount moves the donation to refunded.
func (s *Service) Refund(ctx context.Context, donationID string, amount int64, reason string) (*LifecycleResult, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: refund amount must be positive", domain.ErrInvalidAmount)
	}
	d, err := s.donations.GetByID(ctx, donationID)
	if err != nil {
		return nil, err
	}
	if d.Status != domain.DonationStatusCompleted {
		return nil, fmt.Errorf("%w: only completed donations can be refunded, donation is %s", domain.ErrInvalidState, d.Status)
	}
	total := d.RefundAmount + amount
	if total > d.Amount {
		return nil, fmt.Errorf("%w: refund of %s exceeds the remaining %s",
			domain.ErrInvalidAmount, domain.FormatMajor(amount), domain.FormatMajor(d.NetAmount()))
	}
	return s.applyRefund(ctx, d, total, reason)
}

// RefundByPaymentIntent applies the provider's cumulative refunded total to
// the donation paid by paymentIntentID. Redelivered or stale notifications
// are no-ops.
func (s *Service) RefundByPaymentIntent(ctx context.Context, paymentIntentID string, totalRefunded int64) (*LifecycleResult, error) {
	paymentIntentID = strings.TrimSpace(paymentIntentID)
	if paymentIntentID == "" {
		return nil, fmt.Errorf("%w: payment intent id is required", domain.ErrInvalidInput)
	}
	d, err := s.donations.GetByPaymentIntentID(ctx, paymentIntentID)
	if err != nil {
		return nil, err
	}
	if totalRefunded > d.Amount {
		return nil, fmt.Errorf("%w: provider refunded %d of %d", domain.ErrInvalidAmount, totalRefunded, d.Amount)
	}
	switch d.Status {
	case domain.DonationStatusRefunded:
		return &LifecycleResult{Donation: d}, nil
	case domain.DonationStatusCompleted:
	default:
		return nil, fmt.Errorf("%w: donation %s is %s", domain.ErrInvalidState, d.ID, d.Status)
	}
	if totalRefunded <= d.RefundAmount {
		return &LifecycleResult{Donation: d}, nil
	}
	return s.applyRefund(ctx, d, totalRefunded, "refunded by payment provider")
}

// applyRefund stores total as the cumulative refund on a completed donation.
func (s *Service) applyRefund(ctx context.Context, d *domain.Donation, total int64, reason string) (*LifecycleResult, error) {
	if d.Status != domain.DonationStatusCompleted {
		if _, err := domain.Transition(d.Status, domain.DonationStatusRefunded); err != nil {
			return nil, err
		}
	}
	status := domain.DonationStatusCompleted
	if total >= d.Amount {
		status = domain.DonationStatusRefunded
	}
	if err := s.donations.UpdateRefund(ctx, d.ID, d.RefundAmount, total, status, strings.TrimSpace(reason)); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("donation_id", d.ID).
		Int64("refund_amount", total).
		Str("status", string(status)).
		Msg("donation refunded")
	return s.afterChange(ctx, d.ID, d.CampaignID, true)
}

func (s *Service) afterChange(ctx context.Context, donationID, campaignID string, recompute bool) (*LifecycleResult, error) {
	res := &LifecycleResult{}
	if recompute {
		campaign, err := s.Recompute(ctx, campaignID)
		if err != nil {
			return nil, err
		}
		res.Campaign = campaign
	}
	d, err := s.donations.GetByID(ctx, donationID)
	if err != nil {
		return nil, err
	}
	res.Donation = d
	return res, nil
}

// PledgeInput records a donation made outside the checkout flow, such as a
// bank transfer, awaiting confirmation.
type PledgeInput struct {
	CampaignID    string
	UserID        string
	Amount        int64
	PaymentMethod domain.PaymentMethod
	DonorName     string
	DonorEmail    string
	IsAnonymous   bool
	Message       string
	Client        domain.DonationMetadata
}

// RecordPledge stores a pending donation. It does not affect aggregates until
// an administrator marks it completed.
func (s *Service) RecordPledge(ctx context.Context, in PledgeInput) (*domain.Donation, error) {
	if err := s.checkAmount(in.Amount); err != nil {
		return nil, err
	}
	if in.PaymentMethod == "" {
		in.PaymentMethod = domain.PaymentMethodBankTransfer
	}
	campaign, err := s.campaigns.GetByID(ctx, in.CampaignID)
	if err != nil {
		return nil, err
	}
	if err := campaign.AcceptsDonations(s.now()); err != nil {
		return nil, err
	}
	currency := campaign.Currency
	if currency == "" {
		currency = s.currency
	}
	d := &domain.Donation{
		CampaignID:    campaign.ID,
		UserID:        in.UserID,
		Amount:        in.Amount,
		Currency:      currency,
		Status:        domain.DonationStatusPending,
		PaymentMethod: in.PaymentMethod,
		DonorName:     strings.TrimSpace(in.DonorName),
		DonorEmail:    strings.TrimSpace(in.DonorEmail),
		IsAnonymous:   in.IsAnonymous,
		Message:       strings.TrimSpace(in.Message),
		Metadata:      in.Client,
	}
	if err := s.insertDonation(ctx, d); err != nil {
		return nil, err
	}
	return s.donations.GetByID(ctx, d.ID)
}

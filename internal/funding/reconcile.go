package funding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ecofund/internal/domain"
	"ecofund/internal/payment"
)

// ReconcileInput names the session to reconcile. Actor.UserID is recorded as
// the payer only when the session metadata does not carry one.
type ReconcileInput struct {
	SessionID string
	Actor     Actor
	Client    domain.DonationMetadata
}

// ErrNotCampaignCheckout marks provider sessions that were not started as a
// campaign donation by this service.
var ErrNotCampaignCheckout = errors.New("not a campaign checkout")

// ReconcileResult is the donation recorded for a session. Replayed is set when
// the donation already existed before this call.
type ReconcileResult struct {
	Donation *domain.Donation
	Campaign *domain.Campaign
	Replayed bool
}

// Reconcile turns a paid provider session into exactly one completed
// donation and refreshes the campaign aggregate. It is safe to call any number
// of times, concurrently, for the same session.
func (s *Service) Reconcile(ctx context.Context, in ReconcileInput) (*ReconcileResult, error) {
	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", domain.ErrInvalidInput)
	}
	log := s.logger.With().Str("session_id", sessionID).Logger()

	session, err := s.provider.RetrieveSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !payment.IsCampaignCheckout(session.Metadata) {
		return nil, fmt.Errorf("%w: session %s: %w", domain.ErrInvalidInput, sessionID, ErrNotCampaignCheckout)
	}
	if !session.Paid() {
		log.Info().Str("payment_status", string(session.PaymentStatus)).Msg("session not paid")
		return nil, fmt.Errorf("%w: session %s is %s", domain.ErrNotPaid, sessionID, session.PaymentStatus)
	}
	if err := checkPayer(in.Actor, session); err != nil {
		log.Warn().Str("user_id", in.Actor.UserID).Msg("session claimed by another user")
		return nil, err
	}

	if existing, err := s.donations.GetBySessionID(ctx, sessionID); err == nil {
		log.Debug().Str("donation_id", existing.ID).Msg("session already reconciled")
		return s.replay(ctx, existing)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	donation, err := s.donationFromSession(session, in)
	if err != nil {
		return nil, err
	}
	if err := s.insertDonation(ctx, donation); err != nil {
		if errors.Is(err, domain.ErrAlreadyProcessed) {
			log.Info().Msg("lost reconcile race, returning stored donation")
			existing, getErr := s.donations.GetBySessionID(ctx, sessionID)
			if getErr != nil {
				return nil, getErr
			}
			return s.replay(ctx, existing)
		}
		return nil, err
	}

	campaign, err := s.Recompute(ctx, donation.CampaignID)
	if err != nil {
		return nil, err
	}
	// Return the stored row so every caller sees the same field values.
	stored, err := s.donations.GetByID(ctx, donation.ID)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("donation_id", stored.ID).
		Str("campaign_id", stored.CampaignID).
		Int64("amount", stored.Amount).
		Msg("donation recorded")
	return &ReconcileResult{Donation: stored, Campaign: campaign}, nil
}

// replay recomputes the aggregate as well, so an earlier attempt that stored
// the donation but failed before its recompute still converges.
func (s *Service) replay(ctx context.Context, existing *domain.Donation) (*ReconcileResult, error) {
	campaign, err := s.Recompute(ctx, existing.CampaignID)
	if err != nil {
		return nil, err
	}
	return &ReconcileResult{Donation: existing, Campaign: campaign, Replayed: true}, nil
}

func (s *Service) donationFromSession(session *payment.Session, in ReconcileInput) (*domain.Donation, error) {
	campaignID := strings.TrimSpace(session.Metadata[payment.MetaCampaignID])
	userID := strings.TrimSpace(session.Metadata[payment.MetaUserID])
	if userID == "" {
		userID = strings.TrimSpace(in.Actor.UserID)
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: session %s carries no payer", domain.ErrInvalidInput, session.ID)
	}
	if session.AmountTotal <= 0 {
		return nil, fmt.Errorf("%w: session %s reports amount %d", domain.ErrInvalidAmount, session.ID, session.AmountTotal)
	}
	currency, err := domain.NormalizeCurrency(session.Currency)
	if err != nil {
		currency = s.currency
	}

	now := s.now()
	sessionID := session.ID
	d := &domain.Donation{
		CampaignID:        campaignID,
		UserID:            userID,
		Amount:            session.AmountTotal,
		Currency:          currency,
		Status:            domain.DonationStatusCompleted,
		PaymentMethod:     domain.PaymentMethodStripe,
		ExternalSessionID: &sessionID,
		DonorName:         session.CustomerName,
		DonorEmail:        session.CustomerEmail,
		Metadata:          in.Client,
		ProcessedAt:       &now,
	}
	if session.PaymentIntentID != "" {
		intent := session.PaymentIntentID
		d.ExternalPaymentIntentID = &intent
	}
	return d, nil
}

// insertDonation stores d with fresh local ids, regenerating them when they
// collide with an existing row.
func (s *Service) insertDonation(ctx context.Context, d *domain.Donation) error {
	var err error
	for attempt := 0; attempt < insertAttempts; attempt++ {
		d.TransactionID, d.ReceiptID = s.newIDs(s.now())
		err = s.donations.Create(ctx, d)
		if !errors.Is(err, domain.ErrDuplicateOperation) {
			return err
		}
		s.logger.Warn().Err(err).Int("attempt", attempt+1).Msg("donation id collision, regenerating")
		d.ID = ""
	}
	return err
}

// PaymentStatusResult is the provider's view of a session and the donation
// recorded for it, if any.
type PaymentStatusResult struct {
	Session  *payment.Session
	Donation *domain.Donation
}

// PaymentStatus reports the state of a checkout session without recording
// anything. Only the payer named in the session metadata and administrators
// may look.
func (s *Service) PaymentStatus(ctx context.Context, actor Actor, sessionID string) (*PaymentStatusResult, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", domain.ErrInvalidInput)
	}
	session, err := s.provider.RetrieveSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := checkPayer(actor, session); err != nil {
		return nil, err
	}
	out := &PaymentStatusResult{Session: session}
	d, err := s.donations.GetBySessionID(ctx, sessionID)
	switch {
	case err == nil:
		out.Donation = d
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}
	return out, nil
}

// checkPayer allows administrators and the payer named in the session
// metadata. Sessions without a recorded payer are open to any caller.
func checkPayer(actor Actor, session *payment.Session) error {
	payer := strings.TrimSpace(session.Metadata[payment.MetaUserID])
	if actor.Admin || payer == "" || payer == actor.UserID {
		return nil
	}
	return fmt.Errorf("%w: session belongs to another user", domain.ErrForbidden)
}

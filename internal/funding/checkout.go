package funding

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"ecofund/internal/domain"
	"ecofund/internal/payment"
)

// CheckoutInput is a donation intent from an authenticated payer.
type CheckoutInput struct {
	CampaignID string
	Amount     int64
	PayerEmail string
	UserID     string
	// Title overrides the campaign title on the provider's checkout page.
	Title string
}

// CheckoutResult is the provider session handle returned to the client.
type CheckoutResult struct {
	SessionID   string
	RedirectURL string
}

// InitiateCheckout validates the intent and opens a provider checkout
// session. Provider failures are returned as domain.ErrUpstreamFailure and
// never retried here.
func (s *Service) InitiateCheckout(ctx context.Context, in CheckoutInput) (*CheckoutResult, error) {
	if err := s.checkAmount(in.Amount); err != nil {
		return nil, err
	}
	campaignID := strings.TrimSpace(in.CampaignID)
	if campaignID == "" {
		return nil, fmt.Errorf("%w: campaign id is required", domain.ErrInvalidInput)
	}
	campaign, err := s.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: campaign %s", domain.ErrNotFound, campaignID)
		}
		return nil, err
	}
	if err := campaign.AcceptsDonations(s.now()); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = campaign.Title
	}
	currency := campaign.Currency
	if currency == "" {
		currency = s.currency
	}
	session, err := s.provider.CreateSession(ctx, payment.CheckoutRequest{
		CampaignID:  campaign.ID,
		UserID:      in.UserID,
		Amount:      in.Amount,
		Currency:    currency,
		Name:        "Donation to " + title,
		Description: "Environmental campaign donation",
		PayerEmail:  strings.TrimSpace(in.PayerEmail),
		SuccessURL:  s.successURL(campaign.ID),
		CancelURL:   s.clientURL + "/campaigns/" + url.PathEscape(campaign.ID),
	})
	if err != nil {
		if !errors.Is(err, domain.ErrUpstreamFailure) {
			err = fmt.Errorf("%w: %v", domain.ErrUpstreamFailure, err)
		}
		return nil, err
	}

	s.logger.Info().
		Str("campaign_id", campaign.ID).
		Str("session_id", session.ID).
		Int64("amount", in.Amount).
		Msg("checkout session created")
	return &CheckoutResult{SessionID: session.ID, RedirectURL: session.URL}, nil
}

// successURL keeps the provider's {CHECKOUT_SESSION_ID} placeholder unescaped.
func (s *Service) successURL(campaignID string) string {
	return s.clientURL + "/payment-success?session_id={CHECKOUT_SESSION_ID}&campaign_id=" + url.QueryEscape(campaignID)
}

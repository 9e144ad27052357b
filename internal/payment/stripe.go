package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82"

	"ecofund/internal/domain"
)

// checkoutSessions is the subset of the Stripe client used here.
type checkoutSessions interface {
	Create(ctx context.Context, params *stripe.CheckoutSessionCreateParams) (*stripe.CheckoutSession, error)
	Retrieve(ctx context.Context, id string, params *stripe.CheckoutSessionRetrieveParams) (*stripe.CheckoutSession, error)
}

// StripeProvider implements Provider on Stripe Checkout.
type StripeProvider struct {
	sessions checkoutSessions
	timeout  time.Duration
	logger   zerolog.Logger
}

// NewStripeProvider builds a provider for the given secret key. Every call is
// bounded by timeout.
func NewStripeProvider(secretKey string, timeout time.Duration, logger zerolog.Logger) (*StripeProvider, error) {
	secretKey = strings.TrimSpace(secretKey)
	if secretKey == "" {
		return nil, errors.New("stripe secret key is empty")
	}
	sc := stripe.NewClient(secretKey)
	return newStripeProvider(sc.V1CheckoutSessions, timeout, logger), nil
}

func newStripeProvider(sessions checkoutSessions, timeout time.Duration, logger zerolog.Logger) *StripeProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &StripeProvider{
		sessions: sessions,
		timeout:  timeout,
		logger:   logger.With().Str("provider", "stripe").Logger(),
	}
}

// CreateSession opens a one-item payment-mode checkout session.
func (p *StripeProvider) CreateSession(ctx context.Context, req CheckoutRequest) (*Session, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	amount := req.Amount
	product := &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
		Name: stripe.String(req.Name),
	}
	if req.Description != "" {
		product.Description = stripe.String(req.Description)
	}
	params := &stripe.CheckoutSessionCreateParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SubmitType: stripe.String("donate"),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
					Currency:    stripe.String(strings.ToLower(req.Currency)),
					ProductData: product,
					UnitAmount:  &amount,
				},
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: map[string]string{
			MetaCampaignID:   req.CampaignID,
			MetaUserID:       req.UserID,
			MetaDonationType: DonationTypeCampaign,
		},
	}
	if req.PayerEmail != "" {
		params.CustomerEmail = stripe.String(req.PayerEmail)
	}

	cs, err := p.sessions.Create(ctx, params)
	if err != nil {
		p.logger.Error().Err(err).Str("campaign_id", req.CampaignID).Msg("create checkout session failed")
		return nil, mapStripeError(err)
	}
	return toSession(cs), nil
}

// RetrieveSession fetches the authoritative session state.
func (p *StripeProvider) RetrieveSession(ctx context.Context, sessionID string) (*Session, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("%w: empty session id", domain.ErrNotFound)
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cs, err := p.sessions.Retrieve(ctx, sessionID, nil)
	if err != nil {
		p.logger.Warn().Err(err).Str("session_id", sessionID).Msg("retrieve checkout session failed")
		return nil, mapStripeError(err)
	}
	return toSession(cs), nil
}

func toSession(cs *stripe.CheckoutSession) *Session {
	out := &Session{
		ID:            cs.ID,
		URL:           cs.URL,
		Status:        string(cs.Status),
		PaymentStatus: PaymentStatus(cs.PaymentStatus),
		AmountTotal:   cs.AmountTotal,
		Currency:      strings.ToUpper(string(cs.Currency)),
		Metadata:      map[string]string{},
		CustomerEmail: cs.CustomerEmail,
	}
	for k, v := range cs.Metadata {
		out.Metadata[k] = v
	}
	if cs.PaymentIntent != nil {
		out.PaymentIntentID = cs.PaymentIntent.ID
	}
	if cs.CustomerDetails != nil {
		if out.CustomerEmail == "" {
			out.CustomerEmail = cs.CustomerDetails.Email
		}
		out.CustomerName = cs.CustomerDetails.Name
	}
	return out
}

func mapStripeError(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		if stripeErr.HTTPStatusCode == http.StatusNotFound || stripeErr.Code == stripe.ErrorCodeResourceMissing {
			return fmt.Errorf("%w: checkout session: %s", domain.ErrNotFound, stripeErr.Msg)
		}
		return fmt.Errorf("%w: stripe %d: %s", domain.ErrUpstreamFailure, stripeErr.HTTPStatusCode, stripeErr.Msg)
	}
	return fmt.Errorf("%w: %v", domain.ErrUpstreamFailure, err)
}

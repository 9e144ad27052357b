// Package bootstrap assembles the funding service from configuration. It is
// shared by the API server, the webhook worker and the admin CLI.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"ecofund/internal/adapter/memory"
	"ecofund/internal/adapter/repo"
	"ecofund/internal/domain"
	"ecofund/internal/funding"
	"ecofund/internal/infra"
	"ecofund/internal/infra/credentials"
	"ecofund/internal/payment"
)

// Runtime holds the wired components of one process.
type Runtime struct {
	Service     *funding.Service
	Verifier    *payment.WebhookVerifier
	Credentials *credentials.Store

	closers []func()
}

// New connects storage, resolves provider secrets and builds the service.
// DATABASE_URL=memory:// keeps everything in process.
func New(ctx context.Context, cfg *infra.Config, logger zerolog.Logger) (*Runtime, error) {
	rt := &Runtime{}
	var (
		campaigns domain.CampaignRepository
		donations domain.DonationRepository
		events    domain.WebhookEventRepository
	)

	if cfg.InMemoryStore() {
		logger.Warn().Msg("using in-memory store, data is lost on exit")
		store := memory.NewStore()
		campaigns, donations, events = store.Campaigns(), store.Donations(), store.WebhookEvents()
	} else {
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, pool.Close)
		runner := infra.NewSQLRunner(pool, logger)
		campaigns = repo.NewCampaignRepository(runner)
		donations = repo.NewDonationRepository(runner)
		events = repo.NewWebhookEventRepository(runner)
		rt.Credentials = credentials.NewStore(runner)
	}

	stripeKey, webhookSecret := cfg.StripeSecretKey, cfg.StripeWebhookSecret
	if rt.Credentials != nil {
		var err error
		if stripeKey, err = rt.Credentials.Resolve(ctx, credentials.ProviderStripe, stripeKey); err != nil {
			logger.Warn().Err(err).Msg("failed to load stripe key from store")
		}
		if webhookSecret, err = rt.Credentials.Resolve(ctx, credentials.ProviderStripeWebhook, webhookSecret); err != nil {
			logger.Warn().Err(err).Msg("failed to load stripe webhook secret from store")
		}
	}

	var provider payment.Provider = unconfiguredProvider{}
	if stripeKey != "" {
		sp, err := payment.NewStripeProvider(stripeKey, cfg.ProviderTimeout, logger)
		if err != nil {
			rt.Close()
			return nil, err
		}
		provider = sp
	} else {
		logger.Warn().Msg("stripe secret key missing, checkout is disabled")
	}
	if webhookSecret != "" {
		rt.Verifier = payment.NewWebhookVerifier(webhookSecret)
	} else {
		logger.Warn().Msg("stripe webhook secret missing, webhook endpoint is disabled")
	}

	svc, err := funding.NewService(campaigns, donations, events, provider, logger, funding.Options{
		ClientURL: cfg.ClientURL,
		Currency:  cfg.PaymentCurrency,
		MinAmount: cfg.CheckoutMinAmount,
		MaxAmount: cfg.CheckoutMaxAmount,
	})
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.Service = svc
	return rt, nil
}

// Close releases storage connections.
func (rt *Runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	rt.closers = nil
}

type unconfiguredProvider struct{}

func (unconfiguredProvider) CreateSession(context.Context, payment.CheckoutRequest) (*payment.Session, error) {
	return nil, fmt.Errorf("%w: payment provider is not configured", domain.ErrUpstreamFailure)
}

func (unconfiguredProvider) RetrieveSession(context.Context, string) (*payment.Session, error) {
	return nil, fmt.Errorf("%w: payment provider is not configured", domain.ErrUpstreamFailure)
}

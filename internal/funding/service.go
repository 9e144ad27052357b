// Package funding implements checkout, payment reconciliation, campaign
// aggregates and the donation lifecycle on top of the domain repositories.
package funding

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ecofund/internal/domain"
	"ecofund/internal/payment"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100

	// insertAttempts bounds retries after a transaction/receipt id collision.
	insertAttempts = 3
)

// IDGenerator returns a fresh transaction id and receipt id.
type IDGenerator func(now time.Time) (transactionID, receiptID string)

// Options configures a Service.
type Options struct {
	// ClientURL is the public frontend origin used for checkout redirects.
	ClientURL string
	Currency  string
	MinAmount int64
	MaxAmount int64
	Now       func() time.Time
	NewIDs    IDGenerator
}

// Service wires the reconciliation core to its stores and payment provider.
type Service struct {
	campaigns domain.CampaignRepository
	donations domain.DonationRepository
	events    domain.WebhookEventRepository
	provider  payment.Provider
	logger    zerolog.Logger

	clientURL string
	currency  string
	minAmount int64
	maxAmount int64
	now       func() time.Time
	newIDs    IDGenerator
}

// NewService builds a Service. Zero-valued options fall back to the domain
// defaults.
func NewService(
	campaigns domain.CampaignRepository,
	donations domain.DonationRepository,
	events domain.WebhookEventRepository,
	provider payment.Provider,
	logger zerolog.Logger,
	opts Options,
) (*Service, error) {
	currency, err := domain.NormalizeCurrency(opts.Currency)
	if err != nil {
		return nil, err
	}
	s := &Service{
		campaigns: campaigns,
		donations: donations,
		events:    events,
		provider:  provider,
		logger:    logger.With().Str("component", "funding").Logger(),
		clientURL: strings.TrimRight(opts.ClientURL, "/"),
		currency:  currency,
		minAmount: opts.MinAmount,
		maxAmount: opts.MaxAmount,
		now:       opts.Now,
		newIDs:    opts.NewIDs,
	}
	if s.minAmount <= 0 {
		s.minAmount = domain.MinDonationAmount
	}
	if s.maxAmount <= 0 {
		s.maxAmount = domain.MaxDonationAmount
	}
	if s.minAmount > s.maxAmount {
		return nil, fmt.Errorf("checkout bounds inverted: %d > %d", s.minAmount, s.maxAmount)
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newIDs == nil {
		s.newIDs = NewDonationIDs
	}
	return s, nil
}

// Actor identifies the caller of an operation.
type Actor struct {
	UserID string
	Admin  bool
}

// SystemActor acts for verified provider callbacks and background jobs.
var SystemActor = Actor{UserID: "system", Admin: true}

// NewDonationIDs returns ids shaped txn_<unix ms>_<16 hex> and
// rcpt_<unix ms>_<12 hex>.
func NewDonationIDs(now time.Time) (string, string) {
	txn := uuid.New()
	rcpt := uuid.New()
	ms := now.UnixMilli()
	return fmt.Sprintf("txn_%d_%s", ms, hex.EncodeToString(txn[:8])),
		fmt.Sprintf("rcpt_%d_%s", ms, hex.EncodeToString(rcpt[:6]))
}

func (s *Service) checkAmount(amount int64) error {
	if amount < s.minAmount {
		return fmt.Errorf("%w: minimum donation amount is %s", domain.ErrInvalidAmount, domain.FormatMajor(s.minAmount))
	}
	if amount > s.maxAmount {
		return fmt.Errorf("%w: maximum donation amount is %s", domain.ErrInvalidAmount, domain.FormatMajor(s.maxAmount))
	}
	return nil
}

func normalizePage(p domain.Page) domain.Page {
	return p.Normalize(defaultPageSize, maxPageSize)
}

package funding

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecofund/internal/adapter/memory"
	"ecofund/internal/domain"
	"ecofund/internal/payment"
)

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeProvider struct {
	mu        sync.Mutex
	sessions  map[string]*payment.Session
	requests  []payment.CheckoutRequest
	createErr error
	lookups   int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{sessions: map[string]*payment.Session{}}
}

func (f *fakeProvider) CreateSession(ctx context.Context, req payment.CheckoutRequest) (*payment.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.createErr != nil {
		return nil, f.createErr
	}
	id := fmt.Sprintf("cs_test_%d", len(f.requests))
	s := &payment.Session{
		ID:            id,
		URL:           "https://checkout.test/" + id,
		PaymentStatus: payment.PaymentStatusUnpaid,
		AmountTotal:   req.Amount,
		Currency:      req.Currency,
		Metadata: map[string]string{
			payment.MetaCampaignID: req.CampaignID,
			payment.MetaUserID:     req.UserID,
		},
	}
	f.sessions[id] = s
	return s, nil
}

func (f *fakeProvider) RetrieveSession(ctx context.Context, sessionID string) (*payment.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	s, ok := f.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: no such session %s", domain.ErrNotFound, sessionID)
	}
	out := *s
	return &out, nil
}

// paid registers a completed provider session for campaignID.
func (f *fakeProvider) paid(sessionID, campaignID string, amount int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[sessionID] = &payment.Session{
		ID:              sessionID,
		PaymentStatus:   payment.PaymentStatusPaid,
		AmountTotal:     amount,
		Currency:        "USD",
		PaymentIntentID: "pi_" + sessionID,
		CustomerEmail:   "payer@example.com",
		CustomerName:    "Pat Payer",
		Metadata: map[string]string{
			payment.MetaCampaignID: campaignID,
			payment.MetaUserID:     "user-" + sessionID,
		},
	}
}

type fixture struct {
	svc      *Service
	store    *memory.Store
	provider *fakeProvider
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	provider := newFakeProvider()
	svc, err := NewService(store.Campaigns(), store.Donations(), store.WebhookEvents(), provider, zerolog.Nop(), Options{
		ClientURL: "https://eco.example.com/",
		Now:       func() time.Time { return testNow },
	})
	require.NoError(t, err)
	return &fixture{svc: svc, store: store, provider: provider}
}

func (f *fixture) campaign(t *testing.T, mutate func(*CampaignInput)) *domain.Campaign {
	t.Helper()
	in := CampaignInput{
		Title:      "Restore the Mangroves",
		Category:   "reforestation",
		GoalAmount: 100_000,
		StartDate:  testNow.Add(-24 * time.Hour),
		EndDate:    testNow.Add(30 * 24 * time.Hour),
		Organizer:  "Coastal Trust",
	}
	if mutate != nil {
		mutate(&in)
	}
	c, err := f.svc.CreateCampaign(context.Background(), Actor{UserID: "admin-1", Admin: true}, in)
	require.NoError(t, err)
	return c
}

// assertAggregate checks the cached totals against the stored donations.
func (f *fixture) assertAggregate(t *testing.T, campaignID string) *domain.Campaign {
	t.Helper()
	ctx := context.Background()
	c, err := f.store.Campaigns().GetByID(ctx, campaignID)
	require.NoError(t, err)
	all, _, err := f.store.Donations().ListByCampaign(ctx, campaignID, "", domain.Page{Number: 1, Size: 10_000})
	require.NoError(t, err)

	var (
		want   int64
		donors int
	)
	for _, d := range all {
		if d.Status == domain.DonationStatusCompleted {
			want += d.Amount - d.RefundAmount
			donors++
		}
	}
	assert.Equal(t, want, c.CurrentAmount, "current amount")
	assert.Equal(t, donors, c.DonorCount, "donor count")
	return c
}

func TestCheckoutAmountBounds(t *testing.T) {
	f := newFixture(t)
	c := f.campaign(t, nil)
	ctx := context.Background()

	_, err := f.svc.InitiateCheckout(ctx, CheckoutInput{CampaignID: c.ID, Amount: 49, UserID: "u-1"})
	require.ErrorIs(t, err, domain.ErrInvalidAmount)
	assert.Empty(t, f.provider.requests)

	res, err := f.svc.InitiateCheckout(ctx, CheckoutInput{CampaignID: c.ID, Amount: 50, UserID: "u-1", PayerEmail: "u1@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", res.SessionID)
	assert.Equal(t, "https://checkout.test/cs_test_1", res.RedirectURL)

	_, err = f.svc.InitiateCheckout(ctx, CheckoutInput{CampaignID: c.ID, Amount: domain.MaxDonationAmount + 1, UserID: "u-1"})
	require.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestCheckoutSessionRequest(t *testing.T) {
	f := newFixture(t)
	c := f.campaign(t, nil)

	_, err := f.svc.InitiateCheckout(context.Background(), CheckoutInput{
		CampaignID: c.ID, Amount: 2_500, UserID: "u-1", PayerEmail: " u1@example.com ",
	})
	require.NoError(t, err)
	require.Len(t, f.provider.requests, 1)

	req := f.provider.requests[0]
	assert.Equal(t, c.ID, req.CampaignID)
	assert.Equal(t, "u-1", req.UserID)
	assert.Equal(t, int64(2_500), req.Amount)
	assert.Equal(t, "USD", req.Currency)
	assert.Equal(t, "Donation to Restore the Mangroves", req.Name)
	assert.Equal(t, "u1@example.com", req.PayerEmail)
	assert.Equal(t, "https://eco.example.com/payment-success?session_id={CHECKOUT_SESSION_ID}&campaign_id="+c.ID, req.SuccessURL)
	assert.Equal(t, "https://eco.example.com/campaigns/"+c.ID, req.CancelURL)
}

func TestCheckoutRejectsCampaignsNotAcceptingDonations(t *testing.T) {
	f := newFixture(t)
	paused := f.campaign(t, func(in *CampaignInput) { in.Status = domain.CampaignStatusPaused })
	ended := f.campaign(t, func(in *CampaignInput) {
		in.StartDate = testNow.Add(-60 * 24 * time.Hour)
		in.EndDate = testNow.Add(-time.Hour)
	})

	for name, id := range map[string]string{"paused": paused.ID, "ended": ended.ID} {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.InitiateCheckout(context.Background(), CheckoutInput{CampaignID: id, Amount: 1_000, UserID: "u-1"})
			require.ErrorIs(t, err, domain.ErrInvalidState)
		})
	}

	_, err := f.svc.InitiateCheckout(context.Background(), CheckoutInput{CampaignID: "missing", Amount: 1_000, UserID: "u-1"})
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, f.provider.requests)
}

func TestCheckoutSurfacesProviderFailure(t *testing.T) {
	f := newFixture(t)
	c := f.campaign(t, nil)
	f.provider.createErr = fmt.Errorf("%w: stripe 500", domain.ErrUpstreamFailure)

	_, err := f.svc.InitiateCheckout(context.Background(), CheckoutInput{CampaignID: c.ID, Amount: 1_000, UserID: "u-1"})
	require.ErrorIs(t, err, domain.ErrUpstreamFailure)
	assert.Len(t, f.provider.requests, 1, "checkout is not retried")
}

func TestReconcileUnpaidSessionCreatesNothing(t *testing.T) {
	f := newFixture(t)
	c := f.campaign(t, nil)
	ctx := context.Background()

	res, err := f.svc.InitiateCheckout(ctx, CheckoutInput{CampaignID: c.ID, Amount: 1_000, UserID: "u-1"})
	require.NoError(t, err)

	_, err = f.svc.Reconcile(ctx, ReconcileInput{Actor: SystemActor, SessionID: res.SessionID})
	require.ErrorIs(t, err, domain.ErrNotPaid)

	_, err = f.store.Donations().GetBySessionID(ctx, res.SessionID)
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, int64(0), f.assertAggregate(t, c.ID).CurrentAmount)
}

func TestReconcileUnknownSession(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Reconcile(context.Background(), ReconcileInput{Actor: SystemActor, SessionID: "cs_missing"})
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.Reconcile(context.Background(), ReconcileInput{Actor: SystemActor, SessionID: " "})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestReconcileTwiceRecordsOneDonation(t *testing.T) {
	f := newFixture(t)
	c := f.campaign(t, nil)
	ctx := context.Background()
	f.provider.paid("cs_paid", c.ID, 30_000)

	first, err := f.svc.Reconcile(ctx, ReconcileInput{Actor: SystemActor, SessionID: "cs_paid", Client: domain.DonationMetadata{Country: "ID"}})
	require.NoError(t, err)
	assert.False(t, first.Replayed)
	assert.Equal(t, domain.DonationStatusCompleted, first.Donation.Status)
	assert.Equal(t, int64(30_000), first.Donation.Amount)
	assert.Equal(t, "user-cs_paid", first.Donation.UserID)
	assert.Equal(t, "pi_cs_paid", *first.Donation.ExternalPaymentIntentID)
	assert.Regexp(t, `^txn_\d+_[0-9a-f]{16}$`, first.Donation.TransactionID)
	assert.Regexp(t, `^rcpt_\d+_[0-9a-f]{12}$`, first.Donation.ReceiptID)
	assert.Equal(t, "ID", first.Donation.Metadata.Country)
	require.NotNil(t, first.Donation.ProcessedAt)

	second, err := f.svc.Reconcile(ctx, ReconcileInput{Actor: SystemActor, SessionID: "cs_paid"})
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.Donation, second.Donation)

	all, total, err := f.store.Donations().ListByCampaign(ctx, c.ID, "", domain.Page{Number: 1, Size: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, all, 1)
	agg := f.assertAggregate(t, c.ID)
	assert.Equal(t, int64(30_000), agg.CurrentAmount)
	assert.Equal(t, 1, agg.DonorCount)
}

func TestReconcileOnlyForPayer(t *testing.T) {
	f := newFixture(t)
	c := f.campaign(t, nil)
	ctx := context.Background()
	f.provider.paid("cs_mine", c.ID, 12_000)

	tests := []struct {
		name  string
		actor Actor
		want  error
	}{
		{name: "other user before reconcile", actor: Actor{UserID: "user-x"}, want: domain.ErrForbidden},
		{name: "anonymous", actor: Actor{}, want: domain.ErrForbidden},
		{name: "payer", actor: Actor{UserID: "user-cs_mine"}},
		{name: "other user on replay", actor: Actor{UserID: "user-x"}, want: domain.ErrForbidden},
		{name: "admin", actor: Actor{UserID: "admin-1", Admin: true}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := f.svc.Reconcile(ctx, ReconcileInput{SessionID: "cs_mine", Actor: tc.actor})
			if tc.want != nil {
				require.ErrorIs(t, err, tc.want)
				assert.Nil(t, res)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "user-cs_mine", res.Donation.UserID)
		})
	}

	all, total, err := f.store.Donations().ListByCampaign(ctx, c.ID, "", domain.Page{Number: 1, Size: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, all, 1)
}

func TestConcurrentReconcileOfOneSession(t *testing.T) {
	f := newFixture(t)
	c := f.campaign(t, nil)
	f.provider.paid("cs_race", c.ID, 12_345)

	const callers = 24
	var (
		wg      sync.WaitGroup
		results = make([]*ReconcileResult, callers)
		errs    = make([]error, callers)
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.svc.Reconcile(context.Background(), ReconcileInput{Actor: SystemActor, SessionID: "cs_race"})
		}(i)
	}
	wg.Wait()

	fresh := 0
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0].Donation, results[i].Donation)
		if !results[i].Replayed {
			fresh++
		}
	}
	assert.Equal(t, 1, fresh)

	_, total, err := f.store.Donations().ListByCampaign(context.Background(), c.ID, "", domain.Page{Number: 1, Size: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	agg := f.assertAggregate(t, c.ID)
	assert.Equal(t, int64(12_345), agg.CurrentAmount)
}

func TestReconcileRegeneratesCollidingIDs(t *testing.T) {
	f := newFixture(t)
	c := f.campaign(t, nil)
	ctx := context.Background()

	calls := 0
	f.svc.newIDs = func(now time.Time) (string, string) {
		calls++
		if calls <= 2 {
			return "txn_fixed", "rcpt_fixed"
		}
		return NewDonationIDs(now)
	}
	f.provider.paid("cs_a", c.ID, 1_000)
	f.provider.paid("cs_b", c.ID, 2_000)

	_, err := f.svc.Reconcile(ctx, ReconcileInput{Actor: SystemActor, SessionID: "cs_a"})
	require.NoError(t, err)
	res, err := f.svc.Reconcile(ctx, ReconcileInput{Actor: SystemActor, SessionID: "cs_b"})
	require.NoError(t, err)
	assert.NotEqual(t, "txn_fixed", res.Donation.TransactionID)
	assert.Equal(t, 3, calls)
	assert.Equal(t, int64(3_000), f.assertAggregate(t, c.ID).CurrentAmount)
}

func TestScenarioTwoDonationsProgress(t *testing.T) {
	f := newFixture(t)
	c := f.campaign(t, nil)
	ctx := context.Background()
	f.provider.paid("cs_300", c.ID, 30_000)
	f.provider.paid("cs_250", c.ID, 25_000)

	_, err := f.svc.Reconcile(ctx, ReconcileInput{Actor: SystemActor, SessionID: "cs_300"})
	require.NoError(t, err)
	res, err := f.svc.Reconcile(ctx, ReconcileInput{Actor: SystemActor, SessionID: "cs_250"})
	require.NoError(t, err)

	assert.Equal(t, int64(55_000), res.Campaign.CurrentAmount)
	assert.Equal(t, 2, res.Campaign.DonorCount)
	assert.Equal(t, 55, res.Campaign.ProgressPercentage())
}

func TestScenarioPartialRefund(t *testing.T) {
	f := newFixture(t)
	c := f.campaign(t, nil)
	ctx := context.Background()
	f.provider.paid("cs_100", c.ID, 10_000)
	f.provider.paid("cs_other", c.ID, 5_000)

	res, err := f.svc.Reconcile(ctx, ReconcileInput{Actor: SystemActor, SessionID: "cs_100"})
	require.NoError(t, err)
	before, err := f.svc.Reconcile(ctx, ReconcileInput{Actor: SystemActor, SessionID: "cs_other"})
	require.NoError(t, err)
	require.Equal(t, int64(15_000), before.Campaign.CurrentAmount)

	after, err := f.svc.Refund(ctx, res.Donation.ID, 4_000, "partial")
	require.NoError(t, err)
	assert.Equal(t, domain.DonationStatusCompleted, after.Donation.Status)
	assert.Equal(t, int64(6_000), after.Donation.NetAmount())
	assert.Equal(t, int64(11_000), after.Campaign.CurrentAmount)
	assert.Equal(t, 2, after.Campaign.DonorCount)

	_, err = f.svc.Refund(ctx, res.Donation.ID, 6_001, "too much")
	require.ErrorIs(t, err, domain.ErrInvalidAmount)

	full, err := f.svc.Refund(ctx, res.Donation.ID, 6_000, "rest")
	require.NoError(t, err)
	assert.Equal(t, domain.DonationStatusRefunded, full.Donation.Status)
	assert.Equal(t, int64(5_000), full.Campaign.CurrentAmount)
	assert.Equal(t, 1, full.Campaign.DonorCount)

	_, err = f.svc.Refund(ctx, res.Donation.ID, 1, "again")
	require.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestChangeStatusFollowsStateMachine(t *testing.T) {
	f := newFixture(t)
	c := f.campaign(t, nil)
	ctx := context.Background()

	pledge, err := f.svc.RecordPledge(ctx, PledgeInput{CampaignID: c.ID, UserID: "u-1", Amount: 7_500, DonorName: "Ana"})
	require.NoError(t, err)
	assert.Equal(t, domain.DonationStatusPending, pledge.Status)
	assert.Equal(t, domain.PaymentMethodBankTransfer, pledge.PaymentMethod)
	assert.Equal(t, int64(0), f.assertAggregate(t, c.ID).CurrentAmount)

	done, err := f.svc.ChangeStatus(ctx, pledge.ID, domain.DonationStatusCompleted)
	require.NoError(t, err)
	require.NotNil(t, done.Campaign)
	assert.Equal(t, int64(7_500), done.Campaign.CurrentAmount)
	require.NotNil(t, done.Donation.ProcessedAt)

	_, err = f.svc.ChangeStatus(ctx, pledge.ID, domain.DonationStatusPending)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = f.svc.ChangeStatus(ctx, pledge.ID, domain.DonationStatusFailed)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	refunded, err := f.svc.ChangeStatus(ctx, pledge.ID, domain.DonationStatusRefunded)
	require.NoError(t, err)
	assert.Equal(t, int64(7_500), refunded.Donation.RefundAmount)
	assert.Equal(t, int64(0), refunded.Campaign.CurrentAmount)

	_, err = f.svc.ChangeStatus(ctx, pledge.ID, domain.DonationStatusCompleted)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	failed, err := f.svc.RecordPledge(ctx, PledgeInput{CampaignID: c.ID, UserID: "u-2", Amount: 1_000})
	require.NoError(t, err)
	res, err := f.svc.ChangeStatus(ctx, failed.ID, domain.DonationStatusFailed)
	require.NoError(t, err)
	assert.Nil(t, res.Campaign, "pending to failed does not touch aggregates")
	_, err = f.svc.ChangeStatus(ctx, failed.ID, domain.DonationStatusRefunded)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestRefundByPaymentIntentIsIdempotent(t *testing.T) {
	f := newFixture(t)
	c := f.campaign(t, nil)
	ctx := context.Background()
	f.provider.paid("cs_r", c.ID, 10_000)
	_, err := f.svc.Reconcile(ctx, ReconcileInput{Actor: SystemActor, SessionID: "cs_r"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		res, err := f.svc.RefundByPaymentIntent(ctx, "pi_cs_r", 4_000)
		require.NoError(t, err)
		assert.Equal(t, int64(4_000), res.Donation.RefundAmount)
	}
	assert.Equal(t, int64(6_000), f.assertAggregate(t, c.ID).CurrentAmount)

	res, err := f.svc.RefundByPaymentIntent(ctx, "pi_cs_r", 10_000)
	require.NoError(t, err)
	assert.Equal(t, domain.DonationStatusRefunded, res.Donation.Status)
	assert.Equal(t, int64(0), f.assertAggregate(t, c.ID).CurrentAmount)

	_, err = f.svc.RefundByPaymentIntent(ctx, "pi_unknown", 100)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAggregateInvariantUnderRandomOperations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	campaigns := []*domain.Campaign{f.campaign(t, nil), f.campaign(t, nil)}
	rng := rand.New(rand.NewSource(42))

	var donations []string
	for step := 0; step < 200; step++ {
		c := campaigns[rng.Intn(len(campaigns))]
		switch op := rng.Intn(5); {
		case op == 0 || len(donations) == 0:
			session := fmt.Sprintf("cs_%d", step)
			f.provider.paid(session, c.ID, int64(50+rng.Intn(50_000)))
			res, err := f.svc.Reconcile(ctx, ReconcileInput{Actor: SystemActor, SessionID: session})
			require.NoError(t, err)
			donations = append(donations, res.Donation.ID)
		case op == 1:
			d, err := f.svc.RecordPledge(ctx, PledgeInput{CampaignID: c.ID, UserID: "u", Amount: int64(50 + rng.Intn(9_000))})
			require.NoError(t, err)
			donations = append(donations, d.ID)
		case op == 2:
			id := donations[rng.Intn(len(donations))]
			_, _ = f.svc.Refund(ctx, id, int64(1+rng.Intn(5_000)), "random")
		case op == 3:
			id := donations[rng.Intn(len(donations))]
			to := []domain.DonationStatus{
				domain.DonationStatusCompleted, domain.DonationStatusFailed, domain.DonationStatusRefunded,
			}[rng.Intn(3)]
			_, _ = f.svc.ChangeStatus(ctx, id, to)
		default:
			_, err := f.svc.Reconcile(ctx, ReconcileInput{Actor: SystemActor, SessionID: fmt.Sprintf("cs_%d", rng.Intn(step+1))})
			if err != nil {
				require.ErrorIs(t, err, domain.ErrNotFound)
			}
		}
		for _, c := range campaigns {
			f.assertAggregate(t, c.ID)
		}
	}

	res, err := f.svc.RecomputeAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Recomputed)
	assert.Empty(t, res.Failed)
}

func TestRecomputeUnknownCampaign(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Recompute(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

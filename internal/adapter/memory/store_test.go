package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecofund/internal/domain"
)

var (
	_ domain.CampaignRepository     = (*CampaignRepository)(nil)
	_ domain.DonationRepository     = (*DonationRepository)(nil)
	_ domain.WebhookEventRepository = (*WebhookEventRepository)(nil)
)

func seedCampaign(t *testing.T, s *Store, title string) *domain.Campaign {
	t.Helper()
	c := &domain.Campaign{
		Title:      title,
		Category:   "reforestation",
		GoalAmount: 100_000,
		Currency:   "USD",
		Status:     domain.CampaignStatusActive,
		StartDate:  time.Now().Add(-time.Hour),
		EndDate:    time.Now().Add(24 * time.Hour),
	}
	require.NoError(t, s.Campaigns().Create(context.Background(), c))
	return c
}

func donation(campaignID string, n int, status domain.DonationStatus, amount int64) *domain.Donation {
	session := fmt.Sprintf("cs_%d", n)
	return &domain.Donation{
		CampaignID:        campaignID,
		UserID:            fmt.Sprintf("user-%d", n%3),
		Amount:            amount,
		Currency:          "USD",
		Status:            status,
		PaymentMethod:     domain.PaymentMethodStripe,
		ExternalSessionID: &session,
		TransactionID:     fmt.Sprintf("txn_%d", n),
		ReceiptID:         fmt.Sprintf("rcpt_%d", n),
	}
}

func TestCreateDonationEnforcesUniqueness(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	c := seedCampaign(t, s, "Reef")

	require.NoError(t, s.Donations().Create(ctx, donation(c.ID, 1, domain.DonationStatusCompleted, 1000)))

	dup := donation(c.ID, 1, domain.DonationStatusCompleted, 1000)
	require.ErrorIs(t, s.Donations().Create(ctx, dup), domain.ErrAlreadyProcessed)

	sameTxn := donation(c.ID, 2, domain.DonationStatusCompleted, 1000)
	sameTxn.TransactionID = "txn_1"
	require.ErrorIs(t, s.Donations().Create(ctx, sameTxn), domain.ErrDuplicateOperation)

	orphan := donation("missing", 3, domain.DonationStatusCompleted, 1000)
	require.ErrorIs(t, s.Donations().Create(ctx, orphan), domain.ErrNotFound)
}

func TestConcurrentCreateForOneSessionStoresOneRow(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	c := seedCampaign(t, s, "Reef")

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d := donation(c.ID, 100+i, domain.DonationStatusCompleted, 500)
			session := "cs_shared"
			d.ExternalSessionID = &session
			if err := s.Donations().Create(ctx, d); err == nil {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, created)
}

func TestRecomputeTotalsCountsCompletedNetOfRefunds(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	c := seedCampaign(t, s, "Reef")

	require.NoError(t, s.Donations().Create(ctx, donation(c.ID, 1, domain.DonationStatusCompleted, 30_000)))
	d2 := donation(c.ID, 2, domain.DonationStatusCompleted, 10_000)
	require.NoError(t, s.Donations().Create(ctx, d2))
	require.NoError(t, s.Donations().Create(ctx, donation(c.ID, 3, domain.DonationStatusPending, 99_000)))
	require.NoError(t, s.Donations().UpdateRefund(ctx, d2.ID, 0, 4_000, domain.DonationStatusCompleted, "partial"))

	got, err := s.Campaigns().RecomputeTotals(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(36_000), got.CurrentAmount)
	assert.Equal(t, 2, got.DonorCount)

	_, err = s.Campaigns().RecomputeTotals(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateRefundIsCompareAndSet(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	c := seedCampaign(t, s, "Reef")
	d := donation(c.ID, 1, domain.DonationStatusCompleted, 10_000)
	require.NoError(t, s.Donations().Create(ctx, d))

	require.NoError(t, s.Donations().UpdateRefund(ctx, d.ID, 0, 2_000, domain.DonationStatusCompleted, ""))
	require.ErrorIs(t, s.Donations().UpdateRefund(ctx, d.ID, 0, 3_000, domain.DonationStatusCompleted, ""), domain.ErrConflict)
	require.NoError(t, s.Donations().UpdateRefund(ctx, d.ID, 2_000, 10_000, domain.DonationStatusRefunded, "full"))

	stored, err := s.Donations().GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DonationStatusRefunded, stored.Status)
	assert.Equal(t, "full", stored.RefundReason)
}

func TestDeleteCampaignGuard(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	guarded := seedCampaign(t, s, "Guarded")
	require.NoError(t, s.Donations().Create(ctx, donation(guarded.ID, 1, domain.DonationStatusCompleted, 1000)))
	require.ErrorIs(t, s.Campaigns().Delete(ctx, guarded.ID), domain.ErrInvalidState)

	free := seedCampaign(t, s, "Free")
	pending := donation(free.ID, 2, domain.DonationStatusPending, 1000)
	require.NoError(t, s.Donations().Create(ctx, pending))
	require.NoError(t, s.Campaigns().Delete(ctx, free.ID))

	_, err := s.Donations().GetByID(ctx, pending.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.Donations().GetBySessionID(ctx, "cs_2")
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.ErrorIs(t, s.Campaigns().Delete(ctx, free.ID), domain.ErrNotFound)
}

func TestCampaignUpdatesNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	clock := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return clock })
	c := seedCampaign(t, s, "Wetlands")

	for i := 1; i <= 3; i++ {
		clock = clock.Add(time.Hour)
		u := &domain.CampaignUpdate{CampaignID: c.ID, Title: fmt.Sprintf("week %d", i), Content: "progress"}
		require.NoError(t, s.Campaigns().AddUpdate(ctx, u))
		assert.Equal(t, clock, u.PostedAt)
	}
	stored, err := s.Campaigns().GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, clock, stored.UpdatedAt)

	updates, err := s.Campaigns().ListUpdates(ctx, c.ID, 2)
	require.NoError(t, err)
	require.Len(t, updates, 2)
	assert.Equal(t, "week 3", updates[0].Title)
	assert.Equal(t, "week 2", updates[1].Title)

	require.ErrorIs(t, s.Campaigns().AddUpdate(ctx, &domain.CampaignUpdate{CampaignID: "missing"}), domain.ErrNotFound)
	require.NoError(t, s.Campaigns().Delete(ctx, c.ID))
	updates, err = s.Campaigns().ListUpdates(ctx, c.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, updates)
}

func TestListCampaignsFiltersAndPaginates(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	for _, title := range []string{"Kelp Forest", "Solar Village", "Kelp Nursery"} {
		seedCampaign(t, s, title)
	}

	items, total, err := s.Campaigns().List(ctx, domain.CampaignFilter{
		Search:   "kelp",
		SortDesc: true,
		Page:     domain.Page{Number: 1, Size: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, items, 1)
	assert.Equal(t, "Kelp Nursery", items[0].Title)

	items, _, err = s.Campaigns().List(ctx, domain.CampaignFilter{SortBy: "title", Page: domain.Page{Number: 2, Size: 2}})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Solar Village", items[0].Title)
}

func TestWebhookEventsClaimOnceAndRetryFailures(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return now })
	events := s.WebhookEvents()

	e := &domain.WebhookEvent{Provider: "stripe", ProviderEventID: "evt_1", EventType: "charge.refunded", Payload: []byte(`{}`)}
	stored, err := events.Save(ctx, e)
	require.NoError(t, err)
	require.True(t, stored)
	stored, err = events.Save(ctx, &domain.WebhookEvent{Provider: "stripe", ProviderEventID: "evt_1"})
	require.NoError(t, err)
	require.False(t, stored)

	claimed, err := events.Claim(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, claimed.Attempts)
	_, err = events.Claim(ctx)
	require.ErrorIs(t, err, domain.ErrNotFound)

	for attempt := 1; attempt < domain.MaxWebhookAttempts; attempt++ {
		require.NoError(t, events.MarkDone(ctx, claimed.ID, domain.WebhookEventFailed, "boom"))
		_, err = events.Claim(ctx)
		require.ErrorIs(t, err, domain.ErrNotFound, "failed events wait before retrying")
		now = now.Add(domain.WebhookRetryDelay)
		claimed, err = events.Claim(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, domain.MaxWebhookAttempts, claimed.Attempts)
	require.NoError(t, events.MarkDone(ctx, claimed.ID, domain.WebhookEventFailed, "boom"))
	now = now.Add(time.Hour)
	_, err = events.Claim(ctx)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

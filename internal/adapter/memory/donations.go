package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"ecofund/internal/domain"
)

// DonationRepository implements domain.DonationRepository in memory.
type DonationRepository struct {
	s *Store
}

func (r *DonationRepository) Create(ctx context.Context, d *domain.Donation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if d.ID == "" {
		d.ID = newID()
	}
	if _, ok := r.s.campaigns[d.CampaignID]; !ok {
		return fmt.Errorf("%w: campaign %s", domain.ErrNotFound, d.CampaignID)
	}
	if d.ExternalSessionID != nil {
		if _, ok := r.s.bySession[*d.ExternalSessionID]; ok {
			return fmt.Errorf("%w: session %s", domain.ErrAlreadyProcessed, *d.ExternalSessionID)
		}
	}
	if _, ok := r.s.donations[d.ID]; ok {
		return fmt.Errorf("%w: donation %s", domain.ErrDuplicateOperation, d.ID)
	}
	if _, ok := r.s.byTransaction[d.TransactionID]; ok {
		return fmt.Errorf("%w: transaction %s", domain.ErrDuplicateOperation, d.TransactionID)
	}
	if _, ok := r.s.byReceipt[d.ReceiptID]; ok {
		return fmt.Errorf("%w: receipt %s", domain.ErrDuplicateOperation, d.ReceiptID)
	}

	now := r.s.now()
	d.CreatedAt = now
	d.UpdatedAt = now
	d.RefundAmount = 0
	d.RefundReason = ""
	stored := cloneDonation(d)
	r.s.donations[d.ID] = stored
	if d.ExternalSessionID != nil {
		r.s.bySession[*d.ExternalSessionID] = d.ID
	}
	r.s.byTransaction[d.TransactionID] = d.ID
	r.s.byReceipt[d.ReceiptID] = d.ID
	return nil
}

// dropDonation removes a donation and its index entries. Caller holds s.mu.
func (s *Store) dropDonation(id string) {
	d, ok := s.donations[id]
	if !ok {
		return
	}
	if d.ExternalSessionID != nil {
		delete(s.bySession, *d.ExternalSessionID)
	}
	delete(s.byTransaction, d.TransactionID)
	delete(s.byReceipt, d.ReceiptID)
	delete(s.donations, id)
}

func (r *DonationRepository) GetByID(ctx context.Context, id string) (*domain.Donation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	d, ok := r.s.donations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneDonation(d), nil
}

func (r *DonationRepository) GetBySessionID(ctx context.Context, sessionID string) (*domain.Donation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	id, ok := r.s.bySession[sessionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneDonation(r.s.donations[id]), nil
}

func (r *DonationRepository) GetByPaymentIntentID(ctx context.Context, paymentIntentID string) (*domain.Donation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var found *domain.Donation
	for _, d := range r.s.donations {
		if d.ExternalPaymentIntentID == nil || *d.ExternalPaymentIntentID != paymentIntentID {
			continue
		}
		if found == nil || d.CreatedAt.Before(found.CreatedAt) {
			found = d
		}
	}
	if found == nil {
		return nil, domain.ErrNotFound
	}
	return cloneDonation(found), nil
}

func (r *DonationRepository) UpdateStatus(ctx context.Context, id string, from, to domain.DonationStatus, processedAt *time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	d, ok := r.s.donations[id]
	if !ok || d.Status != from {
		return fmt.Errorf("%w: donation %s is no longer %s", domain.ErrConflict, id, from)
	}
	d.Status = to
	if d.ProcessedAt == nil && processedAt != nil {
		v := *processedAt
		d.ProcessedAt = &v
	}
	d.UpdatedAt = r.s.now()
	return nil
}

func (r *DonationRepository) UpdateRefund(ctx context.Context, id string, prevRefund, refund int64, status domain.DonationStatus, reason string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	d, ok := r.s.donations[id]
	if !ok || d.Status != domain.DonationStatusCompleted || d.RefundAmount != prevRefund {
		return fmt.Errorf("%w: donation %s changed concurrently", domain.ErrConflict, id)
	}
	if refund < 0 || refund > d.Amount {
		return fmt.Errorf("%w: refund %d outside 0..%d", domain.ErrInvalidAmount, refund, d.Amount)
	}
	d.RefundAmount = refund
	d.Status = status
	if reason != "" {
		d.RefundReason = reason
	}
	d.UpdatedAt = r.s.now()
	return nil
}

func (r *DonationRepository) ListByUser(ctx context.Context, userID string, page domain.Page) ([]domain.Donation, int, error) {
	return r.list(func(d *domain.Donation) bool { return d.UserID == userID }, page)
}

func (r *DonationRepository) ListByCampaign(ctx context.Context, campaignID string, status domain.DonationStatus, page domain.Page) ([]domain.Donation, int, error) {
	return r.list(func(d *domain.Donation) bool {
		return d.CampaignID == campaignID && (status == "" || d.Status == status)
	}, page)
}

func (r *DonationRepository) list(keep func(*domain.Donation) bool, page domain.Page) ([]domain.Donation, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var matched []domain.Donation
	for _, d := range r.s.donations {
		if keep(d) {
			matched = append(matched, *cloneDonation(d))
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return paginate(matched, page), len(matched), nil
}

func (r *DonationRepository) Stats(ctx context.Context, filter domain.DonationStatsFilter) (*domain.DonationStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stats := &domain.DonationStats{}
	donors := map[string]struct{}{}
	byMethod := map[domain.PaymentMethod]*domain.MethodTotal{}
	byDay := map[string]*domain.DailyTotal{}
	for _, d := range r.s.donations {
		if d.Status != domain.DonationStatusCompleted {
			continue
		}
		if filter.CampaignID != "" && d.CampaignID != filter.CampaignID {
			continue
		}
		if filter.Since != nil && d.CreatedAt.Before(*filter.Since) {
			continue
		}
		net := d.NetAmount()
		stats.TotalDonations++
		stats.TotalAmount += net
		donors[d.UserID] = struct{}{}

		mt, ok := byMethod[d.PaymentMethod]
		if !ok {
			mt = &domain.MethodTotal{Method: d.PaymentMethod}
			byMethod[d.PaymentMethod] = mt
		}
		mt.Count++
		mt.TotalAmount += net

		day := d.CreatedAt.UTC().Format("2006-01-02")
		dt, ok := byDay[day]
		if !ok {
			dt = &domain.DailyTotal{Day: day}
			byDay[day] = dt
		}
		dt.Count++
		dt.TotalAmount += net
	}
	stats.UniqueDonors = len(donors)
	if stats.TotalDonations > 0 {
		stats.AverageDonation = stats.TotalAmount / int64(stats.TotalDonations)
	}
	for _, mt := range byMethod {
		stats.ByPaymentMethod = append(stats.ByPaymentMethod, *mt)
	}
	sort.Slice(stats.ByPaymentMethod, func(i, j int) bool {
		a, b := stats.ByPaymentMethod[i], stats.ByPaymentMethod[j]
		if a.TotalAmount != b.TotalAmount {
			return a.TotalAmount > b.TotalAmount
		}
		return a.Method < b.Method
	})
	for _, dt := range byDay {
		stats.Daily = append(stats.Daily, *dt)
	}
	sort.Slice(stats.Daily, func(i, j int) bool { return stats.Daily[i].Day < stats.Daily[j].Day })
	return stats, nil
}

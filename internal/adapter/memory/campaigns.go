package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"ecofund/internal/domain"
)

// CampaignRepository implements domain.CampaignRepository in memory.
type CampaignRepository struct {
	s *Store
}

func (r *CampaignRepository) Create(ctx context.Context, c *domain.Campaign) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if c.ID == "" {
		c.ID = newID()
	}
	if _, ok := r.s.campaigns[c.ID]; ok {
		return fmt.Errorf("%w: campaign %s", domain.ErrDuplicateOperation, c.ID)
	}
	now := r.s.now()
	c.CurrentAmount = 0
	c.DonorCount = 0
	c.CreatedAt = now
	c.UpdatedAt = now
	r.s.campaigns[c.ID] = cloneCampaign(c)
	return nil
}

func (r *CampaignRepository) Update(ctx context.Context, c *domain.Campaign) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.campaigns[c.ID]
	if !ok {
		return domain.ErrNotFound
	}
	next := cloneCampaign(c)
	next.CurrentAmount = stored.CurrentAmount
	next.DonorCount = stored.DonorCount
	next.Currency = stored.Currency
	next.CreatedBy = stored.CreatedBy
	next.CreatedAt = stored.CreatedAt
	next.UpdatedAt = r.s.now()
	r.s.campaigns[c.ID] = next

	c.CurrentAmount = next.CurrentAmount
	c.DonorCount = next.DonorCount
	c.UpdatedAt = next.UpdatedAt
	return nil
}

func (r *CampaignRepository) GetByID(ctx context.Context, id string) (*domain.Campaign, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.campaigns[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneCampaign(c), nil
}

func (r *CampaignRepository) List(ctx context.Context, filter domain.CampaignFilter) ([]domain.Campaign, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	var matched []domain.Campaign
	for _, c := range r.s.campaigns {
		if filter.Category != "" && c.Category != filter.Category {
			continue
		}
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		if filter.Featured != nil && c.Featured != *filter.Featured {
			continue
		}
		if filter.Urgent != nil && c.Urgent != *filter.Urgent {
			continue
		}
		if search != "" && !matchesSearch(c, search) {
			continue
		}
		matched = append(matched, *cloneCampaign(c))
	}

	less := campaignLess(filter.SortBy)
	sort.SliceStable(matched, func(i, j int) bool {
		if filter.SortDesc {
			return less(matched[j], matched[i])
		}
		return less(matched[i], matched[j])
	})
	return paginate(matched, filter.Page), len(matched), nil
}

func matchesSearch(c *domain.Campaign, needle string) bool {
	for _, field := range []string{c.Title, c.Description, c.ShortDescription, c.Location, c.Organizer} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

func campaignLess(sortBy string) func(a, b domain.Campaign) bool {
	switch sortBy {
	case "end_date":
		return func(a, b domain.Campaign) bool { return a.EndDate.Before(b.EndDate) }
	case "current_amount":
		return func(a, b domain.Campaign) bool { return a.CurrentAmount < b.CurrentAmount }
	case "goal_amount":
		return func(a, b domain.Campaign) bool { return a.GoalAmount < b.GoalAmount }
	case "title":
		return func(a, b domain.Campaign) bool { return a.Title < b.Title }
	}
	return func(a, b domain.Campaign) bool { return a.CreatedAt.Before(b.CreatedAt) }
}

func (r *CampaignRepository) ListIDs(ctx context.Context) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	items := make([]*domain.Campaign, 0, len(r.s.campaigns))
	for _, c := range r.s.campaigns {
		items = append(items, c)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.Before(items[j].CreatedAt) })
	ids := make([]string, len(items))
	for i, c := range items {
		ids[i] = c.ID
	}
	return ids, nil
}

func (r *CampaignRepository) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.campaigns[id]; !ok {
		return domain.ErrNotFound
	}
	var cascade []string
	for _, d := range r.s.donations {
		if d.CampaignID != id {
			continue
		}
		if d.Status == domain.DonationStatusCompleted || d.Status == domain.DonationStatusRefunded {
			return fmt.Errorf("%w: campaign has completed donations; cancel it instead", domain.ErrInvalidState)
		}
		cascade = append(cascade, d.ID)
	}
	for _, donationID := range cascade {
		r.s.dropDonation(donationID)
	}
	delete(r.s.campaigns, id)
	delete(r.s.updates, id)
	return nil
}

// RecomputeTotals rebuilds the cached aggregate under the store lock.
func (r *CampaignRepository) RecomputeTotals(ctx context.Context, id string) (*domain.Campaign, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.campaigns[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	var (
		total  int64
		donors int
	)
	for _, d := range r.s.donations {
		if d.CampaignID == id && d.Status == domain.DonationStatusCompleted {
			total += d.NetAmount()
			donors++
		}
	}
	if total < 0 {
		total = 0
	}
	c.CurrentAmount = total
	c.DonorCount = donors
	c.UpdatedAt = r.s.now()
	return cloneCampaign(c), nil
}

func (r *CampaignRepository) Stats(ctx context.Context) (*domain.CampaignStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stats := &domain.CampaignStats{}
	byCategory := map[string]*domain.CategoryTotal{}
	for _, c := range r.s.campaigns {
		stats.TotalCampaigns++
		if c.Status == domain.CampaignStatusActive {
			stats.ActiveCampaigns++
		}
		stats.TotalRaised += c.CurrentAmount
		stats.TotalDonors += c.DonorCount

		ct, ok := byCategory[c.Category]
		if !ok {
			ct = &domain.CategoryTotal{Category: c.Category}
			byCategory[c.Category] = ct
		}
		ct.Campaigns++
		ct.Raised += c.CurrentAmount
	}
	for _, ct := range byCategory {
		stats.ByCategory = append(stats.ByCategory, *ct)
	}
	sort.Slice(stats.ByCategory, func(i, j int) bool {
		a, b := stats.ByCategory[i], stats.ByCategory[j]
		if a.Raised != b.Raised {
			return a.Raised > b.Raised
		}
		return a.Category < b.Category
	})
	return stats, nil
}

func (r *CampaignRepository) AddUpdate(ctx context.Context, u *domain.CampaignUpdate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.campaigns[u.CampaignID]
	if !ok {
		return domain.ErrNotFound
	}
	if u.ID == "" {
		u.ID = newID()
	}
	now := r.s.now()
	u.PostedAt = now
	c.UpdatedAt = now
	r.s.updates[u.CampaignID] = append(r.s.updates[u.CampaignID], *u)
	return nil
}

func (r *CampaignRepository) ListUpdates(ctx context.Context, campaignID string, limit int) ([]domain.CampaignUpdate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if limit <= 0 {
		return nil, nil
	}
	stored := r.s.updates[campaignID]
	out := make([]domain.CampaignUpdate, 0, min(limit, len(stored)))
	for i := len(stored) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, stored[i])
	}
	return out, nil
}

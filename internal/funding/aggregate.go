package funding

import (
	"context"
	"fmt"
	"strings"

	"ecofund/internal/domain"
)

// Recompute rebuilds a campaign's current amount and donor count from its
// completed donations. Repeated or reordered calls converge on the same
// values.
func (s *Service) Recompute(ctx context.Context, campaignID string) (*domain.Campaign, error) {
	campaignID = strings.TrimSpace(campaignID)
	if campaignID == "" {
		return nil, fmt.Errorf("%w: campaign id is required", domain.ErrInvalidInput)
	}
	campaign, err := s.campaigns.RecomputeTotals(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("recompute campaign %s: %w", campaignID, err)
	}
	s.logger.Debug().
		Str("campaign_id", campaignID).
		Int64("current_amount", campaign.CurrentAmount).
		Int("donor_count", campaign.DonorCount).
		Msg("campaign totals recomputed")
	return campaign, nil
}

// RecomputeAllResult reports a bulk recompute.
type RecomputeAllResult struct {
	Recomputed int
	Failed     map[string]error
}

// RecomputeAll recomputes every campaign, continuing past individual failures.
func (s *Service) RecomputeAll(ctx context.Context) (*RecomputeAllResult, error) {
	ids, err := s.campaigns.ListIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	res := &RecomputeAllResult{Failed: map[string]error{}}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if _, err := s.Recompute(ctx, id); err != nil {
			s.logger.Error().Err(err).Str("campaign_id", id).Msg("recompute failed")
			res.Failed[id] = err
			continue
		}
		res.Recomputed++
	}
	return res, nil
}

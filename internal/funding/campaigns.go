package funding

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"ecofund/internal/domain"
)

const (
	recentDonationsShown = 10
	campaignUpdatesShown = 20
)

// Text limits, counted in characters.
const (
	maxTitleLen            = 100
	maxShortDescriptionLen = 200
	maxDescriptionLen      = 2000
	maxUpdateContentLen    = 2000
)

// CampaignInput carries the administrator-editable campaign fields.
type CampaignInput struct {
	Title            string
	ShortDescription string
	Description      string
	Category         string
	GoalAmount       int64
	Currency         string
	Status           domain.CampaignStatus
	StartDate        time.Time
	EndDate          time.Time
	Location         string
	Organizer        string
	OrganizerEmail   string
	ImageURL         string
	Featured         bool
	Urgent           bool
	Tags             []string
}

func (in CampaignInput) validate() error {
	switch {
	case strings.TrimSpace(in.Title) == "":
		return fmt.Errorf("%w: title is required", domain.ErrInvalidInput)
	case utf8.RuneCountInString(strings.TrimSpace(in.Title)) > maxTitleLen:
		return fmt.Errorf("%w: title must be at most %d characters", domain.ErrInvalidInput, maxTitleLen)
	case utf8.RuneCountInString(strings.TrimSpace(in.ShortDescription)) > maxShortDescriptionLen:
		return fmt.Errorf("%w: short description must be at most %d characters", domain.ErrInvalidInput, maxShortDescriptionLen)
	case utf8.RuneCountInString(strings.TrimSpace(in.Description)) > maxDescriptionLen:
		return fmt.Errorf("%w: description must be at most %d characters", domain.ErrInvalidInput, maxDescriptionLen)
	case !slices.Contains(domain.Categories, in.Category):
		return fmt.Errorf("%w: unknown category %q", domain.ErrInvalidInput, in.Category)
	case in.Status != "" && !in.Status.Valid():
		return fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, in.Status)
	case in.GoalAmount <= 0 || in.GoalAmount > domain.MaxGoalAmount:
		return fmt.Errorf("%w: goal must be between 0.01 and %s", domain.ErrInvalidAmount, domain.FormatMajor(domain.MaxGoalAmount))
	case in.EndDate.IsZero():
		return fmt.Errorf("%w: end date is required", domain.ErrInvalidInput)
	case !in.StartDate.IsZero() && !in.EndDate.After(in.StartDate):
		return fmt.Errorf("%w: end date must be after start date", domain.ErrInvalidInput)
	}
	return nil
}

func (in CampaignInput) apply(c *domain.Campaign) {
	c.Title = strings.TrimSpace(in.Title)
	c.ShortDescription = strings.TrimSpace(in.ShortDescription)
	c.Description = strings.TrimSpace(in.Description)
	c.Category = in.Category
	c.GoalAmount = in.GoalAmount
	c.Status = in.Status
	c.StartDate = in.StartDate
	c.EndDate = in.EndDate
	c.Location = strings.TrimSpace(in.Location)
	c.Organizer = strings.TrimSpace(in.Organizer)
	c.OrganizerEmail = strings.TrimSpace(in.OrganizerEmail)
	c.ImageURL = strings.TrimSpace(in.ImageURL)
	c.Featured = in.Featured
	c.Urgent = in.Urgent
	c.Tags = in.Tags
}

// CreateCampaign stores a new campaign authored by actor.
func (s *Service) CreateCampaign(ctx context.Context, actor Actor, in CampaignInput) (*domain.Campaign, error) {
	if in.StartDate.IsZero() {
		in.StartDate = s.now()
	}
	if in.Status == "" {
		in.Status = domain.CampaignStatusActive
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	currency := s.currency
	if in.Currency != "" {
		c, err := domain.NormalizeCurrency(in.Currency)
		if err != nil {
			return nil, err
		}
		currency = c
	}
	c := &domain.Campaign{Currency: currency, CreatedBy: actor.UserID}
	in.apply(c)
	if err := s.campaigns.Create(ctx, c); err != nil {
		return nil, err
	}
	s.logger.Info().Str("campaign_id", c.ID).Str("created_by", actor.UserID).Msg("campaign created")
	return c, nil
}

// UpdateCampaign rewrites the descriptive fields of a campaign. Currency and
// aggregates are kept.
func (s *Service) UpdateCampaign(ctx context.Context, id string, in CampaignInput) (*domain.Campaign, error) {
	c, err := s.campaigns.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.StartDate.IsZero() {
		in.StartDate = c.StartDate
	}
	if in.Status == "" {
		in.Status = c.Status
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	in.apply(c)
	if err := s.campaigns.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteCampaign removes a campaign with no completed or refunded donations.
func (s *Service) DeleteCampaign(ctx context.Context, id string) error {
	if err := s.campaigns.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("campaign_id", id).Msg("campaign deleted")
	return nil
}

// CampaignDetail is a campaign with its most recent completed donations and
// progress updates.
type CampaignDetail struct {
	Campaign        *domain.Campaign
	RecentDonations []domain.Donation
	Updates         []domain.CampaignUpdate
}

// GetCampaign returns a campaign and its latest completed donations.
func (s *Service) GetCampaign(ctx context.Context, id string) (*CampaignDetail, error) {
	c, err := s.campaigns.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	recent, _, err := s.donations.ListByCampaign(ctx, c.ID, domain.DonationStatusCompleted,
		domain.Page{Number: 1, Size: recentDonationsShown})
	if err != nil {
		return nil, err
	}
	for i := range recent {
		recent[i] = anonymize(recent[i])
	}
	updates, err := s.campaigns.ListUpdates(ctx, c.ID, campaignUpdatesShown)
	if err != nil {
		return nil, err
	}
	return &CampaignDetail{Campaign: c, RecentDonations: recent, Updates: updates}, nil
}

// CampaignUpdateInput is a progress note for a campaign.
type CampaignUpdateInput struct {
	Title    string
	Content  string
	ImageURL string
}

// AddCampaignUpdate posts a progress update on a campaign. Only
// administrators may post.
func (s *Service) AddCampaignUpdate(ctx context.Context, actor Actor, campaignID string, in CampaignUpdateInput) (*domain.CampaignUpdate, error) {
	if !actor.Admin {
		return nil, fmt.Errorf("%w: only administrators post campaign updates", domain.ErrForbidden)
	}
	u := &domain.CampaignUpdate{
		CampaignID: campaignID,
		Title:      strings.TrimSpace(in.Title),
		Content:    strings.TrimSpace(in.Content),
		ImageURL:   strings.TrimSpace(in.ImageURL),
		PostedBy:   actor.UserID,
	}
	switch {
	case u.Title == "" || u.Content == "":
		return nil, fmt.Errorf("%w: update title and content are required", domain.ErrInvalidInput)
	case utf8.RuneCountInString(u.Title) > maxTitleLen:
		return nil, fmt.Errorf("%w: title must be at most %d characters", domain.ErrInvalidInput, maxTitleLen)
	case utf8.RuneCountInString(u.Content) > maxUpdateContentLen:
		return nil, fmt.Errorf("%w: content must be at most %d characters", domain.ErrInvalidInput, maxUpdateContentLen)
	}
	if err := s.campaigns.AddUpdate(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Info().Str("campaign_id", campaignID).Str("update_id", u.ID).Str("posted_by", actor.UserID).Msg("campaign update posted")
	return u, nil
}

var campaignSortColumns = []string{"created_at", "end_date", "current_amount", "goal_amount", "title"}

// CampaignList is one page of campaigns.
type CampaignList struct {
	Items []domain.Campaign
	Total int
	Page  domain.Page
}

// ListCampaigns returns campaigns matching filter, newest first by default.
func (s *Service) ListCampaigns(ctx context.Context, filter domain.CampaignFilter) (*CampaignList, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, filter.Status)
	}
	if filter.Category != "" && !slices.Contains(domain.Categories, filter.Category) {
		return nil, fmt.Errorf("%w: unknown category %q", domain.ErrInvalidInput, filter.Category)
	}
	if filter.SortBy == "" {
		filter.SortBy = "created_at"
		filter.SortDesc = true
	}
	if !slices.Contains(campaignSortColumns, filter.SortBy) {
		return nil, fmt.Errorf("%w: cannot sort by %q", domain.ErrInvalidInput, filter.SortBy)
	}
	filter.Search = strings.TrimSpace(filter.Search)
	filter.Page = normalizePage(filter.Page)

	items, total, err := s.campaigns.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &CampaignList{Items: items, Total: total, Page: filter.Page}, nil
}

// CampaignStats summarizes all campaigns.
func (s *Service) CampaignStats(ctx context.Context) (*domain.CampaignStats, error) {
	return s.campaigns.Stats(ctx)
}

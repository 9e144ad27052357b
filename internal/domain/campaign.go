package domain

import (
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CampaignStatus enumerates the administrative campaign states.
type CampaignStatus string

const (
	CampaignStatusActive    CampaignStatus = "active"
	CampaignStatusCompleted CampaignStatus = "completed"
	CampaignStatusPaused    CampaignStatus = "paused"
	CampaignStatusCancelled CampaignStatus = "cancelled"
)

// Valid reports whether s is a known campaign status.
func (s CampaignStatus) Valid() bool {
	switch s {
	case CampaignStatusActive, CampaignStatusCompleted, CampaignStatusPaused, CampaignStatusCancelled:
		return true
	}
	return false
}

// Categories lists the accepted campaign categories.
var Categories = []string{
	"reforestation",
	"ocean-cleanup",
	"renewable-energy",
	"wildlife-conservation",
	"climate-action",
	"water-conservation",
	"sustainable-agriculture",
	"pollution-control",
	"biodiversity",
	"green-technology",
}

// CategoryLabel renders a category slug for display, e.g. "Ocean Cleanup".
func CategoryLabel(category string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(category, "-", " "))
}

// Campaign is a fundraising effort. CurrentAmount and DonorCount are a cached
// aggregate over completed donations and are only written by RecomputeTotals.
type Campaign struct {
	ID               string
	Title            string
	ShortDescription string
	Description      string
	Category         string
	GoalAmount       int64
	CurrentAmount    int64
	DonorCount       int
	Currency         string
	Status           CampaignStatus
	StartDate        time.Time
	EndDate          time.Time
	Location         string
	Organizer        string
	OrganizerEmail   string
	ImageURL         string
	Featured         bool
	Urgent           bool
	Tags             []string
	CreatedBy        string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// AcceptsDonations reports whether checkout may start for this campaign at now.
func (c Campaign) AcceptsDonations(now time.Time) error {
	if c.Status != CampaignStatusActive {
		return fmt.Errorf("%w: campaign is %s", ErrInvalidState, c.Status)
	}
	if !c.EndDate.After(now) {
		return fmt.Errorf("%w: campaign has ended", ErrInvalidState)
	}
	return nil
}

// ProgressPercentage returns the funded share of the goal, capped at 100.
func (c Campaign) ProgressPercentage() int {
	return ProgressPercentage(c.CurrentAmount, c.GoalAmount)
}

// DaysRemaining returns the whole days left until EndDate, never negative.
func (c Campaign) DaysRemaining(now time.Time) int {
	diff := c.EndDate.Sub(now)
	if diff <= 0 {
		return 0
	}
	return int(math.Ceil(diff.Hours() / 24))
}

// EffectiveStatus derives the public-facing status from dates and funding.
func (c Campaign) EffectiveStatus(now time.Time) string {
	switch {
	case c.Status == CampaignStatusCancelled || c.Status == CampaignStatusPaused:
		return string(c.Status)
	case c.CurrentAmount >= c.GoalAmount:
		return "completed"
	case now.After(c.EndDate):
		return "expired"
	case now.Before(c.StartDate):
		return "upcoming"
	}
	return "active"
}

// CampaignFilter narrows campaign listings.
type CampaignFilter struct {
	Category string
	Status   CampaignStatus
	Featured *bool
	Urgent   *bool
	Search   string
	SortBy   string
	SortDesc bool
	Page     Page
}

// CampaignUpdate is a progress note posted on a campaign by an
// administrator.
type CampaignUpdate struct {
	ID         string
	CampaignID string
	Title      string
	Content    string
	ImageURL   string
	PostedBy   string
	PostedAt   time.Time
}

// CampaignStats summarizes all campaigns.
type CampaignStats struct {
	TotalCampaigns  int
	ActiveCampaigns int
	TotalRaised     int64
	TotalDonors     int
	ByCategory      []CategoryTotal
}

// CategoryTotal aggregates campaigns within one category.
type CategoryTotal struct {
	Category  string
	Campaigns int
	Raised    int64
}

// Page describes offset pagination.
type Page struct {
	Number int
	Size   int
}

// MaxPageNumber bounds page numbers so row offsets stay small.
const MaxPageNumber = 10_000

// Normalize clamps the page to sane bounds.
func (p Page) Normalize(defaultSize, maxSize int) Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Number > MaxPageNumber {
		p.Number = MaxPageNumber
	}
	if p.Size <= 0 {
		p.Size = defaultSize
	}
	if p.Size > maxSize {
		p.Size = maxSize
	}
	return p
}

// Offset returns the row offset of the page.
func (p Page) Offset() int {
	if p.Number < 1 {
		return 0
	}
	return (p.Number - 1) * p.Size
}

// TotalPages returns the page count for total rows.
func (p Page) TotalPages(total int) int {
	if p.Size <= 0 {
		return 0
	}
	return (total + p.Size - 1) / p.Size
}

package domain

import (
	"errors"
	"testing"
	"time"
)

func TestTransition(t *testing.T) {
	tests := []struct {
		from, to  DonationStatus
		recompute bool
		wantErr   bool
	}{
		{from: DonationStatusPending, to: DonationStatusCompleted, recompute: true},
		{from: DonationStatusPending, to: DonationStatusFailed, recompute: false},
		{from: DonationStatusCompleted, to: DonationStatusRefunded, recompute: true},
		{from: DonationStatusCompleted, to: DonationStatusPending, wantErr: true},
		{from: DonationStatusCompleted, to: DonationStatusFailed, wantErr: true},
		{from: DonationStatusRefunded, to: DonationStatusCompleted, wantErr: true},
		{from: DonationStatusFailed, to: DonationStatusPending, wantErr: true},
		{from: DonationStatusPending, to: DonationStatusPending, wantErr: true},
		{from: DonationStatusPending, to: "settled", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			recompute, err := Transition(tc.from, tc.to)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidTransition) {
					t.Fatalf("Transition() error = %v, want ErrInvalidTransition", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Transition() unexpected error: %v", err)
			}
			if recompute != tc.recompute {
				t.Fatalf("Transition() recompute = %v, want %v", recompute, tc.recompute)
			}
		})
	}
}

func TestProgressPercentage(t *testing.T) {
	tests := []struct {
		current, goal int64
		want          int
	}{
		{current: 55_000, goal: 100_000, want: 55},
		{current: 0, goal: 100_000, want: 0},
		{current: 333, goal: 1000, want: 33},
		{current: 335, goal: 1000, want: 34},
		{current: 250_000, goal: 100_000, want: 100},
		{current: 10, goal: 0, want: 0},
	}
	for _, tc := range tests {
		if got := ProgressPercentage(tc.current, tc.goal); got != tc.want {
			t.Fatalf("ProgressPercentage(%d, %d) = %d, want %d", tc.current, tc.goal, got, tc.want)
		}
	}
}

func TestCampaignAcceptsDonations(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	base := Campaign{
		Status:    CampaignStatusActive,
		StartDate: now.AddDate(0, -1, 0),
		EndDate:   now.AddDate(0, 1, 0),
	}
	if err := base.AcceptsDonations(now); err != nil {
		t.Fatalf("active campaign rejected: %v", err)
	}

	paused := base
	paused.Status = CampaignStatusPaused
	if err := paused.AcceptsDonations(now); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("paused campaign error = %v, want ErrInvalidState", err)
	}

	ended := base
	ended.EndDate = now.Add(-time.Minute)
	if err := ended.AcceptsDonations(now); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("ended campaign error = %v, want ErrInvalidState", err)
	}
}

func TestCampaignEffectiveStatus(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := Campaign{
		Status:     CampaignStatusActive,
		GoalAmount: 1000,
		StartDate:  now.Add(24 * time.Hour),
		EndDate:    now.Add(72 * time.Hour),
	}
	if got := c.EffectiveStatus(now); got != "upcoming" {
		t.Fatalf("EffectiveStatus() = %q, want upcoming", got)
	}
	if got := c.DaysRemaining(now); got != 3 {
		t.Fatalf("DaysRemaining() = %d, want 3", got)
	}
	c.CurrentAmount = 1000
	if got := c.EffectiveStatus(now); got != "completed" {
		t.Fatalf("EffectiveStatus() = %q, want completed", got)
	}
	c.Status = CampaignStatusPaused
	if got := c.EffectiveStatus(now); got != "paused" {
		t.Fatalf("EffectiveStatus() = %q, want paused", got)
	}
}

func TestNormalizeCurrency(t *testing.T) {
	if got, err := NormalizeCurrency(""); err != nil || got != "USD" {
		t.Fatalf("NormalizeCurrency(\"\") = %q, %v", got, err)
	}
	if got, err := NormalizeCurrency("eur"); err != nil || got != "EUR" {
		t.Fatalf("NormalizeCurrency(eur) = %q, %v", got, err)
	}
	if _, err := NormalizeCurrency("JPY"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("NormalizeCurrency(JPY) error = %v, want ErrInvalidInput", err)
	}
	if _, err := NormalizeCurrency("zzz"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("NormalizeCurrency(zzz) error = %v, want ErrInvalidInput", err)
	}
}

func TestFormatMajor(t *testing.T) {
	if got := FormatMajor(55_000); got != "550.00" {
		t.Fatalf("FormatMajor() = %q, want 550.00", got)
	}
	if got := FormatMajor(49); got != "0.49" {
		t.Fatalf("FormatMajor() = %q, want 0.49", got)
	}
}

func TestCategoryLabel(t *testing.T) {
	for in, want := range map[string]string{
		"ocean-cleanup":           "Ocean Cleanup",
		"sustainable-agriculture": "Sustainable Agriculture",
		"biodiversity":            "Biodiversity",
	} {
		if got := CategoryLabel(in); got != want {
			t.Fatalf("CategoryLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPageNormalize(t *testing.T) {
	tests := []struct {
		name       string
		in         Page
		want       Page
		wantOffset int
	}{
		{name: "defaults", in: Page{}, want: Page{Number: 1, Size: 20}, wantOffset: 0},
		{name: "size capped", in: Page{Number: 3, Size: 500}, want: Page{Number: 3, Size: 100}, wantOffset: 200},
		{name: "huge page", in: Page{Number: 1 << 30, Size: 100}, want: Page{Number: MaxPageNumber, Size: 100}, wantOffset: (MaxPageNumber - 1) * 100},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.in.Normalize(20, 100)
			if got != tc.want {
				t.Fatalf("Normalize() = %+v, want %+v", got, tc.want)
			}
			if off := got.Offset(); off != tc.wantOffset || off > 1<<31-1 {
				t.Fatalf("Offset() = %d, want %d", off, tc.wantOffset)
			}
		})
	}
}

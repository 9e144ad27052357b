package domain

import (
	"fmt"
	"time"
)

// DonationStatus enumerates donation lifecycle states.
type DonationStatus string

const (
	DonationStatusPending   DonationStatus = "pending"
	DonationStatusCompleted DonationStatus = "completed"
	DonationStatusFailed    DonationStatus = "failed"
	DonationStatusRefunded  DonationStatus = "refunded"
)

// Valid reports whether s is a known donation status.
func (s DonationStatus) Valid() bool {
	switch s {
	case DonationStatusPending, DonationStatusCompleted, DonationStatusFailed, DonationStatusRefunded:
		return true
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s DonationStatus) Terminal() bool {
	return s == DonationStatusFailed || s == DonationStatusRefunded
}

// countsTowardTotals marks the states whose entry or exit changes campaign
// aggregates.
func (s DonationStatus) countsTowardTotals() bool {
	return s == DonationStatusCompleted || s == DonationStatusRefunded
}

var donationTransitions = map[DonationStatus][]DonationStatus{
	DonationStatusPending:   {DonationStatusCompleted, DonationStatusFailed},
	DonationStatusCompleted: {DonationStatusRefunded},
}

// Transition validates a status change and reports whether the owning
// campaign's aggregates must be recomputed afterwards.
func Transition(from, to DonationStatus) (recompute bool, err error) {
	if !from.Valid() || !to.Valid() {
		return false, fmt.Errorf("%w: unknown status %q -> %q", ErrInvalidTransition, from, to)
	}
	for _, next := range donationTransitions[from] {
		if next == to {
			return from.countsTowardTotals() || to.countsTowardTotals(), nil
		}
	}
	return false, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// PaymentMethod enumerates accepted payment methods.
type PaymentMethod string

const (
	PaymentMethodStripe       PaymentMethod = "stripe"
	PaymentMethodCreditCard   PaymentMethod = "credit_card"
	PaymentMethodDebitCard    PaymentMethod = "debit_card"
	PaymentMethodPaypal       PaymentMethod = "paypal"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCrypto       PaymentMethod = "crypto"
)

// DonationMetadata captures request context at donation time.
type DonationMetadata struct {
	IPAddress      string `json:"ip_address,omitempty"`
	UserAgent      string `json:"user_agent,omitempty"`
	ReferralSource string `json:"referral_source,omitempty"`
	Country        string `json:"country,omitempty"`
}

// Donation represents a single contribution to a campaign.
type Donation struct {
	ID                      string
	CampaignID              string
	UserID                  string
	Amount                  int64
	Currency                string
	Status                  DonationStatus
	PaymentMethod           PaymentMethod
	ExternalSessionID       *string
	ExternalPaymentIntentID *string
	TransactionID           string
	ReceiptID               string
	RefundAmount            int64
	RefundReason            string
	DonorName               string
	DonorEmail              string
	IsAnonymous             bool
	Message                 string
	Metadata                DonationMetadata
	CreatedAt               time.Time
	ProcessedAt             *time.Time
	UpdatedAt               time.Time
}

// NetAmount is the contribution left after refunds.
func (d Donation) NetAmount() int64 {
	return d.Amount - d.RefundAmount
}

// PublicDonorName hides the donor for anonymous donations.
func (d Donation) PublicDonorName() string {
	if d.IsAnonymous {
		return "Anonymous"
	}
	return d.DonorName
}

// DonationStatsFilter scopes donation statistics.
type DonationStatsFilter struct {
	CampaignID string
	Since      *time.Time
}

// DonationStats summarizes completed donations.
type DonationStats struct {
	TotalDonations  int
	TotalAmount     int64
	AverageDonation int64
	UniqueDonors    int
	ByPaymentMethod []MethodTotal
	Daily           []DailyTotal
}

// MethodTotal aggregates donations per payment method.
type MethodTotal struct {
	Method      PaymentMethod
	Count       int
	TotalAmount int64
}

// DailyTotal aggregates donations per calendar day (UTC).
type DailyTotal struct {
	Day         string
	Count       int
	TotalAmount int64
}

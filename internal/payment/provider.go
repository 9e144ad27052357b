// Package payment adapts the external checkout provider. Only the retrieved
// session state is authoritative; nothing here trusts client input.
package payment

import (
	"context"
	"strings"
)

// PaymentStatus is the provider's view of whether money moved.
type PaymentStatus string

const (
	PaymentStatusPaid              PaymentStatus = "paid"
	PaymentStatusUnpaid            PaymentStatus = "unpaid"
	PaymentStatusNoPaymentRequired PaymentStatus = "no_payment_required"
)

// Metadata keys attached to every checkout session.
const (
	MetaCampaignID   = "campaignId"
	MetaUserID       = "userId"
	MetaDonationType = "donationType"

	DonationTypeCampaign = "campaign_donation"
)

// IsCampaignCheckout reports whether session metadata marks a campaign
// donation started by this service. Sessions without a donation type but with
// a campaign are accepted.
func IsCampaignCheckout(meta map[string]string) bool {
	if strings.TrimSpace(meta[MetaCampaignID]) == "" {
		return false
	}
	kind := strings.TrimSpace(meta[MetaDonationType])
	return kind == "" || kind == DonationTypeCampaign
}

// CheckoutRequest describes one session to create.
type CheckoutRequest struct {
	CampaignID  string
	UserID      string
	Amount      int64
	Currency    string
	Name        string
	Description string
	PayerEmail  string
	SuccessURL  string
	CancelURL   string
}

// Session is the provider-reported state of a checkout session.
type Session struct {
	ID              string
	URL             string
	Status          string
	PaymentStatus   PaymentStatus
	AmountTotal     int64
	Currency        string
	Metadata        map[string]string
	PaymentIntentID string
	CustomerEmail   string
	CustomerName    string
}

// Paid reports whether the provider confirmed payment.
func (s Session) Paid() bool {
	return s.PaymentStatus == PaymentStatusPaid
}

// Provider creates and retrieves checkout sessions. Implementations return
// domain.ErrNotFound for unknown sessions and domain.ErrUpstreamFailure for
// any other provider or transport error.
type Provider interface {
	CreateSession(ctx context.Context, req CheckoutRequest) (*Session, error)
	RetrieveSession(ctx context.Context, sessionID string) (*Session, error)
}

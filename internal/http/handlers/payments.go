package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ecofund/internal/domain"
	"ecofund/internal/funding"
	"ecofund/internal/middleware"
)

const (
	maxWebhookBytes = 64 << 10

	reconcileFailedMessage = "payment processing failed, please contact support"
)

func (a *App) PaymentsCheckoutSession(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if !a.decode(w, r, &req) {
		return
	}
	res, err := a.Funding.InitiateCheckout(r.Context(), funding.CheckoutInput{
		CampaignID: req.CampaignID,
		Amount:     req.Amount,
		PayerEmail: req.PayerEmail,
		UserID:     a.currentUserID(r),
		Title:      req.Title,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, checkoutResponse{SessionID: res.SessionID, URL: res.RedirectURL})
}

// PaymentsSuccess reconciles the session the payer was redirected back with.
// Repeated calls return the same donation.
func (a *App) PaymentsSuccess(w http.ResponseWriter, r *http.Request) {
	var req paymentSuccessRequest
	if !a.decode(w, r, &req) {
		return
	}
	res, err := a.Funding.Reconcile(r.Context(), funding.ReconcileInput{
		SessionID: req.SessionID,
		Actor:     a.actor(r),
		Client:    middleware.ClientFromContext(r.Context()),
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotPaid) || errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidInput) ||
			errors.Is(err, domain.ErrForbidden) {
			a.fail(w, r, err)
			return
		}
		code, errCode := statusFor(err)
		a.Logger.Error().Err(err).Str("session_id", req.SessionID).Msg("payment reconciliation failed")
		a.error(w, code, errCode, reconcileFailedMessage)
		return
	}
	now := a.Now()
	a.json(w, http.StatusOK, paymentSuccessResponse{
		Donation:         toDonationDTO(res.Donation),
		Campaign:         toCampaignDTO(res.Campaign, now),
		AlreadyProcessed: res.Replayed,
	})
}

func (a *App) PaymentsStatus(w http.ResponseWriter, r *http.Request) {
	res, err := a.Funding.PaymentStatus(r.Context(), a.actor(r), chi.URLParam(r, "sessionId"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	out := paymentStatusResponse{
		SessionID:     res.Session.ID,
		Status:        res.Session.Status,
		PaymentStatus: string(res.Session.PaymentStatus),
		AmountTotal:   res.Session.AmountTotal,
		Currency:      res.Session.Currency,
		CustomerEmail: res.Session.CustomerEmail,
	}
	if res.Donation != nil {
		d := toDonationDTO(res.Donation)
		out.Donation = &d
	}
	a.json(w, http.StatusOK, out)
}

// PaymentsWebhook verifies and queues a provider event. Processing happens in
// the worker so the provider gets a fast acknowledgement.
func (a *App) PaymentsWebhook(w http.ResponseWriter, r *http.Request) {
	if a.Verifier == nil {
		a.error(w, http.StatusServiceUnavailable, "unavailable", "webhooks are not configured")
		return
	}
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		a.error(w, http.StatusRequestEntityTooLarge, "bad_request", "payload too large")
		return
	}
	evt, err := a.Verifier.Verify(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		a.Logger.Warn().Err(err).Msg("webhook rejected")
		a.error(w, http.StatusBadRequest, "bad_signature", "webhook signature verification failed")
		return
	}
	stored, err := a.Funding.StoreWebhookEvent(r.Context(), evt, payload)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"received": true, "duplicate": !stored})
}

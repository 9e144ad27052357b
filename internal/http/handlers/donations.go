package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"ecofund/internal/domain"
	"ecofund/internal/funding"
	"ecofund/internal/middleware"
)

func (a *App) DonationsMine(w http.ResponseWriter, r *http.Request) {
	list, err := a.Funding.MyDonations(r.Context(), a.actor(r), pageFrom(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, newDonationList(list))
}

func (a *App) DonationsGet(w http.ResponseWriter, r *http.Request) {
	d, err := a.Funding.GetDonation(r.Context(), a.actor(r), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, toDonationDTO(d))
}

func (a *App) DonationsReceipt(w http.ResponseWriter, r *http.Request) {
	receipt, err := a.Funding.DonationReceipt(r.Context(), a.actor(r), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, toReceiptResponse(receipt))
}

func (a *App) DonationsUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !a.decode(w, r, &req) {
		return
	}
	res, err := a.Funding.ChangeStatus(r.Context(), chi.URLParam(r, "id"), domain.DonationStatus(req.Status))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, newLifecycleResponse(res, a.Now()))
}

func (a *App) DonationsRefund(w http.ResponseWriter, r *http.Request) {
	var req refundRequest
	if !a.decode(w, r, &req) {
		return
	}
	res, err := a.Funding.Refund(r.Context(), chi.URLParam(r, "id"), req.Amount, req.Reason)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, newLifecycleResponse(res, a.Now()))
}

// DonationsPledge records an offline donation on behalf of a donor. It stays
// pending until an administrator confirms the funds.
func (a *App) DonationsPledge(w http.ResponseWriter, r *http.Request) {
	var req pledgeRequest
	if !a.decode(w, r, &req) {
		return
	}
	userID := req.UserID
	if userID == "" {
		userID = a.currentUserID(r)
	}
	d, err := a.Funding.RecordPledge(r.Context(), funding.PledgeInput{
		CampaignID:    req.CampaignID,
		UserID:        userID,
		Amount:        req.Amount,
		PaymentMethod: domain.PaymentMethod(req.PaymentMethod),
		DonorName:     req.DonorName,
		DonorEmail:    req.DonorEmail,
		IsAnonymous:   req.IsAnonymous,
		Message:       req.Message,
		Client:        middleware.ClientFromContext(r.Context()),
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, toDonationDTO(d))
}

type methodTotalDTO struct {
	Method      string `json:"method"`
	Count       int    `json:"count"`
	TotalAmount int64  `json:"total_amount"`
}

type dailyTotalDTO struct {
	Day         string `json:"day"`
	Count       int    `json:"count"`
	TotalAmount int64  `json:"total_amount"`
}

type donationStatsResponse struct {
	Timeframe       string           `json:"timeframe"`
	CampaignID      string           `json:"campaign_id,omitempty"`
	TotalDonations  int              `json:"total_donations"`
	TotalAmount     int64            `json:"total_amount"`
	AverageDonation int64            `json:"average_donation"`
	UniqueDonors    int              `json:"unique_donors"`
	ByPaymentMethod []methodTotalDTO `json:"by_payment_method"`
	Daily           []dailyTotalDTO  `json:"daily"`
	GeneratedAt     time.Time        `json:"generated_at"`
}

func (a *App) DonationsStats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	timeframe := q.Get("timeframe")
	if timeframe == "" {
		timeframe = "30d"
	}
	stats, err := a.Funding.DonationStats(r.Context(), q.Get("campaign_id"), timeframe)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	out := donationStatsResponse{
		Timeframe:       timeframe,
		CampaignID:      q.Get("campaign_id"),
		TotalDonations:  stats.TotalDonations,
		TotalAmount:     stats.TotalAmount,
		AverageDonation: stats.AverageDonation,
		UniqueDonors:    stats.UniqueDonors,
		ByPaymentMethod: make([]methodTotalDTO, 0, len(stats.ByPaymentMethod)),
		Daily:           make([]dailyTotalDTO, 0, len(stats.Daily)),
		GeneratedAt:     a.Now().UTC(),
	}
	for _, m := range stats.ByPaymentMethod {
		out.ByPaymentMethod = append(out.ByPaymentMethod, methodTotalDTO{Method: string(m.Method), Count: m.Count, TotalAmount: m.TotalAmount})
	}
	for _, d := range stats.Daily {
		out.Daily = append(out.Daily, dailyTotalDTO(d))
	}
	a.json(w, http.StatusOK, out)
}

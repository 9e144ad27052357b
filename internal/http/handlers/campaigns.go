package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"ecofund/internal/domain"
	"ecofund/internal/funding"
)

type campaignListResponse struct {
	Items      []campaignDTO `json:"items"`
	Pagination pagination    `json:"pagination"`
}

type campaignDetailResponse struct {
	campaignDTO
	RecentDonations []donationDTO       `json:"recent_donations"`
	Updates         []campaignUpdateDTO `json:"updates"`
}

func (a *App) CampaignsList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.CampaignFilter{
		Category: q.Get("category"),
		Status:   domain.CampaignStatus(q.Get("status")),
		Featured: queryBool(r, "featured"),
		Urgent:   queryBool(r, "urgent"),
		Search:   q.Get("search"),
		SortBy:   q.Get("sort_by"),
		SortDesc: q.Get("sort_order") != "asc",
		Page:     pageFrom(r),
	}
	list, err := a.Funding.ListCampaigns(r.Context(), filter)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	now := a.Now()
	items := make([]campaignDTO, 0, len(list.Items))
	for i := range list.Items {
		items = append(items, toCampaignDTO(&list.Items[i], now))
	}
	a.json(w, http.StatusOK, campaignListResponse{Items: items, Pagination: newPagination(list.Page, list.Total)})
}

func (a *App) CampaignsGet(w http.ResponseWriter, r *http.Request) {
	detail, err := a.Funding.GetCampaign(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, campaignDetailResponse{
		campaignDTO:     toCampaignDTO(detail.Campaign, a.Now()),
		RecentDonations: toDonationDTOs(detail.RecentDonations),
		Updates:         toCampaignUpdateDTOs(detail.Updates),
	})
}

func (a *App) CampaignsCreate(w http.ResponseWriter, r *http.Request) {
	var req campaignRequest
	if !a.decode(w, r, &req) {
		return
	}
	c, err := a.Funding.CreateCampaign(r.Context(), a.actor(r), req.input())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, toCampaignDTO(c, a.Now()))
}

func (a *App) CampaignsUpdate(w http.ResponseWriter, r *http.Request) {
	var req campaignRequest
	if !a.decode(w, r, &req) {
		return
	}
	c, err := a.Funding.UpdateCampaign(r.Context(), chi.URLParam(r, "id"), req.input())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, toCampaignDTO(c, a.Now()))
}

func (a *App) CampaignsDelete(w http.ResponseWriter, r *http.Request) {
	if err := a.Funding.DeleteCampaign(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CampaignsRecompute rebuilds one campaign's cached totals from its donations.
func (a *App) CampaignsRecompute(w http.ResponseWriter, r *http.Request) {
	c, err := a.Funding.Recompute(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, toCampaignDTO(c, a.Now()))
}

// CampaignsAddUpdate posts a progress update on a campaign.
func (a *App) CampaignsAddUpdate(w http.ResponseWriter, r *http.Request) {
	var req campaignUpdateRequest
	if !a.decode(w, r, &req) {
		return
	}
	u, err := a.Funding.AddCampaignUpdate(r.Context(), a.actor(r), chi.URLParam(r, "id"), funding.CampaignUpdateInput{
		Title:    req.Title,
		Content:  req.Content,
		ImageURL: req.ImageURL,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, toCampaignUpdateDTO(u))
}

type categoryTotalDTO struct {
	Category  string `json:"category"`
	Label     string `json:"label"`
	Campaigns int    `json:"campaigns"`
	Raised    int64  `json:"raised"`
}

type campaignStatsResponse struct {
	TotalCampaigns  int                `json:"total_campaigns"`
	ActiveCampaigns int                `json:"active_campaigns"`
	TotalRaised     int64              `json:"total_raised"`
	TotalDonors     int                `json:"total_donors"`
	ByCategory      []categoryTotalDTO `json:"by_category"`
}

func (a *App) CampaignsStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.Funding.CampaignStats(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	out := campaignStatsResponse{
		TotalCampaigns:  stats.TotalCampaigns,
		ActiveCampaigns: stats.ActiveCampaigns,
		TotalRaised:     stats.TotalRaised,
		TotalDonors:     stats.TotalDonors,
		ByCategory:      make([]categoryTotalDTO, 0, len(stats.ByCategory)),
	}
	for _, c := range stats.ByCategory {
		out.ByCategory = append(out.ByCategory, categoryTotalDTO{
			Category:  c.Category,
			Label:     domain.CategoryLabel(c.Category),
			Campaigns: c.Campaigns,
			Raised:    c.Raised,
		})
	}
	a.json(w, http.StatusOK, out)
}

func (a *App) CampaignDonations(w http.ResponseWriter, r *http.Request) {
	list, err := a.Funding.CampaignDonations(r.Context(), chi.URLParam(r, "id"),
		domain.DonationStatus(r.URL.Query().Get("status")), pageFrom(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, newDonationList(list))
}

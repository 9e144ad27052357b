package handlers

import (
	"time"

	"ecofund/internal/domain"
	"ecofund/internal/funding"
)

type pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func newPagination(p domain.Page, total int) pagination {
	return pagination{Page: p.Number, Limit: p.Size, Total: total, TotalPages: p.TotalPages(total)}
}

type campaignDTO struct {
	ID                 string    `json:"id"`
	Title              string    `json:"title"`
	ShortDescription   string    `json:"short_description"`
	Description        string    `json:"description"`
	Category           string    `json:"category"`
	CategoryLabel      string    `json:"category_label"`
	GoalAmount         int64     `json:"goal_amount"`
	CurrentAmount      int64     `json:"current_amount"`
	DonorCount         int       `json:"donor_count"`
	Currency           string    `json:"currency"`
	GoalDisplay        string    `json:"goal_display"`
	RaisedDisplay      string    `json:"raised_display"`
	ProgressPercentage int       `json:"progress_percentage"`
	DaysRemaining      int       `json:"days_remaining"`
	Status             string    `json:"status"`
	EffectiveStatus    string    `json:"effective_status"`
	StartDate          time.Time `json:"start_date"`
	EndDate            time.Time `json:"end_date"`
	Location           string    `json:"location,omitempty"`
	Organizer          string    `json:"organizer,omitempty"`
	OrganizerEmail     string    `json:"organizer_email,omitempty"`
	ImageURL           string    `json:"image_url,omitempty"`
	Featured           bool      `json:"featured"`
	Urgent             bool      `json:"urgent"`
	Tags               []string  `json:"tags"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func toCampaignDTO(c *domain.Campaign, now time.Time) campaignDTO {
	tags := c.Tags
	if tags == nil {
		tags = []string{}
	}
	return campaignDTO{
		ID:                 c.ID,
		Title:              c.Title,
		ShortDescription:   c.ShortDescription,
		Description:        c.Description,
		Category:           c.Category,
		CategoryLabel:      domain.CategoryLabel(c.Category),
		GoalAmount:         c.GoalAmount,
		CurrentAmount:      c.CurrentAmount,
		DonorCount:         c.DonorCount,
		Currency:           c.Currency,
		GoalDisplay:        domain.FormatMajor(c.GoalAmount),
		RaisedDisplay:      domain.FormatMajor(c.CurrentAmount),
		ProgressPercentage: c.ProgressPercentage(),
		DaysRemaining:      c.DaysRemaining(now),
		Status:             string(c.Status),
		EffectiveStatus:    c.EffectiveStatus(now),
		StartDate:          c.StartDate,
		EndDate:            c.EndDate,
		Location:           c.Location,
		Organizer:          c.Organizer,
		OrganizerEmail:     c.OrganizerEmail,
		ImageURL:           c.ImageURL,
		Featured:           c.Featured,
		Urgent:             c.Urgent,
		Tags:               tags,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
	}
}

type donationDTO struct {
	ID            string     `json:"id"`
	CampaignID    string     `json:"campaign_id"`
	UserID        string     `json:"user_id,omitempty"`
	Amount        int64      `json:"amount"`
	RefundAmount  int64      `json:"refund_amount"`
	NetAmount     int64      `json:"net_amount"`
	Currency      string     `json:"currency"`
	AmountDisplay string     `json:"amount_display"`
	Status        string     `json:"status"`
	PaymentMethod string     `json:"payment_method"`
	TransactionID string     `json:"transaction_id,omitempty"`
	ReceiptID     string     `json:"receipt_id,omitempty"`
	RefundReason  string     `json:"refund_reason,omitempty"`
	DonorName     string     `json:"donor_name,omitempty"`
	DonorEmail    string     `json:"donor_email,omitempty"`
	IsAnonymous   bool       `json:"is_anonymous"`
	Message       string     `json:"message,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
}

func toDonationDTO(d *domain.Donation) donationDTO {
	return donationDTO{
		ID:            d.ID,
		CampaignID:    d.CampaignID,
		UserID:        d.UserID,
		Amount:        d.Amount,
		RefundAmount:  d.RefundAmount,
		NetAmount:     d.NetAmount(),
		Currency:      d.Currency,
		AmountDisplay: domain.FormatMajor(d.Amount),
		Status:        string(d.Status),
		PaymentMethod: string(d.PaymentMethod),
		TransactionID: d.TransactionID,
		ReceiptID:     d.ReceiptID,
		RefundReason:  d.RefundReason,
		DonorName:     d.DonorName,
		DonorEmail:    d.DonorEmail,
		IsAnonymous:   d.IsAnonymous,
		Message:       d.Message,
		CreatedAt:     d.CreatedAt,
		ProcessedAt:   d.ProcessedAt,
	}
}

func toDonationDTOs(items []domain.Donation) []donationDTO {
	out := make([]donationDTO, 0, len(items))
	for i := range items {
		out = append(out, toDonationDTO(&items[i]))
	}
	return out
}

type campaignUpdateDTO struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Content  string    `json:"content"`
	ImageURL string    `json:"image_url,omitempty"`
	PostedAt time.Time `json:"date"`
}

func toCampaignUpdateDTO(u *domain.CampaignUpdate) campaignUpdateDTO {
	return campaignUpdateDTO{ID: u.ID, Title: u.Title, Content: u.Content, ImageURL: u.ImageURL, PostedAt: u.PostedAt}
}

func toCampaignUpdateDTOs(items []domain.CampaignUpdate) []campaignUpdateDTO {
	out := make([]campaignUpdateDTO, 0, len(items))
	for i := range items {
		out = append(out, toCampaignUpdateDTO(&items[i]))
	}
	return out
}

type campaignUpdateRequest struct {
	Title    string `json:"title" validate:"required,max=100"`
	Content  string `json:"content" validate:"required,max=2000"`
	ImageURL string `json:"image_url" validate:"omitempty,url"`
}

type donationListResponse struct {
	Items      []donationDTO `json:"items"`
	Pagination pagination    `json:"pagination"`
}

func newDonationList(list *funding.DonationList) donationListResponse {
	return donationListResponse{Items: toDonationDTOs(list.Items), Pagination: newPagination(list.Page, list.Total)}
}

type lifecycleResponse struct {
	Donation donationDTO  `json:"donation"`
	Campaign *campaignDTO `json:"campaign,omitempty"`
}

func newLifecycleResponse(res *funding.LifecycleResult, now time.Time) lifecycleResponse {
	out := lifecycleResponse{Donation: toDonationDTO(res.Donation)}
	if res.Campaign != nil {
		c := toCampaignDTO(res.Campaign, now)
		out.Campaign = &c
	}
	return out
}

type campaignRequest struct {
	Title            string     `json:"title" validate:"required,max=100"`
	ShortDescription string     `json:"short_description" validate:"max=200"`
	Description      string     `json:"description" validate:"max=2000"`
	Category         string     `json:"category" validate:"required"`
	GoalAmount       int64      `json:"goal_amount" validate:"required,gt=0"`
	Currency         string     `json:"currency" validate:"omitempty,len=3"`
	Status           string     `json:"status" validate:"omitempty,oneof=active completed paused cancelled"`
	StartDate        *time.Time `json:"start_date"`
	EndDate          time.Time  `json:"end_date" validate:"required"`
	Location         string     `json:"location" validate:"max=200"`
	Organizer        string     `json:"organizer" validate:"max=200"`
	OrganizerEmail   string     `json:"organizer_email" validate:"omitempty,email"`
	ImageURL         string     `json:"image_url" validate:"omitempty,url"`
	Featured         bool       `json:"featured"`
	Urgent           bool       `json:"urgent"`
	Tags             []string   `json:"tags" validate:"max=10,dive,required,max=40"`
}

func (req campaignRequest) input() funding.CampaignInput {
	in := funding.CampaignInput{
		Title:            req.Title,
		ShortDescription: req.ShortDescription,
		Description:      req.Description,
		Category:         req.Category,
		GoalAmount:       req.GoalAmount,
		Currency:         req.Currency,
		Status:           domain.CampaignStatus(req.Status),
		EndDate:          req.EndDate,
		Location:         req.Location,
		Organizer:        req.Organizer,
		OrganizerEmail:   req.OrganizerEmail,
		ImageURL:         req.ImageURL,
		Featured:         req.Featured,
		Urgent:           req.Urgent,
		Tags:             req.Tags,
	}
	if req.StartDate != nil {
		in.StartDate = *req.StartDate
	}
	return in
}

type checkoutRequest struct {
	CampaignID string `json:"campaign_id" validate:"required"`
	// Amount is in minor units; bounds are enforced by the service.
	Amount     int64  `json:"amount"`
	PayerEmail string `json:"payer_email" validate:"omitempty,email"`
	Title      string `json:"campaign_title" validate:"max=200"`
}

type checkoutResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

type paymentSuccessRequest struct {
	SessionID string `json:"session_id" validate:"required"`
}

type paymentSuccessResponse struct {
	Donation         donationDTO `json:"donation"`
	Campaign         campaignDTO `json:"campaign"`
	AlreadyProcessed bool        `json:"already_processed"`
}

type paymentStatusResponse struct {
	SessionID     string       `json:"session_id"`
	Status        string       `json:"status"`
	PaymentStatus string       `json:"payment_status"`
	AmountTotal   int64        `json:"amount_total"`
	Currency      string       `json:"currency"`
	CustomerEmail string       `json:"customer_email,omitempty"`
	Donation      *donationDTO `json:"donation,omitempty"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending completed failed refunded"`
}

type refundRequest struct {
	Amount int64  `json:"amount" validate:"required,gt=0"`
	Reason string `json:"reason" validate:"max=500"`
}

type pledgeRequest struct {
	CampaignID    string `json:"campaign_id" validate:"required"`
	UserID        string `json:"user_id"`
	Amount        int64  `json:"amount"`
	PaymentMethod string `json:"payment_method" validate:"omitempty,oneof=bank_transfer credit_card debit_card paypal crypto"`
	DonorName     string `json:"donor_name" validate:"max=200"`
	DonorEmail    string `json:"donor_email" validate:"omitempty,email"`
	IsAnonymous   bool   `json:"is_anonymous"`
	Message       string `json:"message" validate:"max=500"`
}

type receiptResponse struct {
	ReceiptID      string     `json:"receipt_id"`
	TransactionID  string     `json:"transaction_id"`
	DonationID     string     `json:"donation_id"`
	CampaignTitle  string     `json:"campaign_title"`
	Organizer      string     `json:"organizer,omitempty"`
	OrganizerEmail string     `json:"organizer_email,omitempty"`
	DonorName      string     `json:"donor_name,omitempty"`
	DonorEmail     string     `json:"donor_email,omitempty"`
	Amount         int64      `json:"amount"`
	AmountDisplay  string     `json:"amount_display"`
	RefundAmount   int64      `json:"refund_amount"`
	Currency       string     `json:"currency"`
	PaymentMethod  string     `json:"payment_method"`
	Message        string     `json:"message,omitempty"`
	DonatedAt      time.Time  `json:"donated_at"`
	ProcessedAt    *time.Time `json:"processed_at,omitempty"`
}

func toReceiptResponse(r *funding.Receipt) receiptResponse {
	return receiptResponse{
		ReceiptID:      r.ReceiptID,
		TransactionID:  r.TransactionID,
		DonationID:     r.DonationID,
		CampaignTitle:  r.CampaignTitle,
		Organizer:      r.Organizer,
		OrganizerEmail: r.OrganizerEmail,
		DonorName:      r.DonorName,
		DonorEmail:     r.DonorEmail,
		Amount:         r.Amount,
		AmountDisplay:  domain.FormatMajor(r.Amount),
		RefundAmount:   r.RefundAmount,
		Currency:       r.Currency,
		PaymentMethod:  string(r.PaymentMethod),
		Message:        r.Message,
		DonatedAt:      r.DonatedAt,
		ProcessedAt:    r.ProcessedAt,
	}
}

package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"ecofund/internal/domain"
	"ecofund/internal/infra"
	"ecofund/internal/sqlinline"
)

const constraintDonationSession = "donations_external_session_id_key"

// DonationRepositoryPG implements domain.DonationRepository using PostgreSQL.
type DonationRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewDonationRepository creates a new donation repo.
func NewDonationRepository(sql infra.SQLExecutor) *DonationRepositoryPG {
	return &DonationRepositoryPG{sql: sql}
}

// Create inserts a new donation record. Unique violations are translated to
// domain.ErrAlreadyProcessed (session id) or domain.ErrDuplicateOperation
// (transaction, receipt or row id).
func (r *DonationRepositoryPG) Create(ctx context.Context, d *domain.Donation) error {
	if d.ID == "" {
		d.ID = newID()
	}
	if !validUUID(d.CampaignID) {
		return domain.ErrNotFound
	}
	metadata, err := json.Marshal(d.Metadata)
	if err != nil {
		return fmt.Errorf("encode donation metadata: %w", err)
	}
	row := r.sql.QueryRow(ctx, sqlinline.QInsertDonation,
		d.ID,
		d.CampaignID,
		d.UserID,
		d.Amount,
		d.Currency,
		string(d.Status),
		string(d.PaymentMethod),
		deref(d.ExternalSessionID),
		deref(d.ExternalPaymentIntentID),
		d.TransactionID,
		d.ReceiptID,
		d.DonorName,
		d.DonorEmail,
		d.IsAnonymous,
		d.Message,
		metadata,
		d.ProcessedAt,
	)
	if err := row.Scan(&d.CreatedAt, &d.UpdatedAt); err != nil {
		if constraint, ok := infra.UniqueViolation(err); ok {
			if constraint == constraintDonationSession {
				return fmt.Errorf("%w: session %s", domain.ErrAlreadyProcessed, deref(d.ExternalSessionID))
			}
			return fmt.Errorf("%w: %s", domain.ErrDuplicateOperation, constraint)
		}
		if infra.ForeignKeyViolation(err) {
			return fmt.Errorf("%w: campaign %s", domain.ErrNotFound, d.CampaignID)
		}
		return fmt.Errorf("insert donation: %w", err)
	}
	return nil
}

// GetByID fetches a donation by UUID.
func (r *DonationRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Donation, error) {
	if !validUUID(id) {
		return nil, domain.ErrNotFound
	}
	return r.getOne(ctx, sqlinline.QSelectDonationByID, id)
}

// GetBySessionID fetches the donation recorded for a provider checkout session.
func (r *DonationRepositoryPG) GetBySessionID(ctx context.Context, sessionID string) (*domain.Donation, error) {
	return r.getOne(ctx, sqlinline.QSelectDonationBySession, sessionID)
}

// GetByPaymentIntentID fetches the donation paid by a provider payment intent.
func (r *DonationRepositoryPG) GetByPaymentIntentID(ctx context.Context, paymentIntentID string) (*domain.Donation, error) {
	return r.getOne(ctx, sqlinline.QSelectDonationByPaymentIntent, paymentIntentID)
}

func (r *DonationRepositoryPG) getOne(ctx context.Context, query string, arg string) (*domain.Donation, error) {
	d, err := scanDonation(r.sql.QueryRow(ctx, query, arg))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select donation: %w", err)
	}
	return d, nil
}

// UpdateStatus moves a donation from one status to another.
func (r *DonationRepositoryPG) UpdateStatus(ctx context.Context, id string, from, to domain.DonationStatus, processedAt *time.Time) error {
	var updated string
	err := r.sql.QueryRow(ctx, sqlinline.QUpdateDonationStatus, id, string(from), string(to), processedAt).Scan(&updated)
	if err != nil {
		if infra.IsNoRows(err) {
			return fmt.Errorf("%w: donation %s is no longer %s", domain.ErrConflict, id, from)
		}
		return fmt.Errorf("update donation status: %w", err)
	}
	return nil
}

// UpdateRefund stores a new cumulative refund on a completed donation.
func (r *DonationRepositoryPG) UpdateRefund(ctx context.Context, id string, prevRefund, refund int64, status domain.DonationStatus, reason string) error {
	var updated string
	err := r.sql.QueryRow(ctx, sqlinline.QUpdateDonationRefund, id, prevRefund, refund, string(status), reason).Scan(&updated)
	if err != nil {
		if infra.IsNoRows(err) {
			return fmt.Errorf("%w: donation %s changed concurrently", domain.ErrConflict, id)
		}
		return fmt.Errorf("update donation refund: %w", err)
	}
	return nil
}

// ListByUser returns the user's donations, newest first.
func (r *DonationRepositoryPG) ListByUser(ctx context.Context, userID string, page domain.Page) ([]domain.Donation, int, error) {
	var total int
	if err := r.sql.QueryRow(ctx, sqlinline.QCountDonationsByUser, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count user donations: %w", err)
	}
	rows, err := r.sql.Query(ctx, sqlinline.QListDonationsByUser, userID, page.Size, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list user donations: %w", err)
	}
	items, err := collectDonations(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ListByCampaign returns a campaign's donations, optionally narrowed to one status.
func (r *DonationRepositoryPG) ListByCampaign(ctx context.Context, campaignID string, status domain.DonationStatus, page domain.Page) ([]domain.Donation, int, error) {
	if !validUUID(campaignID) {
		return nil, 0, domain.ErrNotFound
	}
	var total int
	if err := r.sql.QueryRow(ctx, sqlinline.QCountDonationsByCampaign, campaignID, string(status)).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count campaign donations: %w", err)
	}
	rows, err := r.sql.Query(ctx, sqlinline.QListDonationsByCampaign, campaignID, string(status), page.Size, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list campaign donations: %w", err)
	}
	items, err := collectDonations(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Stats aggregates completed donations, net of refunds.
func (r *DonationRepositoryPG) Stats(ctx context.Context, filter domain.DonationStatsFilter) (*domain.DonationStats, error) {
	if filter.CampaignID != "" && !validUUID(filter.CampaignID) {
		return nil, domain.ErrNotFound
	}
	stats := &domain.DonationStats{}
	if err := r.sql.QueryRow(ctx, sqlinline.QDonationStatsTotals, filter.CampaignID, filter.Since).Scan(
		&stats.TotalDonations,
		&stats.TotalAmount,
		&stats.UniqueDonors,
	); err != nil {
		return nil, fmt.Errorf("donation stats: %w", err)
	}
	if stats.TotalDonations > 0 {
		stats.AverageDonation = stats.TotalAmount / int64(stats.TotalDonations)
	}

	methodRows, err := r.sql.Query(ctx, sqlinline.QDonationStatsByMethod, filter.CampaignID, filter.Since)
	if err != nil {
		return nil, fmt.Errorf("donation stats by method: %w", err)
	}
	defer methodRows.Close()
	for methodRows.Next() {
		var (
			mt     domain.MethodTotal
			method string
		)
		if err := methodRows.Scan(&method, &mt.Count, &mt.TotalAmount); err != nil {
			return nil, err
		}
		mt.Method = domain.PaymentMethod(method)
		stats.ByPaymentMethod = append(stats.ByPaymentMethod, mt)
	}
	if err := methodRows.Err(); err != nil {
		return nil, err
	}

	dailyRows, err := r.sql.Query(ctx, sqlinline.QDonationStatsDaily, filter.CampaignID, filter.Since)
	if err != nil {
		return nil, fmt.Errorf("donation stats daily: %w", err)
	}
	defer dailyRows.Close()
	for dailyRows.Next() {
		var dt domain.DailyTotal
		if err := dailyRows.Scan(&dt.Day, &dt.Count, &dt.TotalAmount); err != nil {
			return nil, err
		}
		stats.Daily = append(stats.Daily, dt)
	}
	if err := dailyRows.Err(); err != nil {
		return nil, err
	}
	return stats, nil
}

func collectDonations(rows pgx.Rows) ([]domain.Donation, error) {
	defer rows.Close()
	var items []domain.Donation
	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan donation: %w", err)
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func scanDonation(row pgx.Row) (*domain.Donation, error) {
	var (
		d        domain.Donation
		status   string
		method   string
		metadata []byte
	)
	if err := row.Scan(
		&d.ID,
		&d.CampaignID,
		&d.UserID,
		&d.Amount,
		&d.Currency,
		&status,
		&method,
		&d.ExternalSessionID,
		&d.ExternalPaymentIntentID,
		&d.TransactionID,
		&d.ReceiptID,
		&d.RefundAmount,
		&d.RefundReason,
		&d.DonorName,
		&d.DonorEmail,
		&d.IsAnonymous,
		&d.Message,
		&metadata,
		&d.CreatedAt,
		&d.ProcessedAt,
		&d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	d.Status = domain.DonationStatus(status)
	d.PaymentMethod = domain.PaymentMethod(method)
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &d.Metadata); err != nil {
			return nil, fmt.Errorf("decode donation metadata: %w", err)
		}
	}
	return &d, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

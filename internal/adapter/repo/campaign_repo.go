package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"ecofund/internal/domain"
	"ecofund/internal/infra"
	"ecofund/internal/sqlinline"
)

// CampaignRepositoryPG implements domain.CampaignRepository backed by PostgreSQL.
type CampaignRepositoryPG struct {
	sql infra.TxExecutor
}

// NewCampaignRepository creates a new CampaignRepositoryPG.
func NewCampaignRepository(sql infra.TxExecutor) *CampaignRepositoryPG {
	return &CampaignRepositoryPG{sql: sql}
}

// Create inserts a campaign. The aggregate columns start at zero.
func (r *CampaignRepositoryPG) Create(ctx context.Context, c *domain.Campaign) error {
	if c.ID == "" {
		c.ID = newID()
	}
	row := r.sql.QueryRow(ctx, sqlinline.QInsertCampaign,
		c.ID,
		c.Title,
		c.ShortDescription,
		c.Description,
		c.Category,
		c.GoalAmount,
		c.Currency,
		string(c.Status),
		c.StartDate,
		c.EndDate,
		c.Location,
		c.Organizer,
		c.OrganizerEmail,
		c.ImageURL,
		c.Featured,
		c.Urgent,
		c.Tags,
		c.CreatedBy,
	)
	if err := row.Scan(&c.CurrentAmount, &c.DonorCount, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if constraint, ok := infra.CheckViolation(err); ok {
			return fmt.Errorf("%w: campaign violates %s", domain.ErrInvalidInput, constraint)
		}
		return fmt.Errorf("insert campaign: %w", err)
	}
	return nil
}

// Update writes the descriptive fields of a campaign. Aggregates are left
// untouched and refreshed on c from the stored row.
func (r *CampaignRepositoryPG) Update(ctx context.Context, c *domain.Campaign) error {
	row := r.sql.QueryRow(ctx, sqlinline.QUpdateCampaign,
		c.ID,
		c.Title,
		c.ShortDescription,
		c.Description,
		c.Category,
		c.GoalAmount,
		string(c.Status),
		c.StartDate,
		c.EndDate,
		c.Location,
		c.Organizer,
		c.OrganizerEmail,
		c.ImageURL,
		c.Featured,
		c.Urgent,
		c.Tags,
	)
	if err := row.Scan(&c.CurrentAmount, &c.DonorCount, &c.UpdatedAt); err != nil {
		if infra.IsNoRows(err) {
			return domain.ErrNotFound
		}
		if constraint, ok := infra.CheckViolation(err); ok {
			return fmt.Errorf("%w: campaign violates %s", domain.ErrInvalidInput, constraint)
		}
		return fmt.Errorf("update campaign: %w", err)
	}
	return nil
}

// GetByID fetches a campaign by UUID.
func (r *CampaignRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Campaign, error) {
	if !validUUID(id) {
		return nil, domain.ErrNotFound
	}
	c, err := scanCampaign(r.sql.QueryRow(ctx, sqlinline.QSelectCampaignByID, id))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select campaign: %w", err)
	}
	return c, nil
}

// List returns one page of campaigns matching filter and the total match count.
func (r *CampaignRepositoryPG) List(ctx context.Context, filter domain.CampaignFilter) ([]domain.Campaign, int, error) {
	var total int
	if err := r.sql.QueryRow(ctx, sqlinline.QCountCampaigns,
		filter.Category,
		string(filter.Status),
		filter.Featured,
		filter.Urgent,
		filter.Search,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count campaigns: %w", err)
	}

	rows, err := r.sql.Query(ctx, sqlinline.QListCampaigns,
		filter.Category,
		string(filter.Status),
		filter.Featured,
		filter.Urgent,
		filter.Search,
		filter.SortBy,
		filter.SortDesc,
		filter.Page.Size,
		filter.Page.Offset(),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Campaign, 0, filter.Page.Size)
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan campaign: %w", err)
		}
		items = append(items, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ListIDs returns every campaign id, oldest first.
func (r *CampaignRepositoryPG) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListCampaignIDs)
	if err != nil {
		return nil, fmt.Errorf("list campaign ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Delete removes a campaign unless completed or refunded donations reference it.
func (r *CampaignRepositoryPG) Delete(ctx context.Context, id string) error {
	if !validUUID(id) {
		return domain.ErrNotFound
	}
	return r.sql.InTx(ctx, func(tx infra.SQLExecutor) error {
		if err := lockCampaign(ctx, tx, id); err != nil {
			return err
		}
		var deleted string
		if err := tx.QueryRow(ctx, sqlinline.QDeleteCampaign, id).Scan(&deleted); err != nil {
			if infra.IsNoRows(err) {
				return fmt.Errorf("%w: campaign has completed donations; cancel it instead", domain.ErrInvalidState)
			}
			return fmt.Errorf("delete campaign: %w", err)
		}
		return nil
	})
}

// RecomputeTotals locks the campaign row and rebuilds its aggregate from the
// completed donations in the same transaction.
func (r *CampaignRepositoryPG) RecomputeTotals(ctx context.Context, id string) (*domain.Campaign, error) {
	if !validUUID(id) {
		return nil, domain.ErrNotFound
	}
	var out *domain.Campaign
	err := r.sql.InTx(ctx, func(tx infra.SQLExecutor) error {
		if err := lockCampaign(ctx, tx, id); err != nil {
			return err
		}
		c, err := scanCampaign(tx.QueryRow(ctx, sqlinline.QRecomputeCampaignTotals, id))
		if err != nil {
			return fmt.Errorf("recompute campaign totals: %w", err)
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Stats summarizes all campaigns.
func (r *CampaignRepositoryPG) Stats(ctx context.Context) (*domain.CampaignStats, error) {
	stats := &domain.CampaignStats{}
	if err := r.sql.QueryRow(ctx, sqlinline.QCampaignStats).Scan(
		&stats.TotalCampaigns,
		&stats.ActiveCampaigns,
		&stats.TotalRaised,
		&stats.TotalDonors,
	); err != nil {
		return nil, fmt.Errorf("campaign stats: %w", err)
	}

	rows, err := r.sql.Query(ctx, sqlinline.QCampaignCategoryTotals)
	if err != nil {
		return nil, fmt.Errorf("campaign category totals: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var ct domain.CategoryTotal
		if err := rows.Scan(&ct.Category, &ct.Campaigns, &ct.Raised); err != nil {
			return nil, err
		}
		stats.ByCategory = append(stats.ByCategory, ct)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return stats, nil
}

// AddUpdate stores a progress update and touches the campaign in one
// statement.
func (r *CampaignRepositoryPG) AddUpdate(ctx context.Context, u *domain.CampaignUpdate) error {
	if !validUUID(u.CampaignID) {
		return domain.ErrNotFound
	}
	if u.ID == "" {
		u.ID = newID()
	}
	err := r.sql.QueryRow(ctx, sqlinline.QInsertCampaignUpdate,
		u.ID,
		u.CampaignID,
		u.Title,
		u.Content,
		u.ImageURL,
		u.PostedBy,
	).Scan(&u.PostedAt)
	if err != nil {
		if infra.IsNoRows(err) || infra.ForeignKeyViolation(err) {
			return domain.ErrNotFound
		}
		if constraint, ok := infra.CheckViolation(err); ok {
			return fmt.Errorf("%w: campaign update violates %s", domain.ErrInvalidInput, constraint)
		}
		return fmt.Errorf("insert campaign update: %w", err)
	}
	return nil
}

// ListUpdates returns the newest updates of a campaign.
func (r *CampaignRepositoryPG) ListUpdates(ctx context.Context, campaignID string, limit int) ([]domain.CampaignUpdate, error) {
	if !validUUID(campaignID) {
		return nil, domain.ErrNotFound
	}
	if limit <= 0 {
		return nil, nil
	}
	rows, err := r.sql.Query(ctx, sqlinline.QListCampaignUpdates, campaignID, limit)
	if err != nil {
		return nil, fmt.Errorf("list campaign updates: %w", err)
	}
	defer rows.Close()

	updates := make([]domain.CampaignUpdate, 0, limit)
	for rows.Next() {
		var u domain.CampaignUpdate
		if err := rows.Scan(&u.ID, &u.CampaignID, &u.Title, &u.Content, &u.ImageURL, &u.PostedBy, &u.PostedAt); err != nil {
			return nil, fmt.Errorf("scan campaign update: %w", err)
		}
		updates = append(updates, u)
	}
	return updates, rows.Err()
}

func lockCampaign(ctx context.Context, tx infra.SQLExecutor, id string) error {
	var locked string
	if err := tx.QueryRow(ctx, sqlinline.QLockCampaign, id).Scan(&locked); err != nil {
		if infra.IsNoRows(err) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("lock campaign: %w", err)
	}
	return nil
}

func scanCampaign(row pgx.Row) (*domain.Campaign, error) {
	var (
		c      domain.Campaign
		status string
	)
	if err := row.Scan(
		&c.ID,
		&c.Title,
		&c.ShortDescription,
		&c.Description,
		&c.Category,
		&c.GoalAmount,
		&c.CurrentAmount,
		&c.DonorCount,
		&c.Currency,
		&status,
		&c.StartDate,
		&c.EndDate,
		&c.Location,
		&c.Organizer,
		&c.OrganizerEmail,
		&c.ImageURL,
		&c.Featured,
		&c.Urgent,
		&c.Tags,
		&c.CreatedBy,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	c.Status = domain.CampaignStatus(status)
	return &c, nil
}

// Package repository provides PostgreSQL persistence for leads.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sales_command_center/internal/leads/domain"
	"sales_command_center/platform/apperr"
)

// Repository persists leads in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a lead repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const leadColumns = `
	id, external_id, category, stage, assigned_agent_id, estimated_value,
	customer_name, customer_phone, address, technician_name, scheduled_at,
	notes, created_at, updated_at`

func scanLead(row pgx.Row) (*domain.Lead, error) {
	var lead domain.Lead
	err := row.Scan(
		&lead.ID,
		&lead.ExternalID,
		&lead.Category,
		&lead.Stage,
		&lead.AssignedAgentID,
		&lead.EstimatedValue,
		&lead.CustomerName,
		&lead.CustomerPhone,
		&lead.Address,
		&lead.TechnicianName,
		&lead.ScheduledAt,
		&lead.Notes,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &lead, nil
}

// CreateLeadParams holds the fields for inserting a new lead.
type CreateLeadParams struct {
	ExternalID      int64
	Category        string
	Stage           string
	AssignedAgentID *uuid.UUID
	EstimatedValue  float64
	CustomerName    string
	CustomerPhone   string
	Address         string
	TechnicianName  string
	ScheduledAt     *time.Time
	Notes           string
}

// Insert creates a lead. A duplicate external_id maps to a conflict error so
// callers can distinguish a lost idempotency race from a real failure.
func (r *Repository) Insert(ctx context.Context, params CreateLeadParams) (*domain.Lead, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO leads (
			external_id, category, stage, assigned_agent_id, estimated_value,
			customer_name, customer_phone, address, technician_name, scheduled_at, notes
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING`+leadColumns,
		params.ExternalID,
		params.Category,
		params.Stage,
		params.AssignedAgentID,
		params.EstimatedValue,
		params.CustomerName,
		params.CustomerPhone,
		params.Address,
		params.TechnicianName,
		params.ScheduledAt,
		params.Notes,
	)

	lead, err := scanLead(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.Conflict("lead already exists for this job").WithOp("leads.Insert")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to insert lead", err).WithOp("leads.Insert")
	}
	return lead, nil
}

// GetByID fetches one lead.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Lead, error) {
	row := r.pool.QueryRow(ctx, `SELECT`+leadColumns+` FROM leads WHERE id = $1`, id)
	lead, err := scanLead(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("lead not found").WithOp("leads.GetByID")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to fetch lead", err).WithOp("leads.GetByID")
	}
	return lead, nil
}

// ExistingExternalIDs returns which of the given source-system job IDs
// already have a lead. This is the intake idempotency gate: it runs before
// any side effect so a job seen in a previous cycle is skipped entirely.
func (r *Repository) ExistingExternalIDs(ctx context.Context, externalIDs []int64) (map[int64]struct{}, error) {
	existing := make(map[int64]struct{}, len(externalIDs))
	if len(externalIDs) == 0 {
		return existing, nil
	}

	rows, err := r.pool.Query(ctx, `SELECT external_id FROM leads WHERE external_id = ANY($1)`, externalIDs)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to check existing leads", err).WithOp("leads.ExistingExternalIDs")
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to scan external id", err).WithOp("leads.ExistingExternalIDs")
		}
		existing[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to read existing leads", err).WithOp("leads.ExistingExternalIDs")
	}
	return existing, nil
}

// OpenLeads returns leads that have not reached a terminal stage, oldest
// first. Reconciliation walks this set every cycle.
func (r *Repository) OpenLeads(ctx context.Context) ([]domain.Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+leadColumns+`
		FROM leads
		WHERE stage <> $1
		ORDER BY created_at ASC`,
		domain.StageCompleted,
	)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list open leads", err).WithOp("leads.OpenLeads")
	}
	defer rows.Close()

	return collectLeads(rows, "leads.OpenLeads")
}

// RecentUnadvanced returns the newest leads still in the entry stages,
// capped at limit. The retroactive correction pass re-derives the advisor
// for these; the cap bounds external call volume per cycle.
func (r *Repository) RecentUnadvanced(ctx context.Context, limit int) ([]domain.Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+leadColumns+`
		FROM leads
		WHERE stage IN ($1, $2)
		ORDER BY created_at DESC
		LIMIT $3`,
		domain.StageNew,
		domain.StageAssigned,
		limit,
	)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list unadvanced leads", err).WithOp("leads.RecentUnadvanced")
	}
	defer rows.Close()

	return collectLeads(rows, "leads.RecentUnadvanced")
}

// UpdateStage writes a new stage. Callers are responsible for the
// forward-progress check; this method just persists.
func (r *Repository) UpdateStage(ctx context.Context, id uuid.UUID, stage string) error {
	return r.exec(ctx, "leads.UpdateStage",
		`UPDATE leads SET stage = $2, updated_at = now() WHERE id = $1`, id, stage)
}

// UpdateEstimatedValue writes the estimated value independently of stage.
func (r *Repository) UpdateEstimatedValue(ctx context.Context, id uuid.UUID, value float64) error {
	return r.exec(ctx, "leads.UpdateEstimatedValue",
		`UPDATE leads SET estimated_value = $2, updated_at = now() WHERE id = $1`, id, value)
}

// UpdateAssignedAgent sets the advisor on a lead.
func (r *Repository) UpdateAssignedAgent(ctx context.Context, id uuid.UUID, agentID uuid.UUID) error {
	return r.exec(ctx, "leads.UpdateAssignedAgent",
		`UPDATE leads SET assigned_agent_id = $2, updated_at = now() WHERE id = $1`, id, agentID)
}

// CategoryCounts tallies leads created since the cutoff by category.
func (r *Repository) CategoryCounts(ctx context.Context, since time.Time) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT category, COUNT(*)
		FROM leads
		WHERE created_at >= $1
		GROUP BY category`,
		since,
	)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to count leads", err).WithOp("leads.CategoryCounts")
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to scan count", err).WithOp("leads.CategoryCounts")
		}
		counts[category] = count
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to read counts", err).WithOp("leads.CategoryCounts")
	}
	return counts, nil
}

// StageCounts tallies all leads by pipeline stage.
func (r *Repository) StageCounts(ctx context.Context) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT stage, COUNT(*) FROM leads GROUP BY stage`)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to count stages", err).WithOp("leads.StageCounts")
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var stage string
		var count int
		if err := rows.Scan(&stage, &count); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to scan count", err).WithOp("leads.StageCounts")
		}
		counts[stage] = count
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to read counts", err).WithOp("leads.StageCounts")
	}
	return counts, nil
}

// SoldValueSince sums the estimated value of leads sold on or after the cutoff.
func (r *Repository) SoldValueSince(ctx context.Context, since time.Time) (float64, error) {
	var total float64
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(estimated_value), 0)
		FROM leads
		WHERE stage IN ($1, $2, $3) AND updated_at >= $4`,
		domain.StageSold,
		domain.StageInstallScheduled,
		domain.StageCompleted,
		since,
	).Scan(&total)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "failed to sum sold value", err).WithOp("leads.SoldValueSince")
	}
	return total, nil
}

func (r *Repository) exec(ctx context.Context, op, sql string, args ...interface{}) error {
	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to update lead", err).WithOp(op)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("lead not found").WithOp(op)
	}
	return nil
}

func collectLeads(rows pgx.Rows, op string) ([]domain.Lead, error) {
	var leads []domain.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to scan lead", err).WithOp(op)
		}
		leads = append(leads, *lead)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to read leads", err).WithOp(op)
	}
	return leads, nil
}

func isUniqueViolation(err error) bool {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}

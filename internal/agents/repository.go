package agents

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sales_command_center/internal/leads/domain"
	"sales_command_center/platform/apperr"
)

// Repository persists agents in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an agent repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const agentColumns = `
	id, name, COALESCE(email, ''), COALESCE(phone, ''), is_active,
	marketed_queue_pos, tgl_queue_pos, created_at, updated_at`

func scanAgent(row pgx.Row) (*Agent, error) {
	var agent Agent
	err := row.Scan(
		&agent.ID,
		&agent.Name,
		&agent.Email,
		&agent.Phone,
		&agent.IsActive,
		&agent.MarketedQueuePos,
		&agent.TGLQueuePos,
		&agent.CreatedAt,
		&agent.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &agent, nil
}

// queueColumn maps a lead category to its rotation position column.
func queueColumn(category string) (string, error) {
	switch category {
	case domain.CategoryMarketed:
		return "marketed_queue_pos", nil
	case domain.CategoryTechGenerated:
		return "tgl_queue_pos", nil
	default:
		return "", apperr.BadRequest("unknown rotation category: " + category)
	}
}

// ActiveInQueue returns the active agents enrolled in the category's
// rotation, ordered by queue position. Position 0 is next up.
func (r *Repository) ActiveInQueue(ctx context.Context, category string) ([]Agent, error) {
	column, err := queueColumn(category)
	if err != nil {
		return nil, err
	}

	// column comes from the fixed map above, never from input.
	query := fmt.Sprintf(`
		SELECT%s
		FROM agents
		WHERE is_active AND %s IS NOT NULL
		ORDER BY %s ASC`, agentColumns, column, column)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list rotation queue", err).WithOp("agents.ActiveInQueue")
	}
	defer rows.Close()

	var queue []Agent
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to scan agent", err).WithOp("agents.ActiveInQueue")
		}
		queue = append(queue, *agent)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to read rotation queue", err).WithOp("agents.ActiveInQueue")
	}
	return queue, nil
}

// ActiveAgents returns every active agent regardless of queue enrollment.
// Technician-name matching draws from this set.
func (r *Repository) ActiveAgents(ctx context.Context) ([]Agent, error) {
	rows, err := r.pool.Query(ctx, `SELECT`+agentColumns+` FROM agents WHERE is_active ORDER BY name ASC`)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list agents", err).WithOp("agents.ActiveAgents")
	}
	defer rows.Close()

	var agents []Agent
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to scan agent", err).WithOp("agents.ActiveAgents")
		}
		agents = append(agents, *agent)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to read agents", err).WithOp("agents.ActiveAgents")
	}
	return agents, nil
}

// RewritePositions writes the category's queue order in one transaction, so a
// concurrent reader never observes a half-rotated queue.
func (r *Repository) RewritePositions(ctx context.Context, category string, ordered []uuid.UUID) error {
	column, err := queueColumn(category)
	if err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to begin rotation rewrite", err).WithOp("agents.RewritePositions")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := fmt.Sprintf(`UPDATE agents SET %s = $2, updated_at = now() WHERE id = $1`, column)
	for position, id := range ordered {
		if _, err := tx.Exec(ctx, query, id, position); err != nil {
			return apperr.Wrap(apperr.KindInternal, "failed to write queue position", err).WithOp("agents.RewritePositions")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to commit rotation rewrite", err).WithOp("agents.RewritePositions")
	}
	return nil
}

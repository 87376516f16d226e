// Package intake is the orchestrator: it discovers new work items in the
// source system, assigns them to advisors, and reconciles open leads against
// the source's ground truth each cycle.
package intake

import (
	"context"
	"time"

	"github.com/google/uuid"

	"sales_command_center/internal/agents"
	"sales_command_center/internal/leads/domain"
	"sales_command_center/internal/leads/repository"
	"sales_command_center/internal/notify"
	"sales_command_center/internal/servicetitan"
)

// Source is the read surface over the field-service platform the engine
// needs. *servicetitan.Client satisfies it.
type Source interface {
	FetchRecentJobs(ctx context.Context, since time.Time) ([]servicetitan.Job, error)
	JobByID(ctx context.Context, jobID int64) (*servicetitan.Job, error)
	FetchJobDetail(ctx context.Context, job *servicetitan.Job) *servicetitan.JobDetail
	EstimatesForJob(ctx context.Context, jobID int64) ([]servicetitan.Estimate, error)
	FindFollowUpJob(ctx context.Context, customerID, excludeJobID, salesJobTypeID int64) (*servicetitan.Job, error)
	FindNewerJobAtCustomer(ctx context.Context, customerID int64, after time.Time, excludeJobID, excludeJobTypeID int64) (*servicetitan.Job, error)
	ResolveTagTypeID(ctx context.Context, name string) (int64, error)
}

// LeadStore is the lead persistence surface. *repository.Repository
// satisfies it.
type LeadStore interface {
	ExistingExternalIDs(ctx context.Context, externalIDs []int64) (map[int64]struct{}, error)
	Insert(ctx context.Context, params repository.CreateLeadParams) (*domain.Lead, error)
	OpenLeads(ctx context.Context) ([]domain.Lead, error)
	RecentUnadvanced(ctx context.Context, limit int) ([]domain.Lead, error)
	UpdateStage(ctx context.Context, id uuid.UUID, stage string) error
	UpdateEstimatedValue(ctx context.Context, id uuid.UUID, value float64) error
	UpdateAssignedAgent(ctx context.Context, id uuid.UUID, agentID uuid.UUID) error
	CategoryCounts(ctx context.Context, since time.Time) (map[string]int, error)
	StageCounts(ctx context.Context) (map[string]int, error)
	SoldValueSince(ctx context.Context, since time.Time) (float64, error)
}

// AgentQueues is the rotation surface. *agents.Rotation satisfies it.
type AgentQueues interface {
	CurrentOrder(ctx context.Context, category string) ([]agents.Agent, error)
	AssignFallback(ctx context.Context, category string, commit func(agents.Agent) error) (*agents.Agent, error)
}

// Notifier delivers best-effort alerts. *notify.Notifier satisfies it.
type Notifier interface {
	NotifyNewLead(ctx context.Context, notification notify.LeadNotification) notify.Delivery
	SendDailySummary(ctx context.Context, summary notify.DailySummary) notify.Delivery
}

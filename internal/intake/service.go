package intake

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"sales_command_center/internal/agents"
	"sales_command_center/internal/leads/domain"
	"sales_command_center/internal/leads/repository"
	"sales_command_center/internal/notify"
	"sales_command_center/internal/servicetitan"
	"sales_command_center/platform/apperr"
	"sales_command_center/platform/config"
	"sales_command_center/platform/logger"
	"sales_command_center/platform/phone"
)

// Engine runs the poll cycle: discovery, assignment, retroactive advisor
// correction, and stage reconciliation. It holds no state between cycles;
// everything lives in the store and the rotation positions.
type Engine struct {
	cfg      config.IntakeConfig
	source   Source
	store    LeadStore
	queues   AgentQueues
	notifier Notifier
	log      *logger.Logger
}

// NewEngine wires the orchestrator.
func NewEngine(cfg config.IntakeConfig, source Source, store LeadStore, queues AgentQueues, notifier Notifier, log *logger.Logger) *Engine {
	return &Engine{
		cfg:      cfg,
		source:   source,
		store:    store,
		queues:   queues,
		notifier: notifier,
		log:      log,
	}
}

// RunCycle executes one poll cycle. A non-nil error means the cycle could
// not run at all (auth or initial fetch failure) and the report is nil;
// item-scoped failures are aggregated inside the report instead.
func (e *Engine) RunCycle(ctx context.Context) (*CycleReport, error) {
	report := newCycleReport(e.cfg.GetErrorReportCap())
	started := time.Now()

	tglTagID, err := e.source.ResolveTagTypeID(ctx, e.cfg.GetTGLTagName())
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, "cannot resolve turnover tag", err).WithOp("intake.RunCycle")
	}
	rules := newClassifyRules(e.cfg.GetMarketedBusinessUnitIDs(), e.cfg.GetSalesJobTypeID(), tglTagID)

	since := time.Now().Add(-e.cfg.GetLookbackWindow())
	jobs, err := e.source.FetchRecentJobs(ctx, since)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, "cannot fetch recent jobs", err).WithOp("intake.RunCycle")
	}

	e.intakeNewJobs(ctx, jobs, rules, report)
	e.correctAssignments(ctx, report)
	e.reconcileOpenLeads(ctx, report)

	report.DurationMs = time.Since(started).Milliseconds()
	e.log.WithContext(ctx).CycleCompleted(
		report.ImportedMarketed,
		report.ImportedTechGenerated,
		report.StageUpdates+report.ValueUpdates,
		report.Corrected,
		report.errorCount(),
		time.Since(started),
	)
	return report, nil
}

// intakeNewJobs classifies the batch, drops already-imported jobs, and runs
// each genuinely new item independently. The idempotency gate runs before
// any enrichment, assignment, or notification work.
func (e *Engine) intakeNewJobs(ctx context.Context, jobs []servicetitan.Job, rules classifyRules, report *CycleReport) {
	type candidate struct {
		job      servicetitan.Job
		category string
	}

	var candidates []candidate
	ids := make([]int64, 0, len(jobs))
	for _, job := range jobs {
		category, ok := rules.classify(job)
		if !ok {
			continue
		}
		candidates = append(candidates, candidate{job: job, category: category})
		ids = append(ids, job.ID)
	}
	if len(candidates) == 0 {
		return
	}

	existing, err := e.store.ExistingExternalIDs(ctx, ids)
	if err != nil {
		// Without the gate we cannot intake safely; skip the whole batch and
		// let the next cycle retry.
		report.addError(0, PhaseIntake, err)
		return
	}

	concurrency := e.cfg.GetIntakeConcurrency()
	if concurrency <= 0 {
		concurrency = 1
	}
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(concurrency)

	for _, c := range candidates {
		if _, known := existing[c.job.ID]; known {
			report.countSkipped()
			continue
		}
		c := c
		group.Go(func() error {
			if err := e.intakeOne(groupCtx, c.job, c.category, report); err != nil {
				report.addError(c.job.ID, PhaseIntake, err)
			}
			// Item failures never cancel siblings.
			return nil
		})
	}
	_ = group.Wait()
}

// intakeOne imports a single new job: enrich, resolve the advisor, insert at
// Assigned, notify. Rotation advances only on the fallback path and only
// after the insert commits.
func (e *Engine) intakeOne(ctx context.Context, job servicetitan.Job, category string, report *CycleReport) error {
	detail := e.source.FetchJobDetail(ctx, &job)

	queue, err := e.queues.CurrentOrder(ctx, category)
	if err != nil {
		return err
	}

	params := repository.CreateLeadParams{
		ExternalID:     job.ID,
		Category:       category,
		Stage:          domain.StageAssigned,
		CustomerName:   detail.CustomerName,
		CustomerPhone:  phone.NormalizeE164(detail.CustomerPhone),
		Address:        detail.Address,
		TechnicianName: detail.TechnicianName,
		Notes:          job.Summary,
	}
	if !detail.ScheduledAt.IsZero() {
		scheduled := detail.ScheduledAt
		params.ScheduledAt = &scheduled
	}

	var assigned *agents.Agent
	if match, ok := servicetitan.MatchAgentByTechName(detail.TechnicianName, queueCandidates(queue)); ok {
		// Externally resolved: the source already shows who is handling it,
		// so rotation order stays put.
		agent := findAgent(queue, match)
		params.AssignedAgentID = &agent.ID
		if _, err := e.store.Insert(ctx, params); err != nil {
			if apperr.Is(err, apperr.KindConflict) {
				report.countSkipped()
				return nil
			}
			return err
		}
		assigned = &agent
	} else {
		agent, err := e.queues.AssignFallback(ctx, category, func(next agents.Agent) error {
			params.AssignedAgentID = &next.ID
			_, insertErr := e.store.Insert(ctx, params)
			return insertErr
		})
		if err != nil {
			if apperr.Is(err, apperr.KindConflict) {
				report.countSkipped()
				return nil
			}
			return err
		}
		if agent == nil {
			return apperr.New(apperr.KindInternal, fmt.Sprintf("no agent available in %s queue", category))
		}
		assigned = agent
	}

	delivery := e.notifier.NotifyNewLead(ctx, notify.LeadNotification{
		Category:       category,
		JobNumber:      job.JobNumber,
		CustomerName:   detail.CustomerName,
		CustomerPhone:  detail.CustomerPhone,
		Address:        detail.Address,
		TechnicianName: detail.TechnicianName,
		AgentName:      assigned.Name,
		ScheduledAt:    detail.ScheduledAt,
		Summary:        job.Summary,
		NextUp:         nextUpLine(ctx, e.queues, category, assigned.ID),
	})
	report.countImport(category, delivery.Delivered)
	return nil
}

// nextUpLine names who is next in the rotation after this assignment, for
// the notification footer. Best-effort; an empty string drops the footer.
func nextUpLine(ctx context.Context, queues AgentQueues, category string, justAssigned uuid.UUID) string {
	order, err := queues.CurrentOrder(ctx, category)
	if err != nil {
		return ""
	}
	for _, agent := range order {
		if agent.ID != justAssigned {
			return "Next up: " + agent.Name
		}
	}
	return ""
}

func queueCandidates(queue []agents.Agent) []servicetitan.AgentCandidate {
	candidates := make([]servicetitan.AgentCandidate, len(queue))
	for i, agent := range queue {
		candidates[i] = servicetitan.AgentCandidate{ID: agent.ID, Name: agent.Name}
	}
	return candidates
}

func findAgent(queue []agents.Agent, match servicetitan.AgentCandidate) agents.Agent {
	for _, agent := range queue {
		if agent.ID == match.ID {
			return agent
		}
	}
	return agents.Agent{ID: match.ID, Name: match.Name}
}

// correctAssignments re-derives the advisor for a bounded batch of leads
// still in the entry stages, repairing assignments the office changed after
// import. This pass never touches stage and never notifies.
func (e *Engine) correctAssignments(ctx context.Context, report *CycleReport) {
	batch, err := e.store.RecentUnadvanced(ctx, e.cfg.GetCorrectionBatchSize())
	if err != nil {
		report.addError(0, PhaseCorrection, err)
		return
	}

	for _, lead := range batch {
		corrected, err := e.correctOne(ctx, lead)
		if err != nil {
			report.addError(lead.ExternalID, PhaseCorrection, err)
			continue
		}
		if corrected {
			report.countCorrected()
		}
	}
}

func (e *Engine) correctOne(ctx context.Context, lead domain.Lead) (bool, error) {
	job, err := e.source.JobByID(ctx, lead.ExternalID)
	if err != nil {
		return false, err
	}

	// For turnover leads the quote is built on the follow-up sales job, so
	// that job's technician is the advisor actually working the lead.
	target := job
	if lead.Category == categoryTechGenerated {
		followUp, err := e.source.FindFollowUpJob(ctx, job.CustomerID, job.ID, e.cfg.GetSalesJobTypeID())
		if err != nil {
			return false, err
		}
		if followUp == nil {
			return false, nil
		}
		target = followUp
	}

	detail := e.source.FetchJobDetail(ctx, target)
	if detail.TechnicianName == "" {
		return false, nil
	}

	queue, err := e.queues.CurrentOrder(ctx, lead.Category)
	if err != nil {
		return false, err
	}
	match, ok := servicetitan.MatchAgentByTechName(detail.TechnicianName, queueCandidates(queue))
	if !ok {
		return false, nil
	}
	if lead.AssignedAgentID != nil && *lead.AssignedAgentID == match.ID {
		return false, nil
	}
	if err := e.store.UpdateAssignedAgent(ctx, lead.ID, match.ID); err != nil {
		return false, err
	}
	return true, nil
}

// reconcileOpenLeads walks every open lead and recomputes stage and value
// from the source's estimates and jobs. Each lead is independent; one
// failure is recorded and the walk continues.
func (e *Engine) reconcileOpenLeads(ctx context.Context, report *CycleReport) {
	open, err := e.store.OpenLeads(ctx)
	if err != nil {
		report.addError(0, PhaseReconcile, err)
		return
	}

	for _, lead := range open {
		outcome, err := e.reconcileOne(ctx, lead)
		if err != nil {
			report.addError(lead.ExternalID, PhaseReconcile, err)
			continue
		}
		if outcome.stage != "" {
			if err := e.store.UpdateStage(ctx, lead.ID, outcome.stage); err != nil {
				report.addError(lead.ExternalID, PhaseReconcile, err)
				continue
			}
			report.countStageUpdate()
		}
		if outcome.value != 0 {
			if err := e.store.UpdateEstimatedValue(ctx, lead.ID, outcome.value); err != nil {
				report.addError(lead.ExternalID, PhaseReconcile, err)
				continue
			}
			report.countValueUpdate()
		}
	}
}

// reconcileOne decides the writes for one lead without performing them.
func (e *Engine) reconcileOne(ctx context.Context, lead domain.Lead) (reconcileOutcome, error) {
	job, err := e.source.JobByID(ctx, lead.ExternalID)
	if err != nil {
		return reconcileOutcome{}, err
	}

	// The quote for a turnover lead lives on the follow-up sales job, never
	// on the technician's original job.
	estimateJobID := job.ID
	if lead.Category == categoryTechGenerated {
		followUp, err := e.source.FindFollowUpJob(ctx, job.CustomerID, job.ID, e.cfg.GetSalesJobTypeID())
		if err != nil {
			return reconcileOutcome{}, err
		}
		if followUp == nil {
			// No sales job opened yet; nothing to reconcile this cycle.
			return reconcileOutcome{}, nil
		}
		estimateJobID = followUp.ID
	}

	estimates, err := e.source.EstimatesForJob(ctx, estimateJobID)
	if err != nil {
		return reconcileOutcome{}, err
	}

	sold := soldEstimate(estimates)
	var newerJob *servicetitan.Job
	if sold != nil && domain.StageIndex(lead.Stage) < domain.StageIndex(domain.StageInstallScheduled) {
		cutoff := sold.SoldOn.Add(-installJobLookback)
		newerJob, err = e.source.FindNewerJobAtCustomer(ctx, job.CustomerID, cutoff, estimateJobID, e.cfg.GetSalesJobTypeID())
		if err != nil {
			return reconcileOutcome{}, err
		}
	}

	candidate, have := deriveCandidateStage(sold != nil, len(estimates) > 0, newerJob)
	return decideReconcile(lead, candidate, have, bestEstimateValue(estimates)), nil
}

package intake

import (
	"context"
	"time"

	"sales_command_center/internal/leads/domain"
	"sales_command_center/internal/notify"
	"sales_command_center/platform/apperr"
)

// ImportResult summarizes a manual single-job import.
type ImportResult struct {
	ExternalID int64  `json:"externalId"`
	Category   string `json:"category"`
	Notified   bool   `json:"notified"`
}

// ImportJob pulls one job by ID and runs it through the normal intake path.
// The office uses this when a job predates the lookback window or was missed
// while a webhook was down. Category can be forced; when empty, the job must
// classify under the standard tag rules.
func (e *Engine) ImportJob(ctx context.Context, jobID int64, category string) (*ImportResult, error) {
	job, err := e.source.JobByID(ctx, jobID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, "cannot fetch job", err).WithOp("intake.ImportJob")
	}

	if category == "" {
		tglTagID, err := e.source.ResolveTagTypeID(ctx, e.cfg.GetTGLTagName())
		if err != nil {
			return nil, apperr.Wrap(apperr.KindUpstream, "cannot resolve turnover tag", err).WithOp("intake.ImportJob")
		}
		rules := newClassifyRules(e.cfg.GetMarketedBusinessUnitIDs(), e.cfg.GetSalesJobTypeID(), tglTagID)
		resolved, ok := rules.classify(*job)
		if !ok {
			return nil, apperr.Validation("job does not match any intake channel; pass a category explicitly")
		}
		category = resolved
	} else if !domain.IsKnownCategory(category) {
		return nil, apperr.Validation("unknown category: " + category)
	}

	existing, err := e.store.ExistingExternalIDs(ctx, []int64{job.ID})
	if err != nil {
		return nil, err
	}
	if _, known := existing[job.ID]; known {
		return nil, apperr.Conflict("lead already exists for this job")
	}

	report := newCycleReport(1)
	if err := e.intakeOne(ctx, *job, category, report); err != nil {
		return nil, err
	}
	if report.SkippedExisting > 0 {
		return nil, apperr.Conflict("lead already exists for this job")
	}
	return &ImportResult{
		ExternalID: job.ID,
		Category:   category,
		Notified:   report.NotificationsFailed == 0,
	}, nil
}

// RunDailySummary aggregates the last day of activity and posts the recap.
func (e *Engine) RunDailySummary(ctx context.Context) (notify.Delivery, error) {
	since := time.Now().Add(-24 * time.Hour)

	categoryCounts, err := e.store.CategoryCounts(ctx, since)
	if err != nil {
		return notify.Delivery{}, err
	}
	stageCounts, err := e.store.StageCounts(ctx)
	if err != nil {
		return notify.Delivery{}, err
	}
	soldValue, err := e.store.SoldValueSince(ctx, since)
	if err != nil {
		return notify.Delivery{}, err
	}

	return e.notifier.SendDailySummary(ctx, notify.DailySummary{
		Date:             time.Now(),
		NewMarketed:      categoryCounts[categoryMarketed],
		NewTechGenerated: categoryCounts[categoryTechGenerated],
		StageCounts:      stageCounts,
		SoldValue:        soldValue,
	}), nil
}

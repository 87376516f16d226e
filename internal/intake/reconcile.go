package intake

import (
	"time"

	"sales_command_center/internal/leads/domain"
	"sales_command_center/internal/servicetitan"
)

// How far before the sold timestamp a job may have been created and still
// count as the install job for that sale.
const installJobLookback = 24 * time.Hour

// soldEstimate returns the first sold estimate, or nil.
func soldEstimate(estimates []servicetitan.Estimate) *servicetitan.Estimate {
	for i := range estimates {
		if estimates[i].IsSold() {
			return &estimates[i]
		}
	}
	return nil
}

// bestEstimateValue picks the dollar amount to record: the sold estimate's
// total when one exists, else the highest quoted total.
func bestEstimateValue(estimates []servicetitan.Estimate) float64 {
	if sold := soldEstimate(estimates); sold != nil {
		return sold.Total()
	}
	var best float64
	for _, estimate := range estimates {
		if total := estimate.Total(); total > best {
			best = total
		}
	}
	return best
}

// deriveCandidateStage computes the stage the source system's state implies.
// newerJob is the job opened at the customer after the sale, already filtered
// by the caller; it only matters when an estimate is sold.
func deriveCandidateStage(sold bool, hasEstimates bool, newerJob *servicetitan.Job) (string, bool) {
	if sold {
		if newerJob != nil {
			if newerJob.JobStatus == servicetitan.JobStatusCompleted {
				return domain.StageCompleted, true
			}
			return domain.StageInstallScheduled, true
		}
		return domain.StageSold, true
	}
	if hasEstimates {
		return domain.StageQuoted, true
	}
	return "", false
}

// reconcileOutcome describes the writes one lead's reconciliation decided on.
// Empty stage / zero value means no write for that field.
type reconcileOutcome struct {
	stage string
	value float64
}

// decideReconcile applies the monotonicity guard to the candidate stage and
// the change check to the candidate value. Stage and value move
// independently: a regressed or equal stage candidate blocks the stage write
// only, never the value write.
func decideReconcile(lead domain.Lead, candidateStage string, haveCandidate bool, candidateValue float64) reconcileOutcome {
	var outcome reconcileOutcome
	if haveCandidate && domain.StageAdvances(lead.Stage, candidateStage) {
		outcome.stage = candidateStage
	}
	if candidateValue > 0 && candidateValue != lead.EstimatedValue {
		outcome.value = candidateValue
	}
	return outcome
}

package domain

// Pipeline stages form a fixed total order. A lead only ever moves forward
// through this order; reconciliation must never write a stage whose index is
// lower than or equal to the stored one.
const (
	StageNew              = "New"
	StageAssigned         = "Assigned"
	StageQuoted           = "Quoted"
	StageSold             = "Sold"
	StageInstallScheduled = "InstallScheduled"
	StageCompleted        = "Completed"
)

var stageOrder = map[string]int{
	StageNew:              0,
	StageAssigned:         1,
	StageQuoted:           2,
	StageSold:             3,
	StageInstallScheduled: 4,
	StageCompleted:        5,
}

// StageIndex returns the position of a stage in the pipeline order.
// Unknown stages return -1 so they never pass the forward-progress guard.
func StageIndex(stage string) int {
	index, ok := stageOrder[stage]
	if !ok {
		return -1
	}
	return index
}

// IsKnownStage reports whether the stage is part of the pipeline order.
func IsKnownStage(stage string) bool {
	_, ok := stageOrder[stage]
	return ok
}

// StageAdvances reports whether writing candidate over current would move the
// lead strictly forward. This is the monotonicity guard: equal or backward
// candidates must not be written.
func StageAdvances(current, candidate string) bool {
	candidateIdx := StageIndex(candidate)
	if candidateIdx < 0 {
		return false
	}
	return candidateIdx > StageIndex(current)
}

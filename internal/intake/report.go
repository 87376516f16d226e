package intake

import (
	"sync"
	"time"
)

// ItemError records one item-scoped failure inside a cycle.
type ItemError struct {
	ExternalID int64  `json:"externalId,omitempty"`
	Phase      string `json:"phase"`
	Message    string `json:"message"`
}

// Phases an item can fail in.
const (
	PhaseIntake     = "intake"
	PhaseCorrection = "correction"
	PhaseReconcile  = "reconcile"
)

// CycleReport is the JSON summary of one poll cycle. Item-scoped failures
// land in Errors, capped so a systematically broken upstream cannot balloon
// the response; cycle-fatal failures are returned as errors instead and
// never produce a report.
type CycleReport struct {
	StartedAt             time.Time   `json:"startedAt"`
	DurationMs            int64       `json:"durationMs"`
	ImportedMarketed      int         `json:"importedMarketed"`
	ImportedTechGenerated int         `json:"importedTechGenerated"`
	SkippedExisting       int         `json:"skippedExisting"`
	Corrected             int         `json:"corrected"`
	StageUpdates          int         `json:"stageUpdates"`
	ValueUpdates          int         `json:"valueUpdates"`
	NotificationsFailed   int         `json:"notificationsFailed"`
	Errors                []ItemError `json:"errors"`
	ErrorsTruncated       bool        `json:"errorsTruncated"`

	mu  sync.Mutex
	cap int
}

func newCycleReport(errorCap int) *CycleReport {
	if errorCap <= 0 {
		errorCap = 25
	}
	return &CycleReport{
		StartedAt: time.Now().UTC(),
		Errors:    []ItemError{},
		cap:       errorCap,
	}
}

func (r *CycleReport) addError(externalID int64, phase string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Errors) >= r.cap {
		r.ErrorsTruncated = true
		return
	}
	r.Errors = append(r.Errors, ItemError{ExternalID: externalID, Phase: phase, Message: err.Error()})
}

func (r *CycleReport) countImport(category string, delivered bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch category {
	case categoryMarketed:
		r.ImportedMarketed++
	case categoryTechGenerated:
		r.ImportedTechGenerated++
	}
	if !delivered {
		r.NotificationsFailed++
	}
}

func (r *CycleReport) countSkipped() {
	r.mu.Lock()
	r.SkippedExisting++
	r.mu.Unlock()
}

func (r *CycleReport) countCorrected() {
	r.mu.Lock()
	r.Corrected++
	r.mu.Unlock()
}

func (r *CycleReport) countStageUpdate() {
	r.mu.Lock()
	r.StageUpdates++
	r.mu.Unlock()
}

func (r *CycleReport) countValueUpdate() {
	r.mu.Lock()
	r.ValueUpdates++
	r.mu.Unlock()
}

func (r *CycleReport) errorCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Errors)
}

package servicetitan

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Timestamp handles the timestamp variants the API emits: RFC3339 with or
// without fractional seconds, and occasionally without a zone suffix.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}

	for _, layout := range timestampLayouts {
		parsed, err := time.Parse(layout, raw)
		if err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("cannot parse %q as timestamp", raw)
}

// Job is a work item in the field-service platform. Only the fields the
// intake pipeline classifies and reconciles on are decoded; raw payloads
// never cross the adapter boundary.
type Job struct {
	ID             int64     `json:"id"`
	JobNumber      string    `json:"jobNumber"`
	CustomerID     int64     `json:"customerId"`
	LocationID     int64     `json:"locationId"`
	BusinessUnitID int64     `json:"businessUnitId"`
	JobTypeID      int64     `json:"jobTypeId"`
	JobStatus      string    `json:"jobStatus"`
	TagTypeIDs     []int64   `json:"tagTypeIds"`
	Summary        string    `json:"summary"`
	CreatedOn      Timestamp `json:"createdOn"`
	ModifiedOn     Timestamp `json:"modifiedOn"`
	CompletedOn    Timestamp `json:"completedOn"`
}

// Job statuses the reconciliation pass distinguishes.
const (
	JobStatusCompleted  = "Completed"
	JobStatusCanceled   = "Canceled"
	JobStatusScheduled  = "Scheduled"
	JobStatusInProgress = "InProgress"
)

// Estimate is a sales estimate attached to a job.
type Estimate struct {
	ID       int64           `json:"id"`
	JobID    int64           `json:"jobId"`
	Status   EstimateStatus  `json:"status"`
	Subtotal float64         `json:"subtotal"`
	SoldOn   Timestamp       `json:"soldOn"`
	Items    []EstimateItem  `json:"items"`
}

// EstimateStatus carries the estimate lifecycle state. The API nests it as
// an object with a name; only the name matters here.
type EstimateStatus struct {
	Name string `json:"name"`
}

// EstimateItem is a line item on an estimate.
type EstimateItem struct {
	ID    int64   `json:"id"`
	Total float64 `json:"total"`
}

const estimateStatusSold = "sold"

// IsSold reports whether the estimate has been sold.
func (e Estimate) IsSold() bool {
	return strings.EqualFold(e.Status.Name, estimateStatusSold)
}

// Total returns the best available monetary total for the estimate.
func (e Estimate) Total() float64 {
	if e.Subtotal > 0 {
		return e.Subtotal
	}
	var sum float64
	for _, item := range e.Items {
		sum += item.Total
	}
	return sum
}

// Appointment is a scheduled visit on a job.
type Appointment struct {
	ID    int64     `json:"id"`
	JobID int64     `json:"jobId"`
	Start Timestamp `json:"start"`
}

// AppointmentAssignment links a technician to an appointment.
type AppointmentAssignment struct {
	TechnicianID   int64  `json:"technicianId"`
	TechnicianName string `json:"technicianName"`
}

// Customer is the platform's customer record.
type Customer struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// CustomerContact is a contact method on a customer record.
type CustomerContact struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Location is a service location.
type Location struct {
	ID      int64           `json:"id"`
	Name    string          `json:"name"`
	Address LocationAddress `json:"address"`
}

// LocationAddress is the structured address on a location.
type LocationAddress struct {
	Street string `json:"street"`
	City   string `json:"city"`
	State  string `json:"state"`
	Zip    string `json:"zip"`
}

// FormatAddress renders the address as a single line, skipping empty parts.
func (a LocationAddress) FormatAddress() string {
	parts := make([]string, 0, 4)
	for _, part := range []string{a.Street, a.City, a.State, a.Zip} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, ", ")
}

// TagType is a tag definition from the platform's settings.
type TagType struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// JobDetail is the enrichment bundle for one job. Every field is best-effort:
// a failed sub-fetch leaves its field empty rather than failing the call.
type JobDetail struct {
	CustomerName   string
	CustomerPhone  string
	Address        string
	ScheduledAt    time.Time
	TechnicianName string
}

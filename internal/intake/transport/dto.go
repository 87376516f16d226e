// Package transport defines the request payloads for the intake endpoints.
package transport

// ImportJobRequest asks for a single source-system job to be imported
// through the normal intake path. Category is optional; when omitted the job
// must classify under the standard tag rules.
type ImportJobRequest struct {
	JobID    int64  `json:"jobId" validate:"required,gt=0"`
	Category string `json:"category" validate:"omitempty,oneof=marketed tech_generated"`
}

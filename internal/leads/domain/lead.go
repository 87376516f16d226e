package domain

import (
	"time"

	"github.com/google/uuid"
)

// Lead is a sales opportunity tracked through the pipeline. ExternalID is the
// source-system job that created it and is the idempotency key for intake.
type Lead struct {
	ID              uuid.UUID  `json:"id"`
	ExternalID      int64      `json:"externalId"`
	Category        string     `json:"category"`
	Stage           string     `json:"stage"`
	AssignedAgentID *uuid.UUID `json:"assignedAgentId,omitempty"`
	EstimatedValue  float64    `json:"estimatedValue"`
	CustomerName    string     `json:"customerName"`
	CustomerPhone   string     `json:"customerPhone,omitempty"`
	Address         string     `json:"address,omitempty"`
	TechnicianName  string     `json:"technicianName,omitempty"`
	ScheduledAt     *time.Time `json:"scheduledAt,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

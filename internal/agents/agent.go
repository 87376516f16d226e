// Package agents manages the sales advisor roster and the per-category
// round-robin assignment queues.
package agents

import (
	"time"

	"github.com/google/uuid"
)

// Agent is a sales advisor. An agent participates in a category's rotation
// when the matching queue position is non-nil; a nil position opts the agent
// out of that queue without deactivating them.
type Agent struct {
	ID               uuid.UUID  `json:"id"`
	Name             string     `json:"name"`
	Email            string     `json:"email,omitempty"`
	Phone            string     `json:"phone,omitempty"`
	IsActive         bool       `json:"isActive"`
	MarketedQueuePos *int       `json:"marketedQueuePos,omitempty"`
	TGLQueuePos      *int       `json:"tglQueuePos,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

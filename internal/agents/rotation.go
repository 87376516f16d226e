package agents

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"sales_command_center/internal/leads/domain"
)

// QueueStore is the persistence surface the rotation needs.
type QueueStore interface {
	ActiveInQueue(ctx context.Context, category string) ([]Agent, error)
	RewritePositions(ctx context.Context, category string, ordered []uuid.UUID) error
}

// Rotation hands out agents round-robin per category. A per-category mutex
// serializes the read-commit-rotate sequence so two concurrent fallback
// assignments in the same category cannot both take the head.
type Rotation struct {
	store QueueStore
	locks map[string]*sync.Mutex
}

// NewRotation creates a rotation over the agent store.
func NewRotation(store QueueStore) *Rotation {
	return &Rotation{
		store: store,
		locks: map[string]*sync.Mutex{
			domain.CategoryMarketed:      {},
			domain.CategoryTechGenerated: {},
		},
	}
}

func (r *Rotation) lock(category string) *sync.Mutex {
	if mu, ok := r.locks[category]; ok {
		return mu
	}
	// Unknown categories are rejected by the store; any mutex will do.
	return r.locks[domain.CategoryMarketed]
}

// CurrentOrder returns the category's queue as it stands, next-up first.
// Read-only; never perturbs rotation.
func (r *Rotation) CurrentOrder(ctx context.Context, category string) ([]Agent, error) {
	mu := r.lock(category)
	mu.Lock()
	defer mu.Unlock()
	return r.store.ActiveInQueue(ctx, category)
}

// AssignFallback takes the head of the category's queue, runs commit with it,
// and only on success rotates the head to the tail. A failed commit leaves
// the queue order untouched so the next assignment sees the same head.
// Returns nil when the queue is empty; the caller decides what an
// unassignable item means.
func (r *Rotation) AssignFallback(ctx context.Context, category string, commit func(Agent) error) (*Agent, error) {
	mu := r.lock(category)
	mu.Lock()
	defer mu.Unlock()

	queue, err := r.store.ActiveInQueue(ctx, category)
	if err != nil {
		return nil, err
	}
	if len(queue) == 0 {
		return nil, nil
	}

	head := queue[0]
	if err := commit(head); err != nil {
		return nil, err
	}
	if len(queue) > 1 {
		if err := r.store.RewritePositions(ctx, category, rotated(queueIDs(queue))); err != nil {
			return nil, err
		}
	}
	return &head, nil
}

// Advance moves the given agent to the back of the category's queue, keeping
// everyone else's relative order. A no-op when the agent is not in the queue.
func (r *Rotation) Advance(ctx context.Context, category string, agentID uuid.UUID) error {
	mu := r.lock(category)
	mu.Lock()
	defer mu.Unlock()

	queue, err := r.store.ActiveInQueue(ctx, category)
	if err != nil {
		return err
	}

	ids := queueIDs(queue)
	moved := make([]uuid.UUID, 0, len(ids))
	found := false
	for _, id := range ids {
		if id == agentID {
			found = true
			continue
		}
		moved = append(moved, id)
	}
	if !found {
		return nil
	}
	moved = append(moved, agentID)
	return r.store.RewritePositions(ctx, category, moved)
}

func queueIDs(queue []Agent) []uuid.UUID {
	ids := make([]uuid.UUID, len(queue))
	for i, agent := range queue {
		ids[i] = agent.ID
	}
	return ids
}

// rotated returns the order with the head moved to the tail.
func rotated(ids []uuid.UUID) []uuid.UUID {
	if len(ids) < 2 {
		return ids
	}
	next := make([]uuid.UUID, 0, len(ids))
	next = append(next, ids[1:]...)
	return append(next, ids[0])
}

package agents

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"sales_command_center/internal/leads/domain"
)

type fakeQueueStore struct {
	queues map[string][]Agent
}

func (s *fakeQueueStore) ActiveInQueue(_ context.Context, category string) ([]Agent, error) {
	queue := s.queues[category]
	out := make([]Agent, len(queue))
	copy(out, queue)
	return out, nil
}

func (s *fakeQueueStore) RewritePositions(_ context.Context, category string, ordered []uuid.UUID) error {
	byID := make(map[uuid.UUID]Agent, len(s.queues[category]))
	for _, agent := range s.queues[category] {
		byID[agent.ID] = agent
	}
	next := make([]Agent, 0, len(ordered))
	for _, id := range ordered {
		next = append(next, byID[id])
	}
	s.queues[category] = next
	return nil
}

func namedAgents(names ...string) []Agent {
	agents := make([]Agent, len(names))
	for i, name := range names {
		agents[i] = Agent{ID: uuid.New(), Name: name}
	}
	return agents
}

func acceptAll(Agent) error { return nil }

func TestAssignFallbackRoundRobinFairness(t *testing.T) {
	queue := namedAgents("Alice", "Bob", "Carol")
	store := &fakeQueueStore{queues: map[string][]Agent{domain.CategoryMarketed: queue}}
	rotation := NewRotation(store)

	// Six assignments over three agents: each must be picked exactly twice,
	// in queue order.
	wantOrder := []string{"Alice", "Bob", "Carol", "Alice", "Bob", "Carol"}
	counts := make(map[string]int)
	for i, want := range wantOrder {
		agent, err := rotation.AssignFallback(context.Background(), domain.CategoryMarketed, acceptAll)
		if err != nil {
			t.Fatalf("assignment %d: unexpected error: %v", i, err)
		}
		if agent == nil {
			t.Fatalf("assignment %d: expected an agent", i)
		}
		if agent.Name != want {
			t.Fatalf("assignment %d: expected %q, got %q", i, want, agent.Name)
		}
		counts[agent.Name]++
	}
	for name, count := range counts {
		if count != 2 {
			t.Fatalf("expected %q to be assigned twice, got %d", name, count)
		}
	}
}

func TestAssignFallbackEmptyQueue(t *testing.T) {
	store := &fakeQueueStore{queues: map[string][]Agent{}}
	rotation := NewRotation(store)

	agent, err := rotation.AssignFallback(context.Background(), domain.CategoryTechGenerated, acceptAll)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if agent != nil {
		t.Fatalf("expected nil agent for empty queue, got %q", agent.Name)
	}
}

func TestAssignFallbackFailedCommitKeepsOrder(t *testing.T) {
	queue := namedAgents("Alice", "Bob")
	store := &fakeQueueStore{queues: map[string][]Agent{domain.CategoryMarketed: queue}}
	rotation := NewRotation(store)
	ctx := context.Background()

	_, err := rotation.AssignFallback(ctx, domain.CategoryMarketed, func(Agent) error {
		return errors.New("insert failed")
	})
	if err == nil {
		t.Fatalf("expected the commit error to propagate")
	}

	// The failed assignment must not have consumed Alice's turn.
	agent, err := rotation.AssignFallback(ctx, domain.CategoryMarketed, acceptAll)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if agent.Name != "Alice" {
		t.Fatalf("expected Alice to still be next up, got %q", agent.Name)
	}
}

func TestAssignFallbackSingleAgentQueue(t *testing.T) {
	queue := namedAgents("Alice")
	store := &fakeQueueStore{queues: map[string][]Agent{domain.CategoryMarketed: queue}}
	rotation := NewRotation(store)

	for i := 0; i < 3; i++ {
		agent, err := rotation.AssignFallback(context.Background(), domain.CategoryMarketed, acceptAll)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if agent == nil || agent.Name != "Alice" {
			t.Fatalf("expected the sole agent every time")
		}
	}
}

func TestCategoriesRotateIndependently(t *testing.T) {
	store := &fakeQueueStore{queues: map[string][]Agent{
		domain.CategoryMarketed:      namedAgents("Alice", "Bob"),
		domain.CategoryTechGenerated: namedAgents("Carol", "Dave"),
	}}
	rotation := NewRotation(store)
	ctx := context.Background()

	first, _ := rotation.AssignFallback(ctx, domain.CategoryMarketed, acceptAll)
	if first.Name != "Alice" {
		t.Fatalf("expected Alice first in marketed, got %q", first.Name)
	}

	// Marketed rotation must not disturb the tech-generated queue.
	tgl, _ := rotation.AssignFallback(ctx, domain.CategoryTechGenerated, acceptAll)
	if tgl.Name != "Carol" {
		t.Fatalf("expected Carol first in tech-generated, got %q", tgl.Name)
	}

	second, _ := rotation.AssignFallback(ctx, domain.CategoryMarketed, acceptAll)
	if second.Name != "Bob" {
		t.Fatalf("expected Bob second in marketed, got %q", second.Name)
	}
}

func TestAdvanceMovesAgentToTail(t *testing.T) {
	queue := namedAgents("Alice", "Bob", "Carol")
	store := &fakeQueueStore{queues: map[string][]Agent{domain.CategoryMarketed: queue}}
	rotation := NewRotation(store)
	ctx := context.Background()

	// Advancing the middle agent keeps everyone else's relative order.
	if err := rotation.Advance(ctx, domain.CategoryMarketed, queue[1].ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	order, err := rotation.CurrentOrder(ctx, domain.CategoryMarketed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"Alice", "Carol", "Bob"}
	for i, name := range want {
		if order[i].Name != name {
			t.Fatalf("position %d: expected %q, got %q", i, name, order[i].Name)
		}
	}
}

func TestAdvanceUnknownAgentIsNoop(t *testing.T) {
	queue := namedAgents("Alice", "Bob")
	store := &fakeQueueStore{queues: map[string][]Agent{domain.CategoryMarketed: queue}}
	rotation := NewRotation(store)

	if err := rotation.Advance(context.Background(), domain.CategoryMarketed, uuid.New()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	order, _ := rotation.CurrentOrder(context.Background(), domain.CategoryMarketed)
	if order[0].Name != "Alice" || order[1].Name != "Bob" {
		t.Fatalf("expected queue order unchanged")
	}
}

func TestRotatedMovesHeadToTail(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	got := rotated([]uuid.UUID{a, b, c})
	want := []uuid.UUID{b, c, a}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

package intake

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"sales_command_center/internal/agents"
	"sales_command_center/internal/leads/domain"
	"sales_command_center/internal/leads/repository"
	"sales_command_center/internal/notify"
	"sales_command_center/internal/servicetitan"
	"sales_command_center/platform/apperr"
	"sales_command_center/platform/logger"
)

const (
	msgUnexpectedCycleError = "unexpected cycle error: %v"
	fmtExpectedLeads        = "expected %d leads, got %d"

	testSalesJobType int64 = 500
	testMarketedBU   int64 = 10
	testTGLTagID     int64 = 77
)

// ---------------------------------------------------------------------------
// fakes

type testIntakeConfig struct {
	concurrency int
	batchSize   int
}

func (c testIntakeConfig) GetLookbackWindow() time.Duration { return 24 * time.Hour }
func (c testIntakeConfig) GetIntakeConcurrency() int        { return c.concurrency }
func (c testIntakeConfig) GetCorrectionBatchSize() int {
	if c.batchSize == 0 {
		return 10
	}
	return c.batchSize
}
func (c testIntakeConfig) GetErrorReportCap() int              { return 25 }
func (c testIntakeConfig) GetMarketedBusinessUnitIDs() []int64 { return []int64{testMarketedBU} }
func (c testIntakeConfig) GetSalesJobTypeID() int64            { return testSalesJobType }
func (c testIntakeConfig) GetTGLTagName() string               { return "TGL" }

type fakeSource struct {
	recentJobs []servicetitan.Job
	fetchErr   error
	tagErr     error

	jobsByID  map[int64]*servicetitan.Job
	details   map[int64]*servicetitan.JobDetail
	estimates map[int64][]servicetitan.Estimate
	followUps map[int64]*servicetitan.Job
	newerJobs map[int64]*servicetitan.Job
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		jobsByID:  map[int64]*servicetitan.Job{},
		details:   map[int64]*servicetitan.JobDetail{},
		estimates: map[int64][]servicetitan.Estimate{},
		followUps: map[int64]*servicetitan.Job{},
		newerJobs: map[int64]*servicetitan.Job{},
	}
}

func (s *fakeSource) FetchRecentJobs(context.Context, time.Time) ([]servicetitan.Job, error) {
	return s.recentJobs, s.fetchErr
}

func (s *fakeSource) JobByID(_ context.Context, id int64) (*servicetitan.Job, error) {
	if job, ok := s.jobsByID[id]; ok {
		return job, nil
	}
	for i := range s.recentJobs {
		if s.recentJobs[i].ID == id {
			return &s.recentJobs[i], nil
		}
	}
	return nil, errors.New("job not found")
}

func (s *fakeSource) FetchJobDetail(_ context.Context, job *servicetitan.Job) *servicetitan.JobDetail {
	if detail, ok := s.details[job.ID]; ok {
		return detail
	}
	return &servicetitan.JobDetail{}
}

func (s *fakeSource) EstimatesForJob(_ context.Context, jobID int64) ([]servicetitan.Estimate, error) {
	return s.estimates[jobID], nil
}

func (s *fakeSource) FindFollowUpJob(_ context.Context, _, excludeJobID, _ int64) (*servicetitan.Job, error) {
	return s.followUps[excludeJobID], nil
}

func (s *fakeSource) FindNewerJobAtCustomer(_ context.Context, customerID int64, _ time.Time, _, _ int64) (*servicetitan.Job, error) {
	return s.newerJobs[customerID], nil
}

func (s *fakeSource) ResolveTagTypeID(context.Context, string) (int64, error) {
	if s.tagErr != nil {
		return 0, s.tagErr
	}
	return testTGLTagID, nil
}

type fakeLeadStore struct {
	mu         sync.Mutex
	leads      []*domain.Lead
	insertErrs map[int64]error

	stageWrites int
	valueWrites int
	agentWrites int
}

func newFakeLeadStore() *fakeLeadStore {
	return &fakeLeadStore{insertErrs: map[int64]error{}}
}

func (s *fakeLeadStore) seed(lead domain.Lead) *domain.Lead {
	if lead.ID == uuid.Nil {
		lead.ID = uuid.New()
	}
	copied := lead
	s.leads = append(s.leads, &copied)
	return &copied
}

func (s *fakeLeadStore) ExistingExternalIDs(_ context.Context, ids []int64) (map[int64]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing := make(map[int64]struct{})
	for _, lead := range s.leads {
		for _, id := range ids {
			if lead.ExternalID == id {
				existing[id] = struct{}{}
			}
		}
	}
	return existing, nil
}

func (s *fakeLeadStore) Insert(_ context.Context, params repository.CreateLeadParams) (*domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.insertErrs[params.ExternalID]; err != nil {
		return nil, err
	}
	for _, lead := range s.leads {
		if lead.ExternalID == params.ExternalID {
			return nil, apperr.Conflict("lead already exists for this job")
		}
	}
	lead := &domain.Lead{
		ID:              uuid.New(),
		ExternalID:      params.ExternalID,
		Category:        params.Category,
		Stage:           params.Stage,
		AssignedAgentID: params.AssignedAgentID,
		EstimatedValue:  params.EstimatedValue,
		CustomerName:    params.CustomerName,
		TechnicianName:  params.TechnicianName,
		CreatedAt:       time.Now(),
	}
	s.leads = append(s.leads, lead)
	return lead, nil
}

func (s *fakeLeadStore) OpenLeads(context.Context) ([]domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var open []domain.Lead
	for _, lead := range s.leads {
		if lead.Stage != domain.StageCompleted {
			open = append(open, *lead)
		}
	}
	return open, nil
}

func (s *fakeLeadStore) RecentUnadvanced(_ context.Context, limit int) ([]domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var batch []domain.Lead
	for i := len(s.leads) - 1; i >= 0 && len(batch) < limit; i-- {
		lead := s.leads[i]
		if lead.Stage == domain.StageNew || lead.Stage == domain.StageAssigned {
			batch = append(batch, *lead)
		}
	}
	return batch, nil
}

func (s *fakeLeadStore) find(id uuid.UUID) *domain.Lead {
	for _, lead := range s.leads {
		if lead.ID == id {
			return lead
		}
	}
	return nil
}

func (s *fakeLeadStore) UpdateStage(_ context.Context, id uuid.UUID, stage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lead := s.find(id)
	if lead == nil {
		return apperr.NotFound("lead not found")
	}
	lead.Stage = stage
	s.stageWrites++
	return nil
}

func (s *fakeLeadStore) UpdateEstimatedValue(_ context.Context, id uuid.UUID, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lead := s.find(id)
	if lead == nil {
		return apperr.NotFound("lead not found")
	}
	lead.EstimatedValue = value
	s.valueWrites++
	return nil
}

func (s *fakeLeadStore) UpdateAssignedAgent(_ context.Context, id uuid.UUID, agentID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lead := s.find(id)
	if lead == nil {
		return apperr.NotFound("lead not found")
	}
	lead.AssignedAgentID = &agentID
	s.agentWrites++
	return nil
}

func (s *fakeLeadStore) CategoryCounts(_ context.Context, since time.Time) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[string]int)
	for _, lead := range s.leads {
		if !lead.CreatedAt.Before(since) {
			counts[lead.Category]++
		}
	}
	return counts, nil
}

func (s *fakeLeadStore) StageCounts(context.Context) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[string]int)
	for _, lead := range s.leads {
		counts[lead.Stage]++
	}
	return counts, nil
}

func (s *fakeLeadStore) SoldValueSince(context.Context, time.Time) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total float64
	for _, lead := range s.leads {
		if domain.StageIndex(lead.Stage) >= domain.StageIndex(domain.StageSold) {
			total += lead.EstimatedValue
		}
	}
	return total, nil
}

type fakeQueues struct {
	mu            sync.Mutex
	queues        map[string][]agents.Agent
	fallbackCalls int
}

func newFakeQueues() *fakeQueues {
	return &fakeQueues{queues: map[string][]agents.Agent{}}
}

func (q *fakeQueues) CurrentOrder(_ context.Context, category string) ([]agents.Agent, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	queue := q.queues[category]
	out := make([]agents.Agent, len(queue))
	copy(out, queue)
	return out, nil
}

func (q *fakeQueues) AssignFallback(_ context.Context, category string, commit func(agents.Agent) error) (*agents.Agent, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	queue := q.queues[category]
	if len(queue) == 0 {
		return nil, nil
	}
	head := queue[0]
	if err := commit(head); err != nil {
		return nil, err
	}
	q.fallbackCalls++
	if len(queue) > 1 {
		q.queues[category] = append(append([]agents.Agent{}, queue[1:]...), head)
	}
	return &head, nil
}

func (q *fakeQueues) order(category string) []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	names := make([]string, len(q.queues[category]))
	for i, agent := range q.queues[category] {
		names[i] = agent.Name
	}
	return names
}

type fakeNotifier struct {
	mu            sync.Mutex
	notifications []notify.LeadNotification
	summaries     []notify.DailySummary
	deliver       bool
}

func (n *fakeNotifier) NotifyNewLead(_ context.Context, notification notify.LeadNotification) notify.Delivery {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notifications = append(n.notifications, notification)
	return notify.Delivery{Delivered: n.deliver, Channel: "slack"}
}

func (n *fakeNotifier) SendDailySummary(_ context.Context, summary notify.DailySummary) notify.Delivery {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.summaries = append(n.summaries, summary)
	return notify.Delivery{Delivered: n.deliver, Channel: "slack"}
}

type testHarness struct {
	engine   *Engine
	source   *fakeSource
	store    *fakeLeadStore
	queues   *fakeQueues
	notifier *fakeNotifier
}

func newHarness(cfg testIntakeConfig) *testHarness {
	source := newFakeSource()
	store := newFakeLeadStore()
	queues := newFakeQueues()
	notifier := &fakeNotifier{deliver: true}
	return &testHarness{
		engine:   NewEngine(cfg, source, store, queues, notifier, logger.New("development")),
		source:   source,
		store:    store,
		queues:   queues,
		notifier: notifier,
	}
}

func marketedJob(id int64) servicetitan.Job {
	return servicetitan.Job{ID: id, CustomerID: id * 100, BusinessUnitID: testMarketedBU, JobTypeID: testSalesJobType}
}

func tglJob(id int64) servicetitan.Job {
	return servicetitan.Job{ID: id, CustomerID: id * 100, TagTypeIDs: []int64{testTGLTagID}}
}

// ---------------------------------------------------------------------------
// discovery & intake

func TestRunCycleImportsBothCategories(t *testing.T) {
	h := newHarness(testIntakeConfig{concurrency: 1})
	h.queues.queues[categoryMarketed] = namedTestAgents("Alice", "Bob")
	h.queues.queues[categoryTechGenerated] = namedTestAgents("Carol")
	h.source.recentJobs = []servicetitan.Job{marketedJob(1), tglJob(2)}

	report, err := h.engine.RunCycle(context.Background())
	if err != nil {
		t.Fatalf(msgUnexpectedCycleError, err)
	}
	if report.ImportedMarketed != 1 || report.ImportedTechGenerated != 1 {
		t.Fatalf("expected one import per category, got %d/%d", report.ImportedMarketed, report.ImportedTechGenerated)
	}
	if len(h.store.leads) != 2 {
		t.Fatalf(fmtExpectedLeads, 2, len(h.store.leads))
	}
	for _, lead := range h.store.leads {
		if lead.Stage != domain.StageAssigned {
			t.Fatalf("expected new leads at %q, got %q", domain.StageAssigned, lead.Stage)
		}
		if lead.AssignedAgentID == nil {
			t.Fatalf("expected every new lead to carry an agent")
		}
	}
	if len(h.notifier.notifications) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(h.notifier.notifications))
	}
}

func TestRunCycleIgnoresUnclassifiedJobs(t *testing.T) {
	h := newHarness(testIntakeConfig{concurrency: 1})
	h.queues.queues[categoryMarketed] = namedTestAgents("Alice")
	h.source.recentJobs = []servicetitan.Job{
		{ID: 1, BusinessUnitID: 99, JobTypeID: testSalesJobType}, // wrong business unit
		{ID: 2, BusinessUnitID: testMarketedBU, JobTypeID: 42},   // wrong job type
		{ID: 3, TagTypeIDs: []int64{123}},                        // wrong tag
	}

	report, err := h.engine.RunCycle(context.Background())
	if err != nil {
		t.Fatalf(msgUnexpectedCycleError, err)
	}
	if len(h.store.leads) != 0 {
		t.Fatalf(fmtExpectedLeads, 0, len(h.store.leads))
	}
	if len(report.Errors) != 0 {
		t.Fatalf("expected no errors for ignored jobs, got %v", report.Errors)
	}
}

func TestIntakeIdempotentAcrossCycles(t *testing.T) {
	h := newHarness(testIntakeConfig{concurrency: 1})
	h.queues.queues[categoryMarketed] = namedTestAgents("Alice", "Bob")
	h.source.recentJobs = []servicetitan.Job{marketedJob(1)}
	h.source.jobsByID[1] = &servicetitan.Job{ID: 1, CustomerID: 100}
	ctx := context.Background()

	if _, err := h.engine.RunCycle(ctx); err != nil {
		t.Fatalf(msgUnexpectedCycleError, err)
	}
	orderAfterFirst := h.queues.order(categoryMarketed)

	report, err := h.engine.RunCycle(ctx)
	if err != nil {
		t.Fatalf(msgUnexpectedCycleError, err)
	}
	if len(h.store.leads) != 1 {
		t.Fatalf(fmtExpectedLeads, 1, len(h.store.leads))
	}
	if report.SkippedExisting != 1 {
		t.Fatalf("expected the repeat job to be skipped, got %d", report.SkippedExisting)
	}
	if report.ImportedMarketed != 0 {
		t.Fatalf("expected no imports on second cycle, got %d", report.ImportedMarketed)
	}

	// The repeat cycle must not advance rotation a second time.
	orderAfterSecond := h.queues.order(categoryMarketed)
	for i := range orderAfterFirst {
		if orderAfterFirst[i] != orderAfterSecond[i] {
			t.Fatalf("rotation moved on a skipped item: %v vs %v", orderAfterFirst, orderAfterSecond)
		}
	}
	if len(h.notifier.notifications) != 1 {
		t.Fatalf("expected no repeat notification, got %d", len(h.notifier.notifications))
	}
}

func TestRotationFairnessOverBatch(t *testing.T) {
	h := newHarness(testIntakeConfig{concurrency: 1})
	h.queues.queues[categoryMarketed] = namedTestAgents("Alice", "Bob", "Carol")
	h.source.recentJobs = []servicetitan.Job{marketedJob(1), marketedJob(2), marketedJob(3)}

	if _, err := h.engine.RunCycle(context.Background()); err != nil {
		t.Fatalf(msgUnexpectedCycleError, err)
	}

	assigned := make(map[uuid.UUID]int)
	for _, lead := range h.store.leads {
		assigned[*lead.AssignedAgentID]++
	}
	if len(assigned) != 3 {
		t.Fatalf("expected 3 distinct agents over 3 fallback assignments, got %d", len(assigned))
	}
	for id, count := range assigned {
		if count != 1 {
			t.Fatalf("agent %s assigned %d times, expected once", id, count)
		}
	}
}

func TestTwoFallbackAssignmentsFollowQueueOrder(t *testing.T) {
	h := newHarness(testIntakeConfig{concurrency: 1})
	queue := namedTestAgents("Alice", "Bob")
	h.queues.queues[categoryMarketed] = queue
	ctx := context.Background()

	h.source.recentJobs = []servicetitan.Job{marketedJob(1)}
	if _, err := h.engine.RunCycle(ctx); err != nil {
		t.Fatalf(msgUnexpectedCycleError, err)
	}
	h.source.jobsByID[1] = &servicetitan.Job{ID: 1, CustomerID: 100}
	if *h.store.leads[0].AssignedAgentID != queue[0].ID {
		t.Fatalf("expected first item assigned to Alice")
	}
	if got := h.queues.order(categoryMarketed); got[0] != "Bob" {
		t.Fatalf("expected Bob at the front after rotation, got %v", got)
	}

	h.source.recentJobs = []servicetitan.Job{marketedJob(2)}
	if _, err := h.engine.RunCycle(ctx); err != nil {
		t.Fatalf(msgUnexpectedCycleError, err)
	}
	if *h.store.leads[1].AssignedAgentID != queue[1].ID {
		t.Fatalf("expected second item assigned to Bob")
	}
}

func TestExternalAssignmentBypassesRotation(t *testing.T) {
	h := newHarness(testIntakeConfig{concurrency: 1})
	queue := namedTestAgents("Alice", "Bob")
	h.queues.queues[categoryTechGenerated] = queue

	job := tglJob(1)
	h.source.recentJobs = []servicetitan.Job{job}
	h.source.details[1] = &servicetitan.JobDetail{CustomerName: "Pat Doe", TechnicianName: "Bob"}

	if _, err := h.engine.RunCycle(context.Background()); err != nil {
		t.Fatalf(msgUnexpectedCycleError, err)
	}

	if *h.store.leads[0].AssignedAgentID != queue[1].ID {
		t.Fatalf("expected the lead assigned to the matched agent")
	}
	if got := h.queues.order(categoryTechGenerated); got[0] != "Alice" || got[1] != "Bob" {
		t.Fatalf("expected rotation order untouched, got %v", got)
	}
	if h.queues.fallbackCalls != 0 {
		t.Fatalf("expected no fallback assignment, got %d", h.queues.fallbackCalls)
	}
}

func TestPartialFailureIsolation(t *testing.T) {
	h := newHarness(testIntakeConfig{concurrency: 1})
	h.queues.queues[categoryMarketed] = namedTestAgents("Alice", "Bob", "Carol")
	h.source.recentJobs = []servicetitan.Job{marketedJob(1), marketedJob(2), marketedJob(3)}
	h.store.insertErrs[2] = errors.New("enrichment data unusable")

	report, err := h.engine.RunCycle(context.Background())
	if err != nil {
		t.Fatalf(msgUnexpectedCycleError, err)
	}

	if len(h.store.leads) != 2 {
		t.Fatalf(fmtExpectedLeads, 2, len(h.store.leads))
	}
	if len(report.Errors) != 1 {
		t.Fatalf("expected exactly one error, got %v", report.Errors)
	}
	if report.Errors[0].ExternalID != 2 {
		t.Fatalf("expected the error to name item 2, got %d", report.Errors[0].ExternalID)
	}
	if len(h.notifier.notifications) != 2 {
		t.Fatalf("expected the surviving items notified, got %d", len(h.notifier.notifications))
	}
}

func TestEmptyQueueSkipsItemAndReports(t *testing.T) {
	h := newHarness(testIntakeConfig{concurrency: 1})
	h.source.recentJobs = []servicetitan.Job{marketedJob(1)}

	report, err := h.engine.RunCycle(context.Background())
	if err != nil {
		t.Fatalf(msgUnexpectedCycleError, err)
	}
	if len(h.store.leads) != 0 {
		t.Fatalf(fmtExpectedLeads, 0, len(h.store.leads))
	}
	if len(report.Errors) != 1 {
		t.Fatalf("expected the unassignable item reported, got %v", report.Errors)
	}
}

func TestNotificationFailureDoesNotUndoInsert(t *testing.T) {
	h := newHarness(testIntakeConfig{concurrency: 1})
	h.notifier.deliver = false
	h.queues.queues[categoryMarketed] = namedTestAgents("Alice")
	h.source.recentJobs = []servicetitan.Job{marketedJob(1)}

	report, err := h.engine.RunCycle(context.Background())
	if err != nil {
		t.Fatalf(msgUnexpectedCycleError, err)
	}
	if len(h.store.leads) != 1 {
		t.Fatalf(fmtExpectedLeads, 1, len(h.store.leads))
	}
	if report.ImportedMarketed != 1 {
		t.Fatalf("expected the import counted despite failed delivery")
	}
	if report.NotificationsFailed != 1 {
		t.Fatalf("expected the failed delivery counted, got %d", report.NotificationsFailed)
	}
}

func TestCycleFatalOnInitialFetchFailure(t *testing.T) {
	h := newHarness(testIntakeConfig{concurrency: 1})
	h.source.fetchErr = errors.New("connection refused")

	report, err := h.engine.RunCycle(context.Background())
	if err == nil {
		t.Fatalf("expected a cycle-fatal error")
	}
	if report != nil {
		t.Fatalf("expected no report on a fatal cycle")
	}
	if !apperr.Is(err, apperr.KindUpstream) {
		t.Fatalf("expected an upstream error kind, got %v", err)
	}
}

func TestCycleFatalOnTagResolutionFailure(t *testing.T) {
	h := newHarness(testIntakeConfig{concurrency: 1})
	h.source.tagErr = errors.New("status 401")

	if _, err := h.engine.RunCycle(context.Background()); err == nil {
		t.Fatalf("expected a cycle-fatal error on tag resolution failure")
	}
}

// ---------------------------------------------------------------------------
// retroactive correction

func TestCorrectionOverwritesAdvisor(t *testing.T) {
	h := newHarness(testIntakeConfig{concurrency: 1})
	queue := namedTestAgents("Alice", "Bob")
	h.queues.queues[categoryTechGenerated] = queue

	wrongAgent := queue[0].ID
	lead := h.store.seed(domain.Lead{
		ExternalID:      1,
		Category:        categoryTechGenerated,
		Stage:           domain.StageAssigned,
		AssignedAgentID: &wrongAgent,
	})

	h.source.jobsByID[1] = &servicetitan.Job{ID: 1, CustomerID: 100}
	followUp := &servicetitan.Job{ID: 2, CustomerID: 100, JobTypeID: testSalesJobType}
	h.source.followUps[1] = followUp
	h.source.details[2] = &servicetitan.JobDetail{TechnicianName: "Bob"}

	report, err := h.engine.RunCycle(context.Background())
	if err != nil {
		t.Fatalf(msgUnexpectedCycleError, err)
	}
	if report.Corrected != 1 {
		t.Fatalf("expected one correction, got %d", report.Corrected)
	}
	if *h.store.find(lead.ID).AssignedAgentID != queue[1].ID {
		t.Fatalf("expected the advisor rewritten to the matched agent")
	}
	// Correction never touches stage.
	if h.store.find(lead.ID).Stage != domain.StageAssigned {
		t.Fatalf("expected stage untouched by correction")
	}
}

func TestCorrectionNoopWhenAdvisorAlreadyCorrect(t *testing.T) {
	h := newHarness(testIntakeConfig{concurrency: 1})
	queue := namedTestAgents("Alice")
	h.queues.queues[categoryMarketed] = queue

	agentID := queue[0].ID
	h.store.seed(domain.Lead{
		ExternalID:      1,
		Category:        categoryMarketed,
		Stage:           domain.StageAssigned,
		AssignedAgentID: &agentID,
	})
	h.source.jobsByID[1] = &servicetitan.Job{ID: 1, CustomerID: 100}
	h.source.details[1] = &servicetitan.JobDetail{TechnicianName: "Alice"}

	report, err := h.engine.RunCycle(context.Background())
	if err != nil {
		t.Fatalf(msgUnexpectedCycleError, err)
	}
	if report.Corrected != 0 || h.store.agentWrites != 0 {
		t.Fatalf("expected no correction write, got %d corrections, %d writes", report.Corrected, h.store.agentWrites)
	}
}

// ---------------------------------------------------------------------------
// manual import and daily summary

func TestImportJobRejectsDuplicate(t *testing.T) {
	h := newHarness(testIntakeConfig{concurrency: 1})
	h.store.seed(domain.Lead{ExternalID: 1, Category: categoryMarketed, Stage: domain.StageSold})
	h.source.jobsByID[1] = &servicetitan.Job{ID: 1, BusinessUnitID: testMarketedBU, JobTypeID: testSalesJobType}

	_, err := h.engine.ImportJob(context.Background(), 1, "")
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected a conflict for an existing job, got %v", err)
	}
}

func TestImportJobClassifiesAndAssigns(t *testing.T) {
	h := newHarness(testIntakeConfig{concurrency: 1})
	h.queues.queues[categoryMarketed] = namedTestAgents("Alice")
	h.source.jobsByID[5] = &servicetitan.Job{ID: 5, BusinessUnitID: testMarketedBU, JobTypeID: testSalesJobType}

	result, err := h.engine.ImportJob(context.Background(), 5, "")
	if err != nil {
		t.Fatalf("unexpected import error: %v", err)
	}
	if result.Category != categoryMarketed {
		t.Fatalf("expected marketed classification, got %q", result.Category)
	}
	if len(h.store.leads) != 1 {
		t.Fatalf(fmtExpectedLeads, 1, len(h.store.leads))
	}
}

func TestImportJobUnclassifiableNeedsExplicitCategory(t *testing.T) {
	h := newHarness(testIntakeConfig{concurrency: 1})
	h.queues.queues[categoryTechGenerated] = namedTestAgents("Alice")
	h.source.jobsByID[9] = &servicetitan.Job{ID: 9, BusinessUnitID: 1, JobTypeID: 2}

	if _, err := h.engine.ImportJob(context.Background(), 9, ""); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected a validation error without a category, got %v", err)
	}

	result, err := h.engine.ImportJob(context.Background(), 9, categoryTechGenerated)
	if err != nil {
		t.Fatalf("unexpected import error: %v", err)
	}
	if result.Category != categoryTechGenerated {
		t.Fatalf("expected the forced category, got %q", result.Category)
	}
}

func TestRunDailySummary(t *testing.T) {
	h := newHarness(testIntakeConfig{concurrency: 1})
	h.store.seed(domain.Lead{ExternalID: 1, Category: categoryMarketed, Stage: domain.StageSold, EstimatedValue: 1500, CreatedAt: time.Now()})
	h.store.seed(domain.Lead{ExternalID: 2, Category: categoryTechGenerated, Stage: domain.StageAssigned, CreatedAt: time.Now()})

	delivery, err := h.engine.RunDailySummary(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !delivery.Delivered {
		t.Fatalf("expected the summary delivered")
	}
	if len(h.notifier.summaries) != 1 {
		t.Fatalf("expected one summary, got %d", len(h.notifier.summaries))
	}
	summary := h.notifier.summaries[0]
	if summary.NewMarketed != 1 || summary.NewTechGenerated != 1 {
		t.Fatalf("expected per-category counts 1/1, got %d/%d", summary.NewMarketed, summary.NewTechGenerated)
	}
	if summary.SoldValue != 1500 {
		t.Fatalf("expected sold value 1500, got %.2f", summary.SoldValue)
	}
}

func namedTestAgents(names ...string) []agents.Agent {
	out := make([]agents.Agent, len(names))
	for i, name := range names {
		out[i] = agents.Agent{ID: uuid.New(), Name: name}
	}
	return out
}

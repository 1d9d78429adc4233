package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Conveyor/internal/domain"
)

// fakeStore отдаёт единственный workflow по любому ID.
type fakeStore struct {
	wf *domain.Workflow
}

func (s *fakeStore) GetByID(_ context.Context, _ uuid.UUID) (*domain.Workflow, error) {
	return s.wf, nil
}

// fakeRecorder накапливает события выполнения в памяти.
type fakeRecorder struct {
	mu          sync.Mutex
	begun       []string
	completed   []string
	failed      []string
	finalStatus domain.ExecutionStatus
	finalError  string
	outputs     map[string][]domain.Item
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{outputs: make(map[string][]domain.Item)}
}

func (r *fakeRecorder) BeginNode(_ context.Context, executionID uuid.UUID, nodeID string, inputs []domain.Item) (*domain.NodeExecution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.begun = append(r.begun, nodeID)
	return &domain.NodeExecution{ID: uuid.New(), ExecutionID: executionID, NodeID: nodeID, InputItems: inputs}, nil
}

func (r *fakeRecorder) CompleteNode(_ context.Context, rec *domain.NodeExecution, outputs []domain.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = append(r.completed, rec.NodeID)
	r.outputs[rec.NodeID] = outputs
	return nil
}

func (r *fakeRecorder) FailNode(_ context.Context, rec *domain.NodeExecution, _ error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, rec.NodeID)
	return nil
}

func (r *fakeRecorder) CompleteExecution(_ context.Context, _ uuid.UUID, status domain.ExecutionStatus, errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finalStatus = status
	r.finalError = errMsg
	return nil
}

// executorFunc адаптирует функцию под интерфейс Executor.
type executorFunc func(ctx context.Context, req *Request) ([]domain.Item, error)

func (f executorFunc) Execute(ctx context.Context, req *Request) ([]domain.Item, error) {
	return f(ctx, req)
}

// fakeRegistry — реестр executors для тестов.
type fakeRegistry struct {
	executors map[string]Executor
}

func (r *fakeRegistry) Get(nodeType string) (Executor, bool) {
	e, ok := r.executors[nodeType]
	return e, ok
}

func passthrough(_ context.Context, req *Request) ([]domain.Item, error) {
	return req.Items, nil
}

func chainWorkflow() *domain.Workflow {
	return &domain.Workflow{
		ID:        uuid.New(),
		CreatedBy: "alice",
		Nodes: []domain.Node{
			{ID: "trigger", Type: domain.NodeTypeManualTrigger, Kind: domain.NodeKindTrigger},
			{ID: "fetch", Type: domain.NodeTypeHTTPRequest, Kind: domain.NodeKindAction},
			{ID: "transform", Type: domain.NodeTypeCode, Kind: domain.NodeKindAction},
		},
		Connections: []domain.Connection{
			{SourceNodeID: "trigger", TargetNodeID: "fetch"},
			{SourceNodeID: "fetch", TargetNodeID: "transform"},
		},
	}
}

func newTestRunner(wf *domain.Workflow, rec *fakeRecorder, executors map[string]Executor) *Runner {
	return New(Config{
		Store:    &fakeStore{wf: wf},
		Recorder: rec,
		Registry: &fakeRegistry{executors: executors},
	})
}

func TestRunner_ChainSuccess(t *testing.T) {
	wf := chainWorkflow()
	rec := newFakeRecorder()
	runner := newTestRunner(wf, rec, map[string]Executor{
		domain.NodeTypeManualTrigger: executorFunc(passthrough),
		domain.NodeTypeHTTPRequest:   executorFunc(passthrough),
		domain.NodeTypeCode:          executorFunc(passthrough),
	})

	err := runner.Run(context.Background(), uuid.New(), wf.ID, "alice", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec.finalStatus != domain.ExecutionStatusSuccess {
		t.Errorf("expected status success, got %s", rec.finalStatus)
	}
	if len(rec.completed) != 3 {
		t.Errorf("expected 3 completed nodes, got %v", rec.completed)
	}
	// Пустой seed превращается в один пустой item.
	if out := rec.outputs["transform"]; len(out) != 1 {
		t.Errorf("expected 1 leaf item, got %d", len(out))
	}
}

func TestRunner_SeedReachesTrigger(t *testing.T) {
	wf := chainWorkflow()
	rec := newFakeRecorder()

	var triggerInput []domain.Item
	runner := newTestRunner(wf, rec, map[string]Executor{
		domain.NodeTypeManualTrigger: executorFunc(func(_ context.Context, req *Request) ([]domain.Item, error) {
			triggerInput = req.Items
			return req.Items, nil
		}),
		domain.NodeTypeHTTPRequest: executorFunc(passthrough),
		domain.NodeTypeCode:        executorFunc(passthrough),
	})

	seed := []domain.Item{domain.WithFields(map[string]any{"url": "https://example.com"})}
	if err := runner.Run(context.Background(), uuid.New(), wf.ID, "alice", seed); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(triggerInput) != 1 || triggerInput[0].Fields["url"] != "https://example.com" {
		t.Errorf("seed items did not reach trigger: %v", triggerInput)
	}
}

func TestRunner_MergeNodeRunsOnce(t *testing.T) {
	// trigger → left → merge
	// trigger → right → merge
	wf := &domain.Workflow{
		ID:        uuid.New(),
		CreatedBy: "alice",
		Nodes: []domain.Node{
			{ID: "trigger", Type: domain.NodeTypeManualTrigger, Kind: domain.NodeKindTrigger},
			{ID: "left", Type: domain.NodeTypeCode, Kind: domain.NodeKindAction},
			{ID: "right", Type: domain.NodeTypeCode, Kind: domain.NodeKindAction},
			{ID: "merge", Type: domain.NodeTypeExportDocument, Kind: domain.NodeKindAction},
		},
		Connections: []domain.Connection{
			{SourceNodeID: "trigger", TargetNodeID: "left"},
			{SourceNodeID: "trigger", TargetNodeID: "right"},
			{SourceNodeID: "left", TargetNodeID: "merge"},
			{SourceNodeID: "right", TargetNodeID: "merge"},
		},
	}

	rec := newFakeRecorder()
	var mergeRuns int
	var mergeBatch []domain.Item
	runner := newTestRunner(wf, rec, map[string]Executor{
		domain.NodeTypeManualTrigger: executorFunc(passthrough),
		domain.NodeTypeCode:          executorFunc(passthrough),
		domain.NodeTypeExportDocument: executorFunc(func(_ context.Context, req *Request) ([]domain.Item, error) {
			mergeRuns++
			mergeBatch = req.Items
			return req.Items, nil
		}),
	})

	if err := runner.Run(context.Background(), uuid.New(), wf.ID, "alice", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if mergeRuns != 1 {
		t.Errorf("merge node must run exactly once, ran %d times", mergeRuns)
	}
	// Обе ветки отдали по одному item: merge получает объединённый батч.
	if len(mergeBatch) != 2 {
		t.Errorf("expected merged batch of 2 items, got %d", len(mergeBatch))
	}
}

func TestRunner_NodeFailureStopsTraversal(t *testing.T) {
	wf := chainWorkflow()
	rec := newFakeRecorder()
	boom := errors.New("connection refused")
	runner := newTestRunner(wf, rec, map[string]Executor{
		domain.NodeTypeManualTrigger: executorFunc(passthrough),
		domain.NodeTypeHTTPRequest: executorFunc(func(_ context.Context, _ *Request) ([]domain.Item, error) {
			return nil, boom
		}),
		domain.NodeTypeCode: executorFunc(passthrough),
	})

	err := runner.Run(context.Background(), uuid.New(), wf.ID, "alice", nil)
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var nodeErr *NodeError
	if !errors.As(err, &nodeErr) {
		t.Fatalf("expected NodeError, got %T: %v", err, err)
	}
	if nodeErr.NodeID != "fetch" {
		t.Errorf("expected failure on node fetch, got %s", nodeErr.NodeID)
	}
	if !errors.Is(err, boom) {
		t.Error("NodeError must wrap the executor error")
	}

	if rec.finalStatus != domain.ExecutionStatusError {
		t.Errorf("expected status error, got %s", rec.finalStatus)
	}
	if len(rec.failed) != 1 || rec.failed[0] != "fetch" {
		t.Errorf("expected failed node fetch, got %v", rec.failed)
	}
	// Узел после упавшего не запускается.
	for _, id := range rec.begun {
		if id == "transform" {
			t.Error("node after the failed one must not start")
		}
	}
}

func TestRunner_UnknownTypePassesThrough(t *testing.T) {
	wf := chainWorkflow()
	wf.Nodes[1].Type = "shinyNewNode"

	rec := newFakeRecorder()
	runner := newTestRunner(wf, rec, map[string]Executor{
		domain.NodeTypeManualTrigger: executorFunc(passthrough),
		domain.NodeTypeCode:          executorFunc(passthrough),
	})

	if err := runner.Run(context.Background(), uuid.New(), wf.ID, "alice", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.finalStatus != domain.ExecutionStatusSuccess {
		t.Errorf("expected status success, got %s", rec.finalStatus)
	}
	if out := rec.outputs["transform"]; len(out) != 1 {
		t.Errorf("items must pass through the unknown node, got %d leaf items", len(out))
	}
}

func TestRunner_NoTrigger(t *testing.T) {
	wf := &domain.Workflow{
		ID: uuid.New(),
		Nodes: []domain.Node{
			{ID: "only", Type: domain.NodeTypeCode, Kind: domain.NodeKindAction},
		},
	}

	rec := newFakeRecorder()
	runner := newTestRunner(wf, rec, map[string]Executor{})

	err := runner.Run(context.Background(), uuid.New(), wf.ID, "alice", nil)
	if !errors.Is(err, ErrNoTriggerNode) {
		t.Errorf("expected ErrNoTriggerNode, got %v", err)
	}
	if rec.finalStatus != domain.ExecutionStatusError {
		t.Errorf("expected status error, got %s", rec.finalStatus)
	}
}

func TestRunner_MultipleTriggersOnlyFirstRuns(t *testing.T) {
	wf := &domain.Workflow{
		ID:        uuid.New(),
		CreatedBy: "alice",
		Nodes: []domain.Node{
			{ID: "first", Type: domain.NodeTypeManualTrigger, Kind: domain.NodeKindTrigger},
			{ID: "second", Type: domain.NodeTypeManualTrigger, Kind: domain.NodeKindTrigger},
			{ID: "sink", Type: domain.NodeTypeCode, Kind: domain.NodeKindAction},
		},
		Connections: []domain.Connection{
			{SourceNodeID: "first", TargetNodeID: "sink"},
			{SourceNodeID: "second", TargetNodeID: "sink"},
		},
	}

	rec := newFakeRecorder()
	runner := newTestRunner(wf, rec, map[string]Executor{
		domain.NodeTypeManualTrigger: executorFunc(passthrough),
		domain.NodeTypeCode:          executorFunc(passthrough),
	})

	if err := runner.Run(context.Background(), uuid.New(), wf.ID, "alice", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, id := range rec.begun {
		if id == "second" {
			t.Error("only the first trigger must run")
		}
	}
}

func TestRunner_PrincipalFallsBackToCreator(t *testing.T) {
	wf := chainWorkflow()
	rec := newFakeRecorder()

	var seen string
	runner := newTestRunner(wf, rec, map[string]Executor{
		domain.NodeTypeManualTrigger: executorFunc(func(_ context.Context, req *Request) ([]domain.Item, error) {
			seen = req.Principal
			return req.Items, nil
		}),
		domain.NodeTypeHTTPRequest: executorFunc(passthrough),
		domain.NodeTypeCode:        executorFunc(passthrough),
	})

	if err := runner.Run(context.Background(), uuid.New(), wf.ID, "", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen != "alice" {
		t.Errorf("expected principal to fall back to workflow creator, got %q", seen)
	}
}

func TestRunner_Cancel(t *testing.T) {
	wf := chainWorkflow()
	rec := newFakeRecorder()
	executionID := uuid.New()

	started := make(chan struct{})
	runner := newTestRunner(wf, rec, map[string]Executor{
		domain.NodeTypeManualTrigger: executorFunc(passthrough),
		domain.NodeTypeHTTPRequest: executorFunc(func(ctx context.Context, req *Request) ([]domain.Item, error) {
			close(started)
			<-ctx.Done()
			return nil, context.Cause(ctx)
		}),
		domain.NodeTypeCode: executorFunc(passthrough),
	})

	done := make(chan error, 1)
	go func() {
		done <- runner.Run(context.Background(), executionID, wf.ID, "alice", nil)
	}()

	<-started
	if !runner.Cancel(executionID) {
		t.Fatal("Cancel must report the execution as active")
	}

	select {
	case err := <-done:
		if !errors.Is(err, ErrExecutionCancelled) {
			t.Errorf("expected ErrExecutionCancelled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("execution did not stop after cancel")
	}

	if rec.finalStatus != domain.ExecutionStatusCancelled {
		t.Errorf("expected status cancelled, got %s", rec.finalStatus)
	}
	for _, id := range rec.begun {
		if id == "transform" {
			t.Error("node after the cancelled one must not start")
		}
	}
	if runner.Cancel(executionID) {
		t.Error("Cancel of a finished execution must return false")
	}
}

func TestRunner_DuplicateRunRejected(t *testing.T) {
	wf := chainWorkflow()
	rec := newFakeRecorder()
	executionID := uuid.New()

	started := make(chan struct{})
	release := make(chan struct{})
	runner := newTestRunner(wf, rec, map[string]Executor{
		domain.NodeTypeManualTrigger: executorFunc(func(_ context.Context, req *Request) ([]domain.Item, error) {
			close(started)
			<-release
			return req.Items, nil
		}),
		domain.NodeTypeHTTPRequest: executorFunc(passthrough),
		domain.NodeTypeCode:        executorFunc(passthrough),
	})

	done := make(chan error, 1)
	go func() {
		done <- runner.Run(context.Background(), executionID, wf.ID, "alice", nil)
	}()
	<-started

	if err := runner.Run(context.Background(), executionID, wf.ID, "alice", nil); !errors.Is(err, ErrExecutionActive) {
		t.Errorf("expected ErrExecutionActive, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Errorf("unexpected error from first run: %v", err)
	}
	if runner.ActiveCount() != 0 {
		t.Errorf("expected 0 active executions, got %d", runner.ActiveCount())
	}
}

func TestRunner_FanOutDuplicatesBatch(t *testing.T) {
	// trigger → left, trigger → right: обе ветки получают полный батч.
	wf := &domain.Workflow{
		ID:        uuid.New(),
		CreatedBy: "alice",
		Nodes: []domain.Node{
			{ID: "trigger", Type: domain.NodeTypeManualTrigger, Kind: domain.NodeKindTrigger},
			{ID: "left", Type: domain.NodeTypeCode, Kind: domain.NodeKindAction},
			{ID: "right", Type: domain.NodeTypeCode, Kind: domain.NodeKindAction},
		},
		Connections: []domain.Connection{
			{SourceNodeID: "trigger", TargetNodeID: "left"},
			{SourceNodeID: "trigger", TargetNodeID: "right"},
		},
	}

	rec := newFakeRecorder()
	batches := make(map[string]int)
	var mu sync.Mutex
	runner := newTestRunner(wf, rec, map[string]Executor{
		domain.NodeTypeManualTrigger: executorFunc(passthrough),
		domain.NodeTypeCode: executorFunc(func(_ context.Context, req *Request) ([]domain.Item, error) {
			mu.Lock()
			batches[req.Node.ID] = len(req.Items)
			mu.Unlock()
			return req.Items, nil
		}),
	})

	seed := []domain.Item{
		domain.WithFields(map[string]any{"n": 1}),
		domain.WithFields(map[string]any{"n": 2}),
	}
	if err := runner.Run(context.Background(), uuid.New(), wf.ID, "alice", seed); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if batches["left"] != 2 || batches["right"] != 2 {
		t.Errorf("both branches must receive the full batch, got %v", batches)
	}
}

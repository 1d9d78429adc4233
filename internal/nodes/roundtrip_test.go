package nodes

import (
	"context"
	"encoding/json"
	"reflect"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/shaiso/Conveyor/internal/domain"
	"github.com/shaiso/Conveyor/internal/engine"
)

// memStore отдаёт один workflow для любого ID.
type memStore struct {
	wf *domain.Workflow
}

func (s *memStore) GetByID(context.Context, uuid.UUID) (*domain.Workflow, error) {
	return s.wf, nil
}

// memRecorder собирает выходные батчи по узлам.
type memRecorder struct {
	mu      sync.Mutex
	outputs map[string][]domain.Item
	status  domain.ExecutionStatus
}

func newMemRecorder() *memRecorder {
	return &memRecorder{outputs: make(map[string][]domain.Item)}
}

func (r *memRecorder) BeginNode(_ context.Context, executionID uuid.UUID, nodeID string, inputs []domain.Item) (*domain.NodeExecution, error) {
	return &domain.NodeExecution{ExecutionID: executionID, NodeID: nodeID, InputItems: inputs}, nil
}

func (r *memRecorder) CompleteNode(_ context.Context, rec *domain.NodeExecution, outputs []domain.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outputs[rec.NodeID] = outputs
	return nil
}

func (r *memRecorder) FailNode(_ context.Context, rec *domain.NodeExecution, nodeErr error) error {
	return nil
}

func (r *memRecorder) CompleteExecution(_ context.Context, _ uuid.UUID, status domain.ExecutionStatus, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = status
	return nil
}

// Сериализация workflow не должна менять его поведение: прогон
// графа trigger → if → forEach до и после JSON round-trip даёт
// одинаковые items на листовом узле.
func TestWorkflowSurvivesJSONRoundTrip(t *testing.T) {
	wf := &domain.Workflow{
		ID:        uuid.New(),
		Name:      "expand-tags",
		CreatedBy: "alice",
		Version:   1,
		Nodes: []domain.Node{
			{ID: "start", Type: domain.NodeTypeManualTrigger, Kind: domain.NodeKindTrigger},
			{ID: "filter", Type: domain.NodeTypeIf, Kind: domain.NodeKindControl,
				Config: map[string]any{"expression": "count > 1"}},
			{ID: "expand", Type: domain.NodeTypeForEach, Kind: domain.NodeKindControl,
				Config: map[string]any{"arrayPath": "tags"}},
		},
		Connections: []domain.Connection{
			{SourceNodeID: "start", TargetNodeID: "filter"},
			{SourceNodeID: "filter", TargetNodeID: "expand"},
		},
	}

	seed := itemsWith(
		map[string]any{"count": float64(2), "tags": []any{"a", "b"}},
		map[string]any{"count": float64(0), "tags": []any{"dropped"}},
	)

	run := func(t *testing.T, wf *domain.Workflow) ([]domain.Item, domain.ExecutionStatus) {
		t.Helper()
		rec := newMemRecorder()
		runner := engine.New(engine.Config{
			Store:    &memStore{wf: wf},
			Recorder: rec,
			Registry: DefaultRegistry(Deps{Credentials: &fakeCredentials{}}),
		})
		if err := runner.Run(context.Background(), uuid.New(), wf.ID, "alice", seed); err != nil {
			t.Fatalf("run failed: %v", err)
		}
		return rec.outputs["expand"], rec.status
	}

	before, statusBefore := run(t, wf)

	raw, err := json.Marshal(wf)
	if err != nil {
		t.Fatalf("marshal workflow: %v", err)
	}
	var decoded domain.Workflow
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal workflow: %v", err)
	}

	after, statusAfter := run(t, &decoded)

	if statusBefore != domain.ExecutionStatusSuccess || statusAfter != statusBefore {
		t.Fatalf("statuses: before=%s after=%s", statusBefore, statusAfter)
	}
	want := itemsWith(map[string]any{"value": "a"}, map[string]any{"value": "b"})
	if !reflect.DeepEqual(before, want) {
		t.Fatalf("leaf items before round-trip = %v, want %v", before, want)
	}
	if !reflect.DeepEqual(after, before) {
		t.Errorf("leaf items changed after round-trip: before=%v after=%v", before, after)
	}
}

package engine

import (
	"errors"
	"testing"

	"github.com/shaiso/Conveyor/internal/domain"
)

func conn(source, target string) domain.Connection {
	return domain.Connection{SourceNodeID: source, TargetNodeID: target}
}

func TestBuildGraph_SimpleChain(t *testing.T) {
	wf := &domain.Workflow{
		Nodes: []domain.Node{
			{ID: "A", Type: domain.NodeTypeManualTrigger, Kind: domain.NodeKindTrigger},
			{ID: "B", Type: domain.NodeTypeHTTPRequest, Kind: domain.NodeKindAction},
			{ID: "C", Type: domain.NodeTypeHTMLExtract, Kind: domain.NodeKindAction},
		},
		Connections: []domain.Connection{conn("A", "B"), conn("B", "C")},
	}

	g, err := BuildGraph(wf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if g.Size() != 3 {
		t.Errorf("expected 3 nodes, got %d", g.Size())
	}

	order := g.OrderFrom("A")
	want := []string{"A", "B", "C"}
	if len(order) != len(want) {
		t.Fatalf("expected order %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("expected order %v, got %v", want, order)
			break
		}
	}
}

func TestBuildGraph_Diamond(t *testing.T) {
	// A → B → D
	// A → C → D
	wf := &domain.Workflow{
		Nodes: []domain.Node{
			{ID: "A", Type: domain.NodeTypeManualTrigger, Kind: domain.NodeKindTrigger},
			{ID: "B", Type: domain.NodeTypeHTTPRequest, Kind: domain.NodeKindAction},
			{ID: "C", Type: domain.NodeTypeHTTPRequest, Kind: domain.NodeKindAction},
			{ID: "D", Type: domain.NodeTypeCode, Kind: domain.NodeKindAction},
		},
		Connections: []domain.Connection{
			conn("A", "B"), conn("A", "C"),
			conn("B", "D"), conn("C", "D"),
		},
	}

	g, err := BuildGraph(wf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	order := g.OrderFrom("A")
	if len(order) != 4 {
		t.Fatalf("expected 4 nodes in order, got %v", order)
	}

	// D — merge-узел: появляется после обоих предшественников и ровно один раз.
	pos := make(map[string]int, len(order))
	for i, id := range order {
		if _, seen := pos[id]; seen {
			t.Fatalf("node %s appears twice in order %v", id, order)
		}
		pos[id] = i
	}
	if pos["D"] < pos["B"] || pos["D"] < pos["C"] {
		t.Errorf("merge node D must come after B and C, got %v", order)
	}
}

func TestBuildGraph_Cycle(t *testing.T) {
	wf := &domain.Workflow{
		Nodes: []domain.Node{
			{ID: "A", Type: domain.NodeTypeManualTrigger, Kind: domain.NodeKindTrigger},
			{ID: "B", Type: domain.NodeTypeCode, Kind: domain.NodeKindAction},
			{ID: "C", Type: domain.NodeTypeCode, Kind: domain.NodeKindAction},
		},
		Connections: []domain.Connection{
			conn("A", "B"), conn("B", "C"), conn("C", "B"),
		},
	}

	_, err := BuildGraph(wf)
	if !errors.Is(err, ErrGraphCycle) {
		t.Errorf("expected ErrGraphCycle, got %v", err)
	}
}

func TestBuildGraph_SelfLoop(t *testing.T) {
	wf := &domain.Workflow{
		Nodes: []domain.Node{
			{ID: "A", Type: domain.NodeTypeManualTrigger, Kind: domain.NodeKindTrigger},
			{ID: "B", Type: domain.NodeTypeCode, Kind: domain.NodeKindAction},
		},
		Connections: []domain.Connection{conn("A", "B"), conn("B", "B")},
	}

	_, err := BuildGraph(wf)
	if !errors.Is(err, ErrGraphCycle) {
		t.Errorf("expected ErrGraphCycle, got %v", err)
	}
}

func TestBuildGraph_DanglingConnectionSkipped(t *testing.T) {
	wf := &domain.Workflow{
		Nodes: []domain.Node{
			{ID: "A", Type: domain.NodeTypeManualTrigger, Kind: domain.NodeKindTrigger},
			{ID: "B", Type: domain.NodeTypeCode, Kind: domain.NodeKindAction},
		},
		Connections: []domain.Connection{
			conn("A", "B"),
			conn("A", "ghost"),
			conn("ghost", "B"),
		},
	}

	g, err := BuildGraph(wf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(g.Outgoing("A")) != 1 {
		t.Errorf("expected 1 outgoing edge from A, got %d", len(g.Outgoing("A")))
	}
}

func TestOrderFrom_UnreachableNodesExcluded(t *testing.T) {
	// A → B; C → D — вторая компонента недостижима от триггера A.
	wf := &domain.Workflow{
		Nodes: []domain.Node{
			{ID: "A", Type: domain.NodeTypeManualTrigger, Kind: domain.NodeKindTrigger},
			{ID: "B", Type: domain.NodeTypeCode, Kind: domain.NodeKindAction},
			{ID: "C", Type: domain.NodeTypeManualTrigger, Kind: domain.NodeKindTrigger},
			{ID: "D", Type: domain.NodeTypeCode, Kind: domain.NodeKindAction},
		},
		Connections: []domain.Connection{conn("A", "B"), conn("C", "D")},
	}

	g, err := BuildGraph(wf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	order := g.OrderFrom("A")
	for _, id := range order {
		if id == "C" || id == "D" {
			t.Errorf("node %s is unreachable from A but present in order %v", id, order)
		}
	}
	if len(order) != 2 {
		t.Errorf("expected 2 reachable nodes, got %v", order)
	}
}

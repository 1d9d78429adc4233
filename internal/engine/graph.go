package engine

import (
	"github.com/shaiso/Conveyor/internal/domain"
)

// Graph — граф узлов workflow, подготовленный к обходу.
//
// Строится один раз на старте execution из снимка Workflow.
// Рёбра, ссылающиеся на отсутствующие узлы, пропускаются — их
// корректность гарантирует слой хранения, движок не перепроверяет.
type Graph struct {
	workflow *domain.Workflow

	// outgoing — исходящие рёбра (nodeID → target IDs в порядке объявления).
	outgoing map[string][]string

	// incoming — входящие рёбра (nodeID → source IDs).
	incoming map[string][]string

	// order — топологический порядок всех узлов графа.
	order []string
}

// BuildGraph строит граф из workflow и проверяет его на циклы.
// Циклический граф возвращает ErrGraphCycle до запуска первого узла.
func BuildGraph(wf *domain.Workflow) (*Graph, error) {
	g := &Graph{
		workflow: wf,
		outgoing: make(map[string][]string, len(wf.Nodes)),
		incoming: make(map[string][]string, len(wf.Nodes)),
	}

	known := make(map[string]bool, len(wf.Nodes))
	for i := range wf.Nodes {
		known[wf.Nodes[i].ID] = true
	}

	for _, conn := range wf.Connections {
		if !known[conn.SourceNodeID] || !known[conn.TargetNodeID] {
			continue
		}
		g.outgoing[conn.SourceNodeID] = append(g.outgoing[conn.SourceNodeID], conn.TargetNodeID)
		g.incoming[conn.TargetNodeID] = append(g.incoming[conn.TargetNodeID], conn.SourceNodeID)
	}

	order, err := g.topologicalSort()
	if err != nil {
		return nil, err
	}
	g.order = order

	return g, nil
}

// topologicalSort выполняет топологическую сортировку (алгоритм Кана).
// Возвращает ErrGraphCycle, если обработаны не все узлы.
func (g *Graph) topologicalSort() ([]string, error) {
	inDegree := make(map[string]int, len(g.workflow.Nodes))
	for i := range g.workflow.Nodes {
		inDegree[g.workflow.Nodes[i].ID] = len(g.incoming[g.workflow.Nodes[i].ID])
	}

	// Очередь узлов без входящих рёбер, в порядке объявления —
	// порядок обхода детерминирован.
	var queue []string
	for i := range g.workflow.Nodes {
		if inDegree[g.workflow.Nodes[i].ID] == 0 {
			queue = append(queue, g.workflow.Nodes[i].ID)
		}
	}

	order := make([]string, 0, len(inDegree))

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)

		for _, target := range g.outgoing[id] {
			inDegree[target]--
			if inDegree[target] == 0 {
				queue = append(queue, target)
			}
		}
	}

	if len(order) != len(inDegree) {
		return nil, ErrGraphCycle
	}

	return order, nil
}

// Node возвращает узел по ID или nil.
func (g *Graph) Node(id string) *domain.Node {
	return g.workflow.NodeByID(id)
}

// Outgoing возвращает target-узлы исходящих рёбер узла.
func (g *Graph) Outgoing(id string) []string {
	return g.outgoing[id]
}

// Size возвращает количество узлов в графе.
func (g *Graph) Size() int {
	return len(g.workflow.Nodes)
}

// reachableFrom возвращает множество узлов, достижимых из start
// (включая сам start).
func (g *Graph) reachableFrom(start string) map[string]bool {
	reachable := map[string]bool{start: true}
	stack := []string{start}

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, target := range g.outgoing[id] {
			if !reachable[target] {
				reachable[target] = true
				stack = append(stack, target)
			}
		}
	}

	return reachable
}

// OrderFrom возвращает топологический порядок узлов, достижимых
// из start. Узел появляется в результате после всех своих
// предшественников, поэтому merge-узел выполняется один раз —
// когда все его входные батчи готовы.
func (g *Graph) OrderFrom(start string) []string {
	reachable := g.reachableFrom(start)

	order := make([]string, 0, len(reachable))
	for _, id := range g.order {
		if reachable[id] {
			order = append(order, id)
		}
	}
	return order
}

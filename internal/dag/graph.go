package dag

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Graph is the edge structure of a plan, keyed by node ID. Iteration
// follows insertion order, so every result is deterministic. All methods are
// safe for concurrent use.
type Graph struct {
	mu    sync.RWMutex
	nodes map[string]*vertex
	order []string
}

type vertex struct {
	id         string
	deps       map[string]*vertex
	dependents map[string]*vertex
	// out lists dependents in the order their edges were added.
	out []*vertex
}

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{nodes: make(map[string]*vertex)}
}

// AddNode adds a node with the given ID. Adding an existing ID is a no-op.
func (g *Graph) AddNode(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[id]; ok {
		return
	}
	g.nodes[id] = &vertex{
		id:         id,
		deps:       make(map[string]*vertex),
		dependents: make(map[string]*vertex),
	}
	g.order = append(g.order, id)
}

// AddEdge records that toID runs after fromID. Both nodes must exist and a
// node cannot depend on itself. Repeating an edge is a no-op.
func (g *Graph) AddEdge(fromID, toID string) error {
	if fromID == toID {
		return fmt.Errorf("self-referential edge not allowed: %s -> %s", fromID, fromID)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	from, ok := g.nodes[fromID]
	if !ok {
		return fmt.Errorf("source node not found: %s", fromID)
	}
	to, ok := g.nodes[toID]
	if !ok {
		return fmt.Errorf("destination node not found: %s", toID)
	}
	if _, exists := from.dependents[toID]; exists {
		return nil
	}

	to.deps[fromID] = from
	from.dependents[toID] = to
	from.out = append(from.out, to)
	return nil
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// Dependencies returns the sorted IDs the given node depends on.
func (g *Graph) Dependencies(id string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	return sortedIDs(n.deps), nil
}

// Dependents returns the sorted IDs that depend on the given node.
func (g *Graph) Dependents(id string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	return sortedIDs(n.dependents), nil
}

func sortedIDs(set map[string]*vertex) []string {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DetectCycles returns an error naming the first cycle found, e.g.
// "cycle detected: a -> b -> a".
func (g *Graph) DetectCycles() error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	const (
		unvisited = iota
		active
		finished
	)
	state := make(map[string]int, len(g.nodes))
	var stack []string

	var visit func(n *vertex) error
	visit = func(n *vertex) error {
		switch state[n.id] {
		case finished:
			return nil
		case active:
			start := 0
			for i, id := range stack {
				if id == n.id {
					start = i
					break
				}
			}
			path := append(append([]string{}, stack[start:]...), n.id)
			return fmt.Errorf("cycle detected: %s", strings.Join(path, " -> "))
		}

		state[n.id] = active
		stack = append(stack, n.id)
		for _, next := range n.out {
			if err := visit(next); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		state[n.id] = finished
		return nil
	}

	for _, id := range g.order {
		if err := visit(g.nodes[id]); err != nil {
			return err
		}
	}
	return nil
}

// TopologicalOrder returns every node ID such that each node comes after
// all of its dependencies. Ties keep insertion order.
func (g *Graph) TopologicalOrder() ([]string, error) {
	if err := g.DetectCycles(); err != nil {
		return nil, err
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	remaining := make(map[string]int, len(g.nodes))
	var queue []*vertex
	for _, id := range g.order {
		n := g.nodes[id]
		remaining[id] = len(n.deps)
		if len(n.deps) == 0 {
			queue = append(queue, n)
		}
	}

	out := make([]string, 0, len(g.nodes))
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		out = append(out, n.id)
		for _, next := range n.out {
			remaining[next.id]--
			if remaining[next.id] == 0 {
				queue = append(queue, next)
			}
		}
	}
	return out, nil
}

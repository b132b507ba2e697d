package dag

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
)

// NodeState is the execution state of a node.
type NodeState int32

const (
	Pending NodeState = iota
	Running
	Done
	Failed
)

func (s NodeState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Node is one task invocation within a compiled plan.
type Node struct {
	ID          string
	Task        string
	LongRunning bool
	Deps        []*Node
	Dependents  []*Node

	State atomic.Int32
	Error error

	depCount atomic.Int32
	skipOnce sync.Once
}

// Target is what a referenced name resolves to.
type Target struct {
	// Pipeline is set when the name refers to a pipeline rather than a task.
	Pipeline    Step
	LongRunning bool
}

// Resolver looks up a referenced name.
type Resolver func(name string) (Target, bool)

// Plan is a compiled pipeline ready for execution. Nodes are in
// topological order.
type Plan struct {
	Graph *Graph
	Nodes []*Node
}

// LongRunningCount returns the number of nodes that never finish on their own.
func (p *Plan) LongRunningCount() int {
	n := 0
	for _, node := range p.Nodes {
		if node.LongRunning {
			n++
		}
	}
	return n
}

type compiler struct {
	plan      *Plan
	resolve   Resolver
	uses      map[string]int
	expanding []string
}

// Compile expands root into a plan. Referenced pipelines are inlined; a
// pipeline that refers back to itself is an error.
func Compile(root Step, resolve Resolver) (*Plan, error) {
	c := &compiler{
		plan:    &Plan{Graph: New()},
		resolve: resolve,
		uses:    make(map[string]int),
	}
	if _, _, err := c.build(root); err != nil {
		return nil, err
	}
	order, err := c.plan.Graph.TopologicalOrder()
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*Node, len(c.plan.Nodes))
	for _, n := range c.plan.Nodes {
		byID[n.ID] = n
	}
	for i, id := range order {
		c.plan.Nodes[i] = byID[id]
	}
	return c.plan, nil
}

// build returns the entry and exit nodes of step.
func (c *compiler) build(step Step) (sources, sinks []*Node, err error) {
	switch s := step.(type) {
	case ref:
		return c.buildRef(s.name)
	case group:
		if !s.series {
			for _, child := range s.steps {
				src, snk, err := c.build(child)
				if err != nil {
					return nil, nil, err
				}
				sources = append(sources, src...)
				sinks = append(sinks, snk...)
			}
			return sources, sinks, nil
		}
		var prev []*Node
		for _, child := range s.steps {
			src, snk, err := c.build(child)
			if err != nil {
				return nil, nil, err
			}
			if len(src) == 0 {
				continue
			}
			if prev == nil {
				sources = src
			}
			for _, from := range prev {
				for _, to := range src {
					if err := c.link(from, to); err != nil {
						return nil, nil, err
					}
				}
			}
			prev = snk
		}
		return sources, prev, nil
	default:
		return nil, nil, fmt.Errorf("unsupported pipeline step %T", step)
	}
}

func (c *compiler) buildRef(name string) ([]*Node, []*Node, error) {
	target, ok := c.resolve(name)
	if !ok {
		return nil, nil, fmt.Errorf("unknown task or pipeline %q", name)
	}
	if target.Pipeline != nil {
		for _, open := range c.expanding {
			if open == name {
				return nil, nil, fmt.Errorf("pipeline %q refers to itself: %s -> %s", name, strings.Join(c.expanding, " -> "), name)
			}
		}
		c.expanding = append(c.expanding, name)
		defer func() { c.expanding = c.expanding[:len(c.expanding)-1] }()
		return c.build(target.Pipeline)
	}

	c.uses[name]++
	id := name
	if n := c.uses[name]; n > 1 {
		id = fmt.Sprintf("%s#%d", name, n)
	}
	node := &Node{ID: id, Task: name, LongRunning: target.LongRunning}
	c.plan.Graph.AddNode(id)
	c.plan.Nodes = append(c.plan.Nodes, node)
	return []*Node{node}, []*Node{node}, nil
}

func (c *compiler) link(from, to *Node) error {
	if err := c.plan.Graph.AddEdge(from.ID, to.ID); err != nil {
		return err
	}
	from.Dependents = append(from.Dependents, to)
	to.Deps = append(to.Deps, from)
	to.depCount.Add(1)
	return nil
}

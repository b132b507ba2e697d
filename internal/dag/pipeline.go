package dag

import (
	"strings"
)

// Step is one element of a pipeline composition: a reference to a task or
// pipeline by name, or a series/parallel group of further steps.
type Step interface {
	String() string
	isStep()
}

type ref struct {
	name string
}

func (r ref) String() string { return r.name }
func (ref) isStep()          {}

type group struct {
	series bool
	steps  []Step
}

func (g group) String() string {
	parts := make([]string, len(g.steps))
	for i, s := range g.steps {
		parts[i] = s.String()
	}
	kind := "parallel"
	if g.series {
		kind = "series"
	}
	return kind + "(" + strings.Join(parts, ", ") + ")"
}

func (group) isStep() {}

// Ref refers to a registered task or pipeline by name.
func Ref(name string) Step {
	return ref{name: name}
}

// Refs is shorthand for a list of Ref steps.
func Refs(names ...string) []Step {
	steps := make([]Step, len(names))
	for i, n := range names {
		steps[i] = Ref(n)
	}
	return steps
}

// Series runs steps one after another; each step starts only once every
// task of the previous step has completed.
func Series(steps ...Step) Step {
	return group{series: true, steps: steps}
}

// Parallel runs steps with no ordering between them.
func Parallel(steps ...Step) Step {
	return group{steps: steps}
}

// RefNames returns every name referenced anywhere in step.
func RefNames(step Step) []string {
	switch s := step.(type) {
	case ref:
		return []string{s.name}
	case group:
		var names []string
		for _, child := range s.steps {
			names = append(names, RefNames(child)...)
		}
		return names
	}
	return nil
}

package dag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/specialistvlad/assetgrid/internal/ctxlog"
)

// ErrSkipped marks a node that never ran because an upstream node failed or
// the run was canceled before it started.
var ErrSkipped = errors.New("skipped")

// ErrFatal matches errors that cancel the whole run even when the plan
// continues past failures. Use Fatal to mark one.
var ErrFatal = errors.New("fatal")

type fatalError struct{ err error }

func (f fatalError) Error() string        { return f.err.Error() }
func (f fatalError) Unwrap() error        { return f.err }
func (f fatalError) Is(target error) bool { return target == ErrFatal }

// Fatal marks err as fatal to the run it occurs in. The message is unchanged.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return fatalError{err: err}
}

// TaskFunc runs the task a node refers to.
type TaskFunc func(ctx context.Context, task string) error

// Options configures an Executor.
type Options struct {
	// Workers bounds how many nodes run at once. It is raised automatically
	// so that long-running nodes can never starve the rest of the plan.
	Workers int
	// FailFast cancels the whole run on the first failure. Without it, only
	// the dependents of a failed node are skipped, unless the error is
	// ErrFatal.
	FailFast bool
}

// Executor runs a compiled plan. An Executor is single-use.
type Executor struct {
	plan       *Plan
	run        TaskFunc
	failFast   bool
	numWorkers int
	wg         sync.WaitGroup
}

// NewExecutor creates an executor for plan.
func NewExecutor(plan *Plan, run TaskFunc, opts Options) *Executor {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	if floor := plan.LongRunningCount() + 1; workers < floor {
		workers = floor
	}
	return &Executor{
		plan:       plan,
		run:        run,
		failFast:   opts.FailFast,
		numWorkers: workers,
	}
}

// Run executes the plan concurrently and returns an error if any node fails.
// It respects the cancellation signal from the provided context.
func (e *Executor) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	nodes := e.plan.Nodes
	if len(nodes) == 0 {
		return nil
	}

	readyChan := make(chan *Node, len(nodes))
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.wg.Add(len(nodes))

	rootNodeCount := 0
	for _, node := range nodes {
		if node.depCount.Load() == 0 {
			logger.Debug("Found root node.", "nodeID", node.ID)
			readyChan <- node
			rootNodeCount++
		}
	}
	logger.Debug("Found all root nodes.", "count", rootNodeCount)

	logger.Debug("Starting worker pool.", "workers", e.numWorkers)
	for i := 0; i < e.numWorkers; i++ {
		go e.worker(runCtx, readyChan, cancel, i)
	}

	e.wg.Wait()
	close(readyChan)
	logger.Debug("All nodes completed.")

	var failedNodes []string
	var rootCauseError error
	for _, node := range nodes {
		if NodeState(node.State.Load()) != Failed {
			continue
		}
		if node.Error == nil || errors.Is(node.Error, ErrSkipped) || errors.Is(node.Error, context.Canceled) {
			continue
		}
		failedNodes = append(failedNodes, node.ID)
		if rootCauseError == nil {
			rootCauseError = node.Error
		}
	}

	if rootCauseError != nil {
		return fmt.Errorf("execution failed for %s: %w", strings.Join(failedNodes, ", "), rootCauseError)
	}
	return nil
}

// skip marks node as failed without running it, then does the same for
// everything downstream of it.
func (e *Executor) skip(ctx context.Context, node *Node, cause error) {
	node.skipOnce.Do(func() {
		node.State.Store(int32(Failed))
		node.Error = cause
		e.wg.Done()
		e.skipDependents(ctx, node)
	})
}

// skipDependents recursively marks all downstream nodes as failed and
// decrements the WaitGroup.
func (e *Executor) skipDependents(ctx context.Context, node *Node) {
	logger := ctxlog.FromContext(ctx)
	for _, dependent := range node.Dependents {
		logger.Warn("Skipping dependent task due to upstream failure.", "task", dependent.ID, "dependency", node.ID)
		e.skip(ctx, dependent, fmt.Errorf("%w due to upstream failure of '%s'", ErrSkipped, node.ID))
	}
}

// worker is the core processing loop for a single concurrent worker.
func (e *Executor) worker(ctx context.Context, readyChan chan *Node, cancel context.CancelFunc, workerID int) {
	logger := ctxlog.FromContext(ctx)

	for node := range readyChan {
		workerLogger := logger.With("workerID", workerID, "nodeID", node.ID)

		if ctx.Err() != nil {
			workerLogger.Debug("Context canceled, skipping node execution.")
			e.skip(ctx, node, fmt.Errorf("%w: %w", ErrSkipped, ctx.Err()))
			continue
		}

		node.State.Store(int32(Running))
		err := e.run(ctx, node.Task)

		if err != nil {
			node.State.Store(int32(Failed))
			node.Error = err
			if e.failFast || errors.Is(err, ErrFatal) {
				workerLogger.Debug("Canceling run after failure.", "error", err)
				cancel()
			}
			e.skipDependents(ctx, node)
			e.wg.Done()
			continue
		}

		node.State.Store(int32(Done))
		for _, dependent := range node.Dependents {
			if dependent.depCount.Add(-1) == 0 {
				workerLogger.Debug("Unlocking dependent node.", "dependentID", dependent.ID)
				readyChan <- dependent
			}
		}
		e.wg.Done()
	}
}

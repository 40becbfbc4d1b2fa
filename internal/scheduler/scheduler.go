package scheduler

import (
	"container/heap"
	"context"
	"time"

	"github.com/vk/pipegrid/internal/config"
	"github.com/vk/pipegrid/internal/ctxlog"
	"github.com/vk/pipegrid/internal/dag"
	"github.com/vk/pipegrid/internal/matrix"
	"github.com/vk/pipegrid/internal/predicate"
)

// StepRunner executes one leaf step of an instance. The scheduler treats
// it as opaque and synchronous; long-running work simply holds its worker
// slot until it returns.
type StepRunner interface {
	RunStep(ctx context.Context, inst *matrix.Instance, step *matrix.BoundStep) error
}

// Scheduler drives one pipeline run over an instance graph. A single event
// loop owns every Record; workers only execute leaves and report back, so
// all state transitions are applied by one writer.
type Scheduler struct {
	graph   *dag.Graph
	runner  StepRunner
	workers int
	baseCtx predicate.Context

	records   map[string]*Record
	remaining map[string]int
	ready     readyQueue
	running   int
	finished  int
}

// completion is a worker's report back to the loop.
type completion struct {
	node *dag.Node
	err  error
}

// New creates a scheduler for one run. Workers bounds how many instances
// execute leaves concurrently; it must be at least 1.
func New(graph *dag.Graph, runner StepRunner, workers int, runCtx *config.RunContext) *Scheduler {
	if workers < 1 {
		workers = 1
	}
	base := predicate.Context{}
	if runCtx != nil {
		base = predicate.Context{Event: runCtx.Event, Ref: runCtx.Ref, Params: runCtx.Params}
	}
	return &Scheduler{
		graph:   graph,
		runner:  runner,
		workers: workers,
		baseCtx: base,
	}
}

// Run executes the graph to completion and returns the record table. Leaf
// failures never surface as an error here; they are folded into records
// and judged by the result aggregator. The returned map always holds one
// terminal record per instance.
func (s *Scheduler) Run(ctx context.Context) map[string]*Record {
	logger := ctxlog.FromContext(ctx)

	s.records = make(map[string]*Record, len(s.graph.Nodes))
	s.remaining = make(map[string]int, len(s.graph.Nodes))
	s.ready = nil
	heap.Init(&s.ready)

	for _, node := range s.graph.Order {
		s.records[node.ID] = &Record{Node: node, State: Blocked}
		s.remaining[node.ID] = len(node.Deps)
	}
	for _, node := range s.graph.Order {
		if s.remaining[node.ID] == 0 {
			s.records[node.ID].State = Pending
			heap.Push(&s.ready, node)
		}
	}

	total := len(s.graph.Nodes)
	done := make(chan completion)

	logger.Debug("Scheduler starting.", "instances", total, "workers", s.workers)

	for s.finished < total {
		s.dispatch(ctx, done)

		if s.finished == total {
			break
		}
		if s.running == 0 && s.ready.Len() == 0 {
			// Unreachable with an acyclic graph: every remaining node waits
			// on something that can no longer move. Cancel them so the run
			// terminates instead of hanging.
			logger.Error("Scheduler stalled with blocked instances remaining.")
			for _, node := range s.graph.Order {
				rec := s.records[node.ID]
				if !rec.State.Terminal() {
					s.finish(rec, Cancelled, nil)
				}
			}
			break
		}

		select {
		case c := <-done:
			s.handleCompletion(ctx, c)
		case <-ctx.Done():
			s.drain(ctx, done)
		}
	}

	logger.Debug("Scheduler finished.", "instances", total)
	return s.records
}

// dispatch admits ready instances while worker capacity remains. Skipped
// and stale (already cancelled) queue entries are resolved inline, which
// may unblock further nodes, so the loop keeps going until it can make no
// more progress.
func (s *Scheduler) dispatch(ctx context.Context, done chan completion) {
	logger := ctxlog.FromContext(ctx)

	for s.running < s.workers && s.ready.Len() > 0 {
		node := heap.Pop(&s.ready).(*dag.Node)
		rec := s.records[node.ID]
		if rec.State != Pending {
			// Cancelled while queued.
			continue
		}

		if node.Instance.When != nil && !node.Instance.When.Eval(s.predicateContext(node.Instance)) {
			logger.Info("⏭️ Skipping instance, predicate is false.", "instance", node.ID)
			s.finish(rec, Skipped, nil)
			s.release(node)
			continue
		}

		rec.State = Running
		rec.StartedAt = time.Now()
		s.running++
		logger.Info("▶️ Starting instance", "instance", node.ID)

		go func(n *dag.Node) {
			done <- completion{node: n, err: s.runInstance(ctx, n)}
		}(node)
	}
}

// handleCompletion applies a worker's result and fans consequences out to
// dependents and matrix siblings.
func (s *Scheduler) handleCompletion(ctx context.Context, c completion) {
	logger := ctxlog.FromContext(ctx)
	rec := s.records[c.node.ID]
	s.running--

	if c.err == nil {
		s.finish(rec, Succeeded, nil)
		logger.Info("✅ Instance succeeded", "instance", c.node.ID, "duration", rec.Duration())
		s.release(c.node)
		return
	}

	if c.node.Instance.ContinueOnError {
		rec.Tolerated = true
		s.finish(rec, Failed, c.err)
		logger.Warn("⚠️ Instance failed (tolerated)", "instance", c.node.ID, "error", c.err, "experimental", c.node.Instance.Experimental)
		s.release(c.node)
		return
	}

	s.finish(rec, Failed, c.err)
	logger.Error("❌ Instance failed", "instance", c.node.ID, "error", c.err)
	s.cancelDependents(ctx, c.node)
	if c.node.Instance.FailFast {
		s.cancelSiblings(ctx, c.node)
	}
}

// runInstance executes the instance's steps in order, honoring step-level
// predicates. The first step error fails the instance.
func (s *Scheduler) runInstance(ctx context.Context, node *dag.Node) error {
	logger := ctxlog.FromContext(ctx)
	pctx := s.predicateContext(node.Instance)

	for _, step := range node.Instance.Steps {
		if step.When != nil && !step.When.Eval(pctx) {
			logger.Debug("Skipping step, predicate is false.", "instance", node.ID, "step", step.Name)
			continue
		}
		if err := s.runner.RunStep(ctx, node.Instance, step); err != nil {
			return err
		}
	}
	return nil
}

// release decrements dependents' outstanding-prerequisite counts and
// promotes those that reach zero. Only Blocked dependents move; a node
// cancelled by another prerequisite stays cancelled.
func (s *Scheduler) release(node *dag.Node) {
	for _, dependent := range node.Dependents {
		s.remaining[dependent.ID]--
		if s.remaining[dependent.ID] > 0 {
			continue
		}
		rec := s.records[dependent.ID]
		if rec.State == Blocked {
			rec.State = Pending
			heap.Push(&s.ready, dependent)
		}
	}
}

// cancelDependents transitively cancels every dependent that has not
// started. Running instances are never preempted, and an already-terminal
// dependent stays as it is.
func (s *Scheduler) cancelDependents(ctx context.Context, node *dag.Node) {
	logger := ctxlog.FromContext(ctx)
	for _, dependent := range node.Dependents {
		rec := s.records[dependent.ID]
		if rec.State != Blocked && rec.State != Pending {
			continue
		}
		logger.Warn("🚫 Cancelling instance, upstream failed.", "instance", dependent.ID, "upstream", node.ID)
		s.finish(rec, Cancelled, nil)
		s.cancelDependents(ctx, dependent)
	}
}

// cancelSiblings applies the matrix fail-fast rule: still-waiting
// instances of the same template are cancelled, other templates are never
// touched. Each cancelled sibling drags its own dependents down with it.
func (s *Scheduler) cancelSiblings(ctx context.Context, node *dag.Node) {
	logger := ctxlog.FromContext(ctx)
	for _, sibling := range s.graph.Siblings(node.Instance.TemplateID) {
		if sibling.ID == node.ID {
			continue
		}
		rec := s.records[sibling.ID]
		if rec.State != Blocked && rec.State != Pending {
			continue
		}
		logger.Warn("🚫 Cancelling matrix sibling, fail-fast.", "instance", sibling.ID, "failed", node.ID)
		s.finish(rec, Cancelled, nil)
		s.cancelDependents(ctx, sibling)
	}
}

// drain handles external cancellation: nothing new starts, waiting
// instances become Cancelled, and in-flight leaves run to completion.
func (s *Scheduler) drain(ctx context.Context, done chan completion) {
	logger := ctxlog.FromContext(ctx)
	logger.Warn("Run cancelled, draining in-flight instances.", "running", s.running)

	for _, node := range s.graph.Order {
		rec := s.records[node.ID]
		if rec.State == Blocked || rec.State == Pending {
			s.finish(rec, Cancelled, ctx.Err())
		}
	}
	for s.running > 0 {
		c := <-done
		s.running--
		rec := s.records[c.node.ID]
		if c.err == nil {
			s.finish(rec, Succeeded, nil)
		} else {
			rec.Tolerated = c.node.Instance.ContinueOnError
			s.finish(rec, Failed, c.err)
		}
	}
}

// finish applies a terminal transition.
func (s *Scheduler) finish(rec *Record, state State, err error) {
	rec.State = state
	rec.Err = err
	if !rec.StartedAt.IsZero() && rec.FinishedAt.IsZero() {
		rec.FinishedAt = time.Now()
	}
	s.finished++
}

// predicateContext binds the run-level facts and the instance's matrix
// values for predicate evaluation.
func (s *Scheduler) predicateContext(inst *matrix.Instance) predicate.Context {
	pctx := s.baseCtx
	pctx.Matrix = inst.Combination.Strings()
	return pctx
}

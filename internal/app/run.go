package app

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/vk/pipegrid/internal/artifact"
	"github.com/vk/pipegrid/internal/config"
	"github.com/vk/pipegrid/internal/ctxlog"
	"github.com/vk/pipegrid/internal/dag"
	"github.com/vk/pipegrid/internal/report"
	"github.com/vk/pipegrid/internal/scheduler"
)

// ErrPipelineFailed is returned by Run when the aggregate verdict is
// Failure. The report has already been rendered by then; the entrypoint
// maps this to a non-zero exit code.
var ErrPipelineFailed = errors.New("pipeline failed")

// Run executes the loaded pipeline: expand, build the instance graph,
// schedule, aggregate, render.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	runCtx := &config.RunContext{
		Event:  a.cfg.Event,
		Ref:    a.cfg.Ref,
		Params: a.cfg.Params,
		RunID:  uuid.New(),
	}

	graph, err := dag.Build(ctx, a.model, runCtx)
	if err != nil {
		return fmt.Errorf("failed to build instance graph: %w", err)
	}
	a.logger.Debug("Instance graph built.", "instances", len(graph.Nodes))

	if a.cfg.DryRun {
		a.renderPlan(graph)
		return nil
	}

	bus, err := artifact.NewBus(graph.Visibility())
	if err != nil {
		return err
	}

	runner := newStepRunner(a.registry, bus, runCtx)
	a.logger.Info("🚀 Starting pipeline run", "pipeline", a.model.Name, "run_id", runCtx.RunID, "instances", len(graph.Nodes), "workers", a.cfg.Workers)

	sched := scheduler.New(graph, runner, a.cfg.Workers, runCtx)
	records := sched.Run(ctx)
	a.logger.Info("🏁 Pipeline run finished.")

	rep := report.Build(runCtx.RunID, a.model.Name, graph, records, bus.List())
	rep.Render(a.outW)

	if rep.Verdict() == report.Failure {
		return fmt.Errorf("%w: %v", ErrPipelineFailed, rep.FailedInstances())
	}
	return nil
}

// renderPlan prints the expanded instances and their dependencies without
// running anything.
func (a *App) renderPlan(graph *dag.Graph) {
	fmt.Fprintf(a.outW, "pipeline %q: %d instances\n", a.model.Name, len(graph.Nodes))
	for _, node := range graph.Order {
		fmt.Fprintf(a.outW, "  %s\n", node.ID)
		deps := make([]string, 0, len(node.Deps))
		for id := range node.Deps {
			deps = append(deps, id)
		}
		sort.Strings(deps)
		for _, dep := range deps {
			fmt.Fprintf(a.outW, "    needs %s\n", dep)
		}
	}
}

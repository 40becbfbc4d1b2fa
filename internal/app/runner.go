package app

import (
	"context"
	"fmt"

	"github.com/vk/pipegrid/internal/artifact"
	"github.com/vk/pipegrid/internal/config"
	"github.com/vk/pipegrid/internal/localexec"
	"github.com/vk/pipegrid/internal/matrix"
	"github.com/vk/pipegrid/internal/registry"
)

// stepRunner is the default leaf executor: `uses` steps dispatch to the
// action registry, `run` steps shell out through localexec.
type stepRunner struct {
	registry *registry.Registry
	shell    *localexec.Executor
	bus      *artifact.Bus
	runCtx   *config.RunContext
}

func newStepRunner(reg *registry.Registry, bus *artifact.Bus, runCtx *config.RunContext) *stepRunner {
	return &stepRunner{
		registry: reg,
		shell:    localexec.New(),
		bus:      bus,
		runCtx:   runCtx,
	}
}

// RunStep implements scheduler.StepRunner.
func (r *stepRunner) RunStep(ctx context.Context, inst *matrix.Instance, step *matrix.BoundStep) error {
	if step.Uses != "" {
		fn, ok := r.registry.Action(step.Uses)
		if !ok {
			return fmt.Errorf("step %q: unknown action %q", step.Name, step.Uses)
		}
		return fn(ctx, &registry.ActionContext{
			InstanceID: inst.ID(),
			With:       step.With,
			Bus:        r.bus,
		})
	}
	return r.shell.Run(ctx, step.Run, r.instanceEnv(inst))
}

// instanceEnv exposes the run context and matrix binding to leaf commands.
func (r *stepRunner) instanceEnv(inst *matrix.Instance) map[string]string {
	env := map[string]string{
		"PIPELINE_EVENT": r.runCtx.Event,
		"PIPELINE_REF":   r.runCtx.Ref,
		"PIPELINE_RUN":   r.runCtx.RunID.String(),
	}
	for name, value := range inst.Combination.Strings() {
		env[localexec.EnvName("MATRIX_", name)] = value
	}
	for key, value := range r.runCtx.Params {
		env[localexec.EnvName("PARAM_", key)] = value
	}
	return env
}

package integration_tests

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/pipegrid/internal/artifact"
	"github.com/vk/pipegrid/internal/report"
	"github.com/vk/pipegrid/internal/scheduler"
	"github.com/vk/pipegrid/internal/testutil"
)

const diamondHCL = `
	job "a" {
		step "work" { uses = "echo" }
	}
	job "b" {
		needs             = ["a"]
		continue_on_error = true
		step "work" { uses = "echo" }
	}
	job "c" {
		needs = ["a"]
		step "work" { uses = "echo" }
	}
	job "d" {
		needs = ["b", "c"]
		step "work" { uses = "echo" }
	}
`

// TestCoreExecution_DiamondRootFailure validates that a non-tolerated root
// failure cancels the entire diamond and yields a failure verdict.
func TestCoreExecution_DiamondRootFailure(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	runner := testutil.NewFakeRunner()
	runner.Fail["job.a"] = errors.New("root broke")

	// --- Act ---
	result := testutil.RunPipeline(t, diamondHCL, nil, func(*artifact.Bus) scheduler.StepRunner {
		return runner
	})

	// --- Assert ---
	assert.Equal(t, scheduler.Failed, result.Records["job.a"].State)
	for _, id := range []string{"job.b", "job.c", "job.d"} {
		assert.Equal(t, scheduler.Cancelled, result.Records[id].State, id)
		assert.False(t, runner.Ran(id), "%s must never execute a step", id)
	}

	rep := report.Build(uuid.New(), result.Model.Name, result.Graph, result.Records, nil)
	assert.Equal(t, report.Failure, rep.Verdict())
	assert.Equal(t, []string{"job.a"}, rep.FailedInstances())
}

// TestCoreExecution_DiamondToleratedBranch validates that a tolerated
// branch failure leaves the fan-in runnable and the verdict successful.
func TestCoreExecution_DiamondToleratedBranch(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	runner := testutil.NewFakeRunner()
	runner.Fail["job.b"] = errors.New("branch broke")

	// --- Act ---
	result := testutil.RunPipeline(t, diamondHCL, nil, func(*artifact.Bus) scheduler.StepRunner {
		return runner
	})

	// --- Assert ---
	b := result.Records["job.b"]
	assert.Equal(t, scheduler.Failed, b.State)
	assert.True(t, b.Tolerated)
	assert.Equal(t, scheduler.Succeeded, result.Records["job.c"].State)
	assert.Equal(t, scheduler.Succeeded, result.Records["job.d"].State)
	assert.True(t, runner.Ran("job.d"))

	rep := report.Build(uuid.New(), result.Model.Name, result.Graph, result.Records, nil)
	assert.Equal(t, report.Success, rep.Verdict())
}

// TestCoreExecution_DiamondFlow validates that a diamond of needs-edges
// executes every instance exactly once, with the fan-in waiting for both
// branches.
func TestCoreExecution_DiamondFlow(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	pipelineHCL := `
		job "a" {
			step "work" { uses = "echo" }
		}
		job "b" {
			needs = ["a"]
			step "work" { uses = "echo" }
		}
		job "c" {
			needs = ["a"]
			step "work" { uses = "echo" }
		}
		job "d" {
			needs = ["b", "c"]
			step "work" { uses = "echo" }
		}
	`
	runner := testutil.NewFakeRunner()

	// --- Act ---
	result := testutil.RunPipeline(t, pipelineHCL, nil, func(*artifact.Bus) scheduler.StepRunner {
		return runner
	})

	// --- Assert ---
	for _, id := range []string{"job.a", "job.b", "job.c", "job.d"} {
		require.Contains(t, result.Records, id)
		assert.Equal(t, scheduler.Succeeded, result.Records[id].State, id)
	}

	calls := runner.Calls()
	require.Len(t, calls, 4)
	assert.Equal(t, "job.a", calls[0].Instance, "the root must run first")
	assert.Equal(t, "job.d", calls[3].Instance, "the fan-in must run last")
}

// TestCoreExecution_SkippedJobSatisfiesNeeds validates that a job whose
// predicate is false is recorded as skipped and still releases its
// dependents.
func TestCoreExecution_SkippedJobSatisfiesNeeds(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	pipelineHCL := `
		job "gate" {
			when {
				event = "pull_request"
			}
			step "work" { uses = "echo" }
		}
		job "after" {
			needs = ["gate"]
			step "work" { uses = "echo" }
		}
	`
	runner := testutil.NewFakeRunner()

	// --- Act ---
	result := testutil.RunPipeline(t, pipelineHCL, nil, func(*artifact.Bus) scheduler.StepRunner {
		return runner
	})

	// --- Assert ---
	assert.Equal(t, scheduler.Skipped, result.Records["job.gate"].State)
	assert.Equal(t, scheduler.Succeeded, result.Records["job.after"].State)
	assert.False(t, runner.Ran("job.gate"), "a skipped instance must not execute steps")
	assert.Contains(t, result.LogOutput, "Skipping instance")
}

// TestCoreExecution_StepPredicate validates that a false step-level
// predicate skips only that step while the instance still succeeds.
func TestCoreExecution_StepPredicate(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	pipelineHCL := `
		job "build" {
			step "always" { uses = "echo" }
			step "release only" {
				uses = "echo"
				when {
					branch = "refs/heads/release"
				}
			}
		}
	`
	runner := testutil.NewFakeRunner()

	// --- Act ---
	result := testutil.RunPipeline(t, pipelineHCL, nil, func(*artifact.Bus) scheduler.StepRunner {
		return runner
	})

	// --- Assert ---
	assert.Equal(t, scheduler.Succeeded, result.Records["job.build"].State)
	calls := runner.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "always", calls[0].Step)
}

package app_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/pipegrid/internal/app"
	"github.com/vk/pipegrid/internal/hcl_adapter"
	"github.com/vk/pipegrid/internal/testutil"
)

func writePipeline(t *testing.T, source string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipeline.hcl")
	require.NoError(t, os.WriteFile(path, []byte(source), 0o644))
	return path
}

func newApp(t *testing.T, out *testutil.SafeBuffer, source string, mutate func(*app.Config)) *app.App {
	t.Helper()
	cfg, err := app.NewConfig(app.Config{
		PipelinePath: writePipeline(t, source),
		Ref:          "refs/heads/main",
		LogFormat:    "text",
		LogLevel:     "error",
	})
	require.NoError(t, err)
	if mutate != nil {
		mutate(cfg)
	}
	return app.NewApp(out, cfg, hcl_adapter.NewLoader())
}

func TestAppRunSuccess(t *testing.T) {
	out := &testutil.SafeBuffer{}
	a := newApp(t, out, `
job "build" {
  step "compile" {
    run = "true"
  }
}

job "verify" {
  needs = ["build"]
  step "check" {
    run = "test \"$PIPELINE_EVENT\" = push"
  }
}
`, nil)

	require.NoError(t, a.Run(context.Background()))
	assert.Contains(t, out.String(), "succeeded  job.build")
	assert.Contains(t, out.String(), "succeeded  job.verify")
	assert.Contains(t, out.String(), "verdict: success")
}

func TestAppRunFailure(t *testing.T) {
	out := &testutil.SafeBuffer{}
	a := newApp(t, out, `
job "build" {
  step "compile" {
    run = "exit 1"
  }
}

job "deploy" {
  needs = ["build"]
  step "ship" {
    run = "true"
  }
}
`, nil)

	err := a.Run(context.Background())
	require.ErrorIs(t, err, app.ErrPipelineFailed)
	assert.Contains(t, err.Error(), "job.build")
	assert.Contains(t, out.String(), "failed     job.build")
	assert.Contains(t, out.String(), "cancelled  job.deploy")
	assert.Contains(t, out.String(), "verdict: failure")
}

func TestAppRunArtifactFlow(t *testing.T) {
	out := &testutil.SafeBuffer{}
	a := newApp(t, out, `
job "build" {
  step "publish" {
    uses = "artifact/upload"
    with = {
      name    = "bin"
      content = "release payload"
    }
  }
}

job "deploy" {
  needs = ["build"]
  step "fetch" {
    uses = "artifact/download"
    with = {
      name = "bin"
    }
  }
}
`, nil)

	require.NoError(t, a.Run(context.Background()))
	assert.Contains(t, out.String(), "artifacts:")
	assert.Contains(t, out.String(), "bin (15 bytes) from job.build")
}

func TestAppDryRun(t *testing.T) {
	out := &testutil.SafeBuffer{}
	a := newApp(t, out, `
job "build" {
  step "compile" {
    run = "exit 1"
  }
}

job "test" {
  needs = ["build"]
  matrix {
    axis "os" {
      values = ["linux", "macos"]
    }
  }
  step "run" {
    run = "exit 1"
  }
}
`, func(cfg *app.Config) { cfg.DryRun = true })

	require.NoError(t, a.Run(context.Background()), "dry run never executes leaves")
	assert.Contains(t, out.String(), "3 instances")
	assert.Contains(t, out.String(), "job.test[os=linux]")
	assert.Contains(t, out.String(), "needs job.build")
}

func TestNewAppPanicsOnBrokenDocument(t *testing.T) {
	cfg, err := app.NewConfig(app.Config{PipelinePath: writePipeline(t, `job "a" {`)})
	require.NoError(t, err)

	assert.Panics(t, func() {
		app.NewApp(&testutil.SafeBuffer{}, cfg, hcl_adapter.NewLoader())
	})
}

func TestAppModelAndRegistryAccessors(t *testing.T) {
	a := newApp(t, &testutil.SafeBuffer{}, `
job "a" {
  step "s" {
    uses = "echo"
  }
}
`, nil)

	assert.Len(t, a.Model().Jobs, 1)
	assert.Contains(t, a.Registry().Names(), "artifact/upload")
}

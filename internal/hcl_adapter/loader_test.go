package hcl_adapter_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/pipegrid/internal/config"
	"github.com/vk/pipegrid/internal/hcl_adapter"
	"github.com/vk/pipegrid/internal/matrix"
	"github.com/vk/pipegrid/internal/predicate"
	"github.com/vk/pipegrid/internal/testutil"
	"github.com/zclconf/go-cty/cty"
)

const fullDocument = `
name = "release"

job "build" {
  step "compile" {
    run = "make build"
  }
  step "upload" {
    uses = "artifact/upload"
    with = {
      name    = "bin"
      content = "payload"
    }
  }
}

job "test" {
  needs             = ["build"]
  continue_on_error = true

  matrix {
    fail_fast = false
    axis "os" {
      values = ["linux", "macos"]
    }
    include {
      values       = { os = "windows" }
      experimental = true
    }
  }

  when {
    event = "push"
    not {
      matrix_contains {
        axis  = "os"
        value = "macos"
      }
    }
  }

  step "run tests" {
    run = "make test OS=${matrix.os}"
    when {
      branch = "refs/heads/main"
    }
  }
}
`

func TestLoadFullDocument(t *testing.T) {
	model, err := testutil.LoadModel(t, fullDocument)
	require.NoError(t, err)

	assert.Equal(t, "release", model.Name)
	require.Len(t, model.Jobs, 2)

	build := model.Jobs[0]
	assert.Equal(t, "build", build.ID)
	assert.Empty(t, build.Needs)
	require.Len(t, build.Steps, 2)
	assert.Equal(t, "artifact/upload", build.Steps[1].Uses)
	assert.Len(t, build.Steps[1].With, 2)

	test := model.Jobs[1]
	assert.Equal(t, []string{"build"}, test.Needs)
	assert.True(t, test.ContinueOnError)

	require.NotNil(t, test.Matrix)
	assert.False(t, test.Matrix.FailFast)
	require.Len(t, test.Matrix.Axes, 1)
	assert.Equal(t, "os", test.Matrix.Axes[0].Name)
	assert.Equal(t, []cty.Value{cty.StringVal("linux"), cty.StringVal("macos")}, test.Matrix.Axes[0].Values)
	require.Len(t, test.Matrix.Include, 1)
	assert.True(t, test.Matrix.Include[0].Experimental)

	require.NotNil(t, test.When)
	assert.True(t, test.When.Eval(predicate.Context{Event: "push", Matrix: map[string]string{"os": "linux"}}))
	assert.False(t, test.When.Eval(predicate.Context{Event: "push", Matrix: map[string]string{"os": "macos"}}))
	assert.False(t, test.When.Eval(predicate.Context{Event: "pull_request", Matrix: map[string]string{"os": "linux"}}))

	step := test.Steps[0]
	require.NotNil(t, step.When)
	assert.True(t, step.When.Eval(predicate.Context{Ref: "refs/heads/main"}))
}

func TestLoadBindsStepExpressions(t *testing.T) {
	model, err := testutil.LoadModel(t, fullDocument)
	require.NoError(t, err)

	test, ok := model.Template("test")
	require.True(t, ok)
	instances, err := matrix.Expand(test, testutil.DefaultRunContext())
	require.NoError(t, err)
	require.Len(t, instances, 3)
	assert.Equal(t, "make test OS=linux", instances[0].Steps[0].Run)
}

func TestLoadStepValidation(t *testing.T) {
	cases := []struct {
		name    string
		step    string
		wantErr string
	}{
		{
			"run and uses are exclusive",
			`step "s" {
				run  = "make"
				uses = "echo"
			}`,
			"mutually exclusive",
		},
		{
			"one of run or uses required",
			`step "s" {}`,
			"one of 'run' or 'uses' is required",
		},
		{
			"with requires uses",
			`step "s" {
				run  = "make"
				with = { key = "value" }
			}`,
			"'with' requires 'uses'",
		},
		{
			"with keys must be static",
			`step "s" {
				uses = "echo"
				with = { (matrix.os) = "value" }
			}`,
			"static strings",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := testutil.LoadModel(t, "job \"a\" {\n"+tc.step+"\n}\n")
			require.Error(t, err)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestLoadMatrixValidation(t *testing.T) {
	t.Run("empty axis rejected", func(t *testing.T) {
		_, err := testutil.LoadModel(t, `
job "a" {
  matrix {
    axis "os" {
      values = []
    }
  }
  step "s" {
    uses = "echo"
  }
}
`)
		assert.ErrorContains(t, err, `axis "os" has no values`)
	})

	t.Run("fail fast defaults to true", func(t *testing.T) {
		model, err := testutil.LoadModel(t, `
job "a" {
  matrix {
    axis "os" {
      values = ["linux"]
    }
  }
  step "s" {
    uses = "echo"
  }
}
`)
		require.NoError(t, err)
		assert.True(t, model.Jobs[0].Matrix.FailFast)
	})
}

func TestLoadSyntaxError(t *testing.T) {
	_, err := testutil.LoadModel(t, `job "a" {`)

	var perr *config.ParseError
	require.ErrorAs(t, err, &perr)
}

func TestLoadValidationError(t *testing.T) {
	_, err := testutil.LoadModel(t, `
job "a" {
  needs = ["ghost"]
  step "s" {
    uses = "echo"
  }
}
`)
	var refErr *config.UnknownJobReferenceError
	require.ErrorAs(t, err, &refErr)
}

func TestLoadDirectoryMergesInNameOrder(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "10-build.hcl"), []byte(`
job "build" {
  step "s" {
    run = "make"
  }
}
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20-test.hcl"), []byte(`
name = "suite"

job "test" {
  needs = ["build"]
  step "s" {
    run = "make test"
  }
}
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	loader := hcl_adapter.NewLoader()
	model, err := loader.Load(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, "suite", model.Name)
	require.Len(t, model.Jobs, 2)
	assert.Equal(t, "build", model.Jobs[0].ID)
	assert.Equal(t, "test", model.Jobs[1].ID)
}

func TestLoadNameDefaultsToFileStem(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nightly.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`
job "a" {
  step "s" {
    uses = "echo"
  }
}
`), 0o644))

	model, err := hcl_adapter.NewLoader().Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "nightly", model.Name)
}

package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("positional pipeline path", func(t *testing.T) {
		var out bytes.Buffer
		cfg, exit, err := Parse([]string{"ci.hcl"}, &out)
		require.NoError(t, err)
		require.False(t, exit)
		assert.Equal(t, "ci.hcl", cfg.PipelinePath)
		assert.Equal(t, "push", cfg.Event)
		assert.Equal(t, "refs/heads/main", cfg.Ref)
		assert.Equal(t, 4, cfg.Workers)
		assert.Equal(t, "json", cfg.LogFormat)
		assert.False(t, cfg.DryRun)
	})

	t.Run("pipeline flag wins over positional", func(t *testing.T) {
		var out bytes.Buffer
		cfg, _, err := Parse([]string{"-pipeline", "a.hcl", "b.hcl"}, &out)
		require.NoError(t, err)
		assert.Equal(t, "a.hcl", cfg.PipelinePath)
	})

	t.Run("shorthand flag", func(t *testing.T) {
		var out bytes.Buffer
		cfg, _, err := Parse([]string{"-p", "ci.yaml"}, &out)
		require.NoError(t, err)
		assert.Equal(t, "ci.yaml", cfg.PipelinePath)
	})

	t.Run("full option set", func(t *testing.T) {
		var out bytes.Buffer
		cfg, _, err := Parse([]string{
			"-event", "pull_request",
			"-ref", "refs/heads/dev",
			"-param", "env=staging",
			"-param", "split=4",
			"-workers", "8",
			"-log-format", "text",
			"-log-level", "debug",
			"-dry-run",
			"ci.hcl",
		}, &out)
		require.NoError(t, err)
		assert.Equal(t, "pull_request", cfg.Event)
		assert.Equal(t, "refs/heads/dev", cfg.Ref)
		assert.Equal(t, map[string]string{"env": "staging", "split": "4"}, cfg.Params)
		assert.Equal(t, 8, cfg.Workers)
		assert.Equal(t, "text", cfg.LogFormat)
		assert.Equal(t, "debug", cfg.LogLevel)
		assert.True(t, cfg.DryRun)
	})

	t.Run("missing path prints usage and exits cleanly", func(t *testing.T) {
		var out bytes.Buffer
		cfg, exit, err := Parse(nil, &out)
		require.NoError(t, err)
		assert.True(t, exit)
		assert.Nil(t, cfg)
		assert.Contains(t, out.String(), "Usage:")
	})

	t.Run("help exits cleanly", func(t *testing.T) {
		var out bytes.Buffer
		cfg, exit, err := Parse([]string{"-h"}, &out)
		require.NoError(t, err)
		assert.True(t, exit)
		assert.Nil(t, cfg)
	})

	t.Run("invalid log format", func(t *testing.T) {
		var out bytes.Buffer
		_, _, err := Parse([]string{"-log-format", "xml", "ci.hcl"}, &out)
		var exitErr *ExitError
		require.ErrorAs(t, err, &exitErr)
		assert.Equal(t, 2, exitErr.Code)
	})

	t.Run("invalid log level", func(t *testing.T) {
		var out bytes.Buffer
		_, _, err := Parse([]string{"-log-level", "verbose", "ci.hcl"}, &out)
		var exitErr *ExitError
		require.ErrorAs(t, err, &exitErr)
		assert.Equal(t, 2, exitErr.Code)
	})

	t.Run("malformed param", func(t *testing.T) {
		var out bytes.Buffer
		_, _, err := Parse([]string{"-param", "novalue", "ci.hcl"}, &out)
		var exitErr *ExitError
		require.ErrorAs(t, err, &exitErr)
		assert.Equal(t, 2, exitErr.Code)
		assert.Contains(t, exitErr.Message, "key=value")
	})

	t.Run("unknown flag", func(t *testing.T) {
		var out bytes.Buffer
		_, _, err := Parse([]string{"-bogus", "ci.hcl"}, &out)
		var exitErr *ExitError
		require.ErrorAs(t, err, &exitErr)
		assert.Equal(t, 2, exitErr.Code)
	})
}

// Package localexec runs `run` step commands in-process via the system
// shell. It is the default leaf executor; the orchestrator only sees an
// opaque exit status.
package localexec

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/vk/pipegrid/internal/ctxlog"
)

// Executor shells out step commands with a per-instance environment.
type Executor struct {
	// Dir is the working directory for commands. Empty means inherit.
	Dir string
}

// New creates a local executor.
func New() *Executor {
	return &Executor{}
}

// Run executes the command via `sh -c`, exporting the given variables on
// top of the parent environment. Output is captured into the run log. A
// non-zero exit status is returned as an error; the orchestrator decides
// what it means.
func (e *Executor) Run(ctx context.Context, command string, env map[string]string) error {
	logger := ctxlog.FromContext(ctx)

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = e.Dir
	cmd.Env = append(os.Environ(), formatEnv(env)...)

	output, err := cmd.CombinedOutput()
	if trimmed := strings.TrimSpace(string(output)); trimmed != "" {
		logger.Info(trimmed, "command", command)
	}
	if err != nil {
		return fmt.Errorf("command %q: %w", command, err)
	}
	return nil
}

// formatEnv renders the variable map as KEY=value pairs in sorted order.
func formatEnv(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}

// EnvName converts an axis or parameter name into an environment variable
// name: upper-cased, with every non-alphanumeric rune replaced by '_'.
func EnvName(prefix, name string) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, r := range strings.ToUpper(name) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

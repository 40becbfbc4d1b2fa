package testutil

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/pipegrid/internal/artifact"
	"github.com/vk/pipegrid/internal/config"
	"github.com/vk/pipegrid/internal/ctxlog"
	"github.com/vk/pipegrid/internal/dag"
	"github.com/vk/pipegrid/internal/hcl_adapter"
	"github.com/vk/pipegrid/internal/scheduler"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// Result holds the outcomes of one harness run.
type Result struct {
	Model     *config.Model
	Graph     *dag.Graph
	Bus       *artifact.Bus
	Records   map[string]*scheduler.Record
	LogOutput string
}

// DefaultRunContext is the trigger context harness runs use unless the
// test supplies its own.
func DefaultRunContext() *config.RunContext {
	return &config.RunContext{Event: "push", Ref: "refs/heads/main"}
}

// LoadModel parses an inline HCL pipeline document.
func LoadModel(t *testing.T, source string) (*config.Model, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipeline.hcl")
	require.NoError(t, os.WriteFile(path, []byte(source), 0o644))
	return hcl_adapter.NewLoader().Load(testContext(t), path)
}

// BuildGraph loads an inline document and builds its instance graph.
func BuildGraph(t *testing.T, source string, runCtx *config.RunContext) (*dag.Graph, error) {
	t.Helper()
	model, err := LoadModel(t, source)
	require.NoError(t, err)
	return dag.Build(testContext(t), model, runCtx)
}

// RunPipeline loads an inline document, builds the graph and schedules it
// against the runner produced by makeRunner, which receives the run's
// artifact bus so action-backed runners can share it.
func RunPipeline(t *testing.T, source string, runCtx *config.RunContext, makeRunner func(bus *artifact.Bus) scheduler.StepRunner) *Result {
	t.Helper()
	if runCtx == nil {
		runCtx = DefaultRunContext()
	}

	logBuffer := &SafeBuffer{}
	logger := slog.New(slog.NewTextHandler(logBuffer, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := ctxlog.WithLogger(context.Background(), logger)

	model, err := LoadModel(t, source)
	require.NoError(t, err)

	graph, err := dag.Build(ctx, model, runCtx)
	require.NoError(t, err)

	bus, err := artifact.NewBus(graph.Visibility())
	require.NoError(t, err)

	sched := scheduler.New(graph, makeRunner(bus), 4, runCtx)
	records := sched.Run(ctx)

	return &Result{
		Model:     model,
		Graph:     graph,
		Bus:       bus,
		Records:   records,
		LogOutput: logBuffer.String(),
	}
}

// testContext returns a context carrying a quiet test logger.
func testContext(t *testing.T) context.Context {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return ctxlog.WithLogger(context.Background(), logger)
}

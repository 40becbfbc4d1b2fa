package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/vk/pipegrid/internal/matrix"
)

// Call records one executed leaf step.
type Call struct {
	Instance string
	Step     string
}

// FakeRunner is a scheduler.StepRunner for tests: it records every step it
// executes and fails the instances the test tells it to.
type FakeRunner struct {
	mu    sync.Mutex
	calls []Call

	// Fail maps instance IDs to the error their first step returns.
	Fail map[string]error

	// Delay is slept per step, to widen concurrency windows in tests.
	Delay time.Duration

	// DelayFor overrides Delay for specific instances.
	DelayFor map[string]time.Duration
}

// NewFakeRunner creates an empty FakeRunner.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{
		Fail:     make(map[string]error),
		DelayFor: make(map[string]time.Duration),
	}
}

// RunStep implements scheduler.StepRunner.
func (f *FakeRunner) RunStep(ctx context.Context, inst *matrix.Instance, step *matrix.BoundStep) error {
	delay := f.Delay
	if d, ok := f.DelayFor[inst.ID()]; ok {
		delay = d
	}
	if delay > 0 {
		time.Sleep(delay)
	}
	f.mu.Lock()
	f.calls = append(f.calls, Call{Instance: inst.ID(), Step: step.Name})
	f.mu.Unlock()

	if err, ok := f.Fail[inst.ID()]; ok {
		return err
	}
	return nil
}

// Calls returns a copy of the recorded calls.
func (f *FakeRunner) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call{}, f.calls...)
}

// Ran reports whether any step of the given instance executed.
func (f *FakeRunner) Ran(instanceID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c.Instance == instanceID {
			return true
		}
	}
	return false
}

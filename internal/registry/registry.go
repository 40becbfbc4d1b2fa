package registry

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vk/pipegrid/internal/artifact"
)

// ActionContext carries everything a builtin action may touch: the calling
// instance's identity, its bound `with` arguments, and the artifact bus.
type ActionContext struct {
	InstanceID string
	With       map[string]string
	Bus        *artifact.Bus
}

// ActionFunc is the Go implementation of a builtin step action.
type ActionFunc func(ctx context.Context, ac *ActionContext) error

// Registry holds the builtin actions resolvable from a step's `uses` name
// for a single application instance.
type Registry struct {
	actions map[string]ActionFunc
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{actions: make(map[string]ActionFunc)}
}

// Register binds an action name to its implementation. Double registration
// is a programmer error.
func (r *Registry) Register(name string, fn ActionFunc) {
	if _, exists := r.actions[name]; exists {
		panic(fmt.Sprintf("action with name '%s' already registered", name))
	}
	slog.Debug("Registering action.", "name", name)
	r.actions[name] = fn
}

// Action resolves a registered action by name.
func (r *Registry) Action(name string) (ActionFunc, bool) {
	fn, ok := r.actions[name]
	return fn, ok
}

// Names returns the registered action names. Primarily for logging.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.actions))
	for name := range r.actions {
		names = append(names, name)
	}
	return names
}

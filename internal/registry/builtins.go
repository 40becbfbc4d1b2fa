package registry

import (
	"context"
	"fmt"
	"os"

	"github.com/vk/pipegrid/internal/ctxlog"
)

// RegisterBuiltins installs the core actions every run can use.
func RegisterBuiltins(r *Registry) {
	r.Register("echo", onEcho)
	r.Register("artifact/upload", onArtifactUpload)
	r.Register("artifact/download", onArtifactDownload)
}

// onEcho logs its message argument. Mostly useful for smoke-testing
// pipeline documents without real leaf commands.
func onEcho(ctx context.Context, ac *ActionContext) error {
	ctxlog.FromContext(ctx).Info(ac.With["message"], "instance", ac.InstanceID)
	return nil
}

// onArtifactUpload publishes an artifact from either a literal `content`
// argument or a `path` pointing at a file the preceding steps produced.
func onArtifactUpload(ctx context.Context, ac *ActionContext) error {
	name := ac.With["name"]
	if name == "" {
		return fmt.Errorf("artifact/upload: 'name' is required")
	}

	var payload []byte
	switch {
	case ac.With["path"] != "":
		data, err := os.ReadFile(ac.With["path"])
		if err != nil {
			return fmt.Errorf("artifact/upload: reading %q: %w", ac.With["path"], err)
		}
		payload = data
	default:
		payload = []byte(ac.With["content"])
	}

	if err := ac.Bus.Publish(ac.InstanceID, name, payload); err != nil {
		return err
	}
	ctxlog.FromContext(ctx).Info("📦 Published artifact", "name", name, "bytes", len(payload), "instance", ac.InstanceID)
	return nil
}

// onArtifactDownload consumes an artifact published by a transitive
// prerequisite, writing it to `path` when given.
func onArtifactDownload(ctx context.Context, ac *ActionContext) error {
	name := ac.With["name"]
	if name == "" {
		return fmt.Errorf("artifact/download: 'name' is required")
	}

	payload, err := ac.Bus.Consume(ac.InstanceID, name)
	if err != nil {
		return err
	}
	if path := ac.With["path"]; path != "" {
		if err := os.WriteFile(path, payload, 0o644); err != nil {
			return fmt.Errorf("artifact/download: writing %q: %w", path, err)
		}
	}
	ctxlog.FromContext(ctx).Info("📥 Consumed artifact", "name", name, "bytes", len(payload), "instance", ac.InstanceID)
	return nil
}

package dag

import "fmt"

// Builtin action names the visibility check inspects.
const (
	ActionUpload   = "artifact/upload"
	ActionDownload = "artifact/download"
)

// ArtifactVisibilityError reports a download step whose artifact has no
// producer inside the consumer's transitive needs-closure. Raised at graph
// build time so the run fails fast instead of at consume time.
type ArtifactVisibilityError struct {
	Consumer string
	Step     string
	Artifact string
}

// Error implements the error interface.
func (e *ArtifactVisibilityError) Error() string {
	return fmt.Sprintf("instance %q step %q consumes artifact %q that no transitive prerequisite publishes",
		e.Consumer, e.Step, e.Artifact)
}

// checkArtifactVisibility walks every bound download step and requires at
// least one upload step with the same artifact name inside the consumer's
// closure. A conditional upload that ends up skipped at run time still
// fails the consumer then, with ArtifactNotFound; this check only rules
// out consumption that could never be eligible.
func checkArtifactVisibility(g *Graph) error {
	producers := make(map[string]map[string]struct{})
	for _, node := range g.Order {
		for _, step := range node.Instance.Steps {
			if step.Uses != ActionUpload {
				continue
			}
			name := step.With["name"]
			if name == "" {
				return fmt.Errorf("instance %q step %q: artifact/upload requires a name", node.ID, step.Name)
			}
			if producers[name] == nil {
				producers[name] = make(map[string]struct{})
			}
			producers[name][node.ID] = struct{}{}
		}
	}

	for _, node := range g.Order {
		for _, step := range node.Instance.Steps {
			if step.Uses != ActionDownload {
				continue
			}
			name := step.With["name"]
			if name == "" {
				return fmt.Errorf("instance %q step %q: artifact/download requires a name", node.ID, step.Name)
			}
			visible := false
			for producer := range producers[name] {
				if _, ok := node.Closure[producer]; ok {
					visible = true
					break
				}
			}
			if !visible {
				return &ArtifactVisibilityError{Consumer: node.ID, Step: step.Name, Artifact: name}
			}
		}
	}
	return nil
}

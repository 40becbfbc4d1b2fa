package hcl_adapter

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/pipegrid/internal/config"
	"github.com/zclconf/go-cty/cty"
)

// translateJob converts one decoded job block into the model template.
func translateJob(job *jobBlock) (*config.JobTemplate, error) {
	tmpl := &config.JobTemplate{
		ID:              job.ID,
		Needs:           job.Needs,
		ContinueOnError: job.ContinueOnError,
		When:            translateWhen(job.When),
	}

	if job.Matrix != nil {
		spec, err := translateMatrix(job.ID, job.Matrix)
		if err != nil {
			return nil, err
		}
		tmpl.Matrix = spec
	}

	for _, step := range job.Steps {
		spec, err := translateStep(job.ID, step)
		if err != nil {
			return nil, err
		}
		tmpl.Steps = append(tmpl.Steps, spec)
	}
	return tmpl, nil
}

func translateMatrix(jobID string, block *matrixBlock) (*config.MatrixSpec, error) {
	spec := &config.MatrixSpec{FailFast: true}
	if block.FailFast != nil {
		spec.FailFast = *block.FailFast
	}

	for _, axis := range block.Axes {
		values, err := staticList(axis.Values)
		if err != nil {
			return nil, fmt.Errorf("job %q matrix axis %q: %w", jobID, axis.Name, err)
		}
		if len(values) == 0 {
			return nil, fmt.Errorf("job %q matrix axis %q has no values", jobID, axis.Name)
		}
		spec.Axes = append(spec.Axes, config.Axis{Name: axis.Name, Values: values})
	}

	for i, include := range block.Include {
		values, err := staticMap(include.Values)
		if err != nil {
			return nil, fmt.Errorf("job %q matrix include %d: %w", jobID, i, err)
		}
		spec.Include = append(spec.Include, config.IncludeEntry{
			Values:          values,
			Experimental:    include.Experimental,
			ContinueOnError: include.ContinueOnError,
		})
	}
	return spec, nil
}

func translateStep(jobID string, block *stepBlock) (*config.StepSpec, error) {
	spec := &config.StepSpec{
		Name: block.Name,
		When: translateWhen(block.When),
	}

	hasRun := exprPresent(block.Run)
	if block.Uses != nil {
		spec.Uses = *block.Uses
	}
	switch {
	case hasRun && spec.Uses != "":
		return nil, fmt.Errorf("job %q step %q: 'run' and 'uses' are mutually exclusive", jobID, block.Name)
	case !hasRun && spec.Uses == "":
		return nil, fmt.Errorf("job %q step %q: one of 'run' or 'uses' is required", jobID, block.Name)
	case hasRun:
		spec.Run = block.Run
	}

	if exprPresent(block.With) {
		if spec.Uses == "" {
			return nil, fmt.Errorf("job %q step %q: 'with' requires 'uses'", jobID, block.Name)
		}
		pairs, diags := hcl.ExprMap(block.With)
		if diags.HasErrors() {
			return nil, fmt.Errorf("job %q step %q: 'with' must be a map", jobID, block.Name)
		}
		spec.With = make(map[string]hcl.Expression, len(pairs))
		for _, pair := range pairs {
			key, err := staticString(pair.Key)
			if err != nil {
				return nil, fmt.Errorf("job %q step %q: 'with' keys must be static strings: %w", jobID, block.Name, err)
			}
			spec.With[key] = pair.Value
		}
	}
	return spec, nil
}

// exprPresent reports whether an optional expression attribute was written
// in the document. gohcl leaves absent expression fields as nil or binds
// them to a null literal depending on decode path; treat both as absent.
func exprPresent(expr hcl.Expression) bool {
	if expr == nil {
		return false
	}
	v, diags := expr.Value(nil)
	if diags.HasErrors() {
		// Not statically evaluable, so something was written.
		return true
	}
	return !v.IsNull()
}

// staticList evaluates an expression with no variables into its element
// values.
func staticList(expr hcl.Expression) ([]cty.Value, error) {
	v, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	if !v.CanIterateElements() {
		return nil, fmt.Errorf("expected a list, got %s", v.Type().FriendlyName())
	}
	var out []cty.Value
	for it := v.ElementIterator(); it.Next(); {
		_, ev := it.Element()
		out = append(out, ev)
	}
	return out, nil
}

// staticMap evaluates an expression with no variables into a string-keyed
// value map.
func staticMap(expr hcl.Expression) (map[string]cty.Value, error) {
	v, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	if !v.Type().IsObjectType() && !v.Type().IsMapType() {
		return nil, fmt.Errorf("expected a map, got %s", v.Type().FriendlyName())
	}
	out := make(map[string]cty.Value)
	for it := v.ElementIterator(); it.Next(); {
		k, ev := it.Element()
		out[k.AsString()] = ev
	}
	return out, nil
}

// staticString evaluates an expression with no variables into a string.
func staticString(expr hcl.Expression) (string, error) {
	v, diags := expr.Value(nil)
	if diags.HasErrors() {
		return "", diags
	}
	if v.Type() != cty.String {
		return "", fmt.Errorf("expected a string, got %s", v.Type().FriendlyName())
	}
	return v.AsString(), nil
}

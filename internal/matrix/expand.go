package matrix

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/pipegrid/internal/config"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Expand turns one job template into its concrete instance set. A template
// without a matrix yields exactly one instance bound to the empty
// combination. With a matrix, the Cartesian product over the axes (axis and
// value declaration order) is generated first, then include entries are
// merged in a second pass keyed by combination key: a duplicate of a
// product entry only contributes its side attributes, anything else becomes
// an additional instance. Include values outside every declared axis domain
// are legal.
func Expand(tmpl *config.JobTemplate, runCtx *config.RunContext) ([]*Instance, error) {
	if tmpl.Matrix == nil {
		inst := &Instance{
			TemplateID:      tmpl.ID,
			TemplateIndex:   tmpl.Index,
			Combination:     NewCombination(nil),
			When:            tmpl.When,
			ContinueOnError: tmpl.ContinueOnError,
			FailFast:        true,
		}
		if err := bindSteps(inst, tmpl, runCtx); err != nil {
			return nil, err
		}
		return []*Instance{inst}, nil
	}

	instances := product(tmpl)
	instances, err := mergeIncludes(tmpl, instances)
	if err != nil {
		return nil, err
	}

	for _, inst := range instances {
		if err := bindSteps(inst, tmpl, runCtx); err != nil {
			return nil, err
		}
	}
	return instances, nil
}

// product generates the Cartesian product over the declared axes using an
// odometer over value indices, so the output order follows declaration
// order axis by axis.
func product(tmpl *config.JobTemplate) []*Instance {
	axes := tmpl.Matrix.Axes
	total := 1
	for _, axis := range axes {
		total *= len(axis.Values)
	}
	if len(axes) == 0 {
		total = 0
	}

	instances := make([]*Instance, 0, total)
	counters := make([]int, len(axes))
	for n := 0; n < total; n++ {
		values := make(map[string]cty.Value, len(axes))
		for i, axis := range axes {
			values[axis.Name] = axis.Values[counters[i]]
		}
		instances = append(instances, &Instance{
			TemplateID:      tmpl.ID,
			TemplateIndex:   tmpl.Index,
			Combination:     NewCombination(values),
			When:            tmpl.When,
			ContinueOnError: tmpl.ContinueOnError,
			FailFast:        tmpl.Matrix.FailFast,
		})

		for i := len(axes) - 1; i >= 0; i-- {
			counters[i]++
			if counters[i] < len(axes[i].Values) {
				break
			}
			counters[i] = 0
		}
	}
	return instances
}

// mergeIncludes is the second expansion pass: includes that duplicate a
// product combination merge their side attributes onto it, the rest append
// as new instances in include order.
func mergeIncludes(tmpl *config.JobTemplate, instances []*Instance) ([]*Instance, error) {
	byKey := make(map[string]*Instance, len(instances))
	for _, inst := range instances {
		byKey[inst.Combination.Key()] = inst
	}

	for i, entry := range tmpl.Matrix.Include {
		if len(entry.Values) == 0 {
			return nil, fmt.Errorf("job %q: matrix include %d has no values", tmpl.ID, i)
		}
		comb := NewCombination(entry.Values)
		if existing, ok := byKey[comb.Key()]; ok {
			existing.Experimental = existing.Experimental || entry.Experimental
			existing.ContinueOnError = existing.ContinueOnError || entry.ContinueOnError || entry.Experimental
			continue
		}
		inst := &Instance{
			TemplateID:      tmpl.ID,
			TemplateIndex:   tmpl.Index,
			Combination:     comb,
			When:            tmpl.When,
			Experimental:    entry.Experimental,
			ContinueOnError: tmpl.ContinueOnError || entry.ContinueOnError || entry.Experimental,
			FailFast:        tmpl.Matrix.FailFast,
		}
		byKey[comb.Key()] = inst
		instances = append(instances, inst)
	}
	return instances, nil
}

// bindSteps evaluates every step expression against the instance's
// combination and the run context, producing the concrete BoundStep list.
func bindSteps(inst *Instance, tmpl *config.JobTemplate, runCtx *config.RunContext) error {
	evalCtx := evalContext(inst.Combination, runCtx)
	inst.Steps = make([]*BoundStep, 0, len(tmpl.Steps))

	for _, step := range tmpl.Steps {
		bound := &BoundStep{
			Name: step.Name,
			Uses: step.Uses,
			When: step.When,
		}
		if step.Run != nil {
			run, err := evalString(step.Run, evalCtx)
			if err != nil {
				return fmt.Errorf("job %q step %q: evaluating run: %w", tmpl.ID, step.Name, err)
			}
			bound.Run = run
		}
		if len(step.With) > 0 {
			bound.With = make(map[string]string, len(step.With))
			for key, expr := range step.With {
				v, err := evalString(expr, evalCtx)
				if err != nil {
					return fmt.Errorf("job %q step %q: evaluating with.%s: %w", tmpl.ID, step.Name, key, err)
				}
				bound.With[key] = v
			}
		}
		inst.Steps = append(inst.Steps, bound)
	}
	return nil
}

// evalContext exposes matrix.*, context.* and params.* to step expressions.
func evalContext(comb *Combination, runCtx *config.RunContext) *hcl.EvalContext {
	params := map[string]cty.Value{}
	event, ref := "", ""
	if runCtx != nil {
		event, ref = runCtx.Event, runCtx.Ref
		for k, v := range runCtx.Params {
			params[k] = cty.StringVal(v)
		}
	}
	paramsVal := cty.EmptyObjectVal
	if len(params) > 0 {
		paramsVal = cty.ObjectVal(params)
	}

	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"matrix": comb.Object(),
			"context": cty.ObjectVal(map[string]cty.Value{
				"event": cty.StringVal(event),
				"ref":   cty.StringVal(ref),
			}),
			"params": paramsVal,
		},
	}
}

// evalString evaluates an expression and converts the result to a string.
func evalString(expr hcl.Expression, evalCtx *hcl.EvalContext) (string, error) {
	v, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return "", diags
	}
	v, err := convert.Convert(v, cty.String)
	if err != nil {
		return "", err
	}
	if v.IsNull() {
		return "", fmt.Errorf("expression produced a null value")
	}
	return v.AsString(), nil
}

package yamlloader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/pipegrid/internal/config"
	"github.com/vk/pipegrid/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"
)

// Loader is the YAML implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new YAML pipeline document loader.
func NewLoader() *Loader {
	return &Loader{}
}

// fileRoot is the top-level document shape. Jobs are a list, not a map, so
// declaration order survives decoding.
type fileRoot struct {
	Name string    `yaml:"name"`
	Jobs []*jobDoc `yaml:"jobs"`
}

type jobDoc struct {
	ID              string     `yaml:"id"`
	Needs           []string   `yaml:"needs"`
	ContinueOnError bool       `yaml:"continue-on-error"`
	When            *whenDoc   `yaml:"when"`
	Matrix          *matrixDoc `yaml:"matrix"`
	Steps           []*stepDoc `yaml:"steps"`
}

type matrixDoc struct {
	FailFast *bool         `yaml:"fail-fast"`
	Axes     []*axisDoc    `yaml:"axes"`
	Include  []*includeDoc `yaml:"include"`
}

type axisDoc struct {
	Name   string `yaml:"name"`
	Values []any  `yaml:"values"`
}

type includeDoc struct {
	Values          map[string]any `yaml:"values"`
	Experimental    bool           `yaml:"experimental"`
	ContinueOnError bool           `yaml:"continue-on-error"`
}

type stepDoc struct {
	Name string            `yaml:"name"`
	Run  string            `yaml:"run"`
	Uses string            `yaml:"uses"`
	With map[string]string `yaml:"with"`
	When *whenDoc          `yaml:"when"`
}

// Load parses a single YAML pipeline document and returns the validated
// model.
func (l *Loader) Load(ctx context.Context, path string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &config.ParseError{Path: path, Err: err}
	}

	var root fileRoot
	decoder := yaml.NewDecoder(strings.NewReader(string(data)))
	decoder.KnownFields(true)
	if err := decoder.Decode(&root); err != nil {
		return nil, &config.ParseError{Path: path, Err: err}
	}

	model := &config.Model{Name: root.Name}
	if model.Name == "" {
		model.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	for _, job := range root.Jobs {
		tmpl, err := translateJob(path, job)
		if err != nil {
			return nil, &config.ParseError{Path: path, Err: err}
		}
		model.Jobs = append(model.Jobs, tmpl)
	}

	if err := model.Validate(); err != nil {
		return nil, err
	}
	logger.Debug("Pipeline document loaded.", "name", model.Name, "jobs", len(model.Jobs))
	return model, nil
}

func translateJob(path string, job *jobDoc) (*config.JobTemplate, error) {
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
		spec, err := translateStep(path, job.ID, step)
		if err != nil {
			return nil, err
		}
		tmpl.Steps = append(tmpl.Steps, spec)
	}
	return tmpl, nil
}

func translateMatrix(jobID string, doc *matrixDoc) (*config.MatrixSpec, error) {
	spec := &config.MatrixSpec{FailFast: true}
	if doc.FailFast != nil {
		spec.FailFast = *doc.FailFast
	}

	for _, axis := range doc.Axes {
		if len(axis.Values) == 0 {
			return nil, fmt.Errorf("job %q matrix axis %q has no values", jobID, axis.Name)
		}
		values := make([]cty.Value, 0, len(axis.Values))
		for _, raw := range axis.Values {
			v, err := scalarValue(raw)
			if err != nil {
				return nil, fmt.Errorf("job %q matrix axis %q: %w", jobID, axis.Name, err)
			}
			values = append(values, v)
		}
		spec.Axes = append(spec.Axes, config.Axis{Name: axis.Name, Values: values})
	}

	for i, include := range doc.Include {
		values := make(map[string]cty.Value, len(include.Values))
		for name, raw := range include.Values {
			v, err := scalarValue(raw)
			if err != nil {
				return nil, fmt.Errorf("job %q matrix include %d: %w", jobID, i, err)
			}
			values[name] = v
		}
		spec.Include = append(spec.Include, config.IncludeEntry{
			Values:          values,
			Experimental:    include.Experimental,
			ContinueOnError: include.ContinueOnError,
		})
	}
	return spec, nil
}

func translateStep(path, jobID string, doc *stepDoc) (*config.StepSpec, error) {
	spec := &config.StepSpec{
		Name: doc.Name,
		Uses: doc.Uses,
		When: translateWhen(doc.When),
	}

	switch {
	case doc.Run != "" && doc.Uses != "":
		return nil, fmt.Errorf("job %q step %q: 'run' and 'uses' are mutually exclusive", jobID, doc.Name)
	case doc.Run == "" && doc.Uses == "":
		return nil, fmt.Errorf("job %q step %q: one of 'run' or 'uses' is required", jobID, doc.Name)
	case doc.Run != "":
		expr, err := parseTemplate(path, doc.Run)
		if err != nil {
			return nil, fmt.Errorf("job %q step %q: parsing run: %w", jobID, doc.Name, err)
		}
		spec.Run = expr
	}

	if len(doc.With) > 0 {
		if spec.Uses == "" {
			return nil, fmt.Errorf("job %q step %q: 'with' requires 'uses'", jobID, doc.Name)
		}
		spec.With = make(map[string]hcl.Expression, len(doc.With))
		for key, raw := range doc.With {
			expr, err := parseTemplate(path, raw)
			if err != nil {
				return nil, fmt.Errorf("job %q step %q: parsing with.%s: %w", jobID, doc.Name, key, err)
			}
			spec.With[key] = expr
		}
	}
	return spec, nil
}

// parseTemplate turns a YAML string into an HCL template expression, so
// ${matrix.*} interpolation works identically across document formats.
func parseTemplate(filename, s string) (hcl.Expression, error) {
	expr, diags := hclsyntax.ParseTemplate([]byte(s), filename, hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return nil, diags
	}
	return expr, nil
}

// scalarValue converts a decoded YAML scalar into its cty equivalent.
func scalarValue(raw any) (cty.Value, error) {
	switch v := raw.(type) {
	case string:
		return cty.StringVal(v), nil
	case int:
		return cty.NumberIntVal(int64(v)), nil
	case int64:
		return cty.NumberIntVal(v), nil
	case float64:
		return cty.NumberFloatVal(v), nil
	case bool:
		return cty.BoolVal(v), nil
	default:
		return cty.NilVal, fmt.Errorf("unsupported value %v (%T), expected a scalar", raw, raw)
	}
}

package hcl_adapter

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/pipegrid/internal/config"
	"github.com/vk/pipegrid/internal/ctxlog"
)

// Loader is the HCL implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL pipeline document loader.
func NewLoader() *Loader {
	return &Loader{}
}

// fileRoot decodes the top-level blocks of one pipeline file.
type fileRoot struct {
	Name   *string     `hcl:"name,optional"`
	Jobs   []*jobBlock `hcl:"job,block"`
	Remain hcl.Body    `hcl:",remain"`
}

type jobBlock struct {
	ID              string       `hcl:"id,label"`
	Needs           []string     `hcl:"needs,optional"`
	ContinueOnError bool         `hcl:"continue_on_error,optional"`
	Matrix          *matrixBlock `hcl:"matrix,block"`
	When            *whenBlock   `hcl:"when,block"`
	Steps           []*stepBlock `hcl:"step,block"`
}

type matrixBlock struct {
	FailFast *bool           `hcl:"fail_fast,optional"`
	Axes     []*axisBlock    `hcl:"axis,block"`
	Include  []*includeBlock `hcl:"include,block"`
}

type axisBlock struct {
	Name   string         `hcl:"name,label"`
	Values hcl.Expression `hcl:"values"`
}

type includeBlock struct {
	Values          hcl.Expression `hcl:"values"`
	Experimental    bool           `hcl:"experimental,optional"`
	ContinueOnError bool           `hcl:"continue_on_error,optional"`
}

type stepBlock struct {
	Name string         `hcl:"name,label"`
	Run  hcl.Expression `hcl:"run,optional"`
	Uses *string        `hcl:"uses,optional"`
	With hcl.Expression `hcl:"with,optional"`
	When *whenBlock     `hcl:"when,block"`
}

// Load parses the pipeline document at path, which may be a single .hcl
// file or a directory of .hcl files merged in name order, and returns the
// validated model.
func (l *Loader) Load(ctx context.Context, path string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)

	files, err := findHCLFiles(path)
	if err != nil {
		return nil, &config.ParseError{Path: path, Err: err}
	}
	logger.Debug("Discovered pipeline files.", "count", len(files))

	model := &config.Model{
		Name: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
	}

	parser := hclparse.NewParser()
	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, &config.ParseError{Path: file, Err: diags}
		}

		var root fileRoot
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
			return nil, &config.ParseError{Path: file, Err: diags}
		}

		if root.Name != nil {
			model.Name = *root.Name
		}
		for _, job := range root.Jobs {
			tmpl, err := translateJob(job)
			if err != nil {
				return nil, &config.ParseError{Path: file, Err: err}
			}
			model.Jobs = append(model.Jobs, tmpl)
		}
	}

	if err := model.Validate(); err != nil {
		return nil, err
	}
	logger.Debug("Pipeline document loaded.", "name", model.Name, "jobs", len(model.Jobs))
	return model, nil
}

// findHCLFiles resolves a path to the ordered list of .hcl files it names.
func findHCLFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(p) == ".hcl" {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

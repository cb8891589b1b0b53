package hclloader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/mdscript/internal/ctxlog"
	"github.com/vk/mdscript/internal/forcefield"
	"github.com/vk/mdscript/internal/script"
)

// Loader parses forcefield authoring files written in HCL.
type Loader struct{}

// NewLoader creates a new HCL definition loader.
func NewLoader() *Loader {
	return &Loader{}
}

// fileRoot decodes all recognized top-level blocks from any file.
type fileRoot struct {
	Forcefields []*forcefieldBlock `hcl:"forcefield,block"`
	Derivations []*deriveBlock     `hcl:"derive,block"`
	Sections    []*sectionBlock    `hcl:"section,block"`
	Remain      hcl.Body           `hcl:",remain"`
}

type forcefieldBlock struct {
	Name     string         `hcl:"name,label"`
	Params   hcl.Expression `hcl:"params"`
	Required []string       `hcl:"required,optional"`
	Rules    []*ruleBlock   `hcl:"rule,block"`
}

type ruleBlock struct {
	Field string   `hcl:"field,label"`
	Type  string   `hcl:"type,optional"`
	Min   *float64 `hcl:"min,optional"`
	Max   *float64 `hcl:"max,optional"`
}

type deriveBlock struct {
	Name       string         `hcl:"name,label"`
	Uses       []string       `hcl:"uses,optional"`
	Expression hcl.Expression `hcl:"expression"`
}

type sectionBlock struct {
	Name string `hcl:"name,label"`
	// Captured unevaluated: templates reference bindings that only exist
	// at build time.
	Template hcl.Expression `hcl:"template"`
	After    []string       `hcl:"after,optional"`
	Before   []string       `hcl:"before,optional"`
}

// Derivation is one derived field read from a derive block: its name, the
// field paths it depends on, and the evaluation function.
type Derivation struct {
	Name string
	Deps []string
	Fn   forcefield.DerivationFunc
}

// Model is the format-agnostic result of loading: definitions and sections
// in file order, ready to compose and register.
type Model struct {
	Definitions []*forcefield.Definition
	Derivations []Derivation
	Sections    []*script.Section
}

// Dynamic assembles the model's definitions and derivations into one
// dynamic forcefield.
func (m *Model) Dynamic() (*forcefield.Dynamic, error) {
	dyn := forcefield.Compose(m.Definitions)
	for _, der := range m.Derivations {
		if err := dyn.AddDerivation(der.Name, der.Deps, der.Fn); err != nil {
			return nil, err
		}
	}
	return dyn, nil
}

// Load parses every .hcl file under the given paths (files or directories)
// and returns the merged model. File order within a directory follows the
// filesystem walk, so composition precedence is stable.
func (l *Loader) Load(ctx context.Context, paths ...string) (*Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := l.findAllHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	model := &Model{}
	parser := hclparse.NewParser()

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		for _, ff := range root.Forcefields {
			def, err := translateForcefield(ff)
			if err != nil {
				return nil, fmt.Errorf("forcefield %q in %s: %w", ff.Name, file, err)
			}
			model.Definitions = append(model.Definitions, def)
		}
		for _, der := range root.Derivations {
			model.Derivations = append(model.Derivations, translateDerivation(der))
		}
		for _, sec := range root.Sections {
			model.Sections = append(model.Sections, &script.Section{
				Name:   sec.Name,
				Expr:   sec.Template,
				After:  sec.After,
				Before: sec.Before,
			})
		}
	}

	logger.Debug("HCL loading complete.",
		"forcefields", len(model.Definitions),
		"derivations", len(model.Derivations),
		"sections", len(model.Sections))
	return model, nil
}

// findAllHCLFiles walks all given paths and returns a flat list of all .hcl files found.
func (l *Loader) findAllHCLFiles(paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if info.IsDir() {
			err := filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if !info.IsDir() && filepath.Ext(p) == ".hcl" {
					if _, wasSeen := seen[p]; !wasSeen {
						allFiles = append(allFiles, p)
						seen[p] = struct{}{}
					}
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
		} else if filepath.Ext(path) == ".hcl" {
			if _, wasSeen := seen[path]; !wasSeen {
				allFiles = append(allFiles, path)
				seen[path] = struct{}{}
			}
		}
	}
	return allFiles, nil
}

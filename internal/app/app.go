package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/vk/mdscript/internal/ctxlog"
	"github.com/vk/mdscript/internal/forcefield"
	"github.com/vk/mdscript/internal/hclloader"
	"github.com/vk/mdscript/internal/script"
	"github.com/vk/mdscript/internal/table"
)

// App encapsulates the generator's dependencies, configuration, and
// lifecycle.
type App struct {
	outW   io.Writer
	errW   io.Writer
	logger *slog.Logger
	config *Config
}

// New is the constructor for the application. Script text goes to outW when
// no output path is configured; logs go to errW.
func New(outW, errW io.Writer, cfg *Config) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, errW)
	return &App{
		outW:   outW,
		errW:   errW,
		logger: logger,
		config: cfg,
	}
}

// Run executes one full generation pass. Any failure aborts before a single
// byte of script output is produced.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	model, err := hclloader.NewLoader().Load(ctx, a.config.InputPath)
	if err != nil {
		return err
	}

	tableDefs, err := a.loadTables()
	if err != nil {
		return err
	}
	// Tables compose after the HCL definitions, so they act as overrides.
	model.Definitions = append(model.Definitions, tableDefs...)

	if len(model.Definitions) == 0 && len(model.Sections) == 0 {
		return fmt.Errorf("no definitions or sections found under %s", a.config.InputPath)
	}

	if err := validateAll(model.Definitions); err != nil {
		return err
	}
	a.logger.Debug("All definitions validated.", "count", len(model.Definitions))

	dyn, err := model.Dynamic()
	if err != nil {
		return err
	}
	rec, err := dyn.Resolve()
	if err != nil {
		return err
	}
	if a.logger.Enabled(ctx, slog.LevelDebug) {
		if data, jerr := rec.JSON(); jerr == nil {
			a.logger.Debug("Effective record resolved.", "record", string(data))
		}
	}

	builder := script.NewBuilder()
	for _, sec := range model.Sections {
		if err := builder.Register(sec); err != nil {
			return err
		}
	}
	builder.Bind("field", rec)

	out, err := builder.Build(ctx)
	if err != nil {
		return err
	}

	if a.config.OutputPath == "" {
		_, err := io.WriteString(a.outW, out.String())
		return err
	}
	if err := os.WriteFile(a.config.OutputPath, []byte(out.String()), 0o644); err != nil {
		return fmt.Errorf("writing script to %s: %w", a.config.OutputPath, err)
	}
	a.logger.Info("Script written.", "path", a.config.OutputPath, "lines", len(out.Lines()))
	return nil
}

// validateAll validates every definition and reports every invalid one, not
// just the first.
func validateAll(defs []*forcefield.Definition) error {
	var errs []error
	for _, def := range defs {
		if err := def.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// loadTables picks up YAML parameter tables next to the HCL files.
func (a *App) loadTables() ([]*forcefield.Definition, error) {
	info, err := os.Stat(a.config.InputPath)
	if err != nil {
		return nil, err
	}

	var files []string
	if info.IsDir() {
		err := filepath.Walk(a.config.InputPath, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			ext := filepath.Ext(p)
			if !info.IsDir() && (ext == ".yaml" || ext == ".yml") {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		sort.Strings(files)
	} else if ext := filepath.Ext(a.config.InputPath); ext == ".yaml" || ext == ".yml" {
		files = append(files, a.config.InputPath)
	}

	var defs []*forcefield.Definition
	for _, file := range files {
		fileDefs, err := table.Load(file)
		if err != nil {
			return nil, err
		}
		defs = append(defs, fileDefs...)
	}
	return defs, nil
}

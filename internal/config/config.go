// Package config loads rule configuration files and the tool's own settings.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"github.com/rolledback/FinanceCsvAnalysis/internal/importer"
	"github.com/rolledback/FinanceCsvAnalysis/internal/reconcile"
	"github.com/rolledback/FinanceCsvAnalysis/internal/rules"
)

// DefaultFileName is the config file looked up in the target directory.
const DefaultFileName = "config.json"

// ErrImportCycle is returned when a config file imports itself, directly or not.
var ErrImportCycle = errors.New("config import cycle")

// File is a rule configuration file. Imports are merged into Rules, Actions
// and Sources by Load, after the file's own entries.
type File struct {
	Rules   []rules.Definition `json:"rules" yaml:"rules"`
	Actions []reconcile.Action `json:"actions" yaml:"actions"`
	Imports []string           `json:"imports,omitempty" yaml:"imports,omitempty"`
	Sources []importer.Schema  `json:"sources,omitempty" yaml:"sources,omitempty"`
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Decode parses a config file. YAML is used for .yaml and .yml paths, JSON
// otherwise.
func Decode(data []byte, path string) (*File, error) {
	var f File
	if isYAML(path) {
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		return &f, nil
	}
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &f, nil
}

// Load reads the config at path and, recursively, the files it imports.
// Import paths are resolved against baseDir. A missing root file yields an
// empty config and a missing import is skipped; both are logged. The merged
// result is validated.
func Load(path, baseDir string, logger *log.Logger) (*File, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	l := &loader{baseDir: baseDir, logger: logger}
	f, err := l.load(path, true)
	if err != nil {
		return nil, err
	}
	if errs := Validate(f); len(errs) > 0 {
		joined := make([]error, len(errs))
		for i, e := range errs {
			joined[i] = e
		}
		return nil, fmt.Errorf("invalid config: %w", errors.Join(joined...))
	}
	return f, nil
}

type loader struct {
	baseDir string
	logger  *log.Logger
	stack   []string
}

func (l *loader) load(path string, root bool) (*File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	for _, p := range l.stack {
		if p == abs {
			chain := append(append([]string{}, l.stack...), abs)
			return nil, fmt.Errorf("%w: %s", ErrImportCycle, strings.Join(chain, " -> "))
		}
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if root {
				l.logger.Warn("no config file found, using no rules", "path", path)
			} else {
				l.logger.Warn("imported config file not found, skipping", "path", path)
			}
			return &File{}, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	l.logger.Info("reading config file", "path", path)

	f, err := Decode(data, path)
	if err != nil {
		return nil, err
	}
	for i := range f.Rules {
		f.Rules[i].Origin = path
	}
	for i := range f.Actions {
		f.Actions[i].Origin = path
	}
	for i := range f.Sources {
		f.Sources[i].Origin = path
	}

	l.stack = append(l.stack, abs)
	defer func() { l.stack = l.stack[:len(l.stack)-1] }()

	for _, imp := range f.Imports {
		p := imp
		if !filepath.IsAbs(p) {
			p = filepath.Join(l.baseDir, p)
		}
		child, err := l.load(p, false)
		if err != nil {
			return nil, fmt.Errorf("importing %s: %w", imp, err)
		}
		f.Rules = append(f.Rules, child.Rules...)
		f.Actions = append(f.Actions, child.Actions...)
		f.Sources = append(f.Sources, child.Sources...)
	}
	return f, nil
}

// Save writes f as YAML or indented JSON, depending on path's extension.
func Save(path string, f *File) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(f)
	} else {
		data, err = json.MarshalIndent(f, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a starter config for a new target directory.
func Default() *File {
	return &File{
		Rules: []rules.Definition{
			{
				Title:            "Paycheck",
				DescriptionRegex: rules.Single("PAYROLL"),
				Result:           rules.Result{Type: "Income", Categories: []string{"Salary"}},
			},
			{
				Title:            "Transfer out",
				DescriptionRegex: rules.Many("TRANSFER TO", "XFER TO"),
				Result: rules.Result{
					Type:     "Transfer",
					Metadata: map[string]rules.Source{"account": rules.Literal(rules.FileToken)},
				},
			},
			{
				Title:            "Transfer in",
				DescriptionRegex: rules.Many("TRANSFER FROM", "XFER FROM"),
				Result: rules.Result{
					Type:     "TransferIn",
					Metadata: map[string]rules.Source{"account": rules.Literal(rules.FileToken)},
				},
			},
		},
		Actions: []reconcile.Action{
			reconcile.NewCancelOut(reconcile.CancelOut{
				Title: "Internal transfers",
				Criteria: reconcile.Criteria{
					AType:   "Transfer",
					BType:   "TransferIn",
					MatchOn: reconcile.MatchAmount,
				},
			}),
		},
	}
}

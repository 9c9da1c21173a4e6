// Package pipeline runs the analyze and join flows over a target directory.
package pipeline

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/rolledback/FinanceCsvAnalysis/internal/activity"
	"github.com/rolledback/FinanceCsvAnalysis/internal/audit"
	"github.com/rolledback/FinanceCsvAnalysis/internal/config"
	"github.com/rolledback/FinanceCsvAnalysis/internal/importer"
	"github.com/rolledback/FinanceCsvAnalysis/internal/model"
	"github.com/rolledback/FinanceCsvAnalysis/internal/reconcile"
	"github.com/rolledback/FinanceCsvAnalysis/internal/report"
	"github.com/rolledback/FinanceCsvAnalysis/internal/rules"
)

var (
	// ErrTargetDir means the target directory is missing or not a directory.
	ErrTargetDir = errors.New("target directory does not exist")
	// ErrNoInputFiles means the target directory has no files to process.
	ErrNoInputFiles = errors.New("no input files")
)

// Options configures a run.
type Options struct {
	Dir        string
	ConfigPath string // defaults to <Dir>/config.json
	Settings   config.Settings
	Logger     *log.Logger // console logger, nil discards

	// NewProgress creates the classification progress tracker. Nil means no progress output.
	NewProgress func(total int) Progress
}

// Result summarizes a finished run.
type Result struct {
	Files          []string
	Read           int // raw activities parsed, or activities read back by join
	Written        int
	Cancelled      int
	Findings       map[audit.Kind]int
	UnusedRules    []rules.Rule
	ActivitiesPath string
	AuditPath      string
	ReportPath     string
}

type run struct {
	opts   Options
	logger *log.Logger
	files  []importer.FileInfo
	cfg    *config.File
	outDir string
	log    *audit.Log
	sink   *tally
	result *Result
}

// Analyze parses every bank export in the target directory, classifies the
// activities, cancels out matching pairs and writes the activity file.
func Analyze(opts Options) (_ *Result, err error) {
	r, err := prepare(opts, func(cfg *config.File) []string {
		return importer.DefaultRegistry(cfg.Sources).Extensions()
	})
	if err != nil {
		return nil, err
	}

	rs, err := rules.Expand(r.cfg.Rules)
	if err != nil {
		return nil, fmt.Errorf("loading rules: %w", err)
	}

	if err := r.open(); err != nil {
		return nil, err
	}
	defer func() { err = errors.Join(err, r.close()) }()

	registry := importer.DefaultRegistry(r.cfg.Sources)
	var raws []model.RawActivity
	for _, f := range r.files {
		parsed, err := registry.ParseFile(f)
		if err != nil {
			return nil, err
		}
		for _, raw := range parsed {
			r.sink.Record(audit.Finding{Kind: audit.KindParsed, Subject: raw.String(), Details: parsedDetails(raw)})
		}
		r.logger.Debug("parsed file", "file", f.Name, "activities", len(parsed))
		raws = append(raws, parsed...)
	}
	r.result.Read = len(raws)

	engine := rules.NewEngine(rs, r.sink)
	progress := r.progress(len(raws))
	activities, err := engine.ClassifyAll(raws, func() { _ = progress.Add(1) })
	progress.Close()
	if err != nil {
		return nil, err
	}

	if err := r.finish(activities); err != nil {
		return nil, err
	}

	engine.ReportUnused()
	r.result.UnusedRules = engine.Unused()
	return r.result, nil
}

// Join reads previously written activity files from the target directory,
// combines them, cancels out matching pairs and writes a new activity file.
func Join(opts Options) (_ *Result, err error) {
	r, err := prepare(opts, func(*config.File) []string { return []string{".csv"} })
	if err != nil {
		return nil, err
	}
	if err := r.open(); err != nil {
		return nil, err
	}
	defer func() { err = errors.Join(err, r.close()) }()

	var activities []model.Activity
	for _, f := range r.files {
		read, err := readActivityFile(f)
		if err != nil {
			return nil, err
		}
		r.logger.Debug("read activity file", "file", f.Name, "activities", len(read))
		activities = append(activities, read...)
	}
	r.result.Read = len(activities)

	if err := r.finish(activities); err != nil {
		return nil, err
	}
	return r.result, nil
}

// prepare checks the preconditions and loads the config. Nothing is written
// to disk until it succeeds.
func prepare(opts Options, exts func(*config.File) []string) (*run, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	info, err := os.Stat(opts.Dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrTargetDir, opts.Dir)
	}

	if name := opts.Settings.Report; name != "" && !slices.Contains(report.Names, name) {
		return nil, fmt.Errorf("%w %q (want one of %v)", report.ErrUnknownReport, name, report.Names)
	}

	cfgPath := opts.ConfigPath
	if cfgPath == "" {
		cfgPath = filepath.Join(opts.Dir, config.DefaultFileName)
	}
	cfg, err := config.Load(cfgPath, opts.Dir, logger)
	if err != nil {
		return nil, err
	}

	want := exts(cfg)
	files, err := importer.Scan(opts.Dir, want...)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s must contain at least one %s file", ErrNoInputFiles, opts.Dir, strings.Join(want, "/"))
	}

	outDir := opts.Settings.OutDir
	if outDir == "" {
		outDir = "out"
	}
	if !filepath.IsAbs(outDir) {
		outDir = filepath.Join(opts.Dir, outDir)
	}

	r := &run{
		opts:   opts,
		logger: logger,
		files:  files,
		cfg:    cfg,
		outDir: outDir,
		result: &Result{},
	}
	for _, f := range files {
		r.result.Files = append(r.result.Files, f.Name)
	}
	return r, nil
}

func (r *run) open() error {
	l, err := audit.Open(r.outDir)
	if err != nil {
		return err
	}
	r.log = l
	r.sink = newTally(l)
	r.result.AuditPath = filepath.Join(r.outDir, audit.CSVFile)

	runLog := l.Logger()
	runLog.Info("run started", "dir", r.opts.Dir, "out", r.outDir)
	runLog.Info("config loaded", "rules", len(r.cfg.Rules), "actions", len(r.cfg.Actions), "sources", len(r.cfg.Sources))
	for _, f := range r.files {
		runLog.Info("input file", "name", f.Name, "size", f.Size)
	}
	return nil
}

func (r *run) close() error {
	r.result.Findings = r.sink.counts
	if err := r.log.Close(); err != nil {
		return fmt.Errorf("closing audit log: %w", err)
	}
	return nil
}

func (r *run) progress(total int) Progress {
	if r.opts.NewProgress == nil {
		return noProgress{}
	}
	return r.opts.NewProgress(total)
}

// finish sorts, reconciles and writes activities and the optional report.
func (r *run) finish(activities []model.Activity) error {
	activity.SortByDate(activities)
	survivors := reconcile.Reconcile(r.cfg.Actions, activities, r.sink)
	r.result.Cancelled = len(activities) - len(survivors)
	r.result.Written = len(survivors)

	r.result.ActivitiesPath = filepath.Join(r.outDir, activity.FileName)
	if err := writeFile(r.result.ActivitiesPath, func(w io.Writer) error {
		return activity.Write(w, survivors, r.opts.Settings.Currency)
	}); err != nil {
		return fmt.Errorf("writing activities: %w", err)
	}
	r.log.Logger().Info("wrote activities", "path", r.result.ActivitiesPath, "count", len(survivors))

	if name := r.opts.Settings.Report; name != "" {
		r.result.ReportPath = filepath.Join(r.outDir, report.FileName)
		if err := writeFile(r.result.ReportPath, func(w io.Writer) error {
			return report.Render(w, name, survivors, r.opts.Settings.Currency)
		}); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func readActivityFile(f importer.FileInfo) ([]model.Activity, error) {
	fh, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", f.Name, err)
	}
	defer fh.Close()

	activities, err := activity.Read(fh, f.Name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Name, err)
	}
	return activities, nil
}

func parsedDetails(raw model.RawActivity) string {
	if len(raw.Categories) == 0 {
		return ""
	}
	return "hints=" + strings.Join(raw.Categories, ";")
}

// tally forwards findings and counts them by kind.
type tally struct {
	next   audit.Sink
	counts map[audit.Kind]int
}

func newTally(next audit.Sink) *tally {
	return &tally{next: next, counts: make(map[audit.Kind]int)}
}

func (t *tally) Record(f audit.Finding) {
	t.counts[f.Kind]++
	t.next.Record(f)
}

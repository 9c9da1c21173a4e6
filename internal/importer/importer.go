// Package importer reads bank exports into raw activities.
package importer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rolledback/FinanceCsvAnalysis/internal/model"
)

// Parser converts one source file into RawActivities.
type Parser interface {
	Parse(r io.Reader, fileName string) ([]model.RawActivity, error)
	Format() string
}

// Registry holds named parsers and the file extensions they handle.
type Registry struct {
	parsers map[string]Parser
	exts    map[string]string
}

// FileInfo describes an input file in the target directory.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser), exts: make(map[string]string)}
}

// Register adds a parser for the given extensions. Panics on duplicate format or extension.
func (r *Registry) Register(p Parser, exts ...string) {
	key := strings.ToLower(p.Format())
	if _, ok := r.parsers[key]; ok {
		panic("duplicate parser format: " + key)
	}
	r.parsers[key] = p
	for _, ext := range exts {
		ext = strings.ToLower(ext)
		if other, ok := r.exts[ext]; ok {
			panic(fmt.Sprintf("extension %s already handled by %s", ext, other))
		}
		r.exts[ext] = key
	}
}

// Get returns the parser for format, or nil.
func (r *Registry) Get(format string) Parser {
	return r.parsers[strings.ToLower(format)]
}

// ForFile returns the parser registered for name's extension, or nil.
func (r *Registry) ForFile(name string) Parser {
	format, ok := r.exts[strings.ToLower(filepath.Ext(name))]
	if !ok {
		return nil
	}
	return r.parsers[format]
}

// Extensions returns every registered extension, sorted.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.exts))
	for ext := range r.exts {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// DefaultRegistry returns a registry with the bank CSV parser, configured with
// schemas, and the OFX/QFX parser.
func DefaultRegistry(schemas []Schema) *Registry {
	r := NewRegistry()
	r.Register(&CSVParser{Schemas: schemas}, ".csv")
	r.Register(&OFXParser{}, ".ofx", ".qfx")
	return r
}

// Scan returns the regular files directly inside dir whose extension is one
// of exts (case-insensitive), sorted by name.
func Scan(dir string, exts ...string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	want := make(map[string]bool, len(exts))
	for _, ext := range exts {
		want[strings.ToLower(ext)] = true
	}

	var files []FileInfo
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if !want[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name: e.Name(),
			Path: filepath.Join(dir, e.Name()),
			Size: info.Size(),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// ParseFile opens f and parses it with the parser registered for its extension.
func (r *Registry) ParseFile(f FileInfo) ([]model.RawActivity, error) {
	p := r.ForFile(f.Name)
	if p == nil {
		return nil, fmt.Errorf("%s: no parser for extension %q", f.Name, filepath.Ext(f.Name))
	}
	fh, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", f.Name, err)
	}
	defer fh.Close()

	raws, err := p.Parse(fh, f.Name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Name, err)
	}
	return raws, nil
}

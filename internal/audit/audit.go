// Package audit records the run trail: every classification and reconciliation
// decision lands in out/log.txt as a log line and in out/audit.csv as a row.
package audit

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Kind classifies a finding.
type Kind string

const (
	KindParsed   Kind = "parsed"
	KindApplied  Kind = "applied"
	KindConflict Kind = "conflict" // a later rule would also have matched
	KindDefault  Kind = "default"
	KindUnused   Kind = "unused"
	KindPaired   Kind = "paired"
	KindUnpaired Kind = "unpaired"
)

// Finding is one audit observation.
type Finding struct {
	Timestamp time.Time
	Kind      Kind
	Rule      string
	Subject   string
	Details   string
}

// Sink receives findings. Recording never fails the run.
type Sink interface {
	Record(f Finding)
}

// Header is the CSV header for audit.csv.
const Header = "timestamp,kind,rule,subject,details"

const (
	LogFile = "log.txt"
	CSVFile = "audit.csv"

	numFields  = 5
	colTime    = 0
	colKind    = 1
	colRule    = 2
	colSubject = 3
	colDetails = 4
)

// MarshalFinding converts a Finding to a CSV row.
func MarshalFinding(f Finding) []string {
	row := make([]string, numFields)
	row[colTime] = f.Timestamp.Format(time.RFC3339)
	row[colKind] = string(f.Kind)
	row[colRule] = f.Rule
	row[colSubject] = f.Subject
	row[colDetails] = f.Details
	return row
}

// UnmarshalFinding converts a CSV row to a Finding.
func UnmarshalFinding(record []string) (Finding, error) {
	if len(record) != numFields {
		return Finding{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTime])
	if err != nil {
		return Finding{}, fmt.Errorf("parsing timestamp %q: %w", record[colTime], err)
	}

	return Finding{
		Timestamp: ts,
		Kind:      Kind(record[colKind]),
		Rule:      record[colRule],
		Subject:   record[colSubject],
		Details:   record[colDetails],
	}, nil
}

// Log is the file-backed Sink for one run. Both files are truncated by Open
// and stay open until Close.
type Log struct {
	logFile *os.File
	csvFile *os.File
	cw      *csv.Writer
	logger  *log.Logger
	now     func() time.Time
	err     error
}

// Open truncates and opens <outDir>/log.txt and <outDir>/audit.csv.
func Open(outDir string) (*Log, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}

	lf, err := os.Create(filepath.Join(outDir, LogFile))
	if err != nil {
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	cf, err := os.Create(filepath.Join(outDir, CSVFile))
	if err != nil {
		lf.Close()
		return nil, fmt.Errorf("opening audit csv: %w", err)
	}

	l := &Log{
		logFile: lf,
		csvFile: cf,
		cw:      csv.NewWriter(cf),
		logger: log.NewWithOptions(lf, log.Options{
			ReportTimestamp: true,
			TimeFormat:      time.RFC3339,
			Level:           log.DebugLevel,
		}),
		now: time.Now,
	}
	if err := l.cw.Write(strings.Split(Header, ",")); err != nil {
		l.Close()
		return nil, fmt.Errorf("writing header: %w", err)
	}
	return l, nil
}

// Logger exposes the log.txt logger for free-form run messages.
func (l *Log) Logger() *log.Logger { return l.logger }

// Record writes f to both files. The first write error is kept and returned by Close.
func (l *Log) Record(f Finding) {
	if f.Timestamp.IsZero() {
		f.Timestamp = l.now()
	}
	l.logger.Info(string(f.Kind), "rule", f.Rule, "subject", f.Subject, "details", f.Details)
	if l.err != nil {
		return
	}
	if err := l.cw.Write(MarshalFinding(f)); err != nil {
		l.err = fmt.Errorf("writing finding: %w", err)
	}
}

// Close flushes and closes both files.
func (l *Log) Close() error {
	l.cw.Flush()
	if err := l.cw.Error(); err != nil && l.err == nil {
		l.err = fmt.Errorf("flushing audit csv: %w", err)
	}
	if err := l.csvFile.Close(); err != nil && l.err == nil {
		l.err = fmt.Errorf("closing audit csv: %w", err)
	}
	if err := l.logFile.Close(); err != nil && l.err == nil {
		l.err = fmt.Errorf("closing audit log: %w", err)
	}
	return l.err
}

// Read returns all findings from <outDir>/audit.csv.
// Returns nil if the file does not exist.
func Read(outDir string) ([]Finding, error) {
	f, err := os.Open(filepath.Join(outDir, CSVFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening audit csv: %w", err)
	}
	defer f.Close()

	return readFindings(f)
}

func readFindings(r io.Reader) ([]Finding, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading audit CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var findings []Finding
	for i, rec := range records[1:] {
		f, err := UnmarshalFinding(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		findings = append(findings, f)
	}
	return findings, nil
}

// Memory keeps findings in memory.
type Memory struct {
	Findings []Finding
}

// Record appends f.
func (m *Memory) Record(f Finding) {
	m.Findings = append(m.Findings, f)
}

// OfKind returns the recorded findings of kind k, in order.
func (m *Memory) OfKind(k Kind) []Finding {
	var out []Finding
	for _, f := range m.Findings {
		if f.Kind == k {
			out = append(out, f)
		}
	}
	return out
}

// Discard drops every finding.
var Discard Sink = discard{}

type discard struct{}

func (discard) Record(Finding) {}

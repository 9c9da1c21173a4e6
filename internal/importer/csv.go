package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rolledback/FinanceCsvAnalysis/internal/model"
)

// CSVParser parses bank CSV exports. The first non-blank row is a header.
// Column positions come from the first Schema whose glob matches the file.
type CSVParser struct {
	Schemas []Schema
}

// Format returns the parser name.
func (p *CSVParser) Format() string { return "csv" }

// Parse reads every data row. Cells that are missing or unparsable become
// absent values; only a malformed CSV stream is an error.
func (p *CSVParser) Parse(r io.Reader, fileName string) ([]model.RawActivity, error) {
	schema := SchemaFor(p.Schemas, fileName)
	base := filepath.Base(fileName)

	records, err := ReadRecords(r)
	if err != nil {
		return nil, err
	}
	if len(records) <= 1 {
		return nil, nil
	}

	raws := make([]model.RawActivity, 0, len(records)-1)
	for _, rec := range records[1:] {
		raws = append(raws, parseRow(rec, schema, base))
	}
	return raws, nil
}

// ReadRecords returns the non-blank records of r. Quotes are lenient and rows
// may have any number of fields.
func ReadRecords(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var records [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV: %w", err)
		}
		if blank(rec) {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseRow(rec []string, s Schema, file string) model.RawActivity {
	raw := model.RawActivity{
		Date:        cell(rec, s.Date),
		Amount:      rowAmount(rec, s),
		Description: cell(rec, s.Description),
		File:        file,
	}
	for _, col := range s.Categories {
		if c := cell(rec, col); c != "" {
			raw.Categories = append(raw.Categories, c)
		}
	}
	return raw
}

// rowAmount reads the signed amount. With a credit column, debits are money
// out and come back negative; a row with neither cell set has no amount.
func rowAmount(rec []string, s Schema) decimal.NullDecimal {
	amount, _ := ParseAmount(cell(rec, s.Amount))
	if s.Credit == nil {
		return amount
	}
	credit, _ := ParseAmount(cell(rec, *s.Credit))
	if !amount.Valid && !credit.Valid {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(credit.Decimal.Sub(amount.Decimal))
}

// cell returns the trimmed value at col, or "" when the row is too short.
func cell(rec []string, col int) string {
	if col < 0 || col >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[col])
}

func blank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

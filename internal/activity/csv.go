// Package activity sorts classified activities and reads and writes activity files.
package activity

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rolledback/FinanceCsvAnalysis/internal/importer"
	"github.com/rolledback/FinanceCsvAnalysis/internal/model"
)

// FileName is the activity file written to the output directory.
const FileName = "activities.csv"

const (
	colDate       = 0
	colAmount     = 1
	colDesc       = 2
	colType       = 3
	colCategories = 4
	fixedFields   = 5 // the four leading columns plus File
)

// Header returns the header row for an activity file with n category columns.
func Header(n int) []string {
	row := []string{"Date", "Amount", "Description", "Type"}
	for i := 0; i < n; i++ {
		row = append(row, fmt.Sprintf("Category %d", i))
	}
	return append(row, "File")
}

// SortByDate sorts activities by date, oldest first, in place. Equal dates
// keep their relative order and invalid dates go last.
func SortByDate(activities []model.Activity) {
	sort.SliceStable(activities, func(i, j int) bool {
		return activities[i].Date.Before(activities[j].Date)
	})
}

// MaxCategories returns the largest category count among activities.
func MaxCategories(activities []model.Activity) int {
	n := 0
	for _, a := range activities {
		if len(a.Categories) > n {
			n = len(a.Categories)
		}
	}
	return n
}

// Write writes the header and one row per activity. Amounts are prefixed
// with currency.
func Write(w io.Writer, activities []model.Activity, currency string) error {
	cw := csv.NewWriter(w)

	n := MaxCategories(activities)
	if err := cw.Write(Header(n)); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, a := range activities {
		if err := cw.Write(MarshalActivity(a, n, currency)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalActivity converts an Activity to a row with n category columns.
// An absent amount or invalid date renders as an empty cell.
func MarshalActivity(a model.Activity, n int, currency string) []string {
	row := make([]string, fixedFields+n)
	row[colDate] = a.Date.Format(model.DisplayLayout)
	if a.Amount.Valid {
		row[colAmount] = currency + a.Amount.Decimal.String()
	}
	row[colDesc] = strings.TrimSpace(a.Description)
	row[colType] = strings.TrimSpace(a.Type)
	for i := 0; i < n && i < len(a.Categories); i++ {
		row[colCategories+i] = strings.TrimSpace(a.Categories[i])
	}
	row[len(row)-1] = a.File
	return row
}

// Read parses an activity file produced by Write. fileName becomes part of
// each activity's File as "<base> (<File column>)". Metadata is not stored in
// activity files, so it comes back empty.
func Read(r io.Reader, fileName string) ([]model.Activity, error) {
	records, err := importer.ReadRecords(r)
	if err != nil {
		return nil, err
	}
	if len(records) <= 1 {
		return nil, nil
	}

	width := len(records[0])
	if width < fixedFields {
		return nil, fmt.Errorf("header has %d columns, want at least %d", width, fixedFields)
	}

	base := filepath.Base(fileName)
	activities := make([]model.Activity, 0, len(records)-1)
	for _, rec := range records[1:] {
		activities = append(activities, UnmarshalActivity(rec, width, base))
	}
	return activities, nil
}

// UnmarshalActivity converts a row of a width-column activity file. The File
// column is the last header column; categories run from the fifth column up
// to the first empty cell.
func UnmarshalActivity(rec []string, width int, base string) model.Activity {
	fileCol := width - 1
	amount, _ := importer.ParseAmount(cell(rec, colAmount))

	categories := []string{}
	for col := colCategories; col < fileCol; col++ {
		c := cell(rec, col)
		if c == "" {
			break
		}
		categories = append(categories, c)
	}

	return model.Activity{
		Type:        cell(rec, colType),
		Description: cell(rec, colDesc),
		Amount:      amount,
		Date:        model.ParseDate(cell(rec, colDate)),
		File:        fmt.Sprintf("%s (%s)", base, cell(rec, fileCol)),
		Categories:  categories,
		Metadata:    model.Metadata{},
	}
}

func cell(rec []string, col int) string {
	if col < 0 || col >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[col])
}

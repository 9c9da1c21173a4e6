// Package report renders plain-text tables over classified activities.
package report

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"

	"github.com/rolledback/FinanceCsvAnalysis/internal/model"
)

// FileName is the report file written to the output directory.
const FileName = "report.txt"

// ErrUnknownReport is returned by Render for a name not in Names.
var ErrUnknownReport = errors.New("unknown report")

// Names lists the available reports.
var Names = []string{"summary", "monthly"}

const undated = "undated"

// Render writes the named report.
func Render(w io.Writer, name string, activities []model.Activity, currency string) error {
	switch name {
	case "summary":
		return renderSummary(w, Summarize(activities), currency)
	case "monthly":
		return renderMonthly(w, ByMonth(activities), currency)
	default:
		return fmt.Errorf("%w %q (want one of %v)", ErrUnknownReport, name, Names)
	}
}

// TypeTotal is the activity count and summed amount for one type.
type TypeTotal struct {
	Type  string
	Count int
	Total decimal.Decimal
}

// Summarize totals activities per type, sorted by type. Absent amounts are
// counted but add nothing to the total.
func Summarize(activities []model.Activity) []TypeTotal {
	byType := make(map[string]*TypeTotal)
	for _, a := range activities {
		t, ok := byType[a.Type]
		if !ok {
			t = &TypeTotal{Type: a.Type}
			byType[a.Type] = t
		}
		t.Count++
		if a.Amount.Valid {
			t.Total = t.Total.Add(a.Amount.Decimal)
		}
	}

	totals := make([]TypeTotal, 0, len(byType))
	for _, t := range byType {
		totals = append(totals, *t)
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].Type < totals[j].Type })
	return totals
}

// Monthly holds per-type totals for each month.
type Monthly struct {
	Months []string // "2006-01", sorted, with "undated" last
	Types  []string // sorted
	Totals map[string]map[string]decimal.Decimal
}

// ByMonth totals activities per month and type.
func ByMonth(activities []model.Activity) Monthly {
	m := Monthly{Totals: make(map[string]map[string]decimal.Decimal)}
	types := make(map[string]bool)
	for _, a := range activities {
		month := undated
		if t, ok := a.Date.Time(); ok {
			month = t.Format("2006-01")
		}
		row, ok := m.Totals[month]
		if !ok {
			row = make(map[string]decimal.Decimal)
			m.Totals[month] = row
			m.Months = append(m.Months, month)
		}
		types[a.Type] = true
		if a.Amount.Valid {
			row[a.Type] = row[a.Type].Add(a.Amount.Decimal)
		}
	}

	sort.Slice(m.Months, func(i, j int) bool {
		if m.Months[i] == undated || m.Months[j] == undated {
			return m.Months[j] == undated && m.Months[i] != undated
		}
		return m.Months[i] < m.Months[j]
	})
	for t := range types {
		m.Types = append(m.Types, t)
	}
	sort.Strings(m.Types)
	return m
}

func renderSummary(w io.Writer, totals []TypeTotal, currency string) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Type", "Count", "Total"})
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	count, sum := 0, decimal.Zero
	for _, t := range totals {
		table.Append([]string{t.Type, strconv.Itoa(t.Count), money(currency, t.Total)})
		count += t.Count
		sum = sum.Add(t.Total)
	}
	table.SetFooter([]string{"Total", strconv.Itoa(count), money(currency, sum)})
	table.Render()
	return nil
}

func renderMonthly(w io.Writer, m Monthly, currency string) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader(append([]string{"Month"}, m.Types...))
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for _, month := range m.Months {
		row := []string{month}
		for _, t := range m.Types {
			row = append(row, money(currency, m.Totals[month][t]))
		}
		table.Append(row)
	}
	table.Render()
	return nil
}

func money(currency string, d decimal.Decimal) string {
	return currency + d.StringFixed(2)
}

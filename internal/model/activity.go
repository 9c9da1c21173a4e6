package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// RawActivity is one unclassified row read from a source file.
type RawActivity struct {
	Date        string              // as found in the file, unvalidated
	Amount      decimal.NullDecimal // Valid=false when the cell could not be parsed
	Description string
	File        string   // base name of the source file
	Categories  []string // free-text hints, only some schemas carry them
}

// Activity is a classified transaction.
type Activity struct {
	Type        string
	Description string
	Amount      decimal.NullDecimal // negative = money out, positive = money in
	Date        Date
	File        string
	Categories  []string
	Metadata    Metadata
}

// AbsAmount returns |Amount| as a Value, absent when the amount is absent.
func (a Activity) AbsAmount() Value {
	if !a.Amount.Valid {
		return Absent()
	}
	return Number(a.Amount.Decimal.Abs())
}

func (r RawActivity) String() string {
	return fmt.Sprintf("%s %s %q (%s)", r.Date, formatNull(r.Amount), r.Description, r.File)
}

func (a Activity) String() string {
	return fmt.Sprintf("%s %s %q [%s] (%s)", a.Date, formatNull(a.Amount), a.Description, a.Type, a.File)
}

func formatNull(d decimal.NullDecimal) string {
	if !d.Valid {
		return "<absent>"
	}
	return d.Decimal.String()
}

package importer

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
)

// Schema maps the columns of a bank CSV export onto RawActivity fields.
// Match is a glob tested against the file's base name.
//
// When Credit is set the export splits money into two unsigned columns:
// Amount holds debits and Credit holds credits, and the activity amount is
// credit minus debit.
type Schema struct {
	Match       string `json:"match" yaml:"match"`
	Preset      string `json:"preset,omitempty" yaml:"preset,omitempty"`
	Date        int    `json:"date" yaml:"date"`
	Amount      int    `json:"amount" yaml:"amount"`
	Credit      *int   `json:"credit,omitempty" yaml:"credit,omitempty"`
	Description int    `json:"description" yaml:"description"`
	Categories  []int  `json:"categories,omitempty" yaml:"categories,omitempty"`

	// Origin is the config file the schema came from.
	Origin string `json:"-" yaml:"-"`
}

// DefaultSchema is used for files no configured schema matches.
var DefaultSchema = Schema{Match: "*", Date: 0, Amount: 1, Description: 2}

// Presets are named column layouts for common bank exports.
var Presets = map[string]Schema{
	"default": DefaultSchema,
	// Details,Posting Date,Description,Amount,Type,Balance,Check or Slip #
	"chase": {Date: 1, Description: 2, Amount: 3, Categories: []int{4}},
	// Transaction Date,Posted Date,Card No.,Description,Category,Debit,Credit
	"capitalone": {Date: 0, Description: 3, Amount: 5, Credit: column(6), Categories: []int{4}},
}

func column(i int) *int { return &i }

// Resolve returns s with its preset's columns filled in. Match is kept.
func (s Schema) Resolve() (Schema, error) {
	if s.Preset == "" {
		return s, nil
	}
	p, ok := Presets[strings.ToLower(s.Preset)]
	if !ok {
		return Schema{}, fmt.Errorf("unknown preset %q", s.Preset)
	}
	p.Match, p.Preset, p.Origin = s.Match, s.Preset, s.Origin
	return p, nil
}

// Validate checks the glob and column indexes.
func (s Schema) Validate() error {
	if _, err := filepath.Match(s.Match, ""); err != nil {
		return fmt.Errorf("match %q: %w", s.Match, err)
	}
	r, err := s.Resolve()
	if err != nil {
		return err
	}
	cols := map[string]int{"date": r.Date, "amount": r.Amount, "description": r.Description}
	if r.Credit != nil {
		cols["credit"] = *r.Credit
	}
	for name, col := range cols {
		if col < 0 {
			return fmt.Errorf("%s column %d is negative", name, col)
		}
	}
	for _, col := range r.Categories {
		if col < 0 {
			return fmt.Errorf("category column %d is negative", col)
		}
	}
	return nil
}

// SchemaFor returns the first schema whose Match glob matches fileName's base
// name, or DefaultSchema.
func SchemaFor(schemas []Schema, fileName string) Schema {
	base := filepath.Base(fileName)
	for _, s := range schemas {
		if ok, _ := filepath.Match(s.Match, base); !ok {
			continue
		}
		if r, err := s.Resolve(); err == nil {
			return r
		}
	}
	return DefaultSchema
}

var amountReplacer = strings.NewReplacer("$", "", "€", "", "£", "", "¥", "", ",", "", " ", "")

// ParseAmount cleans a money cell and parses it. Currency symbols and
// thousands separators are dropped; "(12.50)" is negative. The second
// result is false when nothing numeric remains.
func ParseAmount(s string) (decimal.NullDecimal, bool) {
	s = strings.TrimSpace(s)
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = amountReplacer.Replace(s)
	if s == "" {
		return decimal.NullDecimal{}, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, false
	}
	if negative {
		d = d.Neg()
	}
	return decimal.NewNullDecimal(d), true
}

package importer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aclindsa/ofxgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rolledback/FinanceCsvAnalysis/internal/model"
)

func parseTestFile(t *testing.T, p Parser, name string) []model.RawActivity {
	t.Helper()
	f, err := os.Open(filepath.Join("testdata", name))
	require.NoError(t, err)
	defer f.Close()

	raws, err := p.Parse(f, name)
	require.NoError(t, err)
	return raws
}

func TestCSVParser_DefaultSchema(t *testing.T) {
	raws := parseTestFile(t, &CSVParser{}, "simple.csv")
	require.Len(t, raws, 6)

	assert.Equal(t, "2024-01-05", raws[0].Date)
	assert.Equal(t, "1500", raws[0].Amount.Decimal.String())
	assert.Equal(t, "PAYROLL DEPOSIT", raws[0].Description)
	assert.Equal(t, "simple.csv", raws[0].File)

	assert.Equal(t, "-200", raws[1].Amount.Decimal.String())

	// Quoted fields keep their commas.
	assert.Equal(t, "1234.5", raws[2].Amount.Decimal.String())
	assert.Equal(t, "RENT, JANUARY", raws[2].Description)

	assert.Equal(t, "not a date", raws[3].Date, "dates are kept raw")
	assert.Equal(t, "-12", raws[3].Amount.Decimal.String())

	assert.False(t, raws[4].Amount.Valid)
	assert.False(t, raws[5].Amount.Valid)
	assert.Equal(t, "", raws[5].Description, "short rows yield empty fields")
}

func TestCSVParser_ChasePreset(t *testing.T) {
	p := &CSVParser{Schemas: []Schema{{Match: "chase_*.csv", Preset: "chase"}}}
	raws := parseTestFile(t, p, "chase_checking.csv")
	require.Len(t, raws, 6)

	assert.Equal(t, "01/03/2025", raws[0].Date)
	assert.Equal(t, "GITHUB *PRO SUBSCRIPTION", raws[0].Description)
	assert.Equal(t, "-4.00", raws[0].Amount.Decimal.StringFixed(2))
	assert.Equal(t, []string{"ACH_DEBIT"}, raws[0].Categories)

	assert.Equal(t, "COFFEE SHOP, DOWNTOWN", raws[1].Description)

	assert.Equal(t, "ACME CONSULTING INVOICE 1042", raws[3].Description)
	assert.True(t, raws[3].Amount.Decimal.IsPositive())
	for i, raw := range raws {
		if i != 3 {
			assert.True(t, raw.Amount.Decimal.IsNegative(), "expected negative for %s", raw.Description)
		}
	}
}

func TestCSVParser_DebitCreditColumns(t *testing.T) {
	csv := strings.Join([]string{
		"Transaction Date,Posted Date,Card No.,Description,Category,Debit,Credit",
		"2024-02-01,2024-02-02,1234,COFFEE,Dining,4.50,",
		"2024-02-03,2024-02-03,1234,PAYMENT THANK YOU,Payment/Credit,,200.00",
		"2024-02-04,2024-02-04,1234,PENDING,Other,,",
	}, "\n")
	p := &CSVParser{Schemas: []Schema{{Match: "*", Preset: "capitalone"}}}

	raws, err := p.Parse(strings.NewReader(csv), "capitalone.csv")
	require.NoError(t, err)
	require.Len(t, raws, 3)

	assert.Equal(t, "COFFEE", raws[0].Description)
	require.True(t, raws[0].Amount.Valid)
	assert.Equal(t, "-4.5", raws[0].Amount.Decimal.String(), "debits are money out")
	assert.Equal(t, []string{"Dining"}, raws[0].Categories)

	require.True(t, raws[1].Amount.Valid)
	assert.Equal(t, "200", raws[1].Amount.Decimal.String())

	assert.False(t, raws[2].Amount.Valid)
}

func TestCSVParser_CustomColumns(t *testing.T) {
	csv := "Description,Category,When,Value\nLUNCH,Food,2024-03-01,-9.99\n"
	p := &CSVParser{Schemas: []Schema{{Match: "*.csv", Date: 2, Amount: 3, Description: 0, Categories: []int{1, 7}}}}

	raws, err := p.Parse(strings.NewReader(csv), "card.csv")
	require.NoError(t, err)
	require.Len(t, raws, 1)
	assert.Equal(t, "LUNCH", raws[0].Description)
	assert.Equal(t, "2024-03-01", raws[0].Date)
	assert.Equal(t, "-9.99", raws[0].Amount.Decimal.String())
	assert.Equal(t, []string{"Food"}, raws[0].Categories)
}

func TestCSVParser_HeaderOnly(t *testing.T) {
	p := &CSVParser{}
	raws, err := p.Parse(strings.NewReader("Date,Amount,Description\n\n  \n"), "x.csv")
	require.NoError(t, err)
	assert.Nil(t, raws)
}

func TestCSVParser_Format(t *testing.T) {
	assert.Equal(t, "csv", (&CSVParser{}).Format())
}

func TestSchemaFor(t *testing.T) {
	schemas := []Schema{
		{Match: "chase_*.csv", Preset: "chase"},
		{Match: "*.csv", Date: 5, Amount: 6, Description: 7},
	}

	assert.Equal(t, 1, SchemaFor(schemas, "/tmp/chase_checking.csv").Date)
	assert.Equal(t, 5, SchemaFor(schemas, "other.csv").Date)
	assert.Equal(t, DefaultSchema, SchemaFor(nil, "other.csv"))
}

func TestSchema_Validate(t *testing.T) {
	tests := []struct {
		name    string
		schema  Schema
		wantErr string
	}{
		{"default", DefaultSchema, ""},
		{"preset", Schema{Match: "*.csv", Preset: "Chase"}, ""},
		{"unknown preset", Schema{Match: "*.csv", Preset: "nope"}, "unknown preset"},
		{"bad glob", Schema{Match: "[", Date: 0}, "match"},
		{"negative column", Schema{Match: "*", Amount: -1}, "amount column"},
		{"negative category", Schema{Match: "*", Categories: []int{-2}}, "category column"},
		{"negative credit", Schema{Match: "*", Credit: column(-1)}, "credit column"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.schema.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in    string
		want  string
		valid bool
	}{
		{"12.50", "12.5", true},
		{"-4.00", "-4", true},
		{"$1,234.56", "1234.56", true},
		{"-$20", "-20", true},
		{"(15.00)", "-15", true},
		{"€ 7", "7", true},
		{"  3 ", "3", true},
		{"", "", false},
		{"$", "", false},
		{"n/a", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseAmount(tt.in)
			assert.Equal(t, tt.valid, ok)
			assert.Equal(t, tt.valid, got.Valid)
			if tt.valid {
				assert.Equal(t, tt.want, got.Decimal.String())
			}
		})
	}
}

func TestOFXParser_Parse(t *testing.T) {
	raws := parseTestFile(t, &OFXParser{}, "statement.ofx")
	require.Len(t, raws, 2)

	assert.Equal(t, "2024-01-15", raws[0].Date)
	assert.Equal(t, "-25.5", raws[0].Amount.Decimal.String())
	assert.Equal(t, "STARBUCKS STORE #1234", raws[0].Description)
	assert.Equal(t, []string{"DEBIT"}, raws[0].Categories)
	assert.Equal(t, "statement.ofx", raws[0].File)

	assert.Equal(t, "TRANSFER FROM CHECKING REF 991", raws[1].Description)
	assert.Equal(t, "200", raws[1].Amount.Decimal.String())
}

func TestConvertTransaction_KeepsAllDigits(t *testing.T) {
	tx := ofxgo.Transaction{TrnType: ofxgo.TrnTypeFee, Name: "FX FEE"}
	_, ok := tx.TrnAmt.Rat.SetString("-1.2345")
	require.True(t, ok)

	raw := convertTransaction(tx, "card.qfx")
	require.True(t, raw.Amount.Valid)
	assert.Equal(t, "-1.2345", raw.Amount.Decimal.String())
	assert.Equal(t, "", raw.Date, "no posting date")
	assert.Equal(t, "FX FEE", raw.Description)
}

func TestOFXParser_Invalid(t *testing.T) {
	_, err := (&OFXParser{}).Parse(strings.NewReader("not ofx"), "bad.ofx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing OFX")
}

func TestRegistry_GetUnknown(t *testing.T) {
	r := NewRegistry()
	assert.Nil(t, r.Get("nonexistent"))
	assert.Nil(t, r.ForFile("x.pdf"))
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	r.Register(&CSVParser{}, ".csv")
	p := r.Get("csv")
	require.NotNil(t, p)
	assert.Equal(t, "csv", p.Format())
}

func TestRegistry_CaseInsensitive(t *testing.T) {
	r := NewRegistry()
	r.Register(&OFXParser{}, ".OFX")
	assert.NotNil(t, r.Get("OFX"))
	assert.NotNil(t, r.ForFile("statement.ofx"))
	assert.NotNil(t, r.ForFile("STATEMENT.OFX"))
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	r := NewRegistry()
	r.Register(&CSVParser{}, ".csv")
	assert.Panics(t, func() { r.Register(&CSVParser{}) })
	assert.Panics(t, func() { r.Register(&OFXParser{}, ".csv") })
}

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry(nil)
	assert.Equal(t, "csv", r.ForFile("a.csv").Format())
	assert.Equal(t, "ofx", r.ForFile("a.qfx").Format())
	assert.Equal(t, []string{".csv", ".ofx", ".qfx"}, r.Extensions())
}

func TestRegistry_ParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bank.csv")
	require.NoError(t, os.WriteFile(path, []byte("Date,Amount,Description\n2024-01-01,1,X\n"), 0o644))

	raws, err := DefaultRegistry(nil).ParseFile(FileInfo{Name: "bank.csv", Path: path})
	require.NoError(t, err)
	require.Len(t, raws, 1)
	assert.Equal(t, "bank.csv", raws[0].File)

	_, err = DefaultRegistry(nil).ParseFile(FileInfo{Name: "notes.txt", Path: path})
	assert.Error(t, err)
}

func TestScan_FiltersAndSorts(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.csv", "a.CSV", "c.ofx", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("data"), 0o644))
	}
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "out.csv"), 0o755))

	files, err := Scan(dir, ".csv")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a.CSV", files[0].Name)
	assert.Equal(t, "b.csv", files[1].Name)
	assert.Equal(t, filepath.Join(dir, "b.csv"), files[1].Path)
	assert.Equal(t, int64(4), files[1].Size)

	files, err = Scan(dir, ".csv", ".ofx")
	require.NoError(t, err)
	assert.Len(t, files, 3)
}

func TestScan_IgnoresSubdirectories(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "out"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "out", "activities.csv"), []byte("data"), 0o644))

	files, err := Scan(dir, ".csv")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestScan_MissingDir(t *testing.T) {
	_, err := Scan(filepath.Join(t.TempDir(), "missing"), ".csv")
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

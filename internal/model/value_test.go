package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func num(s string) Value {
	return Number(decimal.RequireFromString(s))
}

func TestValueMatches(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"equal numbers", num("50"), num("50"), true},
		{"opposite signs", num("-50"), num("50"), true},
		{"scale differs", num("50.00"), num("50"), true},
		{"different numbers", num("50"), num("50.01"), false},
		{"equal strings", String("REF123"), String("REF123"), true},
		{"case differs", String("ref123"), String("REF123"), false},
		{"no trimming", String("REF123 "), String("REF123"), false},
		{"number vs string", num("50"), String("50"), false},
		{"absent vs absent", Absent(), Absent(), false},
		{"absent vs number", Absent(), num("1"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Matches(tt.b))
			assert.Equal(t, tt.want, tt.b.Matches(tt.a))
		})
	}
}

func TestNullNumber(t *testing.T) {
	assert.True(t, NullNumber(decimal.NullDecimal{}).IsAbsent())

	v := NullNumber(decimal.NewNullDecimal(decimal.NewFromInt(-7)))
	assert.False(t, v.IsAbsent())
	assert.Equal(t, "-7", v.String())
}

func TestValueJSON(t *testing.T) {
	m := Metadata{"file": String("bank.csv"), "amount": num("-12.5"), "ref": Absent()}
	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"file":"bank.csv","amount":-12.5,"ref":null}`, string(data))
}

func TestMetadataKeys(t *testing.T) {
	m := Metadata{"b": Absent(), "a": Absent(), "c": Absent()}
	assert.Equal(t, []string{"a", "b", "c"}, m.Keys())
}

func TestParseDate_Formats(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"2024-01-05", "2024-01-05"},
		{"1/5/2024", "2024-01-05"},
		{"01/05/2024", "2024-01-05"},
		{"1/5/24", "2024-01-05"},
		{"2024/01/05", "2024-01-05"},
		{"Jan 5, 2024", "2024-01-05"},
		{" 2024-01-05 ", "2024-01-05"},
	}
	for _, tt := range tests {
		d := ParseDate(tt.input)
		require.True(t, d.Valid(), "input %q", tt.input)
		assert.Equal(t, tt.want, d.String(), "input %q", tt.input)
	}
}

func TestParseDate_Invalid(t *testing.T) {
	for _, input := range []string{"", "not a date", "13/45/2024"} {
		d := ParseDate(input)
		assert.False(t, d.Valid(), "input %q", input)
		assert.Equal(t, "", d.Format(DisplayLayout))
		assert.Equal(t, "Invalid Date", d.String())
	}
}

func TestDateBefore(t *testing.T) {
	early := NewDate(2024, time.January, 1)
	late := NewDate(2024, time.February, 1)
	invalid := Date{}

	assert.True(t, early.Before(late))
	assert.False(t, late.Before(early))
	assert.True(t, late.Before(invalid), "valid dates sort before invalid ones")
	assert.False(t, invalid.Before(early))
	assert.False(t, invalid.Before(invalid))
}

func TestActivityAbsAmount(t *testing.T) {
	a := Activity{Amount: decimal.NewNullDecimal(decimal.NewFromInt(-200))}
	assert.True(t, a.AbsAmount().Matches(num("200")))
	assert.True(t, Activity{}.AbsAmount().IsAbsent())
}

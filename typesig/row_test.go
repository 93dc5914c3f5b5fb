package typesig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rowField struct {
	name    string
	hasName bool
	typ     string
}

func rowFields(t *testing.T, sig *TypeSignature) []rowField {
	t.Helper()
	out := make([]rowField, 0, sig.NumParameters())
	for _, p := range sig.Parameters() {
		field, ok := p.NamedType()
		require.True(t, ok, "row parameter %s should be NAMED_TYPE", p)
		name, hasName := field.Name()
		out = append(out, rowField{name: name, hasName: hasName, typ: field.Type.String()})
	}
	return out
}

func TestParseRow(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		fields []rowField
	}{
		{
			name: "bare names",
			text: "row(a integer, b varchar)",
			fields: []rowField{
				{"a", true, "integer"},
				{"b", true, "varchar"},
			},
		},
		{
			name: "quoted and bare names",
			text: `row("a b" integer, c varchar(5))`,
			fields: []rowField{
				{"a b", true, "integer"},
				{"c", true, "varchar(5)"},
			},
		},
		{
			name: "escaped quote",
			text: `row("say ""hi""" varchar)`,
			fields: []rowField{
				{`say "hi"`, true, "varchar"},
			},
		},
		{
			name: "quoted name without blank before type",
			text: `row("x"bigint)`,
			fields: []rowField{
				{"x", true, "bigint"},
			},
		},
		{
			name: "anonymous fields",
			text: "row(integer,varchar(3))",
			fields: []rowField{
				{"", false, "integer"},
				{"", false, "varchar(3)"},
			},
		},
		{
			name: "multi-word type without name",
			text: "row(timestamp with time zone, double precision)",
			fields: []rowField{
				{"", false, "timestamp with time zone"},
				{"", false, "double precision"},
			},
		},
		{
			name: "multi-word type with name",
			text: "row(created timestamp with time zone)",
			fields: []rowField{
				{"created", true, "timestamp with time zone"},
			},
		},
		{
			name: "hoisted precision with name",
			text: "row(ts timestamp(3) with time zone)",
			fields: []rowField{
				{"ts", true, "timestamp(3) with time zone"},
			},
		},
		{
			name: "nested parametric type without name",
			text: "row(array(timestamp with time zone))",
			fields: []rowField{
				{"", false, "array(timestamp with time zone)"},
			},
		},
		{
			name: "nested rows",
			text: "row(a array(row(b integer, c map(varchar,bigint))), d decimal(10,2))",
			fields: []rowField{
				{"a", true, "array(row(b integer,c map(varchar,bigint)))"},
				{"d", true, "decimal(10,2)"},
			},
		},
		{
			name: "angle brackets inside field",
			text: "row(a array<bigint>)",
			fields: []rowField{
				{"a", true, "array(bigint)"},
			},
		},
		{
			name: "extra blanks",
			text: "row(  a   integer ,  b bigint  )",
			fields: []rowField{
				{"a", true, "integer"},
				{"b", true, "bigint"},
			},
		},
		{
			name: "identifier punctuation",
			text: "row(ns:col@1 integer)",
			fields: []rowField{
				{"ns:col@1", true, "integer"},
			},
		},
		{
			name: "duplicate names",
			text: "row(a integer, a bigint)",
			fields: []rowField{
				{"a", true, "integer"},
				{"a", true, "bigint"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, err := Parse(tt.text)
			require.NoError(t, err)
			assert.True(t, sig.Is(Row))
			assert.Equal(t, tt.fields, rowFields(t, sig))
		})
	}
}

func TestParseRow_KeepsBaseSpelling(t *testing.T) {
	sig, err := Parse("ROW(a integer)")
	require.NoError(t, err)
	assert.Equal(t, "ROW", sig.Base())
	assert.True(t, sig.Equal(MustParse("row(a integer)")))
}

func TestParseRow_Variables(t *testing.T) {
	sig, err := Parse("row(a varchar(x), b bigint)", WithVariables("x"))
	require.NoError(t, err)
	assert.True(t, sig.IsCalculated())

	field, ok := sig.Parameter(0).NamedType()
	require.True(t, ok)
	name, ok := field.Type.Parameter(0).Variable()
	assert.True(t, ok)
	assert.Equal(t, "x", name)
}

func TestParseRow_Malformed(t *testing.T) {
	for _, text := range []string{
		"row(a integer",
		`row("a" )`,
		`row("a"`,
		"row(a integer))",
		"row(a varchar(x))",
		"row(,a integer)",
		"row(a integer,,b bigint)",
		"row(a array(bigint)",
	} {
		t.Run(text, func(t *testing.T) {
			_, err := Parse(text)
			assert.ErrorIs(t, err, ErrMalformedSignature)
		})
	}
}

func TestHasRowPrefix(t *testing.T) {
	assert.True(t, hasRowPrefix("row(a integer)"))
	assert.True(t, hasRowPrefix("Row(a integer)"))
	assert.False(t, hasRowPrefix("row"))
	assert.False(t, hasRowPrefix("row<a integer>"))
	assert.False(t, hasRowPrefix("rows(a)"))
}

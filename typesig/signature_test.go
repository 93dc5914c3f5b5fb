package typesig

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("copies parameters", func(t *testing.T) {
		params := []Parameter{LongParam(10), LongParam(2)}
		sig, err := New(Decimal, params...)
		require.NoError(t, err)

		params[0] = LongParam(99)
		got, _ := sig.Parameter(0).Long()
		assert.Equal(t, int64(10), got)

		out := sig.Parameters()
		out[1] = LongParam(7)
		got, _ = sig.Parameter(1).Long()
		assert.Equal(t, int64(2), got)
	})

	t.Run("rejects", func(t *testing.T) {
		tests := []struct {
			name   string
			base   string
			params []Parameter
		}{
			{"empty base", "", nil},
			{"comma in base", "a,b", nil},
			{"bracket in base", "array<bigint>", nil},
			{"parenthesis in base", "f(x)", nil},
			{"nil nested type", Array, []Parameter{TypeParam(nil)}},
			{"nil row field", Row, []Parameter{NamedField("a", nil)}},
			{"unknown kind", Array, []Parameter{{kind: ParameterKind(9)}}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				sig, err := New(tt.base, tt.params...)
				assert.Nil(t, sig)
				assert.ErrorIs(t, err, ErrInvalidSignature)
			})
		}
	})
}

func TestTypeSignature_Equal(t *testing.T) {
	tests := []struct {
		name  string
		a, b  string
		equal bool
	}{
		{"same text", "array(bigint)", "array(bigint)", true},
		{"base case", "ARRAY(BIGINT)", "array(bigint)", true},
		{"bracket style", "array<bigint>", "array(bigint)", true},
		{"parameter order", "map(varchar,bigint)", "map(bigint,varchar)", false},
		{"parameter count", "decimal(10)", "decimal(10,2)", false},
		{"literal value", "varchar(10)", "varchar(11)", false},
		{"field name", "row(a bigint)", "row(b bigint)", false},
		{"field name case", "row(a bigint)", "row(A bigint)", false},
		{"named and anonymous", "row(a bigint)", "row(bigint)", false},
		{"quoted and bare name", `row("a" bigint)`, "row(a bigint)", true},
		{"different base", "bigint", "integer", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := MustParse(tt.a)
			b := MustParse(tt.b)
			assert.Equal(t, tt.equal, a.Equal(b))
			assert.Equal(t, tt.equal, b.Equal(a))
			if tt.equal {
				assert.Equal(t, a.Hash(), b.Hash())
			}
		})
	}

	t.Run("nil", func(t *testing.T) {
		var a, b *TypeSignature
		assert.True(t, a.Equal(b))
		assert.False(t, a.Equal(MustParse("bigint")))
		assert.False(t, MustParse("bigint").Equal(nil))
		assert.Zero(t, a.Hash())
	})

	t.Run("variable and literal", func(t *testing.T) {
		withVar := MustParse("varchar(x)", WithVariables("x"))
		assert.False(t, withVar.Equal(MustParse("varchar(10)")))
		assert.True(t, withVar.Equal(MustParse("varchar(x)", WithVariables("x"))))
	})
}

func TestTypeSignature_Hash(t *testing.T) {
	seen := map[uint64]string{}
	for _, text := range []string{
		"bigint", "integer", "array(bigint)", "array(integer)", "map(bigint,integer)",
		"map(integer,bigint)", "row(a bigint)", "row(bigint)", "varchar(1)", "varchar(2)",
	} {
		h := MustParse(text).Hash()
		assert.NotZero(t, h)
		if prev, ok := seen[h]; ok {
			t.Errorf("hash collision between %q and %q", prev, text)
		}
		seen[h] = text
	}
}

func TestTypeSignature_ConcurrentReads(t *testing.T) {
	sig := MustParse(`map(varchar,row("a b" array(decimal(10,2)),c timestamp(3) with time zone))`)
	want := sig.String()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.Equal(t, want, sig.String())
				assert.True(t, sig.Equal(MustParse(want)))
			}
		}()
	}
	wg.Wait()
}

func TestTypeParameters(t *testing.T) {
	types, err := MustParse("map(varchar,bigint)").TypeParameters()
	require.NoError(t, err)
	require.Len(t, types, 2)
	assert.True(t, types[1].Is(Bigint))

	_, err = MustParse("decimal(10,2)").TypeParameters()
	assert.ErrorContains(t, err, "[10]")

	_, err = MustParse("row(a bigint)").TypeParameters()
	assert.Error(t, err)

	types, err = MustParse("bigint").TypeParameters()
	require.NoError(t, err)
	assert.Empty(t, types)
}

func TestFactories(t *testing.T) {
	bigint := MustParse(Bigint)
	varchar := MustParse(Varchar)

	assert.True(t, ArrayOf(bigint).Equal(MustParse("array(bigint)")))
	assert.True(t, MapOf(varchar, bigint).Equal(MustParse("map(varchar,bigint)")))
	assert.True(t, FunctionOf(bigint, varchar, bigint).Equal(MustParse("function(bigint,varchar,bigint)")))

	row, err := RowOf(NamedField("a", bigint), Field(varchar))
	require.NoError(t, err)
	assert.Equal(t, "row(a bigint,varchar)", row.String())

	_, err = RowOf(TypeParam(bigint))
	assert.ErrorIs(t, err, ErrInvalidSignature)

	qdigest, err := ParametricOf("qdigest", MustParse(Double))
	require.NoError(t, err)
	assert.Equal(t, "qdigest(double)", qdigest.String())

	_, err = ParametricOf("", bigint)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	named := NamedTypeParam(NamedTypeSignature{FieldName: &RowFieldName{Name: "a"}, Type: bigint})
	assert.True(t, named.Equal(NamedField("a", bigint)))
	assert.True(t, NamedTypeParam(NamedTypeSignature{Type: bigint}).Equal(Field(bigint)))
}

func TestTypeSignature_JSON(t *testing.T) {
	type column struct {
		Name string         `json:"name"`
		Type *TypeSignature `json:"type"`
	}

	in := column{Name: "c", Type: MustParse(`row("a b" timestamp(3) with time zone, c array(bigint))`)}
	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"c","type":"row(\"a b\" timestamp(3) with time zone,c array(bigint))"}`, string(data))

	var out column
	require.NoError(t, json.Unmarshal(data, &out))
	assert.True(t, in.Type.Equal(out.Type))
	assert.Equal(t, in.Type.Hash(), out.Type.Hash())

	err = json.Unmarshal([]byte(`{"type":"array(bigint"}`), &out)
	assert.ErrorIs(t, err, ErrMalformedSignature)
}

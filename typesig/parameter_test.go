package typesig

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParameterKind_Text(t *testing.T) {
	for kind, name := range map[ParameterKind]string{
		TypeKind:      "TYPE",
		NamedTypeKind: "NAMED_TYPE",
		LongKind:      "LONG",
		VariableKind:  "VARIABLE",
	} {
		assert.Equal(t, name, kind.String())

		text, err := kind.MarshalText()
		require.NoError(t, err)
		assert.Equal(t, name, string(text))

		parsed, err := ParseParameterKind(name)
		require.NoError(t, err)
		assert.Equal(t, kind, parsed)
	}

	t.Run("lower case", func(t *testing.T) {
		kind, err := ParseParameterKind("named_type")
		require.NoError(t, err)
		assert.Equal(t, NamedTypeKind, kind)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := ParseParameterKind("LITERAL")
		assert.Error(t, err)

		assert.Equal(t, "7", ParameterKind(7).String())
		_, err = ParameterKind(7).MarshalText()
		assert.Error(t, err)
	})

	t.Run("json", func(t *testing.T) {
		var v struct {
			Kind ParameterKind `json:"kind"`
		}
		require.NoError(t, json.Unmarshal([]byte(`{"kind":"LONG"}`), &v))
		assert.Equal(t, LongKind, v.Kind)

		data, err := json.Marshal(v)
		require.NoError(t, err)
		assert.JSONEq(t, `{"kind":"LONG"}`, string(data))
	})
}

func TestParameter_Accessors(t *testing.T) {
	bigint := MustParse(Bigint)

	long := LongParam(3)
	assert.Equal(t, LongKind, long.Kind())
	_, ok := long.Variable()
	assert.False(t, ok)
	_, ok = long.Type()
	assert.False(t, ok)
	_, ok = long.NamedType()
	assert.False(t, ok)
	assert.Nil(t, long.Signature())

	variable := VariableParam("x")
	_, ok = variable.Long()
	assert.False(t, ok)

	typ := TypeParam(bigint)
	got, ok := typ.Type()
	assert.True(t, ok)
	assert.Same(t, bigint, got)
	assert.Same(t, bigint, typ.Signature())

	field := NamedField("a", bigint)
	_, ok = field.Type()
	assert.False(t, ok, "row fields are not plain type parameters")
	named, ok := field.NamedType()
	require.True(t, ok)
	name, ok := named.Name()
	assert.True(t, ok)
	assert.Equal(t, "a", name)
	assert.Same(t, bigint, field.Signature())

	anon, ok := Field(bigint).NamedType()
	require.True(t, ok)
	assert.Nil(t, anon.FieldName)
	_, ok = anon.Name()
	assert.False(t, ok)
}

func TestParameter_IsCalculated(t *testing.T) {
	assert.False(t, LongParam(1).IsCalculated())
	assert.True(t, VariableParam("x").IsCalculated())
	assert.False(t, TypeParam(MustParse("bigint")).IsCalculated())

	calculated := MustParse("decimal(p,s)", WithVariables("p", "s"))
	assert.True(t, TypeParam(calculated).IsCalculated())
	assert.True(t, NamedField("a", calculated).IsCalculated())
	assert.True(t, Field(ArrayOf(calculated)).IsCalculated())
}

func TestParameter_Equal(t *testing.T) {
	assert.True(t, LongParam(1).Equal(LongParam(1)))
	assert.False(t, LongParam(1).Equal(LongParam(2)))
	assert.False(t, LongParam(1).Equal(VariableParam("1")))
	assert.True(t, VariableParam("x").Equal(VariableParam("x")))
	assert.False(t, VariableParam("x").Equal(VariableParam("X")))
	assert.True(t, TypeParam(MustParse("BIGINT")).Equal(TypeParam(MustParse("bigint"))))
	assert.False(t, TypeParam(MustParse("bigint")).Equal(Field(MustParse("bigint"))))
	assert.False(t, NamedField("", MustParse("bigint")).Equal(Field(MustParse("bigint"))))
	assert.NotEqual(t, NamedField("", MustParse("bigint")).hash(), Field(MustParse("bigint")).hash())
}

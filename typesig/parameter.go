package typesig

import (
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/ethanyzhang/prestotype/utils"
	"github.com/zeebo/xxh3"
)

// ParameterKind identifies which variant a Parameter holds.
type ParameterKind int8

const (
	// TypeKind is a nested, unnamed type argument, as in array(bigint).
	TypeKind ParameterKind = iota
	// NamedTypeKind is a row field: a nested type with an optional name.
	NamedTypeKind
	// LongKind is an integer literal, as in varchar(10).
	LongKind
	// VariableKind is a symbolic placeholder, as in varchar(x).
	VariableKind
)

var parameterKindNames = utils.NewNameCodec(map[ParameterKind]string{
	TypeKind:      "TYPE",
	NamedTypeKind: "NAMED_TYPE",
	LongKind:      "LONG",
	VariableKind:  "VARIABLE",
})

// String returns the wire name of the kind, or its number if unknown.
func (k ParameterKind) String() string {
	if name, ok := parameterKindNames.Name(k); ok {
		return name
	}
	return strconv.Itoa(int(k))
}

// ParseParameterKind parses a wire name such as "NAMED_TYPE".
func ParseParameterKind(name string) (ParameterKind, error) {
	if kind, ok := parameterKindNames.Value(name); ok {
		return kind, nil
	}
	return 0, fmt.Errorf("unknown parameter kind %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (k ParameterKind) MarshalText() ([]byte, error) {
	name, ok := parameterKindNames.Name(k)
	if !ok {
		return nil, fmt.Errorf("unknown parameter kind %d", int(k))
	}
	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ParameterKind) UnmarshalText(text []byte) error {
	kind, err := ParseParameterKind(string(text))
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// RowFieldName is the declared name of a row field.
type RowFieldName struct {
	Name string `json:"name"`
}

// NamedTypeSignature is a row field: a type with an optional field name.
type NamedTypeSignature struct {
	// FieldName is nil for anonymous fields, as in row(bigint, varchar).
	FieldName *RowFieldName
	Type      *TypeSignature
}

// Name returns the field name and whether the field has one.
func (n NamedTypeSignature) Name() (string, bool) {
	if n.FieldName == nil {
		return "", false
	}
	return n.FieldName.Name, true
}

// Parameter is one argument of a type signature. It holds exactly one of
// the variants named by ParameterKind; the zero value is not a valid
// parameter. Parameters are immutable.
type Parameter struct {
	kind      ParameterKind
	long      int64
	variable  string
	fieldName string
	hasName   bool
	signature *TypeSignature
}

// LongParam returns an integer literal parameter.
func LongParam(value int64) Parameter {
	return Parameter{kind: LongKind, long: value}
}

// VariableParam returns a symbolic parameter.
func VariableParam(name string) Parameter {
	return Parameter{kind: VariableKind, variable: name}
}

// TypeParam returns a nested type parameter.
func TypeParam(sig *TypeSignature) Parameter {
	return Parameter{kind: TypeKind, signature: sig}
}

// NamedTypeParam returns a row field parameter.
func NamedTypeParam(field NamedTypeSignature) Parameter {
	p := Parameter{kind: NamedTypeKind, signature: field.Type}
	if field.FieldName != nil {
		p.fieldName = field.FieldName.Name
		p.hasName = true
	}
	return p
}

// NamedField returns a row field parameter called name.
func NamedField(name string, sig *TypeSignature) Parameter {
	return Parameter{kind: NamedTypeKind, fieldName: name, hasName: true, signature: sig}
}

// Field returns an anonymous row field parameter.
func Field(sig *TypeSignature) Parameter {
	return Parameter{kind: NamedTypeKind, signature: sig}
}

// Kind returns the variant held by p.
func (p Parameter) Kind() ParameterKind {
	return p.kind
}

// Long returns the literal value of a LongKind parameter.
func (p Parameter) Long() (int64, bool) {
	return p.long, p.kind == LongKind
}

// Variable returns the name of a VariableKind parameter.
func (p Parameter) Variable() (string, bool) {
	return p.variable, p.kind == VariableKind
}

// Type returns the nested signature of a TypeKind parameter.
func (p Parameter) Type() (*TypeSignature, bool) {
	if p.kind != TypeKind {
		return nil, false
	}
	return p.signature, true
}

// NamedType returns the field held by a NamedTypeKind parameter.
func (p Parameter) NamedType() (NamedTypeSignature, bool) {
	if p.kind != NamedTypeKind {
		return NamedTypeSignature{}, false
	}
	field := NamedTypeSignature{Type: p.signature}
	if p.hasName {
		field.FieldName = &RowFieldName{Name: p.fieldName}
	}
	return field, true
}

// Signature returns the nested signature of a TypeKind or NamedTypeKind
// parameter, and nil for literals and variables.
func (p Parameter) Signature() *TypeSignature {
	return p.signature
}

// IsCalculated reports whether p is, or contains, a variable.
func (p Parameter) IsCalculated() bool {
	switch p.kind {
	case VariableKind:
		return true
	case TypeKind, NamedTypeKind:
		return p.signature != nil && p.signature.calculated
	default:
		return false
	}
}

// Equal reports whether p and other hold the same variant and value. Nested
// signatures are compared with TypeSignature.Equal.
func (p Parameter) Equal(other Parameter) bool {
	if p.kind != other.kind {
		return false
	}
	switch p.kind {
	case LongKind:
		return p.long == other.long
	case VariableKind:
		return p.variable == other.variable
	case TypeKind:
		return p.signature.Equal(other.signature)
	case NamedTypeKind:
		return p.hasName == other.hasName &&
			p.fieldName == other.fieldName &&
			p.signature.Equal(other.signature)
	default:
		return false
	}
}

// String formats p the way it appears inside a signature.
func (p Parameter) String() string {
	w := &writer{}
	w.parameter(p)
	return w.String()
}

func (p Parameter) hash() uint64 {
	h := xxh3.New()
	var buf [8]byte
	_, _ = h.Write([]byte{byte(p.kind)})
	switch p.kind {
	case LongKind:
		binary.LittleEndian.PutUint64(buf[:], uint64(p.long))
		_, _ = h.Write(buf[:])
	case VariableKind:
		_, _ = h.Write([]byte(p.variable))
	case TypeKind:
		binary.LittleEndian.PutUint64(buf[:], p.signature.Hash())
		_, _ = h.Write(buf[:])
	case NamedTypeKind:
		if p.hasName {
			_, _ = h.Write([]byte{1})
			_, _ = h.Write([]byte(p.fieldName))
		}
		_, _ = h.Write([]byte{0})
		binary.LittleEndian.PutUint64(buf[:], p.signature.Hash())
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}

package typesig

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/zeebo/xxh3"
)

// TypeSignature is a parsed type: a base name and its ordered parameters.
//
// Base names keep the spelling they were given but compare
// case-insensitively, so INTEGER and integer are equal signatures.
// A TypeSignature is never modified after construction.
type TypeSignature struct {
	base       string
	folded     string
	parameters []Parameter
	calculated bool
	hash       uint64
}

// unboundedVarchar is what Parse returns for a bare "varchar".
var unboundedVarchar = newSignature(Varchar, nil)

// New builds a signature from a base name and parameters. The base must be
// non-empty and free of brackets and commas; nested signatures must be
// non-nil.
func New(base string, parameters ...Parameter) (*TypeSignature, error) {
	if base == "" {
		return nil, fmt.Errorf("%w: base is empty", ErrInvalidSignature)
	}
	if strings.ContainsAny(base, "()<>,") {
		return nil, fmt.Errorf("%w: bad characters in base type: %s", ErrInvalidSignature, base)
	}
	for i, p := range parameters {
		switch p.kind {
		case TypeKind, NamedTypeKind:
			if p.signature == nil {
				return nil, fmt.Errorf("%w: parameter %d of %s has no type", ErrInvalidSignature, i, base)
			}
		case LongKind, VariableKind:
		default:
			return nil, fmt.Errorf("%w: parameter %d of %s has unknown kind %d", ErrInvalidSignature, i, base, p.kind)
		}
	}
	return newSignature(base, parameters), nil
}

func newSignature(base string, parameters []Parameter) *TypeSignature {
	s := &TypeSignature{
		base:       base,
		folded:     strings.ToLower(base),
		parameters: append([]Parameter(nil), parameters...),
	}
	for _, p := range s.parameters {
		if p.IsCalculated() {
			s.calculated = true
			break
		}
	}
	s.hash = s.computeHash()
	return s
}

// Base returns the base name as it was written, e.g. "array" for
// array(bigint).
func (s *TypeSignature) Base() string {
	return s.base
}

// Is reports whether the base name equals base, ignoring case.
func (s *TypeSignature) Is(base string) bool {
	return s != nil && s.folded == strings.ToLower(base)
}

// Parameters returns a copy of the parameter list.
func (s *TypeSignature) Parameters() []Parameter {
	return append([]Parameter(nil), s.parameters...)
}

// NumParameters returns the number of parameters.
func (s *TypeSignature) NumParameters() int {
	return len(s.parameters)
}

// Parameter returns the i-th parameter. It panics if i is out of range.
func (s *TypeSignature) Parameter(i int) Parameter {
	return s.parameters[i]
}

// IsCalculated reports whether any parameter is, or contains, a variable.
func (s *TypeSignature) IsCalculated() bool {
	return s.calculated
}

// TypeParameters returns the nested signatures of a signature whose
// parameters are all TypeKind, such as map(varchar,bigint).
func (s *TypeSignature) TypeParameters() ([]*TypeSignature, error) {
	out := make([]*TypeSignature, 0, len(s.parameters))
	for _, p := range s.parameters {
		sig, ok := p.Type()
		if !ok {
			return nil, fmt.Errorf("expected all parameters to be types but [%s] was found", p)
		}
		out = append(out, sig)
	}
	return out, nil
}

// Equal reports whether s and other describe the same type: equal base
// names ignoring case and pairwise equal parameters.
func (s *TypeSignature) Equal(other *TypeSignature) bool {
	if s == other {
		return true
	}
	if s == nil || other == nil {
		return false
	}
	if s.hash != other.hash || s.folded != other.folded || len(s.parameters) != len(other.parameters) {
		return false
	}
	for i := range s.parameters {
		if !s.parameters[i].Equal(other.parameters[i]) {
			return false
		}
	}
	return true
}

// Hash returns a hash consistent with Equal. It is never zero.
func (s *TypeSignature) Hash() uint64 {
	if s == nil {
		return 0
	}
	return s.hash
}

func (s *TypeSignature) computeHash() uint64 {
	h := xxh3.New()
	var buf [8]byte
	_, _ = h.Write([]byte(s.folded))
	for _, p := range s.parameters {
		binary.LittleEndian.PutUint64(buf[:], p.hash())
		_, _ = h.Write(buf[:])
	}
	if sum := h.Sum64(); sum != 0 {
		return sum
	}
	return 1
}

// String returns the canonical text of s.
func (s *TypeSignature) String() string {
	return Format(s, false)
}

// MarshalJSON encodes s as its wire text.
func (s *TypeSignature) MarshalJSON() ([]byte, error) {
	return json.Marshal(Format(s, true))
}

// UnmarshalJSON decodes wire text produced by MarshalJSON.
func (s *TypeSignature) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return err
	}
	parsed, err := Parse(text)
	if err != nil {
		return err
	}
	*s = *parsed
	return nil
}

// --- Factories ---

// ArrayOf returns array(element).
func ArrayOf(element *TypeSignature) *TypeSignature {
	return newSignature(Array, []Parameter{TypeParam(element)})
}

// MapOf returns map(key,value).
func MapOf(key, value *TypeSignature) *TypeSignature {
	return newSignature(Map, []Parameter{TypeParam(key), TypeParam(value)})
}

// RowOf returns row(fields...). Every field must be a NamedTypeKind
// parameter, as built by NamedField or Field.
func RowOf(fields ...Parameter) (*TypeSignature, error) {
	for i, f := range fields {
		if f.kind != NamedTypeKind {
			return nil, fmt.Errorf("%w: row field %d is %s, not NAMED_TYPE", ErrInvalidSignature, i, f.kind)
		}
	}
	return New(Row, fields...)
}

// ParametricOf returns name(parameters...) with every parameter a nested
// type.
func ParametricOf(name string, parameters ...*TypeSignature) (*TypeSignature, error) {
	params := make([]Parameter, len(parameters))
	for i, p := range parameters {
		params[i] = TypeParam(p)
	}
	return New(name, params...)
}

// FunctionOf returns the signature of a lambda: function(returnType,
// argumentTypes...).
func FunctionOf(returnType *TypeSignature, argumentTypes ...*TypeSignature) *TypeSignature {
	params := make([]Parameter, 0, len(argumentTypes)+1)
	params = append(params, TypeParam(returnType))
	for _, t := range argumentTypes {
		params = append(params, TypeParam(t))
	}
	return newSignature(Function, params)
}

package presto

import (
	"encoding/json"
	"fmt"

	"github.com/ethanyzhang/prestotype/typesig"
)

// ClientTypeSignature is the structured type the coordinator sends next to
// each column's type text:
//
//	{"rawType":"map","arguments":[
//	    {"kind":"TYPE","value":{"rawType":"varchar","arguments":[{"kind":"LONG","value":10}]}},
//	    {"kind":"TYPE","value":{"rawType":"bigint","arguments":[]}}]}
type ClientTypeSignature struct {
	RawType   string                         `json:"rawType"`
	Arguments []ClientTypeSignatureParameter `json:"arguments"`
}

// ClientTypeSignatureParameter is one argument. Exactly one value field is
// set, selected by Kind.
type ClientTypeSignatureParameter struct {
	Kind      typesig.ParameterKind
	Long      int64
	Variable  string
	Type      *ClientTypeSignature
	NamedType *NamedClientTypeSignature
}

// NamedClientTypeSignature is a row field.
type NamedClientTypeSignature struct {
	FieldName     *typesig.RowFieldName `json:"fieldName,omitempty"`
	TypeSignature ClientTypeSignature   `json:"typeSignature"`
}

type rawParameter struct {
	Kind  typesig.ParameterKind `json:"kind"`
	Value json.RawMessage       `json:"value"`
}

// MarshalJSON encodes p as {"kind": ..., "value": ...}.
func (p ClientTypeSignatureParameter) MarshalJSON() ([]byte, error) {
	var value any
	switch p.Kind {
	case typesig.LongKind:
		value = p.Long
	case typesig.VariableKind:
		value = p.Variable
	case typesig.TypeKind:
		value = p.Type
	case typesig.NamedTypeKind:
		value = p.NamedType
	default:
		return nil, fmt.Errorf("presto: unknown type argument kind %s", p.Kind)
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return json.Marshal(rawParameter{Kind: p.Kind, Value: data})
}

// UnmarshalJSON decodes the value according to the kind.
func (p *ClientTypeSignatureParameter) UnmarshalJSON(data []byte) error {
	var raw rawParameter
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := ClientTypeSignatureParameter{Kind: raw.Kind}
	var target any
	switch raw.Kind {
	case typesig.LongKind:
		target = &out.Long
	case typesig.VariableKind:
		target = &out.Variable
	case typesig.TypeKind:
		out.Type = &ClientTypeSignature{}
		target = out.Type
	case typesig.NamedTypeKind:
		out.NamedType = &NamedClientTypeSignature{}
		target = out.NamedType
	}
	if err := json.Unmarshal(raw.Value, target); err != nil {
		return fmt.Errorf("presto: decoding %s type argument: %w", raw.Kind, err)
	}
	*p = out
	return nil
}

// NewClientTypeSignature converts a parsed signature to the structured form.
func NewClientTypeSignature(sig *typesig.TypeSignature) ClientTypeSignature {
	out := ClientTypeSignature{
		RawType:   sig.Base(),
		Arguments: make([]ClientTypeSignatureParameter, 0, sig.NumParameters()),
	}
	for _, p := range sig.Parameters() {
		arg := ClientTypeSignatureParameter{Kind: p.Kind()}
		switch p.Kind() {
		case typesig.LongKind:
			arg.Long, _ = p.Long()
		case typesig.VariableKind:
			arg.Variable, _ = p.Variable()
		case typesig.TypeKind:
			nested := NewClientTypeSignature(p.Signature())
			arg.Type = &nested
		case typesig.NamedTypeKind:
			field, _ := p.NamedType()
			arg.NamedType = &NamedClientTypeSignature{
				FieldName:     field.FieldName,
				TypeSignature: NewClientTypeSignature(field.Type),
			}
		}
		out.Arguments = append(out.Arguments, arg)
	}
	return out
}

// Signature converts back to a parsed signature.
func (c *ClientTypeSignature) Signature() (*typesig.TypeSignature, error) {
	params := make([]typesig.Parameter, 0, len(c.Arguments))
	for i, arg := range c.Arguments {
		switch arg.Kind {
		case typesig.LongKind:
			params = append(params, typesig.LongParam(arg.Long))
		case typesig.VariableKind:
			params = append(params, typesig.VariableParam(arg.Variable))
		case typesig.TypeKind:
			if arg.Type == nil {
				return nil, fmt.Errorf("presto: argument %d of %s has no type", i, c.RawType)
			}
			nested, err := arg.Type.Signature()
			if err != nil {
				return nil, err
			}
			params = append(params, typesig.TypeParam(nested))
		case typesig.NamedTypeKind:
			if arg.NamedType == nil {
				return nil, fmt.Errorf("presto: argument %d of %s has no field", i, c.RawType)
			}
			nested, err := arg.NamedType.TypeSignature.Signature()
			if err != nil {
				return nil, err
			}
			params = append(params, typesig.NamedTypeParam(typesig.NamedTypeSignature{
				FieldName: arg.NamedType.FieldName,
				Type:      nested,
			}))
		default:
			return nil, fmt.Errorf("presto: argument %d of %s has unknown kind %s", i, c.RawType, arg.Kind)
		}
	}
	return typesig.New(c.RawType, params...)
}

// String returns the canonical type text.
func (c *ClientTypeSignature) String() string {
	sig, err := c.Signature()
	if err != nil {
		return c.RawType
	}
	return sig.String()
}

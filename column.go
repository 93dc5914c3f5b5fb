package presto

import (
	"fmt"

	"github.com/ethanyzhang/prestotype/typesig"
)

// Column describes one result column.
type Column struct {
	Name string `json:"name"`
	// Type is the type as text, e.g. "row(a bigint,b varchar(10))".
	Type          string               `json:"type"`
	TypeSignature *ClientTypeSignature `json:"typeSignature,omitempty"`
}

// NewColumn builds a column from a parsed type, filling both the text and
// the structured form.
func NewColumn(name string, sig *typesig.TypeSignature) Column {
	cts := NewClientTypeSignature(sig)
	return Column{
		Name:          name,
		Type:          sig.String(),
		TypeSignature: &cts,
	}
}

// Signature parses the column type. The text form wins; the structured form
// is used when the text is missing.
func (c Column) Signature() (*typesig.TypeSignature, error) {
	if c.Type != "" {
		sig, err := typesig.Parse(c.Type)
		if err != nil {
			return nil, fmt.Errorf("presto: column %q: %w", c.Name, err)
		}
		return sig, nil
	}
	if c.TypeSignature != nil {
		sig, err := c.TypeSignature.Signature()
		if err != nil {
			return nil, fmt.Errorf("presto: column %q: %w", c.Name, err)
		}
		return sig, nil
	}
	return nil, fmt.Errorf("presto: column %q has no type", c.Name)
}

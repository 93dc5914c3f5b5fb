package typesig

import (
	"strconv"
	"strings"
)

// Format returns the canonical text of sig. The rules, in order:
//
//   - a signature without parameters prints its base name;
//   - an unbounded varchar (varchar(2147483647)) prints as varchar;
//   - timestamp with time zone, timestamp without time zone and
//     time with time zone print their precision inside the name, as in
//     timestamp(3) with time zone;
//   - anything else prints base(p1,p2,...) with no blanks between
//     parameters.
//
// Row fields print as "name type". A name that is not a plain identifier is
// double-quoted so the output parses back to the same signature.
//
// forWireProtocol selects the text used when the signature is serialized
// for the coordinator; both encodings currently share one grammar.
func Format(sig *TypeSignature, forWireProtocol bool) string {
	w := &writer{wire: forWireProtocol}
	w.signature(sig)
	return w.String()
}

type writer struct {
	strings.Builder
	wire bool
}

func (w *writer) signature(s *TypeSignature) {
	if s == nil {
		return
	}
	switch {
	case len(s.parameters) == 0, s.isUnboundedVarchar():
		w.WriteString(s.base)

	case isHoistedType(s.base):
		prefix, suffix, _ := strings.Cut(s.base, " ")
		w.WriteString(prefix)
		w.WriteByte('(')
		w.parameter(s.parameters[0])
		w.WriteString(") ")
		w.WriteString(suffix)

	default:
		w.WriteString(s.base)
		w.WriteByte('(')
		for i, p := range s.parameters {
			if i > 0 {
				w.WriteByte(',')
			}
			w.parameter(p)
		}
		w.WriteByte(')')
	}
}

func (w *writer) parameter(p Parameter) {
	switch p.kind {
	case LongKind:
		w.WriteString(strconv.FormatInt(p.long, 10))
	case VariableKind:
		w.WriteString(p.variable)
	case TypeKind:
		w.signature(p.signature)
	case NamedTypeKind:
		typeText := Format(p.signature, w.wire)
		if p.hasName {
			w.fieldName(p.fieldName, typeText)
			w.WriteByte(' ')
		}
		w.WriteString(typeText)
	}
}

// fieldName writes name bare when the row parser would read it back as a
// name, and quoted otherwise.
func (w *writer) fieldName(name, typeText string) {
	if isIdentifier(name) && !isSimpleTypeWithSpaces(name+" "+typeText) {
		w.WriteString(name)
		return
	}
	w.WriteByte('"')
	w.WriteString(strings.ReplaceAll(name, `"`, `""`))
	w.WriteByte('"')
}

func (s *TypeSignature) isUnboundedVarchar() bool {
	if len(s.parameters) != 1 || !s.Is(Varchar) {
		return false
	}
	length, ok := s.parameters[0].Long()
	return ok && length == UnboundedLength
}

package typesig

import "strings"

// rowState is the position of the row field scanner within one field.
type rowState int8

const (
	// startOfField skips blanks before a field.
	startOfField rowState = iota
	// delimitedName is inside a double-quoted field name.
	delimitedName
	// delimitedNameEscaped has just seen the first quote of a "" pair.
	delimitedNameEscaped
	// typeOrNamedType is inside an unquoted token that is either a bare type
	// or a name followed by a type; the choice is made when the token ends.
	typeOrNamedType
	// fieldType is inside the type that follows a quoted name.
	fieldType
	// finished has seen the closing parenthesis of the row.
	finished
)

func hasRowPrefix(signature string) bool {
	n := len(Row)
	return len(signature) > n && signature[n] == '(' && strings.EqualFold(signature[:n], Row)
}

// parseRow scans row(...) one byte at a time. Field names may be quoted with
// double quotes (a doubled quote escapes one), written bare before the type,
// or omitted. Only parentheses nest inside a field.
func (p *parser) parseRow(signature string) (*TypeSignature, error) {
	var (
		state      = startOfField
		depth      = 1
		tokenStart = -1
		quotedName string
		fields     []Parameter
	)

	for i := len(Row) + 1; i < len(signature); i++ {
		c := signature[i]
		switch state {
		case startOfField:
			switch {
			case c == '"':
				state = delimitedName
				tokenStart = i
			case isIdentifierStart(c):
				state = typeOrNamedType
				tokenStart = i
			case c != ' ':
				return nil, malformed(signature, "unexpected %q at start of row field", c)
			}

		case delimitedName:
			if c != '"' {
				continue
			}
			if i+1 < len(signature) && signature[i+1] == '"' {
				state = delimitedNameEscaped
				continue
			}
			quotedName = strings.ReplaceAll(signature[tokenStart+1:i], `""`, `"`)
			tokenStart = i + 1
			state = fieldType

		case delimitedNameEscaped:
			// c is the second quote of the pair.
			state = delimitedName

		case typeOrNamedType, fieldType:
			switch {
			case c == '(':
				depth++
				continue
			case c == ')' && depth > 1:
				depth--
				continue
			case c == ',' && depth == 1, c == ')':
			default:
				continue
			}

			token := strings.TrimSpace(signature[tokenStart:i])
			var (
				field Parameter
				err   error
			)
			if state == fieldType {
				field, err = p.quotedField(quotedName, token)
			} else {
				field, err = p.typeOrNamedField(token)
			}
			if err != nil {
				return nil, err
			}
			fields = append(fields, field)
			quotedName = ""
			tokenStart = -1
			state = startOfField
			if c == ')' {
				state = finished
			}

		case finished:
			return nil, malformed(signature, "unexpected trailing text %q after row", signature[i:])
		}
	}

	if state != finished {
		return nil, malformed(signature, "unterminated row type")
	}
	return build(signature, signature[:len(Row)], fields)
}

func (p *parser) quotedField(name, typeText string) (Parameter, error) {
	sig, err := p.parse(typeText)
	if err != nil {
		return Parameter{}, err
	}
	return NamedField(name, sig), nil
}

// typeOrNamedField resolves an unquoted row field. A token without blanks, or
// one of the built-in multi-word types, is an anonymous type. Otherwise a
// leading identifier is taken as the field name; a first word that is not an
// identifier means the blanks belong to the type, as in
// array(timestamp with time zone).
func (p *parser) typeOrNamedField(token string) (Parameter, error) {
	split := strings.IndexByte(token, ' ')
	if split < 0 || isSimpleTypeWithSpaces(token) {
		return p.anonymousField(token)
	}
	if name := token[:split]; isIdentifier(name) {
		sig, err := p.parse(strings.TrimSpace(token[split+1:]))
		if err != nil {
			return Parameter{}, err
		}
		return NamedField(name, sig), nil
	}
	return p.anonymousField(token)
}

func (p *parser) anonymousField(typeText string) (Parameter, error) {
	sig, err := p.parse(typeText)
	if err != nil {
		return Parameter{}, err
	}
	return Field(sig), nil
}

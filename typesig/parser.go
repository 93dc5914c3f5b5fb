package typesig

import (
	"strconv"
	"strings"
)

// ParseOption configures a single Parse call.
type ParseOption func(*parser)

// WithVariables declares names that stand for symbolic parameters. Inside a
// parameter list such a name becomes a VariableKind parameter instead of a
// nested type, and it may not be used as a base name.
func WithVariables(names ...string) ParseOption {
	return func(p *parser) {
		for _, name := range names {
			p.variables[name] = struct{}{}
		}
	}
}

// Parse parses signature into a type signature tree. Both parentheses and the
// legacy angle brackets delimit parameter lists: array(bigint) and
// array<bigint> parse the same.
//
// On failure the error is a *MalformedSignatureError.
func Parse(signature string, opts ...ParseOption) (*TypeSignature, error) {
	p := &parser{variables: make(map[string]struct{})}
	for _, opt := range opts {
		opt(p)
	}
	return p.parse(signature)
}

// MustParse is like Parse but panics on error. It is meant for signatures
// fixed at compile time.
func MustParse(signature string, opts ...ParseOption) *TypeSignature {
	sig, err := Parse(signature, opts...)
	if err != nil {
		panic(err)
	}
	return sig
}

// parser holds the settings of one Parse call. It keeps no state between
// signatures, so nested parameters are parsed by recursion on the same value.
type parser struct {
	variables map[string]struct{}
}

func (p *parser) isVariable(name string) bool {
	_, ok := p.variables[name]
	return ok
}

func (p *parser) parse(signature string) (*TypeSignature, error) {
	if !strings.ContainsAny(signature, "(<") {
		if strings.EqualFold(signature, Varchar) {
			return unboundedVarchar, nil
		}
		if p.isVariable(signature) {
			return nil, malformed(signature, "variable %q used as a type", signature)
		}
		return build(signature, signature, nil)
	}
	if hasRowPrefix(signature) {
		return p.parseRow(signature)
	}
	return p.parseParametric(signature)
}

// parseParametric scans base(p1,p2,...) keeping a single depth counter for
// both bracket styles. A mismatched pair such as array(bigint> is accepted as
// long as the depth balances.
func (p *parser) parseParametric(signature string) (*TypeSignature, error) {
	var (
		base   string
		params []Parameter
		start  = -1
		depth  int
	)

	for i := 0; i < len(signature); i++ {
		switch c := signature[i]; c {
		case '(', '<':
			if depth == 0 {
				base = signature[:i]
				if p.isVariable(base) {
					return nil, malformed(signature, "variable %q used as a type", base)
				}
				start = i + 1
			}
			depth++

		case ')', '>':
			depth--
			if depth < 0 {
				return nil, malformed(signature, "unbalanced %q at position %d", c, i)
			}
			if depth > 0 {
				continue
			}
			param, err := p.parseParameter(signature, signature[start:i])
			if err != nil {
				return nil, err
			}
			params = append(params, param)
			if i < len(signature)-1 {
				return p.parseCompound(signature, base, params, signature[i+1:])
			}
			if err := checkNumericParameters(signature, base, params); err != nil {
				return nil, err
			}
			return build(signature, base, params)

		case ',':
			if depth == 1 {
				param, err := p.parseParameter(signature, signature[start:i])
				if err != nil {
					return nil, err
				}
				params = append(params, param)
				start = i + 1
			}
		}
	}

	return nil, malformed(signature, "unterminated parameter list")
}

// parseCompound handles text after the closing bracket. The only legal
// trailer is the rest of a compound name whose precision is written in the
// middle, as in timestamp(3) with time zone.
func (p *parser) parseCompound(signature, base string, params []Parameter, rest string) (*TypeSignature, error) {
	suffix := strings.TrimSpace(rest)
	if suffix == "" || rest[0] != ' ' {
		return nil, malformed(signature, "unexpected trailing text %q", rest)
	}
	compound := base + " " + suffix
	if !isHoistedType(compound) {
		return nil, malformed(signature, "unexpected trailing text %q", rest)
	}
	if len(params) != 1 {
		return nil, malformed(signature, "%s takes a single precision parameter", compound)
	}
	if err := checkNumericParameters(signature, compound, params); err != nil {
		return nil, err
	}
	return build(signature, compound, params)
}

// parseParameter classifies one comma-separated argument: a leading digit
// makes a literal, a declared variable a symbol, anything else a nested type.
func (p *parser) parseParameter(signature, raw string) (Parameter, error) {
	text := strings.TrimSpace(raw)
	if text != "" && isDigit(text[0]) {
		value, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return Parameter{}, malformed(signature, "invalid numeric parameter %q", text)
		}
		return LongParam(value), nil
	}
	if p.isVariable(text) {
		return VariableParam(text), nil
	}
	sig, err := p.parse(text)
	if err != nil {
		return Parameter{}, err
	}
	return TypeParam(sig), nil
}

// checkNumericParameters rejects nested types in the parameter list of a
// length or precision parameterized type, so that varchar(x) only parses when
// x is a declared variable.
func checkNumericParameters(signature, base string, params []Parameter) error {
	if !isNumericParametric(base) {
		return nil
	}
	for _, param := range params {
		if param.kind != LongKind && param.kind != VariableKind {
			return malformed(signature, "%s parameters must be integer literals or declared variables, got %q", base, param)
		}
	}
	return nil
}

// build wraps New so that construction failures surface as parse errors.
func build(signature, base string, params []Parameter) (*TypeSignature, error) {
	sig, err := New(base, params...)
	if err != nil {
		return nil, malformed(signature, "%s", strings.TrimPrefix(err.Error(), ErrInvalidSignature.Error()+": "))
	}
	return sig, nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentifierStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

// isIdentifier matches [a-zA-Z_][a-zA-Z0-9_:@]*.
func isIdentifier(s string) bool {
	if s == "" || !isIdentifierStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		c := s[i]
		if !isIdentifierStart(c) && !isDigit(c) && c != ':' && c != '@' {
			return false
		}
	}
	return true
}

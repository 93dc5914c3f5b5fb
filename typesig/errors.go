package typesig

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedSignature matches every error returned by Parse.
	ErrMalformedSignature = errors.New("malformed type signature")

	// ErrInvalidSignature is returned by New and the factories when asked to
	// build a signature that could never have been parsed.
	ErrInvalidSignature = errors.New("invalid type signature")
)

// MalformedSignatureError reports text that is not a valid type signature.
type MalformedSignatureError struct {
	// Signature is the text that failed to parse. For failures inside a
	// nested parameter it is the nested text, not the whole input.
	Signature string

	// Message describes what was wrong with it.
	Message string
}

// Error implements the error interface.
func (e *MalformedSignatureError) Error() string {
	return fmt.Sprintf("bad type signature '%s': %s", e.Signature, e.Message)
}

// Is reports whether target is ErrMalformedSignature.
func (e *MalformedSignatureError) Is(target error) bool {
	return target == ErrMalformedSignature
}

func malformed(signature, format string, args ...any) *MalformedSignatureError {
	return &MalformedSignatureError{
		Signature: signature,
		Message:   fmt.Sprintf(format, args...),
	}
}

// Package typesig parses, formats and compares Presto/Trino type signatures.
//
// A type signature is the textual description of a SQL type as the
// coordinator reports it in column metadata, for example
//
//	varchar(10)
//	map(varchar, array(decimal(10,2)))
//	row(id bigint, "display name" varchar, tags array(varchar))
//	timestamp(3) with time zone
//
// Parse turns such text into an immutable *TypeSignature tree and Format (or
// String) turns a tree back into canonical text:
//
//	sig, err := typesig.Parse("row(a integer, b varchar(10))")
//	if err != nil {
//	    return err
//	}
//	sig.Is(typesig.Row)        // true
//	sig.Parameters()[1]        // NamedType b varchar(10)
//	sig.String()               // "row(a integer,b varchar(10))"
//
// # Calculated Types
//
// Function signatures use symbolic parameters such as varchar(x). Names that
// should be read as variables instead of nested types are passed to Parse with
// WithVariables; a signature holding any variable reports IsCalculated.
//
// # Errors
//
// Every parse failure is a *MalformedSignatureError, which matches
// ErrMalformedSignature with errors.Is. Parsing never returns a partial tree.
//
// # Concurrency
//
// Signatures are never modified after construction, and their hash is
// computed up front, so values may be shared between goroutines freely.
package typesig

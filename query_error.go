package presto

import "fmt"

// QueryError is a failure reported by the coordinator inside a statement
// reply, as opposed to an HTTP level failure (see ErrorResponse).
type QueryError struct {
	Message       string         `json:"message"`
	ErrorCode     int            `json:"errorCode"`
	ErrorName     string         `json:"errorName"`
	ErrorType     string         `json:"errorType"`
	Retriable     bool           `json:"retriable"`
	ErrorLocation *ErrorLocation `json:"errorLocation,omitempty"`
	FailureInfo   *FailureInfo   `json:"failureInfo,omitempty"`
}

// Error returns "ErrorName: Message", with the statement position when the
// coordinator reported one.
func (e *QueryError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.ErrorLocation != nil {
		return fmt.Sprintf("%s: %s (%s)", e.ErrorName, e.Message, e.ErrorLocation)
	}
	return fmt.Sprintf("%s: %s", e.ErrorName, e.Message)
}

// IsUserError reports whether the statement itself was at fault, e.g. a
// syntax error or an unknown table.
func (e *QueryError) IsUserError() bool {
	return e != nil && e.ErrorType == "USER_ERROR"
}

// ErrorLocation is a 1-based position in the statement text.
type ErrorLocation struct {
	LineNumber   int `json:"lineNumber"`
	ColumnNumber int `json:"columnNumber"`
}

func (l *ErrorLocation) String() string {
	return fmt.Sprintf("line %d:%d", l.LineNumber, l.ColumnNumber)
}

// FailureInfo is the server-side exception chain.
type FailureInfo struct {
	Type          string         `json:"type"`
	Message       string         `json:"message,omitempty"`
	Cause         *FailureInfo   `json:"cause,omitempty"`
	Suppressed    []FailureInfo  `json:"suppressed,omitempty"`
	Stack         []string       `json:"stack,omitempty"`
	ErrorLocation *ErrorLocation `json:"errorLocation,omitempty"`
}

package presto

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxErrorBody bounds how much of a failed reply is kept in the error.
const maxErrorBody = 4 << 10

// ErrorResponse is a reply with a status other than 200 (or 503 after the
// retries ran out).
type ErrorResponse struct {
	StatusCode int
	Message    string
}

func (e *ErrorResponse) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("presto: server replied %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("presto: server replied %d: %s", e.StatusCode, e.Message)
}

// NewErrorResponse reads and closes the body of resp.
func NewErrorResponse(resp *http.Response) error {
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return fmt.Errorf("presto: reading error reply (status %d): %w", resp.StatusCode, err)
	}
	return &ErrorResponse{
		StatusCode: resp.StatusCode,
		Message:    strings.TrimSpace(string(body)),
	}
}

package presto

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryError_Error(t *testing.T) {
	t.Run("without location", func(t *testing.T) {
		qe := &QueryError{ErrorName: "TABLE_NOT_FOUND", Message: "Table hive.web.nope does not exist"}
		assert.Equal(t, "TABLE_NOT_FOUND: Table hive.web.nope does not exist", qe.Error())
	})

	t.Run("with location", func(t *testing.T) {
		qe := &QueryError{
			ErrorName:     "SYNTAX_ERROR",
			Message:       "mismatched input ')'",
			ErrorLocation: &ErrorLocation{LineNumber: 1, ColumnNumber: 42},
		}
		assert.Equal(t, "SYNTAX_ERROR: mismatched input ')' (line 1:42)", qe.Error())
	})

	t.Run("nil", func(t *testing.T) {
		var qe *QueryError
		assert.Equal(t, "<nil>", qe.Error())
		assert.False(t, qe.IsUserError())
	})

	t.Run("errors.As", func(t *testing.T) {
		var err error = &QueryError{ErrorType: "USER_ERROR"}
		var qe *QueryError
		require.True(t, errors.As(err, &qe))
		assert.True(t, qe.IsUserError())
	})
}

func TestNewErrorResponse(t *testing.T) {
	resp := &http.Response{
		StatusCode: http.StatusBadRequest,
		Body:       io.NopCloser(strings.NewReader("  unsupported statement\n")),
	}
	err := NewErrorResponse(resp)

	var er *ErrorResponse
	require.ErrorAs(t, err, &er)
	assert.Equal(t, http.StatusBadRequest, er.StatusCode)
	assert.Equal(t, "unsupported statement", er.Message)
	assert.Equal(t, "presto: server replied 400: unsupported statement", err.Error())

	empty := &ErrorResponse{StatusCode: http.StatusForbidden}
	assert.Equal(t, "presto: server replied 403 Forbidden", empty.Error())
}

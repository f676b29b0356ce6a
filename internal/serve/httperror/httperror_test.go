package httperror

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_NewHTTPError_returnsOriginalWhenNothingIsAdded(t *testing.T) {
	original := NewHTTPError(http.StatusBadRequest, "Bad request", nil, map[string]any{"foo": "bar"})

	assert.Same(t, original, NewHTTPError(http.StatusBadRequest, "", original, nil))
	assert.NotSame(t, original, NewHTTPError(http.StatusBadRequest, "Other message", original, nil))
	assert.NotSame(t, original, NewHTTPError(http.StatusNotFound, "", original, nil))
	assert.NotSame(t, original, NewHTTPError(http.StatusBadRequest, "", original, map[string]any{"foo2": "bar2"}))
}

func Test_constructors(t *testing.T) {
	originalErr := errors.New("original error")

	testCases := []struct {
		name        string
		build       func(msg string) *HTTPError
		wantStatus  int
		wantDefault string
	}{
		{"BadRequest", func(msg string) *HTTPError { return BadRequest(msg, originalErr, nil) }, http.StatusBadRequest, "The request was invalid in some way."},
		{"Unauthorized", func(msg string) *HTTPError { return Unauthorized(msg, originalErr, nil) }, http.StatusUnauthorized, "Not authorized."},
		{"Forbidden", func(msg string) *HTTPError { return Forbidden(msg, originalErr, nil) }, http.StatusForbidden, "You don't have permission to perform this action."},
		{"NotFound", func(msg string) *HTTPError { return NotFound(msg, originalErr, nil) }, http.StatusNotFound, "Resource not found."},
		{"Conflict", func(msg string) *HTTPError { return Conflict(msg, originalErr, nil) }, http.StatusConflict, "The resource already exists."},
		{"UnprocessableEntity", func(msg string) *HTTPError { return UnprocessableEntity(msg, originalErr, nil) }, http.StatusUnprocessableEntity, "Unprocessable entity."},
		{"TooManyRequests", func(msg string) *HTTPError { return TooManyRequests(msg, originalErr, nil) }, http.StatusTooManyRequests, "Too many requests, please try again later."},
		{"InternalError", func(msg string) *HTTPError { return InternalError(context.Background(), msg, originalErr, nil) }, http.StatusInternalServerError, "An internal error occurred while processing this request."},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.build("")
			assert.Equal(t, tc.wantStatus, err.StatusCode)
			assert.Equal(t, tc.wantDefault, err.Message)
			assert.ErrorIs(t, err, originalErr)

			assert.Equal(t, "custom", tc.build("custom").Message)
		})
	}
}

func Test_InternalError_reportsTheError(t *testing.T) {
	original := defaultReportErrorFunc.reportErrorFunc
	defer SetDefaultReportErrorFunc(original)

	var reported error
	var reportedMsg string
	SetDefaultReportErrorFunc(func(_ context.Context, err error, msg string) {
		reported = err
		reportedMsg = msg
	})

	originalErr := errors.New("boom")
	InternalError(context.Background(), "Cannot get studio", originalErr, nil)

	assert.Equal(t, originalErr, reported)
	assert.Equal(t, "Cannot get studio", reportedMsg)
}

func Test_HTTPError_Render(t *testing.T) {
	rr := httptest.NewRecorder()
	NotFound("No studio is served on this host.", nil, map[string]any{"host": "unknown.example"}).
		WithErrorCode(Code404_0).
		Render(rr)

	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{
		"error": "No studio is served on this host.",
		"error_code": "404_0",
		"extras": {"host": "unknown.example"}
	}`, rr.Body.String())
}

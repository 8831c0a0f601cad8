package errors

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	err := New(CategoryStage, SeverityError, "pipeline stage failed")
	assert.Equal(t, "stage (error): pipeline stage failed", err.Error())

	wrapped := Wrap(errors.New("boom"), CategoryGit, SeverityFatal, "repository acquisition failed")
	assert.Equal(t, "git (fatal): repository acquisition failed: boom", wrapped.Error())
	assert.Equal(t, "boom", wrapped.Unwrap().Error())
}

func TestCategoryExtraction(t *testing.T) {
	err := InvalidLocator("ftp://example.com/x")
	assert.True(t, IsCategory(err, CategoryValidation))
	assert.False(t, IsCategory(err, CategoryGit))
	assert.Equal(t, CategoryValidation, GetCategory(err))

	// Category survives wrapping with fmt.Errorf.
	wrapped := fmt.Errorf("submit: %w", err)
	assert.True(t, IsCategory(wrapped, CategoryValidation))

	assert.Equal(t, CategoryInternal, GetCategory(errors.New("plain")))
}

func TestHTTPStatusCodes(t *testing.T) {
	adapter := NewHTTPErrorAdapter(nil)

	cases := []struct {
		err      error
		expected int
	}{
		{nil, http.StatusOK},
		{InvalidLocator("x"), http.StatusBadRequest},
		{AccessDenied("../etc/passwd"), http.StatusForbidden},
		{NotFound("job abc"), http.StatusNotFound},
		{NotReady("abc"), http.StatusAccepted},
		{AcquisitionFailed("u", errors.New("x")), http.StatusBadGateway},
		{StageError("analyze", errors.New("x")), http.StatusUnprocessableEntity},
		{SoftTimeout("abc"), http.StatusServiceUnavailable},
		{errors.New("plain"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.expected, adapter.StatusCodeFor(tc.err))
	}
}

func TestWriteErrorResponse(t *testing.T) {
	adapter := NewHTTPErrorAdapter(nil)
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/status/x", nil)

	adapter.WriteErrorResponse(w, r, NotFound("job x"))

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), `"code":"not_found"`)
}

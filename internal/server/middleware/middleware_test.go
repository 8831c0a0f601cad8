package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	rderrors "git.home.luguber.info/inful/repodoc/internal/errors"
)

func TestChainRecoversFromPanic(t *testing.T) {
	chain := Chain(slog.Default(), rderrors.NewHTTPErrorAdapter(slog.Default()))
	h := chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal server error")
}

func TestChainPassesThrough(t *testing.T) {
	chain := Chain(slog.Default(), rderrors.NewHTTPErrorAdapter(slog.Default()))
	h := chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

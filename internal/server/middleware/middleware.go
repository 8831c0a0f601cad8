// Package middleware provides HTTP middleware for request logging and panic
// recovery.
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	rderrors "git.home.luguber.info/inful/repodoc/internal/errors"
	"git.home.luguber.info/inful/repodoc/internal/logfields"
)

// Chain wraps a handler in logging and panic recovery, in that order.
func Chain(logger *slog.Logger, adapter *rderrors.HTTPErrorAdapter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return logging(logger, recovery(logger, adapter, next))
	}
}

// logging records method, path, status, duration, user agent, and remote addr
// for every request.
func logging(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		logger.Info("HTTP request",
			logfields.Method(r.Method),
			logfields.Path(r.URL.Path),
			logfields.Status(wrapped.status),
			slog.Duration("duration", time.Since(start)),
			logfields.UserAgent(r.UserAgent()),
			logfields.RemoteAddr(r.RemoteAddr))
	})
}

// recovery converts handler panics into structured 500 responses so one bad
// request cannot take the server down.
func recovery(logger *slog.Logger, adapter *rderrors.HTTPErrorAdapter, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("HTTP handler panic",
					"panic", rec,
					logfields.Method(r.Method),
					logfields.Path(r.URL.Path),
					logfields.RemoteAddr(r.RemoteAddr))

				err := rderrors.New(rderrors.CategoryInternal, rderrors.SeverityError, "internal server error").
					WithContext("path", r.URL.Path)
				adapter.WriteErrorResponse(w, r, err)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// statusWriter captures the status code for the access log.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

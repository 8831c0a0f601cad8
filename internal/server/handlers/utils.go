// Package handlers implements the repodoc HTTP endpoints.
package handlers

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"

	"git.home.luguber.info/inful/repodoc/internal/logfields"
)

// writeJSON serializes v into an intermediate buffer before writing, so a
// failed encode never produces a partial response body.
func writeJSON(w http.ResponseWriter, status int, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(true)
	if err := enc.Encode(v); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("failed writing JSON response body", logfields.Error(err))
		return err
	}
	return nil
}

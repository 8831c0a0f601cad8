package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyJobID      = "job_id"
	KeyJobState   = "job_state"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyRepo       = "repository"
	KeyLocator    = "locator"
	KeyPath       = "path"
	KeyURL        = "url"
	KeyWorker     = "worker"
	KeyBackend    = "storage_backend"
	KeyMethod     = "method"
	KeyStatus     = "status"
	KeyUserAgent  = "user_agent"
	KeyRemoteAddr = "remote_addr"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func JobID(id string) slog.Attr       { return slog.String(KeyJobID, id) }
func JobState(s string) slog.Attr     { return slog.String(KeyJobState, s) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Repository(r string) slog.Attr   { return slog.String(KeyRepo, r) }
func Locator(l string) slog.Attr      { return slog.String(KeyLocator, l) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func URL(u string) slog.Attr          { return slog.String(KeyURL, u) }
func Worker(w string) slog.Attr       { return slog.String(KeyWorker, w) }
func Backend(b string) slog.Attr      { return slog.String(KeyBackend, b) }
func Method(m string) slog.Attr       { return slog.String(KeyMethod, m) }
func Status(code int) slog.Attr       { return slog.Int(KeyStatus, code) }
func UserAgent(ua string) slog.Attr   { return slog.String(KeyUserAgent, ua) }
func RemoteAddr(a string) slog.Attr   { return slog.String(KeyRemoteAddr, a) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}

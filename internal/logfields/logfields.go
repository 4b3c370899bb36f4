package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyTarget     = "target"
	KeyStage      = "stage"
	KeyState      = "state"
	KeyProgram    = "program"
	KeyExitStatus = "exit_status"
	KeyPath       = "path"
	KeyEntries    = "entries"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Target(path string) slog.Attr    { return slog.String(KeyTarget, path) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func State(name string) slog.Attr     { return slog.String(KeyState, name) }
func Program(path string) slog.Attr   { return slog.String(KeyProgram, path) }
func ExitStatus(code int) slog.Attr   { return slog.Int(KeyExitStatus, code) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Entries(n int) slog.Attr         { return slog.Int(KeyEntries, n) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }

// Duration converts d to milliseconds under KeyDurationMS.
func Duration(d time.Duration) slog.Attr {
	return DurationMS(float64(d.Microseconds()) / 1000)
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}

package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRound     = "round"
	KeyHandler   = "handler"
	KeyEvent     = "event"
	KeyOperation = "operation"
	KeyAttempt   = "attempt"
	KeyPath      = "path"
	KeyWait      = "wait"
	KeyError     = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Round(n int) slog.Attr         { return slog.Int(KeyRound, n) }
func Handler(name string) slog.Attr { return slog.String(KeyHandler, name) }
func Event(name string) slog.Attr   { return slog.String(KeyEvent, name) }
func Operation(op string) slog.Attr { return slog.String(KeyOperation, op) }
func Attempt(n int) slog.Attr       { return slog.Int(KeyAttempt, n) }
func Path(p string) slog.Attr       { return slog.String(KeyPath, p) }
func Wait(d string) slog.Attr       { return slog.String(KeyWait, d) }

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}

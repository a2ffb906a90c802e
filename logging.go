package asyncio

import "github.com/joeycumines/logiface"

// Logger is the logging facade used throughout this module. It is
// satisfied directly by *logiface.Logger[logiface.Event] (the untyped,
// "root" logger handle produced by a typed *logiface.Logger[E]'s Logger()
// method), so callers wire in any logiface backend (stumpy, zerolog,
// logrus, slog, ...) the same way the rest of the joeycumines-go-utilpkg
// corpus does, instead of a bespoke interface.
type Logger interface {
	Err() *logiface.Builder[logiface.Event]
	Warning() *logiface.Builder[logiface.Event]
	Info() *logiface.Builder[logiface.Event]
	Debug() *logiface.Builder[logiface.Event]
}

// NoOpLogger discards everything. It is the default Logger for both
// TaskLoop and Reactor.
type NoOpLogger struct{}

func (NoOpLogger) Err() *logiface.Builder[logiface.Event]     { return nil }
func (NoOpLogger) Warning() *logiface.Builder[logiface.Event] { return nil }
func (NoOpLogger) Info() *logiface.Builder[logiface.Event]    { return nil }
func (NoOpLogger) Debug() *logiface.Builder[logiface.Event]   { return nil }

// logErr logs an error-level message via l, tolerating a nil Builder (as
// returned when the logger/level is disabled) and a nil Logger.
func logErr(l Logger, msg string, err error) {
	if l == nil {
		return
	}
	b := l.Err()
	if b == nil {
		return
	}
	b.Err(err).Log(msg)
}

// logInfo logs an informational-level message via l with a single string
// field, tolerating a nil Builder/Logger.
func logInfo(l Logger, msg string, key, val string) {
	if l == nil {
		return
	}
	b := l.Info()
	if b == nil {
		return
	}
	if key != "" {
		b = b.Str(key, val)
	}
	b.Log(msg)
}

package logger

import "os"

type teeLogger []Logger

// Tee returns a Logger writing every entry to all of loggers.
func Tee(loggers ...Logger) Logger {
	return teeLogger(loggers)
}

func (t teeLogger) each(fn func(Logger) Logger) teeLogger {
	out := make(teeLogger, len(t))
	for i, l := range t {
		out[i] = fn(l)
	}
	return out
}

func (t teeLogger) With(metadata map[string]interface{}) Logger {
	return t.each(func(l Logger) Logger { return l.With(metadata) })
}

func (t teeLogger) WithPrefix(prefix string) Logger {
	return t.each(func(l Logger) Logger { return l.WithPrefix(prefix) })
}

func (t teeLogger) IsLevelEnabled(level LogLevel) bool {
	for _, l := range t {
		if l.IsLevelEnabled(level) {
			return true
		}
	}
	return false
}

func (t teeLogger) Trace(msg string, args ...interface{}) {
	for _, l := range t {
		l.Trace(msg, args...)
	}
}

func (t teeLogger) Debug(msg string, args ...interface{}) {
	for _, l := range t {
		l.Debug(msg, args...)
	}
}

func (t teeLogger) Info(msg string, args ...interface{}) {
	for _, l := range t {
		l.Info(msg, args...)
	}
}

func (t teeLogger) Warn(msg string, args ...interface{}) {
	for _, l := range t {
		l.Warn(msg, args...)
	}
}

func (t teeLogger) Error(msg string, args ...interface{}) {
	for _, l := range t {
		l.Error(msg, args...)
	}
}

// Fatal logs to every logger before exiting once.
func (t teeLogger) Fatal(msg string, args ...interface{}) {
	for _, l := range t {
		l.Error(msg, args...)
	}
	os.Exit(1)
}

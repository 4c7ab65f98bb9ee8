// Package logger is the process-wide logging facade. Library packages log
// through it unconditionally; until Init installs a backend every call is
// dropped.
package logger

import (
	"errors"
	"sync/atomic"
)

// LoggerInstance defines the interface for logging backends.
type LoggerInstance interface {
	Log(message string, keyvals ...any)
	Debug(message string, keyvals ...any)
	Info(message string, keyvals ...any)
	Warn(message string, keyvals ...any)
	Error(message string, keyvals ...any)
	Fatal(message string, keyvals ...any)
}

// syncer is implemented by backends that buffer entries.
type syncer interface {
	Sync() error
}

type fanout []LoggerInstance

var active atomic.Pointer[fanout]

// Init replaces the installed backends. Init() with no arguments silences
// logging again.
func Init(instances ...LoggerInstance) {
	f := fanout(instances)
	active.Store(&f)
}

func dispatch(emit func(LoggerInstance)) {
	f := active.Load()
	if f == nil {
		return
	}
	for _, instance := range *f {
		emit(instance)
	}
}

// Log writes a message at the backend's default level.
func Log(message string, keyvals ...any) {
	dispatch(func(l LoggerInstance) { l.Log(message, keyvals...) })
}

func Debug(message string, keyvals ...any) {
	dispatch(func(l LoggerInstance) { l.Debug(message, keyvals...) })
}

func Info(message string, keyvals ...any) {
	dispatch(func(l LoggerInstance) { l.Info(message, keyvals...) })
}

func Warn(message string, keyvals ...any) {
	dispatch(func(l LoggerInstance) { l.Warn(message, keyvals...) })
}

func Error(message string, keyvals ...any) {
	dispatch(func(l LoggerInstance) { l.Error(message, keyvals...) })
}

// Fatal logs at FATAL level; backends terminate the process.
func Fatal(message string, keyvals ...any) {
	dispatch(func(l LoggerInstance) { l.Fatal(message, keyvals...) })
}

// Sync flushes every backend that buffers output.
func Sync() error {
	var errs []error
	dispatch(func(l LoggerInstance) {
		if s, ok := l.(syncer); ok {
			if err := s.Sync(); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}

// Package logx provides the standard logger implementation for devboy.
//
// The default logger writes to stderr: stdout carries the JSON-RPC wire
// traffic when the server runs over stdio.
package logx

import (
	"log"
	"os"

	"github.com/devboy-tools/devboy/types"
)

// Level controls which messages a DefaultLogger emits.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// DefaultLogger is a basic types.Logger built on the standard log package.
type DefaultLogger struct {
	logger *log.Logger
	level  Level
}

// NewDefaultLogger creates a logger writing to stderr at Info level.
func NewDefaultLogger() *DefaultLogger {
	return &DefaultLogger{
		logger: log.New(os.Stderr, "[devboy] ", log.LstdFlags|log.Lmsgprefix),
		level:  LevelInfo,
	}
}

// NewDefaultLoggerAt creates a stderr logger at the given level.
func NewDefaultLoggerAt(level Level) *DefaultLogger {
	l := NewDefaultLogger()
	l.level = level
	return l
}

func (l *DefaultLogger) Debug(msg string, args ...interface{}) {
	if l.level <= LevelDebug {
		l.logger.Printf("DEBUG: "+msg, args...)
	}
}

func (l *DefaultLogger) Info(msg string, args ...interface{}) {
	if l.level <= LevelInfo {
		l.logger.Printf("INFO: "+msg, args...)
	}
}

func (l *DefaultLogger) Warn(msg string, args ...interface{}) {
	if l.level <= LevelWarn {
		l.logger.Printf("WARN: "+msg, args...)
	}
}

func (l *DefaultLogger) Error(msg string, args ...interface{}) {
	l.logger.Printf("ERROR: "+msg, args...)
}

// Ensure interface compliance.
var _ types.Logger = (*DefaultLogger)(nil)

// Nop is a logger that discards everything. Useful in tests.
type Nop struct{}

func (Nop) Debug(string, ...interface{}) {}
func (Nop) Info(string, ...interface{})  {}
func (Nop) Warn(string, ...interface{})  {}
func (Nop) Error(string, ...interface{}) {}

var _ types.Logger = Nop{}

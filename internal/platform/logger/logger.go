// Package logger provides structured logging for the game server.
// Every state-changing reaction of the engine should be traceable through this.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
)

// Logger provides leveled logging with a fixed prefix per level.
type Logger struct {
	infoLogger  *log.Logger
	warnLogger  *log.Logger
	errorLogger *log.Logger
}

// NewLogger creates a logger writing info/warn to stdout and errors to stderr.
func NewLogger() *Logger {
	return newLogger(os.Stdout, os.Stderr)
}

// NewLoggerTo sends every level to w. Used by tests and the CLI tools.
func NewLoggerTo(w io.Writer) *Logger {
	return newLogger(w, w)
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return newLogger(io.Discard, io.Discard)
}

func newLogger(out, errOut io.Writer) *Logger {
	flags := log.Ldate | log.Ltime | log.Lshortfile
	return &Logger{
		infoLogger:  log.New(out, "[BEER-INFO] ", flags),
		warnLogger:  log.New(out, "[BEER-WARN] ", flags),
		errorLogger: log.New(errOut, "[BEER-ERROR] ", flags),
	}
}

// Info logs informational messages.
func (l *Logger) Info(msg string) {
	l.infoLogger.Output(2, msg)
}

// Warn logs warning messages.
func (l *Logger) Warn(msg string) {
	l.warnLogger.Output(2, msg)
}

// Error logs error messages.
func (l *Logger) Error(msg string) {
	l.errorLogger.Output(2, msg)
}

func (l *Logger) Infof(format string, v ...any) {
	l.infoLogger.Output(2, fmt.Sprintf(format, v...))
}

func (l *Logger) Warnf(format string, v ...any) {
	l.warnLogger.Output(2, fmt.Sprintf(format, v...))
}

func (l *Logger) Errorf(format string, v ...any) {
	l.errorLogger.Output(2, fmt.Sprintf(format, v...))
}

// Event logs a game event with the component that produced it.
func (l *Logger) Event(eventType string, source string, details string) {
	l.infoLogger.Output(2, fmt.Sprintf("[EVENT:%s] Source:%s | %s", eventType, source, details))
}

// Package colors prints colored console messages and mirrors them into the file logger.
package colors

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

// Color constants
const (
	Red    = "\033[0;31m"
	Green  = "\033[0;32m"
	Yellow = "\033[1;33m"
	Blue   = "\033[0;34m"
	Cyan   = "\033[0;36m"
	Reset  = "\033[0m"
)

const checkmark = "✓"

// Logger receives a copy of every console message.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

var (
	debugEnabled atomic.Bool
	quietEnabled atomic.Bool
	inFailure    atomic.Bool
	logger       Logger
	loggerMu     sync.RWMutex
)

func init() {
	if val := os.Getenv("MAILNOTIFY_DEBUG"); val == "true" || val == "1" {
		debugEnabled.Store(true)
	}
}

// SetDebug enables or disables debug output.
func SetDebug(enabled bool) {
	debugEnabled.Store(enabled)
}

// SetQuiet suppresses Info and Success output. Warnings and errors are always printed.
func SetQuiet(enabled bool) {
	quietEnabled.Store(enabled)
}

// SetLogger sets the logger that mirrors console output. nil disables mirroring.
func SetLogger(l Logger) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	logger = l
}

func mirror(fn func(l Logger)) {
	loggerMu.RLock()
	l := logger
	loggerMu.RUnlock()
	if l != nil {
		fn(l)
	}
}

// emit writes one line. A failed write is reported once on stderr without recursing.
func emit(w io.Writer, kind, line string) {
	if _, err := fmt.Fprintln(w, line); err != nil {
		if inFailure.CompareAndSwap(false, true) {
			defer inFailure.Store(false)
			fmt.Fprintf(os.Stderr, "%sWarning:%s failed to print %s message: %v\n", Yellow, Reset, kind, err)
		}
	}
}

// Error outputs an error message to stderr.
func Error(msgs ...string) {
	msg := strings.Join(msgs, " ")
	mirror(func(l Logger) { l.Error(msg) })
	emit(os.Stderr, "error", Red+"Error:"+Reset+" "+msg+Reset)
}

// Success outputs a success message to stdout.
func Success(msgs ...string) {
	msg := strings.Join(msgs, " ")
	mirror(func(l Logger) { l.Info(msg, "type", "success") })
	if quietEnabled.Load() {
		return
	}
	emit(os.Stdout, "success", Green+checkmark+Reset+" "+msg+Reset)
}

// Warning outputs a warning message to stderr.
func Warning(msgs ...string) {
	msg := strings.Join(msgs, " ")
	mirror(func(l Logger) { l.Warn(msg) })
	emit(os.Stderr, "warning", Yellow+"Warning:"+Reset+" "+msg+Reset)
}

// Info outputs an informational message to stdout.
func Info(msgs ...string) {
	msg := strings.Join(msgs, " ")
	mirror(func(l Logger) { l.Info(msg) })
	if quietEnabled.Load() {
		return
	}
	emit(os.Stdout, "info", Blue+msg+Reset)
}

// LogInfo outputs an informational message to stderr, keeping stdout for data.
func LogInfo(msgs ...string) {
	msg := strings.Join(msgs, " ")
	mirror(func(l Logger) { l.Info(msg) })
	if quietEnabled.Load() {
		return
	}
	emit(os.Stderr, "log info", Blue+msg+Reset)
}

// Debug outputs a debug message to stderr if debug is enabled.
func Debug(msgs ...string) {
	if !debugEnabled.Load() {
		return
	}
	msg := strings.Join(msgs, " ")
	mirror(func(l Logger) { l.Debug(msg) })
	emit(os.Stderr, "debug", Cyan+"Debug:"+Reset+" "+msg+Reset)
}

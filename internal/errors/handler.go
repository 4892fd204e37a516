// Package errors routes user-facing error, warning and status messages.
package errors

// ErrorHandler receives user-facing messages. The daemon reports failures that it
// recovers from through it without stopping.
type ErrorHandler interface {
	Error(msg string)
	Warning(msg string)
	Info(msg string)
	Success(msg string)
}

// ColorOutput prints messages to the console.
type ColorOutput interface {
	Error(msgs ...string)
	Warning(msgs ...string)
	Info(msgs ...string)
	Success(msgs ...string)
}

// CLIHandler prints messages through a ColorOutput.
type CLIHandler struct {
	colors ColorOutput
}

func NewCLIHandler(colors ColorOutput) *CLIHandler {
	return &CLIHandler{colors: colors}
}

func (h *CLIHandler) Error(msg string)   { h.colors.Error(msg) }
func (h *CLIHandler) Warning(msg string) { h.colors.Warning(msg) }
func (h *CLIHandler) Info(msg string)    { h.colors.Info(msg) }
func (h *CLIHandler) Success(msg string) { h.colors.Success(msg) }

// Tee forwards every message to all handlers in order.
type Tee []ErrorHandler

func (t Tee) Error(msg string) {
	for _, h := range t {
		h.Error(msg)
	}
}

func (t Tee) Warning(msg string) {
	for _, h := range t {
		h.Warning(msg)
	}
}

func (t Tee) Info(msg string) {
	for _, h := range t {
		h.Info(msg)
	}
}

func (t Tee) Success(msg string) {
	for _, h := range t {
		h.Success(msg)
	}
}

package hellovk

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/exp/slog"
)

type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "info"
	}
}

type MessageType int

const (
	MessageGeneral MessageType = iota
	MessageValidation
	MessagePerformance
)

func (t MessageType) String() string {
	switch t {
	case MessageValidation:
		return "validation"
	case MessagePerformance:
		return "performance"
	default:
		return "general"
	}
}

// DiagnosticSink receives messages raised by the validation layers. Receive
// runs inside the driver callback and must not block or panic.
type DiagnosticSink interface {
	Receive(severity Severity, kind MessageType, message string)
}

const (
	colorWarning = "\x1b[33m"
	colorError   = "\x1b[31m"
	colorReset   = "\x1b[0m"
)

// FormatDiagnostic renders one diagnostic line, coloured yellow for warnings
// and red for errors.
func FormatDiagnostic(severity Severity, kind MessageType, message string) string {
	line := "validation layer: " + kind.String() + ": " + message
	switch severity {
	case SeverityWarning:
		return colorWarning + line + colorReset
	case SeverityError:
		return colorError + line + colorReset
	}
	return line
}

// TerminalSink prints each diagnostic as a coloured line.
type TerminalSink struct {
	w io.Writer
}

// NewTerminalSink writes to w, or to stdout when w is nil.
func NewTerminalSink(w io.Writer) *TerminalSink {
	if w == nil {
		w = os.Stdout
	}
	return &TerminalSink{w: w}
}

func (s *TerminalSink) Receive(severity Severity, kind MessageType, message string) {
	fmt.Fprintln(s.w, FormatDiagnostic(severity, kind, message))
}

// LoggerSink forwards diagnostics to a structured logger.
type LoggerSink struct {
	Logger *slog.Logger
}

func (s LoggerSink) Receive(severity Severity, kind MessageType, message string) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	level := slog.LevelInfo
	switch severity {
	case SeverityWarning:
		level = slog.LevelWarn
	case SeverityError:
		level = slog.LevelError
	}
	logger.Log(context.Background(), level, message, "source", "validation layer", "type", kind.String())
}

// debugReportFlags selects warnings, performance warnings and errors.
const debugReportFlags = vk.DebugReportFlags(vk.DebugReportWarningBit |
	vk.DebugReportPerformanceWarningBit | vk.DebugReportErrorBit)

// classifyReport maps debug report flags and the reporting layer onto a
// severity and message type.
func classifyReport(flags vk.DebugReportFlags, layerPrefix string) (Severity, MessageType) {
	severity := SeverityInfo
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		severity = SeverityError
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit|vk.DebugReportPerformanceWarningBit) != 0:
		severity = SeverityWarning
	}

	kind := MessageGeneral
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		kind = MessagePerformance
	case strings.Contains(strings.ToLower(layerPrefix), "validation"):
		kind = MessageValidation
	}
	return severity, kind
}

// The binding keeps the first callback function it marshals for the life of
// the process, so every instance reports through dispatchDebugReport, which
// delivers to the sinks registered at that moment.
var diagnostics struct {
	sync.RWMutex
	next  int
	sinks map[int]DiagnosticSink
}

// registerSink adds sink to the receivers of debug reports until the returned
// function is called.
func registerSink(sink DiagnosticSink) (unregister func()) {
	diagnostics.Lock()
	defer diagnostics.Unlock()
	if diagnostics.sinks == nil {
		diagnostics.sinks = make(map[int]DiagnosticSink)
	}
	id := diagnostics.next
	diagnostics.next++
	diagnostics.sinks[id] = sink
	return func() {
		diagnostics.Lock()
		delete(diagnostics.sinks, id)
		diagnostics.Unlock()
	}
}

func registeredSinks() int {
	diagnostics.RLock()
	defer diagnostics.RUnlock()
	return len(diagnostics.sinks)
}

func dispatchDebugReport(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType,
	object uint64, location uint, messageCode int32, pLayerPrefix string,
	pMessage string, pUserData unsafe.Pointer) vk.Bool32 {

	severity, kind := classifyReport(flags, pLayerPrefix)
	diagnostics.RLock()
	defer diagnostics.RUnlock()
	for _, sink := range diagnostics.sinks {
		sink.Receive(severity, kind, pMessage)
	}
	return vk.Bool32(vk.False)
}

// debugReportCallback builds the create-info used both chained into instance
// creation and for the standalone callback object.
func debugReportCallback() *vk.DebugReportCallbackCreateInfo {
	return &vk.DebugReportCallbackCreateInfo{
		SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags:       debugReportFlags,
		PfnCallback: dispatchDebugReport,
	}
}

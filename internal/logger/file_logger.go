package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Logger represents a file logger for risk gate activity
type Logger struct {
	component string
	logFile   *os.File
	logger    *log.Logger
	mu        sync.Mutex
	logDir    string
}

// LogLevel represents different types of log entries
type LogLevel string

const (
	LogLevelInfo     LogLevel = "INFO"
	LogLevelWarning  LogLevel = "WARN"
	LogLevelError    LogLevel = "ERROR"
	LogLevelCritical LogLevel = "CRITICAL"
	LogLevelDecision LogLevel = "DECISION"
	LogLevelStatus   LogLevel = "STATUS"
)

// NewLogger creates a new file logger for the specified component
func NewLogger(logDir, component string) (*Logger, error) {
	if logDir == "" {
		logDir = "logs"
	}
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02")
	filename := fmt.Sprintf("%s_%s.log", component, timestamp)
	logPath := filepath.Join(logDir, filename)

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	l := &Logger{
		component: component,
		logFile:   file,
		logger:    log.New(file, "", 0),
		logDir:    logDir,
	}

	l.writeSessionHeader()

	return l, nil
}

// NewDiscardLogger returns a logger that writes nowhere. Used by tests and by
// components constructed before logging is configured.
func NewDiscardLogger() *Logger {
	return &Logger{
		component: "discard",
		logger:    log.New(io.Discard, "", 0),
	}
}

// writeSessionHeader writes a session start header to the log
func (l *Logger) writeSessionHeader() {
	l.mu.Lock()
	defer l.mu.Unlock()

	header := fmt.Sprintf(`
================================================================================
🛡️  RISK GATE SESSION STARTED
================================================================================
Component: %s
Started: %s
================================================================================
`, l.component, time.Now().Format("2006-01-02 15:04:05"))

	l.logger.Print(header)
}

// Log writes a formatted log entry with the specified level
func (l *Logger) Log(level LogLevel, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	message := fmt.Sprintf(format, args...)
	l.logger.Println(fmt.Sprintf("[%s] [%s] %s", timestamp, level, message))
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.Log(LogLevelInfo, format, args...)
}

// Warning logs a warning message
func (l *Logger) Warning(format string, args ...interface{}) {
	l.Log(LogLevelWarning, format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.Log(LogLevelError, format, args...)
}

// Critical logs a critical failure that must be visible even though it does
// not stop the process (e.g. persistence failure while the kill switch fires)
func (l *Logger) Critical(format string, args ...interface{}) {
	l.Log(LogLevelCritical, format, args...)
}

// Decision logs an authorization decision
func (l *Logger) Decision(format string, args ...interface{}) {
	l.Log(LogLevelDecision, format, args...)
}

// Status logs component status information
func (l *Logger) Status(format string, args ...interface{}) {
	l.Log(LogLevelStatus, format, args...)
}

// LogError logs error with context
func (l *Logger) LogError(context string, err error) {
	l.Error("%s: %v", context, err)
}

// LogWarning logs warning with context
func (l *Logger) LogWarning(context string, message string, args ...interface{}) {
	fullMessage := fmt.Sprintf(context+": "+message, args...)
	l.Warning("%s", fullMessage)
}

// LogDecision logs a gate decision with its outcome and reason
func (l *Logger) LogDecision(userID, operation string, allowed bool, reason string) {
	outcome := "APPROVED"
	if !allowed {
		outcome = "REJECTED"
	}
	if reason == "" {
		l.Decision("%s %s for user %s", operation, outcome, userID)
		return
	}
	l.Decision("%s %s for user %s: %s", operation, outcome, userID, reason)
}

// LogTransition logs a state machine transition
func (l *Logger) LogTransition(machine, from, to, reason string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")

	transitionLog := fmt.Sprintf(`
[%s] [STATUS] ==================== %s TRANSITION ====================
🔀 %s -> %s
📝 Reason: %s
==============================================================`,
		timestamp, machine, from, to, reason)

	l.logger.Println(transitionLog)
}

// Close closes the log file
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.logFile != nil {
		timestamp := time.Now().Format("2006-01-02 15:04:05")
		footer := fmt.Sprintf(`
================================================================================
🛑 RISK GATE SESSION ENDED
================================================================================
Ended: %s
================================================================================

`, timestamp)
		l.logger.Print(footer)

		return l.logFile.Close()
	}
	return nil
}

// GetLogPath returns the current log file path
func (l *Logger) GetLogPath() string {
	timestamp := time.Now().Format("2006-01-02")
	filename := fmt.Sprintf("%s_%s.log", l.component, timestamp)
	return filepath.Join(l.logDir, filename)
}

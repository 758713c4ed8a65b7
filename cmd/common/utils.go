package common

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Logger provides structured console output for CLI applications
type Logger struct {
	ShowEmojis bool
	SilentMode bool
}

// NewLogger creates a new CLI logger with default settings
func NewLogger() *Logger {
	return &Logger{ShowEmojis: true}
}

// Header prints a formatted header
func (l *Logger) Header(title string) {
	if l.SilentMode {
		return
	}

	emoji := "🛡️"
	if !l.ShowEmojis {
		emoji = "***"
	}

	fmt.Printf("\n%s %s\n", emoji, strings.ToUpper(title))
	fmt.Printf("%s\n", strings.Repeat("=", len(title)+5))
}

// Section prints a formatted section header
func (l *Logger) Section(title string) {
	if l.SilentMode {
		return
	}

	emoji := "📋"
	if !l.ShowEmojis {
		emoji = "---"
	}

	fmt.Printf("\n%s %s\n", emoji, title)
	fmt.Printf("%s\n", strings.Repeat("-", len(title)+5))
}

// Info prints an info message
func (l *Logger) Info(format string, args ...interface{}) {
	if l.SilentMode {
		return
	}

	emoji := "ℹ️"
	if !l.ShowEmojis {
		emoji = "[INFO]"
	}

	fmt.Printf("%s  %s\n", emoji, fmt.Sprintf(format, args...))
}

// Error prints an error message
func (l *Logger) Error(format string, args ...interface{}) {
	emoji := "❌"
	if !l.ShowEmojis {
		emoji = "[ERROR]"
	}

	fmt.Printf("%s %s\n", emoji, fmt.Sprintf(format, args...))
}

// Success prints a success message
func (l *Logger) Success(format string, args ...interface{}) {
	if l.SilentMode {
		return
	}

	emoji := "✅"
	if !l.ShowEmojis {
		emoji = "[SUCCESS]"
	}

	fmt.Printf("%s %s\n", emoji, fmt.Sprintf(format, args...))
}

// Warn prints a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	emoji := "⚠️"
	if !l.ShowEmojis {
		emoji = "[WARN]"
	}

	fmt.Printf("%s  %s\n", emoji, fmt.Sprintf(format, args...))
}

// LoadEnvFile loads environment variables from a .env file if present.
// A missing file is not an error; exported variables win over file values.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load(path)
}

// GetEnvWithDefault returns an environment variable or a default value
func GetEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// DefaultLogger is the package-level logger used by the convenience functions
var DefaultLogger = NewLogger()

func Header(title string)                      { DefaultLogger.Header(title) }
func Section(title string)                     { DefaultLogger.Section(title) }
func Info(format string, args ...interface{})  { DefaultLogger.Info(format, args...) }
func Error(format string, args ...interface{}) { DefaultLogger.Error(format, args...) }
func Success(format string, args ...interface{}) {
	DefaultLogger.Success(format, args...)
}
func Warn(format string, args ...interface{}) { DefaultLogger.Warn(format, args...) }

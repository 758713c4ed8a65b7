package errors

import (
	"fmt"
	"sync"
	"time"
)

// ErrorCategory represents different types of errors raised by the risk gate
type ErrorCategory string

const (
	// Errors that block the requested operation
	ErrorCategoryStateTransition ErrorCategory = "STATE_TRANSITION"
	ErrorCategoryValidation      ErrorCategory = "VALIDATION"
	ErrorCategoryKillSwitch      ErrorCategory = "KILL_SWITCH"
	ErrorCategoryConfiguration   ErrorCategory = "CONFIG"
	ErrorCategoryLimit           ErrorCategory = "LIMIT"

	// Errors that are logged but never block a trading decision
	ErrorCategoryPersistence ErrorCategory = "PERSISTENCE"
	ErrorCategoryAudit       ErrorCategory = "AUDIT"
)

// RiskError represents a categorized error with context
type RiskError struct {
	Category   ErrorCategory
	Component  string
	Operation  string
	Message    string
	Underlying error
	Context    map[string]interface{}
}

// Error implements the error interface
func (e *RiskError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("[%s:%s] %s: %s: %v", e.Category, e.Component, e.Operation, e.Message, e.Underlying)
	}
	return fmt.Sprintf("[%s:%s] %s: %s", e.Category, e.Component, e.Operation, e.Message)
}

// Unwrap returns the underlying error for error unwrapping
func (e *RiskError) Unwrap() error {
	return e.Underlying
}

// Blocking reports whether this error must surface to the caller as a
// rejected operation. Persistence and audit failures degrade to warnings;
// in-memory state stays authoritative for the life of the process.
func (e *RiskError) Blocking() bool {
	switch e.Category {
	case ErrorCategoryPersistence, ErrorCategoryAudit:
		return false
	default:
		return true
	}
}

// WithContext adds context information to the error
func (e *RiskError) WithContext(key string, value interface{}) *RiskError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewRiskError creates a new categorized risk error
func NewRiskError(category ErrorCategory, component, operation, message string) *RiskError {
	return &RiskError{
		Category:  category,
		Component: component,
		Operation: operation,
		Message:   message,
		Context:   make(map[string]interface{}),
	}
}

// WrapError wraps an existing error with risk error context
func WrapError(err error, category ErrorCategory, component, operation string) *RiskError {
	if err == nil {
		return nil
	}

	return &RiskError{
		Category:   category,
		Component:  component,
		Operation:  operation,
		Message:    "operation failed",
		Underlying: err,
		Context:    make(map[string]interface{}),
	}
}

// Common error constructors

// NewStateTransitionError reports an attempt to follow an edge that is not in
// the transition graph. The machine's state is unchanged when this is returned.
func NewStateTransitionError(component, from, to string) *RiskError {
	return NewRiskError(ErrorCategoryStateTransition, component, "transition",
		fmt.Sprintf("illegal transition %s -> %s", from, to)).
		WithContext("from", from).
		WithContext("to", to)
}

func NewValidationError(component, operation, message string) *RiskError {
	return NewRiskError(ErrorCategoryValidation, component, operation, message)
}

func NewConfigurationError(component, operation, message string) *RiskError {
	return NewRiskError(ErrorCategoryConfiguration, component, operation, message)
}

func NewKillSwitchError(component, operation string) *RiskError {
	return NewRiskError(ErrorCategoryKillSwitch, component, operation, "kill switch is active")
}

func NewPersistenceError(component, operation string, err error) *RiskError {
	return WrapError(err, ErrorCategoryPersistence, component, operation)
}

// ErrorStats tracks per-user error counts for the auto-disable path
type ErrorStats struct {
	mu               sync.Mutex
	totalErrors      int
	errorsByCategory map[ErrorCategory]int
	errorsByUser     map[string]int
	recentErrors     []*RiskError
	maxRecentErrors  int
	lastError        time.Time
}

// NewErrorStats creates a new error statistics tracker
func NewErrorStats(maxRecentErrors int) *ErrorStats {
	return &ErrorStats{
		errorsByCategory: make(map[ErrorCategory]int),
		errorsByUser:     make(map[string]int),
		recentErrors:     make([]*RiskError, 0, maxRecentErrors),
		maxRecentErrors:  maxRecentErrors,
	}
}

// RecordError records an error attributed to a user and returns that user's
// running count.
func (es *ErrorStats) RecordError(userID string, err *RiskError) int {
	es.mu.Lock()
	defer es.mu.Unlock()

	es.totalErrors++
	es.errorsByCategory[err.Category]++
	es.errorsByUser[userID]++
	es.lastError = time.Now()

	es.recentErrors = append(es.recentErrors, err)
	if len(es.recentErrors) > es.maxRecentErrors {
		es.recentErrors = es.recentErrors[1:]
	}

	return es.errorsByUser[userID]
}

// UserErrorCount returns the running error count for a user.
func (es *ErrorStats) UserErrorCount(userID string) int {
	es.mu.Lock()
	defer es.mu.Unlock()
	return es.errorsByUser[userID]
}

// ResetUser clears the running error count for a user, typically after a
// manual re-enable.
func (es *ErrorStats) ResetUser(userID string) {
	es.mu.Lock()
	defer es.mu.Unlock()
	delete(es.errorsByUser, userID)
}

// TotalErrors returns the total number of recorded errors.
func (es *ErrorStats) TotalErrors() int {
	es.mu.Lock()
	defer es.mu.Unlock()
	return es.totalErrors
}

// CategoryCount returns the count of errors for a specific category.
func (es *ErrorStats) CategoryCount(category ErrorCategory) int {
	es.mu.Lock()
	defer es.mu.Unlock()
	return es.errorsByCategory[category]
}

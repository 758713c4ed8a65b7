package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestRiskError_ErrorString tests the formatted error message with and
// without an underlying error
func TestRiskError_ErrorString(t *testing.T) {
	err := NewValidationError("RiskGate", "validate", "position too large")
	assert.Contains(t, err.Error(), "VALIDATION")
	assert.Contains(t, err.Error(), "position too large")

	wrapped := WrapError(fmt.Errorf("disk full"), ErrorCategoryPersistence, "StateStore", "save")
	assert.Contains(t, wrapped.Error(), "disk full")
}

// TestRiskError_Unwrap tests error chain compatibility
func TestRiskError_Unwrap(t *testing.T) {
	underlying := fmt.Errorf("disk full")
	wrapped := WrapError(underlying, ErrorCategoryPersistence, "StateStore", "save")
	assert.Equal(t, underlying, wrapped.Unwrap())
}

// TestRiskError_Blocking tests that persistence and audit failures degrade
// while everything else blocks
func TestRiskError_Blocking(t *testing.T) {
	blocking := []ErrorCategory{
		ErrorCategoryStateTransition,
		ErrorCategoryValidation,
		ErrorCategoryKillSwitch,
		ErrorCategoryConfiguration,
		ErrorCategoryLimit,
	}
	for _, category := range blocking {
		err := NewRiskError(category, "c", "op", "m")
		assert.True(t, err.Blocking(), "category %s must block", category)
	}

	for _, category := range []ErrorCategory{ErrorCategoryPersistence, ErrorCategoryAudit} {
		err := NewRiskError(category, "c", "op", "m")
		assert.False(t, err.Blocking(), "category %s must degrade", category)
	}
}

// TestWrapError_NilPassthrough tests that wrapping nil stays nil
func TestWrapError_NilPassthrough(t *testing.T) {
	assert.Nil(t, WrapError(nil, ErrorCategoryPersistence, "c", "op"))
}

// TestErrorStats_PerUserCounts tests per-user accumulation and reset
func TestErrorStats_PerUserCounts(t *testing.T) {
	stats := NewErrorStats(10)

	err := NewRiskError(ErrorCategoryLimit, "RiskGate", "api_error", "timeout")
	assert.Equal(t, 1, stats.RecordError("alice", err))
	assert.Equal(t, 2, stats.RecordError("alice", err))
	assert.Equal(t, 1, stats.RecordError("bob", err))

	assert.Equal(t, 2, stats.UserErrorCount("alice"))
	assert.Equal(t, 3, stats.TotalErrors())
	assert.Equal(t, 3, stats.CategoryCount(ErrorCategoryLimit))

	stats.ResetUser("alice")
	assert.Zero(t, stats.UserErrorCount("alice"))
	assert.Equal(t, 1, stats.UserErrorCount("bob"))
}

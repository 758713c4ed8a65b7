package audit

import (
	"time"

	"github.com/ducminhle1904/trading-risk-gate/internal/logger"
	"github.com/ducminhle1904/trading-risk-gate/internal/state"
)

// PositionValidationRecord is the audit trail entry for a single position
// size validation. It is purely observational and never consulted when
// making a decision.
type PositionValidationRecord struct {
	UserID          string    `json:"user_id"`
	Symbol          string    `json:"symbol"`
	RequestedUSD    float64   `json:"requested_usd"`
	BalanceUSD      float64   `json:"balance_usd"`
	PositionPct     float64   `json:"position_pct"`
	Approved        bool      `json:"approved"`
	RejectionReason string    `json:"rejection_reason,omitempty"`
	EnforcedLimit   string    `json:"enforced_limit,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// TransitionRecord is the audit trail entry for a state machine or regime
// transition.
type TransitionRecord struct {
	Machine   string    `json:"machine"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// Sink receives audit records for tamper-evident storage. Implementations
// are fire-and-forget: a failing sink must never block a trading decision.
type Sink interface {
	RecordValidation(record PositionValidationRecord)
	RecordTransition(record TransitionRecord)
}

// NopSink discards every record. Used when no audit collaborator is wired.
type NopSink struct{}

func (NopSink) RecordValidation(PositionValidationRecord) {}
func (NopSink) RecordTransition(TransitionRecord)         {}

// FileSink appends audit records to JSONL logs in the state directory.
type FileSink struct {
	store  *state.Store
	logger *logger.Logger
}

// NewFileSink creates a sink that appends to <stateDir>/validation_audit.jsonl
// and <stateDir>/transition_audit.jsonl.
func NewFileSink(store *state.Store, log *logger.Logger) *FileSink {
	return &FileSink{store: store, logger: log}
}

// RecordValidation appends a validation record. Failures degrade to warnings.
func (s *FileSink) RecordValidation(record PositionValidationRecord) {
	if err := s.store.AppendLog("validation_audit", record); err != nil {
		s.logger.LogWarning("Audit", "failed to append validation record: %v", err)
	}
}

// RecordTransition appends a transition record. Failures degrade to warnings.
func (s *FileSink) RecordTransition(record TransitionRecord) {
	if err := s.store.AppendLog("transition_audit", record); err != nil {
		s.logger.LogWarning("Audit", "failed to append transition record: %v", err)
	}
}

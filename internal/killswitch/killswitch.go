package killswitch

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ducminhle1904/trading-risk-gate/internal/errors"
	"github.com/ducminhle1904/trading-risk-gate/internal/logger"
	"github.com/ducminhle1904/trading-risk-gate/internal/state"
)

// SentinelFileName is the marker file whose mere existence halts trading.
// An operator can activate the switch from outside the process by touching
// this file in the state directory.
const SentinelFileName = "KILL_SWITCH_ACTIVE"

const stateFileName = "kill_switch"

const maxHistoryEntries = 100

// Record is one entry in the activation/deactivation history
type Record struct {
	Action    string    `json:"action"`
	Reason    string    `json:"reason"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

// persistedState is the JSON shape of the kill switch state file
type persistedState struct {
	IsActive    bool      `json:"is_active"`
	History     []Record  `json:"history"`
	LastUpdated time.Time `json:"last_updated"`
}

// TradingHalter is the hook into the trading state machine. Activation
// drives it to EMERGENCY_STOP.
type TradingHalter interface {
	EmergencyStop(reason string) error
}

// Switch is the out-of-band emergency halt. It is dual-persisted: a JSON
// state file mirrors the in-memory flag, and a sentinel marker file halts
// trading by its existence alone, so any external process can trip it.
type Switch struct {
	mu      sync.Mutex
	active  bool
	history []Record

	store        *state.Store
	sentinelPath string
	logger       *logger.Logger
	halter       TradingHalter
}

// New creates a kill switch, restoring persisted state. The halter may be
// nil when no trading state machine is wired (e.g. the standalone CLI).
func New(store *state.Store, log *logger.Logger, halter TradingHalter) *Switch {
	s := &Switch{
		history:      make([]Record, 0, maxHistoryEntries),
		store:        store,
		sentinelPath: filepath.Join(store.Dir(), SentinelFileName),
		logger:       log,
		halter:       halter,
	}

	var persisted persistedState
	if err := store.Load(stateFileName, &persisted); err == nil {
		s.active = persisted.IsActive
		s.history = persisted.History
		if len(s.history) > maxHistoryEntries {
			s.history = s.history[len(s.history)-maxHistoryEntries:]
		}
	} else if err != os.ErrNotExist {
		// Fail closed: if the state file cannot be read, treat the switch
		// as active until a human sorts it out.
		s.active = true
		log.Critical("Failed to load kill switch state, failing closed: %v", err)
	}

	if s.sentinelExists() && !s.active {
		log.Warning("Kill switch sentinel file present on startup - switch is active")
	}

	return s
}

// Activate trips the kill switch. Idempotent: a second activation warns and
// appends no duplicate history entry. Disk failures never prevent the
// in-memory halt; they are logged as critical only.
func (s *Switch) Activate(reason, source string) {
	s.mu.Lock()

	if s.active || s.sentinelExists() {
		s.mu.Unlock()
		s.logger.LogWarning("Kill Switch", "already active, ignoring activation from %s (%s)", source, reason)
		return
	}

	s.active = true
	s.appendLocked(Record{
		Action:    "ACTIVATED",
		Reason:    reason,
		Source:    source,
		Timestamp: time.Now().UTC(),
	})

	if err := s.persistLocked(); err != nil {
		s.logger.Critical("Kill switch state write failed, in-memory halt stands: %v", err)
	}
	if err := s.writeSentinelLocked(reason, source); err != nil {
		s.logger.Critical("Kill switch sentinel write failed, in-memory halt stands: %v", err)
	}

	halter := s.halter
	s.mu.Unlock()

	s.logger.Critical("KILL SWITCH ACTIVATED by %s: %s", source, reason)

	if halter != nil {
		if err := halter.EmergencyStop(fmt.Sprintf("kill switch: %s", reason)); err != nil {
			s.logger.LogError("Kill switch emergency stop", err)
		}
	}
}

// Deactivate clears the kill switch. Idempotent: deactivating an inactive
// switch is a no-op with no history entry.
func (s *Switch) Deactivate(reason string) {
	s.mu.Lock()

	if !s.active && !s.sentinelExists() {
		s.mu.Unlock()
		s.logger.LogWarning("Kill Switch", "not active, ignoring deactivation (%s)", reason)
		return
	}

	s.active = false
	if err := os.Remove(s.sentinelPath); err != nil && !os.IsNotExist(err) {
		s.logger.Critical("Failed to remove kill switch sentinel: %v", err)
	}

	s.appendLocked(Record{
		Action:    "DEACTIVATED",
		Reason:    reason,
		Source:    "manual",
		Timestamp: time.Now().UTC(),
	})

	if err := s.persistLocked(); err != nil {
		s.logger.Critical("Kill switch state write failed: %v", err)
	}

	s.mu.Unlock()

	s.logger.Info("Kill switch deactivated: %s", reason)
}

// IsActive reports whether the switch is tripped. The sentinel file's
// existence is re-checked on every call so an externally created file is
// detected without a restart. Fail-closed OR, never fail-open.
func (s *Switch) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active || s.sentinelExists()
}

// AssertNotActive returns a KillSwitchError when the switch is active. It
// guards every order-placement call site.
func (s *Switch) AssertNotActive(operation string) error {
	if s.IsActive() {
		return errors.NewKillSwitchError("KillSwitch", operation)
	}
	return nil
}

// History returns a copy of the activation history
func (s *Switch) History() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := make([]Record, len(s.history))
	copy(history, s.history)
	return history
}

// SentinelPath returns the on-disk path of the sentinel marker file
func (s *Switch) SentinelPath() string {
	return s.sentinelPath
}

func (s *Switch) sentinelExists() bool {
	_, err := os.Stat(s.sentinelPath)
	return err == nil
}

func (s *Switch) appendLocked(record Record) {
	s.history = append(s.history, record)
	if len(s.history) > maxHistoryEntries {
		s.history = s.history[1:]
	}
}

func (s *Switch) persistLocked() error {
	return s.store.Save(stateFileName, persistedState{
		IsActive:    s.active,
		History:     s.history,
		LastUpdated: time.Now().UTC(),
	})
}

func (s *Switch) writeSentinelLocked(reason, source string) error {
	content := fmt.Sprintf(`KILL SWITCH ACTIVE
Activated: %s
Source: %s
Reason: %s

Trading is halted while this file exists.
Delete this file (or run the killswitch CLI) to deactivate.
`, time.Now().UTC().Format(time.RFC3339), source, reason)

	return os.WriteFile(s.sentinelPath, []byte(content), 0644)
}

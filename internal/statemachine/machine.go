package statemachine

import (
	"os"
	"sync"
	"time"

	"github.com/ducminhle1904/trading-risk-gate/internal/audit"
	"github.com/ducminhle1904/trading-risk-gate/internal/errors"
	"github.com/ducminhle1904/trading-risk-gate/internal/logger"
	"github.com/ducminhle1904/trading-risk-gate/internal/state"
)

// TradingMode represents whether the process is allowed to talk to a broker
type TradingMode int

const (
	ModeOff TradingMode = iota
	ModeDryRun
	ModeLivePendingConfirmation
	ModeLiveActive
	ModeEmergencyStop
)

func (m TradingMode) String() string {
	switch m {
	case ModeOff:
		return "OFF"
	case ModeDryRun:
		return "DRY_RUN"
	case ModeLivePendingConfirmation:
		return "LIVE_PENDING_CONFIRMATION"
	case ModeLiveActive:
		return "LIVE_ACTIVE"
	case ModeEmergencyStop:
		return "EMERGENCY_STOP"
	default:
		return "UNKNOWN"
	}
}

// ParseMode converts a persisted mode string back to a TradingMode. Unknown
// strings map to OFF, the safest default.
func ParseMode(s string) TradingMode {
	switch s {
	case "DRY_RUN":
		return ModeDryRun
	case "LIVE_PENDING_CONFIRMATION":
		return ModeLivePendingConfirmation
	case "LIVE_ACTIVE":
		return ModeLiveActive
	case "EMERGENCY_STOP":
		return ModeEmergencyStop
	default:
		return ModeOff
	}
}

// transitions is the fixed directed graph of legal mode changes. Only listed
// edges are legal; everything else is a StateTransitionError.
var transitions = map[TradingMode][]TradingMode{
	ModeOff:                     {ModeDryRun, ModeLivePendingConfirmation, ModeEmergencyStop},
	ModeDryRun:                  {ModeOff, ModeLivePendingConfirmation, ModeEmergencyStop},
	ModeLivePendingConfirmation: {ModeOff, ModeLiveActive, ModeEmergencyStop},
	ModeLiveActive:              {ModeOff, ModeDryRun, ModeEmergencyStop},
	ModeEmergencyStop:           {ModeOff},
}

// recoveryPolicy maps the persisted mode to the mode the process starts in.
// Live trading never auto-resumes after a restart; an emergency stop is
// sticky until a human clears it. Paper trading is safe to resume.
var recoveryPolicy = map[TradingMode]TradingMode{
	ModeOff:                     ModeOff,
	ModeDryRun:                  ModeDryRun,
	ModeLivePendingConfirmation: ModeOff,
	ModeLiveActive:              ModeOff,
	ModeEmergencyStop:           ModeEmergencyStop,
}

// maxHistoryEntries caps the in-memory transition history
const maxHistoryEntries = 100

const stateFileName = "trading_mode"

// TransitionRecord is one entry in the append-only transition history
type TransitionRecord struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// persistedState is the JSON shape of the state file
type persistedState struct {
	CurrentState string             `json:"current_state"`
	History      []TransitionRecord `json:"history"`
	LastUpdated  time.Time          `json:"last_updated"`
}

// Callback is invoked synchronously when the machine enters its mode
type Callback func(mode TradingMode)

// Machine gates every broker network call behind an explicit, audited mode.
type Machine struct {
	mu        sync.RWMutex
	mode      TradingMode
	history   []TransitionRecord
	callbacks map[TradingMode][]Callback

	store  *state.Store
	logger *logger.Logger
	audit  audit.Sink
}

// New creates a trading state machine, loading persisted state and applying
// the recovery policy.
func New(store *state.Store, log *logger.Logger, sink audit.Sink) *Machine {
	if sink == nil {
		sink = audit.NopSink{}
	}

	m := &Machine{
		mode:      ModeOff,
		history:   make([]TransitionRecord, 0, maxHistoryEntries),
		callbacks: make(map[TradingMode][]Callback),
		store:     store,
		logger:    log,
		audit:     sink,
	}

	m.loadPersistedState()

	return m
}

func (m *Machine) loadPersistedState() {
	var persisted persistedState
	err := m.store.Load(stateFileName, &persisted)
	if err != nil {
		if err == os.ErrNotExist {
			m.logger.Info("No persisted trading mode found, starting OFF")
			return
		}
		m.logger.Critical("Failed to load trading mode state, starting OFF: %v", err)
		return
	}

	persistedMode := ParseMode(persisted.CurrentState)
	recovered := recoveryPolicy[persistedMode]

	if recovered != persistedMode {
		m.logger.Warning("Persisted trading mode %s downgraded to %s on restart - live trading never auto-resumes",
			persistedMode, recovered)
	} else {
		m.logger.Info("Trading mode restored: %s", recovered)
	}

	m.mode = recovered
	m.history = persisted.History
	if len(m.history) > maxHistoryEntries {
		m.history = m.history[len(m.history)-maxHistoryEntries:]
	}
}

// TransitionTo moves the machine along a declared edge. Illegal edges return
// a StateTransitionError and leave the mode unchanged with no partial write.
func (m *Machine) TransitionTo(target TradingMode, reason string) error {
	m.mu.Lock()

	if !m.isLegalTransition(m.mode, target) {
		from := m.mode
		m.mu.Unlock()
		m.logger.Error("Illegal transition attempted: %s -> %s (%s)", from, target, reason)
		return errors.NewStateTransitionError("TradingStateMachine", from.String(), target.String())
	}

	from := m.mode
	record := TransitionRecord{
		From:      from.String(),
		To:        target.String(),
		Reason:    reason,
		Timestamp: time.Now().UTC(),
	}

	m.mode = target
	m.history = append(m.history, record)
	if len(m.history) > maxHistoryEntries {
		m.history = m.history[1:]
	}

	// Persist while still holding the lock so no other goroutine observes
	// the new mode before it hits disk. A write failure is logged as
	// critical; in-memory state stays authoritative.
	if err := m.persistLocked(); err != nil {
		m.logger.Critical("Failed to persist trading mode transition %s -> %s: %v", from, target, err)
	}

	callbacks := append([]Callback(nil), m.callbacks[target]...)
	m.mu.Unlock()

	m.logger.LogTransition("TRADING MODE", from.String(), target.String(), reason)
	m.audit.RecordTransition(audit.TransitionRecord{
		Machine:   "trading_mode",
		From:      from.String(),
		To:        target.String(),
		Reason:    reason,
		Timestamp: record.Timestamp,
	})

	for _, cb := range callbacks {
		cb(target)
	}

	return nil
}

func (m *Machine) isLegalTransition(from, to TradingMode) bool {
	for _, legal := range transitions[from] {
		if legal == to {
			return true
		}
	}
	return false
}

func (m *Machine) persistLocked() error {
	persisted := persistedState{
		CurrentState: m.mode.String(),
		History:      m.history,
		LastUpdated:  time.Now().UTC(),
	}
	return m.store.Save(stateFileName, persisted)
}

// EmergencyStop drives the machine into EMERGENCY_STOP. Every mode has a
// legal edge to EMERGENCY_STOP except EMERGENCY_STOP itself, which is
// treated as already stopped.
func (m *Machine) EmergencyStop(reason string) error {
	if m.Mode() == ModeEmergencyStop {
		return nil
	}
	return m.TransitionTo(ModeEmergencyStop, reason)
}

// Mode returns the current trading mode
func (m *Machine) Mode() TradingMode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mode
}

// CanMakeBrokerCalls reports whether broker network calls are permitted.
// True iff the mode is LIVE_ACTIVE.
func (m *Machine) CanMakeBrokerCalls() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mode == ModeLiveActive
}

// IsTradingAllowed reports whether trading (simulated or live) is permitted.
// True iff the mode is DRY_RUN or LIVE_ACTIVE.
func (m *Machine) IsTradingAllowed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mode == ModeDryRun || m.mode == ModeLiveActive
}

// RegisterCallback registers fn to be invoked synchronously whenever the
// machine enters mode.
func (m *Machine) RegisterCallback(mode TradingMode, fn Callback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks[mode] = append(m.callbacks[mode], fn)
}

// History returns a copy of the transition history
func (m *Machine) History() []TransitionRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	history := make([]TransitionRecord, len(m.history))
	copy(history, m.history)
	return history
}

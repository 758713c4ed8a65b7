package regime

import (
	"os"
	"sync"
	"time"

	"github.com/ducminhle1904/trading-risk-gate/internal/audit"
	"github.com/ducminhle1904/trading-risk-gate/internal/errors"
	"github.com/ducminhle1904/trading-risk-gate/internal/logger"
	"github.com/ducminhle1904/trading-risk-gate/internal/state"
)

const (
	// minRegimeDuration is the number of evaluation periods the current
	// regime must have persisted before a computed change is applied.
	minRegimeDuration = 3

	// hysteresisConfidencePenalty scales confidence down when a computed
	// change is suppressed by the dwell requirement.
	hysteresisConfidencePenalty = 0.7

	maxHistoryEntries = 100

	stateFileName = "portfolio_regime"

	softLimitRatio = 0.75
)

// persistedState is the JSON shape of the regime state file
type persistedState struct {
	CurrentState     string           `json:"current_state"`
	History          []RegimeChange   `json:"history"`
	MarketConditions MarketConditions `json:"market_conditions"`
	LastUpdated      time.Time        `json:"last_updated"`
}

// Machine classifies portfolio and market health into a risk regime and
// derives the rule bundle every other risk check consults.
type Machine struct {
	mu             sync.RWMutex
	current        RegimeState
	regimeDuration int
	history        []RegimeChange
	lastConditions MarketConditions

	store     *state.Store
	logger    *logger.Logger
	audit     audit.Sink
	limitSink SectorLimitSink
}

// New creates a portfolio regime machine, loading persisted state and
// applying the recovery policy: a persisted EMERGENCY_HALT survives restart,
// everything else resets to NORMAL.
func New(store *state.Store, log *logger.Logger, sink audit.Sink, limitSink SectorLimitSink) *Machine {
	if sink == nil {
		sink = audit.NopSink{}
	}

	m := &Machine{
		current: RegimeNormal,
		// A freshly started machine counts as settled so the first real
		// evaluation is not dampened by the dwell requirement.
		regimeDuration: minRegimeDuration,
		history:        make([]RegimeChange, 0, maxHistoryEntries),
		store:          store,
		logger:         log,
		audit:          sink,
		limitSink:      limitSink,
	}

	m.loadPersistedState()
	m.pushSectorLimits()

	return m
}

func (m *Machine) loadPersistedState() {
	var persisted persistedState
	err := m.store.Load(stateFileName, &persisted)
	if err != nil {
		if err == os.ErrNotExist {
			m.logger.Info("No persisted regime found, starting NORMAL")
			return
		}
		m.logger.Critical("Failed to load regime state, starting NORMAL: %v", err)
		return
	}

	persistedRegime := ParseRegime(persisted.CurrentState)
	if persistedRegime == RegimeEmergencyHalt {
		m.current = RegimeEmergencyHalt
		m.logger.Warning("Persisted regime EMERGENCY_HALT survives restart - manual clear required")
	} else if persistedRegime != RegimeNormal {
		m.logger.Warning("Persisted regime %s reset to NORMAL on restart", persistedRegime)
	} else {
		m.logger.Info("Regime restored: NORMAL")
	}

	m.history = persisted.History
	if len(m.history) > maxHistoryEntries {
		m.history = m.history[len(m.history)-maxHistoryEntries:]
	}
	m.lastConditions = persisted.MarketConditions
}

// Evaluate feeds a conditions snapshot through the severity ladder and
// returns the resulting regime and the confidence in it. A computed change
// is applied only if the current regime has persisted long enough;
// otherwise the old regime is kept and confidence is scaled down.
func (m *Machine) Evaluate(conditions MarketConditions) (RegimeState, float64) {
	m.mu.Lock()

	m.lastConditions = conditions

	// EMERGENCY_HALT exits only through a manual clear.
	if m.current == RegimeEmergencyHalt {
		m.persistLocked()
		m.mu.Unlock()
		return RegimeEmergencyHalt, 1.0
	}

	desired, confidence, reason := classify(conditions, m.current)

	if desired == m.current {
		m.regimeDuration++
		m.persistLocked()
		current := m.current
		m.mu.Unlock()
		return current, confidence
	}

	if m.regimeDuration < minRegimeDuration {
		m.regimeDuration++
		m.persistLocked()
		current := m.current
		m.mu.Unlock()
		m.logger.Info("Regime change %s -> %s suppressed by hysteresis (%d/%d periods)",
			current, desired, m.regimeDuration-1, minRegimeDuration)
		return current, confidence * hysteresisConfidencePenalty
	}

	old := m.current
	change := RegimeChange{
		Timestamp:  time.Now().UTC(),
		OldRegime:  old,
		NewRegime:  desired,
		Confidence: confidence,
		Reason:     reason,
	}

	m.current = desired
	m.regimeDuration = 1
	m.history = append(m.history, change)
	if len(m.history) > maxHistoryEntries {
		m.history = m.history[1:]
	}

	m.pushSectorLimitsLocked()
	m.persistLocked()
	m.mu.Unlock()

	m.logger.LogTransition("PORTFOLIO REGIME", old.String(), desired.String(), reason)
	m.audit.RecordTransition(audit.TransitionRecord{
		Machine:   "portfolio_regime",
		From:      old.String(),
		To:        desired.String(),
		Reason:    reason,
		Timestamp: change.Timestamp,
	})

	return desired, confidence
}

// classify walks the severity ladder, most severe first.
func classify(c MarketConditions, current RegimeState) (RegimeState, float64, string) {
	switch {
	case c.LiquidityScore < 0.2 || c.Drawdown > 0.50:
		return RegimeCrisis, 0.95, "severe liquidity or drawdown breach"
	case c.Volatility > 0.10 || c.VolatilityZScore > 3.0 || c.Drawdown > 0.30 || c.LiquidityScore < 0.4:
		return RegimeCrisis, 0.9, "crisis-level volatility, drawdown or liquidity"
	case c.Volatility > 0.05 || c.VolatilityZScore > 2.0 || c.Drawdown > 0.15 || c.LiquidityScore < 0.6 || c.SectorConcentrationPct > 0.25:
		return RegimeStressed, 0.85, "stressed market conditions"
	case (current == RegimeCrisis || current == RegimeStressed) && c.Volatility < 0.04 && c.Drawdown < 0.10 && c.LiquidityScore > 0.7:
		return RegimeRecovery, 0.8, "conditions improving from stressed state"
	case c.Volatility > 0.03 || c.VolatilityZScore > 1.0 || c.Drawdown > 0.05 || c.SectorConcentrationPct > 0.20 || c.PnL7dPct < -0.05:
		return RegimeCautious, 0.8, "early warning indicators elevated"
	case c.Volatility < 0.03 && c.Drawdown < 0.05 && c.LiquidityScore > 0.8 && c.SectorConcentrationPct < 0.20:
		return RegimeNormal, 0.9, "healthy market conditions"
	default:
		return current, 0.6, "no decisive signal, holding current regime"
	}
}

// ForceEmergencyHalt manually halts the portfolio. Legal only from CRISIS or
// RECOVERY.
func (m *Machine) ForceEmergencyHalt(reason string) error {
	return m.manualTransition(RegimeEmergencyHalt, reason, RegimeCrisis, RegimeRecovery)
}

// ClearEmergencyHalt manually returns the portfolio to NORMAL. Legal only
// from EMERGENCY_HALT.
func (m *Machine) ClearEmergencyHalt(reason string) error {
	return m.manualTransition(RegimeNormal, reason, RegimeEmergencyHalt)
}

func (m *Machine) manualTransition(target RegimeState, reason string, legalFrom ...RegimeState) error {
	m.mu.Lock()

	legal := false
	for _, from := range legalFrom {
		if m.current == from {
			legal = true
			break
		}
	}
	if !legal {
		from := m.current
		m.mu.Unlock()
		return errors.NewStateTransitionError("PortfolioRegimeMachine", from.String(), target.String())
	}

	old := m.current
	change := RegimeChange{
		Timestamp:  time.Now().UTC(),
		OldRegime:  old,
		NewRegime:  target,
		Confidence: 1.0,
		Reason:     reason,
	}

	m.current = target
	m.regimeDuration = 1
	m.history = append(m.history, change)
	if len(m.history) > maxHistoryEntries {
		m.history = m.history[1:]
	}

	m.pushSectorLimitsLocked()
	m.persistLocked()
	m.mu.Unlock()

	m.logger.LogTransition("PORTFOLIO REGIME", old.String(), target.String(), reason)
	m.audit.RecordTransition(audit.TransitionRecord{
		Machine:   "portfolio_regime",
		From:      old.String(),
		To:        target.String(),
		Reason:    reason,
		Timestamp: change.Timestamp,
	})

	return nil
}

// pushSectorLimits publishes the active regime's sector cap to the sector
// tracker, soft limit at 75% of hard.
func (m *Machine) pushSectorLimits() {
	m.mu.Lock()
	m.pushSectorLimitsLocked()
	m.mu.Unlock()
}

func (m *Machine) pushSectorLimitsLocked() {
	if m.limitSink == nil {
		return
	}
	hard := regimeRules[m.current].MaxSectorExposurePct
	m.limitSink.SetGlobalSectorLimits(hard*softLimitRatio, hard)
}

func (m *Machine) persistLocked() {
	persisted := persistedState{
		CurrentState:     m.current.String(),
		History:          m.history,
		MarketConditions: m.lastConditions,
		LastUpdated:      time.Now().UTC(),
	}
	if err := m.store.Save(stateFileName, persisted); err != nil {
		m.logger.Critical("Failed to persist regime state: %v", err)
	}
}

// Current returns the active regime
func (m *Machine) Current() RegimeState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Rules returns the rule bundle for the active regime
func (m *Machine) Rules() RegimeRules {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return regimeRules[m.current]
}

// LastConditions returns the most recent conditions snapshot
func (m *Machine) LastConditions() MarketConditions {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastConditions
}

// History returns a copy of the regime change history
func (m *Machine) History() []RegimeChange {
	m.mu.RLock()
	defer m.mu.RUnlock()
	history := make([]RegimeChange, len(m.history))
	copy(history, m.history)
	return history
}

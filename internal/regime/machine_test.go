package regime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/trading-risk-gate/internal/logger"
	"github.com/ducminhle1904/trading-risk-gate/internal/state"
)

type limitRecorder struct {
	soft, hard float64
	calls      int
}

func (r *limitRecorder) SetGlobalSectorLimits(softLimitPct, hardLimitPct float64) {
	r.soft = softLimitPct
	r.hard = hardLimitPct
	r.calls++
}

func newTestMachine(t *testing.T) (*Machine, *state.Store, *limitRecorder) {
	t.Helper()
	store, err := state.NewStore(t.TempDir())
	require.NoError(t, err)
	sink := &limitRecorder{}
	return New(store, logger.NewDiscardLogger(), nil, sink), store, sink
}

func healthyConditions() MarketConditions {
	return MarketConditions{
		Volatility:             0.02,
		Drawdown:               0.02,
		LiquidityScore:         0.9,
		SectorConcentrationPct: 0.10,
	}
}

// TestMachine_StartsNormal tests that a fresh machine starts NORMAL
func TestMachine_StartsNormal(t *testing.T) {
	m, _, _ := newTestMachine(t)
	assert.Equal(t, RegimeNormal, m.Current())
	assert.True(t, m.Rules().AllowNewPositions)
}

// TestMachine_CrisisOnSevereConditions tests that crisis-level inputs flip a
// settled machine to CRISIS on the first evaluation
func TestMachine_CrisisOnSevereConditions(t *testing.T) {
	m, _, _ := newTestMachine(t)

	regime, confidence := m.Evaluate(MarketConditions{
		Volatility:     0.12,
		Drawdown:       0.35,
		LiquidityScore: 0.3,
	})

	assert.Equal(t, RegimeCrisis, regime)
	assert.Equal(t, RegimeCrisis, m.Current())
	assert.GreaterOrEqual(t, confidence, 0.9)

	rules := m.Rules()
	assert.False(t, rules.AllowNewPositions)
	assert.True(t, rules.ForcePositionReduction)
	assert.Equal(t, 0.25, rules.RiskMultiplier)
	assert.Equal(t, 0.30, rules.MaxPortfolioUtilizationPct)
}

// TestMachine_SevereLiquidityBreachIsCrisis tests the most severe ladder rung
func TestMachine_SevereLiquidityBreachIsCrisis(t *testing.T) {
	m, _, _ := newTestMachine(t)

	regime, confidence := m.Evaluate(MarketConditions{
		Volatility:     0.01,
		Drawdown:       0.55,
		LiquidityScore: 0.9,
	})

	assert.Equal(t, RegimeCrisis, regime)
	assert.Equal(t, 0.95, confidence)
}

// TestMachine_StressedConditions tests the STRESSED ladder rung
func TestMachine_StressedConditions(t *testing.T) {
	m, _, _ := newTestMachine(t)

	regime, _ := m.Evaluate(MarketConditions{
		Volatility:     0.06,
		Drawdown:       0.10,
		LiquidityScore: 0.8,
	})

	assert.Equal(t, RegimeStressed, regime)
	assert.True(t, m.Rules().RequireStopLosses)
}

// TestMachine_CautiousOnConcentration tests that sector concentration alone
// triggers CAUTIOUS
func TestMachine_CautiousOnConcentration(t *testing.T) {
	m, _, _ := newTestMachine(t)

	regime, _ := m.Evaluate(MarketConditions{
		Volatility:             0.01,
		Drawdown:               0.01,
		LiquidityScore:         0.9,
		SectorConcentrationPct: 0.26,
	})

	// Concentration above 25% reads as stressed, not merely cautious.
	assert.Equal(t, RegimeStressed, regime)

	m2, _, _ := newTestMachine(t)
	regime, _ = m2.Evaluate(MarketConditions{
		Volatility:             0.01,
		Drawdown:               0.01,
		LiquidityScore:         0.9,
		SectorConcentrationPct: 0.22,
	})
	assert.Equal(t, RegimeCautious, regime)
}

// TestMachine_CautiousOnWeekLoss tests that a losing week triggers CAUTIOUS
func TestMachine_CautiousOnWeekLoss(t *testing.T) {
	m, _, _ := newTestMachine(t)

	conditions := healthyConditions()
	conditions.PnL7dPct = -0.08

	regime, _ := m.Evaluate(conditions)
	assert.Equal(t, RegimeCautious, regime)
}

// TestMachine_HysteresisSuppressesFlapping tests that a regime change right
// after another change is suppressed and confidence is penalized
func TestMachine_HysteresisSuppressesFlapping(t *testing.T) {
	m, _, _ := newTestMachine(t)

	regime, _ := m.Evaluate(MarketConditions{Volatility: 0.12, Drawdown: 0.35, LiquidityScore: 0.3})
	require.Equal(t, RegimeCrisis, regime)

	// Healthy conditions immediately after: CAUTIOUS/NORMAL is desired but
	// the machine has only been in CRISIS for one period.
	regime, confidence := m.Evaluate(healthyConditions())
	assert.Equal(t, RegimeCrisis, regime)
	assert.InDelta(t, 0.9*0.7, confidence, 0.1)

	// Two more periods and the dwell requirement is satisfied.
	m.Evaluate(healthyConditions())
	regime, _ = m.Evaluate(healthyConditions())
	assert.NotEqual(t, RegimeCrisis, regime)
}

// TestMachine_RecoveryPathFromCrisis tests that improving conditions route
// through RECOVERY rather than jumping straight to NORMAL
func TestMachine_RecoveryPathFromCrisis(t *testing.T) {
	m, _, _ := newTestMachine(t)

	regime, _ := m.Evaluate(MarketConditions{Volatility: 0.12, Drawdown: 0.35, LiquidityScore: 0.3})
	require.Equal(t, RegimeCrisis, regime)

	improving := MarketConditions{Volatility: 0.035, Drawdown: 0.08, LiquidityScore: 0.75}
	m.Evaluate(improving)
	m.Evaluate(improving)
	regime, _ = m.Evaluate(improving)

	assert.Equal(t, RegimeRecovery, regime)
	assert.True(t, m.Rules().AllowNewPositions)
	assert.Equal(t, 8, m.Rules().MaxConcurrentPositions)
}

// TestMachine_RegimePushesSectorLimits tests that regime changes publish
// sector caps to the limit sink, soft at 75% of hard
func TestMachine_RegimePushesSectorLimits(t *testing.T) {
	m, _, sink := newTestMachine(t)

	// Construction pushes NORMAL limits.
	assert.Equal(t, 0.20, sink.hard)
	assert.InDelta(t, 0.15, sink.soft, 1e-9)

	regime, _ := m.Evaluate(MarketConditions{Volatility: 0.12, Drawdown: 0.35, LiquidityScore: 0.3})
	require.Equal(t, RegimeCrisis, regime)

	assert.Equal(t, 0.10, sink.hard)
	assert.InDelta(t, 0.075, sink.soft, 1e-9)
}

// TestMachine_EmergencyHaltExitsOnlyManually tests that no conditions, however
// healthy, clear EMERGENCY_HALT
func TestMachine_EmergencyHaltExitsOnlyManually(t *testing.T) {
	m, _, _ := newTestMachine(t)

	regime, _ := m.Evaluate(MarketConditions{Volatility: 0.12, Drawdown: 0.35, LiquidityScore: 0.3})
	require.Equal(t, RegimeCrisis, regime)
	require.NoError(t, m.ForceEmergencyHalt("manual halt"))

	for i := 0; i < 5; i++ {
		regime, confidence := m.Evaluate(healthyConditions())
		assert.Equal(t, RegimeEmergencyHalt, regime)
		assert.Equal(t, 1.0, confidence)
	}

	require.NoError(t, m.ClearEmergencyHalt("reviewed"))
	assert.Equal(t, RegimeNormal, m.Current())
}

// TestMachine_ForceEmergencyHaltIllegalFromNormal tests that the manual halt
// is only reachable from CRISIS or RECOVERY
func TestMachine_ForceEmergencyHaltIllegalFromNormal(t *testing.T) {
	m, _, _ := newTestMachine(t)

	err := m.ForceEmergencyHalt("panic")
	assert.Error(t, err)
	assert.Equal(t, RegimeNormal, m.Current())
}

// TestMachine_ClearEmergencyHaltIllegalWhenNotHalted tests the clear guard
func TestMachine_ClearEmergencyHaltIllegalWhenNotHalted(t *testing.T) {
	m, _, _ := newTestMachine(t)
	assert.Error(t, m.ClearEmergencyHalt("nothing to clear"))
}

// TestMachine_EmergencyHaltSurvivesRestart tests the restart recovery policy
func TestMachine_EmergencyHaltSurvivesRestart(t *testing.T) {
	store, err := state.NewStore(t.TempDir())
	require.NoError(t, err)
	log := logger.NewDiscardLogger()

	m := New(store, log, nil, nil)
	regime, _ := m.Evaluate(MarketConditions{Volatility: 0.12, Drawdown: 0.35, LiquidityScore: 0.3})
	require.Equal(t, RegimeCrisis, regime)
	require.NoError(t, m.ForceEmergencyHalt("incident"))

	restarted := New(store, log, nil, nil)
	assert.Equal(t, RegimeEmergencyHalt, restarted.Current())
}

// TestMachine_CrisisResetsToNormalOnRestart tests that non-halt regimes are
// re-derived from scratch after a restart
func TestMachine_CrisisResetsToNormalOnRestart(t *testing.T) {
	store, err := state.NewStore(t.TempDir())
	require.NoError(t, err)
	log := logger.NewDiscardLogger()

	m := New(store, log, nil, nil)
	regime, _ := m.Evaluate(MarketConditions{Volatility: 0.12, Drawdown: 0.35, LiquidityScore: 0.3})
	require.Equal(t, RegimeCrisis, regime)

	restarted := New(store, log, nil, nil)
	assert.Equal(t, RegimeNormal, restarted.Current())
}

// TestRulesFor_EveryRegimeHasRules tests that the rule table is total
func TestRulesFor_EveryRegimeHasRules(t *testing.T) {
	for _, regime := range []RegimeState{RegimeNormal, RegimeCautious, RegimeStressed, RegimeCrisis, RegimeRecovery, RegimeEmergencyHalt} {
		rules := RulesFor(regime)
		assert.NotZero(t, rules.MinCashReservePct+rules.MaxPositionSizePct, "regime %s has empty rules", regime)
	}
}

// TestRulesFor_SeverityIsMonotonic tests that position caps only shrink as
// severity rises
func TestRulesFor_SeverityIsMonotonic(t *testing.T) {
	order := []RegimeState{RegimeNormal, RegimeCautious, RegimeStressed, RegimeCrisis}
	for i := 1; i < len(order); i++ {
		prev, cur := RulesFor(order[i-1]), RulesFor(order[i])
		assert.LessOrEqual(t, cur.MaxPositionSizePct, prev.MaxPositionSizePct)
		assert.LessOrEqual(t, cur.MaxPortfolioUtilizationPct, prev.MaxPortfolioUtilizationPct)
		assert.LessOrEqual(t, cur.RiskMultiplier, prev.RiskMultiplier)
	}
}

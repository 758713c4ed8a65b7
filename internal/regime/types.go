package regime

import "time"

// RegimeState represents different portfolio risk regimes
type RegimeState int

const (
	RegimeNormal RegimeState = iota
	RegimeCautious
	RegimeStressed
	RegimeCrisis
	RegimeRecovery
	RegimeEmergencyHalt
)

func (r RegimeState) String() string {
	switch r {
	case RegimeNormal:
		return "NORMAL"
	case RegimeCautious:
		return "CAUTIOUS"
	case RegimeStressed:
		return "STRESSED"
	case RegimeCrisis:
		return "CRISIS"
	case RegimeRecovery:
		return "RECOVERY"
	case RegimeEmergencyHalt:
		return "EMERGENCY_HALT"
	default:
		return "UNKNOWN"
	}
}

// ParseRegime converts a persisted regime string back to a RegimeState.
// Unknown strings map to NORMAL.
func ParseRegime(s string) RegimeState {
	switch s {
	case "CAUTIOUS":
		return RegimeCautious
	case "STRESSED":
		return RegimeStressed
	case "CRISIS":
		return RegimeCrisis
	case "RECOVERY":
		return RegimeRecovery
	case "EMERGENCY_HALT":
		return RegimeEmergencyHalt
	default:
		return RegimeNormal
	}
}

// MarketConditions is a snapshot of market and portfolio health fed to the
// regime machine by the market-data collaborator.
type MarketConditions struct {
	Volatility             float64   `json:"volatility"`
	VolatilityZScore       float64   `json:"volatility_z_score"`
	Drawdown               float64   `json:"drawdown"`
	LiquidityScore         float64   `json:"liquidity_score"`
	AvgCorrelation         float64   `json:"avg_correlation"`
	SectorConcentrationPct float64   `json:"sector_concentration_pct"`
	PnL7dPct               float64   `json:"pnl_7d_pct"`
	Timestamp              time.Time `json:"timestamp"`
}

// RegimeChange represents a regime transition event
type RegimeChange struct {
	Timestamp  time.Time   `json:"timestamp"`
	OldRegime  RegimeState `json:"old_regime"`
	NewRegime  RegimeState `json:"new_regime"`
	Confidence float64     `json:"confidence"`
	Reason     string      `json:"reason"`
}

// RegimeRules is the rule bundle every other risk check consults. Rules are
// a pure function of RegimeState; see rules.go.
type RegimeRules struct {
	MaxPositionSizePct         float64 `json:"max_position_size_pct"`
	MaxPortfolioUtilizationPct float64 `json:"max_portfolio_utilization_pct"`
	MaxSectorExposurePct       float64 `json:"max_sector_exposure_pct"`
	MinCashReservePct          float64 `json:"min_cash_reserve_pct"`
	MaxConcurrentPositions     int     `json:"max_concurrent_positions"`
	RequireStopLosses          bool    `json:"require_stop_losses"`
	AllowNewPositions          bool    `json:"allow_new_positions"`
	ForcePositionReduction     bool    `json:"force_position_reduction"`
	RiskMultiplier             float64 `json:"risk_multiplier"`
}

// SectorLimitSink receives the sector exposure limits derived from the
// active regime. The sector tracker implements this.
type SectorLimitSink interface {
	SetGlobalSectorLimits(softLimitPct, hardLimitPct float64)
}

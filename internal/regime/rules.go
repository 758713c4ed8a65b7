package regime

// regimeRules maps each regime to its fixed rule bundle. Percentages are
// fractions of portfolio value. The table is never mutated at runtime and is
// not persisted separately; rules are a pure function of the regime.
var regimeRules = map[RegimeState]RegimeRules{
	RegimeNormal: {
		MaxPositionSizePct:         0.10,
		MaxPortfolioUtilizationPct: 0.80,
		MaxSectorExposurePct:       0.20,
		MinCashReservePct:          0.20,
		MaxConcurrentPositions:     20,
		RequireStopLosses:          false,
		AllowNewPositions:          true,
		ForcePositionReduction:     false,
		RiskMultiplier:             1.0,
	},
	RegimeCautious: {
		MaxPositionSizePct:         0.08,
		MaxPortfolioUtilizationPct: 0.70,
		MaxSectorExposurePct:       0.18,
		MinCashReservePct:          0.30,
		MaxConcurrentPositions:     15,
		RequireStopLosses:          true,
		AllowNewPositions:          true,
		ForcePositionReduction:     false,
		RiskMultiplier:             0.75,
	},
	RegimeStressed: {
		MaxPositionSizePct:         0.06,
		MaxPortfolioUtilizationPct: 0.50,
		MaxSectorExposurePct:       0.15,
		MinCashReservePct:          0.50,
		MaxConcurrentPositions:     10,
		RequireStopLosses:          true,
		AllowNewPositions:          true,
		ForcePositionReduction:     false,
		RiskMultiplier:             0.50,
	},
	RegimeCrisis: {
		MaxPositionSizePct:         0.05,
		MaxPortfolioUtilizationPct: 0.30,
		MaxSectorExposurePct:       0.10,
		MinCashReservePct:          0.70,
		MaxConcurrentPositions:     5,
		RequireStopLosses:          true,
		AllowNewPositions:          false,
		ForcePositionReduction:     true,
		RiskMultiplier:             0.25,
	},
	RegimeRecovery: {
		MaxPositionSizePct:         0.06,
		MaxPortfolioUtilizationPct: 0.50,
		MaxSectorExposurePct:       0.15,
		MinCashReservePct:          0.50,
		MaxConcurrentPositions:     8,
		RequireStopLosses:          true,
		AllowNewPositions:          true,
		ForcePositionReduction:     false,
		RiskMultiplier:             0.50,
	},
	RegimeEmergencyHalt: {
		MaxPositionSizePct:         0.0,
		MaxPortfolioUtilizationPct: 0.0,
		MaxSectorExposurePct:       0.0,
		MinCashReservePct:          1.0,
		MaxConcurrentPositions:     0,
		RequireStopLosses:          true,
		AllowNewPositions:          false,
		ForcePositionReduction:     true,
		RiskMultiplier:             0.0,
	},
}

// RulesFor returns the rule bundle for a regime
func RulesFor(state RegimeState) RegimeRules {
	return regimeRules[state]
}

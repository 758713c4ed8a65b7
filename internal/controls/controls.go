package controls

import (
	"fmt"
	"sync"
	"time"

	"github.com/ducminhle1904/trading-risk-gate/internal/audit"
	"github.com/ducminhle1904/trading-risk-gate/internal/errors"
	"github.com/ducminhle1904/trading-risk-gate/internal/killswitch"
	"github.com/ducminhle1904/trading-risk-gate/internal/logger"
	"github.com/ducminhle1904/trading-risk-gate/internal/monitoring"
	"github.com/ducminhle1904/trading-risk-gate/internal/regime"
	"github.com/ducminhle1904/trading-risk-gate/internal/sector"
	"github.com/ducminhle1904/trading-risk-gate/internal/statemachine"
)

// Hard limits. These are deliberately plain constants: no tier config, env
// setting or user override can raise them.
const (
	MinPositionPct         = 0.02
	MaxPositionPct         = 0.10
	AbsoluteMaxPositionPct = 0.15
	AbsoluteMaxPositionUSD = 10000.0
	MaxDailyTrades         = 50
	ErrorThreshold         = 5
)

// Enforced limit tags carried on rejections so a dashboard can say which
// rule fired without re-deriving it.
const (
	LimitBalance        = "BALANCE"
	LimitMinPositionPct = "MIN_POSITION_PCT"
	LimitMaxPositionPct = "MAX_POSITION_PCT"
	LimitAbsoluteMaxPct = "ABSOLUTE_MAX_POSITION_PCT"
	LimitAbsoluteMaxUSD = "ABSOLUTE_MAX_POSITION_USD"
	LimitDailyLoss      = "DAILY_LOSS"
	LimitDailyTrades    = "MAX_DAILY_TRADES"
	LimitKillSwitch     = "KILL_SWITCH"
	LimitTradingMode    = "TRADING_MODE"
	LimitRegime         = "REGIME"
	LimitSector         = "SECTOR_EXPOSURE"
	LimitConfiguration  = "LIVE_CAPITAL_VERIFIED"
	LimitUserDisabled   = "USER_DISABLED"
)

const maxValidationRecords = 1000

// TierLimits are per-user position bounds supplied by the user/permission
// collaborator. They are clamped to the absolute caps, never the other way
// around.
type TierLimits struct {
	MinPositionPct float64
	MaxPositionPct float64
}

// UserLimitsProvider supplies per-user tier limits. A nil provider means
// every user gets the defaults.
type UserLimitsProvider interface {
	TierLimits(userID string) (TierLimits, bool)
}

// TradeRequest is one candidate order presented to the gate
type TradeRequest struct {
	UserID          string
	Symbol          string
	RequestedUSD    float64
	BalanceUSD      float64
	MaxDailyLossUSD float64
}

// Decision is the gate's answer: allowed or rejected with a reason and the
// limit that fired.
type Decision struct {
	Allowed       bool
	Reason        string
	EnforcedLimit string
}

// HardControls is the single call site downstream systems use. It sequences
// the kill switch, trading mode, regime rules, sector caps and the layered
// numeric validator for every candidate order.
//
// The combined check is a best-effort snapshot, not a transaction: each
// component takes its own lock, so a concurrent mutation between two checks
// can admit a trade a stricter transactional design would reject. This
// matches the accepted design; see DESIGN.md.
type HardControls struct {
	mu sync.Mutex

	liveCapitalVerified bool

	globalSwitch *killswitch.Switch
	stateMachine *statemachine.Machine
	regimes      *regime.Machine
	sectors      *sector.Tracker
	userLimits   UserLimitsProvider

	disabledUsers map[string]string
	apiErrors     *errors.ErrorStats
	daily         map[string]*DailyTracker

	validations []audit.PositionValidationRecord

	audit  audit.Sink
	logger *logger.Logger
	now    func() time.Time
}

// New creates the risk gate. liveCapitalVerified comes from explicit
// configuration; when false, nothing trades, full stop.
func New(liveCapitalVerified bool, ks *killswitch.Switch, sm *statemachine.Machine,
	rm *regime.Machine, st *sector.Tracker, limits UserLimitsProvider,
	sink audit.Sink, log *logger.Logger) *HardControls {

	if sink == nil {
		sink = audit.NopSink{}
	}

	return &HardControls{
		liveCapitalVerified: liveCapitalVerified,
		globalSwitch:        ks,
		stateMachine:        sm,
		regimes:             rm,
		sectors:             st,
		userLimits:          limits,
		disabledUsers:       make(map[string]string),
		apiErrors:           errors.NewErrorStats(100),
		daily:               make(map[string]*DailyTracker),
		validations:         make([]audit.PositionValidationRecord, 0, maxValidationRecords),
		audit:               sink,
		logger:              log,
		now:                 time.Now,
	}
}

// CanTrade answers whether the user may trade at all right now: live
// capital verification, the global kill switch, then the per-user switch,
// in that order.
func (hc *HardControls) CanTrade(userID string) (bool, string) {
	if !hc.liveCapitalVerified {
		return false, "live capital verification not set - trading disabled"
	}

	if hc.globalSwitch.IsActive() {
		return false, "global kill switch is active"
	}

	hc.mu.Lock()
	reason, disabled := hc.disabledUsers[userID]
	hc.mu.Unlock()
	if disabled {
		return false, reasonf("user %s is disabled: %s", userID, reason)
	}

	return true, ""
}

// ValidatePositionSize runs the layered numeric validator. All layers must
// pass; the absolute caps are checked first because no configuration can
// bypass them. Every call is recorded in the audit trail regardless of
// outcome.
func (hc *HardControls) ValidatePositionSize(userID, symbol string, requestedUSD, balanceUSD float64) (bool, string) {
	approved, reason, _ := hc.validatePosition(userID, symbol, requestedUSD, balanceUSD)
	return approved, reason
}

func (hc *HardControls) validatePosition(userID, symbol string, requestedUSD, balanceUSD float64) (bool, string, string) {
	approved, reason, limit := hc.validateLayers(userID, requestedUSD, balanceUSD)

	pct := 0.0
	if balanceUSD > 0 {
		pct = requestedUSD / balanceUSD
	}

	record := audit.PositionValidationRecord{
		UserID:          userID,
		Symbol:          symbol,
		RequestedUSD:    requestedUSD,
		BalanceUSD:      balanceUSD,
		PositionPct:     pct,
		Approved:        approved,
		RejectionReason: reason,
		EnforcedLimit:   limit,
		Timestamp:       hc.now().UTC(),
	}

	hc.mu.Lock()
	hc.validations = append(hc.validations, record)
	if len(hc.validations) > maxValidationRecords {
		hc.validations = hc.validations[1:]
	}
	hc.mu.Unlock()

	hc.audit.RecordValidation(record)
	if !approved {
		monitoring.RecordRejection(limit)
		hc.logger.LogDecision(userID, "position validation", false, reason)
	}

	return approved, reason, limit
}

func (hc *HardControls) validateLayers(userID string, requestedUSD, balanceUSD float64) (bool, string, string) {
	if balanceUSD <= 0 {
		return false, "account balance must be positive", LimitBalance
	}

	pct := requestedUSD / balanceUSD

	// Unbypassable absolute caps first: no tier config can raise these.
	if pct > AbsoluteMaxPositionPct {
		return false, reasonf("position %.1f%% of balance exceeds absolute cap %.0f%%",
			pct*100, AbsoluteMaxPositionPct*100), LimitAbsoluteMaxPct
	}
	if requestedUSD > AbsoluteMaxPositionUSD {
		return false, reasonf("position $%.2f exceeds absolute cap $%.0f",
			requestedUSD, AbsoluteMaxPositionUSD), LimitAbsoluteMaxUSD
	}

	minPct, maxPct := hc.effectiveLimits(userID)

	if pct < minPct {
		return false, reasonf("position %.1f%% of balance too small, minimum %.0f%%",
			pct*100, minPct*100), LimitMinPositionPct
	}
	if pct > maxPct {
		return false, reasonf("position %.1f%% of balance too large, maximum %.0f%%",
			pct*100, maxPct*100), LimitMaxPositionPct
	}

	return true, "", ""
}

// effectiveLimits applies the user's tier limits clamped to the absolute
// caps.
func (hc *HardControls) effectiveLimits(userID string) (float64, float64) {
	minPct, maxPct := MinPositionPct, MaxPositionPct

	if hc.userLimits != nil {
		if tier, ok := hc.userLimits.TierLimits(userID); ok {
			if tier.MinPositionPct > 0 {
				minPct = tier.MinPositionPct
			}
			if tier.MaxPositionPct > 0 {
				maxPct = tier.MaxPositionPct
			}
		}
	}

	if maxPct > AbsoluteMaxPositionPct {
		maxPct = AbsoluteMaxPositionPct
	}
	if minPct > maxPct {
		minPct = maxPct
	}

	return minPct, maxPct
}

// RecordAPIError increments the user's error counter and auto-disables the
// user at the threshold. Returns true when this call tripped the disable.
func (hc *HardControls) RecordAPIError(userID, kind string) bool {
	riskErr := errors.NewRiskError(errors.ErrorCategoryLimit, "RiskGate", "api_error", kind)
	count := hc.apiErrors.RecordError(userID, riskErr)

	monitoring.RecordAPIError(kind)

	if count < ErrorThreshold {
		return false
	}

	hc.mu.Lock()
	_, already := hc.disabledUsers[userID]
	if !already {
		hc.disabledUsers[userID] = reasonf("auto-disabled after %d API errors", count)
	}
	hc.mu.Unlock()

	if !already {
		hc.logger.Critical("User %s auto-disabled after %d API errors (last: %s)", userID, count, kind)
	}
	return !already
}

// EnableUser clears a user's disabled flag and error count after manual
// review.
func (hc *HardControls) EnableUser(userID string) {
	hc.mu.Lock()
	delete(hc.disabledUsers, userID)
	hc.mu.Unlock()
	hc.apiErrors.ResetUser(userID)
	hc.logger.Info("User %s re-enabled", userID)
}

// IsUserDisabled reports whether the per-user kill switch is tripped
func (hc *HardControls) IsUserDisabled(userID string) bool {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	_, disabled := hc.disabledUsers[userID]
	return disabled
}

// AuthorizeTrade runs the full authorization pipeline for one candidate
// order. Every component must independently agree; the first rejection
// wins and is returned with an enforced-limit tag.
func (hc *HardControls) AuthorizeTrade(req TradeRequest) Decision {
	decision := hc.authorize(req)

	monitoring.RecordDecision(decision.Allowed, decision.EnforcedLimit)
	hc.logger.LogDecision(req.UserID, reasonf("trade %s $%.2f", req.Symbol, req.RequestedUSD),
		decision.Allowed, decision.Reason)

	return decision
}

func (hc *HardControls) authorize(req TradeRequest) Decision {
	if ok, reason := hc.CanTrade(req.UserID); !ok {
		limit := LimitConfiguration
		if hc.liveCapitalVerified {
			limit = LimitKillSwitch
			if hc.IsUserDisabled(req.UserID) {
				limit = LimitUserDisabled
			}
		}
		return Decision{Allowed: false, Reason: reason, EnforcedLimit: limit}
	}

	if !hc.stateMachine.IsTradingAllowed() {
		return Decision{
			Allowed:       false,
			Reason:        reasonf("trading mode %s does not allow trading", hc.stateMachine.Mode()),
			EnforcedLimit: LimitTradingMode,
		}
	}

	rules := hc.regimes.Rules()
	if !rules.AllowNewPositions {
		return Decision{
			Allowed:       false,
			Reason:        reasonf("regime %s does not allow new positions", hc.regimes.Current()),
			EnforcedLimit: LimitRegime,
		}
	}

	if ok, reason := hc.sectors.CanAddPosition(req.Symbol, req.RequestedUSD); !ok {
		return Decision{Allowed: false, Reason: reason, EnforcedLimit: LimitSector}
	}

	if ok, reason, limit := hc.validatePosition(req.UserID, req.Symbol, req.RequestedUSD, req.BalanceUSD); !ok {
		return Decision{Allowed: false, Reason: reason, EnforcedLimit: limit}
	}

	if req.MaxDailyLossUSD > 0 {
		if ok, reason := hc.CheckDailyLossLimit(req.UserID, req.MaxDailyLossUSD); !ok {
			return Decision{Allowed: false, Reason: reason, EnforcedLimit: LimitDailyLoss}
		}
	}
	if ok, reason := hc.CheckDailyTradeLimit(req.UserID, MaxDailyTrades); !ok {
		return Decision{Allowed: false, Reason: reason, EnforcedLimit: LimitDailyTrades}
	}

	return Decision{Allowed: true}
}

// ValidationHistory returns a copy of the validation audit ring
func (hc *HardControls) ValidationHistory() []audit.PositionValidationRecord {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	history := make([]audit.PositionValidationRecord, len(hc.validations))
	copy(history, hc.validations)
	return history
}

// UserErrorCount returns the user's running API error count
func (hc *HardControls) UserErrorCount(userID string) int {
	return hc.apiErrors.UserErrorCount(userID)
}

func reasonf(format string, args ...interface{}) string {
	return fmt.Sprintf(format, args...)
}

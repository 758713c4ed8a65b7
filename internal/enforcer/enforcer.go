// Package enforcer runs the background loops that keep the risk gate's
// view of the world current: periodic regime evaluation from market
// conditions and periodic position resync into the sector tracker.
package enforcer

import (
	"context"
	"time"

	"github.com/ducminhle1904/trading-risk-gate/internal/killswitch"
	"github.com/ducminhle1904/trading-risk-gate/internal/logger"
	"github.com/ducminhle1904/trading-risk-gate/internal/monitoring"
	"github.com/ducminhle1904/trading-risk-gate/internal/regime"
	"github.com/ducminhle1904/trading-risk-gate/internal/sector"
	"github.com/ducminhle1904/trading-risk-gate/internal/statemachine"
)

// ConditionsProvider supplies current market conditions for regime
// classification. Implementations typically aggregate volatility,
// drawdown and liquidity from market data feeds.
type ConditionsProvider interface {
	CurrentConditions(ctx context.Context) (regime.MarketConditions, error)
}

// PositionProvider supplies the authoritative portfolio snapshot used
// to resync sector exposures.
type PositionProvider interface {
	CurrentPositions(ctx context.Context) (positions []sector.Position, totalPortfolioUSD float64, err error)
}

// ReductionAdvisory is emitted when the active regime demands forced
// position reduction. The gate never places orders itself; consumers
// decide how to unwind.
type ReductionAdvisory struct {
	Regime          regime.RegimeState `json:"regime"`
	MaxUtilization  float64            `json:"max_utilization"`
	CurrentValueUSD float64            `json:"current_value_usd"`
	TargetValueUSD  float64            `json:"target_value_usd"`
	Timestamp       time.Time          `json:"timestamp"`
}

// Enforcer ties the background evaluation loops together.
type Enforcer struct {
	regimes    *regime.Machine
	sectors    *sector.Tracker
	machine    *statemachine.Machine
	kill       *killswitch.Switch
	conditions ConditionsProvider
	positions  PositionProvider
	logger     *logger.Logger

	regimeInterval   time.Duration
	positionInterval time.Duration

	advisories chan ReductionAdvisory
}

// New creates an enforcer. Either provider may be nil, which disables
// the corresponding loop.
func New(
	regimes *regime.Machine,
	sectors *sector.Tracker,
	machine *statemachine.Machine,
	kill *killswitch.Switch,
	conditions ConditionsProvider,
	positions PositionProvider,
	regimeInterval, positionInterval time.Duration,
	log *logger.Logger,
) *Enforcer {
	if regimeInterval <= 0 {
		regimeInterval = 30 * time.Second
	}
	if positionInterval <= 0 {
		positionInterval = 15 * time.Second
	}
	return &Enforcer{
		regimes:          regimes,
		sectors:          sectors,
		machine:          machine,
		kill:             kill,
		conditions:       conditions,
		positions:        positions,
		logger:           log,
		regimeInterval:   regimeInterval,
		positionInterval: positionInterval,
		advisories:       make(chan ReductionAdvisory, 16),
	}
}

// Advisories returns the channel on which forced-reduction advisories
// are delivered. The channel is never closed; drain it from a consumer
// goroutine.
func (e *Enforcer) Advisories() <-chan ReductionAdvisory {
	return e.advisories
}

// Run starts the evaluation loops and blocks until ctx is cancelled.
func (e *Enforcer) Run(ctx context.Context) {
	e.logger.Info("Enforcer starting (regime interval: %s, position interval: %s)",
		e.regimeInterval, e.positionInterval)

	done := make(chan struct{})
	go func() {
		e.regimeLoop(ctx)
		done <- struct{}{}
	}()
	go func() {
		e.positionLoop(ctx)
		done <- struct{}{}
	}()

	<-done
	<-done
	e.logger.Info("Enforcer stopped")
}

func (e *Enforcer) regimeLoop(ctx context.Context) {
	if e.conditions == nil {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(e.regimeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.evaluateOnce(ctx)
		}
	}
}

func (e *Enforcer) evaluateOnce(ctx context.Context) {
	conditions, err := e.conditions.CurrentConditions(ctx)
	if err != nil {
		e.logger.LogWarning("regime evaluation", "skipping: %v", err)
		return
	}

	current, _ := e.regimes.Evaluate(conditions)
	e.publishGauges()

	rules := e.regimes.Rules()
	if rules.ForcePositionReduction && e.sectors != nil {
		e.emitAdvisory(current, rules)
	}
}

func (e *Enforcer) emitAdvisory(current regime.RegimeState, rules regime.RegimeRules) {
	total := e.sectors.TotalPortfolioValue()
	if total <= 0 {
		return
	}
	deployed := 0.0
	for _, exp := range e.sectors.Snapshot() {
		deployed += exp.TotalValueUSD
	}
	target := total * rules.MaxPortfolioUtilizationPct
	if deployed <= target {
		return
	}

	advisory := ReductionAdvisory{
		Regime:          current,
		MaxUtilization:  rules.MaxPortfolioUtilizationPct,
		CurrentValueUSD: deployed,
		TargetValueUSD:  target,
		Timestamp:       time.Now().UTC(),
	}

	select {
	case e.advisories <- advisory:
		e.logger.Warning("Forced reduction advisory: regime %s requires deployed value <= $%.2f (currently $%.2f)",
			current, target, deployed)
	default:
		e.logger.Warning("Advisory channel full, dropping forced reduction advisory for regime %s", current)
	}
}

func (e *Enforcer) positionLoop(ctx context.Context) {
	if e.positions == nil {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(e.positionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.resyncOnce(ctx)
		}
	}
}

func (e *Enforcer) resyncOnce(ctx context.Context) {
	positions, total, err := e.positions.CurrentPositions(ctx)
	if err != nil {
		e.logger.LogWarning("position resync", "skipping: %v", err)
		return
	}

	e.sectors.UpdatePortfolioValue(total)
	e.sectors.ResyncPositions(positions)
	e.publishGauges()
}

func (e *Enforcer) publishGauges() {
	if e.machine != nil {
		monitoring.SetTradingMode(int(e.machine.Mode()))
	}
	if e.regimes != nil {
		monitoring.SetPortfolioRegime(int(e.regimes.Current()))
	}
	if e.kill != nil {
		monitoring.SetKillSwitchActive(e.kill.IsActive())
	}
	if e.sectors != nil {
		total := e.sectors.TotalPortfolioValue()
		if total > 0 {
			for _, exp := range e.sectors.Snapshot() {
				monitoring.SetSectorExposure(exp.Sector, exp.ExposurePct)
			}
		}
	}
}

package enforcer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/trading-risk-gate/internal/logger"
	"github.com/ducminhle1904/trading-risk-gate/internal/regime"
	"github.com/ducminhle1904/trading-risk-gate/internal/sector"
	"github.com/ducminhle1904/trading-risk-gate/internal/state"
)

type stubConditions struct {
	conditions regime.MarketConditions
	called     chan struct{}
}

func (s *stubConditions) CurrentConditions(context.Context) (regime.MarketConditions, error) {
	select {
	case s.called <- struct{}{}:
	default:
	}
	return s.conditions, nil
}

type stubPositions struct {
	positions []sector.Position
	totalUSD  float64
	called    chan struct{}
}

func (s *stubPositions) CurrentPositions(context.Context) ([]sector.Position, float64, error) {
	select {
	case s.called <- struct{}{}:
	default:
	}
	return s.positions, s.totalUSD, nil
}

// TestEnforcer_RegimeLoopEvaluatesConditions tests that the regime loop feeds
// provider snapshots into the regime machine
func TestEnforcer_RegimeLoopEvaluatesConditions(t *testing.T) {
	store, err := state.NewStore(t.TempDir())
	require.NoError(t, err)
	log := logger.NewDiscardLogger()

	tracker := sector.NewTracker(log)
	regimes := regime.New(store, log, nil, tracker)

	conditions := &stubConditions{
		conditions: regime.MarketConditions{Volatility: 0.12, Drawdown: 0.35, LiquidityScore: 0.3},
		called:     make(chan struct{}, 1),
	}

	enf := New(regimes, tracker, nil, nil, conditions, nil,
		10*time.Millisecond, time.Hour, log)

	ctx, cancel := context.WithCancel(context.Background())
	go enf.Run(ctx)

	select {
	case <-conditions.called:
	case <-time.After(2 * time.Second):
		t.Fatal("conditions provider was never polled")
	}

	assert.Eventually(t, func() bool {
		return regimes.Current() == regime.RegimeCrisis
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
}

// TestEnforcer_PositionLoopResyncsTracker tests the periodic position
// reconciliation into the sector tracker
func TestEnforcer_PositionLoopResyncsTracker(t *testing.T) {
	log := logger.NewDiscardLogger()
	tracker := sector.NewTracker(log)

	positions := &stubPositions{
		positions: []sector.Position{{Symbol: "BTC", ValueUSD: 1500}},
		totalUSD:  10000,
		called:    make(chan struct{}, 1),
	}

	enf := New(nil, tracker, nil, nil, nil, positions,
		time.Hour, 10*time.Millisecond, log)

	ctx, cancel := context.WithCancel(context.Background())
	go enf.Run(ctx)

	select {
	case <-positions.called:
	case <-time.After(2 * time.Second):
		t.Fatal("positions provider was never polled")
	}

	assert.Eventually(t, func() bool {
		exp, ok := tracker.Exposure(sector.SectorLargeCap)
		return ok && exp.TotalValueUSD == 1500 && tracker.TotalPortfolioValue() == 10000
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
}

// TestEnforcer_AdvisoryEmittedInCrisis tests that a crisis regime with
// deployed value above the utilization target raises a reduction advisory
func TestEnforcer_AdvisoryEmittedInCrisis(t *testing.T) {
	store, err := state.NewStore(t.TempDir())
	require.NoError(t, err)
	log := logger.NewDiscardLogger()

	tracker := sector.NewTracker(log)
	regimes := regime.New(store, log, nil, tracker)

	// 80% deployed against CRISIS's 30% utilization cap.
	tracker.UpdatePortfolioValue(10000)
	tracker.ResyncPositions([]sector.Position{
		{Symbol: "BTC", ValueUSD: 4000},
		{Symbol: "SOL", ValueUSD: 4000},
	})

	conditions := &stubConditions{
		conditions: regime.MarketConditions{Volatility: 0.12, Drawdown: 0.35, LiquidityScore: 0.3},
		called:     make(chan struct{}, 1),
	}

	enf := New(regimes, tracker, nil, nil, conditions, nil,
		10*time.Millisecond, time.Hour, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go enf.Run(ctx)

	select {
	case advisory := <-enf.Advisories():
		assert.Equal(t, regime.RegimeCrisis, advisory.Regime)
		assert.InDelta(t, 8000, advisory.CurrentValueUSD, 1e-9)
		assert.InDelta(t, 3000, advisory.TargetValueUSD, 1e-9)
	case <-time.After(2 * time.Second):
		t.Fatal("no reduction advisory emitted")
	}
}

// TestEnforcer_StopsOnContextCancel tests clean shutdown
func TestEnforcer_StopsOnContextCancel(t *testing.T) {
	log := logger.NewDiscardLogger()

	enf := New(nil, nil, nil, nil, nil, nil, time.Hour, time.Hour, log)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		enf.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("enforcer did not stop on context cancellation")
	}
}

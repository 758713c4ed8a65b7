package sector

import (
	"fmt"
	"sort"
	"sync"
)

// LimitStatus classifies a sector's exposure against its limits
type LimitStatus string

const (
	StatusSafe      LimitStatus = "SAFE"
	StatusWarning   LimitStatus = "WARNING"
	StatusHardLimit LimitStatus = "HARD_LIMIT"
	StatusCritical  LimitStatus = "CRITICAL"
)

// Exposure holds the tracked exposure of one sector. ExposurePct and Status
// are always recomputed from the USD values, never cached stale.
type Exposure struct {
	Sector        string              `json:"sector"`
	TotalValueUSD float64             `json:"total_value_usd"`
	PositionCount int                 `json:"position_count"`
	Symbols       map[string]struct{} `json:"-"`
	ExposurePct   float64             `json:"exposure_pct"`
	SoftLimitPct  float64             `json:"soft_limit_pct"`
	HardLimitPct  float64             `json:"hard_limit_pct"`
	Status        LimitStatus         `json:"status"`
}

// Position is one open position fed to the tracker by the position enforcer
type Position struct {
	Symbol   string
	ValueUSD float64
}

// Logger is the subset of the file logger the tracker needs
type Logger interface {
	Info(format string, args ...interface{})
	LogWarning(context, message string, args ...interface{})
}

// Default limits; the regime machine overrides these whenever the regime
// changes.
const (
	DefaultSoftLimitPct = 0.15
	DefaultHardLimitPct = 0.20

	// DefaultMaxCorrelatedPct caps the combined exposure of a sector and
	// its correlated peers.
	DefaultMaxCorrelatedPct = 0.40

	// statusEpsilon absorbs float64 rounding in derived limit thresholds.
	statusEpsilon = 1e-9
)

// Tracker maintains USD exposure per asset sector against soft, hard and
// correlated-group limits. It owns the shared portfolio value denominator.
type Tracker struct {
	mu sync.RWMutex

	sectors                map[string]*Exposure
	totalPortfolioValueUSD float64

	softLimitPct     float64
	hardLimitPct     float64
	maxCorrelatedPct float64

	logger Logger
}

// NewTracker creates a sector exposure tracker with the default limits
func NewTracker(log Logger) *Tracker {
	return &Tracker{
		sectors:          make(map[string]*Exposure),
		softLimitPct:     DefaultSoftLimitPct,
		hardLimitPct:     DefaultHardLimitPct,
		maxCorrelatedPct: DefaultMaxCorrelatedPct,
		logger:           log,
	}
}

// SetGlobalSectorLimits replaces the soft and hard limits on every sector.
// Called by the regime machine whenever the active regime changes.
func (t *Tracker) SetGlobalSectorLimits(softLimitPct, hardLimitPct float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.softLimitPct = softLimitPct
	t.hardLimitPct = hardLimitPct
	for _, exp := range t.sectors {
		exp.SoftLimitPct = softLimitPct
		exp.HardLimitPct = hardLimitPct
		t.refreshLocked(exp)
	}
}

// UpdatePortfolioValue sets the shared denominator and recomputes every
// sector's exposure percentage.
func (t *Tracker) UpdatePortfolioValue(totalUSD float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.totalPortfolioValueUSD = totalUSD
	for _, exp := range t.sectors {
		t.refreshLocked(exp)
	}
}

// UpdatePosition adjusts a sector's exposure for an added or removed
// position. The symbol is mapped to its sector through the static taxonomy.
func (t *Tracker) UpdatePosition(symbol string, valueUSD float64, add bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	exp := t.sectorLocked(SectorFor(symbol))

	if add {
		exp.TotalValueUSD += valueUSD
		exp.PositionCount++
		exp.Symbols[symbol] = struct{}{}
	} else {
		exp.TotalValueUSD -= valueUSD
		if exp.TotalValueUSD < 0 {
			exp.TotalValueUSD = 0
		}
		if exp.PositionCount > 0 {
			exp.PositionCount--
		}
		delete(exp.Symbols, symbol)
	}

	t.refreshLocked(exp)

	if exp.Status == StatusWarning {
		t.logger.LogWarning("Sector Exposure", "%s at %.1f%% exceeds soft limit %.1f%%",
			exp.Sector, exp.ExposurePct*100, exp.SoftLimitPct*100)
	}
}

// ResyncPositions rebuilds every sector from a full position snapshot. Used
// by the position enforcer's periodic reconciliation.
func (t *Tracker) ResyncPositions(positions []Position) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, exp := range t.sectors {
		exp.TotalValueUSD = 0
		exp.PositionCount = 0
		exp.Symbols = make(map[string]struct{})
	}

	for _, pos := range positions {
		exp := t.sectorLocked(SectorFor(pos.Symbol))
		exp.TotalValueUSD += pos.ValueUSD
		exp.PositionCount++
		exp.Symbols[pos.Symbol] = struct{}{}
	}

	for _, exp := range t.sectors {
		t.refreshLocked(exp)
	}
}

// CanAddPosition checks a candidate position against the sector's hard limit
// and the correlated-group cap. Soft-limit breaches are advisory and never
// block.
func (t *Tracker) CanAddPosition(symbol string, valueUSD float64) (bool, string) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.totalPortfolioValueUSD <= 0 {
		return false, "portfolio value not initialized"
	}

	sectorTag := SectorFor(symbol)
	current := 0.0
	if exp, ok := t.sectors[sectorTag]; ok {
		current = exp.TotalValueUSD
	}

	newPct := (current + valueUSD) / t.totalPortfolioValueUSD
	if newPct >= t.hardLimitPct {
		return false, fmt.Sprintf("sector %s would reach %.1f%%, at or above hard limit %.1f%%",
			sectorTag, newPct*100, t.hardLimitPct*100)
	}

	correlated := current + valueUSD
	for _, peer := range CorrelatedPeers(sectorTag) {
		if exp, ok := t.sectors[peer]; ok {
			correlated += exp.TotalValueUSD
		}
	}
	correlatedPct := correlated / t.totalPortfolioValueUSD
	if correlatedPct > t.maxCorrelatedPct {
		return false, fmt.Sprintf("correlated sectors of %s would reach %.1f%%, above combined cap %.1f%%",
			sectorTag, correlatedPct*100, t.maxCorrelatedPct*100)
	}

	return true, ""
}

// GetAvailableCapacity returns the USD headroom below the hard limit for the
// symbol's sector, floored at zero.
func (t *Tracker) GetAvailableCapacity(symbol string) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	current := 0.0
	if exp, ok := t.sectors[SectorFor(symbol)]; ok {
		current = exp.TotalValueUSD
	}

	capacity := t.hardLimitPct*t.totalPortfolioValueUSD - current
	if capacity < 0 {
		return 0
	}
	return capacity
}

// Exposure returns a copy of one sector's exposure and whether it is tracked
func (t *Tracker) Exposure(sectorTag string) (Exposure, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	exp, ok := t.sectors[sectorTag]
	if !ok {
		return Exposure{}, false
	}
	return t.copyLocked(exp), true
}

// Snapshot returns a copy of every tracked sector, sorted by tag
func (t *Tracker) Snapshot() []Exposure {
	t.mu.RLock()
	defer t.mu.RUnlock()

	snapshot := make([]Exposure, 0, len(t.sectors))
	for _, exp := range t.sectors {
		snapshot = append(snapshot, t.copyLocked(exp))
	}
	sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].Sector < snapshot[j].Sector })
	return snapshot
}

// TotalPortfolioValue returns the shared denominator
func (t *Tracker) TotalPortfolioValue() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.totalPortfolioValueUSD
}

func (t *Tracker) sectorLocked(tag string) *Exposure {
	exp, ok := t.sectors[tag]
	if !ok {
		exp = &Exposure{
			Sector:       tag,
			Symbols:      make(map[string]struct{}),
			SoftLimitPct: t.softLimitPct,
			HardLimitPct: t.hardLimitPct,
			Status:       StatusSafe,
		}
		t.sectors[tag] = exp
	}
	return exp
}

// refreshLocked recomputes the derived exposure percentage and status
func (t *Tracker) refreshLocked(exp *Exposure) {
	if t.totalPortfolioValueUSD > 0 {
		exp.ExposurePct = exp.TotalValueUSD / t.totalPortfolioValueUSD
	} else {
		exp.ExposurePct = 0
	}

	// The critical threshold is derived (1.5x hard), so the comparison
	// tolerates float64 rounding; an exposure exactly at 1.5x is critical.
	switch {
	case exp.ExposurePct >= 1.5*exp.HardLimitPct-statusEpsilon:
		exp.Status = StatusCritical
	case exp.ExposurePct >= exp.HardLimitPct:
		exp.Status = StatusHardLimit
	case exp.ExposurePct >= exp.SoftLimitPct:
		exp.Status = StatusWarning
	default:
		exp.Status = StatusSafe
	}
}

func (t *Tracker) copyLocked(exp *Exposure) Exposure {
	c := *exp
	c.Symbols = make(map[string]struct{}, len(exp.Symbols))
	for s := range exp.Symbols {
		c.Symbols[s] = struct{}{}
	}
	return c
}

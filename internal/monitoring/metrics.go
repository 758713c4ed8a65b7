package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Gate decision metrics
	decisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_gate_decisions_total",
			Help: "Total number of trade authorization decisions",
		},
		[]string{"result", "enforced_limit"},
	)

	rejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_gate_validation_rejections_total",
			Help: "Position validations rejected, by enforced limit",
		},
		[]string{"enforced_limit"},
	)

	// State metrics
	tradingMode = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "risk_gate_trading_mode",
			Help: "Current trading mode (0=OFF, 1=DRY_RUN, 2=LIVE_PENDING, 3=LIVE_ACTIVE, 4=EMERGENCY_STOP)",
		},
	)

	portfolioRegime = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "risk_gate_portfolio_regime",
			Help: "Current portfolio regime (0=NORMAL through 5=EMERGENCY_HALT)",
		},
	)

	killSwitchActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "risk_gate_kill_switch_active",
			Help: "Whether the global kill switch is active",
		},
	)

	// Exposure metrics
	sectorExposure = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "risk_gate_sector_exposure_pct",
			Help: "Sector exposure as a fraction of portfolio value",
		},
		[]string{"sector"},
	)

	// Error metrics
	apiErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_gate_api_errors_total",
			Help: "API errors reported to the gate, by kind",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(decisionsTotal)
	prometheus.MustRegister(rejectionsTotal)
	prometheus.MustRegister(tradingMode)
	prometheus.MustRegister(portfolioRegime)
	prometheus.MustRegister(killSwitchActive)
	prometheus.MustRegister(sectorExposure)
	prometheus.MustRegister(apiErrorsTotal)
}

// MetricsHandler handles Prometheus metrics endpoint
type MetricsHandler struct{}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

// ServeHTTP serves the Prometheus metrics endpoint
func (m *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// RecordDecision records a trade authorization decision
func RecordDecision(allowed bool, enforcedLimit string) {
	result := "approved"
	if !allowed {
		result = "rejected"
	}
	decisionsTotal.WithLabelValues(result, enforcedLimit).Inc()
}

// RecordRejection records a position validation rejection
func RecordRejection(enforcedLimit string) {
	rejectionsTotal.WithLabelValues(enforcedLimit).Inc()
}

// SetTradingMode updates the current trading mode gauge
func SetTradingMode(mode int) {
	tradingMode.Set(float64(mode))
}

// SetPortfolioRegime updates the current regime gauge
func SetPortfolioRegime(regime int) {
	portfolioRegime.Set(float64(regime))
}

// SetKillSwitchActive updates the kill switch gauge
func SetKillSwitchActive(active bool) {
	if active {
		killSwitchActive.Set(1)
	} else {
		killSwitchActive.Set(0)
	}
}

// SetSectorExposure updates a sector's exposure gauge
func SetSectorExposure(sector string, exposurePct float64) {
	sectorExposure.WithLabelValues(sector).Set(exposurePct)
}

// RecordAPIError records an API error metric
func RecordAPIError(kind string) {
	apiErrorsTotal.WithLabelValues(kind).Inc()
}

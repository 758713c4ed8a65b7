package monitoring

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

var startTime = time.Now()

// HealthStatus represents the health of the risk gate
type HealthStatus struct {
	Status      string            `json:"status"`
	Timestamp   time.Time         `json:"timestamp"`
	Uptime      string            `json:"uptime"`
	TradingMode string            `json:"trading_mode"`
	Regime      string            `json:"regime"`
	KillSwitch  bool              `json:"kill_switch_active"`
	Components  map[string]string `json:"components"`
}

// StatusProvider reports the current state of a gate component.
type StatusProvider interface {
	HealthStatus() (name, status string)
}

// HealthChecker handles health check endpoints
type HealthChecker struct {
	mu          sync.RWMutex
	tradingMode string
	regime      string
	killSwitch  bool
	providers   []StatusProvider
}

// NewHealthChecker creates a new health checker
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		tradingMode: "OFF",
		regime:      "NORMAL",
	}
}

// Register adds a component status provider.
func (h *HealthChecker) Register(p StatusProvider) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.providers = append(h.providers, p)
}

// UpdateState records the latest mode, regime and kill switch state.
func (h *HealthChecker) UpdateState(mode, regime string, killSwitch bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tradingMode = mode
	h.regime = regime
	h.killSwitch = killSwitch
}

// ServeHTTP serves the health check endpoint
func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	status := HealthStatus{
		Status:      "healthy",
		Timestamp:   time.Now().UTC(),
		Uptime:      time.Since(startTime).Round(time.Second).String(),
		TradingMode: h.tradingMode,
		Regime:      h.regime,
		KillSwitch:  h.killSwitch,
		Components:  make(map[string]string),
	}
	for _, p := range h.providers {
		name, s := p.HealthStatus()
		status.Components[name] = s
	}
	h.mu.RUnlock()

	if status.KillSwitch {
		status.Status = "halted"
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		http.Error(w, fmt.Sprintf("failed to encode health status: %v", err), http.StatusInternalServerError)
	}
}

// StartServer starts the monitoring HTTP server with health and metrics endpoints
func StartServer(healthPort, metricsPort int, checker *HealthChecker) error {
	healthMux := http.NewServeMux()
	healthMux.Handle("/health", checker)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", NewMetricsHandler())

	errCh := make(chan error, 2)
	go func() {
		errCh <- http.ListenAndServe(fmt.Sprintf(":%d", healthPort), healthMux)
	}()
	go func() {
		errCh <- http.ListenAndServe(fmt.Sprintf(":%d", metricsPort), metricsMux)
	}()
	return <-errCh
}

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ducminhle1904/trading-risk-gate/cmd/common"
	"github.com/ducminhle1904/trading-risk-gate/internal/audit"
	"github.com/ducminhle1904/trading-risk-gate/internal/config"
	"github.com/ducminhle1904/trading-risk-gate/internal/controls"
	"github.com/ducminhle1904/trading-risk-gate/internal/enforcer"
	"github.com/ducminhle1904/trading-risk-gate/internal/killswitch"
	"github.com/ducminhle1904/trading-risk-gate/internal/logger"
	"github.com/ducminhle1904/trading-risk-gate/internal/monitoring"
	"github.com/ducminhle1904/trading-risk-gate/internal/regime"
	"github.com/ducminhle1904/trading-risk-gate/internal/sector"
	"github.com/ducminhle1904/trading-risk-gate/internal/state"
	"github.com/ducminhle1904/trading-risk-gate/internal/statemachine"
)

func main() {
	var (
		envFile     = flag.String("env", ".env", "Environment file path (default: .env)")
		demo        = flag.Bool("demo", false, "Run a scripted authorization walkthrough and exit")
		showVersion = flag.Bool("version", false, "Print version and exit")
	)
	flag.Parse()

	if *showVersion {
		common.PrintVersion("risk-gate")
		return
	}

	if err := common.LoadEnvFile(*envFile); err != nil {
		log.Printf("Warning: could not load env file: %v", err)
	}

	cfg := config.Load()

	common.Header("Risk Gate Starting")
	common.Info("Environment: %s", cfg.Environment)
	common.Info("State dir:   %s", cfg.StateDir)
	if !cfg.LiveCapitalVerified {
		common.Warn("LIVE_CAPITAL_VERIFIED is not set - all trading disabled")
	}

	store, err := state.NewStore(cfg.StateDir)
	if err != nil {
		log.Fatalf("Failed to open state directory: %v", err)
	}

	gateLog, err := logger.NewLogger(cfg.LogDir, "risk-gate")
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer gateLog.Close()

	sink := audit.NewFileSink(store, gateLog)

	machine := statemachine.New(store, gateLog, sink)
	ks := killswitch.New(store, gateLog, machine)
	tracker := sector.NewTracker(gateLog)
	regimes := regime.New(store, gateLog, sink, tracker)

	if *demo {
		// The walkthrough needs verified capital so approvals are reachable.
		gate := controls.New(true, ks, machine, regimes, tracker, nil, sink, gateLog)
		runDemo(gate, machine, tracker)
		return
	}

	if ks.IsActive() {
		common.Warn("Kill switch is ACTIVE - trading halted")
	}

	conditions := newFileConditionsProvider(cfg.StateDir)
	positions := newFilePositionsProvider(cfg.StateDir)
	enf := enforcer.New(regimes, tracker, machine, ks, conditions, positions,
		cfg.Enforcer.RegimeEvalInterval, cfg.Enforcer.PositionPollInterval, gateLog)

	checker := monitoring.NewHealthChecker()
	go func() {
		if err := monitoring.StartServer(cfg.Monitoring.HealthPort, cfg.Monitoring.PrometheusPort, checker); err != nil {
			gateLog.Error("Monitoring server stopped: %v", err)
		}
	}()
	machine.RegisterCallback(statemachine.ModeEmergencyStop, func(statemachine.TradingMode) {
		checker.UpdateState(machine.Mode().String(), regimes.Current().String(), ks.IsActive())
	})
	checker.UpdateState(machine.Mode().String(), regimes.Current().String(), ks.IsActive())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		for advisory := range enf.Advisories() {
			gateLog.Warning("Reduction advisory: regime %s, deployed $%.2f above target $%.2f",
				advisory.Regime, advisory.CurrentValueUSD, advisory.TargetValueUSD)
		}
	}()

	go enf.Run(ctx)

	common.Success("Risk gate running (mode: %s, regime: %s)", machine.Mode(), regimes.Current())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	common.Info("Received %s, shutting down", sig)
	cancel()
}

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ducminhle1904/trading-risk-gate/cmd/common"
	"github.com/ducminhle1904/trading-risk-gate/internal/killswitch"
	"github.com/ducminhle1904/trading-risk-gate/internal/logger"
	"github.com/ducminhle1904/trading-risk-gate/internal/state"
)

// defaultStateDir matches the daemon's STATE_DIR default so out-of-band
// activation hits the directory the gate watches.
const defaultStateDir = "state"

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: killswitch <command> [flags]

Commands:
  activate    Trip the kill switch (halts all trading immediately)
  deactivate  Clear the kill switch after manual review
  status      Show current kill switch state and history

Flags:
`)
	flag.PrintDefaults()
}

func main() {
	var (
		stateDir    = flag.String("state-dir", defaultStateDir, "State directory of the risk gate")
		logDir      = flag.String("log-dir", "logs", "Log directory")
		reason      = flag.String("reason", "", "Reason for the action (required for activate/deactivate)")
		envFile     = flag.String("env", ".env", "Environment file path (default: .env)")
		showVersion = flag.Bool("version", false, "Print version and exit")
	)
	flag.Usage = usage
	flag.Parse()

	if *showVersion {
		common.PrintVersion("killswitch")
		return
	}

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}
	command := flag.Arg(0)

	if err := common.LoadEnvFile(*envFile); err != nil {
		log.Printf("Warning: could not load env file: %v", err)
	}
	if dir := os.Getenv("STATE_DIR"); dir != "" && *stateDir == defaultStateDir {
		*stateDir = dir
	}

	store, err := state.NewStore(*stateDir)
	if err != nil {
		common.Error("Failed to open state directory: %v", err)
		os.Exit(1)
	}

	fileLog, err := logger.NewLogger(*logDir, "killswitch-cli")
	if err != nil {
		common.Error("Failed to open log file: %v", err)
		os.Exit(1)
	}
	defer fileLog.Close()

	// No trading state machine runs in this process; the gate process
	// observes the sentinel file on its next IsActive check.
	ks := killswitch.New(store, fileLog, nil)

	switch command {
	case "activate":
		if *reason == "" {
			common.Error("activate requires -reason")
			os.Exit(2)
		}
		ks.Activate(*reason, "cli")
		common.Success("Kill switch ACTIVATED: %s", *reason)
		common.Warn("All trading is halted until the switch is deactivated")

	case "deactivate":
		if *reason == "" {
			common.Error("deactivate requires -reason")
			os.Exit(2)
		}
		ks.Deactivate(*reason)
		if ks.IsActive() {
			common.Error("Kill switch is still active (sentinel file could not be removed?)")
			os.Exit(1)
		}
		common.Success("Kill switch deactivated: %s", *reason)

	case "status":
		printStatus(ks)

	default:
		common.Error("Unknown command: %s", command)
		usage()
		os.Exit(2)
	}
}

func printStatus(ks *killswitch.Switch) {
	common.Header("Kill Switch Status")

	if ks.IsActive() {
		common.Warn("Status: ACTIVE - all trading halted")
	} else {
		common.Success("Status: inactive")
	}
	common.Info("Sentinel path: %s", ks.SentinelPath())

	history := ks.History()
	if len(history) == 0 {
		common.Info("No activation history")
		return
	}

	common.Section("History")
	for _, rec := range history {
		fmt.Printf("  %s  %-11s  %-8s  %s\n",
			rec.Timestamp.Format(time.RFC3339), rec.Action, rec.Source, rec.Reason)
	}
}

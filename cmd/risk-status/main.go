package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ducminhle1904/trading-risk-gate/cmd/common"
	"github.com/ducminhle1904/trading-risk-gate/internal/killswitch"
	"github.com/ducminhle1904/trading-risk-gate/pkg/reporting"
)

// defaultStateDir matches the daemon's STATE_DIR default so the status CLI
// reads the directory the gate writes.
const defaultStateDir = "state"

// persisted file shapes as written by the gate components
type modeState struct {
	CurrentState string `json:"current_state"`
	History      []struct {
		From      string    `json:"from"`
		To        string    `json:"to"`
		Reason    string    `json:"reason"`
		Timestamp time.Time `json:"timestamp"`
	} `json:"history"`
	LastUpdated time.Time `json:"last_updated"`
}

type regimeState struct {
	CurrentState     string `json:"current_state"`
	MarketConditions struct {
		Volatility             float64 `json:"volatility"`
		Drawdown               float64 `json:"drawdown"`
		LiquidityScore         float64 `json:"liquidity_score"`
		AvgCorrelation         float64 `json:"avg_correlation"`
		SectorConcentrationPct float64 `json:"sector_concentration_pct"`
		PnL7dPct               float64 `json:"pnl_7d_pct"`
	} `json:"market_conditions"`
	LastUpdated time.Time `json:"last_updated"`
}

type killState struct {
	IsActive    bool                `json:"is_active"`
	History     []killswitch.Record `json:"history"`
	LastUpdated time.Time           `json:"last_updated"`
}

func main() {
	var (
		stateDir    = flag.String("state-dir", defaultStateDir, "State directory of the risk gate")
		envFile     = flag.String("env", ".env", "Environment file path (default: .env)")
		exportXLSX  = flag.String("export", "", "Export the audit trail to an Excel file at this path")
		showVersion = flag.Bool("version", false, "Print version and exit")
	)
	flag.Parse()

	if *showVersion {
		common.PrintVersion("risk-status")
		return
	}

	if err := common.LoadEnvFile(*envFile); err != nil {
		log.Printf("Warning: could not load env file: %v", err)
	}
	if dir := os.Getenv("STATE_DIR"); dir != "" && *stateDir == defaultStateDir {
		*stateDir = dir
	}

	common.Header("Risk Gate Status")

	printModeTable(*stateDir)
	printRegimeTable(*stateDir)
	printKillSwitchTable(*stateDir)

	if *exportXLSX != "" {
		report, err := reporting.LoadAuditReport(*stateDir)
		if err != nil {
			common.Error("Failed to load audit trail: %v", err)
			os.Exit(1)
		}
		exporter := reporting.NewAuditExcelReporter()
		if err := exporter.WriteAuditXLSX(report, *exportXLSX); err != nil {
			common.Error("Failed to write audit workbook: %v", err)
			os.Exit(1)
		}
		common.Success("Audit trail exported to %s (%d validations, %d transitions)",
			*exportXLSX, len(report.Validations), len(report.Transitions))
	}
}

func printModeTable(stateDir string) {
	var persisted modeState
	if !loadJSON(filepath.Join(stateDir, "trading_mode.json"), &persisted) {
		common.Warn("No persisted trading mode (gate starts OFF)")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("TRADING MODE")
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"🚦 Mode", persisted.CurrentState},
		{"🕒 Last Updated", persisted.LastUpdated.Format(time.RFC3339)},
		{"📜 Transitions", len(persisted.History)},
	})
	if n := len(persisted.History); n > 0 {
		last := persisted.History[n-1]
		t.AppendRow(table.Row{"↪️ Last Transition",
			fmt.Sprintf("%s → %s (%s)", last.From, last.To, last.Reason)})
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 18, WidthMax: 18, Align: text.AlignLeft},
		{Number: 2, WidthMin: 30, WidthMax: 60, Align: text.AlignLeft},
	})

	t.Render()
	fmt.Println()
}

func printRegimeTable(stateDir string) {
	var persisted regimeState
	if !loadJSON(filepath.Join(stateDir, "portfolio_regime.json"), &persisted) {
		common.Warn("No persisted regime (gate starts NORMAL)")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("PORTFOLIO REGIME")
	t.SetStyle(table.StyleRounded)

	c := persisted.MarketConditions
	t.AppendRows([]table.Row{
		{"🌡️ Regime", persisted.CurrentState},
		{"📉 Drawdown", fmt.Sprintf("%.1f%%", c.Drawdown*100)},
		{"📊 Volatility", fmt.Sprintf("%.1f%%", c.Volatility*100)},
		{"💧 Liquidity", fmt.Sprintf("%.2f", c.LiquidityScore)},
		{"🔗 Avg Correlation", fmt.Sprintf("%.2f", c.AvgCorrelation)},
		{"📈 7d PnL", fmt.Sprintf("%.1f%%", c.PnL7dPct*100)},
		{"🕒 Last Updated", persisted.LastUpdated.Format(time.RFC3339)},
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 18, WidthMax: 18, Align: text.AlignLeft},
		{Number: 2, WidthMin: 30, WidthMax: 60, Align: text.AlignLeft},
	})

	t.Render()
	fmt.Println()
}

func printKillSwitchTable(stateDir string) {
	sentinelPresent := false
	if _, err := os.Stat(filepath.Join(stateDir, killswitch.SentinelFileName)); err == nil {
		sentinelPresent = true
	}

	var persisted killState
	hasState := loadJSON(filepath.Join(stateDir, "kill_switch.json"), &persisted)

	active := sentinelPresent || (hasState && persisted.IsActive)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("KILL SWITCH")
	t.SetStyle(table.StyleRounded)

	status := "✅ inactive"
	if active {
		status = "🛑 ACTIVE"
	}
	t.AppendRows([]table.Row{
		{"Status", status},
		{"Sentinel File", fmt.Sprintf("%v", sentinelPresent)},
		{"History Entries", len(persisted.History)},
	})
	if n := len(persisted.History); n > 0 {
		last := persisted.History[n-1]
		t.AppendRow(table.Row{"Last Action",
			fmt.Sprintf("%s by %s (%s)", last.Action, last.Source, last.Reason)})
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 18, WidthMax: 18, Align: text.AlignLeft},
		{Number: 2, WidthMin: 30, WidthMax: 60, Align: text.AlignLeft},
	})

	t.Render()
	fmt.Println()
}

func loadJSON(path string, v interface{}) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		common.Error("Corrupt state file %s: %v", path, err)
		return false
	}
	return true
}

package main

import (
	"fmt"

	"github.com/ducminhle1904/trading-risk-gate/cmd/common"
	"github.com/ducminhle1904/trading-risk-gate/internal/controls"
	"github.com/ducminhle1904/trading-risk-gate/internal/sector"
	"github.com/ducminhle1904/trading-risk-gate/internal/statemachine"
)

// runDemo walks a few representative trade requests through the full
// authorization pipeline so operators can see the gate's decisions without
// wiring a platform.
func runDemo(gate *controls.HardControls, machine *statemachine.Machine, tracker *sector.Tracker) {
	common.Header("Authorization Walkthrough")

	if err := machine.TransitionTo(statemachine.ModeDryRun, "demo walkthrough"); err != nil {
		common.Warn("Could not enter DRY_RUN: %v", err)
	}

	tracker.UpdatePortfolioValue(100000)
	tracker.ResyncPositions([]sector.Position{
		{Symbol: "BTC", ValueUSD: 12000},
		{Symbol: "ETH", ValueUSD: 6000},
		{Symbol: "SOL", ValueUSD: 4000},
	})

	requests := []struct {
		label string
		req   controls.TradeRequest
	}{
		{"5% position, healthy balance", controls.TradeRequest{
			UserID: "demo-user", Symbol: "SOL", RequestedUSD: 500, BalanceUSD: 10000}},
		{"below 2% floor", controls.TradeRequest{
			UserID: "demo-user", Symbol: "ETH", RequestedUSD: 100, BalanceUSD: 10000}},
		{"above 15% absolute cap", controls.TradeRequest{
			UserID: "demo-user", Symbol: "BTC", RequestedUSD: 2000, BalanceUSD: 10000}},
		{"above $10k absolute cap", controls.TradeRequest{
			UserID: "whale", Symbol: "BTC", RequestedUSD: 11000, BalanceUSD: 200000}},
		{"sector already saturated", controls.TradeRequest{
			UserID: "demo-user", Symbol: "ETH", RequestedUSD: 9000, BalanceUSD: 100000}},
	}

	for _, tc := range requests {
		decision := gate.AuthorizeTrade(tc.req)
		verdict := "✅ APPROVED"
		if !decision.Allowed {
			verdict = fmt.Sprintf("❌ REJECTED [%s] %s", decision.EnforcedLimit, decision.Reason)
		}
		fmt.Printf("  %-28s $%8.2f / $%9.2f  %s\n",
			tc.label, tc.req.RequestedUSD, tc.req.BalanceUSD, verdict)
	}

	common.Section("Validation audit trail")
	for _, rec := range gate.ValidationHistory() {
		status := "approved"
		if !rec.Approved {
			status = "rejected: " + rec.RejectionReason
		}
		fmt.Printf("  %s %s $%.2f -> %s\n", rec.UserID, rec.Symbol, rec.RequestedUSD, status)
	}
}

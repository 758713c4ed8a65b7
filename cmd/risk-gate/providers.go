package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ducminhle1904/trading-risk-gate/internal/regime"
	"github.com/ducminhle1904/trading-risk-gate/internal/sector"
)

// File-drop providers: the market-data and portfolio collaborators run in
// separate processes and publish snapshots as JSON files into the state
// directory. The gate only ever reads them.

const (
	conditionsFileName = "market_conditions.json"
	positionsFileName  = "portfolio_positions.json"
)

type fileConditionsProvider struct {
	path string
}

func newFileConditionsProvider(stateDir string) *fileConditionsProvider {
	return &fileConditionsProvider{path: filepath.Join(stateDir, conditionsFileName)}
}

func (p *fileConditionsProvider) CurrentConditions(_ context.Context) (regime.MarketConditions, error) {
	var conditions regime.MarketConditions
	data, err := os.ReadFile(p.path)
	if err != nil {
		return conditions, fmt.Errorf("no market conditions snapshot at %s: %w", p.path, err)
	}
	if err := json.Unmarshal(data, &conditions); err != nil {
		return conditions, fmt.Errorf("corrupt market conditions snapshot: %w", err)
	}
	return conditions, nil
}

type filePositionsProvider struct {
	path string
}

func newFilePositionsProvider(stateDir string) *filePositionsProvider {
	return &filePositionsProvider{path: filepath.Join(stateDir, positionsFileName)}
}

type positionsSnapshot struct {
	TotalPortfolioUSD float64 `json:"total_portfolio_usd"`
	Positions         []struct {
		Symbol   string  `json:"symbol"`
		ValueUSD float64 `json:"value_usd"`
	} `json:"positions"`
}

func (p *filePositionsProvider) CurrentPositions(_ context.Context) ([]sector.Position, float64, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil, 0, fmt.Errorf("no position snapshot at %s: %w", p.path, err)
	}

	var snapshot positionsSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, 0, fmt.Errorf("corrupt position snapshot: %w", err)
	}

	positions := make([]sector.Position, 0, len(snapshot.Positions))
	for _, pos := range snapshot.Positions {
		positions = append(positions, sector.Position{Symbol: pos.Symbol, ValueUSD: pos.ValueUSD})
	}
	return positions, snapshot.TotalPortfolioUSD, nil
}

package reporting

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ducminhle1904/trading-risk-gate/internal/audit"
	"github.com/ducminhle1904/trading-risk-gate/internal/killswitch"
	"github.com/ducminhle1904/trading-risk-gate/internal/logger"
	"github.com/ducminhle1904/trading-risk-gate/internal/state"
)

func sampleReport() AuditReport {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return AuditReport{
		Validations: []audit.PositionValidationRecord{
			{UserID: "alice", Symbol: "BTC", RequestedUSD: 500, BalanceUSD: 10000,
				PositionPct: 0.05, Approved: true, Timestamp: now},
			{UserID: "bob", Symbol: "ETH", RequestedUSD: 11000, BalanceUSD: 100000,
				PositionPct: 0.11, Approved: false,
				RejectionReason: "over cap", EnforcedLimit: "ABSOLUTE_MAX_POSITION_USD", Timestamp: now},
		},
		Transitions: []audit.TransitionRecord{
			{Machine: "trading_mode", From: "OFF", To: "DRY_RUN", Reason: "paper", Timestamp: now},
		},
		KillSwitch: []killswitch.Record{
			{Action: "ACTIVATED", Reason: "incident", Source: "manual", Timestamp: now},
		},
	}
}

// TestWriteAuditXLSX_CreatesWorkbook tests the exported workbook structure
// and a few cell values
func TestWriteAuditXLSX_CreatesWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "audit.xlsx")

	reporter := NewAuditExcelReporter()
	require.NoError(t, reporter.WriteAuditXLSX(sampleReport(), path))

	fx, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer fx.Close()

	assert.ElementsMatch(t, []string{"Validations", "Transitions", "Kill Switch"}, fx.GetSheetList())

	user, err := fx.GetCellValue("Validations", "B2")
	require.NoError(t, err)
	assert.Equal(t, "alice", user)

	result, err := fx.GetCellValue("Validations", "G3")
	require.NoError(t, err)
	assert.Equal(t, "REJECTED", result)

	to, err := fx.GetCellValue("Transitions", "D2")
	require.NoError(t, err)
	assert.Equal(t, "DRY_RUN", to)

	action, err := fx.GetCellValue("Kill Switch", "B2")
	require.NoError(t, err)
	assert.Equal(t, "ACTIVATED", action)
}

// TestWriteAuditXLSX_EmptyReport tests that empty trails still produce a
// valid workbook
func TestWriteAuditXLSX_EmptyReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.xlsx")

	reporter := NewAuditExcelReporter()
	require.NoError(t, reporter.WriteAuditXLSX(AuditReport{}, path))

	fx, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer fx.Close()

	header, err := fx.GetCellValue("Validations", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Timestamp", header)
}

// TestLoadAuditReport_RoundTrip tests loading the audit trail the gate
// components persist
func TestLoadAuditReport_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := state.NewStore(dir)
	require.NoError(t, err)
	log := logger.NewDiscardLogger()

	sink := audit.NewFileSink(store, log)
	sink.RecordValidation(audit.PositionValidationRecord{UserID: "alice", Symbol: "BTC", Approved: true})
	sink.RecordTransition(audit.TransitionRecord{Machine: "trading_mode", From: "OFF", To: "DRY_RUN"})

	ks := killswitch.New(store, log, nil)
	ks.Activate("incident", "test")

	report, err := LoadAuditReport(dir)
	require.NoError(t, err)

	require.Len(t, report.Validations, 1)
	assert.Equal(t, "alice", report.Validations[0].UserID)
	require.Len(t, report.Transitions, 1)
	assert.Equal(t, "DRY_RUN", report.Transitions[0].To)
	require.Len(t, report.KillSwitch, 1)
	assert.Equal(t, "ACTIVATED", report.KillSwitch[0].Action)
}

// TestLoadAuditReport_MissingFiles tests that an empty state dir loads an
// empty report
func TestLoadAuditReport_MissingFiles(t *testing.T) {
	report, err := LoadAuditReport(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, report.Validations)
	assert.Empty(t, report.Transitions)
	assert.Empty(t, report.KillSwitch)
}

package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ducminhle1904/trading-risk-gate/internal/audit"
	"github.com/ducminhle1904/trading-risk-gate/internal/killswitch"
)

// AuditExcelReporter writes the gate's audit trail to a multi-sheet
// Excel workbook for compliance review.
type AuditExcelReporter struct{}

// NewAuditExcelReporter creates a new audit Excel reporter
func NewAuditExcelReporter() *AuditExcelReporter {
	return &AuditExcelReporter{}
}

// ExcelStyles holds reusable cell style IDs for one workbook
type ExcelStyles struct {
	HeaderStyle   int
	CurrencyStyle int
	PercentStyle  int
	RejectedStyle int
	ApprovedStyle int
}

// AuditReport bundles the records exported into one workbook
type AuditReport struct {
	Validations []audit.PositionValidationRecord
	Transitions []audit.TransitionRecord
	KillSwitch  []killswitch.Record
}

// WriteAuditXLSX writes the full audit trail to an Excel file
func (r *AuditExcelReporter) WriteAuditXLSX(report AuditReport, path string) error {
	// Ensure directory exists before creating file
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	const validationsSheet = "Validations"
	const transitionsSheet = "Transitions"
	const killSwitchSheet = "Kill Switch"

	fx.SetSheetName(fx.GetSheetName(0), validationsSheet)
	fx.NewSheet(transitionsSheet)
	fx.NewSheet(killSwitchSheet)

	styles, err := r.createExcelStyles(fx)
	if err != nil {
		return err
	}

	if err := r.writeValidationsSheet(fx, validationsSheet, report.Validations, styles); err != nil {
		return err
	}

	if err := r.writeTransitionsSheet(fx, transitionsSheet, report.Transitions, styles); err != nil {
		return err
	}

	if err := r.writeKillSwitchSheet(fx, killSwitchSheet, report.KillSwitch, styles); err != nil {
		return err
	}

	return fx.SaveAs(path)
}

// createExcelStyles creates all Excel styles used by the audit sheets
func (r *AuditExcelReporter) createExcelStyles(fx *excelize.File) (ExcelStyles, error) {
	var styles ExcelStyles
	var err error

	// Header style - Dark blue background with white text
	styles.HeaderStyle, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold:   true,
			Size:   11,
			Color:  "FFFFFF",
			Family: "Calibri",
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"2F4F4F"}, // Dark slate gray
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return styles, err
	}

	// Currency style (right aligned, $ format)
	styles.CurrencyStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt: 7,
		Alignment: &excelize.Alignment{
			Horizontal: "right",
		},
		Border: []excelize.Border{
			{Type: "left", Color: "E0E0E0", Style: 1},
			{Type: "right", Color: "E0E0E0", Style: 1},
			{Type: "bottom", Color: "E0E0E0", Style: 1},
		},
	})
	if err != nil {
		return styles, err
	}

	// Percentage style (right aligned, % format)
	styles.PercentStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt: 10,
		Alignment: &excelize.Alignment{
			Horizontal: "right",
		},
		Border: []excelize.Border{
			{Type: "left", Color: "E0E0E0", Style: 1},
			{Type: "right", Color: "E0E0E0", Style: 1},
			{Type: "bottom", Color: "E0E0E0", Style: 1},
		},
	})
	if err != nil {
		return styles, err
	}

	// Red text for rejected requests
	styles.RejectedStyle, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Color: "FF0000",
			Bold:  true,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
		},
	})
	if err != nil {
		return styles, err
	}

	// Green text for approved requests
	styles.ApprovedStyle, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Color: "008000",
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
		},
	})
	return styles, err
}

func (r *AuditExcelReporter) writeValidationsSheet(fx *excelize.File, sheet string, records []audit.PositionValidationRecord, styles ExcelStyles) error {
	headers := []string{"Timestamp", "User", "Symbol", "Requested (USD)", "Balance (USD)", "Position %", "Result", "Enforced Limit", "Reason"}
	if err := r.writeHeaderRow(fx, sheet, headers, styles); err != nil {
		return err
	}

	for i, rec := range records {
		row := i + 2
		result := "APPROVED"
		resultStyle := styles.ApprovedStyle
		if !rec.Approved {
			result = "REJECTED"
			resultStyle = styles.RejectedStyle
		}

		fx.SetCellValue(sheet, fmt.Sprintf("A%d", row), rec.Timestamp.Format(time.RFC3339))
		fx.SetCellValue(sheet, fmt.Sprintf("B%d", row), rec.UserID)
		fx.SetCellValue(sheet, fmt.Sprintf("C%d", row), rec.Symbol)
		fx.SetCellValue(sheet, fmt.Sprintf("D%d", row), rec.RequestedUSD)
		fx.SetCellValue(sheet, fmt.Sprintf("E%d", row), rec.BalanceUSD)
		fx.SetCellValue(sheet, fmt.Sprintf("F%d", row), rec.PositionPct)
		fx.SetCellValue(sheet, fmt.Sprintf("G%d", row), result)
		fx.SetCellValue(sheet, fmt.Sprintf("H%d", row), rec.EnforcedLimit)
		fx.SetCellValue(sheet, fmt.Sprintf("I%d", row), rec.RejectionReason)

		fx.SetCellStyle(sheet, fmt.Sprintf("D%d", row), fmt.Sprintf("E%d", row), styles.CurrencyStyle)
		fx.SetCellStyle(sheet, fmt.Sprintf("F%d", row), fmt.Sprintf("F%d", row), styles.PercentStyle)
		fx.SetCellStyle(sheet, fmt.Sprintf("G%d", row), fmt.Sprintf("G%d", row), resultStyle)
	}

	return r.autoSizeColumns(fx, sheet, len(headers))
}

func (r *AuditExcelReporter) writeTransitionsSheet(fx *excelize.File, sheet string, records []audit.TransitionRecord, styles ExcelStyles) error {
	headers := []string{"Timestamp", "Machine", "From", "To", "Reason"}
	if err := r.writeHeaderRow(fx, sheet, headers, styles); err != nil {
		return err
	}

	for i, rec := range records {
		row := i + 2
		fx.SetCellValue(sheet, fmt.Sprintf("A%d", row), rec.Timestamp.Format(time.RFC3339))
		fx.SetCellValue(sheet, fmt.Sprintf("B%d", row), rec.Machine)
		fx.SetCellValue(sheet, fmt.Sprintf("C%d", row), rec.From)
		fx.SetCellValue(sheet, fmt.Sprintf("D%d", row), rec.To)
		fx.SetCellValue(sheet, fmt.Sprintf("E%d", row), rec.Reason)
	}

	return r.autoSizeColumns(fx, sheet, len(headers))
}

func (r *AuditExcelReporter) writeKillSwitchSheet(fx *excelize.File, sheet string, records []killswitch.Record, styles ExcelStyles) error {
	headers := []string{"Timestamp", "Action", "Source", "Reason"}
	if err := r.writeHeaderRow(fx, sheet, headers, styles); err != nil {
		return err
	}

	for i, rec := range records {
		row := i + 2
		fx.SetCellValue(sheet, fmt.Sprintf("A%d", row), rec.Timestamp.Format(time.RFC3339))
		fx.SetCellValue(sheet, fmt.Sprintf("B%d", row), rec.Action)
		fx.SetCellValue(sheet, fmt.Sprintf("C%d", row), rec.Source)
		fx.SetCellValue(sheet, fmt.Sprintf("D%d", row), rec.Reason)

		if rec.Action == "ACTIVATED" {
			fx.SetCellStyle(sheet, fmt.Sprintf("B%d", row), fmt.Sprintf("B%d", row), styles.RejectedStyle)
		}
	}

	return r.autoSizeColumns(fx, sheet, len(headers))
}

func (r *AuditExcelReporter) writeHeaderRow(fx *excelize.File, sheet string, headers []string, styles ExcelStyles) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		fx.SetCellValue(sheet, cell, h)
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	return fx.SetCellStyle(sheet, "A1", last, styles.HeaderStyle)
}

func (r *AuditExcelReporter) autoSizeColumns(fx *excelize.File, sheet string, count int) error {
	for i := 1; i <= count; i++ {
		col, err := excelize.ColumnNumberToName(i)
		if err != nil {
			return err
		}
		if err := fx.SetColWidth(sheet, col, col, 22); err != nil {
			return err
		}
	}
	return nil
}

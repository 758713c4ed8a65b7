package reporting

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ducminhle1904/trading-risk-gate/internal/audit"
	"github.com/ducminhle1904/trading-risk-gate/internal/killswitch"
)

// LoadAuditReport reads the JSONL audit logs and the kill switch state
// from the state directory into an AuditReport. Missing files are not
// an error; the corresponding sheet is simply left empty.
func LoadAuditReport(stateDir string) (AuditReport, error) {
	var report AuditReport

	if err := readJSONLines(filepath.Join(stateDir, "validation_audit.jsonl"), func(line []byte) error {
		var rec audit.PositionValidationRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return err
		}
		report.Validations = append(report.Validations, rec)
		return nil
	}); err != nil {
		return report, fmt.Errorf("failed to read validation audit log: %w", err)
	}

	if err := readJSONLines(filepath.Join(stateDir, "transition_audit.jsonl"), func(line []byte) error {
		var rec audit.TransitionRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return err
		}
		report.Transitions = append(report.Transitions, rec)
		return nil
	}); err != nil {
		return report, fmt.Errorf("failed to read transition audit log: %w", err)
	}

	ksPath := filepath.Join(stateDir, "kill_switch.json")
	if data, err := os.ReadFile(ksPath); err == nil {
		var persisted struct {
			History []killswitch.Record `json:"history"`
		}
		if err := json.Unmarshal(data, &persisted); err != nil {
			return report, fmt.Errorf("failed to parse kill switch state: %w", err)
		}
		report.KillSwitch = persisted.History
	} else if !os.IsNotExist(err) {
		return report, fmt.Errorf("failed to read kill switch state: %w", err)
	}

	return report, nil
}

func readJSONLines(path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := fn(line); err != nil {
			return err
		}
	}
	return scanner.Err()
}

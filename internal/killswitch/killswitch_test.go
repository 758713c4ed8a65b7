package killswitch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/trading-risk-gate/internal/logger"
	"github.com/ducminhle1904/trading-risk-gate/internal/state"
)

type stopRecorder struct {
	reasons []string
}

func (r *stopRecorder) EmergencyStop(reason string) error {
	r.reasons = append(r.reasons, reason)
	return nil
}

func newTestSwitch(t *testing.T) (*Switch, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := state.NewStore(dir)
	require.NoError(t, err)
	return New(store, logger.NewDiscardLogger(), nil), dir
}

// TestSwitch_InactiveByDefault tests the clean-start state
func TestSwitch_InactiveByDefault(t *testing.T) {
	s, _ := newTestSwitch(t)
	assert.False(t, s.IsActive())
	assert.Empty(t, s.History())
}

// TestSwitch_ActivateHaltsAndPersists tests activation: flag, sentinel file
// and state file all reflect the halt
func TestSwitch_ActivateHaltsAndPersists(t *testing.T) {
	s, dir := newTestSwitch(t)

	s.Activate("drawdown breach", "automated")

	assert.True(t, s.IsActive())

	_, err := os.Stat(filepath.Join(dir, SentinelFileName))
	assert.NoError(t, err, "sentinel file must exist after activation")

	history := s.History()
	require.Len(t, history, 1)
	assert.Equal(t, "ACTIVATED", history[0].Action)
	assert.Equal(t, "automated", history[0].Source)
}

// TestSwitch_ActivateIsIdempotent tests that repeated activation appends no
// duplicate history
func TestSwitch_ActivateIsIdempotent(t *testing.T) {
	s, _ := newTestSwitch(t)

	s.Activate("first", "manual")
	s.Activate("second", "manual")
	s.Activate("third", "automated")

	assert.True(t, s.IsActive())
	assert.Len(t, s.History(), 1)
}

// TestSwitch_DeactivateClearsEverything tests the full deactivation path
func TestSwitch_DeactivateClearsEverything(t *testing.T) {
	s, dir := newTestSwitch(t)

	s.Activate("incident", "manual")
	s.Deactivate("reviewed and resolved")

	assert.False(t, s.IsActive())

	_, err := os.Stat(filepath.Join(dir, SentinelFileName))
	assert.True(t, os.IsNotExist(err), "sentinel must be removed on deactivation")

	history := s.History()
	require.Len(t, history, 2)
	assert.Equal(t, "DEACTIVATED", history[1].Action)
}

// TestSwitch_DeactivateIsIdempotent tests that deactivating an inactive
// switch records nothing
func TestSwitch_DeactivateIsIdempotent(t *testing.T) {
	s, _ := newTestSwitch(t)

	s.Deactivate("nothing to clear")
	assert.Empty(t, s.History())
}

// TestSwitch_ExternalSentinelHaltsTrading tests that a sentinel file created
// by an outside process is honored without any API call
func TestSwitch_ExternalSentinelHaltsTrading(t *testing.T) {
	s, dir := newTestSwitch(t)
	require.False(t, s.IsActive())

	require.NoError(t, os.WriteFile(filepath.Join(dir, SentinelFileName), []byte("halt"), 0644))
	assert.True(t, s.IsActive(), "externally created sentinel must halt trading")

	require.NoError(t, os.Remove(filepath.Join(dir, SentinelFileName)))
	assert.False(t, s.IsActive())
}

// TestSwitch_ActivationDrivesEmergencyStop tests the trading halter hook
func TestSwitch_ActivationDrivesEmergencyStop(t *testing.T) {
	dir := t.TempDir()
	store, err := state.NewStore(dir)
	require.NoError(t, err)

	halter := &stopRecorder{}
	s := New(store, logger.NewDiscardLogger(), halter)

	s.Activate("volatility spike", "automated")

	require.Len(t, halter.reasons, 1)
	assert.Contains(t, halter.reasons[0], "volatility spike")
}

// TestSwitch_StateSurvivesRestart tests that an active switch stays active
// across process restarts
func TestSwitch_StateSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	store, err := state.NewStore(dir)
	require.NoError(t, err)
	log := logger.NewDiscardLogger()

	s := New(store, log, nil)
	s.Activate("incident", "manual")

	restarted := New(store, log, nil)
	assert.True(t, restarted.IsActive())
	assert.Len(t, restarted.History(), 1)
}

// TestSwitch_CorruptStateFailsClosed tests that an unreadable state file
// leaves the switch active rather than silently inactive
func TestSwitch_CorruptStateFailsClosed(t *testing.T) {
	dir := t.TempDir()
	store, err := state.NewStore(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "kill_switch.json"), []byte("{corrupt"), 0644))

	s := New(store, logger.NewDiscardLogger(), nil)
	assert.True(t, s.IsActive(), "corrupt state must fail closed")
}

// TestSwitch_AssertNotActive tests the guard helper both ways
func TestSwitch_AssertNotActive(t *testing.T) {
	s, _ := newTestSwitch(t)

	assert.NoError(t, s.AssertNotActive("place order"))

	s.Activate("halt", "manual")
	assert.Error(t, s.AssertNotActive("place order"))
}

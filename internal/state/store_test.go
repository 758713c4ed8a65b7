package state

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testPayload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// TestStore_SaveAndLoad tests the basic round trip through the store
func TestStore_SaveAndLoad(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	saved := testPayload{Name: "trading_mode", Count: 7}
	require.NoError(t, store.Save("test_state", saved))

	var loaded testPayload
	require.NoError(t, store.Load("test_state", &loaded))
	assert.Equal(t, saved, loaded)
}

// TestStore_LoadMissingFile tests that a missing state file reports a clean start
func TestStore_LoadMissingFile(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	var loaded testPayload
	err = store.Load("never_saved", &loaded)
	assert.Equal(t, os.ErrNotExist, err)
}

// TestStore_SaveKeepsBackup tests that overwriting state preserves the previous version
func TestStore_SaveKeepsBackup(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Save("test_state", testPayload{Name: "first", Count: 1}))
	require.NoError(t, store.Save("test_state", testPayload{Name: "second", Count: 2}))

	backup, err := os.ReadFile(filepath.Join(dir, "test_state_backup.json"))
	require.NoError(t, err)
	assert.Contains(t, string(backup), "first")

	var loaded testPayload
	require.NoError(t, store.Load("test_state", &loaded))
	assert.Equal(t, "second", loaded.Name)
}

// TestStore_SaveLeavesNoTempFile tests that the temp file is renamed away
func TestStore_SaveLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Save("test_state", testPayload{Name: "x"}))

	_, err = os.Stat(filepath.Join(dir, "test_state.json.tmp"))
	assert.True(t, os.IsNotExist(err))
}

// TestStore_LoadCorruptFile tests that unparseable state surfaces an error
func TestStore_LoadCorruptFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{not json"), 0644))

	var loaded testPayload
	err = store.Load("broken", &loaded)
	assert.Error(t, err)
	assert.NotEqual(t, os.ErrNotExist, err)
}

// TestStore_AppendLog tests that log records accumulate one JSON line each
func TestStore_AppendLog(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.AppendLog("audit", testPayload{Name: "a", Count: 1}))
	require.NoError(t, store.AppendLog("audit", testPayload{Name: "b", Count: 2}))

	data, err := os.ReadFile(filepath.Join(dir, "audit.jsonl"))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"a"`)
	assert.Contains(t, lines[1], `"b"`)
}

// TestStore_Exists tests the presence check
func TestStore_Exists(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	assert.False(t, store.Exists("test_state"))
	require.NoError(t, store.Save("test_state", testPayload{}))
	assert.True(t, store.Exists("test_state"))
}

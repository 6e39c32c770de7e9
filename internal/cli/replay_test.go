package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZSmain/ordo/internal/actions"
	"github.com/ZSmain/ordo/internal/store"
	"github.com/ZSmain/ordo/internal/testutil"
)

// seedStore writes a store file with a few committed events and closes
// it, returning the path for the commands under test to reopen.
func seedStore(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "u1.db")
	s, err := store.Open(path, "u1")
	require.NoError(t, err)

	clock := testutil.NewWallClock(time.UnixMilli(1700000000000))
	a := actions.New(s,
		actions.WithIDGenerator(testutil.NewSeqIDs("ev")),
		actions.WithNow(clock.Now))

	cat, err := a.CreateCategory(context.Background(), actions.CategoryInput{
		Name: "Work", Color: "#3B82F6", Icon: "W"})
	require.NoError(t, err)
	act, err := a.CreateActivity(context.Background(), actions.ActivityInput{
		Name: "Writing", Icon: "P", CategoryIDs: []string{cat}})
	require.NoError(t, err)
	sess, err := a.StartSession(context.Background(), act)
	require.NoError(t, err)
	clock.Advance(125 * time.Second)
	require.NoError(t, a.StopSession(context.Background(), sess))

	require.NoError(t, s.Close())
	return path
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestReplayCommand_Deterministic(t *testing.T) {
	path := seedStore(t)

	out, err := runCommand(t, "replay", "--db", path, "--user", "u1")
	require.NoError(t, err)
	assert.Contains(t, out, "Replayed 5 event(s)")
	assert.Contains(t, out, "deterministic")
	assert.Contains(t, out, "Tables matched the log")
}

func TestReplayCommand_JSON(t *testing.T) {
	path := seedStore(t)

	out, err := runCommand(t, "replay", "--db", path, "--user", "u1", "--format", "json")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(5), data["events"])
	assert.Equal(t, true, data["deterministic"])
	assert.Equal(t, true, data["tables_current"])
}

func TestReplayCommand_MissingDatabase(t *testing.T) {
	_, err := runCommand(t, "replay", "--db", filepath.Join(t.TempDir(), "missing", "x.db"), "--user", "u1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestLogCommand_Text(t *testing.T) {
	path := seedStore(t)

	out, err := runCommand(t, "log", "--db", path, "--user", "u1")
	require.NoError(t, err)
	assert.Contains(t, out, "v1.CategoryCreated")
	assert.Contains(t, out, "v1.TimeSessionStopped")
	assert.Contains(t, out, "pending")
	assert.Contains(t, out, "5 event(s)")
}

func TestLogCommand_VerbosePayloads(t *testing.T) {
	path := seedStore(t)

	out, err := runCommand(t, "log", "--db", path, "--user", "u1", "--verbose")
	require.NoError(t, err)
	assert.Contains(t, out, `"Work"`)
}

func TestLogCommand_EmptyStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")
	s, err := store.Open(path, "u1")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	out, err := runCommand(t, "log", "--db", path, "--user", "u1")
	require.NoError(t, err)
	assert.Contains(t, out, "Event log is empty.")
}

func TestServeCommand_BadConfig(t *testing.T) {
	_, err := runCommand(t, "serve", "--config", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMissingRulesetArg(t *testing.T) {
	buf := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewRunCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(errBuf)
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestRunNonExistentRuleset(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewRunCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetIn(strings.NewReader("quit\n"))
	cmd.SetArgs([]string{"/nonexistent/ruleset.json"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load ruleset")
}

func TestRunImmediateQuit(t *testing.T) {
	tmpDir := t.TempDir()
	rulesetFile := compiledRulesetFile(t, tmpDir)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewRunCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetIn(strings.NewReader("quit\n"))
	cmd.SetArgs([]string{"--seed", "42", "--players", "alice,bob", rulesetFile})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "started")
	assert.Contains(t, output, "seed 42")
	assert.Contains(t, output, "alice")
	assert.Contains(t, output, "bob")
}

func TestRunStateCommand(t *testing.T) {
	tmpDir := t.TempDir()
	rulesetFile := compiledRulesetFile(t, tmpDir)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewRunCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetIn(strings.NewReader("state\nquit\n"))
	cmd.SetArgs([]string{rulesetFile})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "phase=")
	assert.Contains(t, output, "turn=")
	assert.Contains(t, output, "active_player=")
}

func TestRunActionsCommandRequiresPlayer(t *testing.T) {
	tmpDir := t.TempDir()
	rulesetFile := compiledRulesetFile(t, tmpDir)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewRunCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetIn(strings.NewReader("actions\nquit\n"))
	cmd.SetArgs([]string{rulesetFile})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "usage: actions <player>")
}

func TestRunUnknownCommand(t *testing.T) {
	tmpDir := t.TempDir()
	rulesetFile := compiledRulesetFile(t, tmpDir)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewRunCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetIn(strings.NewReader("bogus\nquit\n"))
	cmd.SetArgs([]string{rulesetFile})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `unknown command "bogus"`)
}

func TestRunWithDatabasePersists(t *testing.T) {
	tmpDir := t.TempDir()
	rulesetFile := compiledRulesetFile(t, tmpDir)
	dbPath := filepath.Join(tmpDir, "match.db")

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewRunCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetIn(strings.NewReader("quit\n"))
	cmd.SetArgs([]string{"--db", dbPath, rulesetFile})

	err := cmd.Execute()
	require.NoError(t, err)

	_, statErr := os.Stat(dbPath)
	assert.NoError(t, statErr, "database file should be created")
}

func TestParseTargets(t *testing.T) {
	out, err := parseTargets(nil)
	require.NoError(t, err)
	assert.Nil(t, out)

	out, err = parseTargets([]string{"hand=1,2", "board=3"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Len(t, out["hand"], 2)
	assert.Len(t, out["board"], 1)

	_, err = parseTargets([]string{"malformed"})
	require.Error(t, err)

	_, err = parseTargets([]string{"hand=notanid"})
	require.Error(t, err)
}

func TestRunHelpText(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewRunCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "interactive match")
	assert.Contains(t, output, "--seed")
	assert.Contains(t, output, "ruleset.json")
}

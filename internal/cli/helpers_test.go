package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

// resetRootCmd restores every package-level flag value and Cobra's "Changed"
// tracking, and puts the working directory back when the test ends. Call it
// at the start of every test that executes rootCmd.
func resetRootCmd(t *testing.T) {
	t.Helper()

	origDir, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Chdir(origDir) })

	flagVerbose = false
	flagQuiet = false
	flagConfig = ""
	flagDir = ""
	flagNoColor = false

	runOpts = runFlags{}
	eventsReplay = nil
	eventsContext = ""
	eventsJSON = false
	describeJSON = false
	validateStrict = false
	versionJSON = false
	consoleContext = ""
	consoleInstanceID = ""
	initFlagName = ""
	initFlagWorkflow = ""
	initFlagPrefix = "wp"
	initFlagForce = false

	rootCmd.SetArgs([]string{})
	rootCmd.SetOut(nil)
	rootCmd.SetErr(nil)

	clearChanged := func(f *pflag.Flag) { f.Changed = false }
	rootCmd.PersistentFlags().VisitAll(clearChanged)
	var walk func(*cobra.Command)
	walk = func(c *cobra.Command) {
		c.Flags().VisitAll(clearChanged)
		for _, child := range c.Commands() {
			walk(child)
		}
	}
	walk(rootCmd)
}

// noopCmdName is the name of the test-only noop subcommand.
const noopCmdName = "__test_noop"

// addNoopCmd registers a subcommand running fn so that PersistentPreRunE
// fires; Cobra only prints help for a bare root without RunE.
func addNoopCmd(t *testing.T, fn func() error) {
	t.Helper()
	noop := &cobra.Command{
		Use:    noopCmdName,
		Hidden: true,
		RunE: func(*cobra.Command, []string) error {
			if fn != nil {
				return fn()
			}
			return nil
		},
	}
	rootCmd.AddCommand(noop)
	t.Cleanup(func() { rootCmd.RemoveCommand(noop) })
}

// runCLI resets the command tree, executes args and returns what the
// command wrote to its stdout and stderr writers.
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetRootCmd(t)

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	if args == nil {
		args = []string{}
	}
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

// captureStderr runs fn with os.Stderr redirected and returns the output.
func captureStderr(t *testing.T, fn func()) string {
	t.Helper()
	orig := os.Stderr
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stderr = w
	t.Cleanup(func() { os.Stderr = orig })

	fn()

	require.NoError(t, w.Close())
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	os.Stderr = orig
	return buf.String()
}

const doorJSON = `{
  "id": "door",
  "description": "A door that can be locked with a key.",
  "initial_state": "closed",
  "states": [
    {"id": "closed", "kind": "input", "transitions": [
      {"event": "OPEN", "target": "open"},
      {"event": "LOCK", "target": "locked", "guard": {"id": "truthy", "args": {"key": "has_key"}}}
    ]},
    {"id": "open", "kind": "input", "transitions": [
      {"event": "CLOSE", "target": "closed"}
    ]},
    {"id": "locked", "kind": "terminal"}
  ]
}`

const boomJSON = `{
  "id": "boom",
  "initial_state": "armed",
  "states": [
    {"id": "armed", "kind": "input", "transitions": [
      {"event": "FIRE", "target": "gone", "action": {"id": "fail", "args": {"message": "kaput"}}}
    ]},
    {"id": "gone", "kind": "terminal"}
  ]
}`

const workspaceTOML = `[engine]
id_prefix = "t"

[definitions]
paths = ["workflows/*.json"]
`

// writeFile writes content under dir, creating parent directories.
func writeFile(t *testing.T, dir, rel, content string) string {
	t.Helper()
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// newWorkspace creates a project directory with waypoint.toml and the door
// and boom workflows, and returns its path.
func newWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "waypoint.toml", workspaceTOML)
	writeFile(t, dir, "workflows/door.json", doorJSON)
	writeFile(t, dir, "workflows/boom.json", boomJSON)
	return dir
}

package e2e_test

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

// testProject is an isolated project directory with a freshly built
// waypoint binary.
type testProject struct {
	Dir        string
	BinaryPath string
	t          *testing.T
}

// newTestProject builds the waypoint binary into a fresh temp directory.
func newTestProject(t *testing.T) *testProject {
	t.Helper()

	dir := t.TempDir()
	binary := filepath.Join(dir, "waypoint")
	if runtime.GOOS == "windows" {
		binary += ".exe"
	}
	build := exec.Command("go", "build", "-o", binary, "./cmd/waypoint")
	build.Dir = projectRoot()
	build.Env = append(os.Environ(), "CGO_ENABLED=0")
	out, err := build.CombinedOutput()
	require.NoError(t, err, "building waypoint: %s", string(out))

	return &testProject{Dir: dir, BinaryPath: binary, t: t}
}

// projectRoot returns the repository root, two directories above this file.
func projectRoot() string {
	_, thisFile, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(thisFile), "..", "..")
}

// writeFile writes content to rel under the project directory.
func (tp *testProject) writeFile(rel, content string) {
	tp.t.Helper()
	path := filepath.Join(tp.Dir, rel)
	require.NoError(tp.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(tp.t, os.WriteFile(path, []byte(content), 0o644))
}

// run creates an exec.Cmd for waypoint inside the project directory.
func (tp *testProject) run(args ...string) *exec.Cmd {
	cmd := exec.Command(tp.BinaryPath, args...)
	cmd.Dir = tp.Dir
	cmd.Env = append(os.Environ(),
		"NO_COLOR=1",
		"WAYPOINT_LOG_FORMAT=json",
	)
	return cmd
}

// runExpectSuccess runs waypoint, requires exit code 0 and returns stdout.
func (tp *testProject) runExpectSuccess(args ...string) string {
	tp.t.Helper()
	out, err := tp.run(args...).Output()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		tp.t.Fatalf("waypoint %v failed (%d):\n%s%s", args, exitErr.ExitCode(), out, exitErr.Stderr)
	}
	require.NoError(tp.t, err)
	return string(out)
}

// runExpectFailure runs waypoint and returns the combined output and the
// non-zero exit code.
func (tp *testProject) runExpectFailure(args ...string) (string, int) {
	tp.t.Helper()
	out, err := tp.run(args...).CombinedOutput()
	require.Error(tp.t, err, "waypoint %v expected to fail but succeeded:\n%s", args, string(out))
	var exitErr *exec.ExitError
	require.True(tp.t, errors.As(err, &exitErr), "expected *exec.ExitError, got %T: %v", err, err)
	return string(out), exitErr.ExitCode()
}

const ticketTOML = `id = "ticket"
description = "Support ticket triage."
initial_state = "new"

[context]
priority = "low"

[[states]]
id = "new"
kind = "input"

  [[states.transitions]]
  event = "ASSIGN"
  target = "triage"
  action = { id = "set", args = { key = "assigned", value = true } }

[[states]]
id = "triage"
kind = "auto"

  [[states.transitions]]
  target = "escalated"
  guard = { id = "equals", args = { key = "priority", value = "high" } }

  [[states.transitions]]
  target = "working"

[[states]]
id = "working"
kind = "input"

  [[states.transitions]]
  event = "RESOLVE"
  target = "closed"

[[states]]
id = "escalated"
kind = "terminal"

[[states]]
id = "closed"
kind = "terminal"
`

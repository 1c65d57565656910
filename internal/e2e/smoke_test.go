package e2e

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmokeFlow(t *testing.T) {
	home := t.TempDir()
	binaryPath := buildBinary(t)

	stdout, stderr, err := runUAP(t, binaryPath, home,
		"chain", "--offline", "--json",
		"--agents", "planner,coder,reviewer",
		"--task", "Build a todo API",
	)
	require.NoError(t, err, "stderr: %s", stderr)

	var result struct {
		SessionID  string `json:"session_id"`
		Validation struct {
			Valid bool `json:"valid"`
		} `json:"validation"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &result))
	assert.True(t, result.Validation.Valid)

	stdout, stderr, err = runUAP(t, binaryPath, home, "session", "validate", result.SessionID)
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "VALID")

	stdout, stderr, err = runUAP(t, binaryPath, home, "session", "list")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, result.SessionID)
}

func buildBinary(t *testing.T) string {
	t.Helper()

	binaryPath := filepath.Join(t.TempDir(), "uap-e2e")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/uap")
	cmd.Dir = repoRoot(t)

	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "build uap binary: %s", string(output))
	return binaryPath
}

func runUAP(t *testing.T, binaryPath, home string, args ...string) (string, string, error) {
	t.Helper()

	cmd := exec.Command(binaryPath, args...)
	cmd.Env = append(os.Environ(), "HOME="+home)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func repoRoot(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	require.NoError(t, err)
	return filepath.Clean(filepath.Join(wd, "..", ".."))
}

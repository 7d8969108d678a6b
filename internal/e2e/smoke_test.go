package e2e

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmokeFlow(t *testing.T) {
	binaryPath := buildBinary(t)

	stdout, stderr, err := runSpekter(t, binaryPath, "version")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "dev")
}

func TestRunRefusesIncompleteConfig(t *testing.T) {
	binaryPath := buildBinary(t)

	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(configPath, []byte("debug = true\n"), 0o644))

	_, stderr, err := runSpekter(t, binaryPath, "run", "--config", configPath)
	require.Error(t, err)
	assert.Contains(t, stderr, "discovery_url")
}

func TestRunRefusesMissingAccountsFile(t *testing.T) {
	binaryPath := buildBinary(t)

	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")
	config := `discovery_url = "https://manifest.example.test/endpoint"
accounts_file = "` + filepath.Join(dir, "accounts.txt") + `"
`
	require.NoError(t, os.WriteFile(configPath, []byte(config), 0o644))

	_, stderr, err := runSpekter(t, binaryPath, "run", "--config", configPath)
	require.Error(t, err)
	assert.Contains(t, stderr, "read credentials")
}

func buildBinary(t *testing.T) string {
	t.Helper()

	binaryPath := filepath.Join(t.TempDir(), "spekter-e2e")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/spekter")
	cmd.Dir = repoRoot(t)

	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "build spekter binary: %s", string(output))
	return binaryPath
}

func runSpekter(t *testing.T, binaryPath string, args ...string) (string, string, error) {
	t.Helper()

	cmd := exec.Command(binaryPath, args...)
	cmd.Env = os.Environ()

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

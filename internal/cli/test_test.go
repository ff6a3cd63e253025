package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passingScenario = `name: fund_alice
config:
  faucet:
    seed: "` + testSeed + `"
  symbols:
    MFX: mfx-id
  genesis:
    MFX: "100"
setup:
  - action: identity
    args: { alias: alice }
flow:
  - action: has
    args: { alias: alice, amount: "60", symbol: MFX }
assertions:
  - type: balance
    alias: faucet
    amount: "40"
    symbol: MFX
`

const failingScenario = `name: wrong_balance
config:
  faucet:
    seed: "` + testSeed + `"
  symbols:
    MFX: mfx-id
  genesis:
    MFX: "100"
setup:
  - action: identity
    args: { alias: alice }
flow:
  - action: has
    args: { alias: alice, amount: "60", symbol: MFX }
assertions:
  - type: balance
    alias: alice
    amount: "61"
    symbol: MFX
`

func writeScenarios(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return dir
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := execute(t, "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg")
}

func TestTestCommandNonExistentPath(t *testing.T) {
	_, err := execute(t, "test", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenario path not found")
}

func TestTestCommandEmptyDir(t *testing.T) {
	out, err := execute(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found")
}

func TestTestCommandEmptyDirJSON(t *testing.T) {
	out, err := execute(t, "--format", "json", "test", t.TempDir())
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestTestCommandPassing(t *testing.T) {
	dir := writeScenarios(t, map[string]string{"fund_alice.yaml": passingScenario})

	out, err := execute(t, "test", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ fund_alice")
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTestCommandFailing(t *testing.T) {
	dir := writeScenarios(t, map[string]string{
		"fund_alice.yaml":    passingScenario,
		"wrong_balance.yaml": failingScenario,
	})

	out, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ wrong_balance")
	assert.Contains(t, out, "Test Summary: 1 passed, 1 failed, 2 total")
}

func TestTestCommandFailingJSON(t *testing.T) {
	dir := writeScenarios(t, map[string]string{"wrong_balance.yaml": failingScenario})

	out, err := execute(t, "--format", "json", "test", dir)
	require.Error(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.False(t, resp.Data.Scenarios[0].Pass)
	assert.NotEmpty(t, resp.Data.Scenarios[0].Errors)
}

func TestTestCommandFilter(t *testing.T) {
	dir := writeScenarios(t, map[string]string{
		"fund_alice.yaml":    passingScenario,
		"wrong_balance.yaml": failingScenario,
	})

	out, err := execute(t, "test", dir, "--filter", "fund_*")
	require.NoError(t, err)
	assert.Contains(t, out, "1 total")
	assert.NotContains(t, out, "wrong_balance")
}

func TestTestCommandLoadError(t *testing.T) {
	dir := writeScenarios(t, map[string]string{"broken.yaml": "name: broken\nbogus: true\n"})

	out, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "failed to load scenario")
}

func TestTestCommandGoldenUpdateAndCompare(t *testing.T) {
	dir := writeScenarios(t, map[string]string{"fund_alice.yaml": passingScenario})
	goldenPath := filepath.Join(dir, "golden", "fund_alice.golden")

	_, err := execute(t, "test", dir, "--update")
	require.NoError(t, err)
	require.FileExists(t, goldenPath)

	golden, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	assert.Contains(t, string(golden), `"scenario_name":"fund_alice"`)

	out, err := execute(t, "test", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ fund_alice")

	require.NoError(t, os.WriteFile(goldenPath, []byte(`{"stale":true}`), 0644))
	out, err = execute(t, "test", dir)
	require.Error(t, err)
	assert.Contains(t, out, "trace does not match golden file")
}

func TestTestCommandGoldenDir(t *testing.T) {
	dir := writeScenarios(t, map[string]string{"fund_alice.yaml": passingScenario})
	goldenDir := filepath.Join(t.TempDir(), "snapshots")

	_, err := execute(t, "test", dir, "--update", "--golden-dir", goldenDir)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(goldenDir, "fund_alice.golden"))
	assert.NoFileExists(t, filepath.Join(dir, "golden", "fund_alice.golden"))
}

func TestTestCommandJournal(t *testing.T) {
	dir := writeScenarios(t, map[string]string{"fund_alice.yaml": passingScenario})
	db := filepath.Join(t.TempDir(), "runs.db")

	_, err := execute(t, "test", dir, "--journal", db)
	require.NoError(t, err)

	out, err := execute(t, "--journal", db, "--format", "json", "journal", "--all")
	require.NoError(t, err)

	var resp struct {
		Data JournalResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, []string{"fund_alice"}, resp.Data.Sessions)
	require.Len(t, resp.Data.Transfers, 1)
	assert.Equal(t, "fund_alice-000001", resp.Data.Transfers[0].RequestID)
	require.Len(t, resp.Data.Reconciliations, 1)
}

func TestTestCommandEndpoint(t *testing.T) {
	cfg := startLedger(t)
	out, err := execute(t, "--config", cfg, "--format", "json", "validate")
	require.NoError(t, err)
	var resp struct {
		Data ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))

	// Genesis is not minted remotely, but the stub ledger already holds
	// 1000 for the same faucet seed.
	dir := writeScenarios(t, map[string]string{"fund_alice.yaml": passingScenario})
	out, err = execute(t, "test", dir, "--endpoint", resp.Data.Endpoint)
	require.Error(t, err)
	assert.Contains(t, out, "✗ fund_alice")
	assert.Contains(t, out, "faucet holds 940 MFX")
}

package cli

import (
	"bytes"
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const testSeed = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

// writeConfig writes a YAML config with the given ledger endpoint (may be
// empty) and returns its path.
func writeConfig(t *testing.T, endpoint string) string {
	t.Helper()
	content := `namespace: cli-test
faucet:
  seed: "` + testSeed + `"
symbols:
  MFX: mfx-id
genesis:
  MFX: "1000"
`
	if endpoint != "" {
		content += "ledger:\n  endpoint: " + endpoint + "\n  timeout: 2s\n  balance_retries: 0\n"
	}
	path := filepath.Join(t.TempDir(), "tokenworld.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// startLedger runs the serve command on a loopback port until the test ends
// and returns a config pointing at it.
func startLedger(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	cfgPath := writeConfig(t, "http://"+ln.Addr().String())

	ctx, cancel := context.WithCancel(context.Background())
	cmd := &cobra.Command{}
	cmd.SetContext(ctx)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	opts := &ServeOptions{
		RootOptions: &RootOptions{Format: "text", Config: cfgPath, Session: "cli"},
		Listener:    ln,
	}
	done := make(chan error, 1)
	go func() { done <- runServe(opts, cmd) }()

	t.Cleanup(func() {
		cancel()
		<-done
	})
	return cfgPath
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

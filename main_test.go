package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferreirogomes/fnft/contracts"
	"github.com/ferreirogomes/fnft/services"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	for _, name := range []string{"RPCURL", "ALCHEMY_API_KEY", "PRIVATE_KEY", "DATABASE_URL"} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
	t.Setenv("FNFT_LOG_LEVEL", "error")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--env-file", ""}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestDeployLocal(t *testing.T) {
	out, err := runCLI(t, "deploy")
	require.NoError(t, err)

	var report services.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, int64(1_000_000), report.Balance.Int64())
	assert.Equal(t, report.Vault, report.Custodian)
	assert.Equal(t, uint64(5), report.Height)
}

func TestDeploySupplyCapExceeded(t *testing.T) {
	_, err := runCLI(t, "deploy", "--max-supply", "10", "--shares", "11")
	assert.ErrorIs(t, err, contracts.ErrSupplyCapExceeded)
}

func TestDeployRejectsBadNumbers(t *testing.T) {
	_, err := runCLI(t, "deploy", "--shares", "-1")
	assert.ErrorContains(t, err, "--shares")
}

func TestDeployRemoteNeedsCredentials(t *testing.T) {
	t.Setenv("FNFT_NETWORK_NAME", "sepolia")
	_, err := runCLI(t, "deploy")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ALCHEMY_API_KEY")
}

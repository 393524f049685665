package cmd

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	configFile, verbose = "", false

	var out bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func tempDatabase(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", filepath.Join(t.TempDir(), "portfolio.db"))
}

func TestTerminalCommand(t *testing.T) {
	out, err := run(t, "help\nexit\n", "terminal")
	require.NoError(t, err)
	assert.Contains(t, out, "Welcome to Mridun George's interactive terminal.")
	assert.Contains(t, out, "> whoami\nmridun_george - DevOps Engineer & System Analyst")
	assert.Contains(t, out, "Available commands:")
}

func TestUseraddCommand(t *testing.T) {
	tempDatabase(t)

	out, err := run(t, "", "useradd", "--email", "Owner@Example.com", "--password", "hunter22", "--username", "owner")
	require.NoError(t, err)
	assert.Contains(t, out, "Created owner@example.com")

	_, err = run(t, "", "useradd", "--email", "owner@example.com", "--password", "hunter22")
	assert.ErrorContains(t, err, "user already registered")
}

func TestMigrateAndCleanupCommands(t *testing.T) {
	tempDatabase(t)

	_, err := run(t, "", "migrate")
	require.NoError(t, err)

	out, err := run(t, "", "cleanup")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 0 visitor records and 0 expired sessions")
}

func TestMissingConfigFile(t *testing.T) {
	_, err := run(t, "", "--config", filepath.Join(t.TempDir(), "missing.yaml"), "migrate")
	assert.ErrorContains(t, err, "failed to load config")
}

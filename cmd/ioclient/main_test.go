package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/ioclient/internal/cli"
	"github.com/specialistvlad/ioclient/internal/ioerr"
)

func TestRun_InvalidConfigFile(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	invalidHCL := `
		client {
			uri = "ws://localhost:3000"
		// Missing closing brace here
	`
	filePath := filepath.Join(t.TempDir(), "client.hcl")
	require.NoError(t, os.WriteFile(filePath, []byte(invalidHCL), 0600), "failed to set up test file")
	out := &bytes.Buffer{}

	// --- Act ---
	runErr := run(context.Background(), out, []string{"-log-format", "text", filePath})

	// --- Assert ---
	require.Error(t, runErr)
	var cfgErr *ioerr.ConfigurationError
	require.True(t, errors.As(runErr, &cfgErr), "expected ConfigurationError, got %v", runErr)
	require.Contains(t, runErr.Error(), "failed to parse")
}

func TestRun_MissingConfigFile(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}

	runErr := run(context.Background(), out, []string{filepath.Join(t.TempDir(), "absent.hcl")})

	require.ErrorContains(t, runErr, "invalid client configuration")
}

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// The "-h" (help) flag should cause cli.Parse to return `shouldExit=true`.
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, []string{"-h"})

	// --- Assert ---
	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}

	err := run(context.Background(), out, []string{"--this-is-not-a-valid-flag"})

	var exitErr *cli.ExitError
	require.True(t, errors.As(err, &exitErr))
	require.Equal(t, 2, exitErr.Code)
	require.Contains(t, err.Error(), "flag provided but not defined: -this-is-not-a-valid-flag")
}

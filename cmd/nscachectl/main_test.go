package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	data := filepath.Join(dir, "data")
	require.NoError(t, os.Mkdir(data, 0o755))
	path := filepath.Join(dir, "cache.yaml")
	yaml := fmt.Sprintf(`
cache:
  default: disk
  namespace: app
  stores:
    disk:
      driver: file
      path: %q
    local:
      driver: array
`, data)
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	return path
}

func ctl(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var out, errb bytes.Buffer
	code := run(context.Background(), args, &out, &errb)
	return code, strings.TrimSpace(out.String()), errb.String()
}

func TestSetGetBumpAcrossRuns(t *testing.T) {
	cfg := writeConfig(t)

	code, _, stderr := ctl(t, "-config", cfg, "set", "42", "Alice", "10m")
	require.Equal(t, exitOK, code, stderr)

	code, out, _ := ctl(t, "-config", cfg, "get", "42")
	require.Equal(t, exitOK, code)
	require.Equal(t, "Alice", out)

	code, out, _ = ctl(t, "-config", cfg, "version")
	require.Equal(t, exitOK, code)
	require.Equal(t, "1", out)

	code, _, _ = ctl(t, "-config", cfg, "bump")
	require.Equal(t, exitOK, code)

	code, out, _ = ctl(t, "-config", cfg, "version")
	require.Equal(t, exitOK, code)
	require.Equal(t, "2", out)

	code, out, _ = ctl(t, "-config", cfg, "has", "42")
	require.Equal(t, exitErr, code)
	require.Equal(t, "false", out)

	code, _, _ = ctl(t, "-config", cfg, "get", "42")
	require.Equal(t, exitErr, code)
}

func TestNamespaceOverrideAndDelete(t *testing.T) {
	cfg := writeConfig(t)

	code, _, _ := ctl(t, "-config", cfg, "-namespace", "users", "set", "k", "v")
	require.Equal(t, exitOK, code)

	code, _, _ = ctl(t, "-config", cfg, "get", "k")
	require.Equal(t, exitErr, code, "other namespace must not see the entry")

	code, out, _ := ctl(t, "-config", cfg, "-namespace", "users", "has", "k")
	require.Equal(t, exitOK, code)
	require.Equal(t, "true", out)

	code, out, _ = ctl(t, "-config", cfg, "-namespace", "users", "del", "k")
	require.Equal(t, exitOK, code)
	require.Equal(t, "true", out)
}

func TestNamespaceOverrideIgnoresStoreNameCase(t *testing.T) {
	cfg := writeConfig(t)

	code, _, stderr := ctl(t, "-config", cfg, "-store", "DISK", "-namespace", "users", "set", "k", "v")
	require.Equal(t, exitOK, code, stderr)

	code, out, _ := ctl(t, "-config", cfg, "-store", "disk", "-namespace", "users", "has", "k")
	require.Equal(t, exitOK, code)
	require.Equal(t, "true", out)

	code, _, _ = ctl(t, "-config", cfg, "-store", "disk", "get", "k")
	require.Equal(t, exitErr, code, "entry must live under the overridden namespace")
}

func TestSweep(t *testing.T) {
	cfg := writeConfig(t)

	code, out, _ := ctl(t, "-config", cfg, "sweep")
	require.Equal(t, exitOK, code)
	require.Equal(t, "removed 0", out)

	code, _, stderr := ctl(t, "-config", cfg, "-store", "local", "sweep")
	require.Equal(t, exitErr, code)
	require.Contains(t, stderr, "does not support sweep")
}

func TestUsageErrors(t *testing.T) {
	cfg := writeConfig(t)

	for _, args := range [][]string{
		{"-config", cfg},
		{"-config", cfg, "get"},
		{"-config", cfg, "set", "k"},
		{"-config", cfg, "set", "k", "v", "soon"},
		{"-config", cfg, "frobnicate"},
		{"-no-such-flag"},
	} {
		code, _, _ := ctl(t, args...)
		require.Equal(t, exitUsage, code, "%v", args)
	}
}

func TestMissingConfig(t *testing.T) {
	code, _, stderr := ctl(t, "-config", filepath.Join(t.TempDir(), "none.yaml"), "get", "k")
	require.Equal(t, exitErr, code)
	require.Contains(t, stderr, "command failed")
}

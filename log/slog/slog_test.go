//go:build go1.21

package slog

import (
	"bytes"
	"encoding/json"
	stdslog "log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/unkn0wn-root/nscache"
)

func TestGroupsFieldsAndHonoursLevel(t *testing.T) {
	var buf bytes.Buffer
	base := stdslog.New(stdslog.NewJSONHandler(&buf, &stdslog.HandlerOptions{Level: stdslog.LevelInfo}))
	l := New(base)

	l.Debug("dropped", nscache.Fields{"ns": "users"})
	require.Zero(t, buf.Len())

	l.Warn("namespace version write rejected by backend", nscache.Fields{"ns": "users", "version": 2})
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	require.Equal(t, "WARN", rec["level"])
	group, ok := rec["nscache"].(map[string]any)
	require.True(t, ok, "fields should be grouped: %v", rec)
	require.Equal(t, "users", group["ns"])
	require.Equal(t, float64(2), group["version"])
}

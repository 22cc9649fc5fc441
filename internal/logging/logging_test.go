package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), "level %q", in)
	}
}

func TestWith_CarriesAttributes(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	initWriter(&buf, "sarafi-test", "v0.0.1", "info", "production")

	ctx := With(context.Background(), "transaction_id", "tx-1")
	FromContext(ctx).Info("payment recorded")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "sarafi-test", line["service"])
	assert.Equal(t, "v0.0.1", line["version"])
	assert.Equal(t, "tx-1", line["transaction_id"])
	assert.Equal(t, "payment recorded", line["msg"])
}

func TestInit_TextForDevelopment(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	initWriter(&buf, "sarafi-test", "dev", "debug", "development")
	slog.Debug("rate book loaded", "pairs", 7)

	assert.Contains(t, buf.String(), "msg=\"rate book loaded\"")
	assert.Contains(t, buf.String(), "pairs=7")
}

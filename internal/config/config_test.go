package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("DATABASE_URL", "postgres://localhost/sarafi")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "USD", cfg.FXBaseCurrency)
	assert.Equal(t, "70", cfg.FXReferenceRates["USD_AFN"])
	assert.True(t, cfg.LocalTxLocks)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, "settlement-events", cfg.KafkaTopic)
	assert.Equal(t, 2*time.Second, cfg.OutboxPollInterval)
	assert.Empty(t, cfg.ToleranceOverrides)
}

func TestLoad_MapsAndLists(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("DATABASE_URL", "postgres://localhost/sarafi")
	t.Setenv("CURRENCY_TOLERANCE_OVERRIDES", "IRR:1000,XAU:0.0001")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, map[string]string{"IRR": "1000", "XAU": "0.0001"}, cfg.ToleranceOverrides)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
}

func TestLoad_DotenvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("PORT=9191\nKAFKA_TOPIC=from-file\n"), 0o600))
	t.Setenv("ENV_FILE", path)
	t.Setenv("DATABASE_URL", "postgres://localhost/sarafi")
	t.Setenv("KAFKA_TOPIC", "from-env")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.Port)
	assert.Equal(t, "from-env", cfg.KafkaTopic)

	// godotenv.Load sets variables on the process; clear the one t.Setenv
	// does not own.
	os.Unsetenv("PORT")
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("DATABASE_URL", "")
	os.Unsetenv("DATABASE_URL")

	_, err := Load()

	require.Error(t, err)
}

func TestLoad_RejectsNonPositiveIntervals(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"zero poll interval", "OUTBOX_POLL_INTERVAL", "0s"},
		{"negative poll interval", "OUTBOX_POLL_INTERVAL", "-1s"},
		{"zero cleanup interval", "IDEMPOTENCY_CLEANUP_INTERVAL", "0"},
		{"zero batch size", "OUTBOX_BATCH_SIZE", "0"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
			t.Setenv("DATABASE_URL", "postgres://localhost/sarafi")
			t.Setenv(tc.key, tc.value)

			cfg, err := Load()

			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tc.key)
		})
	}
}

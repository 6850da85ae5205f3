package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/hearth/internal/common"
)

func newViper(t *testing.T, yaml string) *viper.Viper {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	BindEnv(v)
	if yaml != "" {
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(strings.NewReader(yaml)))
	}
	return v
}

func TestLoadEngine_Defaults(t *testing.T) {
	engine, err := LoadEngine(newViper(t, ""))
	require.NoError(t, err)

	assert.Equal(t, 3, engine.Matcher.DateWindowDays)
	assert.InDelta(t, 0.5, engine.Matcher.AcceptThreshold, 1e-9)
	assert.InDelta(t, 0.55, engine.Matcher.Weights.Text, 1e-9)
	assert.InDelta(t, 0.3, engine.Matcher.MinTextSimilarity, 1e-9)
	assert.True(t, engine.ProtectManual)
	assert.Equal(t, 3, engine.Recurring.MinOccurrences)
	assert.Equal(t, "@daily", engine.Recurring.Schedule)
	assert.Equal(t, 4, engine.Reconcile.Workers)
	assert.True(t, strings.HasSuffix(engine.DatabasePath, filepath.Join("hearth", "hearth.db")))
	assert.False(t, strings.HasPrefix(engine.DatabasePath, "~"))
}

func TestLoadEngine_FromFile(t *testing.T) {
	v := newViper(t, `
database:
  path: /tmp/hearth-test.db
matcher:
  date_window_days: 5
  accept_threshold: 0.7
import:
  protect_manual: false
recurring:
  min_occurrences: 4
  tolerance: 0.2
  schedule: "0 6 * * *"
reconcile:
  workers: 2
`)

	engine, err := LoadEngine(v)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/hearth-test.db", engine.DatabasePath)
	assert.Equal(t, 5, engine.Matcher.DateWindowDays)
	assert.InDelta(t, 0.7, engine.Matcher.AcceptThreshold, 1e-9)
	assert.InDelta(t, 0.15, engine.Matcher.Weights.Amount, 1e-9)
	assert.False(t, engine.ProtectManual)
	assert.Equal(t, 4, engine.Recurring.MinOccurrences)
	assert.Equal(t, "0 6 * * *", engine.Recurring.Schedule)
	assert.Equal(t, 2, engine.Reconcile.Workers)
}

func TestLoadEngine_EnvOverride(t *testing.T) {
	t.Setenv("HEARTH_MATCHER_DATE_WINDOW_DAYS", "7")
	t.Setenv("HEARTH_RECONCILE_MIN_SCORE", "0.8")

	engine, err := LoadEngine(newViper(t, ""))
	require.NoError(t, err)
	assert.Equal(t, 7, engine.Matcher.DateWindowDays)
	assert.InDelta(t, 0.8, engine.Reconcile.MinScore, 1e-9)
}

func TestLoadEngine_Invalid(t *testing.T) {
	tests := []struct {
		wantErr error
		name    string
		yaml    string
	}{
		{
			name:    "weights do not sum to one",
			yaml:    "matcher:\n  weights:\n    amount: 0.5\n",
			wantErr: common.ErrInvalidConfig,
		},
		{
			name:    "too few occurrences",
			yaml:    "recurring:\n  min_occurrences: 2\n",
			wantErr: common.ErrInvalidConfig,
		},
		{
			name:    "tolerance out of range",
			yaml:    "recurring:\n  tolerance: 0.6\n",
			wantErr: common.ErrInvalidConfig,
		},
		{
			name:    "no workers",
			yaml:    "reconcile:\n  workers: 0\n",
			wantErr: common.ErrInvalidConfig,
		},
		{
			name:    "empty database path",
			yaml:    "database:\n  path: \"\"\n",
			wantErr: common.ErrMissingConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadEngine(newViper(t, tt.yaml))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoadPlaid(t *testing.T) {
	v := newViper(t, `
plaid:
  client_id: client
  secret: secret
  access_token: access-sandbox-123
  account_cache_ttl: 5m
`)
	cfg, err := LoadPlaid(v)
	require.NoError(t, err)
	assert.Equal(t, "client", cfg.ClientID)
	assert.Equal(t, "sandbox", cfg.Environment)
	assert.Equal(t, 5*time.Minute, cfg.AccountCacheTTL)

	_, err = LoadPlaid(newViper(t, ""))
	assert.ErrorIs(t, err, common.ErrMissingConfig)
}

func TestLoadSimpleFIN(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/var/lib/data")

	cfg, err := LoadSimpleFIN(newViper(t, `
simplefin:
  setup_token: aHR0cHM6Ly9icmlkZ2UuZXhhbXBsZS9jbGFpbQ==
`))
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, "/var/lib/data/hearth/simplefin_auth.json", cfg.AuthFile)

	_, err = LoadSimpleFIN(newViper(t, ""))
	assert.ErrorIs(t, err, common.ErrMissingConfig)
}

func TestSyncProvider(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		want    string
		wantErr bool
	}{
		{name: "default", want: ProviderPlaid},
		{name: "simplefin", yaml: "sync:\n  provider: SimpleFIN\n", want: ProviderSimpleFIN},
		{name: "unknown", yaml: "sync:\n  provider: mint\n", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SyncProvider(newViper(t, tt.yaml))
			if tt.wantErr {
				assert.ErrorIs(t, err, common.ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadSheetsConfig(t *testing.T) {
	t.Run("from config", func(t *testing.T) {
		v := newViper(t, `
sheets:
  service_account_path: /keys/sa.json
  spreadsheet_id: sheet-123
  batch_size: 50
`)
		cfg, err := LoadSheetsConfig(v)
		require.NoError(t, err)
		assert.Equal(t, "/keys/sa.json", cfg.ServiceAccountPath)
		assert.Equal(t, "sheet-123", cfg.SpreadsheetID)
		assert.Equal(t, 50, cfg.BatchSize)
		assert.Equal(t, 3, cfg.RetryAttempts)
	})

	t.Run("environment fallback", func(t *testing.T) {
		t.Setenv("GOOGLE_SHEETS_CLIENT_ID", "env-client")
		t.Setenv("GOOGLE_SHEETS_CLIENT_SECRET", "env-secret")
		t.Setenv("GOOGLE_SHEETS_REFRESH_TOKEN", "env-refresh")

		cfg, err := LoadSheetsConfig(newViper(t, ""))
		require.NoError(t, err)
		assert.Equal(t, "env-client", cfg.ClientID)
		assert.Equal(t, "env-refresh", cfg.RefreshToken)
		assert.Equal(t, "Hearth", cfg.SpreadsheetName)
	})

	t.Run("missing auth", func(t *testing.T) {
		for _, key := range []string{
			"GOOGLE_SHEETS_CLIENT_ID", "GOOGLE_SHEETS_CLIENT_SECRET",
			"GOOGLE_SHEETS_REFRESH_TOKEN", "GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH",
		} {
			t.Setenv(key, "")
		}
		_, err := LoadSheetsConfig(newViper(t, ""))
		assert.ErrorIs(t, err, common.ErrMissingConfig)
	})
}

func TestDataPath(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "")
	assert.Equal(t, "~/.local/share/hearth/hearth.db", DataPath("hearth.db"))

	t.Setenv("XDG_DATA_HOME", "/xdg")
	assert.Equal(t, filepath.Join("/xdg", "hearth", "hearth.db"), DataPath("hearth.db"))
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("HEARTH_TEST_DIR", "/data")

	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"~", home},
		{"~/hearth.db", filepath.Join(home, "hearth.db")},
		{"$HEARTH_TEST_DIR/hearth.db", "/data/hearth.db"},
		{"/abs/path.db", "/abs/path.db"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExpandPath(tt.input))
		})
	}
}

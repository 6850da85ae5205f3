package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Veraticus/hearth/internal/common"
	"github.com/Veraticus/hearth/internal/matcher"
	"github.com/Veraticus/hearth/internal/plaid"
	"github.com/Veraticus/hearth/internal/reconcile"
	"github.com/Veraticus/hearth/internal/recurring"
	"github.com/Veraticus/hearth/internal/sheets"
	"github.com/Veraticus/hearth/internal/simplefin"
)

// EnvPrefix is the prefix of environment variables that override config keys.
const EnvPrefix = "HEARTH"

// Bank feed providers accepted by sync.provider.
const (
	ProviderPlaid     = "plaid"
	ProviderSimpleFIN = "simplefin"
)

// Engine is the validated configuration of the matching, import, recurring and
// reconciliation components.
type Engine struct {
	Matcher       matcher.Config
	Recurring     recurring.Config
	Reconcile     reconcile.Config
	DatabasePath  string
	ProtectManual bool
}

// SetDefaults registers every default on v. Unmarshal only sees environment
// overrides for keys viper already knows about.
func SetDefaults(v *viper.Viper) {
	m := matcher.DefaultConfig()
	v.SetDefault("matcher.date_window_days", m.DateWindowDays)
	v.SetDefault("matcher.accept_threshold", m.AcceptThreshold)
	v.SetDefault("matcher.min_text_similarity", m.MinTextSimilarity)
	v.SetDefault("matcher.weights.amount", m.Weights.Amount)
	v.SetDefault("matcher.weights.date", m.Weights.Date)
	v.SetDefault("matcher.weights.text", m.Weights.Text)

	v.SetDefault("import.protect_manual", true)

	r := recurring.DefaultConfig()
	v.SetDefault("recurring.min_occurrences", r.MinOccurrences)
	v.SetDefault("recurring.tolerance", r.Tolerance)
	v.SetDefault("recurring.schedule", r.Schedule)

	rc := reconcile.DefaultConfig()
	v.SetDefault("reconcile.min_score", rc.MinScore)
	v.SetDefault("reconcile.balance_tolerance", rc.BalanceTolerance)
	v.SetDefault("reconcile.relative_tolerance", rc.RelativeTolerance)
	v.SetDefault("reconcile.workers", rc.Workers)

	v.SetDefault("plaid.client_id", "")
	v.SetDefault("plaid.secret", "")
	v.SetDefault("plaid.access_token", "")
	v.SetDefault("plaid.environment", "sandbox")
	v.SetDefault("plaid.account_cache_ttl", 15*time.Minute)

	v.SetDefault("sync.provider", ProviderPlaid)
	v.SetDefault("simplefin.access_url", "")
	v.SetDefault("simplefin.setup_token", "")
	v.SetDefault("simplefin.auth_file", DataPath("simplefin_auth.json"))
	v.SetDefault("simplefin.timeout", 30*time.Second)

	sc := sheets.DefaultConfig()
	for _, key := range []string{"client_id", "client_secret", "refresh_token", "token_file", "service_account_path", "spreadsheet_id"} {
		v.SetDefault("sheets."+key, "")
	}
	v.SetDefault("sheets.spreadsheet_name", sc.SpreadsheetName)
	v.SetDefault("sheets.time_zone", sc.TimeZone)
	v.SetDefault("sheets.batch_size", sc.BatchSize)
	v.SetDefault("sheets.retry_attempts", sc.RetryAttempts)
	v.SetDefault("sheets.retry_delay", sc.RetryDelay)
	v.SetDefault("sheets.enable_formatting", sc.EnableFormatting)

	v.SetDefault("database.path", DataPath("hearth.db"))
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// BindEnv makes HEARTH_SECTION_KEY variables override section.key.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// settings mirrors the config file. Sections start from their defaults and
// Unmarshal overwrites the keys that are set.
type settings struct {
	Matcher   matcher.Config   `mapstructure:"matcher"`
	Recurring recurring.Config `mapstructure:"recurring"`
	Reconcile reconcile.Config `mapstructure:"reconcile"`
	Plaid     plaid.Config     `mapstructure:"plaid"`
	Sheets    sheets.Config    `mapstructure:"sheets"`
	SimpleFIN simplefin.Config `mapstructure:"simplefin"`
	Sync      struct {
		Provider string `mapstructure:"provider"`
	} `mapstructure:"sync"`
	Database  struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"database"`
	Import struct {
		ProtectManual bool `mapstructure:"protect_manual"`
	} `mapstructure:"import"`
}

func load(v *viper.Viper) (*settings, error) {
	s := &settings{
		Matcher:   matcher.DefaultConfig(),
		Recurring: recurring.DefaultConfig(),
		Reconcile: reconcile.DefaultConfig(),
		Sheets:    sheets.DefaultConfig(),
	}
	s.Import.ProtectManual = true

	// Unmarshal reads AllSettings, which merges defaults, file and environment per key.
	if err := v.Unmarshal(s); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidConfig, err)
	}
	return s, nil
}

// LoadEngine reads and validates the engine configuration.
func LoadEngine(v *viper.Viper) (*Engine, error) {
	s, err := load(v)
	if err != nil {
		return nil, err
	}

	if err := s.Matcher.Validate(); err != nil {
		return nil, invalid("matcher", err)
	}
	if err := s.Recurring.Validate(); err != nil {
		return nil, err
	}
	if err := s.Reconcile.Validate(); err != nil {
		return nil, err
	}

	engine := &Engine{
		Matcher:       s.Matcher,
		Recurring:     s.Recurring,
		Reconcile:     s.Reconcile,
		DatabasePath:  ExpandPath(s.Database.Path),
		ProtectManual: s.Import.ProtectManual,
	}
	if engine.DatabasePath == "" {
		return nil, fmt.Errorf("%w: database.path", common.ErrMissingConfig)
	}
	return engine, nil
}

// LoadPlaid reads and validates the Plaid credentials.
func LoadPlaid(v *viper.Viper) (*plaid.Config, error) {
	s, err := load(v)
	if err != nil {
		return nil, err
	}
	if err := s.Plaid.Validate(); err != nil {
		return nil, err
	}
	return &s.Plaid, nil
}

// LoadSimpleFIN reads and validates the SimpleFIN bridge settings.
func LoadSimpleFIN(v *viper.Viper) (*simplefin.Config, error) {
	s, err := load(v)
	if err != nil {
		return nil, err
	}
	cfg := s.SimpleFIN
	cfg.AuthFile = ExpandPath(cfg.AuthFile)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SyncProvider returns the configured bank feed, plaid or simplefin.
func SyncProvider(v *viper.Viper) (string, error) {
	provider := strings.ToLower(strings.TrimSpace(v.GetString("sync.provider")))
	switch provider {
	case ProviderPlaid, ProviderSimpleFIN:
		return provider, nil
	case "":
		return ProviderPlaid, nil
	default:
		return "", fmt.Errorf("%w: sync.provider %q, want %s or %s",
			common.ErrInvalidConfig, provider, ProviderPlaid, ProviderSimpleFIN)
	}
}

func invalid(section string, err error) error {
	return fmt.Errorf("%w: %s: %v", common.ErrInvalidConfig, section, err)
}

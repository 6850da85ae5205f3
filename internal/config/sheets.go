package config

import (
	"os"

	"github.com/spf13/viper"

	"github.com/Veraticus/hearth/internal/sheets"
)

// LoadSheetsConfig loads Google Sheets configuration. Values under the sheets key
// (from the config file or HEARTH_SHEETS_* variables) win over the GOOGLE_SHEETS_*
// environment variables, which win over the defaults.
func LoadSheetsConfig(v *viper.Viper) (*sheets.Config, error) {
	s, err := load(v)
	if err != nil {
		return nil, err
	}
	config := s.Sheets
	config.ServiceAccountPath = ExpandPath(config.ServiceAccountPath)
	config.TokenFile = ExpandPath(config.TokenFile)

	fallbacks := []struct {
		dst *string
		env string
	}{
		{&config.ClientID, "GOOGLE_SHEETS_CLIENT_ID"},
		{&config.ClientSecret, "GOOGLE_SHEETS_CLIENT_SECRET"},
		{&config.RefreshToken, "GOOGLE_SHEETS_REFRESH_TOKEN"},
		{&config.SpreadsheetID, "GOOGLE_SHEETS_SPREADSHEET_ID"},
	}
	for _, f := range fallbacks {
		if *f.dst == "" {
			*f.dst = os.Getenv(f.env)
		}
	}
	if config.ServiceAccountPath == "" {
		config.ServiceAccountPath = ExpandPath(os.Getenv("GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH"))
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

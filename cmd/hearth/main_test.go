package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/hearth/internal/config"
	"github.com/Veraticus/hearth/internal/model"
	"github.com/Veraticus/hearth/internal/ofx"
)

// setupViper points the global config at a fresh database in a temp dir.
func setupViper(t *testing.T) string {
	t.Helper()
	viper.Reset()
	config.SetDefaults(viper.GetViper())
	dbPath := filepath.Join(t.TempDir(), "hearth.db")
	viper.Set("database.path", dbPath)
	t.Cleanup(viper.Reset)
	return dbPath
}

// execute runs cmd with args and returns what it printed to stdout.
func execute(t *testing.T, cmd *cobra.Command, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func mustExecute(t *testing.T, cmd *cobra.Command, args ...string) string {
	t.Helper()
	out, err := execute(t, cmd, "", args...)
	require.NoError(t, err, "hearth %s", strings.Join(args, " "))
	return out
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRootCommands(t *testing.T) {
	want := []string{"accounts", "categories", "export", "import", "migrate", "recurring", "rules", "sync", "version"}

	var got []string
	for _, c := range rootCmd.Commands() {
		got = append(got, c.Name())
	}
	for _, name := range want {
		assert.Contains(t, got, name)
	}

	for _, flag := range []string{"config", "log-level", "log-format"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(flag), "missing --%s", flag)
	}
}

func TestSubcommands(t *testing.T) {
	tests := []struct {
		cmd  *cobra.Command
		want []string
	}{
		{importCmd(), []string{"preview", "apply"}},
		{syncCmd(), []string{"accounts", "preview"}},
		{rulesCmd(), []string{"list", "add", "load", "test"}},
		{recurringCmd(), []string{"detect", "list", "confirm", "dismiss", "pause", "resume", "end", "watch"}},
		{accountsCmd(), []string{"list", "add"}},
		{categoriesCmd(), []string{"list", "add"}},
		{exportCmd(), []string{"sheets"}},
	}

	for _, tt := range tests {
		t.Run(tt.cmd.Name(), func(t *testing.T) {
			for _, name := range tt.want {
				sub, _, err := tt.cmd.Find([]string{name})
				require.NoError(t, err)
				assert.Equal(t, name, sub.Name())
			}
		})
	}
}

func TestImportApplyFlags(t *testing.T) {
	cmd := importApplyCmd()

	for _, name := range []string{"account", "skip", "json", "review", "yes"} {
		assert.NotNil(t, cmd.Flag(name), "missing --%s", name)
	}
	assert.Equal(t, "a", cmd.Flag("account").Shorthand)
	assert.Equal(t, "false", cmd.Flag("review").DefValue)
}

func TestSetupLogging(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		format  string
		wantErr bool
	}{
		{"defaults", "info", "console", false},
		{"json debug", "debug", "json", false},
		{"bad level", "verbose", "console", true},
		{"bad format", "info", "xml", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			t.Cleanup(viper.Reset)
			viper.Set("logging.level", tt.level)
			viper.Set("logging.format", tt.format)

			err := setupLogging()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestParseSkips(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []int
		wantErr bool
	}{
		{"empty", "", nil, false},
		{"single", "3", []int{3}, false},
		{"list with spaces", "3, 4,7", []int{3, 4, 7}, false},
		{"trailing comma", "2,", []int{2}, false},
		{"zero", "0", nil, true},
		{"not a number", "3,x", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSkips(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseID(t *testing.T) {
	id, err := parseID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	_, err = parseID("-1")
	assert.Error(t, err)
	_, err = parseID("abc")
	assert.Error(t, err)
}

func TestParseCategoryType(t *testing.T) {
	got, err := parseCategoryType(" Income ")
	require.NoError(t, err)
	assert.Equal(t, model.CategoryTypeIncome, got)

	_, err = parseCategoryType("savings")
	assert.Error(t, err)
}

func TestPickStatement(t *testing.T) {
	checking := ofx.Statement{Account: model.ExternalAccount{ExternalID: "111"}}
	card := ofx.Statement{Account: model.ExternalAccount{ExternalID: "222"}}

	_, err := pickStatement(nil, "")
	assert.Error(t, err)

	got, err := pickStatement([]ofx.Statement{card}, "")
	require.NoError(t, err)
	assert.Equal(t, "222", got.Account.ExternalID)

	got, err = pickStatement([]ofx.Statement{checking, card}, "222")
	require.NoError(t, err)
	assert.Equal(t, "222", got.Account.ExternalID)

	_, err = pickStatement([]ofx.Statement{checking, card}, "")
	assert.Error(t, err)
}

func TestVersionCmd(t *testing.T) {
	out := mustExecute(t, versionCmd())
	assert.Equal(t, "hearth dev\n", out)
}

// Package config loads the ledger's settings from viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Veraticus/household-ledger/internal/common"
	"github.com/Veraticus/household-ledger/internal/discovery"
	"github.com/Veraticus/household-ledger/internal/sheets"
)

// Owner is a household member with the password protecting their exports.
type Owner struct {
	Name     string   `mapstructure:"name"`
	Password string   `mapstructure:"password"`
	Aliases  []string `mapstructure:"aliases"`
}

// Config is the typed view of every setting the CLI uses.
type Config struct {
	DatabasePath       string
	ReferenceOwner     string
	DocsDir            string
	AssistantAPIKey    string
	AssistantModel     string
	AssistantBaseURL   string
	LogLevel           string
	LogFormat          string
	Owners             []Owner
	Sheets             sheets.Config
	RecentWindowMonths int
	AverageMonths      int
	QueryMaxRows       int
	AssistantTimeout   time.Duration
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "~/.local/share/ledger/ledger.db")
	v.SetDefault("ingest.docs_dir", "~/ledger/docs")
	v.SetDefault("ingest.recent_window_months", 2)
	v.SetDefault("budget.average_months", 3)
	v.SetDefault("query.max_rows", 200)
	v.SetDefault("assistant.model", "gpt-4o")
	v.SetDefault("assistant.base_url", "https://api.openai.com/v1")
	v.SetDefault("assistant.timeout", "60s")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	d := sheets.DefaultConfig()
	v.SetDefault("sheets.spreadsheet_name", d.SpreadsheetName)
	v.SetDefault("sheets.sheet_title", d.SheetTitle)
	v.SetDefault("sheets.time_zone", d.TimeZone)
	v.SetDefault("sheets.batch_size", d.BatchSize)
	v.SetDefault("sheets.retry_attempts", d.RetryAttempts)
	v.SetDefault("sheets.retry_delay", d.RetryDelay)
	v.SetDefault("sheets.enable_formatting", d.EnableFormatting)
}

// Load reads settings from v. Paths are expanded; the assistant key falls
// back to OPENAI_API_KEY. Sheets settings are read but only validated when
// a Sheets export runs.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	cfg := &Config{
		DatabasePath:       ExpandPath(v.GetString("database.path")),
		ReferenceOwner:     strings.TrimSpace(v.GetString("household.reference_owner")),
		DocsDir:            ExpandPath(v.GetString("ingest.docs_dir")),
		RecentWindowMonths: v.GetInt("ingest.recent_window_months"),
		AverageMonths:      v.GetInt("budget.average_months"),
		QueryMaxRows:       v.GetInt("query.max_rows"),
		AssistantAPIKey:    v.GetString("assistant.api_key"),
		AssistantModel:     v.GetString("assistant.model"),
		AssistantBaseURL:   v.GetString("assistant.base_url"),
		AssistantTimeout:   v.GetDuration("assistant.timeout"),
		LogLevel:           v.GetString("logging.level"),
		LogFormat:          v.GetString("logging.format"),
	}
	if cfg.AssistantAPIKey == "" {
		cfg.AssistantAPIKey = os.Getenv("OPENAI_API_KEY")
	}

	if err := v.UnmarshalKey("household.owners", &cfg.Owners); err != nil {
		return nil, fmt.Errorf("%w: household.owners: %v", common.ErrInvalidConfig, err)
	}

	cfg.Sheets = sheets.Config{
		ServiceAccountPath: ExpandPath(v.GetString("sheets.service_account_path")),
		ClientID:           v.GetString("sheets.client_id"),
		ClientSecret:       v.GetString("sheets.client_secret"),
		RefreshToken:       v.GetString("sheets.refresh_token"),
		SpreadsheetID:      v.GetString("sheets.spreadsheet_id"),
		SpreadsheetName:    v.GetString("sheets.spreadsheet_name"),
		SheetTitle:         v.GetString("sheets.sheet_title"),
		TimeZone:           v.GetString("sheets.time_zone"),
		BatchSize:          v.GetInt("sheets.batch_size"),
		RetryAttempts:      v.GetInt("sheets.retry_attempts"),
		RetryDelay:         v.GetDuration("sheets.retry_delay"),
		EnableFormatting:   v.GetBool("sheets.enable_formatting"),
	}
	if cfg.Sheets.ServiceAccountPath == "" {
		cfg.Sheets.ServiceAccountPath = ExpandPath(os.Getenv("GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH"))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings every command depends on.
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("%w: database.path", common.ErrMissingConfig)
	}
	if c.RecentWindowMonths <= 0 {
		return fmt.Errorf("%w: ingest.recent_window_months must be positive", common.ErrInvalidConfig)
	}
	if c.AverageMonths <= 0 {
		return fmt.Errorf("%w: budget.average_months must be positive", common.ErrInvalidConfig)
	}
	if c.QueryMaxRows <= 0 {
		return fmt.Errorf("%w: query.max_rows must be positive", common.ErrInvalidConfig)
	}

	seen := make(map[string]bool, len(c.Owners))
	for i, o := range c.Owners {
		name := strings.TrimSpace(o.Name)
		if name == "" {
			return fmt.Errorf("%w: household.owners[%d] has no name", common.ErrInvalidConfig, i)
		}
		if seen[name] {
			return fmt.Errorf("%w: owner %q is listed twice", common.ErrInvalidConfig, name)
		}
		seen[name] = true
		c.Owners[i].Name = name
	}
	if c.ReferenceOwner != "" && !seen[c.ReferenceOwner] {
		return fmt.Errorf("%w: reference owner %q is not a configured owner", common.ErrInvalidConfig, c.ReferenceOwner)
	}
	return nil
}

// Passwords maps each owner to their archive password.
func (c *Config) Passwords() map[string]string {
	out := make(map[string]string, len(c.Owners))
	for _, o := range c.Owners {
		if o.Password != "" {
			out[o.Name] = o.Password
		}
	}
	return out
}

// OwnerNames lists the configured owners in order.
func (c *Config) OwnerNames() []string {
	names := make([]string, len(c.Owners))
	for i, o := range c.Owners {
		names[i] = o.Name
	}
	return names
}

// DiscoveryOwners converts the owners for filename detection.
func (c *Config) DiscoveryOwners() []discovery.Owner {
	out := make([]discovery.Owner, len(c.Owners))
	for i, o := range c.Owners {
		out[i] = discovery.Owner{Name: o.Name, Aliases: o.Aliases}
	}
	return out
}

// ExpandPath expands ~ and environment variables in a file path.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			path = home
		}
	}

	return os.ExpandEnv(path)
}

// Package config loads scout settings from defaults, an optional YAML
// file, a .env file and SCOUT_* environment variables, in increasing
// precedence. Command-line flags bound through Load win over all of them.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/FranksOps/scout/internal/fingerprint"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Variants.
const (
	VariantHTML = "html"
	VariantAPI  = "api"
)

// Spreadsheet backends.
const (
	BackendGSheets = "gsheets"
	BackendXLSX    = "xlsx"
	BackendCSV     = "csv"
)

// User-agent orders.
const (
	UserAgentRoundRobin = "round_robin"
	UserAgentRandom     = "random"
)

// ListSeparator splits list values given as a single string, such as
// SCOUT_MARKETPLACE_USER_AGENTS.
const ListSeparator = "|"

// EnvPrefix prefixes every environment override, e.g.
// SCOUT_MARKETPLACE_API_TOKEN.
const EnvPrefix = "SCOUT"

// Config is the full scout configuration.
type Config struct {
	Variant     string      `mapstructure:"variant"`
	Spreadsheet Spreadsheet `mapstructure:"spreadsheet"`
	Marketplace Marketplace `mapstructure:"marketplace"`
	Delay       Delay       `mapstructure:"delay"`
	Callback    Callback    `mapstructure:"callback"`
	Metrics     Metrics     `mapstructure:"metrics"`
	Log         Log         `mapstructure:"log"`
	Report      Report      `mapstructure:"report"`
}

// Spreadsheet selects the workbook backend and its sheets.
type Spreadsheet struct {
	Backend         string `mapstructure:"backend"`
	ID              string `mapstructure:"id"`
	Name            string `mapstructure:"name"`
	Path            string `mapstructure:"path"`
	CredentialsFile string `mapstructure:"credentials_file"`
	KeywordsSheet   string `mapstructure:"keywords_sheet"`
	ResultsSheet    string `mapstructure:"results_sheet"`
}

// Marketplace configures both search variants.
type Marketplace struct {
	BaseURL       string        `mapstructure:"base_url"`
	APIBaseURL    string        `mapstructure:"api_base_url"`
	APIToken      string        `mapstructure:"api_token"`
	MarketplaceID string        `mapstructure:"marketplace_id"`
	Timeout       time.Duration `mapstructure:"timeout"`
	Fingerprint   string        `mapstructure:"fingerprint"`
	ProxiesFile   string        `mapstructure:"proxies_file"`
	// UserAgents overrides the built-in agent list. In the environment,
	// agents are separated by "|" since agents contain commas.
	UserAgents     []string `mapstructure:"user_agents"`
	UserAgentOrder string   `mapstructure:"user_agent_order"`
}

// Delay is the pause after each search, per variant.
type Delay struct {
	HTML time.Duration `mapstructure:"html"`
	API  time.Duration `mapstructure:"api"`
}

// Callback configures the OAuth echo server.
type Callback struct {
	Addr string `mapstructure:"addr"`
}

type Metrics struct {
	// Port serves /metrics when non-zero.
	Port int `mapstructure:"port"`
}

// Log selects the slog handler.
type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Report selects the run summary format.
type Report struct {
	Format string `mapstructure:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Variant: VariantHTML,
		Spreadsheet: Spreadsheet{
			Backend:         BackendGSheets,
			Name:            "ebay_searchword",
			CredentialsFile: "./config/google-credentials.json",
			KeywordsSheet:   "Keywords",
			ResultsSheet:    "Results",
		},
		Marketplace: Marketplace{
			BaseURL:        "https://www.ebay.com",
			APIBaseURL:     "https://api.ebay.com",
			MarketplaceID:  "EBAY_US",
			Timeout:        30 * time.Second,
			Fingerprint:    string(fingerprint.ProfileChrome),
			UserAgents:     []string{},
			UserAgentOrder: UserAgentRoundRobin,
		},
		Delay:    Delay{HTML: 5 * time.Second, API: time.Second},
		Callback: Callback{Addr: ":8000"},
		Log:      Log{Level: "info", Format: "text"},
		Report:   Report{Format: "text"},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("variant", d.Variant)

	v.SetDefault("spreadsheet.backend", d.Spreadsheet.Backend)
	v.SetDefault("spreadsheet.id", d.Spreadsheet.ID)
	v.SetDefault("spreadsheet.name", d.Spreadsheet.Name)
	v.SetDefault("spreadsheet.path", d.Spreadsheet.Path)
	v.SetDefault("spreadsheet.credentials_file", d.Spreadsheet.CredentialsFile)
	v.SetDefault("spreadsheet.keywords_sheet", d.Spreadsheet.KeywordsSheet)
	v.SetDefault("spreadsheet.results_sheet", d.Spreadsheet.ResultsSheet)

	v.SetDefault("marketplace.base_url", d.Marketplace.BaseURL)
	v.SetDefault("marketplace.api_base_url", d.Marketplace.APIBaseURL)
	v.SetDefault("marketplace.api_token", d.Marketplace.APIToken)
	v.SetDefault("marketplace.marketplace_id", d.Marketplace.MarketplaceID)
	v.SetDefault("marketplace.timeout", d.Marketplace.Timeout)
	v.SetDefault("marketplace.fingerprint", d.Marketplace.Fingerprint)
	v.SetDefault("marketplace.proxies_file", d.Marketplace.ProxiesFile)
	v.SetDefault("marketplace.user_agents", d.Marketplace.UserAgents)
	v.SetDefault("marketplace.user_agent_order", d.Marketplace.UserAgentOrder)

	v.SetDefault("delay.html", d.Delay.HTML)
	v.SetDefault("delay.api", d.Delay.API)
	v.SetDefault("callback.addr", d.Callback.Addr)
	v.SetDefault("metrics.port", d.Metrics.Port)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("report.format", d.Report.Format)
}

// FlagKeys maps command-line flag names to config keys.
var FlagKeys = map[string]string{
	"variant":        "variant",
	"backend":        "spreadsheet.backend",
	"spreadsheet-id": "spreadsheet.id",
	"spreadsheet":    "spreadsheet.name",
	"path":           "spreadsheet.path",
	"credentials":    "spreadsheet.credentials_file",
	"fingerprint":    "marketplace.fingerprint",
	"proxies":        "marketplace.proxies_file",
	"ua-order":       "marketplace.user_agent_order",
	"timeout":        "marketplace.timeout",
	"addr":           "callback.addr",
	"metrics-port":   "metrics.port",
	"log-level":      "log.level",
	"log-format":     "log.format",
	"report":         "report.format",
}

// Load builds the configuration. path names a config file; when empty,
// config.yaml is looked up in . and ./config and may be absent. flags may
// be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("config: %w", err)
			}
		}
	}

	if flags != nil {
		for name, key := range FlagKeys {
			f := flags.Lookup(name)
			if f == nil || key == "" {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("config: bind --%s: %w", name, err)
			}
		}
	}

	cfg := &Config{}
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(ListSeparator),
	))
	if err := v.Unmarshal(cfg, hook); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if flags != nil {
		if f := flags.Lookup("delay"); f != nil && f.Changed {
			d, err := time.ParseDuration(f.Value.String())
			if err != nil {
				return nil, fmt.Errorf("config: --delay: %w", err)
			}
			cfg.SetDelay(d)
		}
	}
	return cfg, nil
}

// DelayFor returns the pause configured for the active variant.
func (c *Config) DelayFor() time.Duration {
	if c.Variant == VariantAPI {
		return c.Delay.API
	}
	return c.Delay.HTML
}

// SetDelay overrides the pause for the active variant.
func (c *Config) SetDelay(d time.Duration) {
	if c.Variant == VariantAPI {
		c.Delay.API = d
	} else {
		c.Delay.HTML = d
	}
}

// Validate checks the settings a research run depends on.
func (c *Config) Validate() error {
	switch c.Variant {
	case VariantHTML, VariantAPI:
	default:
		return fmt.Errorf("config: unknown variant %q (want html or api)", c.Variant)
	}

	switch c.Spreadsheet.Backend {
	case BackendGSheets:
		if c.Spreadsheet.ID == "" && c.Spreadsheet.Name == "" {
			return errors.New("config: spreadsheet.id or spreadsheet.name is required")
		}
	case BackendXLSX, BackendCSV:
		if c.Spreadsheet.Path == "" {
			return fmt.Errorf("config: spreadsheet.path is required for the %s backend", c.Spreadsheet.Backend)
		}
	default:
		return fmt.Errorf("config: unknown spreadsheet backend %q", c.Spreadsheet.Backend)
	}
	if c.Spreadsheet.KeywordsSheet == "" || c.Spreadsheet.ResultsSheet == "" {
		return errors.New("config: keywords_sheet and results_sheet must be set")
	}

	if c.Variant == VariantAPI && c.Marketplace.APIToken == "" {
		return fmt.Errorf("config: marketplace.api_token is required for the api variant (set %s_MARKETPLACE_API_TOKEN)", EnvPrefix)
	}
	if _, err := fingerprint.ParseProfile(c.Marketplace.Fingerprint); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	switch c.Marketplace.UserAgentOrder {
	case UserAgentRoundRobin, UserAgentRandom:
	default:
		return fmt.Errorf("config: unknown marketplace.user_agent_order %q", c.Marketplace.UserAgentOrder)
	}
	if c.Marketplace.Timeout < 0 {
		return errors.New("config: marketplace.timeout must not be negative")
	}
	if c.Delay.HTML < 0 || c.Delay.API < 0 {
		return errors.New("config: delays must not be negative")
	}
	if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
		return fmt.Errorf("config: invalid metrics.port %d", c.Metrics.Port)
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: unknown log.format %q", c.Log.Format)
	}
	switch c.Report.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: unknown report.format %q", c.Report.Format)
	}
	return nil
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("config: invalid log.level %q", s)
	}
	return l, nil
}

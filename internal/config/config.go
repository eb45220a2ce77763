// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Network NetworkConfig `mapstructure:"network" yaml:"network"`
	Portal  PortalConfig  `mapstructure:"portal" yaml:"portal"`
	Updater UpdaterConfig `mapstructure:"updater" yaml:"updater"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// BrowserConfig holds settings for the headless browser instance.
type BrowserConfig struct {
	Headless        bool     `mapstructure:"headless" yaml:"headless"`
	IgnoreTLSErrors bool     `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	Args            []string `mapstructure:"args" yaml:"args"`
	// SlowMo inserts a fixed pause after every driver action. Debugging aid only.
	SlowMo time.Duration `mapstructure:"slowmo" yaml:"slowmo"`
}

// NetworkConfig tunes navigation and settle behavior.
type NetworkConfig struct {
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	// SettleTimeout bounds the advisory wait for in-flight requests after a
	// search or save is submitted. Expiry is logged, never fatal.
	SettleTimeout time.Duration `mapstructure:"settle_timeout" yaml:"settle_timeout"`
	// SettleQuiet is the quiet period that must elapse with no network
	// activity before the page is considered settled.
	SettleQuiet time.Duration `mapstructure:"settle_quiet" yaml:"settle_quiet"`
}

// PortalConfig describes the one admin console page flow this tool drives.
// URLs and selectors live in config because the remote markup is not ours.
type PortalConfig struct {
	LoginURL  string `mapstructure:"login_url" yaml:"login_url"`
	SearchURL string `mapstructure:"search_url" yaml:"search_url"`

	UsernameInput string `mapstructure:"username_input" yaml:"username_input"`
	PasswordInput string `mapstructure:"password_input" yaml:"password_input"`
	LoginSubmit   string `mapstructure:"login_submit" yaml:"login_submit"`

	SearchInput   string `mapstructure:"search_input" yaml:"search_input"`
	SearchSubmit  string `mapstructure:"search_submit" yaml:"search_submit"`
	RowRadioName  string `mapstructure:"row_radio_name" yaml:"row_radio_name"`
	EditButton    string `mapstructure:"edit_button" yaml:"edit_button"`
	IdentityInput string `mapstructure:"identity_input" yaml:"identity_input"`
	PosInput      string `mapstructure:"pos_input" yaml:"pos_input"`
	SaveButton    string `mapstructure:"save_button" yaml:"save_button"`

	// NoDataText is the literal string the console renders for an empty
	// result set. Matched verbatim against the page body.
	NoDataText string `mapstructure:"no_data_text" yaml:"no_data_text"`
}

// UpdaterConfig tunes the per-row retry and wait behavior.
type UpdaterConfig struct {
	// Retries is the number of extra attempts after the first failure.
	Retries int `mapstructure:"retries" yaml:"retries"`
	// RetryBackoff is the pause between a session reset and the next attempt.
	RetryBackoff time.Duration `mapstructure:"retry_backoff" yaml:"retry_backoff"`
	// StepDelay is an optional fixed pause between workflow steps to
	// accommodate slow remote rendering. A tuning knob, not a correctness
	// mechanism.
	StepDelay time.Duration `mapstructure:"step_delay" yaml:"step_delay"`
	// RowWait bounds each wait for the matching result row to appear.
	RowWait time.Duration `mapstructure:"row_wait" yaml:"row_wait"`
	// RowPollAttempts caps how many times the search is re-submitted while
	// waiting for the matching row.
	RowPollAttempts int `mapstructure:"row_poll_attempts" yaml:"row_poll_attempts"`
	// ResetSettle is the fixed settle interval after a reset navigation.
	ResetSettle time.Duration `mapstructure:"reset_settle" yaml:"reset_settle"`
}

// Credentials carries the admin login pair. Supplied once per run via
// environment variables, never persisted or logged.
type Credentials struct {
	Username string
	Password string
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "possync")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 2)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", false)

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.slowmo", "0s")

	// -- Network --
	v.SetDefault("network.navigation_timeout", "90s")
	v.SetDefault("network.settle_timeout", "20s")
	v.SetDefault("network.settle_quiet", "1500ms")

	// -- Portal selectors (the console's actual markup) --
	v.SetDefault("portal.username_input", "#username")
	v.SetDefault("portal.password_input", "#password")
	v.SetDefault("portal.login_submit", "#loginBtn")
	v.SetDefault("portal.search_input", "#sharing_key")
	v.SetDefault("portal.search_submit", "#doSearch")
	v.SetDefault("portal.row_radio_name", "sharing_partner_rad")
	v.SetDefault("portal.edit_button", "#goEdit")
	v.SetDefault("portal.identity_input", "#sharing_key")
	v.SetDefault("portal.pos_input", "#info")
	v.SetDefault("portal.save_button", "#doEdit")
	v.SetDefault("portal.no_data_text", "Không có dữ liệu")

	// -- Updater --
	v.SetDefault("updater.retries", 2)
	v.SetDefault("updater.retry_backoff", "2s")
	v.SetDefault("updater.step_delay", "0s")
	v.SetDefault("updater.row_wait", "10s")
	v.SetDefault("updater.row_poll_attempts", 3)
	v.SetDefault("updater.reset_settle", "2s")
}

// NewConfigFromViper creates a validated configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// LoadCredentials pulls the admin credentials from the environment via viper.
func LoadCredentials(v *viper.Viper) (Credentials, error) {
	v.BindEnv("admin_username", "POSSYNC_ADMIN_USERNAME")
	v.BindEnv("admin_password", "POSSYNC_ADMIN_PASSWORD")

	creds := Credentials{
		Username: v.GetString("admin_username"),
		Password: v.GetString("admin_password"),
	}
	if creds.Username == "" || creds.Password == "" {
		return Credentials{}, fmt.Errorf("missing POSSYNC_ADMIN_USERNAME or POSSYNC_ADMIN_PASSWORD in environment")
	}
	return creds, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Portal.LoginURL == "" {
		return fmt.Errorf("portal.login_url is a required configuration field")
	}
	if c.Portal.SearchURL == "" {
		return fmt.Errorf("portal.search_url is a required configuration field")
	}
	if c.Updater.Retries < 0 {
		return fmt.Errorf("updater.retries must not be negative")
	}
	if c.Updater.RowPollAttempts <= 0 {
		return fmt.Errorf("updater.row_poll_attempts must be a positive integer")
	}
	if c.Updater.RetryBackoff < 0 || c.Updater.StepDelay < 0 {
		return fmt.Errorf("updater durations must not be negative")
	}
	return nil
}

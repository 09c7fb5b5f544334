package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const appConfigDir = "email-mcp"

// Config is an immutable snapshot of the runtime configuration. Nothing
// outside this package reads the environment.
type Config struct {
	// Provider selects the backend: "smtp" (SMTP+IMAP) or "gmail".
	Provider       string          `mapstructure:"provider"`
	DefaultAccount string          `mapstructure:"default_account"`
	DefaultFrom    string          `mapstructure:"default_from"`
	Keyring        bool            `mapstructure:"keyring"`
	Log            LogConfig       `mapstructure:"log"`
	Accounts       []AccountConfig `mapstructure:"accounts"`
	// SMTP and IMAP hold the flat single-account settings.
	SMTP    EndpointConfig          `mapstructure:"smtp"`
	IMAP    EndpointConfig          `mapstructure:"imap"`
	Presets map[string]PresetConfig `mapstructure:"presets"`
	Gmail   GmailConfig             `mapstructure:"gmail"`
	Session SessionConfig           `mapstructure:"session"`

	// Path is the config file that was read, if any.
	Path string `mapstructure:"-"`
}

// LogConfig selects log verbosity and encoding.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// EndpointConfig is one SMTP or IMAP server. A nil Secure means implicit
// TLS on ports 465 and 993.
type EndpointConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Secure     *bool  `mapstructure:"secure"`
	User       string `mapstructure:"user"`
	Pass       string `mapstructure:"pass"`
	RequiresID bool   `mapstructure:"requires_id"`
}

// AccountConfig is a named account from the config file.
type AccountConfig struct {
	Name    string         `mapstructure:"name"`
	Address string         `mapstructure:"address"`
	Domains []string       `mapstructure:"domains"`
	SMTP    EndpointConfig `mapstructure:"smtp"`
	IMAP    EndpointConfig `mapstructure:"imap"`
}

// PresetConfig is a well-known provider account enabled by its environment
// variables, for example QQ_SMTP_USER and QQ_SMTP_PASS.
type PresetConfig struct {
	User       string `mapstructure:"smtp_user"`
	Pass       string `mapstructure:"smtp_pass"`
	SMTPHost   string `mapstructure:"smtp_host"`
	SMTPPort   int    `mapstructure:"smtp_port"`
	SMTPSecure bool   `mapstructure:"smtp_secure"`
	IMAPHost   string `mapstructure:"imap_host"`
	IMAPPort   int    `mapstructure:"imap_port"`
	IMAPSecure bool   `mapstructure:"imap_secure"`
	RequiresID bool   `mapstructure:"requires_id"`
}

// GmailConfig holds the OAuth credentials of the Gmail API backend.
type GmailConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RefreshToken string `mapstructure:"refresh_token"`
	AccessToken  string `mapstructure:"access_token"`
	PageSize     int64  `mapstructure:"page_size"`
}

// SessionConfig tunes the SMTP+IMAP backend.
type SessionConfig struct {
	IDHosts            []string      `mapstructure:"id_hosts"`
	DialTimeout        time.Duration `mapstructure:"dial_timeout"`
	CommandTimeout     time.Duration `mapstructure:"command_timeout"`
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify"`
	ParseConcurrency   int           `mapstructure:"parse_concurrency"`
	ScanLimit          int           `mapstructure:"scan_limit"`
}

// presetNames are enabled in this order after the file accounts.
var presetNames = []string{"qq", "163"}

var envBindings = map[string]string{
	"provider":        "EMAIL_PROVIDER",
	"default_account": "DEFAULT_EMAIL_ACCOUNT",
	"default_from":    "DEFAULT_FROM_EMAIL",
	"keyring":         "EMAIL_MCP_KEYRING",
	"log.level":       "LOG_LEVEL",
	"log.format":      "LOG_FORMAT",

	"smtp.host":   "SMTP_HOST",
	"smtp.port":   "SMTP_PORT",
	"smtp.secure": "SMTP_SECURE",
	"smtp.user":   "SMTP_USER",
	"smtp.pass":   "SMTP_PASS",
	"imap.host":   "IMAP_HOST",
	"imap.port":   "IMAP_PORT",
	"imap.secure": "IMAP_SECURE",
	"imap.user":   "IMAP_USER",
	"imap.pass":   "IMAP_PASS",

	"gmail.client_id":     "GMAIL_CLIENT_ID",
	"gmail.client_secret": "GMAIL_CLIENT_SECRET",
	"gmail.refresh_token": "GMAIL_REFRESH_TOKEN",
	"gmail.access_token":  "GMAIL_ACCESS_TOKEN",

	"session.id_hosts":             "IMAP_ID_HOSTS",
	"session.scan_limit":           "IMAP_SCAN_LIMIT",
	"session.insecure_skip_verify": "IMAP_INSECURE_SKIP_VERIFY",
}

var presetFields = []string{
	"smtp_user", "smtp_pass",
	"smtp_host", "smtp_port", "smtp_secure",
	"imap_host", "imap_port", "imap_secure",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("provider", "smtp")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("smtp.host", "smtp.gmail.com")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.secure", false)
	v.SetDefault("imap.host", "imap.qq.com")
	v.SetDefault("imap.port", 993)
	v.SetDefault("imap.secure", true)

	v.SetDefault("presets.qq.smtp_host", "smtp.qq.com")
	v.SetDefault("presets.qq.smtp_port", 465)
	v.SetDefault("presets.qq.smtp_secure", true)
	v.SetDefault("presets.qq.imap_host", "imap.qq.com")
	v.SetDefault("presets.qq.imap_port", 993)
	v.SetDefault("presets.qq.imap_secure", true)

	v.SetDefault("presets.163.smtp_host", "smtp.163.com")
	v.SetDefault("presets.163.smtp_port", 465)
	v.SetDefault("presets.163.smtp_secure", true)
	v.SetDefault("presets.163.imap_host", "imap.163.com")
	v.SetDefault("presets.163.imap_port", 993)
	v.SetDefault("presets.163.imap_secure", true)
	v.SetDefault("presets.163.requires_id", true)

	v.SetDefault("gmail.page_size", 100)
}

func bindEnv(v *viper.Viper) error {
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("config: binding %s: %w", env, err)
		}
	}
	for _, name := range presetNames {
		for _, field := range presetFields {
			key := "presets." + name + "." + field
			env := strings.ToUpper(name + "_" + field)
			if err := v.BindEnv(key, env); err != nil {
				return fmt.Errorf("config: binding %s: %w", env, err)
			}
		}
	}
	return nil
}

// DefaultPath returns the XDG location of the config file.
func DefaultPath() (string, error) {
	return xdg.ConfigFile(filepath.Join(appConfigDir, "config.yaml"))
}

// Load reads .env, the config file and the environment, in increasing
// precedence. An empty path searches the XDG config directories; a missing
// file there is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	if err := bindEnv(v); err != nil {
		return nil, err
	}

	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		if found, err := xdg.SearchConfigFile(filepath.Join(appConfigDir, "config.yaml")); err == nil {
			path = found
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			var pathErr *os.PathError
			missing := errors.As(err, &notFound) || errors.As(err, &pathErr)
			if explicit || !missing {
				return nil, fmt.Errorf("config: reading %s: %w", path, err)
			}
			path = ""
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	cfg.Path = path
	cfg.Provider = normalize(cfg.Provider, "smtp")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Provider {
	case "smtp", "gmail":
	default:
		return fmt.Errorf("config: unsupported provider %q", c.Provider)
	}
	seen := map[string]bool{}
	for i, acct := range c.Accounts {
		name := strings.ToLower(strings.TrimSpace(acct.Name))
		if name == "" {
			return fmt.Errorf("config: accounts[%d] has no name", i)
		}
		if seen[name] {
			return fmt.Errorf("config: duplicate account %q", acct.Name)
		}
		seen[name] = true
	}
	return nil
}

func normalize(value, def string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return def
	}
	return value
}

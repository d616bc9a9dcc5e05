// ABOUTME: Configuration loading and parsing for ledger-portal
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied when the corresponding field is left empty.
const (
	DefaultCollectionSuffix = "PrivateCollection"
	DefaultLedgerTimeout    = 30 * time.Second
	DefaultReservationTTL   = 2 * time.Minute
	DefaultUploadsDir       = "uploads"
	DefaultUploadMaxSizeMB  = 32
	DefaultSessionCookie    = "ledger_portal_session"
	DefaultSessionTTL       = 24 * time.Hour
)

// Config represents the complete ledger-portal configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Database  DatabaseConfig  `yaml:"database"`
	Ledger    LedgerConfig    `yaml:"ledger"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	Uploads   UploadsConfig   `yaml:"uploads"`
	Session   SessionConfig   `yaml:"session"`
	Settings  SettingsConfig  `yaml:"settings"`
	API       APIConfig       `yaml:"api"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds listen addresses. APIAddr may be empty to disable the JSON API.
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
	APIAddr  string `yaml:"api_addr"`
}

// TailscaleConfig holds Tailscale tsnet configuration
type TailscaleConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Hostname  string `yaml:"hostname"`
	AuthKey   string `yaml:"auth_key"`
	StateDir  string `yaml:"state_dir"`
	Ephemeral bool   `yaml:"ephemeral"`
	HTTPS     bool   `yaml:"https"`
	Funnel    bool   `yaml:"funnel"` // Enable public Funnel (implies HTTPS)
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LedgerConfig names the contracts the portal talks to and bounds each ledger call.
type LedgerConfig struct {
	Channel            string `yaml:"channel"`
	TransferChaincode  string `yaml:"transfer_chaincode"`
	EmissionsChaincode string `yaml:"emissions_chaincode"`

	// CollectionSuffix is appended to the organization ID to name its
	// private data collection, e.g. "Org1MSP" + "PrivateCollection".
	CollectionSuffix string `yaml:"collection_suffix"`

	// PresetsFile is a TOML file of named gateway presets.
	PresetsFile   string `yaml:"presets_file"`
	DefaultPreset string `yaml:"default_preset"`

	Timeout        time.Duration `yaml:"-"`
	ReservationTTL time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	TimeoutRaw        string `yaml:"timeout"`
	ReservationTTLRaw string `yaml:"reservation_ttl"`
}

// GatewayConfig is the connection opened at startup. Leave Address empty to
// start unconnected and configure the gateway from the settings page.
type GatewayConfig struct {
	Address            string `yaml:"address"`
	OrganizationID     string `yaml:"organization_id"`
	CertificatePath    string `yaml:"certificate_path"`
	PrivateKeyPath     string `yaml:"private_key_path"`
	TLSRootCertPath    string `yaml:"tls_root_cert_path"`
	ServerNameOverride string `yaml:"server_name_override"`
}

// UploadsConfig holds the upload directory for files attached to forms
type UploadsConfig struct {
	Dir       string `yaml:"dir"`
	MaxSizeMB int64  `yaml:"max_size_mb"`
}

// SessionConfig holds flash session cookie settings
type SessionConfig struct {
	CookieName string        `yaml:"cookie_name"`
	Secure     bool          `yaml:"secure"`
	TTL        time.Duration `yaml:"-"`
	TTLRaw     string        `yaml:"ttl"`
}

// SettingsConfig guards the gateway settings form.
type SettingsConfig struct {
	// PasswordHash is a bcrypt hash; when set the settings form must carry
	// the matching adminPassword field.
	PasswordHash string `yaml:"password_hash"`
}

// APIConfig holds JSON API configuration
type APIConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML configuration bytes, applying the same expansion,
// duration parsing, defaults and validation as Load.
func Parse(data []byte) (*Config, error) {
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

func (c *Config) applyDefaults() {
	if c.Ledger.CollectionSuffix == "" {
		c.Ledger.CollectionSuffix = DefaultCollectionSuffix
	}
	if c.Ledger.Timeout == 0 {
		c.Ledger.Timeout = DefaultLedgerTimeout
	}
	if c.Ledger.ReservationTTL == 0 {
		c.Ledger.ReservationTTL = DefaultReservationTTL
	}
	if c.Uploads.Dir == "" {
		c.Uploads.Dir = DefaultUploadsDir
	}
	if c.Uploads.MaxSizeMB <= 0 {
		c.Uploads.MaxSizeMB = DefaultUploadMaxSizeMB
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = DefaultSessionCookie
	}
	if c.Session.TTL == 0 {
		c.Session.TTL = DefaultSessionTTL
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if !c.Tailscale.Enabled && c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required (or enable tailscale)")
	}

	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Ledger.Channel == "" {
		return fmt.Errorf("ledger.channel is required")
	}
	if c.Ledger.TransferChaincode == "" {
		return fmt.Errorf("ledger.transfer_chaincode is required")
	}
	if c.Ledger.EmissionsChaincode == "" {
		return fmt.Errorf("ledger.emissions_chaincode is required")
	}

	if c.Ledger.DefaultPreset != "" && c.Ledger.PresetsFile == "" {
		return fmt.Errorf("ledger.default_preset requires ledger.presets_file")
	}
	if c.Ledger.DefaultPreset != "" && c.Gateway.Address != "" {
		return fmt.Errorf("ledger.default_preset and gateway.address are mutually exclusive")
	}

	if c.Gateway.Address != "" {
		if c.Gateway.OrganizationID == "" {
			return fmt.Errorf("gateway.organization_id is required when gateway.address is set")
		}
		if c.Gateway.CertificatePath == "" || c.Gateway.PrivateKeyPath == "" || c.Gateway.TLSRootCertPath == "" {
			return fmt.Errorf("gateway certificate_path, private_key_path and tls_root_cert_path are required when gateway.address is set")
		}
	}

	if c.API.JWTSecret != "" && len(c.API.JWTSecret) < 32 {
		return fmt.Errorf("api.jwt_secret must be at least 32 bytes")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Ledger.TimeoutRaw != "" {
		cfg.Ledger.Timeout, err = time.ParseDuration(cfg.Ledger.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing ledger.timeout %q: %w", cfg.Ledger.TimeoutRaw, err)
		}
	}

	if cfg.Ledger.ReservationTTLRaw != "" {
		cfg.Ledger.ReservationTTL, err = time.ParseDuration(cfg.Ledger.ReservationTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing ledger.reservation_ttl %q: %w", cfg.Ledger.ReservationTTLRaw, err)
		}
	}

	if cfg.Session.TTLRaw != "" {
		cfg.Session.TTL, err = time.ParseDuration(cfg.Session.TTLRaw)
		if err != nil {
			return fmt.Errorf("parsing session.ttl %q: %w", cfg.Session.TTLRaw, err)
		}
	}

	return nil
}

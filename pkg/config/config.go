package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/ioevents/pkg/httpclient"
	"github.com/platinummonkey/ioevents/pkg/keycache"
	"github.com/platinummonkey/ioevents/pkg/observability"
	"github.com/platinummonkey/ioevents/pkg/signature"
	"github.com/platinummonkey/ioevents/pkg/storage"
)

// EnvConfigFile names an optional YAML file applied before environment variables
const EnvConfigFile = "IOEVENTS_CONFIG_FILE"

// Config holds all application configuration
type Config struct {
	Credentials   CredentialsConfig   `yaml:"credentials"`
	HTTP          HTTPConfig          `yaml:"http"`
	Journal       JournalConfig       `yaml:"journal"`
	Signature     SignatureConfig     `yaml:"signature"`
	KeyCache      keycache.Config     `yaml:"key_cache"`
	Storage       storage.Config      `yaml:"storage"`
	Observability ObservabilityConfig `yaml:"observability"`
	Server        ServerConfig        `yaml:"server"`
}

// CredentialsConfig identifies the integration
type CredentialsConfig struct {
	OrganizationID string `yaml:"organization_id"`
	APIKey         string `yaml:"api_key"`
	AccessToken    string `yaml:"access_token"`
	// ClientID is the recipient client id webhook payloads must name
	ClientID string `yaml:"client_id"`
}

// HTTPConfig configures calls to the events service
type HTTPConfig struct {
	BaseURL    string                 `yaml:"base_url"`
	IngressURL string                 `yaml:"ingress_url"`
	Timeout    time.Duration          `yaml:"timeout"`
	Retry      httpclient.RetryConfig `yaml:"retry"`
}

// JournalConfig selects and paces a journal
type JournalConfig struct {
	URL          string        `yaml:"url"`
	PollInterval time.Duration `yaml:"poll_interval"`
	Latest       bool          `yaml:"latest"`
	Since        string        `yaml:"since"`
	Limit        int           `yaml:"limit"`
	// ConsumerKey names the saved cursor; empty disables resuming
	ConsumerKey string `yaml:"consumer_key"`
}

// SignatureConfig configures webhook signature checks
type SignatureConfig struct {
	SecurityDomain  string   `yaml:"security_domain"`
	TrustedKeyHosts []string `yaml:"trusted_key_hosts"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel  string                  `yaml:"log_level"`
	LogFormat observability.LogFormat `yaml:"log_format"`

	// Metrics
	MetricsEnabled bool `yaml:"metrics_enabled"`

	// OpenTelemetry
	OTelEnabled        bool   `yaml:"otel_enabled"`
	OTelEndpoint       string `yaml:"otel_endpoint"`
	OTelServiceName    string `yaml:"otel_service_name"`
	OTelServiceVersion string `yaml:"otel_service_version"`
	OTelInsecure       bool   `yaml:"otel_insecure"` // Use insecure gRPC connection
	// Fraction of root traces sampled; 0 or 1 samples everything
	OTelSampleRatio float64 `yaml:"otel_sample_ratio"`
}

// OTel returns the OpenTelemetry settings in the form InitOTel takes
func (o ObservabilityConfig) OTel() observability.OTelConfig {
	return observability.OTelConfig{
		Enabled:        o.OTelEnabled,
		Endpoint:       o.OTelEndpoint,
		ServiceName:    o.OTelServiceName,
		ServiceVersion: o.OTelServiceVersion,
		Insecure:       o.OTelInsecure,
		SampleRatio:    o.OTelSampleRatio,
	}
}

// ServerConfig holds webhook receiver settings
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	WebhookPath     string        `yaml:"webhook_path"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Dispatch of verified events
	Workers   int `yaml:"workers"`
	QueueSize int `yaml:"queue_size"`
}

// Addr returns host:port
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			BaseURL:    "https://api.adobe.io",
			IngressURL: "https://eventsingress.adobe.io",
			Timeout:    30 * time.Second,
			Retry:      httpclient.DefaultRetryConfig(),
		},
		Journal: JournalConfig{
			PollInterval: 0,
		},
		Signature: SignatureConfig{
			SecurityDomain: signature.DefaultSecurityDomain,
		},
		KeyCache: keycache.DefaultConfig(),
		Storage:  storage.DefaultConfig(),
		Observability: ObservabilityConfig{
			LogLevel:           "info",
			LogFormat:          observability.FormatText,
			MetricsEnabled:     true,
			OTelEndpoint:       "localhost:4317",
			OTelServiceName:    "ioevents",
			OTelServiceVersion: "1.0.0",
			OTelInsecure:       true,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			WebhookPath:     "/webhook",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			Workers:         4,
			QueueSize:       100,
		},
	}
}

// LoadConfig builds the configuration from defaults, the optional YAML file
// named by IOEVENTS_CONFIG_FILE, then IOEVENTS_* environment variables, and
// validates the result.
func LoadConfig() (*Config, error) {
	return Load(getEnv(EnvConfigFile, ""))
}

// Load builds the configuration from defaults, the YAML file at path when
// path is not empty, then IOEVENTS_* environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadFile overlays the YAML file at path onto c
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides c with any IOEVENTS_* variables that are set
func (c *Config) applyEnv() {
	// Credentials
	c.Credentials.OrganizationID = getEnv("IOEVENTS_ORG_ID", c.Credentials.OrganizationID)
	c.Credentials.APIKey = getEnv("IOEVENTS_API_KEY", c.Credentials.APIKey)
	c.Credentials.AccessToken = getEnv("IOEVENTS_ACCESS_TOKEN", c.Credentials.AccessToken)
	c.Credentials.ClientID = getEnv("IOEVENTS_CLIENT_ID", c.Credentials.ClientID)

	// HTTP
	c.HTTP.BaseURL = getEnv("IOEVENTS_BASE_URL", c.HTTP.BaseURL)
	c.HTTP.IngressURL = getEnv("IOEVENTS_INGRESS_URL", c.HTTP.IngressURL)
	c.HTTP.Timeout = getEnvDuration("IOEVENTS_HTTP_TIMEOUT", c.HTTP.Timeout)
	c.HTTP.Retry.MaxRetries = getEnvInt("IOEVENTS_HTTP_RETRIES", c.HTTP.Retry.MaxRetries)
	c.HTTP.Retry.InitialDelay = getEnvDuration("IOEVENTS_HTTP_RETRY_DELAY", c.HTTP.Retry.InitialDelay)

	// Journal
	c.Journal.URL = getEnv("IOEVENTS_JOURNAL_URL", c.Journal.URL)
	c.Journal.PollInterval = getEnvDuration("IOEVENTS_JOURNAL_INTERVAL", c.Journal.PollInterval)
	c.Journal.Latest = getEnvBool("IOEVENTS_JOURNAL_LATEST", c.Journal.Latest)
	c.Journal.Since = getEnv("IOEVENTS_JOURNAL_SINCE", c.Journal.Since)
	c.Journal.Limit = getEnvInt("IOEVENTS_JOURNAL_LIMIT", c.Journal.Limit)
	c.Journal.ConsumerKey = getEnv("IOEVENTS_JOURNAL_CONSUMER_KEY", c.Journal.ConsumerKey)

	// Signature
	c.Signature.SecurityDomain = getEnv("IOEVENTS_SECURITY_DOMAIN", c.Signature.SecurityDomain)
	if hosts := getEnv("IOEVENTS_TRUSTED_KEY_HOSTS", ""); hosts != "" {
		c.Signature.TrustedKeyHosts = splitList(hosts)
	}

	// Key cache
	c.KeyCache.Type = keycache.Type(getEnv("IOEVENTS_KEY_CACHE_TYPE", string(c.KeyCache.Type)))
	c.KeyCache.RedisURL = getEnv("IOEVENTS_KEY_CACHE_REDIS_URL", c.KeyCache.RedisURL)
	c.KeyCache.MaxEntries = getEnvInt("IOEVENTS_KEY_CACHE_SIZE", c.KeyCache.MaxEntries)
	c.KeyCache.TTL = getEnvDuration("IOEVENTS_KEY_CACHE_TTL", c.KeyCache.TTL)

	// Cursor storage
	c.Storage.Type = storage.Type(getEnv("IOEVENTS_STORAGE_TYPE", string(c.Storage.Type)))
	c.Storage.FilesystemRoot = getEnv("IOEVENTS_FILESYSTEM_ROOT", c.Storage.FilesystemRoot)
	c.Storage.DSN = getEnv("IOEVENTS_STORAGE_DSN", c.Storage.DSN)
	c.Storage.RedisURL = getEnv("IOEVENTS_STORAGE_REDIS_URL", c.Storage.RedisURL)
	c.Storage.MaxConns = getEnvInt("IOEVENTS_STORAGE_MAX_CONNS", c.Storage.MaxConns)
	c.Storage.S3Bucket = getEnv("IOEVENTS_S3_BUCKET", c.Storage.S3Bucket)
	c.Storage.S3Prefix = getEnv("IOEVENTS_S3_PREFIX", c.Storage.S3Prefix)
	c.Storage.S3Region = getEnv("IOEVENTS_S3_REGION", c.Storage.S3Region)
	c.Storage.S3Endpoint = getEnv("IOEVENTS_S3_ENDPOINT", c.Storage.S3Endpoint)
	c.Storage.S3AccessKey = getEnv("IOEVENTS_S3_ACCESS_KEY", c.Storage.S3AccessKey)
	c.Storage.S3SecretKey = getEnv("IOEVENTS_S3_SECRET_KEY", c.Storage.S3SecretKey)
	c.Storage.S3UsePathStyle = getEnvBool("IOEVENTS_S3_USE_PATH_STYLE", c.Storage.S3UsePathStyle)

	// Observability
	c.Observability.LogLevel = getEnv("IOEVENTS_LOG_LEVEL", c.Observability.LogLevel)
	c.Observability.LogFormat = observability.LogFormat(getEnv("IOEVENTS_LOG_FORMAT", string(c.Observability.LogFormat)))
	c.Observability.MetricsEnabled = getEnvBool("IOEVENTS_METRICS_ENABLED", c.Observability.MetricsEnabled)
	c.Observability.OTelEnabled = getEnvBool("IOEVENTS_OTEL_ENABLED", c.Observability.OTelEnabled)
	c.Observability.OTelEndpoint = getEnv("IOEVENTS_OTEL_ENDPOINT", c.Observability.OTelEndpoint)
	c.Observability.OTelServiceName = getEnv("IOEVENTS_OTEL_SERVICE_NAME", c.Observability.OTelServiceName)
	c.Observability.OTelServiceVersion = getEnv("IOEVENTS_OTEL_SERVICE_VERSION", c.Observability.OTelServiceVersion)
	c.Observability.OTelInsecure = getEnvBool("IOEVENTS_OTEL_INSECURE", c.Observability.OTelInsecure)
	c.Observability.OTelSampleRatio = getEnvFloat("IOEVENTS_OTEL_SAMPLE_RATIO", c.Observability.OTelSampleRatio)

	// Server
	c.Server.Host = getEnv("IOEVENTS_HOST", c.Server.Host)
	c.Server.Port = getEnv("IOEVENTS_PORT", c.Server.Port)
	c.Server.WebhookPath = getEnv("IOEVENTS_WEBHOOK_PATH", c.Server.WebhookPath)
	c.Server.ShutdownTimeout = getEnvDuration("IOEVENTS_SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)
	c.Server.Workers = getEnvInt("IOEVENTS_WORKERS", c.Server.Workers)
	c.Server.QueueSize = getEnvInt("IOEVENTS_QUEUE_SIZE", c.Server.QueueSize)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate HTTP config
	if c.HTTP.Retry.MaxRetries < 0 {
		return fmt.Errorf("http retries must not be negative")
	}
	if err := requireHTTPURL("base URL", c.HTTP.BaseURL); err != nil {
		return err
	}
	if err := requireHTTPURL("ingress URL", c.HTTP.IngressURL); err != nil {
		return err
	}

	// Validate journal config
	if c.Journal.PollInterval < 0 {
		return fmt.Errorf("journal poll interval must not be negative")
	}
	if c.Journal.Limit < 0 {
		return fmt.Errorf("journal limit must not be negative")
	}

	// Validate signature config
	if u, err := url.Parse(c.Signature.SecurityDomain); err != nil || u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("security domain must be an https URL: %q", c.Signature.SecurityDomain)
	}

	// Validate key cache config
	switch c.KeyCache.Type {
	case keycache.TypeMemory:
	case keycache.TypeRedis:
		if c.KeyCache.RedisURL == "" {
			return fmt.Errorf("redis URL is required for redis key cache")
		}
	default:
		return fmt.Errorf("invalid key cache type: %s (must be memory or redis)", c.KeyCache.Type)
	}

	// Validate storage config based on type
	switch c.Storage.Type {
	case storage.TypeMemory:
	case storage.TypeFilesystem:
		if c.Storage.FilesystemRoot == "" {
			return fmt.Errorf("filesystem root is required for filesystem storage")
		}
	case storage.TypeRedis:
		if c.Storage.RedisURL == "" {
			return fmt.Errorf("redis URL is required for redis storage")
		}
	case storage.TypePostgres, storage.TypeSQLite:
		if c.Storage.DSN == "" {
			return fmt.Errorf("DSN is required for %s storage", c.Storage.Type)
		}
	case storage.TypeS3:
		if c.Storage.S3Bucket == "" {
			return fmt.Errorf("S3 bucket is required for s3 storage")
		}
	default:
		return fmt.Errorf("invalid storage type: %s (must be memory, filesystem, redis, postgres, sqlite, or s3)", c.Storage.Type)
	}

	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if !strings.HasPrefix(c.Server.WebhookPath, "/") {
		return fmt.Errorf("webhook path must start with /")
	}

	// Validate OpenTelemetry config
	if r := c.Observability.OTelSampleRatio; r < 0 || r > 1 {
		return fmt.Errorf("OpenTelemetry sample ratio must be between 0 and 1, got %v", r)
	}
	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// RequireCredentials checks the fields needed to call the management APIs
func (c *Config) RequireCredentials() error {
	var missing []string
	if c.Credentials.OrganizationID == "" {
		missing = append(missing, "IOEVENTS_ORG_ID")
	}
	if c.Credentials.APIKey == "" {
		missing = append(missing, "IOEVENTS_API_KEY")
	}
	if c.Credentials.AccessToken == "" {
		missing = append(missing, "IOEVENTS_ACCESS_TOKEN")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing credentials: %s", strings.Join(missing, ", "))
	}
	return nil
}

func requireHTTPURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an http(s) URL: %q", name, raw)
	}
	return nil
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat returns a float environment variable or a default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

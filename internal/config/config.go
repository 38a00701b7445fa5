package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
// Oracle API key precedence order:
// 1. Vault (if configured) - Highest priority
// 2. Config file values
// 3. Environment variables (CAREERMATCH_AI_APIKEY, GEMINI_API_KEY)
// 4. Default values - Lowest priority
type Config struct {
	AI            OracleConfig        `mapstructure:"ai"`
	Matching      MatchingConfig      `mapstructure:"matching"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Server        ServerConfig        `mapstructure:"server"`
	App           AppConfig           `mapstructure:"app"`
	Vault         VaultConfig         `mapstructure:"vault"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// OracleConfig holds ranking oracle (language model) configuration
type OracleConfig struct {
	Provider           string               `mapstructure:"provider"`
	Model              string               `mapstructure:"model"`
	APIKey             string               `mapstructure:"apiKey"`
	Timeout            time.Duration        `mapstructure:"timeout"` // per-attempt transport timeout
	MaxRetries         int                  `mapstructure:"maxRetries"`
	Temperature        *float32             `mapstructure:"temperature"`
	PromptTemplate     string               `mapstructure:"promptTemplate"`
	PromptTemplateFile string               `mapstructure:"promptTemplateFile"`
	CircuitBreaker     CircuitBreakerConfig `mapstructure:"circuitBreaker"`
}

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`          // Whether circuit breaker is enabled
	MaxRequests      uint32        `mapstructure:"maxRequests"`      // Max requests allowed when half-open
	Interval         time.Duration `mapstructure:"interval"`         // Interval to clear counts
	Timeout          time.Duration `mapstructure:"timeout"`          // Timeout for half-open to open
	MinRequests      uint32        `mapstructure:"minRequests"`      // Minimum requests before tripping
	FailureThreshold float64       `mapstructure:"failureThreshold"` // Failure ratio threshold (0.0-1.0)
}

// ScoringWeights parameterizes the pre-filter overlap heuristic.
type ScoringWeights struct {
	Skills    int `mapstructure:"skills"`
	Industry  int `mapstructure:"industry"`
	Interests int `mapstructure:"interests"`
	Education int `mapstructure:"education"`
}

// MatchingConfig enumerates the pipeline constants that vary per deployment.
type MatchingConfig struct {
	TargetMatchCount  int            `mapstructure:"targetMatchCount"`  // K: max candidates returned
	PreFilterMaxSize  int            `mapstructure:"preFilterMaxSize"`  // catalog cap handed to the oracle
	PreFilterFloor    int            `mapstructure:"preFilterFloor"`    // minimum pre-filter output size
	OracleTimeout     time.Duration  `mapstructure:"oracleTimeout"`     // race budget for the oracle call
	OverallBudget     time.Duration  `mapstructure:"overallBudget"`     // hard wall-clock budget per request
	MaxFreeTextLength int            `mapstructure:"maxFreeTextLength"` // free-text truncation bound
	JitterEnabled     bool           `mapstructure:"jitterEnabled"`     // fallback tie-break jitter
	PinCurrentPath    bool           `mapstructure:"pinCurrentPath"`    // optional trailblazer policy hook
	Weights           ScoringWeights `mapstructure:"weights"`
}

// DatabaseConfig holds Postgres connection configuration
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxConns        int32         `mapstructure:"maxConns"`
	ConnectTimeout  time.Duration `mapstructure:"connectTimeout"`
	CatalogPageSize int           `mapstructure:"catalogPageSize"` // page size for catalog pagination
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout  time.Duration `mapstructure:"idleTimeout"`

	// TLS Configuration (server mode only; plaintext when disabled)
	TLS TLSConfig `mapstructure:"tls"`

	// API Authentication
	APIKeys []string `mapstructure:"apiKeys"` // Valid API keys for authentication

	// Rate Limiting Configuration
	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
}

// TLSConfig holds TLS configuration
type TLSConfig struct {
	Mode     string `mapstructure:"mode"`     // "disabled" or "server"
	CertFile string `mapstructure:"certFile"` // Server certificate file (PEM)
	KeyFile  string `mapstructure:"keyFile"`  // Server private key file (PEM)
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled        bool          `mapstructure:"enabled"`        // Enable/disable rate limiting
	RequestsPerMin int           `mapstructure:"requestsPerMin"` // Requests allowed per minute
	BurstCapacity  int           `mapstructure:"burstCapacity"`  // Burst capacity for token bucket
	ByIP           bool          `mapstructure:"byIP"`           // Enable per-IP rate limiting
	ByAPIKey       bool          `mapstructure:"byAPIKey"`       // Enable per-API-key rate limiting
	Window         time.Duration `mapstructure:"window"`         // Rate limiting window duration
}

// AppConfig holds general application configuration
type AppConfig struct {
	LogLevel       string `mapstructure:"logLevel"`
	MaxRequestSize int64  `mapstructure:"maxRequestSize"`
}

// ObservabilityConfig holds observability configuration
type ObservabilityConfig struct {
	Enabled         bool             `mapstructure:"enabled"`
	ServiceName     string           `mapstructure:"serviceName"`
	ServiceVersion  string           `mapstructure:"serviceVersion"`
	ServiceInstance string           `mapstructure:"serviceInstance"`
	Tracing         TracingConfig    `mapstructure:"tracing"`
	Metrics         MetricsConfig    `mapstructure:"metrics"`
	Console         ConsoleConfig    `mapstructure:"console"`
	Prometheus      PrometheusConfig `mapstructure:"prometheus"`
	OTLP            OTLPConfig       `mapstructure:"otlp"`
}

// TracingConfig holds tracing configuration
type TracingConfig struct {
	Enabled    bool    `mapstructure:"enabled"`
	SampleRate float64 `mapstructure:"sampleRate"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	CollectionInterval time.Duration `mapstructure:"collectionInterval"`
}

// ConsoleConfig holds stdout exporter configuration
type ConsoleConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	PrettyPrint bool `mapstructure:"prettyPrint"`
}

// PrometheusConfig holds Prometheus configuration
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Port     string `mapstructure:"port"`
}

// OTLPConfig holds OTLP exporter configuration
type OTLPConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	Endpoint string            `mapstructure:"endpoint"`
	Insecure bool              `mapstructure:"insecure"`
	Headers  map[string]string `mapstructure:"headers"`
}

// LoadConfig loads configuration from environment variables and a config file
func LoadConfig() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("CAREERMATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/careermatch/")
	v.AddConfigPath("$HOME/.careermatch")
	v.AddConfigPath(".")

	configFileUsed := ""
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		log.Println("[CONFIG] No config file found, using defaults and environment variables")
	} else {
		configFileUsed = v.ConfigFileUsed()
		log.Printf("[CONFIG] Successfully loaded config file: %s", configFileUsed)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.applyFallbacks()

	// Vault overrides everything else when enabled
	if err := cfg.loadSecretsFromVault(); err != nil {
		return nil, fmt.Errorf("failed to load secrets from vault: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.logConfigurationSources(configFileUsed)

	return &cfg, nil
}

// Validate checks configuration invariants that would otherwise surface as
// confusing behavior deep inside the pipeline.
func (c *Config) Validate() error {
	m := c.Matching
	if m.TargetMatchCount <= 0 {
		return fmt.Errorf("matching.targetMatchCount must be positive, got %d", m.TargetMatchCount)
	}
	if m.PreFilterMaxSize <= 0 {
		return fmt.Errorf("matching.preFilterMaxSize must be positive, got %d", m.PreFilterMaxSize)
	}
	if m.PreFilterFloor < 0 || m.PreFilterFloor > m.PreFilterMaxSize {
		return fmt.Errorf("matching.preFilterFloor must be within [0, preFilterMaxSize], got %d", m.PreFilterFloor)
	}
	if m.OracleTimeout <= 0 {
		return fmt.Errorf("matching.oracleTimeout must be positive, got %s", m.OracleTimeout)
	}
	if m.OverallBudget < m.OracleTimeout {
		return fmt.Errorf("matching.overallBudget (%s) must not be smaller than oracleTimeout (%s)", m.OverallBudget, m.OracleTimeout)
	}
	if m.MaxFreeTextLength <= 0 {
		return fmt.Errorf("matching.maxFreeTextLength must be positive, got %d", m.MaxFreeTextLength)
	}
	w := m.Weights
	if w.Skills < 0 || w.Industry < 0 || w.Interests < 0 || w.Education < 0 {
		return fmt.Errorf("matching.weights must be non-negative")
	}
	if w.Skills+w.Industry+w.Interests+w.Education == 0 {
		return fmt.Errorf("matching.weights must not all be zero")
	}

	switch c.Server.TLS.Mode {
	case "", "disabled":
	case "server":
		if c.Server.TLS.CertFile == "" || c.Server.TLS.KeyFile == "" {
			return fmt.Errorf("server.tls certFile and keyFile are required in server mode")
		}
	default:
		return fmt.Errorf("unsupported server.tls.mode: %s", c.Server.TLS.Mode)
	}

	return nil
}

package config

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// applyFallbacks applies environment variable fallbacks
func (c *Config) applyFallbacks() {
	c.applyOracleKeyFallbacks()
	c.applyServerAPIKeyFallbacks()
	c.applyObservabilityDefaults()
}

// applyOracleKeyFallbacks falls back to legacy environment variables for the
// oracle API key when neither config file nor prefixed env var set one.
func (c *Config) applyOracleKeyFallbacks() {
	if c.AI.APIKey != "" {
		return
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.AI.APIKey = strings.TrimSpace(key)
		return
	}
	if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		c.AI.APIKey = strings.TrimSpace(key)
	}
}

// applyServerAPIKeyFallbacks applies API key fallbacks from environment variables
func (c *Config) applyServerAPIKeyFallbacks() {
	if len(c.Server.APIKeys) == 0 {
		if apiKeysEnv := os.Getenv("CAREERMATCH_SERVER_APIKEYS"); apiKeysEnv != "" {
			c.Server.APIKeys = strings.Split(apiKeysEnv, ",")
			for i, key := range c.Server.APIKeys {
				c.Server.APIKeys[i] = strings.TrimSpace(key)
			}
		}
	}
}

// applyObservabilityDefaults applies default observability configuration values
func (c *Config) applyObservabilityDefaults() {
	if c.Observability.ServiceInstance == "" {
		c.Observability.ServiceInstance = generateServiceInstanceID(c.Observability.ServiceName)
	}
}

// generateServiceInstanceID generates a unique service instance ID
func generateServiceInstanceID(serviceName string) string {
	if hostname, err := os.Hostname(); err == nil {
		return fmt.Sprintf("%s-%s", serviceName, hostname)
	}
	return fmt.Sprintf("%s-1", serviceName)
}

// logConfigurationSources logs a summary of configuration sources being used
func (c *Config) logConfigurationSources(configFileUsed string) {
	log.Println("[CONFIG] === Configuration Sources Summary ===")

	if configFileUsed != "" {
		log.Printf("[CONFIG] Config file: %s", configFileUsed)
	} else {
		log.Println("[CONFIG] Config file: None (using defaults)")
	}

	log.Printf("[CONFIG] Oracle Provider: %s", c.AI.Provider)
	log.Printf("[CONFIG] Oracle Model: %s", c.AI.Model)
	if c.AI.APIKey != "" {
		log.Println("[CONFIG] Oracle API Key: ***CONFIGURED***")
	} else {
		log.Println("[CONFIG] Oracle API Key: ***NOT SET***")
	}
	if c.Database.URL != "" {
		log.Println("[CONFIG] Database URL: ***CONFIGURED***")
	} else {
		log.Println("[CONFIG] Database URL: ***NOT SET***")
	}
	log.Printf("[CONFIG] Server Host: %s", c.Server.Host)
	log.Printf("[CONFIG] Server Port: %s", c.Server.Port)
	log.Printf("[CONFIG] Log Level: %s", c.App.LogLevel)
	log.Printf("[CONFIG] TLS Mode: %s", c.Server.TLS.Mode)
	log.Printf("[CONFIG] Vault Enabled: %t", c.Vault.Enabled)
	log.Printf("[CONFIG] Observability Enabled: %t", c.Observability.Enabled)

	log.Printf("[CONFIG] Matching: K=%d preFilterMax=%d preFilterFloor=%d oracleTimeout=%s overallBudget=%s",
		c.Matching.TargetMatchCount,
		c.Matching.PreFilterMaxSize,
		c.Matching.PreFilterFloor,
		c.Matching.OracleTimeout,
		c.Matching.OverallBudget)

	log.Println("[CONFIG] =====================================")
}

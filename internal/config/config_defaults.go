package config

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Oracle Configuration
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.model", "gemini-2.0-flash")
	v.SetDefault("ai.apiKey", "")
	v.SetDefault("ai.timeout", 30*time.Second)
	v.SetDefault("ai.maxRetries", 2)
	v.SetDefault("ai.temperature", 0.2)
	v.SetDefault("ai.promptTemplate", "")
	v.SetDefault("ai.promptTemplateFile", "")

	// Circuit Breaker Configuration
	v.SetDefault("ai.circuitBreaker.enabled", true)
	v.SetDefault("ai.circuitBreaker.maxRequests", 3)
	v.SetDefault("ai.circuitBreaker.interval", 60*time.Second)
	v.SetDefault("ai.circuitBreaker.timeout", 60*time.Second)
	v.SetDefault("ai.circuitBreaker.minRequests", 3)
	v.SetDefault("ai.circuitBreaker.failureThreshold", 0.6)

	// Matching pipeline constants. These varied widely across deployments with
	// no rationale beyond latency tuning, so all of them are configuration.
	v.SetDefault("matching.targetMatchCount", 5)
	v.SetDefault("matching.preFilterMaxSize", 25)
	v.SetDefault("matching.preFilterFloor", 12)
	v.SetDefault("matching.oracleTimeout", 15*time.Second)
	v.SetDefault("matching.overallBudget", 40*time.Second)
	v.SetDefault("matching.maxFreeTextLength", 200)
	v.SetDefault("matching.jitterEnabled", true)
	v.SetDefault("matching.pinCurrentPath", false)
	v.SetDefault("matching.weights.skills", 3)
	v.SetDefault("matching.weights.industry", 2)
	v.SetDefault("matching.weights.interests", 2)
	v.SetDefault("matching.weights.education", 1)

	// Database Configuration
	v.SetDefault("database.url", "")
	v.SetDefault("database.maxConns", 4)
	v.SetDefault("database.connectTimeout", 10*time.Second)
	v.SetDefault("database.catalogPageSize", 200)

	// Server Configuration
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.readTimeout", 30*time.Second)
	v.SetDefault("server.writeTimeout", 60*time.Second)
	v.SetDefault("server.idleTimeout", 120*time.Second)
	v.SetDefault("server.tls.mode", "disabled")
	v.SetDefault("server.tls.certFile", "")
	v.SetDefault("server.tls.keyFile", "")
	v.SetDefault("server.apiKeys", []string{})
	v.SetDefault("server.rateLimit.enabled", false)
	v.SetDefault("server.rateLimit.requestsPerMin", 60)
	v.SetDefault("server.rateLimit.burstCapacity", 10)
	v.SetDefault("server.rateLimit.byIP", true)
	v.SetDefault("server.rateLimit.byAPIKey", false)
	v.SetDefault("server.rateLimit.window", time.Minute)

	// App Configuration
	v.SetDefault("app.logLevel", "info")
	v.SetDefault("app.maxRequestSize", 256*1024) // 256KB

	// Vault Configuration
	v.SetDefault("vault.enabled", false)
	v.SetDefault("vault.address", "")
	v.SetDefault("vault.token", "")
	v.SetDefault("vault.tokenFile", "")
	v.SetDefault("vault.namespace", "")
	v.SetDefault("vault.secrets.oracleKey", "")
	v.SetDefault("vault.secrets.apiKeys", "")

	// Observability Configuration
	v.SetDefault("observability.enabled", true)
	v.SetDefault("observability.serviceName", "careermatch")
	v.SetDefault("observability.serviceVersion", "")  // Will use app version if empty
	v.SetDefault("observability.serviceInstance", "") // Will be auto-generated if empty

	v.SetDefault("observability.tracing.enabled", true)
	v.SetDefault("observability.tracing.sampleRate", 1.0)

	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.collectionInterval", 15*time.Second)

	v.SetDefault("observability.console.enabled", false)
	v.SetDefault("observability.console.prettyPrint", true)

	v.SetDefault("observability.prometheus.enabled", true)
	v.SetDefault("observability.prometheus.endpoint", "/metrics")
	v.SetDefault("observability.prometheus.port", "9090")

	v.SetDefault("observability.otlp.enabled", false)
	v.SetDefault("observability.otlp.endpoint", "http://localhost:4318")
	v.SetDefault("observability.otlp.insecure", true)
	v.SetDefault("observability.otlp.headers", map[string]string{})
}

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/vault/api"
)

// VaultConfig holds Vault connection configuration
type VaultConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Address   string `mapstructure:"address"`
	Token     string `mapstructure:"token"`
	TokenFile string `mapstructure:"tokenFile"`
	Namespace string `mapstructure:"namespace"`

	// Secret paths
	Secrets VaultSecrets `mapstructure:"secrets"`
}

// VaultSecrets defines where to find secrets in Vault
type VaultSecrets struct {
	// OracleKey is the KV path holding the language-model API key under a
	// "value" field.
	OracleKey string `mapstructure:"oracleKey"`
	// APIKeys expects a single string with comma-separated values in Vault
	// under a "value" field. Example format: "key1,key2,key3"
	APIKeys string `mapstructure:"apiKeys"`
}

// VaultClient wraps the Vault API client
type VaultClient struct {
	client *api.Client
	config VaultConfig
}

// NewVaultClient creates a new Vault client from configuration.
// Returns (nil, nil) when Vault integration is disabled.
func NewVaultClient(config VaultConfig) (*VaultClient, error) {
	if !config.Enabled {
		return nil, nil
	}

	vaultConfig := api.DefaultConfig()
	if config.Address != "" {
		vaultConfig.Address = config.Address
	}

	client, err := api.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}

	if config.Namespace != "" {
		client.SetNamespace(config.Namespace)
	}

	token, err := resolveVaultToken(config)
	if err != nil {
		return nil, err
	}
	client.SetToken(token)

	if _, err := client.Sys().Health(); err != nil {
		return nil, fmt.Errorf("failed to connect to vault: %w", err)
	}

	return &VaultClient{client: client, config: config}, nil
}

// resolveVaultToken resolves the Vault token from config or file
func resolveVaultToken(config VaultConfig) (string, error) {
	token := config.Token

	if token == "" && config.TokenFile != "" {
		tokenBytes, err := os.ReadFile(config.TokenFile)
		if err != nil {
			return "", fmt.Errorf("failed to read vault token file: %w", err)
		}
		token = strings.TrimSpace(string(tokenBytes))
	}

	if token == "" {
		return "", fmt.Errorf("vault token is required when vault is enabled")
	}

	return token, nil
}

// GetSecretValue reads a secret at the given path and returns its "value"
// field. KV v2 responses nest the payload under a "data" key, which is
// unwrapped transparently.
func (vc *VaultClient) GetSecretValue(path string) (string, error) {
	secret, err := vc.client.Logical().Read(path)
	if err != nil {
		return "", fmt.Errorf("failed to read vault secret %s: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return "", fmt.Errorf("vault secret %s not found", path)
	}

	data := secret.Data
	if nested, ok := data["data"].(map[string]any); ok {
		data = nested
	}

	value, ok := data["value"].(string)
	if !ok || value == "" {
		return "", fmt.Errorf("vault secret %s has no string 'value' field", path)
	}

	return value, nil
}

// loadSecretsFromVault overrides config values with Vault-held secrets when
// Vault integration is enabled. Vault is the highest-precedence source.
func (c *Config) loadSecretsFromVault() error {
	vc, err := NewVaultClient(c.Vault)
	if err != nil {
		return err
	}
	if vc == nil {
		return nil
	}

	if path := c.Vault.Secrets.OracleKey; path != "" {
		key, err := vc.GetSecretValue(path)
		if err != nil {
			return err
		}
		c.AI.APIKey = key
	}

	if path := c.Vault.Secrets.APIKeys; path != "" {
		raw, err := vc.GetSecretValue(path)
		if err != nil {
			return err
		}
		keys := strings.Split(raw, ",")
		for i, key := range keys {
			keys[i] = strings.TrimSpace(key)
		}
		c.Server.APIKeys = keys
	}

	return nil
}

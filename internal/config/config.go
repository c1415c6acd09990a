// Package config handles loading and validation of daemon configuration.
// Supports both development (env vars) and production (Secret Manager) modes.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"golang.org/x/mod/semver"

	"cartsync/internal/store"
)

// DefaultResyncInterval matches the engine default.
const DefaultResyncInterval = 5 * time.Minute

// Config holds all daemon configuration.
// Environment determines whether backend secrets load from env vars
// (development) or Secret Manager (production).
type Config struct {
	// Server settings
	Port        string
	Environment string // "development" or "production"
	LogLevel    string // "debug", "info", "warn", "error"

	// GCP settings (required in production)
	GCPProject string
	SecretID   string

	Backend BackendConfig
	Store   StoreConfig

	// ResyncInterval is the signed-in cart refetch period. Negative disables it.
	ResyncInterval time.Duration

	// MinCartSchema is the oldest cached cart schema version still trusted.
	// Empty disables the check.
	MinCartSchema string
}

// BackendConfig describes the remote cart backend.
// In production, ClientID and APIKey are loaded from Secret Manager as JSON.
type BackendConfig struct {
	URL       string `json:"backend_url"`
	ClientID  string `json:"client_id"`
	APIKey    string `json:"api_key,omitempty"`
	ChromeTLS bool   `json:"chrome_tls,omitempty"`
}

// StoreConfig selects the durable local store driver.
type StoreConfig struct {
	Driver         string        `json:"driver"`
	Path           string        `json:"path,omitempty"`
	RedisAddr      string        `json:"redis_addr,omitempty"`
	RedisNamespace string        `json:"redis_namespace,omitempty"`
	RedisTTL       time.Duration `json:"-"`
}

// Load reads configuration from file, environment, or Secret Manager.
// Priority: CONFIG_FILE (if set) → ENV vars / Secret Manager.
// Validates all required fields and returns an error if any are missing.
func Load(ctx context.Context) (*Config, error) {
	// If CONFIG_FILE is set, load everything from the JSON file
	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromFile(configPath)
	}

	cfg := &Config{
		Port:          envOrDefault("PORT", "8080"),
		Environment:   envOrDefault("ENVIRONMENT", "development"),
		LogLevel:      envOrDefault("LOG_LEVEL", "info"),
		GCPProject:    os.Getenv("GCP_PROJECT"),
		SecretID:      envOrDefault("SECRET_ID", "cartsync-backend"),
		MinCartSchema: os.Getenv("MIN_CART_SCHEMA"),
		Store: StoreConfig{
			Driver:         envOrDefault("STORE_DRIVER", string(store.StoreTypeSQLite)),
			Path:           envOrDefault("STORE_PATH", "cartsync.db"),
			RedisAddr:      os.Getenv("REDIS_ADDR"),
			RedisNamespace: envOrDefault("REDIS_NAMESPACE", "default"),
		},
	}

	var err error
	if cfg.ResyncInterval, err = parseInterval(os.Getenv("RESYNC_INTERVAL")); err != nil {
		return nil, fmt.Errorf("RESYNC_INTERVAL: %w", err)
	}
	if ttl := os.Getenv("REDIS_TTL"); ttl != "" {
		if cfg.Store.RedisTTL, err = time.ParseDuration(ttl); err != nil {
			return nil, fmt.Errorf("REDIS_TTL: %w", err)
		}
	}

	cfg.loadBackendFromEnv()
	if cfg.Environment == "production" {
		if cfg.GCPProject == "" {
			return nil, fmt.Errorf("GCP_PROJECT required in production environment")
		}
		if err := cfg.loadFromSecretManager(ctx); err != nil {
			return nil, fmt.Errorf("loading backend secrets: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromFile reads all configuration from a JSON file.
// Used for local development to avoid multiple ENV vars.
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Use a struct that matches the JSON structure
	var fileConfig struct {
		Port           string        `json:"port"`
		Environment    string        `json:"environment"`
		LogLevel       string        `json:"log_level"`
		Backend        BackendConfig `json:"backend"`
		Store          StoreConfig   `json:"store"`
		RedisTTL       string        `json:"redis_ttl"`
		ResyncInterval string        `json:"resync_interval"`
		MinCartSchema  string        `json:"min_cart_schema"`
	}

	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg := &Config{
		Port:          withDefault(fileConfig.Port, "8080"),
		Environment:   withDefault(fileConfig.Environment, "development"),
		LogLevel:      withDefault(fileConfig.LogLevel, "info"),
		Backend:       fileConfig.Backend,
		Store:         fileConfig.Store,
		MinCartSchema: fileConfig.MinCartSchema,
	}
	cfg.Store.Driver = withDefault(cfg.Store.Driver, string(store.StoreTypeSQLite))
	cfg.Store.RedisNamespace = withDefault(cfg.Store.RedisNamespace, "default")
	if cfg.Store.Driver == string(store.StoreTypeSQLite) {
		cfg.Store.Path = withDefault(cfg.Store.Path, "cartsync.db")
	}

	if cfg.ResyncInterval, err = parseInterval(fileConfig.ResyncInterval); err != nil {
		return nil, fmt.Errorf("resync_interval: %w", err)
	}
	if fileConfig.RedisTTL != "" {
		if cfg.Store.RedisTTL, err = time.ParseDuration(fileConfig.RedisTTL); err != nil {
			return nil, fmt.Errorf("redis_ttl: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// parseInterval reads a resync interval. Empty means the default;
// "off" or "0" disables resync.
func parseInterval(s string) (time.Duration, error) {
	switch s {
	case "":
		return DefaultResyncInterval, nil
	case "off", "0":
		return -1, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("must not be negative")
	}
	return d, nil
}

// withDefault returns val if non-empty, otherwise defaultVal.
func withDefault(val, defaultVal string) string {
	if val != "" {
		return val
	}
	return defaultVal
}

// loadFromSecretManager fetches backend credentials from GCP Secret Manager.
// Secret name format: projects/{project}/secrets/{secret_id}/versions/latest
// Fields present in the secret override the environment.
func (c *Config) loadFromSecretManager(ctx context.Context) error {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("creating secret manager client: %w", err)
	}
	defer client.Close()

	secretName := fmt.Sprintf("projects/%s/secrets/%s/versions/latest",
		c.GCPProject, c.SecretID)

	result, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: secretName,
	})
	if err != nil {
		return fmt.Errorf("accessing secret %s: %w", secretName, err)
	}

	return c.applySecret(result.Payload.Data)
}

// applySecret merges a backend secret payload into c.Backend.
func (c *Config) applySecret(data []byte) error {
	var secret BackendConfig
	if err := json.Unmarshal(data, &secret); err != nil {
		return fmt.Errorf("parsing secret JSON: %w", err)
	}
	c.Backend.URL = withDefault(secret.URL, c.Backend.URL)
	c.Backend.ClientID = withDefault(secret.ClientID, c.Backend.ClientID)
	c.Backend.APIKey = withDefault(secret.APIKey, c.Backend.APIKey)
	return nil
}

// loadBackendFromEnv reads backend settings from individual environment variables.
func (c *Config) loadBackendFromEnv() {
	chrome, _ := strconv.ParseBool(os.Getenv("CHROME_TLS"))
	c.Backend = BackendConfig{
		URL:       os.Getenv("BACKEND_URL"),
		ClientID:  envOrDefault("CLIENT_ID", "cartsync"),
		APIKey:    os.Getenv("BACKEND_API_KEY"),
		ChromeTLS: chrome,
	}
}

// validate checks that all required configuration fields are present.
func (c *Config) validate() error {
	if c.Backend.URL == "" {
		return fmt.Errorf("backend_url is required")
	}
	u, err := url.Parse(c.Backend.URL)
	if err != nil {
		return fmt.Errorf("invalid backend_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid backend_url: scheme must be http or https")
	}

	switch store.StoreType(c.Store.Driver) {
	case store.StoreTypeMemory:
	case store.StoreTypeSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("store path is required for the sqlite driver")
		}
	case store.StoreTypeRedis:
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("redis_addr is required for the redis driver")
		}
	default:
		return fmt.Errorf("unknown store driver %q (memory, sqlite or redis)", c.Store.Driver)
	}

	if c.MinCartSchema != "" && !semver.IsValid(normalizeVersion(c.MinCartSchema)) {
		return fmt.Errorf("min_cart_schema %q is not a semantic version", c.MinCartSchema)
	}

	return nil
}

// normalizeVersion ensures version has "v" prefix for semver comparison.
func normalizeVersion(v string) string {
	if strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}

// envOrDefault returns the environment variable value or the default if not set.
func envOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// Package config handles loading and validation of service configuration.
// Supports both development (env vars, optional .env file) and production
// (Secret Manager) modes.
package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/joho/godotenv"

	"quickadd/internal/model"
	"quickadd/internal/money"
	"quickadd/internal/quickadd"
	"quickadd/internal/transport"
)

// DefaultRequestTimeout bounds every storefront request.
const DefaultRequestTimeout = 30 * time.Second

// Config holds all service configuration.
// Environment determines whether the merchant block loads from env vars
// (development) or Secret Manager (production).
type Config struct {
	// Server settings
	Port        string
	Environment string // "development" or "production"
	LogLevel    string // "debug", "info", "warn", "error"

	// GCP settings (required in production)
	GCPProject string
	MerchantID string

	// Storefront transport
	TLSFingerprint transport.Fingerprint
	RequestTimeout time.Duration

	// Merchant-specific configuration
	Merchant MerchantConfig
}

// MerchantConfig contains the storefront settings for one shop.
// In production, this is loaded from Secret Manager as JSON.
// In development, loaded from individual env vars or CONFIG_FILE.
type MerchantConfig struct {
	StoreURL     string `json:"store_url"`
	StoreDomain  string `json:"store_domain"` // Derived from StoreURL if not set
	MerchantName string `json:"merchant_name,omitempty"`

	// CurrencyCode is appended to fallback-formatted prices ("19.99 USD").
	CurrencyCode string `json:"currency_code,omitempty"`
	// MoneyFormat is the shop's money_format template, e.g. "${{amount}}".
	// When set it replaces the fallback formatter.
	MoneyFormat string `json:"money_format,omitempty"`

	// AddOnVariantID is the bundled variant added after every successful add.
	// Empty means the default add-on; AddOnDisabled turns the step off.
	AddOnVariantID string `json:"addon_variant_id,omitempty"`
	AddOnDisabled  bool   `json:"addon_disabled,omitempty"`
}

// Load reads configuration from file, environment, or Secret Manager.
// Priority: CONFIG_FILE (if set) → ENV vars / Secret Manager.
// Outside production a .env file (DOTENV_FILE, default ".env") seeds unset
// env vars first.
// Validates all required fields and returns an error if any are missing.
func Load(ctx context.Context) (*Config, error) {
	if os.Getenv("ENVIRONMENT") != "production" {
		if err := loadDotEnv(envOrDefault("DOTENV_FILE", ".env")); err != nil {
			return nil, err
		}
	}

	// If CONFIG_FILE is set, load everything from the JSON file
	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromFile(configPath)
	}

	cfg := &Config{
		Port:        envOrDefault("PORT", "8080"),
		Environment: envOrDefault("ENVIRONMENT", "development"),
		LogLevel:    envOrDefault("LOG_LEVEL", "info"),
		GCPProject:  os.Getenv("GCP_PROJECT"),
		MerchantID:  os.Getenv("MERCHANT_ID"),
	}

	var err error
	if cfg.TLSFingerprint, err = transport.ParseFingerprint(os.Getenv("TLS_FINGERPRINT")); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = parseTimeout(os.Getenv("REQUEST_TIMEOUT")); err != nil {
		return nil, err
	}

	if cfg.Environment == "production" {
		if cfg.MerchantID == "" {
			return nil, fmt.Errorf("MERCHANT_ID required in production environment")
		}
		if cfg.GCPProject == "" {
			return nil, fmt.Errorf("GCP_PROJECT required in production environment")
		}
		err = cfg.loadFromSecretManager(ctx)
	} else {
		err = cfg.loadFromEnv()
	}
	if err != nil {
		return nil, fmt.Errorf("loading merchant config: %w", err)
	}

	cfg.fillDerived()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadDotEnv seeds the environment from path. A missing file is fine;
// variables already set win over the file.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// loadFromFile reads all configuration from a JSON file.
// Used for local development to avoid multiple ENV vars.
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var fileConfig struct {
		Port           string         `json:"port"`
		Environment    string         `json:"environment"`
		LogLevel       string         `json:"log_level"`
		MerchantID     string         `json:"merchant_id"`
		TLSFingerprint string         `json:"tls_fingerprint"`
		RequestTimeout string         `json:"request_timeout"`
		Merchant       MerchantConfig `json:"merchant"`
	}

	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg := &Config{
		Port:        withDefault(fileConfig.Port, "8080"),
		Environment: withDefault(fileConfig.Environment, "development"),
		LogLevel:    withDefault(fileConfig.LogLevel, "info"),
		MerchantID:  fileConfig.MerchantID,
		Merchant:    fileConfig.Merchant,
	}
	if cfg.TLSFingerprint, err = transport.ParseFingerprint(fileConfig.TLSFingerprint); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = parseTimeout(fileConfig.RequestTimeout); err != nil {
		return nil, err
	}

	cfg.fillDerived()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// withDefault returns val if non-empty, otherwise defaultVal.
func withDefault(val, defaultVal string) string {
	if val != "" {
		return val
	}
	return defaultVal
}

// loadFromSecretManager fetches merchant config from GCP Secret Manager.
// Secret name format: projects/{project}/secrets/{merchant_id}/versions/latest
func (c *Config) loadFromSecretManager(ctx context.Context) error {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("creating secret manager client: %w", err)
	}
	defer client.Close()

	secretName := fmt.Sprintf("projects/%s/secrets/%s/versions/latest",
		c.GCPProject, c.MerchantID)

	result, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: secretName,
	})
	if err != nil {
		return fmt.Errorf("accessing secret %s: %w", secretName, err)
	}

	if err := json.Unmarshal(result.Payload.Data, &c.Merchant); err != nil {
		return fmt.Errorf("parsing secret JSON: %w", err)
	}

	return nil
}

// loadFromEnv reads merchant config from individual environment variables.
func (c *Config) loadFromEnv() error {
	c.Merchant = MerchantConfig{
		StoreURL:       os.Getenv("STORE_URL"),
		StoreDomain:    os.Getenv("STORE_DOMAIN"),
		MerchantName:   os.Getenv("MERCHANT_NAME"),
		CurrencyCode:   os.Getenv("CURRENCY_CODE"),
		MoneyFormat:    os.Getenv("MONEY_FORMAT"),
		AddOnVariantID: os.Getenv("ADDON_VARIANT_ID"),
	}

	if v := os.Getenv("ADDON_DISABLED"); v != "" {
		disabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parsing ADDON_DISABLED: %w", err)
		}
		c.Merchant.AddOnDisabled = disabled
	}

	return nil
}

func (c *Config) fillDerived() {
	// Derive store domain from URL if not explicitly set
	if c.Merchant.StoreDomain == "" && c.Merchant.StoreURL != "" {
		c.Merchant.StoreDomain = extractDomain(c.Merchant.StoreURL)
	}
	c.Merchant.StoreURL = strings.TrimSuffix(c.Merchant.StoreURL, "/")
}

// validate checks that all required configuration fields are present.
func (c *Config) validate() error {
	if c.Merchant.StoreURL == "" {
		return fmt.Errorf("store_url is required")
	}
	u, err := url.Parse(c.Merchant.StoreURL)
	if err != nil {
		return fmt.Errorf("invalid store_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("invalid store_url: %q must be an absolute http(s) URL", c.Merchant.StoreURL)
	}

	if id := c.Merchant.AddOnVariantID; id != "" {
		if _, err := strconv.ParseUint(id, 10, 64); err != nil {
			return fmt.Errorf("invalid addon_variant_id %q: must be numeric", id)
		}
	}

	return nil
}

// AddOnVariant returns the add-on variant to add after every successful add,
// or "" when the add-on step is disabled.
func (c *Config) AddOnVariant() model.ID {
	if c.Merchant.AddOnDisabled {
		return ""
	}
	if c.Merchant.AddOnVariantID != "" {
		return model.ID(c.Merchant.AddOnVariantID)
	}
	return quickadd.DefaultAddOnVariant
}

// Formatter builds the price formatter for the shop.
func (c *Config) Formatter() money.Formatter {
	return money.NewFormatter(c.Merchant.CurrencyCode, c.Merchant.MoneyFormat)
}

// parseTimeout parses a Go duration, defaulting to DefaultRequestTimeout.
func parseTimeout(s string) (time.Duration, error) {
	if s == "" {
		return DefaultRequestTimeout, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid request timeout %q: %w", s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid request timeout %q: must be positive", s)
	}
	return d, nil
}

// extractDomain parses the domain from a URL string.
func extractDomain(storeURL string) string {
	u, err := url.Parse(storeURL)
	if err != nil {
		// Fallback: strip protocol prefix manually
		domain := strings.TrimPrefix(storeURL, "https://")
		domain = strings.TrimPrefix(domain, "http://")
		return strings.Split(domain, "/")[0]
	}
	return u.Host
}

// envOrDefault returns the environment variable value or the default if not set.
func envOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

package config

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath = "/etc/whocan/config"
	ConfigFileName    = "whocan.yml"

	DefaultMongoURI      = "mongodb://localhost:27017"
	DefaultMongoDatabase = "whocan"
	DefaultCollection    = "who-can"
	DefaultRedisAddr     = "localhost:6379"
	DefaultRedisPrefix   = "whocan"
	DefaultLogLevel      = "info"
)

// WhoCanConfig holds all who-can configuration settings
type WhoCanConfig struct {
	// Backend selects the grant store
	Backend Backend `yaml:"backend" json:"backend"`

	// MongoURI is the MongoDB connection string
	MongoURI string `yaml:"mongo_uri" json:"mongo_uri"`

	// MongoDatabase is the database holding the grant collection
	MongoDatabase string `yaml:"mongo_database" json:"mongo_database"`

	// Collection is the name of the grant collection
	Collection string `yaml:"collection" json:"collection"`

	// DatabaseURL is the PostgreSQL connection string for the postgres backend
	DatabaseURL string `yaml:"database_url" json:"database_url"`

	// RedisAddr is the address of the redis server
	RedisAddr string `yaml:"redis_addr" json:"redis_addr"`

	// RedisPrefix namespaces every redis key
	RedisPrefix string `yaml:"redis_prefix" json:"redis_prefix"`

	// LogLevel is the zap level name
	LogLevel string `yaml:"log_level" json:"log_level"`

	// JWTSecret enables bearer token authentication on the HTTP API
	JWTSecret string `yaml:"jwt_secret" json:"-"`

	// TrustedProxies is a list of CIDR ranges for trusted proxies
	TrustedProxies []string `yaml:"trusted_proxies" json:"trusted_proxies"`

	// sources tracks where each value came from
	sources map[string]string

	// configFilePath is the path to the config file
	configFilePath string
}

// Attribute represents a configuration attribute with its value and source
type Attribute struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Source string `json:"source"`
}

// Global singleton config
var (
	globalConfig *WhoCanConfig
	configMu     sync.RWMutex
)

// Get returns the global configuration, loading it if necessary
func Get() *WhoCanConfig {
	configMu.RLock()
	if globalConfig != nil {
		configMu.RUnlock()
		return globalConfig
	}
	configMu.RUnlock()

	configMu.Lock()
	defer configMu.Unlock()

	if globalConfig == nil {
		cfg, err := Load()
		if err != nil {
			// Return defaults on error
			globalConfig = newDefault()
		} else {
			globalConfig = cfg
		}
	}
	return globalConfig
}

// Reload reloads the configuration from file and environment
func Reload() error {
	cfg, err := Load()
	if err != nil {
		return err
	}

	configMu.Lock()
	globalConfig = cfg
	configMu.Unlock()
	return nil
}

func newDefault() *WhoCanConfig {
	return &WhoCanConfig{
		Backend:        BackendMongo,
		MongoURI:       DefaultMongoURI,
		MongoDatabase:  DefaultMongoDatabase,
		Collection:     DefaultCollection,
		RedisAddr:      DefaultRedisAddr,
		RedisPrefix:    DefaultRedisPrefix,
		LogLevel:       DefaultLogLevel,
		TrustedProxies: []string{},
		sources:        make(map[string]string),
	}
}

// Load loads configuration from file and environment variables.
// Environment variables take precedence over file values.
func Load() (*WhoCanConfig, error) {
	config := newDefault()

	for _, name := range attributeNames() {
		config.sources[name] = "default"
	}

	configPath := os.Getenv("WHOCAN_CONFIG_PATH")
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	config.configFilePath = filepath.Join(configPath, ConfigFileName)

	if data, err := os.ReadFile(config.configFilePath); err == nil {
		var fileConfig WhoCanConfig
		if err := yaml.Unmarshal(data, &fileConfig); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", config.configFilePath, err)
		}
		config.applyFileConfig(&fileConfig)
	}

	if err := config.applyEnvConfig(); err != nil {
		return nil, err
	}

	return config, nil
}

func attributeNames() []string {
	return []string{
		"backend", "mongo_uri", "mongo_database", "collection",
		"database_url", "redis_addr", "redis_prefix", "log_level",
		"jwt_secret", "trusted_proxies",
	}
}

func (c *WhoCanConfig) applyFileConfig(file *WhoCanConfig) {
	if file.Backend != 0 {
		c.Backend = file.Backend
		c.sources["backend"] = "file"
	}
	setString := func(name string, dst *string, val string) {
		if val != "" {
			*dst = val
			c.sources[name] = "file"
		}
	}
	setString("mongo_uri", &c.MongoURI, file.MongoURI)
	setString("mongo_database", &c.MongoDatabase, file.MongoDatabase)
	setString("collection", &c.Collection, file.Collection)
	setString("database_url", &c.DatabaseURL, file.DatabaseURL)
	setString("redis_addr", &c.RedisAddr, file.RedisAddr)
	setString("redis_prefix", &c.RedisPrefix, file.RedisPrefix)
	setString("log_level", &c.LogLevel, file.LogLevel)
	setString("jwt_secret", &c.JWTSecret, file.JWTSecret)
	if len(file.TrustedProxies) > 0 {
		c.TrustedProxies = file.TrustedProxies
		c.sources["trusted_proxies"] = "file"
	}
}

func (c *WhoCanConfig) applyEnvConfig() error {
	if val := os.Getenv("WHOCAN_BACKEND"); val != "" {
		b, err := BackendString(val)
		if err != nil {
			return fmt.Errorf("invalid WHOCAN_BACKEND: %w", err)
		}
		c.Backend = b
		c.sources["backend"] = "environment"
	}
	setString := func(name, env string, dst *string) {
		if val := os.Getenv(env); val != "" {
			*dst = val
			c.sources[name] = "environment"
		}
	}
	setString("mongo_uri", "WHOCAN_MONGO_URI", &c.MongoURI)
	setString("mongo_database", "WHOCAN_MONGO_DATABASE", &c.MongoDatabase)
	setString("collection", "WHOCAN_COLLECTION", &c.Collection)
	setString("database_url", "DATABASE_URL", &c.DatabaseURL)
	setString("redis_addr", "WHOCAN_REDIS_ADDR", &c.RedisAddr)
	setString("redis_prefix", "WHOCAN_REDIS_PREFIX", &c.RedisPrefix)
	setString("log_level", "WHOCAN_LOG_LEVEL", &c.LogLevel)
	setString("jwt_secret", "WHOCAN_JWT_SECRET", &c.JWTSecret)
	if val := os.Getenv("WHOCAN_TRUSTED_PROXIES"); val != "" {
		c.TrustedProxies = splitAndTrim(val)
		c.sources["trusted_proxies"] = "environment"
	}
	return nil
}

// ConfigFilePath returns the path to the config file
func (c *WhoCanConfig) ConfigFilePath() string {
	return c.configFilePath
}

// Source returns the source of a configuration attribute
func (c *WhoCanConfig) Source(name string) string {
	if c.sources == nil {
		return "default"
	}
	if s, ok := c.sources[name]; ok {
		return s
	}
	return "default"
}

// IsTrustedProxy checks if an IP is from a trusted proxy
func (c *WhoCanConfig) IsTrustedProxy(ip string) bool {
	if len(c.TrustedProxies) == 0 {
		return false
	}

	parsedIP := net.ParseIP(ip)
	if parsedIP == nil {
		return false
	}

	for _, cidr := range c.TrustedProxies {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			// Try as plain IP
			if net.ParseIP(cidr) != nil && cidr == ip {
				return true
			}
			continue
		}
		if network.Contains(parsedIP) {
			return true
		}
	}
	return false
}

// Validate validates the configuration
func (c *WhoCanConfig) Validate() error {
	if !c.Backend.IsABackend() {
		return fmt.Errorf("invalid backend: %s (valid: %s)", c.Backend, strings.Join(BackendStrings(), ", "))
	}

	switch c.Backend {
	case BackendMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("mongo_uri is required for the mongo backend")
		}
		if c.MongoDatabase == "" {
			return fmt.Errorf("mongo_database is required for the mongo backend")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("database_url is required for the postgres backend")
		}
	case BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("redis_addr is required for the redis backend")
		}
	}

	if c.Collection == "" {
		return fmt.Errorf("collection must not be empty")
	}

	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level: %w", err)
	}

	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			if net.ParseIP(cidr) == nil {
				return fmt.Errorf("invalid trusted_proxies value: %s", cidr)
			}
		}
	}

	return nil
}

// Attributes returns all configuration attributes with their values and sources
func (c *WhoCanConfig) Attributes() []Attribute {
	secret := ""
	if c.JWTSecret != "" {
		secret = "(set)"
	}
	return []Attribute{
		{Name: "backend", Value: c.Backend.String(), Source: c.Source("backend")},
		{Name: "mongo_uri", Value: c.MongoURI, Source: c.Source("mongo_uri")},
		{Name: "mongo_database", Value: c.MongoDatabase, Source: c.Source("mongo_database")},
		{Name: "collection", Value: c.Collection, Source: c.Source("collection")},
		{Name: "database_url", Value: c.DatabaseURL, Source: c.Source("database_url")},
		{Name: "redis_addr", Value: c.RedisAddr, Source: c.Source("redis_addr")},
		{Name: "redis_prefix", Value: c.RedisPrefix, Source: c.Source("redis_prefix")},
		{Name: "log_level", Value: c.LogLevel, Source: c.Source("log_level")},
		{Name: "jwt_secret", Value: secret, Source: c.Source("jwt_secret")},
		{Name: "trusted_proxies", Value: strings.Join(c.TrustedProxies, ","), Source: c.Source("trusted_proxies")},
	}
}

// FormatText returns a text representation of the configuration
func (c *WhoCanConfig) FormatText() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Config file: %s\n\n", c.configFilePath))
	sb.WriteString(fmt.Sprintf("%-20s %-40s %s\n", "NAME", "VALUE", "SOURCE"))
	sb.WriteString(fmt.Sprintf("%-20s %-40s %s\n", "----", "-----", "------"))

	for _, attr := range c.Attributes() {
		value := attr.Value
		if value == "" {
			value = "(not set)"
		}
		sb.WriteString(fmt.Sprintf("%-20s %-40s %s\n", attr.Name, value, attr.Source))
	}
	return sb.String()
}

// FormatJSON returns a JSON representation of the configuration
func (c *WhoCanConfig) FormatJSON() (string, error) {
	result := map[string]interface{}{
		"config_file": c.configFilePath,
		"attributes":  c.Attributes(),
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

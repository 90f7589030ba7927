package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/csindex/internal/domain"
	"github.com/kailas-cloud/csindex/internal/domain/field"
	"github.com/kailas-cloud/csindex/internal/registry"
)

// Regions lists the regions CloudSearch is offered in.
var Regions = []string{
	"us-east-1", "us-west-1", "us-west-2",
	"eu-west-1", "eu-central-1",
	"ap-southeast-1", "ap-southeast-2", "ap-northeast-1", "ap-northeast-2",
	"sa-east-1",
}

// Config holds the csindex configuration.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	CloudSearch CloudSearchConfig `yaml:"cloudsearch"`
	Records     RecordsConfig     `yaml:"records"`
	Auth        AuthConfig        `yaml:"auth"`
	Logging     LoggingConfig     `yaml:"logging"`
	Indexes     []IndexConfig     `yaml:"indexes"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// CloudSearchConfig holds backend settings.
type CloudSearchConfig struct {
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Region          string `yaml:"region"`
	// Endpoint overrides the configuration API endpoint (tests, proxies).
	Endpoint     string `yaml:"endpoint"`
	DomainPrefix string `yaml:"domain_prefix"`
	// IPAddress is granted access by the access commands.
	IPAddress           string `yaml:"ip_address"`
	MaxSpinlockSec      int    `yaml:"max_spinlock_sec"`
	SpinlockIntervalSec int    `yaml:"spinlock_interval_sec"`
	PrepareSilently     bool   `yaml:"prepare_silently"`
	StrictDomainNames   bool   `yaml:"strict_domain_names"`
	MaxBatchBytes       int    `yaml:"max_batch_bytes"`
	RequestsPerSecond   int    `yaml:"requests_per_second"` // 0 = unlimited
	ParallelSearch      bool   `yaml:"parallel_search"`
}

// RecordsConfig holds record store settings. No addrs disables the store.
type RecordsConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	KeyPrefix        string   `yaml:"key_prefix"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	DialTimeoutSec   int      `yaml:"dial_timeout_sec"`
	Realtime         bool     `yaml:"realtime"`
	SyncBatchSize    int      `yaml:"sync_batch_size"`
}

// IndexConfig declares an index over map records.
type IndexConfig struct {
	Name       string        `yaml:"name"`
	Namespace  string        `yaml:"namespace"`
	ClassName  string        `yaml:"class_name"`
	DomainName string        `yaml:"domain_name"`
	RecordType string        `yaml:"record_type"` // namespace.model
	Fields     []FieldConfig `yaml:"fields"`
}

// FieldConfig declares one index field.
type FieldConfig struct {
	Name        string `yaml:"name"`
	Kind        string `yaml:"kind"` // text, literal, uint
	Source      string `yaml:"source"`
	Stored      bool   `yaml:"stored"`
	Faceted     bool   `yaml:"faceted"`
	Indexed     *bool  `yaml:"indexed"` // default true
	MultiValued bool   `yaml:"multi_valued"`
	Default     any    `yaml:"default"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes, defaults and validates a YAML document.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.CloudSearch.Region == "" {
		c.CloudSearch.Region = "us-east-1"
	}
	if c.CloudSearch.DomainPrefix == "" {
		c.CloudSearch.DomainPrefix = "haystack"
	}
	if c.CloudSearch.MaxSpinlockSec <= 0 {
		c.CloudSearch.MaxSpinlockSec = 3600
	}
	if c.CloudSearch.SpinlockIntervalSec <= 0 {
		c.CloudSearch.SpinlockIntervalSec = 60
	}
	if c.Records.ReadinessTimeout <= 0 {
		c.Records.ReadinessTimeout = 10
	}
	if c.Records.KeyPrefix == "" {
		c.Records.KeyPrefix = "csindex:rec:"
	}
	if c.Records.SyncBatchSize <= 0 {
		c.Records.SyncBatchSize = 100
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("%w: http.port must be between 1 and 65535, got %d", domain.ErrConfiguration, c.HTTP.Port)
	}
	cs := c.CloudSearch
	if cs.AccessKeyID == "" || cs.SecretAccessKey == "" {
		return fmt.Errorf("%w: cloudsearch.access_key_id and cloudsearch.secret_access_key are required", domain.ErrConfiguration)
	}
	if !slices.Contains(Regions, cs.Region) {
		return fmt.Errorf("%w: cloudsearch.region %q is not one of %s",
			domain.ErrConfiguration, cs.Region, strings.Join(Regions, ", "))
	}
	if cs.IPAddress == "" {
		return fmt.Errorf("%w: cloudsearch.ip_address is required", domain.ErrConfiguration)
	}
	if cs.SpinlockIntervalSec > cs.MaxSpinlockSec {
		return fmt.Errorf("%w: cloudsearch.spinlock_interval_sec exceeds max_spinlock_sec", domain.ErrConfiguration)
	}
	if cs.MaxBatchBytes < 0 || cs.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: cloudsearch limits must not be negative", domain.ErrConfiguration)
	}

	seen := make(map[string]bool, len(c.Indexes))
	for i, ic := range c.Indexes {
		if _, err := ic.Definition(); err != nil {
			return fmt.Errorf("indexes[%d]: %w", i, err)
		}
		if seen[ic.Name] {
			return fmt.Errorf("%w: indexes[%d]: duplicate index %q", domain.ErrConfiguration, i, ic.Name)
		}
		seen[ic.Name] = true
	}
	return nil
}

// Definition converts the declaration into a registry definition.
func (ic IndexConfig) Definition() (registry.Definition, error) {
	rt, err := domain.ParseRecordType(ic.RecordType)
	if err != nil {
		return registry.Definition{}, fmt.Errorf("%w: index %q: %w", domain.ErrConfiguration, ic.Name, err)
	}
	def := registry.Definition{
		Name:       ic.Name,
		Namespace:  ic.Namespace,
		ClassName:  ic.ClassName,
		DomainName: ic.DomainName,
		RecordType: rt,
		Fields:     make([]registry.FieldSource, 0, len(ic.Fields)),
	}
	if def.Name == "" {
		return registry.Definition{}, fmt.Errorf("%w: index name is required", domain.ErrConfiguration)
	}
	for _, fc := range ic.Fields {
		kind := field.Kind(fc.Kind)
		if !kind.IsValid() {
			return registry.Definition{}, fmt.Errorf("%w: index %q field %q: %w: %q",
				domain.ErrConfiguration, ic.Name, fc.Name, domain.ErrUnsupportedFieldKind, fc.Kind)
		}
		indexed := fc.Indexed == nil || *fc.Indexed
		def.Fields = append(def.Fields, registry.FieldSource{
			Declaration: field.Declaration{
				Name:        fc.Name,
				Kind:        kind,
				Stored:      fc.Stored,
				Faceted:     fc.Faceted,
				Indexed:     indexed,
				MultiValued: fc.MultiValued,
				Default:     fc.Default,
			},
			Source: fc.Source,
		})
	}
	return def, nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}

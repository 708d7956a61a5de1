// Package config provides configuration loading and management for the synonym exporter.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stacklok/synonym-exporter/internal/export"
	"github.com/stacklok/synonym-exporter/internal/synonym"
	"github.com/stacklok/synonym-exporter/internal/telemetry"
)

const (
	// EnvPrefix is the prefix for environment variables read by the exporter
	EnvPrefix = "SYNEXP"

	// SolrPasswordEnv is the fallback environment variable for Solr basic auth
	SolrPasswordEnv = "SYNEXP_SOLR_PASSWORD"

	// DatabasePasswordEnv is the fallback environment variable for the database password
	DatabasePasswordEnv = "SYNEXP_DATABASE_PASSWORD"
)

const (
	// SourceTypeFile reads synonym records from a local YAML, JSON or TOML file
	SourceTypeFile = "file"

	// SourceTypeDatabase reads synonym records from a PostgreSQL table
	SourceTypeDatabase = "database"
)

const (
	defaultSyncInterval = time.Hour
	defaultConcurrency  = 4
)

// exporterNamePattern keeps exporter names usable as status directory and lock file names
var exporterNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks to prevent symlink attacks.
		// Note that this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		// Validate the path to prevent path traversal attacks
		if !filepath.IsAbs(realPath) {
			if !filepath.IsLocal(realPath) {
				return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
			}
		}

		cfg.path = realPath
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	// DataDir holds status files and run locks. Defaults to "./data".
	DataDir   string            `yaml:"dataDir,omitempty"`
	Backends  []BackendConfig   `yaml:"backends"`
	Source    SourceConfig      `yaml:"source"`
	Exporters []ExporterConfig  `yaml:"exporters"`
	Telemetry *telemetry.Config `yaml:"telemetry,omitempty"`
}

// BackendConfig identifies a Solr server and core that exporters can target
type BackendConfig struct {
	// ID is referenced by the first field of an exporter's options string
	ID string `yaml:"id"`

	// URL is the Solr base URL, e.g. "http://localhost:8983/solr"
	URL string `yaml:"url"`

	// Core is the Solr core (or collection) holding the managed resources
	Core string `yaml:"core"`

	// Timeout for a single request (e.g. "10s"). Defaults to 10s.
	Timeout string `yaml:"timeout,omitempty"`

	// Username enables basic auth when set
	Username string `yaml:"username,omitempty"`

	// PasswordFile is the path to a file containing the basic auth password
	PasswordFile string `yaml:"passwordFile,omitempty"`

	// RequestsPerSecond caps the request rate to the backend. 0 means unlimited.
	RequestsPerSecond float64 `yaml:"requestsPerSecond,omitempty"`
}

// SourceConfig defines where synonym records are read from.
// Exactly one of File or Database must be set.
type SourceConfig struct {
	File     *FileConfig     `yaml:"file,omitempty"`
	Database *DatabaseConfig `yaml:"database,omitempty"`
}

// FileConfig defines local file source configuration
type FileConfig struct {
	// Path to a .yaml, .yml, .json or .toml file holding a "synonyms" list
	Path string `yaml:"path"`

	// Watch triggers an export when the file changes
	Watch bool `yaml:"watch,omitempty"`
}

// ExporterConfig defines a single scheduled export
type ExporterConfig struct {
	// Name is the identifier for this exporter
	Name string `yaml:"name"`

	// Plugin selects the exporter implementation. Only "solr_api" is supported.
	Plugin string `yaml:"plugin"`

	// Options is the comma delimited "backendId,resourceName" string
	Options string `yaml:"options"`

	// Kind filters records: all, synonym or spelling_error
	Kind string `yaml:"kind,omitempty"`

	// Langcode restricts records to one language when set
	Langcode string `yaml:"langcode,omitempty"`

	// WordFilter selects words by spaces: none, nospace or onlyspace
	WordFilter string `yaml:"wordFilter,omitempty"`

	// Concurrency bounds the parallel calls inside the delete and upsert phases
	Concurrency int `yaml:"concurrency,omitempty"`

	// StrictRecords aborts a run on the first invalid record instead of skipping it
	StrictRecords bool `yaml:"strictRecords,omitempty"`

	// OnlyIfChanged skips scheduled runs when the source data is unchanged
	// since the last successful export
	OnlyIfChanged bool `yaml:"onlyIfChanged,omitempty"`

	// Per-exporter sync policy
	SyncPolicy *SyncPolicyConfig `yaml:"syncPolicy,omitempty"`
}

// SyncPolicyConfig defines synchronization settings
type SyncPolicyConfig struct {
	Interval string `yaml:"interval"`
}

// DatabaseConfig defines database connection settings
type DatabaseConfig struct {
	// Host is the database server hostname or IP address
	Host string `yaml:"host"`

	// Port is the database server port
	Port int `yaml:"port"`

	// User is the database username
	User string `yaml:"user"`

	// PasswordFile is the path to a file containing the database password
	// This is the recommended approach for production deployments
	// The file should contain only the password with optional trailing whitespace
	PasswordFile string `yaml:"passwordFile,omitempty"`

	// Database is the database name
	Database string `yaml:"database"`

	// SSLMode is the SSL mode for the connection (disable, require, verify-ca, verify-full)
	SSLMode string `yaml:"sslMode,omitempty"`

	// MaxOpenConns is the maximum number of open connections to the database
	MaxOpenConns int32 `yaml:"maxOpenConns,omitempty"`

	// ConnMaxLifetime is the maximum lifetime of a connection (e.g., "1h", "30m")
	ConnMaxLifetime string `yaml:"connMaxLifetime,omitempty"`
}

// readSecret returns the trimmed contents of file, falling back to the env variable
func readSecret(file, env string) (string, error) {
	if file != "" {
		// Use filepath.Clean to prevent path traversal attacks
		cleanPath := filepath.Clean(file)

		data, err := os.ReadFile(cleanPath)
		if err != nil {
			return "", fmt.Errorf("failed to read password from file %s: %w", file, err)
		}

		// Trim whitespace (including newlines) from file content
		return strings.TrimSpace(string(data)), nil
	}

	return os.Getenv(env), nil
}

// GetPassword returns the database password using the following priority:
// 1. Read from PasswordFile if specified
// 2. Read from SYNEXP_DATABASE_PASSWORD environment variable
func (d *DatabaseConfig) GetPassword() (string, error) {
	password, err := readSecret(d.PasswordFile, DatabasePasswordEnv)
	if err != nil {
		return "", err
	}
	if password == "" {
		return "", fmt.Errorf(
			"no database password configured: set passwordFile or %s environment variable", DatabasePasswordEnv,
		)
	}
	return password, nil
}

// GetConnectionString builds a PostgreSQL connection string with proper password handling.
// The password is URL-escaped to handle special characters safely.
func (d *DatabaseConfig) GetConnectionString() (string, error) {
	password, err := d.GetPassword()
	if err != nil {
		return "", err
	}

	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "require"
	}

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(d.User),
		url.QueryEscape(password),
		d.Host,
		d.Port,
		d.Database,
		sslMode,
	), nil
}

// GetPassword returns the basic auth password for the backend.
// An empty password is allowed when no username is configured.
func (b *BackendConfig) GetPassword() (string, error) {
	return readSecret(b.PasswordFile, SolrPasswordEnv)
}

// GetTimeout returns the per-request timeout, defaulting to 10s
func (b *BackendConfig) GetTimeout() time.Duration {
	if b.Timeout == "" {
		return 10 * time.Second
	}
	d, err := time.ParseDuration(b.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// LoadConfig loads and parses configuration from a YAML file
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	if loaderCfg.path == "" {
		return nil, fmt.Errorf("path is required")
	}

	// Read the entire file into memory
	data, err := os.ReadFile(loaderCfg.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse parses and validates YAML configuration
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	// Validate the config
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// GetDataDir returns the data directory, using "./data" if not specified
func (c *Config) GetDataDir() string {
	if c.DataDir == "" {
		return "./data"
	}
	return c.DataDir
}

// Backend returns the backend with the given id
func (c *Config) Backend(id string) (*BackendConfig, bool) {
	for i := range c.Backends {
		if c.Backends[i].ID == id {
			return &c.Backends[i], true
		}
	}
	return nil, false
}

// Exporter returns the exporter with the given name
func (c *Config) Exporter(name string) (*ExporterConfig, bool) {
	for i := range c.Exporters {
		if c.Exporters[i].Name == name {
			return &c.Exporters[i], true
		}
	}
	return nil, false
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if len(c.Backends) == 0 {
		return fmt.Errorf("at least one backend must be configured")
	}
	backendIDs := make(map[string]bool)
	for i, b := range c.Backends {
		if err := validateBackend(&b, i); err != nil {
			return err
		}
		if backendIDs[b.ID] {
			return fmt.Errorf("backend[%d]: duplicate backend id '%s'", i, b.ID)
		}
		backendIDs[b.ID] = true
	}

	if err := validateSource(&c.Source); err != nil {
		return err
	}

	if len(c.Exporters) == 0 {
		return fmt.Errorf("at least one exporter must be configured")
	}
	exporterNames := make(map[string]bool)
	for i, exp := range c.Exporters {
		if exp.Name == "" {
			return fmt.Errorf("exporter[%d]: name is required", i)
		}
		if !exporterNamePattern.MatchString(exp.Name) {
			return fmt.Errorf("exporter[%d]: name '%s' may only contain letters, digits, '.', '_' and '-'", i, exp.Name)
		}
		if exporterNames[exp.Name] {
			return fmt.Errorf("exporter[%d]: duplicate exporter name '%s'", i, exp.Name)
		}
		exporterNames[exp.Name] = true

		if err := validateExporter(&exp, i, backendIDs); err != nil {
			return err
		}
	}

	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}

	return nil
}

func validateBackend(b *BackendConfig, index int) error {
	if b.ID == "" {
		return fmt.Errorf("backend[%d]: id is required", index)
	}
	prefix := fmt.Sprintf("backend[%d] (%s)", index, b.ID)
	if b.URL == "" {
		return fmt.Errorf("%s: url is required", prefix)
	}
	u, err := url.Parse(b.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s: url must be an absolute http(s) URL, got %q", prefix, b.URL)
	}
	if b.Core == "" {
		return fmt.Errorf("%s: core is required", prefix)
	}
	if b.Timeout != "" {
		if _, err := time.ParseDuration(b.Timeout); err != nil {
			return fmt.Errorf("%s: timeout must be a valid duration: %w", prefix, err)
		}
	}
	if b.RequestsPerSecond < 0 {
		return fmt.Errorf("%s: requestsPerSecond cannot be negative", prefix)
	}
	return nil
}

// validateSource ensures exactly one source type is configured
func validateSource(src *SourceConfig) error {
	configCount := 0
	if src.File != nil {
		configCount++
	}
	if src.Database != nil {
		configCount++
	}

	if configCount == 0 {
		return fmt.Errorf("source: one of file or database configuration must be specified")
	}
	if configCount > 1 {
		return fmt.Errorf("source: only one of file or database configuration may be specified")
	}

	if src.File != nil && src.File.Path == "" {
		return fmt.Errorf("source: file.path is required")
	}
	if src.Database != nil {
		if src.Database.Host == "" || src.Database.Database == "" || src.Database.User == "" {
			return fmt.Errorf("source: database host, user and database are required")
		}
		if src.Database.ConnMaxLifetime != "" {
			if _, err := time.ParseDuration(src.Database.ConnMaxLifetime); err != nil {
				return fmt.Errorf("source: database.connMaxLifetime must be a valid duration: %w", err)
			}
		}
	}
	return nil
}

func validateExporter(exp *ExporterConfig, index int, backendIDs map[string]bool) error {
	prefix := fmt.Sprintf("exporter[%d] (%s)", index, exp.Name)

	if exp.Plugin != export.PluginSolrAPI {
		return fmt.Errorf("%s: unsupported plugin %q, expected %s", prefix, exp.Plugin, export.PluginSolrAPI)
	}

	opts, err := export.ParseOptions(exp.Options)
	if err != nil {
		return fmt.Errorf("%s: %w", prefix, err)
	}
	if !backendIDs[opts.BackendID] {
		return fmt.Errorf("%s: options reference unknown backend '%s'", prefix, opts.BackendID)
	}

	if _, err := synonym.ParseKindFilter(exp.Kind); err != nil {
		return fmt.Errorf("%s: %w", prefix, err)
	}
	if _, err := synonym.ParseWordFilter(exp.WordFilter); err != nil {
		return fmt.Errorf("%s: %w", prefix, err)
	}
	if exp.Concurrency < 0 {
		return fmt.Errorf("%s: concurrency cannot be negative", prefix)
	}

	if exp.SyncPolicy != nil && exp.SyncPolicy.Interval != "" {
		if _, err := time.ParseDuration(exp.SyncPolicy.Interval); err != nil {
			return fmt.Errorf("%s: syncPolicy.interval must be a valid duration (e.g., '30m', '1h'): %w", prefix, err)
		}
	}

	return nil
}

// ExportOptions returns the parsed target of the exporter
func (e *ExporterConfig) ExportOptions() (export.Options, error) {
	return export.ParseOptions(e.Options)
}

// GetSyncInterval returns the configured interval, defaulting to one hour
func (e *ExporterConfig) GetSyncInterval() time.Duration {
	if e.SyncPolicy != nil && e.SyncPolicy.Interval != "" {
		if d, err := time.ParseDuration(e.SyncPolicy.Interval); err == nil && d > 0 {
			return d
		}
	}
	return defaultSyncInterval
}

// GetConcurrency returns the per-phase concurrency, defaulting to 4
func (e *ExporterConfig) GetConcurrency() int {
	if e.Concurrency <= 0 {
		return defaultConcurrency
	}
	return e.Concurrency
}

// KindFilter returns the parsed kind filter. Config validation guarantees it parses.
func (e *ExporterConfig) KindFilter() synonym.KindFilter {
	f, err := synonym.ParseKindFilter(e.Kind)
	if err != nil {
		return synonym.FilterAll
	}
	return f
}

// Words returns the parsed word filter, defaulting to WordFilterNone
func (e *ExporterConfig) Words() synonym.WordFilter {
	f, err := synonym.ParseWordFilter(e.WordFilter)
	if err != nil {
		return synonym.WordFilterNone
	}
	return f
}

// FilterHash digests the settings that decide which terms an export writes:
// plugin, target, kind, langcode and word filter. Defaults are normalized so
// an omitted kind and "all" hash the same.
func (e *ExporterConfig) FilterHash() string {
	target := strings.TrimSpace(e.Options)
	if opts, err := e.ExportOptions(); err == nil {
		target = opts.String()
	}
	data, err := json.Marshal(struct {
		Plugin   string `json:"plugin"`
		Target   string `json:"target"`
		Kind     string `json:"kind"`
		Langcode string `json:"langcode"`
		Words    string `json:"words"`
	}{
		Plugin:   e.Plugin,
		Target:   target,
		Kind:     string(e.KindFilter()),
		Langcode: e.Langcode,
		Words:    string(e.Words()),
	})
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// GetType returns the configured source type
func (s *SourceConfig) GetType() string {
	if s.File != nil {
		return SourceTypeFile
	}
	if s.Database != nil {
		return SourceTypeDatabase
	}
	return ""
}

// Package config loads, validates and documents the service configuration.
package config

import (
	"encoding/json"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"

	"github.com/quantdesk-lab/quantdesk/internal/version"
	"github.com/quantdesk-lab/quantdesk/pkg/errors"
)

// Config is the service configuration loaded from a YAML file.
type Config struct {
	Version string       `yaml:"version" json:"version" jsonschema:"title=Version,description=Config schema version this file was written against (semver),required" validate:"required"`
	Server  ServerConfig `yaml:"server"  json:"server"  jsonschema:"title=Server,description=HTTP server settings"`
	Data    DataConfig   `yaml:"data"    json:"data"    jsonschema:"title=Data,description=Price dataset settings"`
	Log     LogConfig    `yaml:"log"     json:"log"     jsonschema:"title=Log,description=Logging settings"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	ListenAddr  string   `yaml:"listen_addr"  json:"listen_addr"  jsonschema:"title=Listen Address,description=Address the HTTP server binds to,default=:8080"`
	CORSOrigins []string `yaml:"cors_origins" json:"cors_origins" jsonschema:"title=CORS Origins,description=Allowed CORS origins; empty disables CORS headers"`
}

// DataConfig holds the price dataset settings.
type DataConfig struct {
	CSVPath     string `yaml:"csv_path"     json:"csv_path"     jsonschema:"title=CSV Path,description=Path of the tidy OHLCV CSV file to load,required" validate:"required"`
	DuckDBPath  string `yaml:"duckdb_path"  json:"duckdb_path"  jsonschema:"title=DuckDB Path,description=DuckDB database file; empty runs in memory"`
	MemoryLimit string `yaml:"memory_limit" json:"memory_limit" jsonschema:"title=Memory Limit,description=DuckDB memory_limit pragma (e.g. 4GB)"`
	Threads     int    `yaml:"threads"      json:"threads"      jsonschema:"title=Threads,description=DuckDB threads pragma,minimum=0"`
}

// LogConfig holds the logging settings.
type LogConfig struct {
	Level string `yaml:"level" json:"level" jsonschema:"title=Level,description=Log level,enum=debug,enum=info,enum=warn,enum=error,default=info" validate:"omitempty,oneof=debug info warn error"`
}

// DefaultConfig returns a Config with default values. The version is the
// binary's own schema version, so a generated sample file always validates.
func DefaultConfig() Config {
	return Config{
		Version: version.SchemaVersion,
		Server: ServerConfig{
			ListenAddr: ":8080",
		},
		Data: DataConfig{
			CSVPath: "data/prices.csv",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads, parses and validates a YAML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config file %q", path)
	}

	return Parse(data)
}

// Parse parses and validates YAML config bytes.
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse config YAML", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks field constraints and the declared schema version.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid config", err)
	}

	if err := version.CheckVersionCompatibility(version.SchemaVersion, c.Version); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidVersion, "config schema version is incompatible with this binary", err)
	}

	return nil
}

// GenerateSchema generates a JSON schema for the Config.
func (c *Config) GenerateSchema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
	}

	schema := reflector.Reflect(c)

	schema.Title = "quantdesk-config"
	schema.Description = "Configuration schema for the quantdesk service"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema, nil
}

// GenerateSchemaJSON generates a JSON schema string for the Config.
func (c *Config) GenerateSchemaJSON() (string, error) {
	schema, err := c.GenerateSchema()
	if err != nil {
		return "", err
	}

	schemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}

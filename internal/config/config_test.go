package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/quantdesk-lab/quantdesk/internal/version"
	"github.com/quantdesk-lab/quantdesk/pkg/errors"
)

type ConfigTestSuite struct {
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) TestDefaultConfig() {
	config := DefaultConfig()

	suite.Equal(version.SchemaVersion, config.Version)
	suite.Equal(":8080", config.Server.ListenAddr)
	suite.Equal("data/prices.csv", config.Data.CSVPath)
	suite.Equal("info", config.Log.Level)
	suite.NoError(config.Validate())
}

func (suite *ConfigTestSuite) TestParseComplete() {
	yamlData := `
version: 1.0.0
server:
  listen_addr: ":9090"
  cors_origins:
    - http://localhost:3000
data:
  csv_path: data/prices.csv
  duckdb_path: data/prices.duckdb
  memory_limit: 2GB
  threads: 2
log:
  level: debug
`

	config, err := Parse([]byte(yamlData))

	suite.NoError(err)
	suite.Equal("1.0.0", config.Version)
	suite.Equal(":9090", config.Server.ListenAddr)
	suite.Equal([]string{"http://localhost:3000"}, config.Server.CORSOrigins)
	suite.Equal("data/prices.csv", config.Data.CSVPath)
	suite.Equal("data/prices.duckdb", config.Data.DuckDBPath)
	suite.Equal("2GB", config.Data.MemoryLimit)
	suite.Equal(2, config.Data.Threads)
	suite.Equal("debug", config.Log.Level)
}

func (suite *ConfigTestSuite) TestParseMinimal() {
	yamlData := `
version: 1.0.0
data:
  csv_path: data/prices.csv
`

	config, err := Parse([]byte(yamlData))

	suite.NoError(err)
	suite.Empty(config.Server.ListenAddr)
	suite.Empty(config.Log.Level)
}

func (suite *ConfigTestSuite) TestParseInvalidYAML() {
	_, err := Parse([]byte("version: [unclosed"))

	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (suite *ConfigTestSuite) TestParseMissingVersion() {
	yamlData := `
data:
  csv_path: data/prices.csv
`

	_, err := Parse([]byte(yamlData))

	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (suite *ConfigTestSuite) TestParseMissingCSVPath() {
	yamlData := `
version: 1.0.0
`

	_, err := Parse([]byte(yamlData))

	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (suite *ConfigTestSuite) TestParseBadLogLevel() {
	yamlData := `
version: 1.0.0
data:
  csv_path: data/prices.csv
log:
  level: loud
`

	_, err := Parse([]byte(yamlData))

	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (suite *ConfigTestSuite) TestParseIncompatibleVersion() {
	yamlData := `
version: 2.0.0
data:
  csv_path: data/prices.csv
`

	_, err := Parse([]byte(yamlData))

	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidVersion))
}

func (suite *ConfigTestSuite) TestParseDevVersionSkipsCheck() {
	yamlData := `
version: main
data:
  csv_path: data/prices.csv
`

	config, err := Parse([]byte(yamlData))

	suite.NoError(err)
	suite.Equal("main", config.Version)
}

func (suite *ConfigTestSuite) TestLoadFromFile() {
	dir := suite.T().TempDir()
	path := filepath.Join(dir, "config.yaml")

	yamlData := `
version: 1.0.0
server:
  listen_addr: ":8081"
data:
  csv_path: data/prices.csv
`
	suite.Require().NoError(os.WriteFile(path, []byte(yamlData), 0o644))

	config, err := Load(path)

	suite.NoError(err)
	suite.Equal(":8081", config.Server.ListenAddr)
}

func (suite *ConfigTestSuite) TestLoadMissingFile() {
	_, err := Load(filepath.Join(suite.T().TempDir(), "absent.yaml"))

	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (suite *ConfigTestSuite) TestGenerateSchema() {
	config := DefaultConfig()
	schema, err := config.GenerateSchema()

	suite.NoError(err)
	suite.NotNil(schema)
	suite.Equal("quantdesk-config", schema.Title)
	suite.Equal("Configuration schema for the quantdesk service", schema.Description)
	suite.Equal("http://json-schema.org/draft-07/schema#", schema.Version)
}

func (suite *ConfigTestSuite) TestGenerateSchemaJSON() {
	config := DefaultConfig()
	schemaJSON, err := config.GenerateSchemaJSON()

	suite.NoError(err)
	suite.NotEmpty(schemaJSON)

	// Verify it's valid JSON
	var result map[string]interface{}
	err = json.Unmarshal([]byte(schemaJSON), &result)
	suite.NoError(err)

	suite.Contains(result, "title")
	suite.Equal("quantdesk-config", result["title"])
}

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/quantdesk-lab/quantdesk/internal/config"
)

type GenerateCmdTestSuite struct {
	suite.Suite
	tempDir string
}

func TestGenerateCmdTestSuite(t *testing.T) {
	suite.Run(t, new(GenerateCmdTestSuite))
}

func (suite *GenerateCmdTestSuite) SetupTest() {
	tempDir, err := os.MkdirTemp("", "generate-cmd-test")
	suite.Require().NoError(err)
	suite.tempDir = tempDir

	suite.Require().NoError(os.Chdir(tempDir))
}

func (suite *GenerateCmdTestSuite) TearDownTest() {
	suite.Require().NoError(os.RemoveAll(suite.tempDir))
}

func (suite *GenerateCmdTestSuite) TestSchemaGeneration() {
	main()

	schemaPath := filepath.Join(suite.tempDir, "config", schemaName)
	content, err := os.ReadFile(schemaPath)
	suite.Require().NoError(err)

	suite.Contains(string(content), "$schema")
	suite.Contains(string(content), "listen_addr")
	suite.Contains(string(content), "csv_path")
}

func (suite *GenerateCmdTestSuite) TestSampleConfigGeneration() {
	main()

	samplePath := filepath.Join(suite.tempDir, "config", sampleConfigName)
	content, err := os.ReadFile(samplePath)
	suite.Require().NoError(err)

	suite.Contains(string(content), "# yaml-language-server: $schema="+schemaName)
	suite.Contains(string(content), "version: 1.0.0")
}

func (suite *GenerateCmdTestSuite) TestSampleConfigParsesBack() {
	main()

	content, err := os.ReadFile(filepath.Join(suite.tempDir, "config", sampleConfigName))
	suite.Require().NoError(err)

	parsed, err := config.Parse(content)
	suite.Require().NoError(err)
	suite.Equal(":8080", parsed.Server.ListenAddr)
	suite.Equal("data/prices.csv", parsed.Data.CSVPath)
	suite.Equal("info", parsed.Log.Level)
}

func (suite *GenerateCmdTestSuite) TestSampleConfigNotOverwritten() {
	main()

	samplePath := filepath.Join(suite.tempDir, "config", sampleConfigName)
	suite.Require().NoError(os.WriteFile(samplePath, []byte("# edited by hand\n"), 0644))

	main()

	content, err := os.ReadFile(samplePath)
	suite.Require().NoError(err)
	suite.Equal("# edited by hand\n", string(content))
}

func (suite *GenerateCmdTestSuite) TestGenerateSchemaFile() {
	cfg := config.DefaultConfig()
	schemaPath := filepath.Join(suite.tempDir, "nested", "schema.json")

	suite.Require().NoError(generateSchemaFile(&cfg, schemaPath))

	content, err := os.ReadFile(schemaPath)
	suite.Require().NoError(err)
	suite.NotEmpty(content)
}

func (suite *GenerateCmdTestSuite) TestGenerateSchemaFileBlockedPath() {
	// A regular file where the directory should go makes MkdirAll fail
	// regardless of privileges.
	blocker := filepath.Join(suite.tempDir, "blocker")
	suite.Require().NoError(os.WriteFile(blocker, []byte("x"), 0644))

	cfg := config.DefaultConfig()
	err := generateSchemaFile(&cfg, filepath.Join(blocker, "schema.json"))

	suite.Error(err)
	suite.Contains(err.Error(), "failed to")
}

func (suite *GenerateCmdTestSuite) TestGenerateSampleConfig() {
	cfg := config.DefaultConfig()
	samplePath := filepath.Join(suite.tempDir, "sample.yaml")

	written, err := generateSampleConfig(&cfg, samplePath, "schema.json")
	suite.Require().NoError(err)
	suite.True(written)

	content, err := os.ReadFile(samplePath)
	suite.Require().NoError(err)
	suite.Contains(string(content), "$schema=schema.json")

	// A second run leaves the existing file alone.
	written, err = generateSampleConfig(&cfg, samplePath, "schema.json")
	suite.Require().NoError(err)
	suite.False(written)
}

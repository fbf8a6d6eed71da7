package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"

	"github.com/quantdesk-lab/quantdesk/internal/config"
)

const (
	schemaName       = "quantdesk-config.json"
	sampleConfigName = "quantdesk-config.yaml"
)

func main() {
	cfg := config.DefaultConfig()

	schemaPath := filepath.Join("./config", schemaName)
	samplePath := filepath.Join("./config", sampleConfigName)

	if err := generateSchemaFile(&cfg, schemaPath); err != nil {
		log.Fatalf("Failed to generate schema: %v", err)
	}

	log.Printf("Schema successfully generated at %s", schemaPath)

	written, err := generateSampleConfig(&cfg, samplePath, schemaName)
	if err != nil {
		log.Fatalf("Failed to generate sample config: %v", err)
	}

	if written {
		log.Printf("Sample config successfully generated at %s", samplePath)
	}
}

// generateSchemaFile writes the JSON schema for cfg, creating the target
// directory if needed.
func generateSchemaFile(cfg *config.Config, path string) error {
	schemaJSON, err := cfg.GenerateSchemaJSON()
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(schemaJSON), 0644); err != nil {
		return fmt.Errorf("failed to write schema: %w", err)
	}

	return nil
}

// generateSampleConfig writes a sample YAML config that references the schema
// for editor completion, unless one already exists. It reports whether a file
// was written.
func generateSampleConfig(cfg *config.Config, path string, schemaName string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}

	yamlBytes, err := yaml.Marshal(cfg)
	if err != nil {
		return false, fmt.Errorf("failed to marshal sample config: %w", err)
	}

	yamlBytes = append([]byte("# yaml-language-server: $schema="+schemaName+"\n"), yamlBytes...)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(path, yamlBytes, 0644); err != nil {
		return false, fmt.Errorf("failed to write sample config: %w", err)
	}

	return true, nil
}

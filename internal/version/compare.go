package version

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// CheckVersionCompatibility checks if the binary's config schema version and a
// config file's declared version are compatible.
// Returns nil if compatible, error with details if not.
//
// Compatibility Rules:
//   - If either version is "main" (development build), compatibility check is skipped
//   - Major versions must match exactly
//   - Minor versions must match exactly
//   - Patch versions can differ (e.g., 1.2.0 is compatible with 1.2.5)
//
// Examples:
//   - Schema 1.2.0, Config 1.2.0 -> OK (exact match)
//   - Schema 1.2.1, Config 1.2.0 -> OK (patch differs)
//   - Schema 1.3.0, Config 1.2.0 -> ERROR (minor differs)
//   - Schema 2.0.0, Config 1.2.0 -> ERROR (major differs)
//   - Schema main, Config 1.2.0 -> OK (dev build, skip check)
func CheckVersionCompatibility(schemaVersion, configVersion string) error {
	// Strip 'v' prefix if present for consistency
	schemaVersion = strings.TrimPrefix(schemaVersion, "v")
	configVersion = strings.TrimPrefix(configVersion, "v")

	// Skip version check for "main" (development builds)
	if schemaVersion == "main" || configVersion == "main" {
		return nil
	}

	// Parse schema version
	schemaSemver, err := semver.NewVersion(schemaVersion)
	if err != nil {
		return fmt.Errorf("invalid schema version '%s': %w", schemaVersion, err)
	}

	// Parse config version
	configSemver, err := semver.NewVersion(configVersion)
	if err != nil {
		return fmt.Errorf("invalid config version '%s': %w", configVersion, err)
	}

	// Check major version match
	if schemaSemver.Major() != configSemver.Major() {
		return fmt.Errorf("major version mismatch: binary supports %d.x.x but config declares %d.x.x",
			schemaSemver.Major(), configSemver.Major())
	}

	// Check minor version match
	if schemaSemver.Minor() != configSemver.Minor() {
		return fmt.Errorf("minor version mismatch: binary supports %d.%d.x but config declares %d.%d.x",
			schemaSemver.Major(), schemaSemver.Minor(),
			configSemver.Major(), configSemver.Minor())
	}

	// Patch versions can differ, so we're compatible
	return nil
}

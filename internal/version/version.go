package version

// Version is the current version of the quantdesk service.
// This value is set at build time using ldflags:
// -ldflags "-X github.com/quantdesk-lab/quantdesk/internal/version.Version=1.2.3"
// The default value "main" indicates a development build.
var Version = "v1.0.0"

// SchemaVersion is the configuration schema version the binary understands.
// Config files declare the schema version they were written against and the
// loader rejects files whose major or minor component differs.
const SchemaVersion = "1.0.0"

// GetVersion returns the current version of the service.
func GetVersion() string {
	return Version
}

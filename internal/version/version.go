package version

// Version is the current version of stratbench.
// Set at build time using ldflags:
// -ldflags "-X github.com/uljio/stratbench/internal/version.Version=1.2.3"
// The default value "main" indicates a development build.
var Version = "v1.0.0"

// GetVersion returns the current version.
func GetVersion() string {
	return Version
}

package version

// Build information, overridden at build time with
// -ldflags "-X github.com/chmdznr/bulk-renamer/pkg/version.Version=..."
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

package version

// Set at build time with -ldflags "-X github.com/hopboxdev/webgreeter/internal/version.Version=...".
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

package version

// Build information set by ldflags
var (
	Version = "dev"     // -X github.com/choopsit/toolz/internal/version.Version={{.Version}}
	Commit  = "unknown" // -X github.com/choopsit/toolz/internal/version.Commit={{.Commit}}
	Date    = "unknown" // -X github.com/choopsit/toolz/internal/version.Date={{.Date}}
)

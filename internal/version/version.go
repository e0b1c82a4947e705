package version

// Version is the current version of live-tracker.
// This value can be overridden at build time using:
//
//	go build -ldflags="-X 'github.com/kruthinvinay/live-tracker/internal/version.Version=v1.0.0'"
var Version = "dev"

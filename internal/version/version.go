// Package version holds build metadata injected at link time via
// -ldflags "-X".
package version

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String renders the build metadata as a single line.
func String() string {
	return Version + " (" + GitSHA + ", built " + BuildTime + ")"
}

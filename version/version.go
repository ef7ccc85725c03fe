package version

var (
	// Version is the main version at the moment.
	// Embedded by --ldflags on build time
	// Versioning should follow the SemVer guidelines
	// https://semver.org/
	Version = "v0.1.0"

	// Commit is the git commit hash, embedded by --ldflags
	Commit string

	// Branch is the git branch, embedded by --ldflags
	Branch string

	// BuildTime is the time of the build, embedded by --ldflags
	BuildTime string
)

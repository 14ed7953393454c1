package buildconfig

// Build-time variables injected via ldflags
var (
	version = "dev"
	commit  = "unknown"
)

const serviceName = "doubtsolver"

// Version returns the build version
func Version() string {
	return version
}

// Commit returns the git commit hash
func Commit() string {
	return commit
}

// UserAgent is sent on every outbound provider request.
func UserAgent() string {
	return serviceName + "/" + version
}

// VersionInfo returns full version information
func VersionInfo() map[string]string {
	return map[string]string{
		"service": serviceName,
		"version": version,
		"commit":  commit,
	}
}

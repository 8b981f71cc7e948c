package buildconfig

import "fmt"

// Build-time variables injected via ldflags:
//
//	-X github.com/Harshitk-cp/dialogreply/internal/buildconfig.version=v1.2.0
var (
	version = "dev"
	commit  = "unknown"
)

func Version() string {
	return version
}

func Commit() string {
	return commit
}

// String formats version and commit for the version command.
func String() string {
	return fmt.Sprintf("dialogreply %s (commit %s)", version, commit)
}

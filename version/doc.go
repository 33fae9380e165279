// Package version reports the taskflow build.
//
// Version, commit and build time are set at compile time via -ldflags and
// fall back to the VCS stamp the Go toolchain embeds:
//
//	go build -ldflags "-X github.com/kbukum/taskflow/version.Version=1.2.0" ./cmd/taskflow
package version

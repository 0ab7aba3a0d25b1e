// Package version reports the build identity of execkit binaries.
//
// Version, commit and build time are stamped at link time:
//
//	go build -ldflags "-X github.com/kbukum/execkit/version.Version=1.0.0" ./cmd/execrun
//
// Anything left unstamped is filled from the module build info when the
// binary was built from a VCS checkout.
package version

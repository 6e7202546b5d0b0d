// Package version exposes build metadata for the packager binary.
//
// Version, Commit and BuildTime are injected with
// -ldflags "-X github.com/oshokin/update-packager/internal/version.Version=...".
package version

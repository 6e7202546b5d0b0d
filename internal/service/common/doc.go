// Package common holds helpers shared by several services.
//
// It selects the version-control backend from settings, detects the current
// OS user and host for commit signatures and counts other running instances
// of a program.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

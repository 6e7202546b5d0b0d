// Package manifest scans version directories and persists their file lists.
package manifest

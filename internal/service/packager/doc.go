// Package packager assembles update packages from the git staging area.
//
// An Assembler takes one of two paths for a version:
//
//   - collect_staged: list staged files, copy them into a new version
//     directory, then write the manifest, update the registry and publish.
//   - regenerate: the version directory already exists, so only the manifest,
//     registry and publish steps run.
//
// Run wires settings, logging, metrics and the version-control backend around
// an Assembler and is what the update-packager command calls.
package packager

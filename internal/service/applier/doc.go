// Package applier installs published update packages into a target tree.
//
// Versions listed in the update root's registry that are newer than the newest
// entry of the target's apply log are installed in ascending order. Each file
// is swapped in atomically with go-update and the file it replaces is kept in
// a per-version backup directory.
package applier

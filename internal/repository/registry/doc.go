// Package registry persists sorted, deduplicated version lists.
//
// The same format backs the update root's registry of published versions and
// the apply log of versions installed into a target tree.
package registry

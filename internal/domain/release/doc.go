// Package release contains core domain types for update packages.
//
// It defines Version (the YYYYMMDDHH identifier of a package in the fixed UTC+8
// offset), the reserved filenames of the update layout, the names of the
// assembly steps, and the error kinds every component reports.
package release

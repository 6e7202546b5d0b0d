// Package config defines packager settings and provides helpers to load,
// validate and save them in YAML format.
//
// Load layers built-in defaults, an optional settings file, an optional .env
// file and UPDATE_PACKAGER_* environment variables, in that order.
package config

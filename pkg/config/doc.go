// Package config handles configuration management for kegs.
// It loads embedded TOML defaults, the user's config file, KEGS_*
// environment variables and command-line overrides, in that order, into a
// Config value that callers pass explicitly to the engine components.
package config

// Package project reads and writes the per-project dependency set.
//
// A project is a directory holding a kegs.toml manifest that names the
// packages it needs:
//
//	[dependencies]
//	wget = "1.24.5"
//	jq = "*"
//
//	[options]
//	parent_lookup = false
//
// What was actually installed for the project is recorded in kegs.lock,
// a YAML file listing the resolved version, bottle digest and platform
// tag of every package.
package project

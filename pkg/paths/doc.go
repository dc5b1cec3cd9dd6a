// Package paths computes every on-disk location kegs uses and resolves
// managed commands.
//
// A Layout describes one root: the global root or a project-local root.
// Both share the same shape:
//
//	<root>/bin/<name>              -> default version's binary
//	<root>/bin/<name>@<version>    -> pinned version's binary
//	<root>/opt/<name>              -> default version's keg
//	<root>/Cellar/<name>/<version> -> versioned installation tree
//	<root>/cache/                  -> metadata cache and downloaded bottles
//	<root>/tmp/                    -> fetch staging area
//
// Paths holds the configured roots explicitly; there is no process-wide
// state, so isolated instances can coexist in one process.
//
// # Command resolution
//
// Resolve searches, in order: the project root of the current directory
// (when it holds a manifest), the project roots of ancestor directories
// (when parent lookup is enabled), the global root, and finally the
// directories of the system PATH. The first existing match wins.
//
// # Usage
//
//	p := paths.New(paths.Options{Root: "/opt/kegs", FS: filesystem.NewOS()})
//	keg := p.Global().KegDir("wget", "1.24.5") // /opt/kegs/Cellar/wget/1.24.5
//	res, err := p.Resolve("wget", cwd)
package paths

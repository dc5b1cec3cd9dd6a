// Package testutil provides utilities for testing kegs components.
//
// Key components:
//   - Env: an isolated root in a temp directory with its Layout and Paths
//   - FileTree: declarative directory setup
//   - BottleBuilder: builds bottle archives in memory
//
// Usage guidelines:
//   - Tests that touch links use Env, since symlinks need a real filesystem
//   - All test data should be defined inline, not in external files
//   - Each test should be completely isolated with no shared state
package testutil

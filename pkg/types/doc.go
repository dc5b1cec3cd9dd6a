// Package types defines the data model shared by the kegs engine: the
// resolved Formula record handed in by collaborators, user-facing package
// specifications, installed kegs and their derived status, the typed
// progress events emitted by the fetcher and installer, and the FS
// interface the engine performs all filesystem work through.
package types

// Package filesystem provides the types.FS implementations used by kegs.
//
// Everything is backed by afero. The OS implementation wraps afero.OsFs,
// which supports symlinks; tests may pass any afero.Fs, and symlink calls
// on a backing filesystem without link support fail with ErrNoSymlinks.
package filesystem

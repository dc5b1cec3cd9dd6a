// Package installer is the write side of kegs: it installs, upgrades,
// uninstalls and switches kegs under one root, and recomputes their
// status from disk.
//
// A keg is the versioned directory Cellar/<name>/<version>. Its creation
// is exclusive, so the keg itself is the lock between concurrent installs
// of the same version. Every executable in the keg's bin/ is exposed as a
// pinned link bin/<cmd>@<version>; the default version additionally owns
// bin/<cmd> and opt/<name>.
//
// Install runs extract, repair and link in that order and reports each
// step as a PhaseEvent. Every change it makes is recorded in a
// transaction; a failure or cancellation at any point undoes them in
// reverse, so a failed install leaves no keg and no links behind.
package installer

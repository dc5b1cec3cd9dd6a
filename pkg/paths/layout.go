package paths

import (
	"path/filepath"

	"github.com/arthur-debert/kegs/pkg/errors"
	"github.com/arthur-debert/kegs/pkg/types"
)

// Root directory names. These define the on-disk layout shared by the
// global root and project roots and are not configurable.
const (
	BinDir       = "bin"
	OptDir       = "opt"
	CellarDir    = "Cellar"
	CacheDir     = "cache"
	TmpDir       = "tmp"
	DownloadsDir = "downloads"
	MetadataDir  = "formula"
)

// Layout is the directory structure under one root
type Layout struct {
	Root string
}

// NewLayout returns the layout rooted at root
func NewLayout(root string) Layout {
	return Layout{Root: filepath.Clean(root)}
}

// BinDir holds default and pinned command links
func (l Layout) BinDir() string { return filepath.Join(l.Root, BinDir) }

// OptDir holds one link per package pointing at its default keg
func (l Layout) OptDir() string { return filepath.Join(l.Root, OptDir) }

// CellarDir holds every versioned installation tree
func (l Layout) CellarDir() string { return filepath.Join(l.Root, CellarDir) }

// CacheDir is the root of the metadata cache and bottle downloads
func (l Layout) CacheDir() string { return filepath.Join(l.Root, CacheDir) }

// MetadataCacheDir is the disk tier of the metadata cache
func (l Layout) MetadataCacheDir() string { return filepath.Join(l.CacheDir(), MetadataDir) }

// DownloadsDir holds verified bottle archives
func (l Layout) DownloadsDir() string { return filepath.Join(l.CacheDir(), DownloadsDir) }

// TmpDir is the fetch staging area. It lives under the root so staged
// files can be renamed into place without crossing filesystems.
func (l Layout) TmpDir() string { return filepath.Join(l.Root, TmpDir) }

// RackDir holds every installed version of one package
func (l Layout) RackDir(name string) string {
	return filepath.Join(l.CellarDir(), name)
}

// KegDir is the versioned directory for (name, version)
func (l Layout) KegDir(name, version string) string {
	return filepath.Join(l.CellarDir(), name, version)
}

// DefaultLink is the unqualified command link
func (l Layout) DefaultLink(command string) string {
	return filepath.Join(l.BinDir(), command)
}

// PinnedLink is the version-qualified command link
func (l Layout) PinnedLink(command, version string) string {
	return filepath.Join(l.BinDir(), command+"@"+version)
}

// OptLink points at the default keg of a package
func (l Layout) OptLink(name string) string {
	return filepath.Join(l.OptDir(), name)
}

// BottlePath is where a downloaded bottle for formula is kept
func (l Layout) BottlePath(name, version, tag string) string {
	return filepath.Join(l.DownloadsDir(), name+"--"+version+"."+tag+".bottle.tar.gz")
}

// EnsureDirs creates the root's directory skeleton
func (l Layout) EnsureDirs(fs types.FS) error {
	for _, dir := range []string{l.BinDir(), l.OptDir(), l.CellarDir(), l.CacheDir(), l.TmpDir()} {
		if err := fs.MkdirAll(dir, 0755); err != nil {
			return errors.FromFS(err, dir)
		}
	}
	return nil
}

package project

import (
	"path/filepath"

	"github.com/arthur-debert/kegs/pkg/errors"
	"github.com/arthur-debert/kegs/pkg/paths"
	"github.com/arthur-debert/kegs/pkg/types"
)

// DefaultLockFile is the lockfile name used when none is configured
const DefaultLockFile = "kegs.lock"

// Project is a directory with a manifest and its own root
type Project struct {
	Dir      string
	Layout   paths.Layout
	Manifest *Manifest
	// LockPath is where the lockfile lives, whether or not it exists
	LockPath string
}

// Find locates the project enclosing cwd and loads its manifest.
// lockFile names the lockfile within the project directory.
func Find(p *paths.Paths, fs types.FS, cwd, lockFile string) (*Project, error) {
	dir, ok := p.FindProject(cwd)
	if !ok {
		return nil, errors.Newf(errors.ErrNotFound, "no project found from %s", cwd).WithDetail("location", cwd)
	}
	m, err := LoadManifest(fs, p.ManifestPath(dir))
	if err != nil {
		return nil, err
	}
	if lockFile == "" {
		lockFile = DefaultLockFile
	}
	return &Project{
		Dir:      dir,
		Layout:   p.Project(dir),
		Manifest: m,
		LockPath: filepath.Join(dir, lockFile),
	}, nil
}

// ReadLock reads the project's lockfile
func (pr *Project) ReadLock(fs types.FS) (*Lock, error) {
	return ReadLock(fs, pr.LockPath)
}

// Record upserts pkg into the project's lockfile
func (pr *Project) Record(fs types.FS, pkg LockedPackage) error {
	l, err := pr.ReadLock(fs)
	if err != nil {
		return err
	}
	l.Upsert(pkg)
	return WriteLock(fs, pr.LockPath, l)
}

// Forget removes name from the project's lockfile
func (pr *Project) Forget(fs types.FS, name string) error {
	l, err := pr.ReadLock(fs)
	if err != nil {
		return err
	}
	if !l.Remove(name) {
		return nil
	}
	return WriteLock(fs, pr.LockPath, l)
}

package project

import (
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/arthur-debert/kegs/pkg/errors"
	"github.com/arthur-debert/kegs/pkg/types"
)

// LockVersion is the format version written to new lockfiles
const LockVersion = 1

// Lock is the parsed kegs.lock of a project
type Lock struct {
	Version  int             `yaml:"version"`
	Packages []LockedPackage `yaml:"packages"`
}

// LockedPackage is one resolved dependency
type LockedPackage struct {
	Name     string `yaml:"name"`
	Version  string `yaml:"version"`
	Digest   string `yaml:"digest,omitempty"`
	Platform string `yaml:"platform,omitempty"`
}

// LockedFrom records what installing formula with bottle resolved to
func LockedFrom(formula *types.Formula, bottle types.Bottle) LockedPackage {
	return LockedPackage{
		Name:     formula.Name,
		Version:  formula.PkgVersion(),
		Digest:   bottle.Digest,
		Platform: bottle.PlatformTag,
	}
}

// ReadLock reads the lockfile at path. A missing file is an empty lock.
func ReadLock(fs types.FS, path string) (*Lock, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Lock{Version: LockVersion}, nil
		}
		return nil, errors.FromFS(err, path)
	}

	var l Lock
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, errors.Wrapf(err, errors.ErrInvalidInput, "cannot parse %s", path).WithDetail("path", path)
	}
	if l.Version == 0 {
		l.Version = LockVersion
	}
	if l.Version > LockVersion {
		return nil, errors.Newf(errors.ErrInvalidInput, "%s has unsupported lock version %d", path, l.Version).
			WithDetail("path", path)
	}
	l.sort()
	return &l, nil
}

// WriteLock writes l to path, sorted by name
func WriteLock(fs types.FS, path string, l *Lock) error {
	if l.Version == 0 {
		l.Version = LockVersion
	}
	l.sort()
	data, err := yaml.Marshal(l)
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "cannot encode lockfile")
	}
	return writeAtomic(fs, path, data)
}

// Find returns the locked entry for name
func (l *Lock) Find(name string) (LockedPackage, bool) {
	for _, p := range l.Packages {
		if p.Name == name {
			return p, true
		}
	}
	return LockedPackage{}, false
}

// Upsert adds pkg or replaces the entry with the same name
func (l *Lock) Upsert(pkg LockedPackage) {
	for i := range l.Packages {
		if l.Packages[i].Name == pkg.Name {
			l.Packages[i] = pkg
			return
		}
	}
	l.Packages = append(l.Packages, pkg)
	l.sort()
}

// Remove drops the entry for name and reports whether there was one
func (l *Lock) Remove(name string) bool {
	for i, p := range l.Packages {
		if p.Name == name {
			l.Packages = append(l.Packages[:i], l.Packages[i+1:]...)
			return true
		}
	}
	return false
}

func (l *Lock) sort() {
	sort.SliceStable(l.Packages, func(i, j int) bool {
		return l.Packages[i].Name < l.Packages[j].Name
	})
}

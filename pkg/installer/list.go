package installer

import (
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/arthur-debert/kegs/pkg/errors"
	"github.com/arthur-debert/kegs/pkg/types"
)

// List returns the installed versions of name, oldest first
func (i *Installer) List(name string) ([]types.InstalledPackage, error) {
	rack := i.layout.RackDir(name)
	entries, err := i.fs.ReadDir(rack)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.FromFS(err, rack)
	}

	var versions []string
	for _, entry := range entries {
		if entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") {
			versions = append(versions, entry.Name())
		}
	}
	SortVersions(versions)

	pkgs := make([]types.InstalledPackage, 0, len(versions))
	for _, v := range versions {
		pkgs = append(pkgs, types.InstalledPackage{Name: name, Version: v, Path: i.layout.KegDir(name, v)})
	}
	return pkgs, nil
}

// ListAll returns every installed keg ordered by name, then version
func (i *Installer) ListAll() ([]types.InstalledPackage, error) {
	cellar := i.layout.CellarDir()
	entries, err := i.fs.ReadDir(cellar)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.FromFS(err, cellar)
	}

	var all []types.InstalledPackage
	for _, entry := range entries {
		if !entry.IsDir() || !types.IsValidName(entry.Name()) {
			continue
		}
		pkgs, err := i.List(entry.Name())
		if err != nil {
			return nil, err
		}
		all = append(all, pkgs...)
	}
	return all, nil
}

// SortVersions orders package versions ascending. Versions that parse as
// semantic versions, with an optional "_<revision>" suffix, come first
// in semver order; the rest follow in lexical order.
func SortVersions(versions []string) {
	sort.SliceStable(versions, func(a, b int) bool {
		return CompareVersions(versions[a], versions[b]) < 0
	})
}

// CompareVersions compares two package versions as SortVersions orders
// them
func CompareVersions(a, b string) int {
	va, ra := splitRevision(a)
	vb, rb := splitRevision(b)
	sa, errA := semver.NewVersion(va)
	sb, errB := semver.NewVersion(vb)

	switch {
	case errA == nil && errB == nil:
		if c := sa.Compare(sb); c != 0 {
			return c
		}
		switch {
		case ra < rb:
			return -1
		case ra > rb:
			return 1
		}
		return strings.Compare(a, b)
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	default:
		return strings.Compare(a, b)
	}
}

// splitRevision separates a trailing "_<n>" revision from a version
func splitRevision(v string) (string, int) {
	idx := strings.LastIndex(v, "_")
	if idx < 0 {
		return v, 0
	}
	rev, err := strconv.Atoi(v[idx+1:])
	if err != nil || rev < 0 {
		return v, 0
	}
	return v[:idx], rev
}

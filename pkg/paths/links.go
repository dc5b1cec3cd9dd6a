package paths

import (
	"crypto/rand"
	"encoding/hex"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/kegs/pkg/errors"
	"github.com/arthur-debert/kegs/pkg/types"
)

// SanitizePath cleans a path, removing redundant separators and . segments
func SanitizePath(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Clean(path)
}

// ContainsPath reports whether child is parent or lies beneath it.
// Both paths are cleaned; no symlinks are followed.
func ContainsPath(parent, child string) bool {
	rel, err := filepath.Rel(SanitizePath(parent), SanitizePath(child))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// RelativeTarget is the link text that makes link point at target
// relative to the link's own directory.
func RelativeTarget(link, target string) (string, error) {
	rel, err := filepath.Rel(filepath.Dir(SanitizePath(link)), SanitizePath(target))
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrInvalidInput,
			"cannot determine relative path from %s to %s", link, target)
	}
	return rel, nil
}

// LinkTarget reads link and returns the absolute path it refers to
func LinkTarget(fs types.FS, link string) (string, error) {
	dest, err := fs.Readlink(link)
	if err != nil {
		return "", errors.FromFS(err, link)
	}
	if !filepath.IsAbs(dest) {
		dest = filepath.Join(filepath.Dir(link), dest)
	}
	return filepath.Clean(dest), nil
}

// PointsInto reports whether link is a symlink whose target lies inside
// dir. A missing link or a regular file reports false.
func PointsInto(fs types.FS, link, dir string) bool {
	target, err := LinkTarget(fs, link)
	if err != nil {
		return false
	}
	return ContainsPath(dir, target)
}

// ReplaceSymlink makes link point at target. The new link is created
// under a temporary name next to link and renamed over it, so readers
// observe either the old target or the new one. target is stored
// relative to the link's directory.
func ReplaceSymlink(fs types.FS, target, link string) error {
	dir := filepath.Dir(link)
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return errors.SymlinkFailed(errors.FromFS(err, dir), link, target)
	}
	rel, err := RelativeTarget(link, target)
	if err != nil {
		return errors.SymlinkFailed(err, link, target)
	}

	tmp := filepath.Join(dir, "."+filepath.Base(link)+".tmp-"+randomSuffix())
	if err := fs.Symlink(rel, tmp); err != nil {
		return errors.SymlinkFailed(err, link, target)
	}
	if err := fs.Rename(tmp, link); err != nil {
		_ = fs.Remove(tmp)
		return errors.SymlinkFailed(err, link, target)
	}
	return nil
}

// RemoveLinkIfInto removes link when it is a symlink pointing inside dir.
// It reports whether a link was removed.
func RemoveLinkIfInto(fs types.FS, link, dir string) (bool, error) {
	if !PointsInto(fs, link, dir) {
		return false, nil
	}
	if err := fs.Remove(link); err != nil {
		return false, errors.FromFS(err, link)
	}
	return true, nil
}

func randomSuffix() string {
	var b [6]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

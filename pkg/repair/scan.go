package repair

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/arthur-debert/kegs/pkg/errors"
	"github.com/arthur-debert/kegs/pkg/types"
	"github.com/beevik/etree"
)

// nonBinaryExtensions are never candidates inside bundles
var nonBinaryExtensions = map[string]bool{
	".txt": true, ".md": true, ".h": true, ".hpp": true, ".c": true,
	".cc": true, ".cpp": true, ".m": true, ".py": true, ".rb": true,
	".pl": true, ".sh": true, ".json": true, ".plist": true, ".xml": true,
	".html": true, ".strings": true, ".nib": true, ".png": true, ".pc": true,
	".la": true, ".a": true, ".cmake": true,
}

var bundleSuffixes = []string{".framework", ".bundle", ".app"}

// Scan lists the files of a keg that may need repair: every file in
// bin/, every shared library under lib/, and the binaries inside any
// framework, bundle or app. Symlinks are skipped; their targets are
// scanned where they live. Paths are returned sorted and unique.
func Scan(fsys types.FS, kegDir string) ([]string, error) {
	found := make(map[string]bool)

	binDir := filepath.Join(kegDir, "bin")
	entries, err := fsys.ReadDir(binDir)
	if err != nil && !isNotExist(err) {
		return nil, errors.FromFS(err, binDir)
	}
	for _, e := range entries {
		if e.Type().IsRegular() {
			found[filepath.Join(binDir, e.Name())] = true
		}
	}

	libDir := filepath.Join(kegDir, "lib")
	err = walk(fsys, libDir, true, func(path string, d fs.DirEntry) error {
		if d.Type().IsRegular() && isSharedLibrary(d.Name()) {
			found[path] = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = walk(fsys, kegDir, false, func(path string, d fs.DirEntry) error {
		if d.IsDir() && isBundle(d.Name()) {
			return scanBundle(fsys, path, found)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(found))
	for p := range found {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

func scanBundle(fsys types.FS, bundle string, found map[string]bool) error {
	return walk(fsys, bundle, true, func(path string, d fs.DirEntry) error {
		if !d.Type().IsRegular() {
			return nil
		}
		name := d.Name()
		if name == "Info.plist" {
			if exe := bundleExecutable(fsys, path); exe != "" {
				found[exe] = true
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(name))
		if nonBinaryExtensions[ext] {
			return nil
		}
		if ext == "" || isSharedLibrary(name) {
			found[path] = true
			return nil
		}
		if info, err := d.Info(); err == nil && info.Mode().Perm()&0111 != 0 {
			found[path] = true
		}
		return nil
	})
}

// bundleExecutable reads CFBundleExecutable from an XML Info.plist and
// returns the executable's path if it exists. Framework plists live in
// Resources/ next to the executable; app and bundle plists live in
// Contents/ with the executable under Contents/MacOS/.
func bundleExecutable(fsys types.FS, plistPath string) string {
	data, err := fsys.ReadFile(plistPath)
	if err != nil || !bytes.HasPrefix(bytes.TrimSpace(data), []byte("<?xml")) {
		return ""
	}
	name := plistString(data, "CFBundleExecutable")
	if name == "" || strings.ContainsRune(name, '/') {
		return ""
	}

	dir := filepath.Dir(plistPath)
	var candidates []string
	switch filepath.Base(dir) {
	case "Resources":
		candidates = append(candidates, filepath.Join(filepath.Dir(dir), name))
	case "Contents":
		candidates = append(candidates, filepath.Join(dir, "MacOS", name))
	}
	candidates = append(candidates, filepath.Join(dir, name))
	for _, c := range candidates {
		if info, err := fsys.Lstat(c); err == nil && info.Mode().IsRegular() {
			return c
		}
	}
	return ""
}

// plistString returns the string value following key in the top-level
// dict of an XML property list
func plistString(data []byte, key string) string {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return ""
	}
	dict := doc.FindElement("/plist/dict")
	if dict == nil {
		return ""
	}
	children := dict.ChildElements()
	for i, el := range children {
		if el.Tag == "key" && strings.TrimSpace(el.Text()) == key && i+1 < len(children) {
			if next := children[i+1]; next.Tag == "string" {
				return strings.TrimSpace(next.Text())
			}
		}
	}
	return ""
}

func isSharedLibrary(name string) bool {
	return strings.HasSuffix(name, ".dylib") ||
		strings.HasSuffix(name, ".so") ||
		strings.Contains(name, ".so.")
}

func isBundle(name string) bool {
	for _, s := range bundleSuffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}

// walk visits every entry below root without following symlinks. A
// missing root is not an error. With intoBundles false, bundle
// directories are passed to fn but not descended into.
func walk(fsys types.FS, root string, intoBundles bool, fn func(path string, d fs.DirEntry) error) error {
	entries, err := fsys.ReadDir(root)
	if err != nil {
		if isNotExist(err) {
			return nil
		}
		return errors.FromFS(err, root)
	}
	for _, e := range entries {
		path := filepath.Join(root, e.Name())
		if err := fn(path, e); err != nil {
			return err
		}
		if e.IsDir() && (intoBundles || !isBundle(e.Name())) {
			if err := walk(fsys, path, intoBundles, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

func isNotExist(err error) bool {
	return os.IsNotExist(err)
}

package installer

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/arthur-debert/kegs/pkg/errors"
	"github.com/arthur-debert/kegs/pkg/paths"
)

// commands lists what a keg exposes: executable files and symlinks in
// its bin/ directory. Hidden entries and names holding "@" are skipped
// since they would collide with pinned links.
func (i *Installer) commands(keg string) ([]string, error) {
	dir := filepath.Join(keg, "bin")
	entries, err := i.fs.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.FromFS(err, dir)
	}

	var cmds []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") || strings.Contains(name, "@") {
			continue
		}
		info, err := i.fs.Lstat(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		mode := info.Mode()
		if mode&os.ModeSymlink != 0 || (mode.IsRegular() && mode.Perm()&0111 != 0) {
			cmds = append(cmds, name)
		}
	}
	sort.Strings(cmds)
	return cmds, nil
}

// defaultKeg returns the keg opt/<name> points at, if any
func (i *Installer) defaultKeg(name string) (string, bool) {
	target, err := paths.LinkTarget(i.fs, i.layout.OptLink(name))
	if err != nil {
		return "", false
	}
	rack := i.layout.RackDir(name)
	if !paths.ContainsPath(rack, target) || target == rack {
		return "", false
	}
	rel, err := filepath.Rel(rack, target)
	if err != nil {
		return "", false
	}
	version := strings.SplitN(filepath.ToSlash(rel), "/", 2)[0]
	return filepath.Join(rack, version), true
}

// ownedElsewhere reports whether link is taken by something other than a
// keg of name: a regular file or a symlink out of the rack
func (i *Installer) ownedElsewhere(link, name string) bool {
	info, err := i.fs.Lstat(link)
	if err != nil {
		return false
	}
	if info.Mode()&os.ModeSymlink == 0 {
		return true
	}
	return !paths.PointsInto(i.fs, link, i.layout.RackDir(name))
}

// makeDefault points the default links of name at keg. Default links of
// commands the previous default had and keg lacks are removed. Links
// owned by other packages are left alone. progress is called once per
// link touched.
func (i *Installer) makeDefault(tx *transaction, name, keg string, cmds []string, progress func(detail string)) ([]string, error) {
	var linked []string
	have := make(map[string]bool, len(cmds))
	for _, cmd := range cmds {
		have[cmd] = true
		link := i.layout.DefaultLink(cmd)
		if i.ownedElsewhere(link, name) {
			i.logger.Warn().Str("command", cmd).Str("link", link).Msg("default link belongs to another package, skipping")
			continue
		}
		if err := tx.link(filepath.Join(keg, "bin", cmd), link); err != nil {
			return linked, err
		}
		linked = append(linked, link)
		progress(cmd)
	}

	if prev, ok := i.defaultKeg(name); ok && prev != keg {
		prevCmds, err := i.commands(prev)
		if err != nil {
			return linked, err
		}
		for _, cmd := range prevCmds {
			link := i.layout.DefaultLink(cmd)
			if have[cmd] || !paths.PointsInto(i.fs, link, i.layout.RackDir(name)) {
				continue
			}
			if err := tx.unlink(link); err != nil {
				return linked, err
			}
		}
	}

	opt := i.layout.OptLink(name)
	if err := tx.link(keg, opt); err != nil {
		return linked, err
	}
	linked = append(linked, opt)
	progress(filepath.Base(opt))
	return linked, nil
}

// unlinkInto removes links in bin/ and opt/<name> pointing into dir.
// With pinnedOnly set the default links are kept.
func (i *Installer) unlinkInto(name, dir string, pinnedOnly bool) ([]string, error) {
	var removed []string
	bin := i.layout.BinDir()
	entries, err := i.fs.ReadDir(bin)
	if err != nil && !os.IsNotExist(err) {
		return nil, errors.FromFS(err, bin)
	}

	links := make([]string, 0, len(entries)+1)
	for _, entry := range entries {
		if pinnedOnly && !strings.Contains(entry.Name(), "@") {
			continue
		}
		links = append(links, filepath.Join(bin, entry.Name()))
	}
	if !pinnedOnly {
		links = append(links, i.layout.OptLink(name))
	}

	for _, link := range links {
		ok, err := paths.RemoveLinkIfInto(i.fs, link, dir)
		if err != nil {
			return removed, err
		}
		if ok {
			removed = append(removed, link)
		}
	}
	return removed, nil
}

// relToRoot renders path relative to the root for receipts and logs
func (i *Installer) relToRoot(path string) string {
	rel, err := filepath.Rel(i.layout.Root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

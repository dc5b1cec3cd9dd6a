package installer

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/arthur-debert/kegs/pkg/errors"
	"github.com/arthur-debert/kegs/pkg/paths"
	"github.com/arthur-debert/kegs/pkg/types"
)

// Verify recomputes the status of formula's keg from disk. Nothing is
// cached between calls.
func (i *Installer) Verify(formula *types.Formula) (types.InstallationStatus, error) {
	if err := formula.Validate(); err != nil {
		return types.InstallationStatus{}, errors.Wrap(err, errors.ErrInvalidInput, "invalid formula")
	}
	return i.status(formula.Name, formula.PkgVersion())
}

func (i *Installer) status(name, version string) (types.InstallationStatus, error) {
	keg := i.layout.KegDir(name, version)
	info, err := i.fs.Lstat(keg)
	if os.IsNotExist(err) {
		return types.StatusNotInstalled(), nil
	}
	if err != nil {
		return types.InstallationStatus{}, errors.FromFS(err, keg)
	}
	if !info.IsDir() {
		return types.StatusCorrupted("keg is not a directory"), nil
	}

	receipt, err := ReadReceipt(i.fs, keg)
	if err != nil {
		if errors.IsErrorCode(err, errors.ErrNotFound) {
			return types.StatusCorrupted("missing install receipt"), nil
		}
		return types.StatusCorrupted("unreadable install receipt"), nil
	}

	cmds, err := i.commands(keg)
	if err != nil {
		return types.InstallationStatus{}, err
	}
	cmds = union(cmds, receipt.Commands)

	rack := i.layout.RackDir(name)
	opt := i.layout.OptLink(name)
	// Every install leaves opt/<name> behind, dangling at worst
	if _, err := i.fs.Lstat(opt); os.IsNotExist(err) {
		return types.StatusCorrupted("missing link " + i.relToRoot(opt)), nil
	}
	optHere := paths.PointsInto(i.fs, opt, keg)
	isDefault := optHere
	for _, cmd := range cmds {
		if isDefault {
			break
		}
		isDefault = paths.PointsInto(i.fs, i.layout.DefaultLink(cmd), keg)
	}
	if isDefault {
		if !optHere {
			return types.StatusCorrupted("missing link " + i.relToRoot(opt)), nil
		}
		if _, err := i.fs.Stat(opt); err != nil {
			return types.StatusCorrupted("dangling link " + i.relToRoot(opt)), nil
		}
	}

	for _, cmd := range cmds {
		if _, err := i.fs.Stat(filepath.Join(keg, "bin", cmd)); err != nil {
			return types.StatusCorrupted(fmt.Sprintf("missing binary bin/%s", cmd)), nil
		}

		pinned := i.layout.PinnedLink(cmd, version)
		if !paths.PointsInto(i.fs, pinned, keg) {
			return types.StatusCorrupted("missing link " + i.relToRoot(pinned)), nil
		}
		if _, err := i.fs.Stat(pinned); err != nil {
			return types.StatusCorrupted("dangling link " + i.relToRoot(pinned)), nil
		}

		def := i.layout.DefaultLink(cmd)
		if _, err := i.fs.Lstat(def); err != nil {
			if isDefault {
				return types.StatusCorrupted("missing link " + i.relToRoot(def)), nil
			}
			continue
		}
		if paths.PointsInto(i.fs, def, rack) {
			if _, err := i.fs.Stat(def); err != nil {
				return types.StatusCorrupted("dangling link " + i.relToRoot(def)), nil
			}
		}
	}
	return types.StatusInstalled(), nil
}

func union(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, s := range append(append([]string{}, a...), b...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

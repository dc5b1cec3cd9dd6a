package installer

import (
	"os"

	"github.com/arthur-debert/kegs/pkg/errors"
	"github.com/arthur-debert/kegs/pkg/logging"
	"github.com/arthur-debert/kegs/pkg/types"
)

// Uninstall removes installed versions of name. With an empty version
// every keg of name goes, along with every link into any of them. With a
// version only that keg and its pinned links go. Default links that
// pointed at it are left dangling and no other version is promoted;
// callers wanting a new default must Switch.
func (i *Installer) Uninstall(name, version string) ([]types.InstalledPackage, error) {
	if !types.IsValidName(name) {
		return nil, errors.Newf(errors.ErrInvalidInput, "invalid package name %q", name).WithDetail("name", name)
	}
	logger := i.logger.With().Str("name", name).Str("version", version).Logger()
	defer logging.LogOperationStart(logger, "uninstall")()

	installed, err := i.List(name)
	if err != nil {
		return nil, err
	}
	if len(installed) == 0 {
		return nil, errors.FormulaNotFound(name)
	}

	targets := installed
	scope := i.layout.RackDir(name)
	if version != "" {
		targets = nil
		for _, pkg := range installed {
			if pkg.Version == version {
				targets = append(targets, pkg)
			}
		}
		if len(targets) == 0 {
			return nil, errors.FormulaNotFound(name).WithDetail("version", version)
		}
		scope = targets[0].Path
	}

	removed, err := i.unlinkInto(name, scope, version != "")
	if err != nil {
		return nil, err
	}
	for _, pkg := range targets {
		if err := i.fs.RemoveAll(pkg.Path); err != nil {
			return nil, errors.FromFS(err, pkg.Path)
		}
	}
	rack := i.layout.RackDir(name)
	if err := removeIfEmpty(i.fs, rack); err != nil && !os.IsNotExist(err) {
		return nil, errors.FromFS(err, rack)
	}

	logger.Info().Int("kegs", len(targets)).Int("links", len(removed)).Msg("uninstalled")
	return targets, nil
}

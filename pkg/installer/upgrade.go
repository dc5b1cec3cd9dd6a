package installer

import (
	"context"

	"github.com/arthur-debert/kegs/pkg/errors"
	"github.com/arthur-debert/kegs/pkg/types"
)

// Upgrade replaces the installed old version of a package with next.
// next is installed completely, and becomes the default, before old is
// touched; if that install fails old stays installed as it was.
func (i *Installer) Upgrade(ctx context.Context, old, next *types.Formula, archivePath string, observer types.PhaseObserver) (types.InstalledPackage, error) {
	if err := old.Validate(); err != nil {
		return types.InstalledPackage{}, errors.Wrap(err, errors.ErrInvalidInput, "invalid formula")
	}
	if err := next.Validate(); err != nil {
		return types.InstalledPackage{}, errors.Wrap(err, errors.ErrInvalidInput, "invalid formula")
	}
	if old.Name != next.Name {
		return types.InstalledPackage{}, errors.Newf(errors.ErrInvalidInput, "cannot upgrade %s to %s", old.Name, next.Name).
			WithDetail("from", old.Name).
			WithDetail("to", next.Name)
	}

	oldKeg := i.layout.KegDir(old.Name, old.PkgVersion())
	if _, err := i.fs.Stat(oldKeg); err != nil {
		return types.InstalledPackage{}, errors.FormulaNotFound(old.Name).WithDetail("version", old.PkgVersion())
	}

	pkg, err := i.Install(ctx, next, archivePath, observer)
	if err != nil {
		return pkg, err
	}

	if _, err := i.Uninstall(old.Name, old.PkgVersion()); err != nil {
		return pkg, errors.InstallationFailed(err, old.Name,
			"new version installed but "+old.PkgVersion()+" could not be removed")
	}
	i.logger.Info().Str("name", old.Name).Str("from", old.PkgVersion()).Str("to", next.PkgVersion()).Msg("upgraded")
	return pkg, nil
}

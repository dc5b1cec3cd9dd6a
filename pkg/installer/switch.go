package installer

import (
	"path/filepath"

	"github.com/arthur-debert/kegs/pkg/errors"
	"github.com/arthur-debert/kegs/pkg/types"
)

// Switch makes version the default of name. Each link is replaced by a
// single rename, so readers see the old or the new target. If any link
// cannot be replaced the previous default is restored.
func (i *Installer) Switch(name, version string) error {
	if !types.IsValidName(name) || version == "" {
		return errors.Newf(errors.ErrInvalidInput, "invalid package %s@%s", name, version).
			WithDetail("name", name).
			WithDetail("version", version)
	}
	keg := i.layout.KegDir(name, version)
	if info, err := i.fs.Stat(keg); err != nil || !info.IsDir() {
		return errors.FormulaNotFound(name).WithDetail("version", version)
	}

	cmds, err := i.commands(keg)
	if err != nil {
		return err
	}
	tx := newTransaction(i.fs, i.logger)
	if _, err := i.makeDefault(tx, name, keg, cmds, func(string) {}); err != nil {
		tx.rollback()
		return err
	}
	i.logger.Info().Str("name", name).Str("version", version).Msg("switched default")
	return nil
}

// Default returns the version opt/<name> points at
func (i *Installer) Default(name string) (string, bool) {
	keg, ok := i.defaultKeg(name)
	if !ok {
		return "", false
	}
	return filepath.Base(keg), true
}

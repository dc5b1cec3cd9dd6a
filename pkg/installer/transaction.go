package installer

import (
	"fmt"
	"os"

	"github.com/arthur-debert/kegs/pkg/errors"
	"github.com/arthur-debert/kegs/pkg/paths"
	"github.com/arthur-debert/kegs/pkg/types"
	"github.com/rs/zerolog"
)

// transaction records the changes of one install so they can be undone
// in reverse order
type transaction struct {
	fs     types.FS
	logger zerolog.Logger
	undo   []func() error
}

func newTransaction(fs types.FS, logger zerolog.Logger) *transaction {
	return &transaction{fs: fs, logger: logger}
}

// mkdirAll creates dir and, when it did not exist, removes it again on
// rollback provided it is empty by then
func (tx *transaction) mkdirAll(dir string) error {
	if _, err := tx.fs.Stat(dir); err == nil {
		return nil
	}
	if err := tx.fs.MkdirAll(dir, 0755); err != nil {
		return errors.FromFS(err, dir)
	}
	tx.undo = append(tx.undo, func() error {
		return removeIfEmpty(tx.fs, dir)
	})
	return nil
}

// createKeg creates dir exclusively
func (tx *transaction) createKeg(dir, name, version string) error {
	if err := tx.fs.Mkdir(dir, 0755); err != nil {
		if os.IsExist(err) {
			return errors.AlreadyInstalled(name, version)
		}
		return errors.FromFS(err, dir)
	}
	tx.undo = append(tx.undo, func() error {
		return tx.fs.RemoveAll(dir)
	})
	return nil
}

// link points link at target, remembering what it pointed at before.
// Anything at link other than a symlink is left alone.
func (tx *transaction) link(target, link string) error {
	previous := ""
	if info, err := tx.fs.Lstat(link); err == nil {
		if info.Mode()&os.ModeSymlink == 0 {
			return errors.SymlinkFailed(fmt.Errorf("%s exists and is not a symlink", link), link, target)
		}
		if previous, err = paths.LinkTarget(tx.fs, link); err != nil {
			return err
		}
	}

	if err := paths.ReplaceSymlink(tx.fs, target, link); err != nil {
		return err
	}
	tx.undo = append(tx.undo, func() error {
		if previous == "" {
			return tx.fs.Remove(link)
		}
		return paths.ReplaceSymlink(tx.fs, previous, link)
	})
	return nil
}

// unlink removes the symlink at link; rollback restores it
func (tx *transaction) unlink(link string) error {
	previous, err := paths.LinkTarget(tx.fs, link)
	if err != nil {
		return err
	}
	if err := tx.fs.Remove(link); err != nil {
		return errors.FromFS(err, link)
	}
	tx.undo = append(tx.undo, func() error {
		return paths.ReplaceSymlink(tx.fs, previous, link)
	})
	return nil
}

// rollback undoes every recorded change, newest first. Failures are
// logged and do not stop the remaining steps.
func (tx *transaction) rollback() {
	for i := len(tx.undo) - 1; i >= 0; i-- {
		if err := tx.undo[i](); err != nil && !os.IsNotExist(err) {
			tx.logger.Warn().Err(err).Msg("rollback step failed")
		}
	}
	tx.undo = nil
}

// removeIfEmpty removes dir when it holds no entries
func removeIfEmpty(fs types.FS, dir string) error {
	entries, err := fs.ReadDir(dir)
	if err != nil {
		return err
	}
	if len(entries) > 0 {
		return nil
	}
	return fs.Remove(dir)
}

//go:build unix

package cli

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/arthur-debert/kegs/pkg/errors"
)

// execCommand replaces the current process with path. args[0] becomes
// the program name the command sees; a pinned name is reduced to the
// binary's own name.
func execCommand(_ *cobra.Command, path string, args []string) error {
	argv := append([]string{filepath.Base(path)}, args[1:]...)
	if err := unix.Exec(path, argv, os.Environ()); err != nil {
		return errors.Wrapf(err, errors.ErrInternal, "cannot execute %s", path).WithDetail("path", path)
	}
	return nil
}

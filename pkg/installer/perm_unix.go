//go:build unix

package installer

import (
	"github.com/arthur-debert/kegs/pkg/errors"
	"golang.org/x/sys/unix"
)

// probeWritable fails when the current user cannot create entries in
// dir. Paths the kernel cannot see, such as those of an in-memory
// filesystem, pass.
func probeWritable(dir string) error {
	switch err := unix.Access(dir, unix.W_OK); err {
	case unix.EACCES, unix.EPERM, unix.EROFS:
		return errors.InsufficientPermissions(err, dir)
	default:
		return nil
	}
}

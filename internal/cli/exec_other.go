//go:build !unix

package cli

import (
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/kegs/pkg/errors"
)

// execCommand runs path as a child process and mirrors its exit status
func execCommand(cmd *cobra.Command, path string, args []string) error {
	child := exec.CommandContext(cmd.Context(), path, args[1:]...)
	child.Stdin, child.Stdout, child.Stderr = os.Stdin, os.Stdout, os.Stderr
	if err := child.Run(); err != nil {
		if exit, ok := err.(*exec.ExitError); ok {
			os.Exit(exit.ExitCode())
		}
		return errors.Wrapf(err, errors.ErrInternal, "cannot run %s", path).WithDetail("path", path)
	}
	return nil
}

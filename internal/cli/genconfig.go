package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/kegs/pkg/config"
	"github.com/arthur-debert/kegs/pkg/errors"
)

func newGenConfigCmd(opts *globalOptions) *cobra.Command {
	var write bool

	cmd := &cobra.Command{
		Use:     "gen-config",
		Short:   MsgGenConfigShort,
		Long:    MsgGenConfigLong,
		Example: MsgGenConfigExample,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			content := config.DefaultConfigContent()
			if !write {
				_, err := fmt.Fprint(cmd.OutOrStdout(), content)
				return err
			}

			path := opts.configFile
			if path == "" {
				path = config.UserConfigPath()
			}
			if _, err := os.Stat(path); err == nil {
				return errors.Newf(errors.ErrInvalidInput, "%s already exists", path).WithDetail("path", path)
			}
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return errors.FromFS(err, filepath.Dir(path))
			}
			if err := os.WriteFile(path, []byte(content), 0644); err != nil {
				return errors.FromFS(err, path)
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), MsgConfigWrittenFmt, path)
			return err
		},
	}

	cmd.Flags().BoolVarP(&write, "write", "w", false, "Write the config file instead of printing it")
	return cmd
}

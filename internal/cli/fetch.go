package cli

import (
	"github.com/spf13/cobra"

	"github.com/arthur-debert/kegs/pkg/fetch"
	"github.com/arthur-debert/kegs/pkg/paths"
)

func newFetchCmd(opts *globalOptions) *cobra.Command {
	var digest string

	cmd := &cobra.Command{
		Use:   "fetch <url> <destination>",
		Short: MsgFetchShort,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(cmd, opts)
			if err != nil {
				return err
			}
			dest, err := paths.NormalizePath(args[1])
			if err != nil {
				return err
			}
			req, err := fetch.NewRequest(args[0], dest, digest)
			if err != nil {
				return err
			}
			// stage next to the destination so the final rename stays on
			// one filesystem
			f := fetch.New(fetch.OptionsFromConfig(e.cfg, ""), e.fs)
			if err := f.Fetch(cmd.Context(), req, e.printer.FetchObserver(args[0])); err != nil {
				return err
			}
			e.printer.Message(MsgFetchedFormat, dest)
			return nil
		},
	}

	cmd.Flags().StringVar(&digest, "sha256", "", "Expected digest, as hex or algorithm:hex (sha256 or blake3)")
	return cmd
}

func newCacheCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: MsgCacheShort,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: MsgCacheClear,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(cmd, opts)
			if err != nil {
				return err
			}
			c, err := e.cache()
			if err != nil || c == nil {
				return err
			}
			if err := c.Clear(); err != nil {
				return err
			}
			e.printer.Success(MsgCacheCleared)
			return nil
		},
	})
	return cmd
}

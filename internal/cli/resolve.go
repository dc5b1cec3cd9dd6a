package cli

import (
	"github.com/spf13/cobra"

	"github.com/arthur-debert/kegs/pkg/logging"
)

func newWhichCmd(opts *globalOptions) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:     "which <command[@version]>",
		Short:   MsgWhichShort,
		Long:    MsgWhichLong,
		GroupID: "resolve",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(cmd, opts)
			if err != nil {
				return err
			}
			if all {
				return e.printer.Candidates(e.paths.Candidates(args[0], e.cwd))
			}
			res, err := e.paths.Resolve(args[0], e.cwd)
			if err != nil {
				return err
			}
			return e.printer.Resolution(res)
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "List every location examined, in precedence order")
	return cmd
}

func newRunCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run <command[@version]> [args...]",
		Short:   MsgRunShort,
		Long:    MsgRunLong,
		GroupID: "resolve",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(cmd, opts)
			if err != nil {
				return err
			}
			res, err := e.paths.Resolve(args[0], e.cwd)
			if err != nil {
				return err
			}
			logger := logging.GetLogger("cli")
			logger.Debug().
				Str("command", args[0]).
				Str("path", res.Path).
				Str("source", string(res.Source)).
				Msg("running resolved command")
			return execCommand(cmd, res.Path, args)
		},
	}

	// everything after the command name belongs to it
	cmd.Flags().SetInterspersed(false)
	return cmd
}

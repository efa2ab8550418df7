package cli

import (
	"errors"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wpine215/a32nx/internal/a32nx"
	"github.com/wpine215/a32nx/internal/failures"
)

// NewFailuresCommand creates the failures command.
func NewFailuresCommand(rootOpts *RootOptions) *cobra.Command {
	var config string

	cmd := &cobra.Command{
		Use:   "failures",
		Short: "List failure code bindings",
		Long: `List the external failure codes a configuration accepts and the
failure type each one activates. Without --config the built-in A32NX table
is listed.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFailures(rootOpts, config, cmd)
		},
	}
	cmd.Flags().StringVar(&config, "config", "", "CUE configuration file or directory (default: built-in A32NX)")
	return cmd
}

func runFailures(opts *RootOptions, config string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	bindings := a32nx.FailureBindings()
	if config != "" {
		cfg, err := LoadConfig(config)
		if err != nil {
			var loadErr *LoadError
			if errors.As(err, &loadErr) {
				_ = formatter.Error(loadErr.Code, loadErr.Message, nil)
			}
			return WrapExitError(ExitCommandError, "failed to load configuration", err)
		}
		bindings = cfg.Failures
	}

	table, err := failures.NewTable(bindings)
	if err != nil {
		return WrapExitError(ExitFailure, "invalid failure table", err)
	}

	if formatter.JSON() {
		return formatter.Success(table.Bindings())
	}
	rows := make([][]string, 0, table.Len())
	for _, b := range table.Bindings() {
		rows = append(rows, []string{strconv.Itoa(b.Code), b.Type.String()})
	}
	return formatter.Table([]string{"CODE", "FAILURE"}, rows)
}

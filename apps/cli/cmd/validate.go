package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/qakit/packages/core/config"
	"github.com/abdul-hamid-achik/qakit/packages/core/env"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate a qakit config file",
		Long: `Validate a config file against the qakit schema without sending anything.
Without an argument the config file in the current directory is checked.

Examples:
  qakit validate
  qakit validate ci/qakit.yaml`,
		Annotations: map[string]string{skipSetup: "true"},
		Args: func(cmd *cobra.Command, args []string) error {
			return withExitCode(ExitUsageError, cobra.MaximumNArgs(1)(cmd, args))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			} else if path = config.FindConfig("."); path == "" {
				return withExitCode(ExitConfigError, fmt.Errorf("no config file found (looked for %v)", config.ConfigFilenames))
			}

			data, err := os.ReadFile(path)
			if err != nil {
				return withExitCode(ExitConfigError, err)
			}

			resolver := env.NewResolver()
			if missing := resolver.Unresolved(string(data)); len(missing) > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: unset variables in %s: %v\n", path, missing)
			}
			cfg, err := config.Parse(data, config.WithResolver(resolver))
			if err != nil {
				return withExitCode(ExitConfigError, fmt.Errorf("%s: %w", path, err))
			}

			if cfg.IsDefault() {
				fmt.Fprintf(cmd.OutOrStdout(), "Valid: %s (sets nothing beyond the defaults)\n", path)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Valid: %s\n", path)
			return nil
		},
	}
}

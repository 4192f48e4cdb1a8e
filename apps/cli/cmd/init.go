package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/qakit/packages/core/config"
	"github.com/abdul-hamid-achik/qakit/packages/output"
	"github.com/abdul-hamid-achik/qakit/packages/rabbitmq"
)

const envExample = `# Values here fill ${VAR} references in qakit.yaml.
# Variables already set in the environment take precedence.
API_TOKEN=
`

func newInitCmd() *cobra.Command {
	var (
		force bool
		dir   string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new qakit project",
		Long: `Initialize a new qakit project in the current directory.

This creates:
  - qakit.yaml    - Configuration file with an example endpoint and broker
  - .env.example  - Variables referenced by qakit.yaml

Examples:
  qakit init
  qakit init --force`,
		Annotations: map[string]string{skipSetup: "true"},
		Args:        exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			configFile := filepath.Join(dir, "qakit.yaml")
			envFile := filepath.Join(dir, ".env.example")

			if !force {
				for _, f := range []string{configFile, envFile} {
					if _, err := os.Stat(f); err == nil {
						return withExitCode(ExitUsageError, fmt.Errorf("file already exists: %s (use --force to overwrite)", f))
					}
				}
			}

			console := output.NewConsole(output.WithWriter(cmd.OutOrStdout()))

			cfg := config.DefaultConfig()
			cfg.DefaultEndpoint = "api"
			cfg.Endpoints = map[string]config.Endpoint{
				"api": {
					Host:    "localhost",
					Port:    8080,
					Scheme:  "http",
					Headers: map[string]string{"Authorization": "Bearer ${API_TOKEN:-}"},
				},
			}
			broker := rabbitmq.DefaultConfig("localhost")
			cfg.RabbitMQ = &broker

			if err := cfg.SaveConfig(configFile); err != nil {
				return fmt.Errorf("failed to create config file: %w", err)
			}
			console.Info("Created: %s", configFile)

			if err := os.WriteFile(envFile, []byte(envExample), 0644); err != nil {
				return fmt.Errorf("failed to create env file: %w", err)
			}
			console.Info("Created: %s", envFile)

			console.Info("\nqakit project initialized!")
			console.Info("Run 'qakit get /health' to send a request to the api endpoint.")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing files")
	cmd.Flags().StringVar(&dir, "dir", ".", "Directory to initialize")

	return cmd
}

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/abdul-hamid-achik/qakit/packages/core/config"
	"github.com/abdul-hamid-achik/qakit/packages/core/env"
	qhttp "github.com/abdul-hamid-achik/qakit/packages/http"
	"github.com/abdul-hamid-achik/qakit/packages/journal"
	"github.com/abdul-hamid-achik/qakit/packages/log"
	"github.com/abdul-hamid-achik/qakit/packages/output"
	"github.com/abdul-hamid-achik/qakit/packages/rabbitmq"
)

// skipSetup marks commands that run without config, logger or journal.
const skipSetup = "qakit/skip-setup"

var (
	version   = "dev"
	buildTime = "unknown"
)

// app is the state shared by every command of one invocation.
type app struct {
	configPath string
	envFiles   []string
	journal    string
	verbose    int
	noColor    bool
	output     string

	cfg     *config.Config
	logger  *logrus.Logger
	store   *journal.Store
	console *output.Console

	// Overridable collaborators.
	dialer    rabbitmq.Dialer
	transport qhttp.Transport
}

func newApp() *app {
	return &app{dialer: rabbitmq.DialAMQP}
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "qakit",
		Short: "HTTP and RabbitMQ client toolkit for test automation",
		Long: `qakit sends HTTP requests and RabbitMQ messages for test automation.

Every request is tagged with a correlation id and logged as an outbound
and inbound pair, optionally journaled to SQLite for later inspection.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[skipSetup] == "true" {
				return nil
			}
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", getEnvString("QAKIT_CONFIG", ""), "Config file layered over ./qakit.yaml when both exist (env: QAKIT_CONFIG)")
	flags.StringSliceVar(&a.envFiles, "env-file", splitList(getEnvString("QAKIT_ENV_FILE", "")), "Path to .env file(s) for ${VAR} expansion (env: QAKIT_ENV_FILE)")
	flags.StringVar(&a.journal, "journal", getEnvString("QAKIT_JOURNAL", ""), "SQLite journal for request/response pairs (env: QAKIT_JOURNAL)")
	flags.CountVarP(&a.verbose, "verbose", "v", "Verbose output (-v shows headers and exchange logs, -vv traces)")
	flags.BoolVar(&a.noColor, "no-color", getEnvBool("QAKIT_NO_COLOR", false), "Disable colored output (env: QAKIT_NO_COLOR)")
	flags.StringVarP(&a.output, "output", "o", getEnvString("QAKIT_OUTPUT", "console"), "Output format: console, json (env: QAKIT_OUTPUT)")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return withExitCode(ExitUsageError, err)
	})

	for _, method := range requestMethods {
		rootCmd.AddCommand(newRequestCmd(a, method))
	}
	rootCmd.AddCommand(newPublishCmd(a))
	rootCmd.AddCommand(newConsumeCmd(a))
	rootCmd.AddCommand(newBenchCmd(a))
	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())

	return rootCmd
}

func Execute(v, bt string) {
	version = v
	buildTime = bt

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, newApp(), os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func execute(ctx context.Context, a *app, args []string, stdout, stderr io.Writer) int {
	rootCmd := newRootCmd(a)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		_ = a.teardown()
		output.NewConsole(output.WithWriter(stderr), output.WithNoColor(a.noColor)).Error("%v", err)
	}
	return exitCode(err)
}

// setup loads .env files and the config file, then builds the logger,
// journal and console for the command about to run.
func (a *app) setup(cmd *cobra.Command) error {
	if a.output != "console" && a.output != "json" {
		return withExitCode(ExitUsageError, fmt.Errorf("unknown output format %q (use console or json)", a.output))
	}

	vars, err := env.LoadFiles(a.envFiles...)
	if err != nil {
		return withExitCode(ExitConfigError, err)
	}

	var warnings []string
	resolver := env.NewResolver()
	resolver.SetVariables(vars)
	resolver.SetWarnFunc(func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	})

	cfg, err := config.LoadLayered(".", a.configPath, config.WithResolver(resolver))
	if err != nil {
		return withExitCode(ExitConfigError, fmt.Errorf("loading config: %w", err))
	}
	a.cfg = cfg

	logCfg := log.ApplyEnv(&log.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cmd.ErrOrStderr(),
	})
	switch {
	case a.verbose > 1:
		logCfg.Level = "trace"
	case a.verbose == 1:
		logCfg.Level = "debug"
	}
	a.logger = log.New(logCfg)
	for _, w := range warnings {
		a.logger.Warn(w)
	}

	journalPath := a.journal
	if journalPath == "" {
		journalPath = cfg.Journal
	}
	if journalPath != "" {
		store, err := journal.Open(journalPath)
		if err != nil {
			return withExitCode(ExitConfigError, err)
		}
		journal.Attach(a.logger, store)
		a.store = store
	}

	a.console = output.NewConsole(
		output.WithWriter(cmd.OutOrStdout()),
		output.WithVerbose(a.verbose > 0),
		output.WithNoColor(a.noColor || cfg.GetNoColor()),
	)

	return nil
}

func (a *app) teardown() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}

func (a *app) jsonOutput() bool {
	return a.output == "json"
}

// exactArgs is cobra.ExactArgs reported as a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		return withExitCode(ExitUsageError, cobra.ExactArgs(n)(cmd, args))
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// endpointFlags are shared by the request and bench commands.
type endpointFlags struct {
	endpoint string
	host     string
	port     int
	scheme   string
	headers  []string
	proxy    string
}

func (f *endpointFlags) bind(flags *pflag.FlagSet) {
	flags.StringVarP(&f.endpoint, "endpoint", "e", getEnvString("QAKIT_ENDPOINT", ""), "Named endpoint from the config file (env: QAKIT_ENDPOINT)")
	flags.StringVar(&f.host, "host", getEnvString("QAKIT_HOST", ""), "Target host, overrides the endpoint's (env: QAKIT_HOST)")
	flags.IntVar(&f.port, "port", getEnvInt("QAKIT_PORT", 0), "Target port (default 80, or 443 for https) (env: QAKIT_PORT)")
	flags.StringVar(&f.scheme, "scheme", getEnvString("QAKIT_SCHEME", ""), "http or https (env: QAKIT_SCHEME)")
	flags.StringArrayVarP(&f.headers, "header", "H", nil, "Extra header \"Name: value\", merged onto the endpoint headers (repeatable)")
	flags.StringVar(&f.proxy, "proxy", getEnvString("QAKIT_PROXY", ""), "Send requests through this HTTP proxy URL (env: QAKIT_PROXY)")
}

// clientOptions returns the client options for mode: the logger, plus a
// transport when one was injected or --proxy is set.
func (a *app) clientOptions(mode qhttp.Mode, f *endpointFlags) []qhttp.ClientOption {
	opts := []qhttp.ClientOption{qhttp.WithLogger(a.logger)}
	switch {
	case a.transport != nil:
		opts = append(opts, qhttp.WithTransport(a.transport))
	case f.proxy != "" && mode == qhttp.NonBlocking:
		opts = append(opts, qhttp.WithTransport(qhttp.NewScopedTransport(qhttp.WithProxy(f.proxy))))
	case f.proxy != "":
		opts = append(opts, qhttp.WithTransport(qhttp.NewPooledTransport(qhttp.WithProxy(f.proxy))))
	}
	return opts
}

// resolve builds the endpoint from the config file and flag overrides.
func (f *endpointFlags) resolve(cfg *config.Config) (*qhttp.Endpoint, error) {
	var ep config.Endpoint
	if f.endpoint != "" || (f.host == "" && len(cfg.Endpoints) > 0) {
		named, err := cfg.Endpoint(f.endpoint)
		if err != nil {
			return nil, withExitCode(ExitConfigError, err)
		}
		ep = named
	}

	if f.host != "" {
		ep.Host = f.host
	}
	if f.port != 0 {
		ep.Port = f.port
	}
	if f.scheme != "" {
		ep.Scheme = f.scheme
	}
	if ep.Host == "" {
		return nil, withExitCode(ExitUsageError, fmt.Errorf("no host: pass --host or configure an endpoint"))
	}
	if ep.Port == 0 && ep.Scheme == "https" {
		ep.Port = 443
	}

	headers := qhttp.DefaultHeaders()
	for name, value := range ep.Headers {
		headers.Set(name, value)
	}
	for _, raw := range f.headers {
		name, value, ok := strings.Cut(raw, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, withExitCode(ExitUsageError, fmt.Errorf("invalid header %q (want \"Name: value\")", raw))
		}
		headers.Set(strings.TrimSpace(name), strings.TrimSpace(value))
	}

	opts := []qhttp.EndpointOption{qhttp.WithDefaultHeaders(headers)}
	if ep.Port != 0 {
		opts = append(opts, qhttp.WithPort(ep.Port))
	}
	if ep.Scheme != "" {
		opts = append(opts, qhttp.WithScheme(ep.Scheme))
	}
	return qhttp.NewEndpoint(ep.Host, opts...), nil
}

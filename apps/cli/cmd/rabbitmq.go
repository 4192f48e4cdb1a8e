package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/abdul-hamid-achik/qakit/packages/output"
	"github.com/abdul-hamid-achik/qakit/packages/rabbitmq"
)

// brokerFlags override the rabbitmq section of the config file.
type brokerFlags struct {
	host     string
	port     int
	vhost    string
	username string
	password string
	timeout  time.Duration
}

func (f *brokerFlags) bind(flags *pflag.FlagSet) {
	flags.StringVar(&f.host, "host", getEnvString("QAKIT_RABBITMQ_HOST", ""), "Broker host (env: QAKIT_RABBITMQ_HOST)")
	flags.IntVar(&f.port, "port", getEnvInt("QAKIT_RABBITMQ_PORT", 0), "Broker port (default 5672) (env: QAKIT_RABBITMQ_PORT)")
	flags.StringVar(&f.vhost, "vhost", getEnvString("QAKIT_RABBITMQ_VHOST", ""), "Virtual host (default /) (env: QAKIT_RABBITMQ_VHOST)")
	flags.StringVar(&f.username, "username", getEnvString("QAKIT_RABBITMQ_USERNAME", ""), "Username (default guest) (env: QAKIT_RABBITMQ_USERNAME)")
	flags.StringVar(&f.password, "password", getEnvString("QAKIT_RABBITMQ_PASSWORD", ""), "Password (default guest) (env: QAKIT_RABBITMQ_PASSWORD)")
	flags.DurationVar(&f.timeout, "connect-timeout", getEnvDuration("QAKIT_RABBITMQ_TIMEOUT", 0), "Connection timeout (default 30s) (env: QAKIT_RABBITMQ_TIMEOUT)")
}

// connect opens a broker connection from the config file and flag
// overrides. Zero fields fall back to the rabbitmq package defaults.
func (a *app) connect(f *brokerFlags, opts ...rabbitmq.Option) (*rabbitmq.Client, error) {
	var cfg rabbitmq.Config
	if a.cfg.RabbitMQ != nil {
		cfg = *a.cfg.RabbitMQ
	}
	if f.host != "" {
		cfg.Host = f.host
	}
	if f.port != 0 {
		cfg.Port = f.port
	}
	if f.vhost != "" {
		cfg.VirtualHost = f.vhost
	}
	if f.username != "" {
		cfg.Username = f.username
	}
	if f.password != "" {
		cfg.Password = f.password
	}
	if f.timeout > 0 {
		cfg.ConnectTimeout = f.timeout
	}
	if cfg.Host == "" {
		return nil, withExitCode(ExitUsageError, fmt.Errorf("no broker host: pass --host or configure rabbitmq.host"))
	}

	opts = append([]rabbitmq.Option{rabbitmq.WithDialer(a.dialer), rabbitmq.WithLogger(a.logger)}, opts...)
	client, err := rabbitmq.New(cfg, opts...)
	if err != nil {
		return nil, withExitCode(ExitNetworkError, err)
	}
	return client, nil
}

func newPublishCmd(a *app) *cobra.Command {
	var (
		broker      brokerFlags
		contentType string
		transient   bool
	)

	cmd := &cobra.Command{
		Use:   "publish <queue> <message>",
		Short: "Publish a message to a queue",
		Long: `Publish one message to a queue through the default exchange.

The message is sent on a channel opened for this publish only. Messages are
persistent unless --transient is given. A message of @file is read from file.

Examples:
  qakit publish orders '{"id":1}' --content-type application/json
  qakit publish events @event.json --host rabbit.local --transient`,
		Args: exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readData(args[1])
			if err != nil {
				return withExitCode(ExitUsageError, err)
			}

			client, err := a.connect(&broker)
			if err != nil {
				return err
			}
			defer client.Close()

			mode := rabbitmq.Persistent
			if transient {
				mode = rabbitmq.Transient
			}

			queue := args[0]
			err = client.Publish(cmd.Context(), queue, body,
				rabbitmq.WithContentType(contentType),
				rabbitmq.WithDeliveryMode(mode),
			)
			if err != nil {
				return withExitCode(ExitNetworkError, err)
			}

			if a.jsonOutput() {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"queue":        queue,
					"bytes":        len(body),
					"deliveryMode": mode.String(),
				})
			}
			a.console.Published(queue, len(body), mode)
			return nil
		},
	}

	broker.bind(cmd.Flags())
	cmd.Flags().StringVar(&contentType, "content-type", rabbitmq.DefaultContentType, "Content type property")
	cmd.Flags().BoolVar(&transient, "transient", false, "Publish with transient delivery mode")

	return cmd
}

func newConsumeCmd(a *app) *cobra.Command {
	var (
		broker brokerFlags
		count  int
		ack    bool
	)

	cmd := &cobra.Command{
		Use:   "consume <queue>",
		Short: "Fetch messages from a queue",
		Long: `Fetch up to --count messages from a queue without waiting.

Fetched messages stay unacknowledged and are redelivered once the connection
closes, unless --ack is given.

Examples:
  qakit consume orders
  qakit consume orders --count 10 --ack -o json`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return withExitCode(ExitUsageError, fmt.Errorf("--count must be at least 1"))
			}

			client, err := a.connect(&broker, rabbitmq.WithAutoAck(ack))
			if err != nil {
				return err
			}
			defer client.Close()

			ch, err := client.Channel()
			if err != nil {
				return withExitCode(ExitNetworkError, err)
			}
			defer ch.Close()

			queue := args[0]
			for i := 0; i < count; i++ {
				d, err := client.Get(ch, queue)
				if err != nil {
					return withExitCode(ExitNetworkError, err)
				}
				if d == nil && i > 0 {
					break
				}

				if a.jsonOutput() {
					if err := output.WriteDeliveryJSON(cmd.OutOrStdout(), queue, d); err != nil {
						return err
					}
				} else {
					a.console.Delivery(queue, d)
				}
				if d == nil {
					break
				}
			}
			return nil
		},
	}

	broker.bind(cmd.Flags())
	cmd.Flags().IntVarP(&count, "count", "n", 1, "Maximum number of messages to fetch")
	cmd.Flags().BoolVar(&ack, "ack", false, "Acknowledge messages as they are fetched")

	return cmd
}

package cmd

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	qhttp "github.com/abdul-hamid-achik/qakit/packages/http"
	"github.com/abdul-hamid-achik/qakit/packages/output"
)

var requestMethods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
}

type requestFlags struct {
	endpointFlags

	query       string
	data        string
	requestID   string
	noRedirects bool
	timeout     time.Duration
	async       bool
	expect      []int
	selectPath  string
}

func newRequestCmd(a *app, method string) *cobra.Command {
	f := &requestFlags{}
	name := strings.ToLower(method)

	cmd := &cobra.Command{
		Use:   name + " <path>",
		Short: fmt.Sprintf("Send a %s request", method),
		Long: fmt.Sprintf(`Send one %[1]s request to an endpoint and print the response.

The blocking client is used by default and prints headers and cookies with -v.
--async uses the non-blocking client, whose responses carry only status and body.

Examples:
  qakit %[2]s /health --host localhost --port 8080
  qakit %[2]s /users -e api --query "page=1&size=10" --expect 200
  qakit %[2]s /users -e api -d '{"name":"ada"}' --request-id auto -v
  qakit %[2]s /users/1 -e api --select name`, method, name),
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runRequest(cmd, method, args[0], f)
		},
	}

	f.bind(cmd.Flags())
	cmd.Flags().StringVarP(&f.query, "query", "q", "", "Raw query string, sent as given")
	cmd.Flags().StringVarP(&f.data, "data", "d", "", "Request body, or @file to read it from a file")
	cmd.Flags().StringVar(&f.requestID, "request-id", getEnvString("QAKIT_REQUEST_ID", ""), "Correlation id for the log lines; \"auto\" generates a UUID (env: QAKIT_REQUEST_ID)")
	cmd.Flags().BoolVar(&f.noRedirects, "no-redirects", getEnvBool("QAKIT_NO_REDIRECTS", false), "Return 3xx responses instead of following them (env: QAKIT_NO_REDIRECTS)")
	cmd.Flags().DurationVar(&f.timeout, "timeout", getEnvDuration("QAKIT_TIMEOUT", 0), "Request timeout, e.g. 5s (default from config) (env: QAKIT_TIMEOUT)")
	cmd.Flags().BoolVar(&f.async, "async", getEnvBool("QAKIT_ASYNC", false), "Use the non-blocking client (env: QAKIT_ASYNC)")
	cmd.Flags().IntSliceVar(&f.expect, "expect", nil, "Fail with exit code 1 unless the status is one of these")
	cmd.Flags().StringVarP(&f.selectPath, "select", "s", "", "Print only this gjson path of the body")

	return cmd
}

func (a *app) runRequest(cmd *cobra.Command, method, path string, f *requestFlags) error {
	endpoint, err := f.resolve(a.cfg)
	if err != nil {
		return err
	}

	var opts []qhttp.RequestOption
	if f.query != "" {
		opts = append(opts, qhttp.WithQuery(f.query))
	}
	if f.data != "" {
		if method == http.MethodGet {
			a.logger.Warn("GET requests never carry a body; --data ignored")
		} else {
			body, err := readData(f.data)
			if err != nil {
				return withExitCode(ExitUsageError, err)
			}
			opts = append(opts, qhttp.WithBody(body))
		}
	}

	correlationID := f.requestID
	if correlationID == "auto" {
		correlationID = uuid.NewString()
	}
	if correlationID != "" {
		opts = append(opts, qhttp.WithCorrelationID(correlationID))
	}

	opts = append(opts, qhttp.WithFollowRedirects(a.cfg.GetFollowRedirects() && !f.noRedirects))

	timeout := f.timeout
	if timeout == 0 {
		timeout = a.cfg.Timeout
	}
	opts = append(opts, qhttp.WithTimeout(timeout))

	mode := qhttp.Blocking
	if f.async {
		mode = qhttp.NonBlocking
	}
	doer := qhttp.NewDoer(mode, endpoint, a.clientOptions(mode, &f.endpointFlags)...)

	url := qhttp.BuildURL(endpoint.Scheme(), endpoint.Host(), endpoint.Port(), path, f.query)

	start := time.Now()
	resp, err := doer.Do(cmd.Context(), method, path, opts...)
	if err != nil {
		return withExitCode(ExitNetworkError, fmt.Errorf("%s %s: %w", method, url, err))
	}
	elapsed := time.Since(start)

	switch {
	case f.selectPath != "":
		a.console.Value(resp.JSON(f.selectPath))
	case a.jsonOutput():
		if err := output.WriteResponseJSON(cmd.OutOrStdout(), method, url, resp, float64(elapsed.Microseconds())/1000); err != nil {
			return err
		}
	default:
		a.console.Response(method, url, resp, elapsed)
	}

	if len(f.expect) > 0 {
		return withExitCode(ExitFailure, qhttp.ExpectStatus(resp, f.expect...))
	}
	return nil
}

// readData returns s, or the contents of the file named after a leading @.
func readData(s string) ([]byte, error) {
	if !strings.HasPrefix(s, "@") {
		return []byte(s), nil
	}
	data, err := os.ReadFile(s[1:])
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	return data, nil
}

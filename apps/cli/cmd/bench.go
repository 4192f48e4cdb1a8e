package cmd

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	qhttp "github.com/abdul-hamid-achik/qakit/packages/http"
	"github.com/abdul-hamid-achik/qakit/packages/load"
	"github.com/abdul-hamid-achik/qakit/packages/output"
)

type benchFlags struct {
	endpointFlags

	method      string
	query       string
	data        string
	total       int
	concurrency int
	rate        float64
	timeout     time.Duration

	p95          time.Duration
	p99          time.Duration
	maxLatency   time.Duration
	maxErrorRate float64
	minRPS       float64
}

func newBenchCmd(a *app) *cobra.Command {
	f := &benchFlags{}

	cmd := &cobra.Command{
		Use:   "bench <path>",
		Short: "Fan one request out over many concurrent calls",
		Long: `Send the same request --total times through the non-blocking client,
with at most --concurrency calls in flight, optionally paced to --rate calls
per second, and print the latency and status code distribution.

Thresholds turn the run into a check: any failed threshold exits with 1.

Examples:
  qakit bench /health -e api -n 500 -c 20
  qakit bench /orders -e api -X POST -d @order.json --rate 50 --p95 200ms
  qakit bench /search -e api -q "term=x" --max-error-rate 0.01 -o json`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBench(cmd, args[0], f)
		},
	}

	f.bind(cmd.Flags())
	cmd.Flags().StringVarP(&f.method, "method", "X", http.MethodGet, "HTTP method")
	cmd.Flags().StringVarP(&f.query, "query", "q", "", "Raw query string, sent as given")
	cmd.Flags().StringVarP(&f.data, "data", "d", "", "Request body, or @file to read it from a file")
	cmd.Flags().IntVarP(&f.total, "total", "n", getEnvInt("QAKIT_BENCH_TOTAL", 0), "Number of calls (default from config) (env: QAKIT_BENCH_TOTAL)")
	cmd.Flags().IntVarP(&f.concurrency, "concurrency", "c", getEnvInt("QAKIT_BENCH_CONCURRENCY", 0), "Maximum calls in flight (default from config) (env: QAKIT_BENCH_CONCURRENCY)")
	cmd.Flags().Float64VarP(&f.rate, "rate", "r", getEnvFloat("QAKIT_BENCH_RATE", 0), "Calls per second, 0 for unpaced (env: QAKIT_BENCH_RATE)")
	cmd.Flags().DurationVar(&f.timeout, "timeout", getEnvDuration("QAKIT_TIMEOUT", 0), "Per-call timeout (default from config) (env: QAKIT_TIMEOUT)")
	cmd.Flags().DurationVar(&f.p95, "p95", 0, "Fail if p95 latency is above this")
	cmd.Flags().DurationVar(&f.p99, "p99", 0, "Fail if p99 latency is above this")
	cmd.Flags().DurationVar(&f.maxLatency, "max-latency", 0, "Fail if any call took longer than this")
	cmd.Flags().Float64Var(&f.maxErrorRate, "max-error-rate", 0, "Fail if the error rate (0-1) is above this")
	cmd.Flags().Float64Var(&f.minRPS, "min-rps", 0, "Fail if throughput is below this many calls per second")

	return cmd
}

func (a *app) runBench(cmd *cobra.Command, path string, f *benchFlags) error {
	method := strings.ToUpper(f.method)
	endpoint, err := f.resolve(a.cfg)
	if err != nil {
		return err
	}

	var opts []qhttp.RequestOption
	if f.query != "" {
		opts = append(opts, qhttp.WithQuery(f.query))
	}
	if f.data != "" && method != http.MethodGet {
		body, err := readData(f.data)
		if err != nil {
			return withExitCode(ExitUsageError, err)
		}
		opts = append(opts, qhttp.WithBody(body))
	}
	timeout := f.timeout
	if timeout == 0 {
		timeout = a.cfg.Timeout
	}
	opts = append(opts,
		qhttp.WithTimeout(timeout),
		qhttp.WithFollowRedirects(a.cfg.GetFollowRedirects()),
	)

	runner := &load.Runner{
		Rate:        firstPositiveFloat(f.rate, a.cfg.Bench.Rate),
		Concurrency: firstPositive(f.concurrency, a.cfg.Bench.Concurrency),
		Total:       firstPositive(f.total, a.cfg.Bench.Total),
		Logger:      a.logger,
	}
	runner.Client = qhttp.NewAsyncClient(endpoint, a.clientOptions(qhttp.NonBlocking, &f.endpointFlags)...)

	url := qhttp.BuildURL(endpoint.Scheme(), endpoint.Host(), endpoint.Port(), path, f.query)
	if !a.jsonOutput() {
		a.console.BenchHeader(method, url, runner)
	}

	summary, err := runner.Run(cmd.Context(), method, path, opts...)
	if err != nil && summary == nil {
		return err
	}
	if err != nil {
		a.logger.WithError(err).Warn("Bench interrupted")
	}

	results := summary.Evaluate(load.Thresholds{
		P95:        f.p95,
		P99:        f.p99,
		MaxLatency: f.maxLatency,
		ErrorRate:  f.maxErrorRate,
		MinRPS:     f.minRPS,
	})

	if a.jsonOutput() {
		if err := output.WriteBenchJSON(cmd.OutOrStdout(), summary, results); err != nil {
			return err
		}
	} else {
		a.console.BenchSummary(summary, results)
	}

	if !load.AllPassed(results) {
		return withExitCode(ExitFailure, fmt.Errorf("bench thresholds failed"))
	}
	return nil
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

func firstPositiveFloat(values ...float64) float64 {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

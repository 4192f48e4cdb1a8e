package output

import (
	"fmt"
	"strings"

	"github.com/abdul-hamid-achik/qakit/packages/load"
)

// BenchHeader prints what is about to run.
func (c *Console) BenchHeader(method, url string, r *load.Runner) {
	fmt.Fprintln(c.writer)
	c.cyan.Fprintf(c.writer, "Bench: %s %s\n", method, url)

	details := []string{fmt.Sprintf("Calls: %d", r.Total), fmt.Sprintf("Concurrency: %d", r.Concurrency)}
	if r.Rate > 0 {
		details = append(details, fmt.Sprintf("Target: %.0f req/s", r.Rate))
	}
	fmt.Fprintf(c.writer, "%s\n", strings.Join(details, " | "))
	fmt.Fprintln(c.writer)
}

// BenchSummary prints the final summary
func (c *Console) BenchSummary(summary *load.Summary, thresholdResults []load.ThresholdResult) {
	c.bold.Fprintln(c.writer, "BENCH SUMMARY")
	fmt.Fprintln(c.writer, strings.Repeat("─", 40))

	fmt.Fprintf(c.writer, "Duration:   %s\n", formatDuration(summary.Duration))
	fmt.Fprintf(c.writer, "Total:      ")
	c.bold.Fprintf(c.writer, "%s", formatNumber(summary.Total))
	fmt.Fprintf(c.writer, " requests (%.1f req/s)\n", summary.RPS)

	fmt.Fprintf(c.writer, "Success:    ")
	c.green.Fprintf(c.writer, "%s\n", formatNumber(summary.SuccessCount))

	fmt.Fprintf(c.writer, "Failed:     ")
	if summary.ErrorCount > 0 {
		c.red.Fprintf(c.writer, "%s", formatNumber(summary.ErrorCount))
	} else {
		fmt.Fprintf(c.writer, "%s", formatNumber(summary.ErrorCount))
	}
	fmt.Fprintf(c.writer, " (%.1f%%)\n", summary.ErrorRate*100)

	if summary.TimeoutCount > 0 {
		fmt.Fprintf(c.writer, "Timeouts:   ")
		c.yellow.Fprintf(c.writer, "%s\n", formatNumber(summary.TimeoutCount))
	}

	if codes := summary.StatusCodes(); len(codes) > 0 {
		fmt.Fprintln(c.writer)
		c.bold.Fprintln(c.writer, "STATUS CODES")
		for _, code := range codes {
			fmt.Fprint(c.writer, "  ")
			c.statusColor(code).Fprintf(c.writer, "%d", code)
			fmt.Fprintf(c.writer, ": %s\n", formatNumber(summary.Statuses[code]))
		}
	}

	fmt.Fprintln(c.writer)
	c.bold.Fprintln(c.writer, "LATENCY (ms)")
	fmt.Fprintf(c.writer, "  p50: %-6s | p95: %-6s | p99: %-6s | max: %s\n",
		formatLatencyMs(summary.P50),
		formatLatencyMs(summary.P95),
		formatLatencyMs(summary.P99),
		formatLatencyMs(summary.Max))
	fmt.Fprintf(c.writer, "  min: %-6s | mean: %-5s | stddev: %s\n",
		formatLatencyMs(summary.Min),
		formatLatencyMs(summary.Mean),
		formatLatencyMs(summary.StdDev))

	if len(thresholdResults) > 0 {
		fmt.Fprintln(c.writer)
		c.bold.Fprintln(c.writer, "THRESHOLDS")
		for _, tr := range thresholdResults {
			if tr.Passed {
				c.green.Fprintf(c.writer, "  ✓ ")
			} else {
				c.red.Fprintf(c.writer, "  ✗ ")
			}
			fmt.Fprintf(c.writer, "%s %s    (actual: %s)\n", tr.Name, tr.Expected, tr.Actual)
		}

		fmt.Fprintln(c.writer)
		if load.AllPassed(thresholdResults) {
			c.green.Fprintln(c.writer, "All thresholds passed!")
		} else {
			c.red.Fprintln(c.writer, "Some thresholds failed!")
		}
	}

	fmt.Fprintln(c.writer)
}

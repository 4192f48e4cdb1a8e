package load

import (
	"strconv"
	"time"
)

// Thresholds are pass/fail criteria for a run. Zero fields are not checked.
type Thresholds struct {
	P95        time.Duration
	P99        time.Duration
	MaxLatency time.Duration
	ErrorRate  float64
	MinRPS     float64
}

type ThresholdResult struct {
	Name     string
	Passed   bool
	Expected string
	Actual   string
}

// Evaluate checks s against t, in field order. Latency limits are upper
// bounds inclusive of the limit; MinRPS is a lower bound.
func (s *Summary) Evaluate(t Thresholds) []ThresholdResult {
	latency := func(name string, limit, actual time.Duration) *ThresholdResult {
		if limit <= 0 {
			return nil
		}
		return &ThresholdResult{Name: name, Passed: actual <= limit, Expected: "<= " + limit.String(), Actual: actual.String()}
	}

	checks := []*ThresholdResult{
		latency("p95", t.P95, s.P95),
		latency("p99", t.P99, s.P99),
		latency("max latency", t.MaxLatency, s.Max),
	}
	if t.ErrorRate > 0 {
		checks = append(checks, &ThresholdResult{
			Name:     "error rate",
			Passed:   s.ErrorRate <= t.ErrorRate,
			Expected: "<= " + formatPercent(t.ErrorRate),
			Actual:   formatPercent(s.ErrorRate),
		})
	}
	if t.MinRPS > 0 {
		checks = append(checks, &ThresholdResult{
			Name:     "min RPS",
			Passed:   s.RPS >= t.MinRPS,
			Expected: ">= " + formatFloat(t.MinRPS),
			Actual:   formatFloat(s.RPS),
		})
	}

	var results []ThresholdResult
	for _, c := range checks {
		if c != nil {
			results = append(results, *c)
		}
	}
	return results
}

// AllPassed reports whether every result passed.
func AllPassed(results []ThresholdResult) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}

func formatPercent(f float64) string {
	return formatFloat(f*100) + "%"
}

func formatFloat(f float64) string {
	if f == float64(int(f)) {
		return strconv.Itoa(int(f))
	}
	return strconv.FormatFloat(f, 'f', 2, 64)
}

package load

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	qhttp "github.com/abdul-hamid-achik/qakit/packages/http"
	"github.com/abdul-hamid-achik/qakit/packages/log"
)

const DefaultConcurrency = 10

var ErrNoClient = errors.New("load: runner has no client")

// Runner issues Total identical calls through Client.
type Runner struct {
	Client qhttp.Doer

	// Rate caps calls per second. Zero means unpaced.
	Rate float64

	// Concurrency bounds calls in flight. Default: 10
	Concurrency int

	// Total is the number of calls. Default: 1
	Total int

	Logger logrus.FieldLogger
}

// Run issues the calls and waits for all of them. When ctx ends early the
// summary of the calls made so far is returned along with ctx's error.
func (r *Runner) Run(ctx context.Context, method, path string, opts ...qhttp.RequestOption) (*Summary, error) {
	if r.Client == nil {
		return nil, ErrNoClient
	}

	total := r.Total
	if total < 1 {
		total = 1
	}
	concurrency := r.Concurrency
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	logger := r.Logger
	if logger == nil {
		logger = log.Nop()
	}

	var limiter *rate.Limiter
	if r.Rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(r.Rate), 1)
	}
	sem := make(chan struct{}, concurrency)

	logger.WithFields(logrus.Fields{
		"total":       total,
		"concurrency": concurrency,
		"rate":        r.Rate,
	}).Debugf("Starting bench %s %s", method, path)

	metrics := NewMetrics()
	metrics.Start()

	var wg sync.WaitGroup
	var runErr error

loop:
	for i := 0; i < total; i++ {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				runErr = err
				break
			}
		}

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			runErr = ctx.Err()
			break loop
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			start := time.Now()
			resp, err := r.Client.Do(ctx, method, path, opts...)
			metrics.Record(resp, time.Since(start), err)
		}()
	}

	wg.Wait()
	metrics.Stop()

	summary := metrics.Summary()
	logger.WithFields(logrus.Fields{
		"total":  summary.Total,
		"errors": summary.ErrorCount,
		"p95":    summary.P95,
	}).Debug("Bench finished")

	return summary, runErr
}

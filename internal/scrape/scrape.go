// Package scrape holds the pieces of the scraping contract the service
// shares with its external scrapers: the stabilization combinator used to
// wait out still-rendering pages, and the failure taxonomy every scrape
// run is classified into.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/capecast/ferry-risk-service/internal/domain"
)

// StableOptions controls PollUntilStable.
type StableOptions struct {
	// MaxAttempts bounds the number of probes before giving up and
	// proceeding with whatever was last observed.
	MaxAttempts int
	// Interval is the fixed delay between probes.
	Interval time.Duration
	// StableReads is how many consecutive identical counts are required
	// before the content is considered settled.
	StableReads int
}

// DefaultStableOptions matches the scraper cadence: probe every two
// seconds, two matching reads in a row, give up after ten attempts.
func DefaultStableOptions() StableOptions {
	return StableOptions{MaxAttempts: 10, Interval: 2 * time.Second, StableReads: 2}
}

// PollUntilStable repeatedly probes a count (DOM rows, schedule entries)
// until it holds steady for StableReads consecutive reads. When attempts
// run out the last observed count is returned with stable=false; callers
// proceed with what they have rather than failing the cycle. A probe error
// or context cancellation aborts immediately.
func PollUntilStable(ctx context.Context, probe func(context.Context) (int, error), opts StableOptions) (count int, stable bool, err error) {
	if opts.MaxAttempts < 1 || opts.StableReads < 1 {
		return 0, false, fmt.Errorf("invalid stabilization options: attempts=%d stable=%d", opts.MaxAttempts, opts.StableReads)
	}

	var last int
	matched := 0
	for attempt := 0; attempt < opts.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return last, false, ctx.Err()
			case <-domain.Clock().After(opts.Interval):
			}
		}

		n, err := probe(ctx)
		if err != nil {
			return last, false, fmt.Errorf("stabilization probe: %w", err)
		}

		if attempt > 0 && n == last {
			matched++
		} else {
			matched = 1
		}
		last = n

		if matched >= opts.StableReads {
			return last, true, nil
		}
	}
	return last, false, nil
}

// FailureClass partitions scrape outcomes. Zero rows where rows always
// exist is its own, louder class: it usually means the page structure
// changed, not that the source was down.
type FailureClass string

const (
	FailureNone              FailureClass = ""
	FailureSourceUnavailable FailureClass = "source_unavailable"
	FailureZeroRows          FailureClass = "zero_row_regression"
)

// ErrZeroRows marks an extraction that succeeded but produced no rows.
var ErrZeroRows = errors.New("extraction produced zero rows")

// RunResult records the outcome of one scrape cycle for later inspection.
type RunResult struct {
	Scraper    string       `json:"scraper"`
	OperatorID string       `json:"operator_id"`
	Rows       int          `json:"rows"`
	Stable     bool         `json:"stable"`
	Class      FailureClass `json:"failure_class,omitempty"`
	Detail     string       `json:"detail,omitempty"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
}

// Classify assigns a failure class to a completed extraction. Any error is
// an availability failure, a clean run with zero rows is a regression, and
// everything else is a success.
func Classify(rows int, err error) FailureClass {
	switch {
	case errors.Is(err, ErrZeroRows):
		return FailureZeroRows
	case err != nil:
		return FailureSourceUnavailable
	case rows == 0:
		return FailureZeroRows
	default:
		return FailureNone
	}
}

// Failed reports whether the run produced usable rows.
func (r RunResult) Failed() bool {
	return r.Class != FailureNone
}

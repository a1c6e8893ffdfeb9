package scrape

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastOptions() StableOptions {
	return StableOptions{MaxAttempts: 10, Interval: time.Millisecond, StableReads: 2}
}

func TestPollUntilStable(t *testing.T) {
	t.Run("settles once two consecutive reads match", func(t *testing.T) {
		reads := []int{3, 7, 12, 12}
		i := 0
		probe := func(context.Context) (int, error) {
			n := reads[i]
			i++
			return n, nil
		}

		count, stable, err := PollUntilStable(context.Background(), probe, fastOptions())

		require.NoError(t, err)
		assert.True(t, stable)
		assert.Equal(t, 12, count)
		assert.Equal(t, 4, i)
	})

	t.Run("exhausted attempts return the last count unstable", func(t *testing.T) {
		n := 0
		probe := func(context.Context) (int, error) {
			n++
			return n, nil
		}
		opts := fastOptions()
		opts.MaxAttempts = 4

		count, stable, err := PollUntilStable(context.Background(), probe, opts)

		require.NoError(t, err)
		assert.False(t, stable)
		assert.Equal(t, 4, count)
	})

	t.Run("probe error aborts", func(t *testing.T) {
		probe := func(context.Context) (int, error) {
			return 0, errors.New("tab closed")
		}

		_, stable, err := PollUntilStable(context.Background(), probe, fastOptions())

		require.Error(t, err)
		assert.False(t, stable)
		assert.Contains(t, err.Error(), "stabilization probe")
	})

	t.Run("canceled context aborts between probes", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		probe := func(context.Context) (int, error) {
			cancel()
			return 5, nil
		}

		_, stable, err := PollUntilStable(ctx, probe, fastOptions())

		assert.False(t, stable)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("three stable reads required", func(t *testing.T) {
		reads := []int{8, 8, 5, 5, 5}
		i := 0
		probe := func(context.Context) (int, error) {
			n := reads[i]
			i++
			return n, nil
		}
		opts := fastOptions()
		opts.StableReads = 3

		count, stable, err := PollUntilStable(context.Background(), probe, opts)

		require.NoError(t, err)
		assert.True(t, stable)
		assert.Equal(t, 5, count)
		assert.Equal(t, 5, i)
	})

	t.Run("invalid options are rejected", func(t *testing.T) {
		probe := func(context.Context) (int, error) { return 1, nil }

		_, _, err := PollUntilStable(context.Background(), probe, StableOptions{})
		assert.Error(t, err)
	})
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		rows int
		err  error
		want FailureClass
	}{
		{"rows extracted cleanly", 14, nil, FailureNone},
		{"network error", 0, errors.New("request timeout"), FailureSourceUnavailable},
		{"explicit zero-row error", 0, ErrZeroRows, FailureZeroRows},
		{"clean run with zero rows", 0, nil, FailureZeroRows},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.rows, tc.err))
		})
	}
}

func TestRunResultFailed(t *testing.T) {
	assert.False(t, RunResult{Class: FailureNone}.Failed())
	assert.True(t, RunResult{Class: FailureZeroRows}.Failed())
	assert.True(t, RunResult{Class: FailureSourceUnavailable}.Failed())
}

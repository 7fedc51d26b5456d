package review

import (
	"context"
	"time"

	"github.com/robalyx/retract/internal/types"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// BulkReviewResult is the outcome of one record in a bulk review.
type BulkReviewResult struct {
	MessageID string                 `json:"messageId"`
	Execution *types.ExecutionResult `json:"execution,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// BulkReprocess reprocesses up to maxCount records matching filter. A
// non-positive maxCount uses the configured default. Individual failures are
// reported in the result list and never stop the batch. Results keep the
// order of the matched records.
func (s *Store) BulkReprocess(
	ctx context.Context, callerID string, filter types.ReviewFilter, opts types.ReprocessOptions, maxCount int,
) ([]*types.ReprocessResult, error) {
	if err := s.Authorize(callerID); err != nil {
		return nil, err
	}

	filter.Limit = s.maxCount(maxCount)
	records := s.list(filter)
	results := make([]*types.ReprocessResult, len(records))

	s.runBulk(ctx, len(records), func(ctx context.Context, i int, waitErr error) {
		id := records[i].MessageID
		if waitErr != nil {
			results[i] = &types.ReprocessResult{MessageID: id, Error: waitErr.Error()}
			return
		}

		result, err := s.reprocess(ctx, id, opts)
		if err != nil {
			result = &types.ReprocessResult{MessageID: id, Error: err.Error()}
		}
		results[i] = result
	})

	s.logger.Info("Bulk reprocess finished",
		zap.Int("count", len(results)),
		zap.Int("failed", countReprocessFailures(results)))

	return results, nil
}

// BulkReview moves every pending record matching filter to status.
func (s *Store) BulkReview(
	ctx context.Context, callerID string, filter types.ReviewFilter, status, notes string, maxCount int,
) ([]*BulkReviewResult, error) {
	if err := s.Authorize(callerID); err != nil {
		return nil, err
	}

	filter.Limit = s.maxCount(maxCount)
	records, err := s.ListPending(callerID, filter)
	if err != nil {
		return nil, err
	}

	results := make([]*BulkReviewResult, len(records))

	s.runBulk(ctx, len(records), func(ctx context.Context, i int, waitErr error) {
		item := &BulkReviewResult{MessageID: records[i].MessageID}
		results[i] = item

		if waitErr != nil {
			item.Error = waitErr.Error()
			return
		}

		_, execution, err := s.UpdateStatus(ctx, callerID, item.MessageID, status, notes, true)
		item.Execution = execution
		if err != nil {
			item.Error = err.Error()
		} else if execution != nil && !execution.Success {
			item.Error = execution.Error
		}
	})

	return results, nil
}

// runBulk calls fn for every index on a bounded pool, spacing operations by
// the configured delay. fn receives the limiter error when ctx ends first.
func (s *Store) runBulk(ctx context.Context, n int, fn func(ctx context.Context, i int, waitErr error)) {
	if n == 0 {
		return
	}

	limit := rate.Inf
	if s.bulk.BulkDelay > 0 {
		limit = rate.Every(time.Duration(s.bulk.BulkDelay) * time.Millisecond)
	}
	limiter := rate.NewLimiter(limit, 1)

	p := pool.New().WithContext(ctx).WithMaxGoroutines(max(s.bulk.BulkConcurrency, 1))
	for i := range n {
		p.Go(func(ctx context.Context) error {
			fn(ctx, i, limiter.Wait(ctx))
			return nil
		})
	}

	_ = p.Wait()
}

func (s *Store) maxCount(requested int) int {
	if requested > 0 {
		return requested
	}

	if s.bulk.BulkMaxCount > 0 {
		return s.bulk.BulkMaxCount
	}

	return 50
}

func countReprocessFailures(results []*types.ReprocessResult) int {
	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
		}
	}

	return failed
}

package session

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// BatchOptions control InvokeBatch.
type BatchOptions struct {
	Options
	// Rate limits invocations per second. Zero or less means unlimited.
	Rate float64
	// ContinueOnError keeps going after a failed row.
	ContinueOnError bool
}

// BatchResult pairs a data row with its outcome.
type BatchResult struct {
	Row    int
	Result *Result
	Err    error
}

// InvokeBatch invokes one action once per data row, in order. Rows run one
// at a time; Rate spaces them out. It stops at the first failure unless
// ContinueOnError is set, and returns the results gathered so far.
func (s *Session) InvokeBatch(ctx context.Context, action string, rows []map[string]string, opts BatchOptions) ([]BatchResult, error) {
	var limiter *rate.Limiter
	if opts.Rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.Rate), 1)
	}

	results := make([]BatchResult, 0, len(rows))
	for i, row := range rows {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return results, err
			}
		}

		res, err := s.Invoke(ctx, action, row, opts.Options)
		results = append(results, BatchResult{Row: i, Result: res, Err: err})
		if err != nil {
			s.logger.Warn("Batch row failed", zap.String("action", action), zap.Int("row", i), zap.Error(err))
			if !opts.ContinueOnError {
				return results, err
			}
		}
	}

	return results, nil
}

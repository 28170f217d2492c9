package usecase

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/forPelevin/viralcut/internal/errs"
	"github.com/forPelevin/viralcut/internal/types"
)

// callService runs one remote call under the limiter, retrying service
// errors up to retries times with doubling delays. Other errors return
// immediately.
func callService[T any](
	ctx context.Context,
	u Usecase,
	limiter *rate.Limiter,
	retries int,
	w types.Window,
	stage string,
	call func() (T, error),
) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return zero, err
			}
		}
		v, err := call()
		if err == nil {
			return v, nil
		}
		if !errs.Retryable(err) || attempt >= retries {
			return zero, err
		}

		delay := u.d.RetryBase << attempt
		u.d.Log.Warn().
			Err(err).
			Int("window", w.Index).
			Str("stage", stage).
			Int("attempt", attempt+1).
			Dur("backoff", delay).
			Msg("service call failed, retrying")

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return zero, ctx.Err()
		case <-t.C:
		}
	}
}

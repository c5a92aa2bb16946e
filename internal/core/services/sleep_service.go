package services

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/vncsmyrnk/api-poc/internal/core/domain"
	"github.com/vncsmyrnk/api-poc/internal/core/ports"
)

// MaxRandomSleepMs is the inclusive upper bound of the random delay.
const MaxRandomSleepMs = 2000

// maxSleepMs is the largest delay a time.Duration can hold.
const maxSleepMs = math.MaxInt64 / int64(time.Millisecond)

type sleepService struct {
	maxDelay time.Duration
	intN     func(n int) int
}

// NewSleepService returns a service whose fixed delays are capped at
// maxDelay. A zero maxDelay disables the cap.
func NewSleepService(maxDelay time.Duration) ports.SleepService {
	return &sleepService{
		maxDelay: maxDelay,
		intN:     rand.IntN,
	}
}

func (s *sleepService) SleepRandom(ctx context.Context) (time.Duration, error) {
	d := time.Duration(s.intN(MaxRandomSleepMs+1)) * time.Millisecond
	if err := wait(ctx, d); err != nil {
		return 0, err
	}
	return d, nil
}

func (s *sleepService) SleepFor(ctx context.Context, ms int) (time.Duration, error) {
	if ms < 0 {
		return 0, domain.ErrInvalidSleep
	}
	// Checked in milliseconds so the Duration conversion cannot overflow.
	if int64(ms) > maxSleepMs || (s.maxDelay > 0 && int64(ms) > s.maxDelay.Milliseconds()) {
		return 0, domain.ErrSleepTooLong
	}
	d := time.Duration(ms) * time.Millisecond
	if err := wait(ctx, d); err != nil {
		return 0, err
	}
	return d, nil
}

// wait parks the calling goroutine for d or until ctx is done.
func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

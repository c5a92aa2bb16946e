package ports

import (
	"context"
	"time"

	"github.com/vncsmyrnk/api-poc/internal/core/domain"
)

type PollRepository interface {
	Bootstrap(ctx context.Context, force bool) (*domain.BootstrapResult, error)
	ListPolls(ctx context.Context) ([]domain.Poll, error)
	Ping(ctx context.Context) error
}

type PollService interface {
	ListPolls(ctx context.Context) ([]domain.Poll, error)
	Ready(ctx context.Context) error
}

type SleepService interface {
	// SleepRandom waits a random delay and returns it.
	SleepRandom(ctx context.Context) (time.Duration, error)
	// SleepFor waits the given number of milliseconds.
	SleepFor(ctx context.Context, ms int) (time.Duration, error)
}

type ImageService interface {
	Generate(ctx context.Context) ([]byte, error)
}

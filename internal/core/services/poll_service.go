package services

import (
	"context"
	"fmt"

	"github.com/vncsmyrnk/api-poc/internal/core/domain"
	"github.com/vncsmyrnk/api-poc/internal/core/ports"
)

type pollService struct {
	repo ports.PollRepository
}

func NewPollService(repo ports.PollRepository) ports.PollService {
	return &pollService{
		repo: repo,
	}
}

func (s *pollService) ListPolls(ctx context.Context) ([]domain.Poll, error) {
	polls, err := s.repo.ListPolls(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDatabase, err)
	}
	if polls == nil {
		polls = []domain.Poll{}
	}
	return polls, nil
}

func (s *pollService) Ready(ctx context.Context) error {
	if err := s.repo.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrDatabase, err)
	}
	return nil
}

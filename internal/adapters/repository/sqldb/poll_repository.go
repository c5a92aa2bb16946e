package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vncsmyrnk/api-poc/internal/core/domain"
	"github.com/vncsmyrnk/api-poc/internal/core/ports"
)

type pollRepository struct {
	pool  *Pool
	clock func() time.Time
}

func NewPollRepository(pool *Pool) ports.PollRepository {
	return &pollRepository{
		pool: pool,
	}
}

// ListPolls scans the whole table. Rows come back in whatever order the
// engine yields them.
func (r *pollRepository) ListPolls(ctx context.Context) ([]domain.Poll, error) {
	polls := []domain.Poll{}

	err := r.pool.WithConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, selectPolls(r.pool.table))
		if err != nil {
			return fmt.Errorf("failed to list polls: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("failed to list polls: %w", err)
			}
			var (
				poll     domain.Poll
				question sql.NullString
				pubDate  sql.NullTime
			)
			if err := rows.Scan(&poll.ID, &question, &pubDate); err != nil {
				return fmt.Errorf("failed to scan poll: %w", err)
			}
			poll.Question = question.String
			poll.PubDate = pubDate.Time
			polls = append(polls, poll)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating polls: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return polls, nil
}

func (r *pollRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

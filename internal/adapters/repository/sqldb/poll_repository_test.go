package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/api-poc/internal/core/domain"
)

func questions(polls []domain.Poll) []string {
	out := make([]string, 0, len(polls))
	for _, p := range polls {
		out = append(out, p.Question)
	}
	return out
}

func seedQuestions() []string {
	out := make([]string, 0, domain.SeedSize)
	for i := range domain.SeedSize {
		out = append(out, strconv.Itoa(i))
	}
	return out
}

func TestBootstrapSeedsFreshDatabase(t *testing.T) {
	pool := openSQLite(t, 4)
	repo := NewPollRepository(pool)
	ctx := context.Background()

	before := time.Now()
	result, err := repo.Bootstrap(ctx, false)
	require.NoError(t, err)

	assert.Equal(t, "sanic_polls", result.Table)
	assert.False(t, result.Existed)
	assert.True(t, result.Seeded)
	assert.EqualValues(t, domain.SeedSize, result.RowCount)

	polls, err := repo.ListPolls(ctx)
	require.NoError(t, err)
	require.Len(t, polls, domain.SeedSize)
	assert.ElementsMatch(t, seedQuestions(), questions(polls))

	for _, p := range polls {
		assert.False(t, p.PubDate.IsZero())
		assert.False(t, p.PubDate.After(time.Now()))
		assert.False(t, p.PubDate.Before(before.Add(-time.Second)))
	}
	assert.Equal(t, 0, pool.Stats().InUse)
}

func TestBootstrapSkipsSeededTable(t *testing.T) {
	pool := openSQLite(t, 4)
	repo := NewPollRepository(pool)
	ctx := context.Background()

	_, err := repo.Bootstrap(ctx, false)
	require.NoError(t, err)

	result, err := repo.Bootstrap(ctx, false)
	require.NoError(t, err)
	assert.True(t, result.Existed)
	assert.False(t, result.Seeded)
	assert.EqualValues(t, domain.SeedSize, result.RowCount)

	polls, err := repo.ListPolls(ctx)
	require.NoError(t, err)
	assert.Len(t, polls, domain.SeedSize)
}

func TestBootstrapForceRebuilds(t *testing.T) {
	pool := openSQLite(t, 4)
	r := NewPollRepository(pool).(*pollRepository)
	ctx := context.Background()

	first := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	r.clock = func() time.Time { return first }
	_, err := r.Bootstrap(ctx, false)
	require.NoError(t, err)

	r.clock = nil
	result, err := r.Bootstrap(ctx, true)
	require.NoError(t, err)
	assert.True(t, result.Existed)
	assert.True(t, result.Seeded)

	polls, err := r.ListPolls(ctx)
	require.NoError(t, err)
	require.Len(t, polls, domain.SeedSize)
	for _, p := range polls {
		assert.True(t, p.PubDate.After(first))
	}
}

func TestBootstrapReseedsIncompleteTable(t *testing.T) {
	pool := openSQLite(t, 4)
	repo := NewPollRepository(pool)
	ctx := context.Background()

	err := pool.WithConn(ctx, func(conn *sql.Conn) error {
		if _, err := conn.ExecContext(ctx, sqliteDialect.create("sanic_polls")); err != nil {
			return err
		}
		_, err := conn.ExecContext(ctx, sqliteDialect.insert("sanic_polls"), "stale", time.Now().UTC())
		return err
	})
	require.NoError(t, err)

	result, err := repo.Bootstrap(ctx, false)
	require.NoError(t, err)
	assert.True(t, result.Existed)
	assert.True(t, result.Seeded)

	polls, err := repo.ListPolls(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, seedQuestions(), questions(polls))
}

func TestBootstrapCancelledBeforeStart(t *testing.T) {
	pool := openSQLite(t, 4)
	repo := NewPollRepository(pool)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.Bootstrap(ctx, false)
	require.Error(t, err)
	assert.Equal(t, 0, pool.Stats().InUse)

	_, err = repo.ListPolls(context.Background())
	assert.Error(t, err, "table must not exist after a cancelled bootstrap")
}

func TestListPollsEmptyTable(t *testing.T) {
	pool := openSQLite(t, 2)
	repo := NewPollRepository(pool)
	ctx := context.Background()

	err := pool.WithConn(ctx, func(conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx, sqliteDialect.create("sanic_polls"))
		return err
	})
	require.NoError(t, err)

	polls, err := repo.ListPolls(ctx)
	require.NoError(t, err)
	assert.NotNil(t, polls)
	assert.Empty(t, polls)
}

func TestListPollsReleasesConnectionOnError(t *testing.T) {
	pool := openSQLite(t, 1)
	repo := NewPollRepository(pool)

	// No table yet, so the scan fails.
	_, err := repo.ListPolls(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, pool.Stats().InUse)

	_, err = repo.Bootstrap(context.Background(), false)
	require.NoError(t, err)
}

func TestListPollsConcurrent(t *testing.T) {
	pool := openSQLite(t, 4)
	repo := NewPollRepository(pool)
	ctx := context.Background()

	_, err := repo.Bootstrap(ctx, false)
	require.NoError(t, err)

	const callers = 32
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			polls, err := repo.ListPolls(ctx)
			if err != nil {
				errs <- err
				return
			}
			if len(polls) != domain.SeedSize {
				errs <- fmt.Errorf("got %d polls", len(polls))
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
	assert.Equal(t, 0, pool.Stats().InUse)
	assert.LessOrEqual(t, pool.Stats().OpenConnections, 4)
}

// errAfterContext reports cancellation once Err has been called more than
// limit times, so a scan can be interrupted at a fixed row.
type errAfterContext struct {
	context.Context
	mu    sync.Mutex
	calls int
	limit int
}

func (c *errAfterContext) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.calls > c.limit {
		return context.Canceled
	}
	return nil
}

func TestBootstrapRollsBackFailedSeed(t *testing.T) {
	pool := openSQLite(t, 2)
	r := NewPollRepository(pool).(*pollRepository)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := 0
	r.clock = func() time.Time {
		calls++
		if calls == 50 {
			cancel()
		}
		return time.Now()
	}

	_, err := r.Bootstrap(ctx, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, pool.Stats().InUse)

	r.clock = nil
	_, err = r.ListPolls(context.Background())
	assert.Error(t, err, "table must not exist after a rolled back seed")
}

func TestBootstrapFailedReseedKeepsExistingRows(t *testing.T) {
	pool := openSQLite(t, 2)
	r := NewPollRepository(pool).(*pollRepository)

	first := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	r.clock = func() time.Time { return first }
	_, err := r.Bootstrap(context.Background(), false)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := 0
	r.clock = func() time.Time {
		calls++
		if calls == 50 {
			cancel()
		}
		return time.Now()
	}

	_, err = r.Bootstrap(ctx, true)
	require.Error(t, err)
	assert.Equal(t, 0, pool.Stats().InUse)

	polls, err := r.ListPolls(context.Background())
	require.NoError(t, err)
	require.Len(t, polls, domain.SeedSize)
	assert.ElementsMatch(t, seedQuestions(), questions(polls))
	for _, p := range polls {
		assert.True(t, p.PubDate.Equal(first))
	}
}

func TestListPollsCancelledMidScanReleasesConnection(t *testing.T) {
	pool := openSQLite(t, 1)
	repo := NewPollRepository(pool)

	_, err := repo.Bootstrap(context.Background(), false)
	require.NoError(t, err)

	ctx := &errAfterContext{Context: context.Background(), limit: 20}
	polls, err := repo.ListPolls(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, polls)
	assert.Equal(t, 0, pool.Stats().InUse)

	// The single connection is usable again.
	polls, err = repo.ListPolls(context.Background())
	require.NoError(t, err)
	assert.Len(t, polls, domain.SeedSize)
}

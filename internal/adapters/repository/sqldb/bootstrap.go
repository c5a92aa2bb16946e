package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/vncsmyrnk/api-poc/internal/core/domain"
)

// Bootstrap makes sure the poll table exists in the current schema and
// holds exactly domain.SeedSize rows. A table that already matches is left
// alone unless force is set; anything else is dropped, recreated and
// seeded in one transaction.
func (r *pollRepository) Bootstrap(ctx context.Context, force bool) (*domain.BootstrapResult, error) {
	result := &domain.BootstrapResult{Table: r.pool.table}

	err := r.pool.WithConn(ctx, func(conn *sql.Conn) error {
		exists, err := r.tableExists(ctx, conn)
		if err != nil {
			return err
		}
		result.Existed = exists

		if exists {
			count, err := r.countRows(ctx, conn)
			if err != nil {
				return err
			}
			result.RowCount = count
			if count == domain.SeedSize && !force {
				return nil
			}
		}

		if err := r.seed(ctx, conn); err != nil {
			return err
		}
		result.Seeded = true
		result.RowCount = domain.SeedSize
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *pollRepository) tableExists(ctx context.Context, conn *sql.Conn) (bool, error) {
	var exists bool
	err := conn.QueryRowContext(ctx, r.pool.dialect.tableExists, r.pool.table).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check table existence: %w", err)
	}
	return exists, nil
}

func (r *pollRepository) countRows(ctx context.Context, conn *sql.Conn) (int64, error) {
	var count int64
	if err := conn.QueryRowContext(ctx, countRows(r.pool.table)).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count rows: %w", err)
	}
	return count, nil
}

func (r *pollRepository) seed(ctx context.Context, conn *sql.Conn) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, dropTable(r.pool.table)); err != nil {
		return fmt.Errorf("failed to drop table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, r.pool.dialect.create(r.pool.table)); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, r.pool.dialect.insert(r.pool.table))
	if err != nil {
		return fmt.Errorf("failed to prepare seed statement: %w", err)
	}
	defer stmt.Close()

	for i := range domain.SeedSize {
		if _, err := stmt.ExecContext(ctx, strconv.Itoa(i), r.now().UTC()); err != nil {
			return fmt.Errorf("failed to insert seed row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *pollRepository) now() time.Time {
	if r.clock != nil {
		return r.clock()
	}
	return time.Now()
}

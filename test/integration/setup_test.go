package integration

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	handler "github.com/vncsmyrnk/api-poc/internal/adapters/handler/http"
	"github.com/vncsmyrnk/api-poc/internal/adapters/repository/sqldb"
	"github.com/vncsmyrnk/api-poc/internal/core/ports"
	"github.com/vncsmyrnk/api-poc/internal/core/services"
)

func setupPostgresContainer(ctx context.Context) (testcontainers.Container, string, error) {
	dbName := "testdb"
	user := "user"
	password := "password"

	pgContainer, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(user),
		postgres.WithPassword(password),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, "", err
	}

	return pgContainer, connStr, nil
}

// uniqueTable returns a table name no other test uses, so every test can
// share one container.
func uniqueTable() string {
	return "polls_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

type TestApp struct {
	Pool   *sqldb.Pool
	Repo   ports.PollRepository
	Server *httptest.Server
	Client *http.Client
}

func openPool(t *testing.T, driver, table string, maxConns int) *sqldb.Pool {
	t.Helper()

	pool, err := sqldb.Open(context.Background(), sqldb.Options{
		Driver:   driver,
		URL:      postgresURL,
		MaxConns: maxConns,
		Table:    table,
	})
	require.NoError(t, err)
	return pool
}

func setupTestApp(t *testing.T, driver string, maxConns int) *TestApp {
	t.Helper()

	pool := openPool(t, driver, uniqueTable(), maxConns)
	repo := sqldb.NewPollRepository(pool)

	_, err := repo.Bootstrap(context.Background(), false)
	require.NoError(t, err)

	router := handler.NewHandler(
		handler.NewPollHandler(services.NewPollService(repo), nil),
		handler.NewSleepHandler(services.NewSleepService(time.Minute), nil),
		handler.NewImageHandler(services.NewImageService(nil), nil),
	)
	server := httptest.NewServer(router)

	return &TestApp{
		Pool:   pool,
		Repo:   repo,
		Server: server,
		Client: server.Client(),
	}
}

func (app *TestApp) Teardown(t *testing.T) {
	app.Server.Close()
	err := app.Pool.WithConn(context.Background(), func(conn *sql.Conn) error {
		_, err := conn.ExecContext(context.Background(), "DROP TABLE IF EXISTS "+app.Pool.Table())
		return err
	})
	if err != nil {
		t.Logf("failed to drop table: %v", err)
	}
	if err := app.Pool.Close(); err != nil {
		t.Logf("failed to close pool: %v", err)
	}
}

package sqldb

import (
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/vncsmyrnk/api-poc/internal/core/domain"
)

const (
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
	DriverSQLite   = "sqlite"
)

// dialect holds the statements that differ between the supported engines.
// Statements containing %s take the table name.
type dialect struct {
	driverName  string
	tableExists string
	createTable string
	insertPoll  string
}

var postgresDialect = dialect{
	tableExists: `SELECT EXISTS (
		SELECT 1 FROM pg_tables
		WHERE schemaname = current_schema() AND tablename = $1
	)`,
	createTable: `CREATE TABLE %s (
		id serial PRIMARY KEY,
		question varchar(50),
		pub_date timestamp
	)`,
	insertPoll: `INSERT INTO %s (question, pub_date) VALUES ($1, $2)`,
}

var sqliteDialect = dialect{
	driverName: "sqlite",
	tableExists: `SELECT EXISTS (
		SELECT 1 FROM sqlite_master
		WHERE type = 'table' AND name = ?
	)`,
	createTable: `CREATE TABLE %s (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		question VARCHAR(50),
		pub_date TIMESTAMP
	)`,
	insertPoll: `INSERT INTO %s (question, pub_date) VALUES (?, ?)`,
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case DriverPostgres, "":
		d := postgresDialect
		d.driverName = "postgres"
		return d, nil
	case DriverPgx:
		d := postgresDialect
		d.driverName = "pgx"
		return d, nil
	case DriverSQLite:
		return sqliteDialect, nil
	default:
		return dialect{}, fmt.Errorf("%w: %q", domain.ErrUnknownDriver, driver)
	}
}

func (d dialect) create(table string) string {
	return fmt.Sprintf(d.createTable, table)
}

func (d dialect) insert(table string) string {
	return fmt.Sprintf(d.insertPoll, table)
}

func dropTable(table string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s", table)
}

func countRows(table string) string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s", table)
}

func selectPolls(table string) string {
	return fmt.Sprintf("SELECT id, question, pub_date FROM %s", table)
}

// Package config resolves runtime settings from the environment, an
// optional .env file and command-line flags.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"runtime"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/vncsmyrnk/api-poc/internal/adapters/repository/sqldb"
)

// Environment keys. Flags bound through viper use the same names.
const (
	KeyDBUser          = "RDS_USERNAME"
	KeyDBPassword      = "RDS_PASSWORD"
	KeyDBHost          = "RDS_HOSTNAME"
	KeyDBPort          = "RDS_PORT"
	KeyDBName          = "RDS_DB_NAME"
	KeyDBDriver        = "DB_DRIVER"
	KeyDBSSLMode       = "DB_SSLMODE"
	KeyDBMaxConns      = "DB_POOL_MAX_CONNS"
	KeyDBTable         = "DB_TABLE"
	KeyBootstrapForce  = "DB_BOOTSTRAP_FORCE"
	KeyServingPort     = "SERVING_PORT"
	KeyWorkers         = "API_WORKERS"
	KeySleepMaxMs      = "SLEEP_MAX_MS"
	KeyShutdownTimeout = "SHUTDOWN_TIMEOUT"
	KeyLogLevel        = "LOG_LEVEL"
	KeyLogFormat       = "LOG_FORMAT"
)

type Config struct {
	DB     DBConfig
	Server ServerConfig
	Log    LogConfig
}

type DBConfig struct {
	Driver         string
	Host           string
	Port           int
	User           string
	Password       string
	Name           string
	SSLMode        string
	MaxConns       int
	Table          string
	BootstrapForce bool
}

type ServerConfig struct {
	Port            int
	Workers         int
	SleepMax        time.Duration
	ShutdownTimeout time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

// DefaultWorkers is twice the CPU count, never less than one.
func DefaultWorkers() int {
	return max(1, 2*runtime.NumCPU())
}

// New returns a viper instance holding the defaults and reading the
// process environment.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault(KeyDBUser, "postgres")
	v.SetDefault(KeyDBPassword, "password")
	v.SetDefault(KeyDBHost, "localhost")
	v.SetDefault(KeyDBPort, 5432)
	v.SetDefault(KeyDBName, "postgres")
	v.SetDefault(KeyDBDriver, sqldb.DriverPostgres)
	v.SetDefault(KeyDBSSLMode, "disable")
	v.SetDefault(KeyDBMaxConns, 1000)
	v.SetDefault(KeyDBTable, "sanic_polls")
	v.SetDefault(KeyBootstrapForce, false)
	v.SetDefault(KeyServingPort, 8001)
	v.SetDefault(KeyWorkers, 0)
	v.SetDefault(KeySleepMaxMs, 60000)
	v.SetDefault(KeyShutdownTimeout, 30*time.Second)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")

	v.AutomaticEnv()
	return v
}

// LoadEnvFile exports the variables of a .env file into the process
// environment. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Load reads the resolved settings out of v. Numeric, boolean and
// duration values that do not parse are reported rather than zeroed.
func Load(v *viper.Viper) (*Config, error) {
	r := reader{v: v}
	cfg := &Config{
		DB: DBConfig{
			Driver:         v.GetString(KeyDBDriver),
			Host:           v.GetString(KeyDBHost),
			Port:           r.int(KeyDBPort),
			User:           v.GetString(KeyDBUser),
			Password:       v.GetString(KeyDBPassword),
			Name:           v.GetString(KeyDBName),
			SSLMode:        v.GetString(KeyDBSSLMode),
			MaxConns:       r.int(KeyDBMaxConns),
			Table:          v.GetString(KeyDBTable),
			BootstrapForce: r.bool(KeyBootstrapForce),
		},
		Server: ServerConfig{
			Port:            r.int(KeyServingPort),
			Workers:         r.int(KeyWorkers),
			SleepMax:        r.milliseconds(KeySleepMaxMs),
			ShutdownTimeout: r.duration(KeyShutdownTimeout),
		},
		Log: LogConfig{
			Level:  v.GetString(KeyLogLevel),
			Format: v.GetString(KeyLogFormat),
		},
	}
	if r.err != nil {
		return nil, r.err
	}

	if cfg.Server.Workers <= 0 {
		cfg.Server.Workers = DefaultWorkers()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// reader converts raw viper values and keeps the first failure.
type reader struct {
	v   *viper.Viper
	err error
}

func (r *reader) fail(key, msg string) {
	if r.err == nil {
		r.err = &Error{Key: key, Message: msg}
	}
}

func (r *reader) int(key string) int {
	n, err := cast.ToIntE(r.v.Get(key))
	if err != nil {
		r.fail(key, fmt.Sprintf("must be an integer, got %q", r.v.GetString(key)))
		return 0
	}
	return n
}

func (r *reader) bool(key string) bool {
	b, err := cast.ToBoolE(r.v.Get(key))
	if err != nil {
		r.fail(key, fmt.Sprintf("must be a boolean, got %q", r.v.GetString(key)))
		return false
	}
	return b
}

func (r *reader) milliseconds(key string) time.Duration {
	n := r.int(key)
	if int64(n) > math.MaxInt64/int64(time.Millisecond) {
		r.fail(key, "is too large")
		return 0
	}
	return time.Duration(n) * time.Millisecond
}

// duration requires a unit on string values, so "30" is rejected instead
// of being read as 30ns.
func (r *reader) duration(key string) time.Duration {
	switch raw := r.v.Get(key).(type) {
	case time.Duration:
		return raw
	case string:
		d, err := time.ParseDuration(raw)
		if err != nil {
			r.fail(key, fmt.Sprintf("must be a duration such as 30s, got %q", raw))
			return 0
		}
		return d
	default:
		d, err := cast.ToDurationE(raw)
		if err != nil {
			r.fail(key, fmt.Sprintf("must be a duration such as 30s, got %v", raw))
			return 0
		}
		return d
	}
}

func (c *Config) Validate() error {
	switch c.DB.Driver {
	case sqldb.DriverPostgres, sqldb.DriverPgx, sqldb.DriverSQLite:
	default:
		return &Error{Key: KeyDBDriver, Message: fmt.Sprintf("unsupported driver %q", c.DB.Driver)}
	}
	if err := sqldb.ValidateTable(c.DB.Table); err != nil {
		return &Error{Key: KeyDBTable, Message: err.Error()}
	}
	if c.DB.MaxConns < 1 {
		return &Error{Key: KeyDBMaxConns, Message: "must be at least 1"}
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return &Error{Key: KeyServingPort, Message: "must be between 1 and 65535"}
	}
	if c.Server.SleepMax < 0 {
		return &Error{Key: KeySleepMaxMs, Message: "must not be negative"}
	}
	if c.Server.ShutdownTimeout <= 0 {
		return &Error{Key: KeyShutdownTimeout, Message: "must be positive"}
	}
	return nil
}

// PoolOptions maps the database settings onto the connection provider.
func (c *Config) PoolOptions() sqldb.Options {
	return sqldb.Options{
		Driver:   c.DB.Driver,
		Host:     c.DB.Host,
		Port:     c.DB.Port,
		User:     c.DB.User,
		Password: c.DB.Password,
		Database: c.DB.Name,
		SSLMode:  c.DB.SSLMode,
		MaxConns: c.DB.MaxConns,
		Table:    c.DB.Table,
	}
}

// Error reports an invalid setting.
type Error struct {
	Key     string
	Message string
}

func (e *Error) Error() string {
	return "config error in " + e.Key + ": " + e.Message
}

package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"cloud.google.com/go/cloudsqlconn"
	"cloud.google.com/go/cloudsqlconn/postgres/pgxv5"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/microsoft/go-mssqldb"
	_ "modernc.org/sqlite"

	"querypilot/config"
	"querypilot/errs"
)

// database/sql panics when a driver name is registered twice.
var cloudSQLDriverSeq atomic.Int64

// Pool hands out scoped connections to the target database.
type Pool struct {
	db      *sql.DB
	driver  string
	cleanup func() error
}

// OpenPool opens the configured database. An unreachable database is logged
// and reported per query, so the process can start without it.
func OpenPool(ctx context.Context, cfg config.DatabaseConfig) (*Pool, error) {
	driverName, dsn, cleanup, err := driverDSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		if cleanup != nil {
			_ = cleanup()
		}
		return nil, errs.Connection(fmt.Sprintf("failed to open %s connection", cfg.Driver), err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pool := &Pool{db: db, driver: cfg.Driver, cleanup: cleanup}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		slog.Warn("database not reachable at startup", "driver", cfg.Driver, "error", err)
	}
	return pool, nil
}

// NewPool wraps an already opened database.
func NewPool(db *sql.DB, driver string) *Pool {
	return &Pool{db: db, driver: driver}
}

func driverDSN(cfg config.DatabaseConfig) (driverName, dsn string, cleanup func() error, err error) {
	switch cfg.Driver {
	case config.DriverCloudSQL:
		var opts []cloudsqlconn.Option
		if cfg.IAMAuth {
			opts = append(opts, cloudsqlconn.WithIAMAuthN())
		}
		if cfg.PrivateIP {
			opts = append(opts, cloudsqlconn.WithDefaultDialOptions(cloudsqlconn.WithPrivateIP()))
		}
		driverName = fmt.Sprintf("cloudsql-postgres-%d", cloudSQLDriverSeq.Add(1))
		cleanup, err = pgxv5.RegisterDriver(driverName, opts...)
		if err != nil {
			return "", "", nil, errs.Connection("failed to register cloud sql connector", err)
		}
		return driverName, cloudSQLDSN(cfg), cleanup, nil
	case config.DriverPostgres:
		port := cfg.Port
		if port == "" {
			port = "5432"
		}
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(cfg.User, cfg.Password),
			Host:   net.JoinHostPort(cfg.Host, port),
			Path:   "/" + cfg.Name,
		}
		if !cfg.Encrypt {
			u.RawQuery = "sslmode=disable"
		}
		return "pgx", u.String(), nil, nil
	case config.DriverSQLServer:
		return "sqlserver", buildConnectionString(cfg), nil, nil
	case config.DriverSQLite:
		dsn = cfg.Path
		if !strings.Contains(dsn, "?") {
			dsn += "?_pragma=busy_timeout(5000)"
		}
		return "sqlite", dsn, nil, nil
	default:
		return "", "", nil, errs.Configuration(fmt.Sprintf("unsupported DB_DRIVER %q", cfg.Driver), nil)
	}
}

// cloudSQLDSN builds a keyword/value DSN for the connector. Values are quoted
// so spaces, quotes and backslashes in credentials survive parsing.
func cloudSQLDSN(cfg config.DatabaseConfig) string {
	dsn := fmt.Sprintf("host=%s user=%s dbname=%s sslmode=disable",
		quoteDSNValue(cfg.InstanceConnectionName), quoteDSNValue(cfg.User), quoteDSNValue(cfg.Name))
	if !cfg.IAMAuth {
		dsn += " password=" + quoteDSNValue(cfg.Password)
	}
	return dsn
}

func quoteDSNValue(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	value = strings.ReplaceAll(value, `'`, `\'`)
	return "'" + value + "'"
}

func buildConnectionString(cfg config.DatabaseConfig) string {
	port := cfg.Port
	if port == "" {
		port = "1433"
	}
	connStr := fmt.Sprintf("server=%s;port=%s;database=%s",
		cfg.Host, port, cfg.Name)

	if cfg.User != "" {
		connStr += fmt.Sprintf(";user id=%s;password=%s", cfg.User, cfg.Password)
	} else {
		connStr += ";trusted_connection=true"
	}

	if cfg.Encrypt {
		// Use TLS but skip CA verification so self-signed / internal certs work.
		connStr += ";encrypt=true;TrustServerCertificate=true"
	} else {
		connStr += ";encrypt=false"
	}

	return connStr
}

// WithConn runs fn on a dedicated connection and returns it to the pool on
// every exit path, panics included.
func (p *Pool) WithConn(ctx context.Context, fn func(ctx context.Context, conn *sql.Conn) error) error {
	if p == nil || p.db == nil {
		return errs.Connection("database connection is not initialized", nil)
	}
	conn, err := p.db.Conn(ctx)
	if err != nil {
		return errs.Connection("failed to acquire database connection", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			slog.Warn("failed to release database connection", "error", cerr)
		}
	}()
	return fn(ctx, conn)
}

func (p *Pool) Ping(ctx context.Context) error {
	if p == nil || p.db == nil {
		return errs.Connection("database connection is not initialized", nil)
	}
	if err := p.db.PingContext(ctx); err != nil {
		return errs.Connection("database ping failed", err)
	}
	return nil
}

func (p *Pool) Stats() sql.DBStats {
	return p.db.Stats()
}

func (p *Pool) Driver() string {
	return p.driver
}

// Dialect names the SQL dialect used in prompts.
func (p *Pool) Dialect() string {
	switch p.driver {
	case config.DriverCloudSQL, config.DriverPostgres:
		return "PostgreSQL"
	case config.DriverSQLServer:
		return "T-SQL"
	case config.DriverSQLite:
		return "SQLite"
	default:
		return "SQL"
	}
}

func (p *Pool) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	err := p.db.Close()
	if p.cleanup != nil {
		if cerr := p.cleanup(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

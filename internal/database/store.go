package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bluedeer/waterbill/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite" // SQLite driver
)

// Store is the persistence API used by the bot, the refresh pipeline and the
// notifier.
type Store interface {
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	ListTables(ctx context.Context) ([]string, error)
	Close() error

	AddProperty(ctx context.Context, p *model.Property) error
	GetProperty(ctx context.Context, id int64) (*model.Property, error)
	GetPropertyByAccount(ctx context.Context, accountNumber string) (*model.Property, error)
	FindProperties(ctx context.Context, addressQuery string) ([]model.Property, error)
	ListActiveProperties(ctx context.Context) ([]model.Property, error)
	CountActiveProperties(ctx context.Context) (int, error)
	DeactivateProperty(ctx context.Context, id int64) error
	UpdatePropertyDetails(ctx context.Context, id int64, d PropertyDetails) error

	InsertBill(ctx context.Context, b *model.WaterBill) error
	LatestBill(ctx context.Context, propertyID int64) (*model.WaterBill, error)
	ListLatestBills(ctx context.Context) ([]model.PropertyBill, error)

	StartScrape(ctx context.Context, l *model.ScrapeLog) error
	FinishScrape(ctx context.Context, l *model.ScrapeLog) error
	LatestScrape(ctx context.Context) (*model.ScrapeLog, error)

	UpsertTelegramUser(ctx context.Context, u *model.TelegramUser) error
	AdminChatIDs(ctx context.Context) ([]int64, error)

	AddTenant(ctx context.Context, t *model.Tenant) error
	ListSection8Tenants(ctx context.Context) ([]model.TenantRecert, error)
}

// SQLStore implements Store on database/sql for SQLite and PostgreSQL.
type SQLStore struct {
	db     *sql.DB
	driver Driver

	// pool is the pgx pool behind db when driver is DriverPostgres.
	pool *pgxpool.Pool

	// now returns the current time; replaced in tests.
	now func() time.Time
}

var _ Store = (*SQLStore)(nil)

// Options configures Open.
type Options struct {
	// CreateIfNotExists creates the SQLite file and its directory if missing.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for SQLite.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open connects to the database named by dsn. It does not create tables;
// call Migrate for that.
func Open(ctx context.Context, dsn string, opts Options) (*SQLStore, error) {
	parsed, err := ParseDSN(dsn)
	if err != nil {
		return nil, err
	}

	switch parsed.Driver {
	case DriverPostgres:
		return openPostgres(ctx, parsed.Target)
	default:
		return openSQLite(ctx, parsed.Target, opts)
	}
}

func openSQLite(ctx context.Context, dbPath string, opts Options) (*SQLStore, error) {
	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrDatabaseNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file; mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if opts.EnableWAL {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &SQLStore{db: db, driver: DriverSQLite, now: time.Now}, nil
}

func openPostgres(ctx context.Context, url string) (*SQLStore, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &SQLStore{
		db:     stdlib.OpenDBFromPool(pool),
		driver: DriverPostgres,
		pool:   pool,
		now:    time.Now,
	}, nil
}

// Driver reports the backend in use.
func (s *SQLStore) Driver() Driver {
	return s.driver
}

// Ping verifies the connection.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	err := s.db.Close()
	if s.pool != nil {
		s.pool.Close()
	}
	return err
}

func (s *SQLStore) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, rebind(s.driver, query), args...)
}

func (s *SQLStore) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, rebind(s.driver, query), args...)
}

func (s *SQLStore) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, rebind(s.driver, query), args...)
}

// insert runs an INSERT ... RETURNING id statement.
func (s *SQLStore) insert(ctx context.Context, query string, args ...any) (int64, error) {
	var id int64
	if err := s.queryRow(ctx, query+" RETURNING id", args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

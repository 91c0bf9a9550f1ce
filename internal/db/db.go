// Package db wraps the PostgreSQL connection pool used for deal and
// audit-log persistence (spec §6 "Persisted state").
package db

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/ajitpratap0/fxengine/internal/metrics"
	"github.com/ajitpratap0/fxengine/internal/resilience"
)

// PoolInterface is the subset of pgxpool.Pool the persistence layer
// needs, narrow enough that pgxmock can stand in for tests.
type PoolInterface interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// DB wraps the PostgreSQL connection pool with circuit-breaker protected access.
type DB struct {
	pool    *pgxpool.Pool
	breaker *resilience.Manager
}

const breakerServiceName = "deals_db"

var dbBreakerSettings = resilience.ServiceSettings{
	MinRequests:     10,
	FailureRatio:    0.5,
	OpenTimeout:     20 * time.Second,
	HalfOpenMaxReqs: 3,
	CountInterval:   10 * time.Second,
}

// New creates a new database connection pool from DATABASE_URL, or the
// explicit url if provided. breaker may be shared with other
// collaborators since breakers are keyed by name.
func New(ctx context.Context, url string, breaker *resilience.Manager) (*DB, error) {
	if url == "" {
		url = os.Getenv("DATABASE_URL")
	}
	if url == "" {
		return nil, fmt.Errorf("DATABASE_URL not set")
	}

	config, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute
	config.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("database connection pool created")

	if breaker == nil {
		breaker = resilience.NewManager()
	}

	return &DB{pool: pool, breaker: breaker}, nil
}

// Close closes the database connection pool.
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
		log.Info().Msg("database connection pool closed")
	}
}

// Ping checks the database connection.
func (db *DB) Ping(ctx context.Context) error {
	if db.pool == nil {
		return fmt.Errorf("database connection pool is nil")
	}
	return db.pool.Ping(ctx)
}

// Pool returns the underlying connection pool.
func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

// InstrumentedPool returns a PoolInterface that records every query's
// duration against the "database query" metric, suitable for handing to
// deals.NewStore in place of the raw pool.
func (db *DB) InstrumentedPool() PoolInterface {
	return &instrumentedPool{pool: db.pool}
}

// instrumentedPool wraps a PoolInterface, timing each call (mirrors the
// teacher's metrics.Updater, generalized from a periodic sampler to
// per-query instrumentation).
type instrumentedPool struct {
	pool PoolInterface
}

func (p *instrumentedPool) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	start := time.Now()
	rows, err := p.pool.Query(ctx, sql, args...)
	metrics.RecordDatabaseQuery(queryType(sql), time.Since(start).Seconds()*1000)
	return rows, err
}

func (p *instrumentedPool) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	start := time.Now()
	row := p.pool.QueryRow(ctx, sql, args...)
	metrics.RecordDatabaseQuery(queryType(sql), time.Since(start).Seconds()*1000)
	return row
}

func (p *instrumentedPool) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	start := time.Now()
	tag, err := p.pool.Exec(ctx, sql, args...)
	metrics.RecordDatabaseQuery(queryType(sql), time.Since(start).Seconds()*1000)
	return tag, err
}

func (p *instrumentedPool) Begin(ctx context.Context) (pgx.Tx, error) {
	return p.pool.Begin(ctx)
}

// queryType extracts the leading SQL keyword (SELECT/INSERT/UPDATE/...)
// for use as a low-cardinality metric label.
func queryType(sql string) string {
	trimmed := strings.TrimSpace(sql)
	end := strings.IndexAny(trimmed, " \n\t")
	if end == -1 {
		end = len(trimmed)
	}
	return strings.ToUpper(trimmed[:end])
}

// MetricsUpdater periodically samples pool connection stats into the
// database gauges, grounded on the teacher's internal/metrics.Updater
// ticker loop.
type MetricsUpdater struct {
	db       *DB
	interval time.Duration
	stopCh   chan struct{}
}

// NewMetricsUpdater constructs an updater for db, sampling every interval.
func NewMetricsUpdater(db *DB, interval time.Duration) *MetricsUpdater {
	return &MetricsUpdater{db: db, interval: interval, stopCh: make(chan struct{})}
}

// Start runs the update loop until ctx is cancelled or Stop is called.
func (u *MetricsUpdater) Start(ctx context.Context) {
	ticker := time.NewTicker(u.interval)
	defer ticker.Stop()

	u.update()
	for {
		select {
		case <-ticker.C:
			u.update()
		case <-u.stopCh:
			log.Info().Msg("database metrics updater stopped")
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop ends the update loop.
func (u *MetricsUpdater) Stop() {
	close(u.stopCh)
}

func (u *MetricsUpdater) update() {
	if u.db.pool == nil {
		return
	}
	stat := u.db.pool.Stat()
	metrics.UpdateDatabaseConnections(stat.AcquiredConns(), stat.IdleConns())
}

// Health checks database connectivity.
func (db *DB) Health(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// ExecuteWithCircuitBreaker runs operation through the "deals_db"
// breaker, short-circuiting writes while the database is unhealthy
// rather than letting callers queue up against a dead pool.
func (db *DB) ExecuteWithCircuitBreaker(operation func() (interface{}, error)) (interface{}, error) {
	breaker := db.breaker.Breaker(breakerServiceName, dbBreakerSettings)
	result, err := breaker.Execute(operation)
	if err != nil {
		db.breaker.Metrics().RecordRequest(breakerServiceName, false)
		if err == gobreaker.ErrOpenState {
			return nil, fmt.Errorf("deals database circuit breaker is open, service unavailable")
		}
		return nil, err
	}
	db.breaker.Metrics().RecordRequest(breakerServiceName, true)
	return result, nil
}

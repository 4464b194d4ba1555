// Package db is the PostgreSQL-backed event store, used when DATABASE_URL
// is configured. It satisfies store.Store so the service layer does not care
// which backend it talks to.
package db

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/argus-triage/argus-go/internal/event"
	"github.com/argus-triage/argus-go/internal/store"
)

//go:embed migrations/*.sql
var migrations embed.FS

// DB wraps a pgx connection pool.
type DB struct {
	Pool   *pgxpool.Pool
	logger *slog.Logger
}

// Connect creates a DB, connects to PostgreSQL, and runs migrations.
func Connect(ctx context.Context, dsn string, logger *slog.Logger) (*DB, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	config.MaxConns = 20
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	db := &DB{Pool: pool, logger: logger}
	if err := db.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return db, nil
}

// Migrate reads and executes the embedded SQL migration files.
func (db *DB) Migrate(ctx context.Context) error {
	sql, err := migrations.ReadFile("migrations/001_init.sql")
	if err != nil {
		return fmt.Errorf("read migration: %w", err)
	}
	if _, err := db.Pool.Exec(ctx, string(sql)); err != nil {
		return fmt.Errorf("exec migration: %w", err)
	}
	db.logger.Info("database migrated")
	return nil
}

// Close shuts down the connection pool.
func (db *DB) Close() {
	db.Pool.Close()
}

// ---- Events ----

const eventColumns = `event_id, timestamp, source_ip, method, url, user_agent,
	headers, payload, status_code, response_size, attack_type, is_successful,
	confidence, rule_hits`

// Insert writes classified events in one batch, ignoring duplicate IDs.
func (db *DB) Insert(ctx context.Context, events []*event.Event) error {
	batch := &pgx.Batch{}
	for _, ev := range events {
		headers, err := json.Marshal(ev.Headers)
		if err != nil {
			return fmt.Errorf("marshal headers: %w", err)
		}
		batch.Queue(
			`INSERT INTO events (`+eventColumns+`)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			 ON CONFLICT (event_id) DO NOTHING`,
			ev.EventID, ev.Timestamp, ev.SourceIP, ev.Method, ev.URL, ev.UserAgent,
			headers, ev.Payload, ev.StatusCode, ev.ResponseSize, ev.AttackType,
			ev.IsSuccessful, ev.Confidence, ev.RuleHits,
		)
	}

	results := db.Pool.SendBatch(ctx, batch)
	defer results.Close()
	for range events {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
	}
	return nil
}

// List returns events matching the filter, newest first.
func (db *DB) List(ctx context.Context, f store.Filter) ([]*event.Event, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if f.SourceIP != "" {
		where = append(where, "source_ip = "+arg(f.SourceIP))
	}
	if f.AttackType != "" {
		where = append(where, "attack_type = "+arg(f.AttackType))
	}
	if f.IsSuccessful != nil {
		where = append(where, "is_successful = "+arg(*f.IsSuccessful))
	}

	q := `SELECT ` + eventColumns + ` FROM events`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY timestamp DESC"
	if f.Limit > 0 {
		q += " LIMIT " + arg(f.Limit)
	}
	if f.Offset > 0 {
		q += " OFFSET " + arg(f.Offset)
	}

	rows, err := db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// GetByID returns one event or store.ErrNotFound.
func (db *DB) GetByID(ctx context.Context, id string) (*event.Event, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+eventColumns+` FROM events WHERE event_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	defer rows.Close()

	events, err := scanEvents(rows)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, store.ErrNotFound
	}
	return events[0], nil
}

// ByIP returns the history for a source IP, oldest first.
func (db *DB) ByIP(ctx context.Context, ip string) ([]*event.Event, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+eventColumns+` FROM events WHERE source_ip = $1 ORDER BY timestamp ASC`, ip)
	if err != nil {
		return nil, fmt.Errorf("events by ip: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// All returns every stored event, oldest first.
func (db *DB) All(ctx context.Context) ([]*event.Event, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+eventColumns+` FROM events ORDER BY timestamp ASC`)
	if err != nil {
		return nil, fmt.Errorf("all events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// Count returns the number of stored events.
func (db *DB) Count(ctx context.Context) (int, error) {
	var n int
	if err := db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

func scanEvents(rows pgx.Rows) ([]*event.Event, error) {
	var out []*event.Event
	for rows.Next() {
		var (
			ev      event.Event
			headers []byte
			payload *string
		)
		err := rows.Scan(
			&ev.EventID, &ev.Timestamp, &ev.SourceIP, &ev.Method, &ev.URL,
			&ev.UserAgent, &headers, &payload, &ev.StatusCode, &ev.ResponseSize,
			&ev.AttackType, &ev.IsSuccessful, &ev.Confidence, &ev.RuleHits,
		)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if payload != nil {
			ev.Payload = *payload
		}
		if len(headers) > 0 {
			if err := json.Unmarshal(headers, &ev.Headers); err != nil {
				ev.Headers = map[string]string{}
			}
		}
		ev.Clamp()
		out = append(out, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan events: %w", err)
	}
	return out, nil
}

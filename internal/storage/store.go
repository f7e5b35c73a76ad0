package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Store is the persisted state store: string-keyed get/set/remove of
// serialized values plus the alarm firing log.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
	RecordFiring(ctx context.Context, firing *Firing) error
	RecentFirings(ctx context.Context, since time.Time, limit int) ([]Firing, error)
	PruneFirings(ctx context.Context, olderThan time.Time) (int64, error)
	ClearFirings(ctx context.Context) (int64, error)
	Purge(ctx context.Context, prefix string) error
	Stats(ctx context.Context, prefix string) (*Stats, error)
	Close() error
}

// SQLiteStore implements Store backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB

	// Prepared statements
	getValue     *sql.Stmt
	setValue     *sql.Stmt
	removeValue  *sql.Stmt
	insertFiring *sql.Stmt
}

// NewSQLiteStore creates a new SQLiteStore from an already-opened and migrated database.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}

	if err := s.prepareStatements(); err != nil {
		return nil, fmt.Errorf("prepare statements: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.getValue, err = s.db.Prepare(`SELECT value FROM kv WHERE key = ?`)
	if err != nil {
		return err
	}

	s.setValue, err = s.db.Prepare(`
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return err
	}

	s.removeValue, err = s.db.Prepare(`DELETE FROM kv WHERE key = ?`)
	if err != nil {
		return err
	}

	s.insertFiring, err = s.db.Prepare(`
		INSERT INTO firings (alarm_id, label, trigger_key, ts) VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}

	return nil
}

// formatTimestamp renders t in the fixed-width UTC layout used by the
// firings table so string comparison matches time order.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}

// parseTimestamp tries several common SQLite timestamp formats.
func parseTimestamp(s string) (time.Time, error) {
	formats := []string{
		"2006-01-02T15:04:05Z",
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse timestamp: %s", s)
}

// Get returns the value stored under key. The bool is false when the key
// is absent.
func (s *SQLiteStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.getValue.QueryRowContext(ctx, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key, replacing any previous value.
func (s *SQLiteStore) Set(ctx context.Context, key, value string) error {
	if _, err := s.setValue.ExecContext(ctx, key, value); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Remove deletes key. Removing a missing key is not an error.
func (s *SQLiteStore) Remove(ctx context.Context, key string) error {
	if _, err := s.removeValue.ExecContext(ctx, key); err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

// Keys lists every key starting with prefix, in lexical order.
func (s *SQLiteStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM kv WHERE instr(key, ?) = 1 ORDER BY key`, prefix)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// RecordFiring appends an entry to the firing log. The ID field is populated
// and a zero Timestamp is replaced by the current time.
func (s *SQLiteStore) RecordFiring(ctx context.Context, firing *Firing) error {
	if firing.Timestamp.IsZero() {
		firing.Timestamp = time.Now()
	}

	res, err := s.insertFiring.ExecContext(ctx,
		firing.AlarmID, firing.Label, firing.TriggerKey, formatTimestamp(firing.Timestamp))
	if err != nil {
		return fmt.Errorf("insert firing: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("firing id: %w", err)
	}
	firing.ID = id
	return nil
}

// RecentFirings returns firings at or after since, newest first. A zero
// since returns the whole log; limit <= 0 defaults to 50.
func (s *SQLiteStore) RecentFirings(ctx context.Context, since time.Time, limit int) ([]Firing, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, alarm_id, label, trigger_key, ts FROM firings`
	var args []interface{}
	if !since.IsZero() {
		query += ` WHERE ts >= ?`
		args = append(args, formatTimestamp(since))
	}
	query += ` ORDER BY ts DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query firings: %w", err)
	}
	defer rows.Close()

	var firings []Firing
	for rows.Next() {
		var f Firing
		var tsStr string
		if err := rows.Scan(&f.ID, &f.AlarmID, &f.Label, &f.TriggerKey, &tsStr); err != nil {
			return nil, fmt.Errorf("scan firing: %w", err)
		}
		f.Timestamp, _ = parseTimestamp(tsStr)
		firings = append(firings, f)
	}
	return firings, rows.Err()
}

// PruneFirings deletes firings recorded before olderThan and returns how
// many rows were removed.
func (s *SQLiteStore) PruneFirings(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM firings WHERE ts < ?`, formatTimestamp(olderThan))
	if err != nil {
		return 0, fmt.Errorf("prune firings: %w", err)
	}
	return res.RowsAffected()
}

// ClearFirings deletes the whole firing log.
func (s *SQLiteStore) ClearFirings(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM firings`)
	if err != nil {
		return 0, fmt.Errorf("clear firings: %w", err)
	}
	return res.RowsAffected()
}

// Purge deletes every key under prefix.
func (s *SQLiteStore) Purge(ctx context.Context, prefix string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE instr(key, ?) = 1`, prefix); err != nil {
		return fmt.Errorf("purge keys: %w", err)
	}
	return nil
}

// Stats returns aggregate statistics about the database.
func (s *SQLiteStore) Stats(ctx context.Context, prefix string) (*Stats, error) {
	stats := &Stats{}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM kv WHERE instr(key, ?) = 1`, prefix,
	).Scan(&stats.TotalKeys); err != nil {
		return nil, fmt.Errorf("count keys: %w", err)
	}

	var last sql.NullString
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), MAX(ts) FROM firings`,
	).Scan(&stats.TotalFirings, &last); err != nil {
		return nil, fmt.Errorf("count firings: %w", err)
	}
	if last.Valid {
		stats.LastFiring, _ = parseTimestamp(last.String)
	}

	return stats, nil
}

// Close releases all prepared statements. The underlying *sql.DB is NOT
// closed; that is the caller's responsibility.
func (s *SQLiteStore) Close() error {
	stmts := []*sql.Stmt{s.getValue, s.setValue, s.removeValue, s.insertFiring}
	var errs []error
	for _, stmt := range stmts {
		if stmt == nil {
			continue
		}
		if err := stmt.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

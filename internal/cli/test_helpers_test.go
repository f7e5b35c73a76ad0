package cli

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"os"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/nclock/internal/config"
	"github.com/runnerr0/nclock/internal/storage"
)

var testNow = time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)

// captureOutput captures stdout during fn execution and returns it as a string.
func captureOutput(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

// testConfig is the default config with every side effect outside the
// process switched off.
func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Alerts.Sound = false
	cfg.Alerts.Desktop = false
	cfg.Offline.Port = 0
	return cfg
}

// newTestEnv returns an env backed by a memory store and a fake clock.
func newTestEnv(t *testing.T) (*env, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(testNow)
	e, err := prepare(context.Background(), nil, &env{
		cfg:   testConfig(),
		clock: clock,
		store: storage.NewMemoryStore(),
	})
	require.NoError(t, err)
	return e, clock
}

// newSQLiteTestEnv is newTestEnv over a migrated in-memory database.
func newSQLiteTestEnv(t *testing.T) (*env, *storage.SQLiteStore) {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	runner := storage.NewMigrationRunner(db)
	require.NoError(t, runner.Run())

	store, err := storage.NewSQLiteStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	e, err := prepare(context.Background(), nil, &env{
		cfg:   testConfig(),
		clock: clockwork.NewFakeClockAt(testNow),
		store: store,
	})
	require.NoError(t, err)
	return e, store
}

// seedFirings records count firings of alarmID, each age before testNow.
func seedFirings(t *testing.T, store storage.Store, alarmID, label string, count int, age time.Duration) {
	t.Helper()
	at := testNow.Add(-age)
	for i := 0; i < count; i++ {
		require.NoError(t, store.RecordFiring(context.Background(), &storage.Firing{
			AlarmID:    alarmID,
			Label:      label,
			TriggerKey: at.Format("200601021504"),
			Timestamp:  at.Add(time.Duration(i) * time.Second),
		}))
	}
}

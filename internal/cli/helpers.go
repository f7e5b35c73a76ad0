package cli

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	_ "github.com/mattn/go-sqlite3"

	"github.com/runnerr0/nclock/internal/config"
	"github.com/runnerr0/nclock/internal/display"
	"github.com/runnerr0/nclock/internal/logging"
	"github.com/runnerr0/nclock/internal/state"
	"github.com/runnerr0/nclock/internal/storage"
	"github.com/runnerr0/nclock/internal/widget"
)

// env is everything a command needs. Tests inject a partially filled env;
// prepare fills in the rest.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	clock  clockwork.Clock
	store  storage.Store
	codec  *state.Codec
	widget *widget.Widget
	dbPath string // empty when state is not on disk

	closers []io.Closer
}

// Close releases whatever prepare opened, newest first.
func (e *env) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	e.closers = nil
	return errors.Join(errs...)
}

// prepare completes injected, or builds an env from the config file when
// injected is nil. An unavailable SQLite store degrades to memory.
func prepare(ctx context.Context, globals *GlobalFlags, injected *env) (*env, error) {
	e := injected
	if e == nil {
		e = &env{}
	}
	verbose := globals != nil && globals.Verbose

	if e.cfg == nil {
		cfg, err := loadConfig(globals)
		if err != nil {
			return nil, err
		}
		e.cfg = cfg
	}

	if e.logger == nil {
		if injected != nil {
			e.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		} else {
			dir, err := config.ExpandPath(e.cfg.Storage.Path)
			if err != nil {
				return nil, err
			}
			logger, closer, err := logging.New(e.cfg.Logging, dir, verbose)
			if err != nil {
				return nil, fmt.Errorf("setting up logging: %w", err)
			}
			e.logger = logger
			e.closers = append(e.closers, closer)
		}
	}

	if e.clock == nil {
		e.clock = clockwork.NewRealClock()
	}

	if e.store == nil {
		store, db, dbPath, err := openSQLiteStore(e.cfg)
		if err != nil {
			e.logger.Warn("state store unavailable, keeping state in memory", "error", err)
			e.store = storage.NewMemoryStore()
		} else {
			e.store = store
			e.dbPath = dbPath
			e.closers = append(e.closers, db, store)
		}
	}

	if e.codec == nil {
		e.codec = state.NewCodec(e.store, e.cfg.Storage.KeyPrefix, defaultsFrom(e.cfg))
	}

	if e.widget == nil {
		e.widget = widget.New(e.codec, e.clock, e.logger)
		// Whatever loaded is usable; the failure is already logged.
		_ = e.widget.Load(ctx)
	}

	return e, nil
}

func loadConfig(globals *GlobalFlags) (*config.Config, error) {
	if globals == nil || globals.Config == "" {
		return config.LoadOrCreate()
	}
	path, err := config.ExpandPath(globals.Config)
	if err != nil {
		return nil, err
	}
	return config.LoadOrCreateAt(path)
}

// defaultsFrom seeds state that has never been persisted from the config.
func defaultsFrom(cfg *config.Config) state.Defaults {
	kind, err := display.ParseKind(cfg.Clock.Transform)
	if err != nil {
		kind = display.KindOffset
	}
	lang, err := state.CanonicalLanguage(cfg.Clock.Language)
	if err != nil {
		lang = ""
	}
	return state.Defaults{
		Transform: display.Transform{
			Kind:          kind,
			OffsetMinutes: cfg.Clock.OffsetMinutes,
			HoursPerDay:   display.ClampHours(cfg.Clock.HoursPerDay),
			ShowSeconds:   cfg.Clock.ShowSeconds,
		},
		Language: lang,
	}
}

// openSQLiteStore opens the configured database, runs migrations, and
// returns a ready-to-use store and the underlying *sql.DB.
func openSQLiteStore(cfg *config.Config) (*storage.SQLiteStore, *sql.DB, string, error) {
	dbPath, err := cfg.DatabasePath()
	if err != nil {
		return nil, nil, "", err
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, nil, "", fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, nil, "", fmt.Errorf("open database: %w", err)
	}

	runner := storage.NewMigrationRunner(db)
	runner.JournalMode = cfg.Storage.SQLiteJournalMode
	if err := runner.Run(); err != nil {
		db.Close()
		return nil, nil, "", fmt.Errorf("run migrations: %w", err)
	}

	store, err := storage.NewSQLiteStore(db)
	if err != nil {
		db.Close()
		return nil, nil, "", fmt.Errorf("create store: %w", err)
	}

	return store, db, dbPath, nil
}

// confirm asks the user to type word and fails unless they do.
func confirm(in io.Reader, word string) error {
	if in == nil {
		in = os.Stdin
	}
	fmt.Printf("Type %q to confirm: ", word)

	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return fmt.Errorf("aborted: no input received")
	}
	if strings.TrimSpace(scanner.Text()) != word {
		return fmt.Errorf("aborted: confirmation text did not match")
	}
	return nil
}

// writeJSON prints v as indented JSON on stdout.
func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseDuration parses a human-friendly duration string like "30d", "7d", "24h", "2w".
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("invalid duration: empty string")
	}

	if len(s) < 2 {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}

	suffix := s[len(s)-1]
	numStr := s[:len(s)-1]

	n, err := strconv.Atoi(numStr)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}

	switch suffix {
	case 'd':
		return time.Duration(n) * 24 * time.Hour, nil
	case 'h':
		return time.Duration(n) * time.Hour, nil
	case 'w':
		return time.Duration(n) * 7 * 24 * time.Hour, nil
	case 'm':
		return time.Duration(n) * time.Minute, nil
	case 's':
		return time.Duration(n) * time.Second, nil
	default:
		return 0, fmt.Errorf("invalid duration: %q (use d, h, w, m or s suffix)", s)
	}
}

// formatDurationHuman formats a duration into a human-readable string like "30 days".
func formatDurationHuman(d time.Duration) string {
	days := int(d.Hours() / 24)
	if days > 0 {
		if days == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", days)
	}
	hours := int(d.Hours())
	if hours > 0 {
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	return d.String()
}

// Package ucihistory provides a durable, queryable record of every delta
// that has crossed into a package's save file, backed by a SQLite database
// in WAL mode. It implements uci.Context's History interface: an
// OpenStore/pragma/idempotent-schema shape built around a single
// append-only table.
package ucihistory

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/uci-go/uci/internal/uci/delta"
	"github.com/uci-go/uci/internal/uci/model"
)

// Store persists a log of committed/saved deltas in a dedicated SQLite
// database, independent of any backend's own save files.
type Store struct {
	conn   *sql.DB
	logger *slog.Logger
	dbPath string
}

// Open opens or creates the history database at <dir>/history.db, enabling
// WAL journaling and a busy timeout so concurrent uci processes don't
// collide on a writer lock.
func Open(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	dbPath := filepath.Join(dir, "history.db")
	existed := fileExists(dbPath)

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	s := &Store{conn: conn, logger: logger, dbPath: dbPath}
	if !existed {
		logger.Info("creating history database", "path", dbPath)
		if err := s.initSchema(); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("initializing history schema: %w", err)
		}
	}
	return s, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (s *Store) initSchema() error {
	const schema = `
		CREATE TABLE IF NOT EXISTS deltas (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			package TEXT NOT NULL,
			command INTEGER NOT NULL,
			section TEXT NOT NULL,
			option TEXT,
			value TEXT,
			has_option INTEGER NOT NULL,
			has_value INTEGER NOT NULL,
			line TEXT NOT NULL,
			recorded_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
		);
		CREATE INDEX IF NOT EXISTS idx_deltas_package ON deltas(package);
		CREATE INDEX IF NOT EXISTS idx_deltas_recorded_at ON deltas(recorded_at DESC);
	`
	_, err := s.conn.Exec(schema)
	return err
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// Record appends entry to the history log for pkgName, satisfying
// uci.Context's History interface. It never mutates entry or the package;
// failures here are meant to be logged and swallowed by the caller rather
// than aborting a commit.
func (s *Store) Record(pkgName string, entry model.DeltaEntry) error {
	line, err := delta.Encode(pkgName, entry)
	if err != nil {
		line = ""
	}

	var option, value sql.NullString
	if entry.HasOption {
		option = sql.NullString{String: entry.Option, Valid: true}
	}
	if entry.HasValue {
		value = sql.NullString{String: entry.Value, Valid: true}
	}

	_, err = s.conn.Exec(
		`INSERT INTO deltas (package, command, section, option, value, has_option, has_value, line)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		pkgName,
		int(entry.Command),
		entry.Section,
		option,
		value,
		boolToInt(entry.HasOption),
		boolToInt(entry.HasValue),
		line,
	)
	if err != nil {
		return fmt.Errorf("recording delta for package %s: %w", pkgName, err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Record is a row read back from the history log, with its recorded
// timestamp and rendered save-file line alongside the decoded entry.
type Record struct {
	ID         int64
	Package    string
	Entry      model.DeltaEntry
	Line       string
	RecordedAt string
}

// ListOptions filters and paginates a History query.
type ListOptions struct {
	Package string // empty means all packages
	Limit   int    // <= 0 defaults to 100, capped at 1000
	Offset  int
}

// List returns the most recently recorded deltas matching opts, newest
// first, for the `uci changes --all` CLI surface.
func (s *Store) List(opts ListOptions) ([]Record, error) {
	var conditions []string
	var args []interface{}
	if opts.Package != "" {
		conditions = append(conditions, "package = ?")
		args = append(args, opts.Package)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}
	args = append(args, limit, opts.Offset)

	query := fmt.Sprintf(`
		SELECT id, package, command, section, option, value, has_option, has_value, line, recorded_at
		FROM deltas %s
		ORDER BY id DESC
		LIMIT ? OFFSET ?
	`, where)

	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Record
	for rows.Next() {
		var (
			r             Record
			option, value sql.NullString
			hasOption     int
			hasValue      int
			command       int
		)
		if err := rows.Scan(&r.ID, &r.Package, &command, &r.Entry.Section, &option, &value, &hasOption, &hasValue, &r.Line, &r.RecordedAt); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		r.Entry.Command = model.DeltaCommand(command)
		r.Entry.HasOption = hasOption != 0
		r.Entry.HasValue = hasValue != 0
		if option.Valid {
			r.Entry.Option = option.String
		}
		if value.Valid {
			r.Entry.Value = value.String
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading history rows: %w", err)
	}
	return out, nil
}

// Prune deletes every history row for pkgName, for `uci` cleanup paths that
// want to reset a package's history without dropping the whole database.
func (s *Store) Prune(pkgName string) (int64, error) {
	res, err := s.conn.Exec(`DELETE FROM deltas WHERE package = ?`, pkgName)
	if err != nil {
		return 0, fmt.Errorf("pruning history for package %s: %w", pkgName, err)
	}
	return res.RowsAffected()
}

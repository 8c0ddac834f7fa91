package archive

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/frontmesh/crossbus/internal/models"
)

// SQLiteArchive mirrors records into a local SQLite database.
type SQLiteArchive struct {
	db *sql.DB
}

// NewSQLiteArchive opens (or creates) the archive database.
// If dbPath is empty, defaults to "./data/crossbus.db"
func NewSQLiteArchive(ctx context.Context, dbPath string) (*SQLiteArchive, error) {
	if dbPath == "" {
		dbPath = "./data/crossbus.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	a := &SQLiteArchive{db: db}

	if err := a.initSchema(ctx); err != nil {
		return nil, err
	}

	return a, nil
}

// initSchema creates the records table if it doesn't exist.
func (a *SQLiteArchive) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		target TEXT NOT NULL,
		type TEXT NOT NULL,
		payload BLOB,
		ts INTEGER NOT NULL,
		seq INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_records_target ON records(target);
	CREATE INDEX IF NOT EXISTS idx_records_ts ON records(ts);
	`

	_, err := a.db.ExecContext(ctx, schema)
	return err
}

// Name identifies the backend.
func (a *SQLiteArchive) Name() string {
	return "sqlite"
}

// Close closes the database connection.
func (a *SQLiteArchive) Close() {
	a.db.Close()
}

// Ping checks the database connection.
func (a *SQLiteArchive) Ping(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

// Append mirrors one record.
func (a *SQLiteArchive) Append(ctx context.Context, rec *models.Record) error {
	_, err := a.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO records (id, source, target, type, payload, ts, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Source, rec.Target, rec.Type, []byte(rec.Payload), rec.Timestamp, rec.Seq)
	return err
}

// Recent returns up to limit mirrored records, newest first.
func (a *SQLiteArchive) Recent(ctx context.Context, limit int) ([]models.Record, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := a.db.QueryContext(ctx, `
		SELECT id, source, target, type, payload, ts, seq
		FROM records ORDER BY seq DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRecords(rows)
}

// RecentForTarget returns up to limit mirrored records addressed to
// target, newest first.
func (a *SQLiteArchive) RecentForTarget(ctx context.Context, target string, limit int) ([]models.Record, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := a.db.QueryContext(ctx, `
		SELECT id, source, target, type, payload, ts, seq
		FROM records WHERE target = ? ORDER BY seq DESC LIMIT ?
	`, target, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRecords(rows)
}

// CountRecords returns the total number of mirrored records.
func (a *SQLiteArchive) CountRecords(ctx context.Context) (int64, error) {
	var count int64
	err := a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&count)
	return count, err
}

func scanRecords(rows *sql.Rows) ([]models.Record, error) {
	records := make([]models.Record, 0)
	for rows.Next() {
		var rec models.Record
		var payload []byte
		if err := rows.Scan(&rec.ID, &rec.Source, &rec.Target, &rec.Type, &payload, &rec.Timestamp, &rec.Seq); err != nil {
			return nil, err
		}
		rec.Payload = payload
		records = append(records, rec)
	}
	return records, rows.Err()
}

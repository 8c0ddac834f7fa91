package archive

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/frontmesh/crossbus/internal/models"
)

// PostgresArchive mirrors records into PostgreSQL via a connection pool.
type PostgresArchive struct {
	pool *pgxpool.Pool
}

// NewPostgresArchive creates a PostgreSQL archive with a connection pool.
func NewPostgresArchive(ctx context.Context, databaseURL string) (*PostgresArchive, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	a := &PostgresArchive{pool: pool}

	if err := a.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return a, nil
}

// initSchema creates the records table if it doesn't exist.
func (a *PostgresArchive) initSchema(ctx context.Context) error {
	_, err := a.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS records (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			target TEXT NOT NULL,
			type TEXT NOT NULL,
			payload BYTEA,
			ts BIGINT NOT NULL,
			seq BIGINT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_records_target ON records(target);
		CREATE INDEX IF NOT EXISTS idx_records_ts ON records(ts);
	`)
	return err
}

// Name identifies the backend.
func (a *PostgresArchive) Name() string {
	return "postgres"
}

// Close closes the connection pool.
func (a *PostgresArchive) Close() {
	a.pool.Close()
}

// Ping checks the database connection.
func (a *PostgresArchive) Ping(ctx context.Context) error {
	return a.pool.Ping(ctx)
}

// Append mirrors one record.
func (a *PostgresArchive) Append(ctx context.Context, rec *models.Record) error {
	_, err := a.pool.Exec(ctx, `
		INSERT INTO records (id, source, target, type, payload, ts, seq)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`, rec.ID, rec.Source, rec.Target, rec.Type, []byte(rec.Payload), rec.Timestamp, rec.Seq)
	return err
}

// Recent returns up to limit mirrored records, newest first.
func (a *PostgresArchive) Recent(ctx context.Context, limit int) ([]models.Record, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := a.pool.Query(ctx, `
		SELECT id, source, target, type, payload, ts, seq
		FROM records ORDER BY seq DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

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

// RecentForTarget returns up to limit mirrored records addressed to
// target, newest first.
func (a *PostgresArchive) RecentForTarget(ctx context.Context, target string, limit int) ([]models.Record, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := a.pool.Query(ctx, `
		SELECT id, source, target, type, payload, ts, seq
		FROM records WHERE target = $1 ORDER BY seq DESC LIMIT $2
	`, target, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

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

// CountRecords returns the total number of mirrored records.
func (a *PostgresArchive) CountRecords(ctx context.Context) (int64, error) {
	var count int64
	err := a.pool.QueryRow(ctx, `SELECT COUNT(*) FROM records`).Scan(&count)
	return count, err
}

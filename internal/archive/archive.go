package archive

import (
	"context"

	"github.com/frontmesh/crossbus/internal/models"
)

// Archive is a best-effort mirror of the in-memory record log. The log is
// always the source of truth; an archive exists so record history can be
// inspected out of band and survives restarts. Append failures must never
// gate a publish. SQLiteArchive, PostgresArchive, and RedisArchive
// implement this interface.
type Archive interface {
	// Append mirrors one appended record.
	Append(ctx context.Context, rec *models.Record) error

	// Recent returns up to limit mirrored records, newest first.
	Recent(ctx context.Context, limit int) ([]models.Record, error)

	// RecentForTarget returns up to limit mirrored records addressed to
	// target, newest first.
	RecentForTarget(ctx context.Context, target string, limit int) ([]models.Record, error)

	// CountRecords returns the total number of mirrored records.
	CountRecords(ctx context.Context) (int64, error)

	// Connection management
	Ping(ctx context.Context) error
	Close()

	// Name identifies the backend in logs and metrics.
	Name() string
}

package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/rpattn/verledger/internal/domain"
)

// RowMutator is the mutation half of the persistence engine: plain row DML
// against tracked tables, always scoped to the caller's transaction. Every
// write round-trips the persisted row so callers can capture post-mutation
// state.
type RowMutator interface {
	Insert(ctx context.Context, tx pgx.Tx, table string, attrs map[string]any) (map[string]any, error)
	Update(ctx context.Context, tx pgx.Tx, table string, id int64, changes map[string]any) (map[string]any, error)
	Delete(ctx context.Context, tx pgx.Tx, table string, id int64) (map[string]any, error)
	InsertAll(ctx context.Context, tx pgx.Tx, table string, rows []map[string]any) ([]map[string]any, error)
	UpdateAll(ctx context.Context, tx pgx.Tx, table string, predicate domain.Predicate, set map[string]any) (int64, error)
	NextID(ctx context.Context, tx pgx.Tx, table string) (int64, error)
}

// ProjectionPlan describes a bulk version projection: one version row per
// record matched by the predicate, computed inside the database before the
// bulk mutation itself runs.
type ProjectionPlan struct {
	Table     string
	ItemType  string
	Event     domain.Event
	Predicate domain.Predicate
	Changes   map[string]any
	// Snapshot merges the matched row's full state into the payload,
	// used for soft deletes where the event records a snapshot.
	Snapshot  bool
	Options   domain.CaptureOptions
	Returning bool
}

// VersionRepository persists and reads ledger rows. Writes are transaction
// scoped; reads run against the pool.
type VersionRepository interface {
	Insert(ctx context.Context, tx pgx.Tx, version domain.Version) (domain.Version, error)
	InsertReserved(ctx context.Context, tx pgx.Tx, id int64, version domain.Version) (domain.Version, error)
	PatchChanges(ctx context.Context, tx pgx.Tx, id int64, changes map[string]any) (domain.Version, error)
	InsertProjected(ctx context.Context, tx pgx.Tx, plan ProjectionPlan) ([]domain.Version, int64, error)
	NextID(ctx context.Context, tx pgx.Tx) (int64, error)

	GetByID(ctx context.Context, id int64) (domain.Version, error)
	ListForItem(ctx context.Context, itemType string, itemID int64) ([]domain.Version, error)
	FirstForItem(ctx context.Context, itemType string, itemID int64) (domain.Version, error)
	LastForItem(ctx context.Context, itemType string, itemID int64) (domain.Version, error)
	CountForItem(ctx context.Context, itemType string, itemID int64) (int64, error)
}

package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rpattn/verledger/internal/domain"
)

const versionColumns = "id, event, item_type, item_id, item_changes, originator_id, origin, meta, inserted_at"

// versionRepository implements VersionRepository against the versions table.
type versionRepository struct {
	pool *pgxpool.Pool
}

// NewVersionRepository creates a new ledger repository.
func NewVersionRepository(pool *pgxpool.Pool) VersionRepository {
	return &versionRepository{pool: pool}
}

// Insert appends one version row, letting the sequence assign its id.
func (r *versionRepository) Insert(ctx context.Context, tx pgx.Tx, version domain.Version) (domain.Version, error) {
	changesJSON, metaJSON, err := encodePayload(&version)
	if err != nil {
		return domain.Version{}, err
	}

	row := tx.QueryRow(ctx,
		`INSERT INTO versions (event, item_type, item_id, item_changes, originator_id, origin, meta)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+versionColumns,
		version.Event, version.ItemType, version.ItemID, changesJSON, version.OriginatorID, version.Origin, metaJSON,
	)
	inserted, err := scanVersion(row)
	if err != nil {
		return domain.Version{}, fmt.Errorf("failed to insert version: %w", err)
	}
	return inserted, nil
}

// InsertReserved appends a version row under a previously reserved id. Used
// by the strict-mode link protocol, which needs the id before the tracked
// record exists.
func (r *versionRepository) InsertReserved(ctx context.Context, tx pgx.Tx, id int64, version domain.Version) (domain.Version, error) {
	changesJSON, metaJSON, err := encodePayload(&version)
	if err != nil {
		return domain.Version{}, err
	}

	row := tx.QueryRow(ctx,
		`INSERT INTO versions (id, event, item_type, item_id, item_changes, originator_id, origin, meta)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+versionColumns,
		id, version.Event, version.ItemType, version.ItemID, changesJSON, version.OriginatorID, version.Origin, metaJSON,
	)
	inserted, err := scanVersion(row)
	if err != nil {
		return domain.Version{}, fmt.Errorf("failed to insert reserved version %d: %w", id, err)
	}
	return inserted, nil
}

// PatchChanges rewrites a version's item_changes. Only the strict-mode
// finalize step may call this, inside the transaction that created the row.
func (r *versionRepository) PatchChanges(ctx context.Context, tx pgx.Tx, id int64, changes map[string]any) (domain.Version, error) {
	changesJSON, err := json.Marshal(changes)
	if err != nil {
		return domain.Version{}, fmt.Errorf("failed to marshal item changes: %w", err)
	}

	row := tx.QueryRow(ctx,
		"UPDATE versions SET item_changes = $2 WHERE id = $1 RETURNING "+versionColumns,
		id, changesJSON,
	)
	patched, err := scanVersion(row)
	if err != nil {
		return domain.Version{}, fmt.Errorf("failed to finalize version %d: %w", id, err)
	}
	return patched, nil
}

// InsertProjected appends one version per row matched by the plan's
// predicate, computing payloads inside the database so the versions are
// durable before the bulk mutation they describe.
func (r *versionRepository) InsertProjected(ctx context.Context, tx pgx.Tx, plan ProjectionPlan) ([]domain.Version, int64, error) {
	changesJSON, err := json.Marshal(plan.Changes)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to marshal projected changes: %w", err)
	}
	var metaJSON json.RawMessage
	if plan.Options.Meta != nil {
		metaJSON, err = json.Marshal(plan.Options.Meta)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to marshal version meta: %w", err)
		}
	}

	args := []any{plan.Event, plan.ItemType, changesJSON, plan.Options.OriginatorID, plan.Options.Origin, metaJSON}
	payload := "$3::jsonb"
	if plan.Snapshot {
		payload = "to_jsonb(t) || $3::jsonb"
	}

	where, err := renderPredicate(plan.Predicate, "t", &args)
	if err != nil {
		return nil, 0, fmt.Errorf("projected version insert: %w", err)
	}

	var builder strings.Builder
	builder.WriteString("INSERT INTO versions (event, item_type, item_id, item_changes, originator_id, origin, meta)\n")
	builder.WriteString(fmt.Sprintf("SELECT $1, $2, t.id, %s, $4, $5, $6 FROM %s AS t WHERE %s", payload, quoteIdent(plan.Table), where))

	if !plan.Returning {
		tag, err := tx.Exec(ctx, builder.String(), args...)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to project versions for %s: %w", plan.Table, err)
		}
		return nil, tag.RowsAffected(), nil
	}

	builder.WriteString(" RETURNING " + versionColumns)
	rows, err := tx.Query(ctx, builder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to project versions for %s: %w", plan.Table, err)
	}
	defer rows.Close()

	versions, err := collectVersions(rows)
	if err != nil {
		return nil, 0, err
	}
	return versions, int64(len(versions)), nil
}

// NextID reserves the next ledger id from the versions sequence.
func (r *versionRepository) NextID(ctx context.Context, tx pgx.Tx) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx, "SELECT nextval(pg_get_serial_sequence('versions', 'id'))").Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to reserve next version id: %w", err)
	}
	return id, nil
}

// GetByID retrieves one version.
func (r *versionRepository) GetByID(ctx context.Context, id int64) (domain.Version, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+versionColumns+" FROM versions WHERE id = $1", id)
	version, err := scanVersion(row)
	if err != nil {
		return domain.Version{}, fmt.Errorf("failed to get version %d: %w", id, err)
	}
	return version, nil
}

// ListForItem returns every version recorded for one tracked record, oldest
// first. Walking this list reconstructs the record's full history.
func (r *versionRepository) ListForItem(ctx context.Context, itemType string, itemID int64) ([]domain.Version, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT "+versionColumns+" FROM versions WHERE item_type = $1 AND item_id = $2 ORDER BY id",
		itemType, itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions for %s %d: %w", itemType, itemID, err)
	}
	defer rows.Close()

	return collectVersions(rows)
}

// FirstForItem returns the oldest version recorded for a tracked record.
func (r *versionRepository) FirstForItem(ctx context.Context, itemType string, itemID int64) (domain.Version, error) {
	return r.boundaryForItem(ctx, itemType, itemID, "ASC")
}

// LastForItem returns the most recent version recorded for a tracked record.
func (r *versionRepository) LastForItem(ctx context.Context, itemType string, itemID int64) (domain.Version, error) {
	return r.boundaryForItem(ctx, itemType, itemID, "DESC")
}

func (r *versionRepository) boundaryForItem(ctx context.Context, itemType string, itemID int64, direction string) (domain.Version, error) {
	row := r.pool.QueryRow(ctx,
		"SELECT "+versionColumns+" FROM versions WHERE item_type = $1 AND item_id = $2 ORDER BY id "+direction+" LIMIT 1",
		itemType, itemID,
	)
	version, err := scanVersion(row)
	if err != nil {
		return domain.Version{}, fmt.Errorf("failed to get boundary version for %s %d: %w", itemType, itemID, err)
	}
	return version, nil
}

// CountForItem returns the number of versions recorded for a tracked record.
func (r *versionRepository) CountForItem(ctx context.Context, itemType string, itemID int64) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM versions WHERE item_type = $1 AND item_id = $2",
		itemType, itemID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count versions for %s %d: %w", itemType, itemID, err)
	}
	return count, nil
}

func encodePayload(version *domain.Version) (json.RawMessage, json.RawMessage, error) {
	changesJSON, err := version.ChangesAsJSONB()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal item changes: %w", err)
	}
	metaJSON, err := version.MetaAsJSONB()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal version meta: %w", err)
	}
	return changesJSON, metaJSON, nil
}

func scanVersion(row pgx.Row) (domain.Version, error) {
	var (
		version      domain.Version
		changesJSON  json.RawMessage
		metaJSON     json.RawMessage
		originatorID *uuid.UUID
		origin       pgtype.Text
	)

	err := row.Scan(
		&version.ID, &version.Event, &version.ItemType, &version.ItemID,
		&changesJSON, &originatorID, &origin, &metaJSON, &version.InsertedAt,
	)
	if err != nil {
		return domain.Version{}, err
	}

	version.ItemChanges, err = domain.FromJSONBChanges(changesJSON)
	if err != nil {
		return domain.Version{}, err
	}
	if metaJSON != nil {
		version.Meta, err = domain.FromJSONBChanges(metaJSON)
		if err != nil {
			return domain.Version{}, err
		}
	}
	version.OriginatorID = originatorID
	if origin.Valid {
		version.Origin = &origin.String
	}

	return version, nil
}

func collectVersions(rows pgx.Rows) ([]domain.Version, error) {
	versions := []domain.Version{}
	for rows.Next() {
		version, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan version row: %w", err)
		}
		versions = append(versions, version)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read version rows: %w", err)
	}
	return versions, nil
}

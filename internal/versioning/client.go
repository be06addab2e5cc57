package versioning

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rpattn/verledger/internal/db"
	"github.com/rpattn/verledger/internal/domain"
	"github.com/rpattn/verledger/internal/repository"
)

// TxRunner provides the atomic transaction boundary every mutation plan runs
// under. db.Connection satisfies it.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(pgx.Tx) error) error
}

// Client is the transactional version-composition engine. Every mutation of
// a tracked record runs as an ordered plan of named steps committed in one
// transaction: the record mutation and its version row are durable together
// or not at all.
type Client struct {
	conn    TxRunner
	mutator repository.RowMutator
	ledger  repository.VersionRepository
	config  Config
	now     func() time.Time
}

// NewClient creates an engine over the given connection with the default
// pgx-backed persistence.
func NewClient(conn *db.Connection, config Config) *Client {
	return New(conn, repository.NewRowMutator(), repository.NewVersionRepository(conn.Pool), config)
}

// New creates an engine with explicit persistence collaborators.
func New(conn TxRunner, mutator repository.RowMutator, ledger repository.VersionRepository, config Config) *Client {
	return &Client{
		conn:    conn,
		mutator: mutator,
		ledger:  ledger,
		config:  config,
		now:     time.Now,
	}
}

// Insert persists a new record and its insert version atomically.
func (c *Client) Insert(ctx context.Context, changeset domain.ChangeSet, opts ...Option) (Result, error) {
	cfg := resolve(ctx, c.config, opts)
	if !changeset.Valid() {
		return Result{}, &StepError{Step: cfg.ModelKey, Err: changeset.ErrorValue(), Completed: map[string]any{}}
	}
	if cfg.Strict {
		return c.strictInsert(ctx, cfg, changeset)
	}

	steps := []step{
		{
			name: cfg.ModelKey,
			run: func(ctx context.Context, tx pgx.Tx, _ map[string]any) (any, error) {
				return c.mutator.Insert(ctx, tx, changeset.Table, changeset.Applied())
			},
		},
		{
			name: cfg.VersionKey,
			run: func(ctx context.Context, tx pgx.Tx, completed map[string]any) (any, error) {
				persisted, err := persistedModel(completed, cfg.ModelKey)
				if err != nil {
					return nil, err
				}
				version, err := domain.CaptureSnapshot(domain.EventInsert, changeset.Table, changeset.ItemType, persisted, cfg.captureOptions())
				if err != nil {
					return nil, err
				}
				return c.ledger.Insert(ctx, tx, version)
			},
		},
	}

	return c.runPlan(ctx, cfg, steps)
}

// Update persists a changeset and its update version atomically. An empty
// change mapping is a documented no-op: the record is untouched, no version
// is emitted, and the call succeeds.
func (c *Client) Update(ctx context.Context, changeset domain.ChangeSet, opts ...Option) (Result, error) {
	cfg := resolve(ctx, c.config, opts)
	if !changeset.Valid() {
		return Result{}, &StepError{Step: cfg.ModelKey, Err: changeset.ErrorValue(), Completed: map[string]any{}}
	}
	if changeset.NoChanges() {
		return newResult(cfg, map[string]any{cfg.ModelKey: changeset.Applied()}), nil
	}
	if cfg.Strict {
		return c.strictUpdate(ctx, cfg, changeset)
	}

	itemID, ok := changeset.ItemID()
	if !ok {
		return Result{}, fmt.Errorf("cannot update %s: changeset base has no id", changeset.ItemType)
	}

	steps := []step{
		{
			name: cfg.ModelKey,
			run: func(ctx context.Context, tx pgx.Tx, _ map[string]any) (any, error) {
				return c.mutator.Update(ctx, tx, changeset.Table, itemID, changeset.Changes)
			},
		},
		{
			name: cfg.VersionKey,
			run: func(ctx context.Context, tx pgx.Tx, _ map[string]any) (any, error) {
				version, err := domain.Capture(domain.EventUpdate, changeset, cfg.captureOptions())
				if err != nil {
					return nil, err
				}
				return c.ledger.Insert(ctx, tx, version)
			},
		},
	}

	return c.runPlan(ctx, cfg, steps)
}

// Delete removes a record and records its full pre-delete snapshot
// atomically.
func (c *Client) Delete(ctx context.Context, changeset domain.ChangeSet, opts ...Option) (Result, error) {
	cfg := resolve(ctx, c.config, opts)
	if !changeset.Valid() {
		return Result{}, &StepError{Step: cfg.ModelKey, Err: changeset.ErrorValue(), Completed: map[string]any{}}
	}

	itemID, ok := changeset.ItemID()
	if !ok {
		return Result{}, fmt.Errorf("cannot delete %s: changeset base has no id", changeset.ItemType)
	}

	steps := []step{
		{
			name: cfg.ModelKey,
			run: func(ctx context.Context, tx pgx.Tx, _ map[string]any) (any, error) {
				return c.mutator.Delete(ctx, tx, changeset.Table, itemID)
			},
		},
		{
			name: cfg.VersionKey,
			run: func(ctx context.Context, tx pgx.Tx, completed map[string]any) (any, error) {
				removed, err := persistedModel(completed, cfg.ModelKey)
				if err != nil {
					return nil, err
				}
				version, err := domain.CaptureSnapshot(domain.EventDelete, changeset.Table, changeset.ItemType, removed, cfg.captureOptions())
				if err != nil {
					return nil, err
				}
				return c.ledger.Insert(ctx, tx, version)
			},
		},
	}

	return c.runPlan(ctx, cfg, steps)
}

// SoftDelete marks a record deleted by setting its deleted_at timestamp and
// records a full snapshot of the marked record.
func (c *Client) SoftDelete(ctx context.Context, changeset domain.ChangeSet, opts ...Option) (Result, error) {
	cfg := resolve(ctx, c.config, opts)
	if !changeset.Valid() {
		return Result{}, &StepError{Step: cfg.ModelKey, Err: changeset.ErrorValue(), Completed: map[string]any{}}
	}

	itemID, ok := changeset.ItemID()
	if !ok {
		return Result{}, fmt.Errorf("cannot soft delete %s: changeset base has no id", changeset.ItemType)
	}
	marked := changeset.WithChanges(map[string]any{domain.SoftDeleteAttr: c.now().UTC()})

	steps := []step{
		{
			name: cfg.ModelKey,
			run: func(ctx context.Context, tx pgx.Tx, _ map[string]any) (any, error) {
				return c.mutator.Update(ctx, tx, marked.Table, itemID, marked.Changes)
			},
		},
		{
			name: cfg.VersionKey,
			run: func(ctx context.Context, tx pgx.Tx, completed map[string]any) (any, error) {
				persisted, err := persistedModel(completed, cfg.ModelKey)
				if err != nil {
					return nil, err
				}
				version, err := domain.CaptureSnapshot(domain.EventSoftDelete, marked.Table, marked.ItemType, persisted, cfg.captureOptions())
				if err != nil {
					return nil, err
				}
				return c.ledger.Insert(ctx, tx, version)
			},
		},
	}

	return c.runPlan(ctx, cfg, steps)
}

// Versions lists every version recorded for one tracked record, oldest
// first.
func (c *Client) Versions(ctx context.Context, itemType string, itemID int64) ([]domain.Version, error) {
	return c.ledger.ListForItem(ctx, itemType, itemID)
}

// VersionByID fetches a single ledger entry.
func (c *Client) VersionByID(ctx context.Context, id int64) (domain.Version, error) {
	return c.ledger.GetByID(ctx, id)
}

// FirstVersion returns the oldest version recorded for a tracked record.
func (c *Client) FirstVersion(ctx context.Context, itemType string, itemID int64) (domain.Version, error) {
	return c.ledger.FirstForItem(ctx, itemType, itemID)
}

// LastVersion returns the newest version recorded for a tracked record.
func (c *Client) LastVersion(ctx context.Context, itemType string, itemID int64) (domain.Version, error) {
	return c.ledger.LastForItem(ctx, itemType, itemID)
}

func persistedModel(completed map[string]any, modelKey string) (map[string]any, error) {
	value, ok := completed[modelKey]
	if !ok {
		return nil, fmt.Errorf("step %q did not run before the version step", modelKey)
	}
	attrs, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("step %q did not produce a persisted record", modelKey)
	}
	return attrs, nil
}

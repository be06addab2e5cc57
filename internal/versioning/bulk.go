package versioning

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/rpattn/verledger/internal/domain"
	"github.com/rpattn/verledger/internal/repository"
)

// InsertAll persists a batch of rows and one insert version per persisted
// row, all in one transaction. Each row's version is addressable in the
// result under "<version_key>_<row id>". Rows the batch primitive returns
// without an identifier produce no version; that is a documented limitation,
// not an error.
func (c *Client) InsertAll(ctx context.Context, table, itemType string, rows []map[string]any, opts ...Option) (Result, error) {
	cfg := resolve(ctx, c.config, opts)
	if cfg.Strict {
		return Result{}, ErrStrictBulk
	}

	steps := []step{
		{
			name: cfg.ModelKey,
			run: func(ctx context.Context, tx pgx.Tx, _ map[string]any) (any, error) {
				persisted, err := c.mutator.InsertAll(ctx, tx, table, rows)
				if err != nil {
					return nil, err
				}
				return persisted, nil
			},
		},
		{
			name: cfg.VersionKey,
			run: func(ctx context.Context, tx pgx.Tx, completed map[string]any) (any, error) {
				persisted, ok := completed[cfg.ModelKey].([]map[string]any)
				if !ok {
					return nil, fmt.Errorf("step %q did not produce persisted rows", cfg.ModelKey)
				}

				versions := fanout{}
				for _, row := range persisted {
					id, ok := domain.AttributeID(row)
					if !ok {
						continue
					}
					version, err := domain.CaptureSnapshot(domain.EventInsert, table, itemType, row, cfg.captureOptions())
					if err != nil {
						return nil, err
					}
					inserted, err := c.ledger.Insert(ctx, tx, version)
					if err != nil {
						return nil, fmt.Errorf("version for row %d: %w", id, err)
					}
					versions[fmt.Sprintf("%s_%d", cfg.VersionKey, id)] = inserted
				}
				return versions, nil
			},
		},
	}

	return c.runPlan(ctx, cfg, steps)
}

// UpdateAll applies a set map to every row matching the predicate. The
// versions are projected and inserted from the rows' pre-update state first,
// then the bulk update runs, so a committed record mutation is never durable
// before its version is.
func (c *Client) UpdateAll(ctx context.Context, table, itemType string, predicate domain.Predicate, set map[string]any, opts ...Option) (Result, error) {
	cfg := resolve(ctx, c.config, opts)
	if cfg.Strict {
		return Result{}, ErrStrictBulk
	}

	return c.bulkMutate(ctx, cfg, repository.ProjectionPlan{
		Table:     table,
		ItemType:  itemType,
		Event:     domain.EventUpdate,
		Predicate: predicate,
		Changes:   set,
		Options:   cfg.captureOptions(),
		Returning: cfg.ReturnInserted,
	}, set)
}

// SoftDeleteAll soft-marks every row matching the predicate, recording a
// full snapshot per row as its version payload.
func (c *Client) SoftDeleteAll(ctx context.Context, table, itemType string, predicate domain.Predicate, opts ...Option) (Result, error) {
	cfg := resolve(ctx, c.config, opts)
	if cfg.Strict {
		return Result{}, ErrStrictBulk
	}

	set := map[string]any{domain.SoftDeleteAttr: c.now().UTC()}
	return c.bulkMutate(ctx, cfg, repository.ProjectionPlan{
		Table:     table,
		ItemType:  itemType,
		Event:     domain.EventSoftDelete,
		Predicate: predicate,
		Changes:   set,
		Snapshot:  true,
		Options:   cfg.captureOptions(),
		Returning: cfg.ReturnInserted,
	}, set)
}

func (c *Client) bulkMutate(ctx context.Context, cfg Config, plan repository.ProjectionPlan, set map[string]any) (Result, error) {
	steps := []step{
		{
			name: cfg.VersionKey,
			run: func(ctx context.Context, tx pgx.Tx, _ map[string]any) (any, error) {
				versions, count, err := c.ledger.InsertProjected(ctx, tx, plan)
				if err != nil {
					return nil, err
				}
				if plan.Returning {
					return versions, nil
				}
				return count, nil
			},
		},
		{
			name: cfg.ModelKey,
			run: func(ctx context.Context, tx pgx.Tx, _ map[string]any) (any, error) {
				return c.mutator.UpdateAll(ctx, tx, plan.Table, plan.Predicate, set)
			},
		},
	}

	return c.runPlan(ctx, cfg, steps)
}

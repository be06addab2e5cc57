package versioning

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/rpattn/verledger/internal/domain"
)

// Bookkeeping step names for the strict-mode link protocol. These never
// appear in results or surfaced errors.
const (
	reserveStep        = "__reserve"
	initialVersionStep = "__initial_version"
)

// reservation holds the identifiers handed out by the sequences ahead of
// insertion.
type reservation struct {
	versionID int64
	itemID    int64
}

// strictInsert runs the three-phase link protocol for a new record:
//
//  1. reserve the next version id and the next record id from their
//     sequences, then pre-insert a placeholder version tagged with the
//     reserved record id and a self-referential first/current link;
//  2. insert the record carrying first_version_id and current_version_id;
//  3. finalize the placeholder's item_changes from the record as persisted.
//
// All three phases share one transaction. Reserving from the sequences
// (rather than reading max(id)+1) keeps concurrent writers from colliding on
// a predicted id.
func (c *Client) strictInsert(ctx context.Context, cfg Config, changeset domain.ChangeSet) (Result, error) {
	steps := []step{
		{
			name:     reserveStep,
			internal: true,
			run: func(ctx context.Context, tx pgx.Tx, _ map[string]any) (any, error) {
				versionID, err := c.ledger.NextID(ctx, tx)
				if err != nil {
					return nil, err
				}
				itemID, err := c.mutator.NextID(ctx, tx, changeset.Table)
				if err != nil {
					return nil, err
				}
				return reservation{versionID: versionID, itemID: itemID}, nil
			},
		},
		{
			name:     initialVersionStep,
			internal: true,
			run: func(ctx context.Context, tx pgx.Tx, completed map[string]any) (any, error) {
				res, err := reservedIDs(completed)
				if err != nil {
					return nil, err
				}
				predicted := changeset.Applied()
				predicted["id"] = res.itemID
				predicted[domain.FirstVersionAttr] = res.versionID
				predicted[domain.CurrentVersionAttr] = res.versionID

				version, err := domain.CaptureSnapshot(domain.EventInsert, changeset.Table, changeset.ItemType, predicted, cfg.captureOptions())
				if err != nil {
					return nil, err
				}
				return c.ledger.InsertReserved(ctx, tx, res.versionID, version)
			},
		},
		{
			name: cfg.ModelKey,
			run: func(ctx context.Context, tx pgx.Tx, completed map[string]any) (any, error) {
				res, err := reservedIDs(completed)
				if err != nil {
					return nil, err
				}
				attrs := changeset.Applied()
				attrs["id"] = res.itemID
				attrs[domain.FirstVersionAttr] = res.versionID
				attrs[domain.CurrentVersionAttr] = res.versionID
				return c.mutator.Insert(ctx, tx, changeset.Table, attrs)
			},
		},
		{
			name: cfg.VersionKey,
			run: func(ctx context.Context, tx pgx.Tx, completed map[string]any) (any, error) {
				res, err := reservedIDs(completed)
				if err != nil {
					return nil, err
				}
				persisted, err := persistedModel(completed, cfg.ModelKey)
				if err != nil {
					return nil, err
				}
				return c.ledger.PatchChanges(ctx, tx, res.versionID, persisted)
			},
		},
	}

	return c.runPlan(ctx, cfg, steps)
}

// strictUpdate runs the link protocol for an existing record: the version is
// reserved and pre-inserted with the proposed diff, the record's
// current_version_id moves forward as part of the same update, and the diff
// is finalized from the persisted state. first_version_id is never touched.
func (c *Client) strictUpdate(ctx context.Context, cfg Config, changeset domain.ChangeSet) (Result, error) {
	itemID, ok := changeset.ItemID()
	if !ok {
		return Result{}, fmt.Errorf("cannot update %s: changeset base has no id", changeset.ItemType)
	}

	steps := []step{
		{
			name:     reserveStep,
			internal: true,
			run: func(ctx context.Context, tx pgx.Tx, _ map[string]any) (any, error) {
				versionID, err := c.ledger.NextID(ctx, tx)
				if err != nil {
					return nil, err
				}
				return reservation{versionID: versionID, itemID: itemID}, nil
			},
		},
		{
			name:     initialVersionStep,
			internal: true,
			run: func(ctx context.Context, tx pgx.Tx, completed map[string]any) (any, error) {
				res, err := reservedIDs(completed)
				if err != nil {
					return nil, err
				}
				linked := changeset.WithChanges(map[string]any{domain.CurrentVersionAttr: res.versionID})
				version, err := domain.Capture(domain.EventUpdate, linked, cfg.captureOptions())
				if err != nil {
					return nil, err
				}
				return c.ledger.InsertReserved(ctx, tx, res.versionID, version)
			},
		},
		{
			name: cfg.ModelKey,
			run: func(ctx context.Context, tx pgx.Tx, completed map[string]any) (any, error) {
				res, err := reservedIDs(completed)
				if err != nil {
					return nil, err
				}
				changes := changeset.WithChanges(map[string]any{domain.CurrentVersionAttr: res.versionID}).Changes
				return c.mutator.Update(ctx, tx, changeset.Table, itemID, changes)
			},
		},
		{
			name: cfg.VersionKey,
			run: func(ctx context.Context, tx pgx.Tx, completed map[string]any) (any, error) {
				res, err := reservedIDs(completed)
				if err != nil {
					return nil, err
				}
				persisted, err := persistedModel(completed, cfg.ModelKey)
				if err != nil {
					return nil, err
				}
				// The final diff is the changed attributes as the
				// database stored them, plus the link that moved.
				final := make(map[string]any, len(changeset.Changes)+1)
				for key := range changeset.Changes {
					final[key] = persisted[key]
				}
				final[domain.CurrentVersionAttr] = res.versionID
				return c.ledger.PatchChanges(ctx, tx, res.versionID, final)
			},
		},
	}

	return c.runPlan(ctx, cfg, steps)
}

func reservedIDs(completed map[string]any) (reservation, error) {
	value, ok := completed[reserveStep]
	if !ok {
		return reservation{}, fmt.Errorf("id reservation did not run")
	}
	res, ok := value.(reservation)
	if !ok {
		return reservation{}, fmt.Errorf("id reservation produced an unexpected result")
	}
	return res, nil
}

package versioning

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// step is one named unit of a mutation plan. Steps run sequentially inside
// one transaction; a step sees the results of every step before it. Internal
// steps are bookkeeping for the strict-mode protocol and never surface in
// results or errors.
type step struct {
	name     string
	internal bool
	run      func(ctx context.Context, tx pgx.Tx, completed map[string]any) (any, error)
}

// fanout lets a step contribute several named results at once, used by batch
// inserts where each row's version gets its own addressable key.
type fanout map[string]any

// runPlan executes an ordered plan inside one transaction. Any step failure
// rolls the whole transaction back and surfaces as a StepError carrying the
// failing step's name and the visible results produced before it.
func (c *Client) runPlan(ctx context.Context, cfg Config, steps []step) (Result, error) {
	completed := make(map[string]any, len(steps))
	internal := make(map[string]bool)

	err := c.conn.WithTx(ctx, func(tx pgx.Tx) error {
		for _, s := range steps {
			out, err := s.run(ctx, tx, completed)
			if err != nil {
				return &StepError{Step: s.name, Err: err, Completed: visibleResults(completed, internal)}
			}
			if spread, ok := out.(fanout); ok {
				for name, value := range spread {
					completed[name] = value
					if s.internal {
						internal[name] = true
					}
				}
				continue
			}
			completed[s.name] = out
			if s.internal {
				internal[s.name] = true
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	return newResult(cfg, visibleResults(completed, internal)), nil
}

func visibleResults(completed map[string]any, internal map[string]bool) map[string]any {
	visible := make(map[string]any, len(completed))
	for name, value := range completed {
		if internal[name] {
			continue
		}
		visible[name] = value
	}
	return visible
}

package versioning

import (
	"context"
	"fmt"

	"github.com/rpattn/verledger/internal/domain"
)

// WalkChain reconstructs and verifies the version chain of a strict-mode
// record from its persisted attributes. It checks that the chain starts at
// the record's first_version_id, ends at its current_version_id, and is
// strictly ordered in between. The verified chain is returned oldest first.
func (c *Client) WalkChain(ctx context.Context, itemType string, attrs map[string]any) ([]domain.Version, error) {
	itemID, ok := domain.AttributeID(attrs)
	if !ok {
		return nil, fmt.Errorf("record has no id to walk a chain for")
	}
	firstID, ok := linkID(attrs, domain.FirstVersionAttr)
	if !ok {
		return nil, fmt.Errorf("%s %d carries no %s", itemType, itemID, domain.FirstVersionAttr)
	}
	currentID, ok := linkID(attrs, domain.CurrentVersionAttr)
	if !ok {
		return nil, fmt.Errorf("%s %d carries no %s", itemType, itemID, domain.CurrentVersionAttr)
	}

	chain, err := c.ledger.ListForItem(ctx, itemType, itemID)
	if err != nil {
		return nil, err
	}
	if len(chain) == 0 {
		return nil, fmt.Errorf("%s %d has no versions", itemType, itemID)
	}

	if chain[0].ID != firstID {
		return nil, fmt.Errorf("chain for %s %d starts at version %d, record links first_version_id %d", itemType, itemID, chain[0].ID, firstID)
	}
	last := chain[len(chain)-1]
	if last.ID != currentID {
		return nil, fmt.Errorf("chain for %s %d ends at version %d, record links current_version_id %d", itemType, itemID, last.ID, currentID)
	}
	for i := 1; i < len(chain); i++ {
		if chain[i].ID <= chain[i-1].ID {
			return nil, fmt.Errorf("chain for %s %d is not strictly ordered at version %d", itemType, itemID, chain[i].ID)
		}
	}

	return chain, nil
}

func linkID(attrs map[string]any, field string) (int64, bool) {
	value, ok := attrs[field]
	if !ok || value == nil {
		return 0, false
	}
	switch v := value.(type) {
	case int64:
		return v, true
	case int32:
		return int64(v), true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	}
	return 0, false
}

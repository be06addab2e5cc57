package versioning

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rpattn/verledger/internal/domain"
	"github.com/rpattn/verledger/internal/repository"
)

// fakeStore is an in-memory stand-in for the persistence engine. The tx
// runner snapshots it before a plan runs and restores the snapshot when the
// plan fails, mirroring transactional rollback.
type fakeStore struct {
	tables     map[string][]map[string]any
	versions   []domain.Version
	versionSeq int64
	rowSeqs    map[string]int64
	oplog      []string

	failVersionInsert bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tables:  map[string][]map[string]any{},
		rowSeqs: map[string]int64{},
	}
}

func (s *fakeStore) seed(table string, attrs map[string]any) map[string]any {
	row := copyRow(attrs)
	if _, ok := row["id"]; !ok {
		s.rowSeqs[table]++
		row["id"] = s.rowSeqs[table]
	} else if id, ok := domain.AttributeID(row); ok && id > s.rowSeqs[table] {
		s.rowSeqs[table] = id
	}
	s.tables[table] = append(s.tables[table], row)
	return copyRow(row)
}

func (s *fakeStore) clone() *fakeStore {
	clone := newFakeStore()
	for table, rows := range s.tables {
		for _, row := range rows {
			clone.tables[table] = append(clone.tables[table], copyRow(row))
		}
	}
	clone.versions = append([]domain.Version(nil), s.versions...)
	clone.versionSeq = s.versionSeq
	for table, seq := range s.rowSeqs {
		clone.rowSeqs[table] = seq
	}
	clone.oplog = append([]string(nil), s.oplog...)
	clone.failVersionInsert = s.failVersionInsert
	return clone
}

func copyRow(row map[string]any) map[string]any {
	out := make(map[string]any, len(row))
	for key, value := range row {
		out[key] = value
	}
	return out
}

func matchesPredicate(row map[string]any, predicate domain.Predicate) bool {
	for _, cond := range predicate.Conditions {
		value, exists := row[cond.Field]
		switch cond.Op {
		case domain.ConditionOpEq:
			if !exists || value != cond.Value {
				return false
			}
		case domain.ConditionOpIn:
			found := false
			for _, candidate := range cond.Values {
				if exists && value == candidate {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		case domain.ConditionOpIsNull:
			if exists && value != nil {
				return false
			}
		case domain.ConditionOpNotNull:
			if !exists || value == nil {
				return false
			}
		}
	}
	return true
}

// fakeTxRunner satisfies TxRunner with snapshot/restore semantics.
type fakeTxRunner struct {
	store *fakeStore
}

func (r *fakeTxRunner) WithTx(ctx context.Context, fn func(pgx.Tx) error) error {
	snapshot := r.store.clone()
	if err := fn(nil); err != nil {
		*r.store = *snapshot
		return err
	}
	return nil
}

// fakeMutator satisfies repository.RowMutator over the fake store.
type fakeMutator struct {
	store *fakeStore
}

func (m *fakeMutator) Insert(_ context.Context, _ pgx.Tx, table string, attrs map[string]any) (map[string]any, error) {
	m.store.oplog = append(m.store.oplog, "insert:"+table)
	return m.store.seed(table, attrs), nil
}

func (m *fakeMutator) Update(_ context.Context, _ pgx.Tx, table string, id int64, changes map[string]any) (map[string]any, error) {
	m.store.oplog = append(m.store.oplog, "update:"+table)
	for _, row := range m.store.tables[table] {
		if rowID, ok := domain.AttributeID(row); ok && rowID == id {
			for key, value := range changes {
				row[key] = value
			}
			return copyRow(row), nil
		}
	}
	return nil, fmt.Errorf("no %s row with id %d", table, id)
}

func (m *fakeMutator) Delete(_ context.Context, _ pgx.Tx, table string, id int64) (map[string]any, error) {
	m.store.oplog = append(m.store.oplog, "delete:"+table)
	rows := m.store.tables[table]
	for i, row := range rows {
		if rowID, ok := domain.AttributeID(row); ok && rowID == id {
			m.store.tables[table] = append(rows[:i:i], rows[i+1:]...)
			return copyRow(row), nil
		}
	}
	return nil, fmt.Errorf("no %s row with id %d", table, id)
}

func (m *fakeMutator) InsertAll(_ context.Context, _ pgx.Tx, table string, batch []map[string]any) ([]map[string]any, error) {
	m.store.oplog = append(m.store.oplog, "insert_all:"+table)
	inserted := make([]map[string]any, 0, len(batch))
	for _, attrs := range batch {
		inserted = append(inserted, m.store.seed(table, attrs))
	}
	return inserted, nil
}

func (m *fakeMutator) UpdateAll(_ context.Context, _ pgx.Tx, table string, predicate domain.Predicate, set map[string]any) (int64, error) {
	m.store.oplog = append(m.store.oplog, "update_all:"+table)
	var affected int64
	for _, row := range m.store.tables[table] {
		if matchesPredicate(row, predicate) {
			for key, value := range set {
				row[key] = value
			}
			affected++
		}
	}
	return affected, nil
}

func (m *fakeMutator) NextID(_ context.Context, _ pgx.Tx, table string) (int64, error) {
	m.store.rowSeqs[table]++
	return m.store.rowSeqs[table], nil
}

// fakeLedger satisfies repository.VersionRepository over the fake store.
type fakeLedger struct {
	store *fakeStore
}

func (l *fakeLedger) Insert(_ context.Context, _ pgx.Tx, version domain.Version) (domain.Version, error) {
	if l.store.failVersionInsert {
		return domain.Version{}, errors.New("version insert refused")
	}
	l.store.oplog = append(l.store.oplog, "version_insert")
	l.store.versionSeq++
	version.ID = l.store.versionSeq
	version.InsertedAt = time.Now()
	l.store.versions = append(l.store.versions, version)
	return version, nil
}

func (l *fakeLedger) InsertReserved(_ context.Context, _ pgx.Tx, id int64, version domain.Version) (domain.Version, error) {
	if l.store.failVersionInsert {
		return domain.Version{}, errors.New("version insert refused")
	}
	l.store.oplog = append(l.store.oplog, "version_insert_reserved")
	version.ID = id
	version.InsertedAt = time.Now()
	if id > l.store.versionSeq {
		l.store.versionSeq = id
	}
	l.store.versions = append(l.store.versions, version)
	return version, nil
}

func (l *fakeLedger) PatchChanges(_ context.Context, _ pgx.Tx, id int64, changes map[string]any) (domain.Version, error) {
	l.store.oplog = append(l.store.oplog, "version_patch")
	for i := range l.store.versions {
		if l.store.versions[i].ID == id {
			l.store.versions[i].ItemChanges = copyRow(changes)
			return l.store.versions[i], nil
		}
	}
	return domain.Version{}, fmt.Errorf("no version with id %d", id)
}

func (l *fakeLedger) InsertProjected(_ context.Context, _ pgx.Tx, plan repository.ProjectionPlan) ([]domain.Version, int64, error) {
	l.store.oplog = append(l.store.oplog, "version_project:"+plan.Table)
	inserted := []domain.Version{}
	for _, row := range l.store.tables[plan.Table] {
		if !matchesPredicate(row, plan.Predicate) {
			continue
		}
		changes := copyRow(plan.Changes)
		if plan.Snapshot {
			changes = copyRow(row)
			for key, value := range plan.Changes {
				changes[key] = value
			}
		}
		itemID, _ := domain.AttributeID(row)
		l.store.versionSeq++
		inserted = append(inserted, domain.Version{
			ID:           l.store.versionSeq,
			Event:        plan.Event,
			ItemType:     plan.ItemType,
			ItemID:       itemID,
			ItemChanges:  changes,
			OriginatorID: plan.Options.OriginatorID,
			Origin:       plan.Options.Origin,
			Meta:         plan.Options.Meta,
			InsertedAt:   time.Now(),
		})
	}
	l.store.versions = append(l.store.versions, inserted...)
	if plan.Returning {
		return inserted, int64(len(inserted)), nil
	}
	return nil, int64(len(inserted)), nil
}

func (l *fakeLedger) NextID(_ context.Context, _ pgx.Tx) (int64, error) {
	l.store.versionSeq++
	return l.store.versionSeq, nil
}

func (l *fakeLedger) GetByID(_ context.Context, id int64) (domain.Version, error) {
	for _, version := range l.store.versions {
		if version.ID == id {
			return version, nil
		}
	}
	return domain.Version{}, pgx.ErrNoRows
}

func (l *fakeLedger) ListForItem(_ context.Context, itemType string, itemID int64) ([]domain.Version, error) {
	matched := []domain.Version{}
	for _, version := range l.store.versions {
		if version.ItemType == itemType && version.ItemID == itemID {
			matched = append(matched, version)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return matched, nil
}

func (l *fakeLedger) FirstForItem(ctx context.Context, itemType string, itemID int64) (domain.Version, error) {
	matched, _ := l.ListForItem(ctx, itemType, itemID)
	if len(matched) == 0 {
		return domain.Version{}, pgx.ErrNoRows
	}
	return matched[0], nil
}

func (l *fakeLedger) LastForItem(ctx context.Context, itemType string, itemID int64) (domain.Version, error) {
	matched, _ := l.ListForItem(ctx, itemType, itemID)
	if len(matched) == 0 {
		return domain.Version{}, pgx.ErrNoRows
	}
	return matched[len(matched)-1], nil
}

func (l *fakeLedger) CountForItem(ctx context.Context, itemType string, itemID int64) (int64, error) {
	matched, _ := l.ListForItem(ctx, itemType, itemID)
	return int64(len(matched)), nil
}

func newTestClient(store *fakeStore, config Config) *Client {
	return New(&fakeTxRunner{store: store}, &fakeMutator{store: store}, &fakeLedger{store: store}, config)
}

package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/rpattn/verledger/internal/domain"
)

// rowMutator implements RowMutator against PostgreSQL. DML is generated from
// attribute maps; every statement carries RETURNING * so the persisted row
// comes back with generated columns filled in.
type rowMutator struct{}

// NewRowMutator creates the pgx-backed row mutator.
func NewRowMutator() RowMutator {
	return rowMutator{}
}

// Insert persists one row and returns it as stored.
func (rowMutator) Insert(ctx context.Context, tx pgx.Tx, table string, attrs map[string]any) (map[string]any, error) {
	if len(attrs) == 0 {
		return nil, fmt.Errorf("insert into %s: no attributes given", table)
	}

	keys := sortedKeys(attrs)
	columns := make([]string, 0, len(keys))
	placeholders := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys))
	for _, key := range keys {
		columns = append(columns, quoteIdent(key))
		args = append(args, attrs[key])
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
	}

	sql := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		quoteIdent(table), strings.Join(columns, ", "), strings.Join(placeholders, ", "),
	)

	rows, err := tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	row, err := pgx.CollectOneRow(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("failed to read inserted %s row: %w", table, err)
	}
	return row, nil
}

// Update applies the change map to one row by id and returns the new state.
func (rowMutator) Update(ctx context.Context, tx pgx.Tx, table string, id int64, changes map[string]any) (map[string]any, error) {
	if len(changes) == 0 {
		return nil, fmt.Errorf("update %s: no changes given", table)
	}

	keys := sortedKeys(changes)
	assignments := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys)+1)
	for _, key := range keys {
		args = append(args, changes[key])
		assignments = append(assignments, fmt.Sprintf("%s = $%d", quoteIdent(key), len(args)))
	}
	args = append(args, id)

	sql := fmt.Sprintf(
		"UPDATE %s SET %s WHERE id = $%d RETURNING *",
		quoteIdent(table), strings.Join(assignments, ", "), len(args),
	)

	rows, err := tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update %s: %w", table, err)
	}
	row, err := pgx.CollectOneRow(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("failed to read updated %s row: %w", table, err)
	}
	return row, nil
}

// Delete removes one row by id and returns its final state before removal.
func (rowMutator) Delete(ctx context.Context, tx pgx.Tx, table string, id int64) (map[string]any, error) {
	sql := fmt.Sprintf("DELETE FROM %s WHERE id = $1 RETURNING *", quoteIdent(table))

	rows, err := tx.Query(ctx, sql, id)
	if err != nil {
		return nil, fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	row, err := pgx.CollectOneRow(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("failed to read deleted %s row: %w", table, err)
	}
	return row, nil
}

// InsertAll persists a batch of rows in one statement. All rows must share
// the same attribute set; rows come back in insertion order.
func (rowMutator) InsertAll(ctx context.Context, tx pgx.Tx, table string, batch []map[string]any) ([]map[string]any, error) {
	if len(batch) == 0 {
		return []map[string]any{}, nil
	}

	keys := sortedKeys(batch[0])
	columns := make([]string, 0, len(keys))
	for _, key := range keys {
		columns = append(columns, quoteIdent(key))
	}

	valueLists := make([]string, 0, len(batch))
	args := make([]any, 0, len(batch)*len(keys))
	for i, attrs := range batch {
		if len(attrs) != len(keys) {
			return nil, fmt.Errorf("insert_all into %s: row %d has a different attribute set", table, i)
		}
		placeholders := make([]string, 0, len(keys))
		for _, key := range keys {
			value, ok := attrs[key]
			if !ok {
				return nil, fmt.Errorf("insert_all into %s: row %d is missing attribute %q", table, i, key)
			}
			args = append(args, value)
			placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
		}
		valueLists = append(valueLists, "("+strings.Join(placeholders, ", ")+")")
	}

	sql := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES %s RETURNING *",
		quoteIdent(table), strings.Join(columns, ", "), strings.Join(valueLists, ", "),
	)

	rows, err := tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to insert batch into %s: %w", table, err)
	}
	inserted, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("failed to read inserted %s rows: %w", table, err)
	}
	return inserted, nil
}

// UpdateAll applies the set map to every row matching the predicate and
// returns the number of rows touched.
func (rowMutator) UpdateAll(ctx context.Context, tx pgx.Tx, table string, predicate domain.Predicate, set map[string]any) (int64, error) {
	if len(set) == 0 {
		return 0, fmt.Errorf("update_all %s: no set attributes given", table)
	}

	keys := sortedKeys(set)
	assignments := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys))
	for _, key := range keys {
		args = append(args, set[key])
		assignments = append(assignments, fmt.Sprintf("%s = $%d", quoteIdent(key), len(args)))
	}

	where, err := renderPredicate(predicate, "", &args)
	if err != nil {
		return 0, fmt.Errorf("update_all %s: %w", table, err)
	}

	sql := fmt.Sprintf("UPDATE %s SET %s WHERE %s", quoteIdent(table), strings.Join(assignments, ", "), where)

	tag, err := tx.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to bulk update %s: %w", table, err)
	}
	return tag.RowsAffected(), nil
}

// NextID reserves the next identifier from the table's id sequence. This is
// how strict mode learns a record's id ahead of insertion without the
// read-max(id) race.
func (rowMutator) NextID(ctx context.Context, tx pgx.Tx, table string) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx, "SELECT nextval(pg_get_serial_sequence($1, 'id'))", table).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to reserve next id for %s: %w", table, err)
	}
	return id, nil
}

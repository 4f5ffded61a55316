/*
query.go - Generic filtered-query implementation (core.Querier)

PURPOSE:
  Collection-addressed reads and writes over a whitelist of tables.
  Field names are checked against the collection's column set before
  they reach SQL, so a caller-supplied field can never become anything
  but a bound identifier from the whitelist.

FILTER SEMANTICS:
  Where.All composes with AND; Where.Any is one parenthesized OR group.
  OpContains is case-insensitive substring, OpIn expands to a bound
  placeholder per element.

SEE ALSO:
  - core/store.go: The Querier contract
  - catalog/: The read-side consumer
*/
package sqlite

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/funzone/venue-engine/core"
)

// collectionSpec pins the table, key column, and queryable columns of
// one collection. Everything else is rejected before SQL is built.
type collectionSpec struct {
	table   string
	key     string
	columns map[string]bool
}

var collections = map[string]collectionSpec{
	"customers": {
		table: "customers", key: "customer_id",
		columns: cols("customer_id", "full_name", "email", "phone",
			"guardian_name", "child_name", "child_birthdate", "notes", "created_at"),
	},
	"locations": {
		table: "locations", key: "location_id",
		columns: cols("location_id", "name", "address_line", "city", "state",
			"postal_code", "country", "phone", "email", "is_active"),
	},
	"products": {
		table: "products", key: "product_id",
		columns: cols("product_id", "product_name", "brand", "sku", "category",
			"age_group", "material", "color", "country", "description",
			"features", "price_usd", "stock_qty", "rating", "is_active"),
	},
	"ticket_types": {
		table: "ticket_types", key: "ticket_type_id",
		columns: cols("ticket_type_id", "name", "base_price_usd", "location_id",
			"requires_waiver", "requires_grip_socks", "is_active"),
	},
	"party_packages": {
		table: "party_packages", key: "package_id",
		columns: cols("package_id", "name", "price_usd", "base_children",
			"base_room_hours", "includes_food", "includes_drinks",
			"includes_decor", "location_id", "is_active"),
	},
	"package_inclusions": {
		table: "package_inclusions", key: "inclusion_id",
		columns: cols("inclusion_id", "package_id", "item_name", "quantity"),
	},
	"resources": {
		table: "resources", key: "resource_id",
		columns: cols("resource_id", "name", "location_id"),
	},
	"party_reschedules": {
		table: "party_reschedules", key: "reschedule_id",
		columns: cols("reschedule_id", "booking_id", "old_start", "old_end",
			"new_start", "new_end", "reason", "created_at"),
	},
	"policies": {
		table: "policies", key: "policy_id",
		columns: cols("policy_id", "key", "value", "is_active"),
	},
}

func cols(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// =============================================================================
// QUERIER (core.Querier interface)
// =============================================================================

func (s *Store) Fetch(ctx context.Context, q core.Query) ([]core.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fetch(ctx, s.db, q)
}

func (t *txStore) Fetch(ctx context.Context, q core.Query) ([]core.Record, error) {
	return fetch(ctx, t.h, q)
}

func fetch(ctx context.Context, h dbtx, q core.Query) ([]core.Record, error) {
	spec, err := lookupCollection(q.Collection)
	if err != nil {
		return nil, err
	}

	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString("SELECT * FROM " + spec.table)

	clause, clauseArgs, err := buildWhere(spec, q.Where)
	if err != nil {
		return nil, err
	}
	if clause != "" {
		sb.WriteString(" WHERE " + clause)
		args = append(args, clauseArgs...)
	}

	if len(q.Order) > 0 {
		var orders []string
		for _, o := range q.Order {
			if !spec.columns[o.Field] {
				return nil, core.Violationf(core.KindValidation,
					"Unknown field %q for %s.", o.Field, q.Collection)
			}
			dir := "ASC"
			if o.Desc {
				dir = "DESC"
			}
			orders = append(orders, o.Field+" "+dir)
		}
		sb.WriteString(" ORDER BY " + strings.Join(orders, ", "))
	}

	if q.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, q.Limit)
	}

	rows, err := h.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, core.TransportErrorf("fetch "+spec.table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, core.TransportErrorf("fetch "+spec.table, err)
	}

	var records []core.Record
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, core.TransportErrorf("scan "+spec.table, err)
		}

		rec := make(core.Record, len(columns))
		for i, col := range columns {
			rec[col] = decodeValue(values[i])
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *Store) FetchByID(ctx context.Context, collection, keyField string, id any) (core.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fetchByID(ctx, s.db, collection, keyField, id)
}

func (t *txStore) FetchByID(ctx context.Context, collection, keyField string, id any) (core.Record, error) {
	return fetchByID(ctx, t.h, collection, keyField, id)
}

func fetchByID(ctx context.Context, h dbtx, collection, keyField string, id any) (core.Record, error) {
	records, err := fetch(ctx, h, core.Query{
		Collection: collection,
		Where:      core.Where{All: []core.Filter{{Field: keyField, Op: core.OpEq, Value: id}}},
		Limit:      1,
	})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

func (s *Store) Insert(ctx context.Context, collection string, rec core.Record) (core.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertRecord(ctx, s.db, collection, rec)
}

func (t *txStore) Insert(ctx context.Context, collection string, rec core.Record) (core.Record, error) {
	return insertRecord(ctx, t.h, collection, rec)
}

func insertRecord(ctx context.Context, h dbtx, collection string, rec core.Record) (core.Record, error) {
	spec, err := lookupCollection(collection)
	if err != nil {
		return nil, err
	}

	fields, args, err := recordFields(spec, collection, rec)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, core.Violationf(core.KindValidation, "No fields were provided.")
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(fields)), ", ")
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		spec.table, strings.Join(fields, ", "), placeholders)

	res, err := h.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, core.TransportErrorf("insert "+spec.table, err)
	}
	id, err := lastID(res, "insert "+spec.table)
	if err != nil {
		return nil, err
	}
	return fetchByID(ctx, h, collection, spec.key, id)
}

func (s *Store) Update(ctx context.Context, collection, keyField string, id any, changes core.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateRecord(ctx, s.db, collection, keyField, id, changes)
}

func (t *txStore) Update(ctx context.Context, collection, keyField string, id any, changes core.Record) error {
	return updateRecord(ctx, t.h, collection, keyField, id, changes)
}

func updateRecord(ctx context.Context, h dbtx, collection, keyField string, id any, changes core.Record) error {
	spec, err := lookupCollection(collection)
	if err != nil {
		return err
	}
	if !spec.columns[keyField] {
		return core.Violationf(core.KindValidation, "Unknown field %q for %s.", keyField, collection)
	}

	fields, args, err := recordFields(spec, collection, changes)
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		return core.Violationf(core.KindValidation, "No updates were provided.")
	}

	for i, f := range fields {
		fields[i] = f + " = ?"
	}
	args = append(args, id)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?",
		spec.table, strings.Join(fields, ", "), keyField)
	if _, err := h.ExecContext(ctx, query, args...); err != nil {
		return core.TransportErrorf("update "+spec.table, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, keyField string, id any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteRecord(ctx, s.db, collection, keyField, id)
}

func (t *txStore) Delete(ctx context.Context, collection, keyField string, id any) error {
	return deleteRecord(ctx, t.h, collection, keyField, id)
}

func deleteRecord(ctx context.Context, h dbtx, collection, keyField string, id any) error {
	spec, err := lookupCollection(collection)
	if err != nil {
		return err
	}
	if !spec.columns[keyField] {
		return core.Violationf(core.KindValidation, "Unknown field %q for %s.", keyField, collection)
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", spec.table, keyField)
	if _, err := h.ExecContext(ctx, query, id); err != nil {
		return core.TransportErrorf("delete "+spec.table, err)
	}
	return nil
}

// =============================================================================
// SQL ASSEMBLY
// =============================================================================

func lookupCollection(name string) (collectionSpec, error) {
	spec, ok := collections[name]
	if !ok {
		return collectionSpec{}, core.Violationf(core.KindValidation,
			"Unknown collection %q.", name)
	}
	return spec, nil
}

func buildWhere(spec collectionSpec, w core.Where) (string, []any, error) {
	var (
		clauses []string
		args    []any
	)
	for _, f := range w.All {
		clause, clauseArgs, err := buildFilter(spec, f)
		if err != nil {
			return "", nil, err
		}
		clauses = append(clauses, clause)
		args = append(args, clauseArgs...)
	}

	if len(w.Any) > 0 {
		var group []string
		for _, f := range w.Any {
			clause, clauseArgs, err := buildFilter(spec, f)
			if err != nil {
				return "", nil, err
			}
			group = append(group, clause)
			args = append(args, clauseArgs...)
		}
		clauses = append(clauses, "("+strings.Join(group, " OR ")+")")
	}
	return strings.Join(clauses, " AND "), args, nil
}

func buildFilter(spec collectionSpec, f core.Filter) (string, []any, error) {
	if !spec.columns[f.Field] {
		return "", nil, core.Violationf(core.KindValidation,
			"Unknown field %q for %s.", f.Field, spec.table)
	}

	switch f.Op {
	case core.OpEq:
		return f.Field + " = ?", []any{f.Value}, nil
	case core.OpContains:
		return "LOWER(" + f.Field + ") LIKE '%' || LOWER(?) || '%'", []any{f.Value}, nil
	case core.OpLt:
		return f.Field + " < ?", []any{f.Value}, nil
	case core.OpGt:
		return f.Field + " > ?", []any{f.Value}, nil
	case core.OpIn:
		values, ok := f.Value.([]any)
		if !ok || len(values) == 0 {
			return "", nil, core.Violationf(core.KindValidation,
				"Filter %q with op %q needs a non-empty list.", f.Field, f.Op)
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ")
		return f.Field + " IN (" + placeholders + ")", values, nil
	default:
		return "", nil, core.Violationf(core.KindValidation,
			"Unknown filter op %q.", f.Op)
	}
}

// recordFields returns the record's column names in sorted order with
// matching args. Sorting keeps generated SQL deterministic.
func recordFields(spec collectionSpec, collection string, rec core.Record) ([]string, []any, error) {
	fields := make([]string, 0, len(rec))
	for field := range rec {
		if !spec.columns[field] {
			return nil, nil, core.Violationf(core.KindValidation,
				"Unknown field %q for %s.", field, collection)
		}
		fields = append(fields, field)
	}
	sort.Strings(fields)

	args := make([]any, len(fields))
	for i, field := range fields {
		args[i] = rec[field]
	}
	return fields, args, nil
}

// decodeValue maps driver scan values onto the plain types Record carries.
func decodeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

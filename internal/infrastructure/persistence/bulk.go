package persistence

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultBatchSize is the number of rows written per INSERT/UPDATE statement
const DefaultBatchSize = 100

// lookupChunk bounds the number of key values bound into one lookup query
const lookupChunk = 1000

// TableSpec describes a table written by natural key
type TableSpec struct {
	Table      string
	KeyColumns []string
	// IDColumn defaults to "id"
	IDColumn string
	// Timestamps maintains created_at and updated_at
	Timestamps bool
	// Types holds SQL types used to cast CASE values on dialects that do
	// not infer parameter types inside CASE expressions
	Types map[string]string
}

func (s TableSpec) idColumn() string {
	if s.IDColumn == "" {
		return "id"
	}
	return s.IDColumn
}

func (s TableSpec) isKey(col string) bool {
	for _, k := range s.KeyColumns {
		if k == col {
			return true
		}
	}
	return false
}

// Row is one candidate row: column name to value. Only the columns present
// are written.
type Row map[string]interface{}

// UpsertResult reports the outcome of an upsert
type UpsertResult struct {
	Inserted  int
	Updated   int
	Unchanged int
	NotFound  int
	// IDs maps the natural key of every input row to its id
	IDs map[string]uint
	// InsertedKeys lists natural keys of inserted rows in input order
	InsertedKeys []string
}

// BulkWriter turns batches of heterogeneous rows into a minimal number of
// statements: one lookup per batch, batched INSERTs and one CASE-based
// UPDATE per batch and column set.
type BulkWriter struct {
	db         *gorm.DB
	batchSize  int
	castParams bool
	now        func() time.Time
}

// NewBulkWriter creates a writer on db. batchSize <= 0 uses DefaultBatchSize.
func NewBulkWriter(db *gorm.DB, batchSize int) *BulkWriter {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &BulkWriter{
		db:         db,
		batchSize:  batchSize,
		castParams: db.Dialector.Name() == "postgres",
		now:        time.Now,
	}
}

// WithDB returns a copy bound to db, typically a transaction
func (w *BulkWriter) WithDB(db *gorm.DB) *BulkWriter {
	clone := *w
	clone.db = db
	return &clone
}

// BatchSize returns the configured batch size
func (w *BulkWriter) BatchSize() int {
	return w.batchSize
}

// NaturalKey builds the canonical key string of a row
func NaturalKey(spec TableSpec, row Row) string {
	parts := make([]string, len(spec.KeyColumns))
	for i, col := range spec.KeyColumns {
		parts[i] = canonical(row[col])
	}
	return strings.Join(parts, "\x1f")
}

// Upsert inserts rows whose natural key is unknown and updates rows whose
// stored values differ. Rows with identical values are left untouched.
func (w *BulkWriter) Upsert(ctx context.Context, spec TableSpec, rows []Row) (UpsertResult, error) {
	return w.write(ctx, spec, rows, true)
}

// Update updates existing rows by natural key and ignores unknown keys
func (w *BulkWriter) Update(ctx context.Context, spec TableSpec, rows []Row) (UpsertResult, error) {
	return w.write(ctx, spec, rows, false)
}

func (w *BulkWriter) write(ctx context.Context, spec TableSpec, rows []Row, insertMissing bool) (UpsertResult, error) {
	result := UpsertResult{IDs: make(map[string]uint)}
	if len(rows) == 0 {
		return result, nil
	}
	if len(spec.KeyColumns) == 0 {
		return result, fmt.Errorf("bulk write %s: no key columns", spec.Table)
	}

	keys, merged, err := mergeRows(spec, rows)
	if err != nil {
		return result, err
	}

	valueCols := columnUnion(merged, func(col string) bool { return !spec.isKey(col) })
	existing, err := w.lookup(ctx, spec, keys, merged, valueCols)
	if err != nil {
		return result, err
	}

	var inserts, updates []Row
	var updateIDs []uint
	for _, key := range keys {
		row := merged[key]
		stored, found := existing[key]
		if !found {
			if !insertMissing {
				result.NotFound++
				continue
			}
			inserts = append(inserts, row)
			result.InsertedKeys = append(result.InsertedKeys, key)
			continue
		}
		id := toUint(stored[spec.idColumn()])
		result.IDs[key] = id
		if changed(spec, row, stored) {
			updates = append(updates, row)
			updateIDs = append(updateIDs, id)
		} else {
			result.Unchanged++
		}
	}

	if err := w.insert(ctx, spec, inserts); err != nil {
		return result, err
	}
	result.Inserted = len(inserts)

	if err := w.update(ctx, spec, updates, updateIDs); err != nil {
		return result, err
	}
	result.Updated = len(updates)

	if len(inserts) > 0 {
		fresh, err := w.lookup(ctx, spec, result.InsertedKeys, merged, nil)
		if err != nil {
			return result, err
		}
		for _, key := range result.InsertedKeys {
			if stored, ok := fresh[key]; ok {
				result.IDs[key] = toUint(stored[spec.idColumn()])
			}
		}
	}

	return result, nil
}

// Insert writes rows in batches without a lookup. Used for child rows that
// have no stable natural key.
func (w *BulkWriter) Insert(ctx context.Context, spec TableSpec, rows []Row) error {
	return w.insert(ctx, spec, rows)
}

// ReplaceChildren deletes every row of table owned by parentIDs and inserts
// rows in batches
func (w *BulkWriter) ReplaceChildren(ctx context.Context, spec TableSpec, parentColumn string, parentIDs []uint, rows []Row) error {
	if err := w.DeleteIn(ctx, spec.Table, parentColumn, parentIDs); err != nil {
		return err
	}
	return w.insert(ctx, spec, rows)
}

// DeleteIn deletes rows whose column value is in ids, in chunks
func (w *BulkWriter) DeleteIn(ctx context.Context, table, column string, ids []uint) error {
	for start := 0; start < len(ids); start += lookupChunk {
		end := min(start+lookupChunk, len(ids))
		sql := fmt.Sprintf("DELETE FROM %s WHERE %s IN ?", table, column)
		if err := w.db.WithContext(ctx).Exec(sql, ids[start:end]).Error; err != nil {
			return fmt.Errorf("delete from %s: %w", table, err)
		}
	}
	return nil
}

// mergeRows deduplicates rows by natural key, keeping first-seen order and
// letting later rows override earlier values
func mergeRows(spec TableSpec, rows []Row) ([]string, map[string]Row, error) {
	keys := make([]string, 0, len(rows))
	merged := make(map[string]Row, len(rows))
	for i, row := range rows {
		for _, col := range spec.KeyColumns {
			if _, ok := row[col]; !ok {
				return nil, nil, fmt.Errorf("bulk write %s: row %d misses key column %s", spec.Table, i, col)
			}
		}
		key := NaturalKey(spec, row)
		if prev, ok := merged[key]; ok {
			for col, v := range row {
				prev[col] = v
			}
			continue
		}
		copied := make(Row, len(row))
		for col, v := range row {
			copied[col] = v
		}
		merged[key] = copied
		keys = append(keys, key)
	}
	return keys, merged, nil
}

// lookup reads stored rows matching keys. It filters on the first key
// column in SQL and matches the full natural key in memory.
func (w *BulkWriter) lookup(ctx context.Context, spec TableSpec, keys []string, merged map[string]Row, valueCols []string) (map[string]map[string]interface{}, error) {
	seen := make(map[string]bool)
	var firstValues []interface{}
	for _, key := range keys {
		v := merged[key][spec.KeyColumns[0]]
		c := canonical(v)
		if !seen[c] {
			seen[c] = true
			firstValues = append(firstValues, v)
		}
	}

	cols := append([]string{spec.idColumn()}, spec.KeyColumns...)
	cols = append(cols, valueCols...)

	wanted := make(map[string]bool, len(keys))
	for _, key := range keys {
		wanted[key] = true
	}

	out := make(map[string]map[string]interface{}, len(keys))
	for start := 0; start < len(firstValues); start += lookupChunk {
		end := min(start+lookupChunk, len(firstValues))
		var found []map[string]interface{}
		err := w.db.WithContext(ctx).
			Table(spec.Table).
			Select(cols).
			Where(fmt.Sprintf("%s IN ?", spec.KeyColumns[0]), firstValues[start:end]).
			Find(&found).Error
		if err != nil {
			return nil, fmt.Errorf("lookup %s: %w", spec.Table, err)
		}
		for _, stored := range found {
			key := NaturalKey(spec, stored)
			if wanted[key] {
				out[key] = stored
			}
		}
	}
	return out, nil
}

// insert writes rows in batches. Tables with a natural key insert with
// ON CONFLICT DO UPDATE, so a row inserted by an overlapping cycle between
// lookup and insert is updated instead of failing the batch.
func (w *BulkWriter) insert(ctx context.Context, spec TableSpec, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	now := w.now().UTC()
	for _, group := range groupByColumns(rows, nil) {
		conflict, upsert := conflictClause(spec, group.columns)
		for start := 0; start < len(group.rows); start += w.batchSize {
			end := min(start+w.batchSize, len(group.rows))
			batch := make([]map[string]interface{}, 0, end-start)
			for _, row := range group.rows[start:end] {
				values := make(map[string]interface{}, len(row)+2)
				for col, v := range row {
					values[col] = v
				}
				if spec.Timestamps {
					values["created_at"] = now
					values["updated_at"] = now
				}
				batch = append(batch, values)
			}
			tx := w.db.WithContext(ctx).Table(spec.Table)
			if upsert {
				tx = tx.Clauses(conflict)
			}
			if err := tx.Create(&batch).Error; err != nil {
				return fmt.Errorf("insert into %s: %w", spec.Table, err)
			}
		}
	}
	return nil
}

// conflictClause targets the natural key of spec. The written value columns
// are overwritten on conflict; created_at keeps its stored value.
func conflictClause(spec TableSpec, columns []string) (clause.OnConflict, bool) {
	if len(spec.KeyColumns) == 0 {
		return clause.OnConflict{}, false
	}
	target := make([]clause.Column, len(spec.KeyColumns))
	for i, col := range spec.KeyColumns {
		target[i] = clause.Column{Name: col}
	}
	var assign []string
	for _, col := range columns {
		if !spec.isKey(col) {
			assign = append(assign, col)
		}
	}
	if spec.Timestamps {
		assign = append(assign, "updated_at")
	}
	if len(assign) == 0 {
		return clause.OnConflict{Columns: target, DoNothing: true}, true
	}
	return clause.OnConflict{Columns: target, DoUpdates: clause.AssignmentColumns(assign)}, true
}

func (w *BulkWriter) update(ctx context.Context, spec TableSpec, rows []Row, ids []uint) error {
	if len(rows) == 0 {
		return nil
	}

	now := w.now().UTC()
	idCol := spec.idColumn()
	for _, group := range groupByColumns(rows, spec.isKey) {
		if len(group.columns) == 0 {
			continue
		}
		for start := 0; start < len(group.rows); start += w.batchSize {
			end := min(start+w.batchSize, len(group.rows))
			batchIdx := group.index[start:end]

			var sets []string
			var args []interface{}
			for _, col := range group.columns {
				var b strings.Builder
				fmt.Fprintf(&b, "%s = CASE %s", col, idCol)
				for _, i := range batchIdx {
					b.WriteString(" WHEN ? THEN ")
					b.WriteString(w.param(spec, col))
					args = append(args, ids[i], rows[i][col])
				}
				b.WriteString(" END")
				sets = append(sets, b.String())
			}
			if spec.Timestamps {
				sets = append(sets, "updated_at = ?")
				args = append(args, now)
			}

			batchIDs := make([]uint, len(batchIdx))
			for j, i := range batchIdx {
				batchIDs[j] = ids[i]
			}
			args = append(args, batchIDs)

			sql := fmt.Sprintf("UPDATE %s SET %s WHERE %s IN ?", spec.Table, strings.Join(sets, ", "), idCol)
			if err := w.db.WithContext(ctx).Exec(sql, args...).Error; err != nil {
				return fmt.Errorf("update %s: %w", spec.Table, err)
			}
		}
	}
	return nil
}

func (w *BulkWriter) param(spec TableSpec, col string) string {
	if w.castParams {
		if typ, ok := spec.Types[col]; ok {
			return "CAST(? AS " + typ + ")"
		}
	}
	return "?"
}

type columnGroup struct {
	columns []string
	rows    []Row
	index   []int
}

// groupByColumns partitions rows by their sorted column set, keeping input
// order inside each group. Columns for which skip returns true are ignored.
func groupByColumns(rows []Row, skip func(string) bool) []*columnGroup {
	var order []string
	groups := make(map[string]*columnGroup)
	for i, row := range rows {
		cols := make([]string, 0, len(row))
		for col := range row {
			if skip != nil && skip(col) {
				continue
			}
			cols = append(cols, col)
		}
		sort.Strings(cols)
		sig := strings.Join(cols, ",")
		g, ok := groups[sig]
		if !ok {
			g = &columnGroup{columns: cols}
			groups[sig] = g
			order = append(order, sig)
		}
		g.rows = append(g.rows, row)
		g.index = append(g.index, i)
	}
	out := make([]*columnGroup, len(order))
	for i, sig := range order {
		out[i] = groups[sig]
	}
	return out
}

func columnUnion(rows map[string]Row, keep func(string) bool) []string {
	set := make(map[string]bool)
	for _, row := range rows {
		for col := range row {
			if keep(col) {
				set[col] = true
			}
		}
	}
	cols := make([]string, 0, len(set))
	for col := range set {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}

func changed(spec TableSpec, row Row, stored map[string]interface{}) bool {
	for col, v := range row {
		if spec.isKey(col) {
			continue
		}
		if canonical(v) != canonical(stored[col]) {
			return true
		}
	}
	return false
}

var storedTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// canonical renders a value so that the same logical value compares equal
// whichever driver produced it. Times compare at second precision.
func canonical(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return "\x00"
	case time.Time:
		return "t" + strconv.FormatInt(x.Unix(), 10)
	case *time.Time:
		if x == nil {
			return "\x00"
		}
		return "t" + strconv.FormatInt(x.Unix(), 10)
	case bool:
		if x {
			return "1"
		}
		return "0"
	case int:
		return strconv.FormatInt(int64(x), 10)
	case int8:
		return strconv.FormatInt(int64(x), 10)
	case int16:
		return strconv.FormatInt(int64(x), 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint:
		return strconv.FormatUint(uint64(x), 10)
	case uint8:
		return strconv.FormatUint(uint64(x), 10)
	case uint16:
		return strconv.FormatUint(uint64(x), 10)
	case uint32:
		return strconv.FormatUint(uint64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float32:
		return canonicalFloat(float64(x))
	case float64:
		return canonicalFloat(x)
	case []byte:
		return canonical(string(x))
	case string:
		if len(x) >= 19 && x[4] == '-' && x[7] == '-' {
			for _, layout := range storedTimeLayouts {
				if t, err := time.Parse(layout, x); err == nil {
					return "t" + strconv.FormatInt(t.Unix(), 10)
				}
			}
		}
		return x
	default:
		return fmt.Sprint(x)
	}
}

func canonicalFloat(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e18 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func toUint(v interface{}) uint {
	switch x := v.(type) {
	case int:
		return uint(x)
	case int32:
		return uint(x)
	case int64:
		return uint(x)
	case uint:
		return x
	case uint32:
		return uint(x)
	case uint64:
		return uint(x)
	case float64:
		return uint(x)
	case []byte:
		n, _ := strconv.ParseUint(string(x), 10, 64)
		return uint(n)
	case string:
		n, _ := strconv.ParseUint(x, 10, 64)
		return uint(n)
	}
	return 0
}

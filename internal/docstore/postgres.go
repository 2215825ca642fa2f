package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ErrUnsupportedField はPostgreSQL側で検索できないフィールドを条件に指定した場合のエラー。
var ErrUnsupportedField = errors.New("unsupported filter field")

type columnKind int

const (
	kindText columnKind = iota
	kindUUID
	kindInt
	kindBool
	kindTime
	kindUUIDArray
)

type column struct {
	field      string
	name       string
	kind       columnKind
	filterable bool
}

type tableSchema struct {
	table   string
	columns []column
}

// schemas はコレクションとテーブルの対応表。
var schemas = map[string]tableSchema{
	CollectionUsers: {
		table: "users",
		columns: []column{
			{field: IDField, name: "id", kind: kindUUID, filterable: true},
			{field: "username", name: "username", kind: kindText, filterable: true},
			{field: "email", name: "email", kind: kindText, filterable: true},
			{field: "fullName", name: "full_name", kind: kindText},
			{field: "avatar", name: "avatar_url", kind: kindText},
			{field: "coverImage", name: "cover_image_url", kind: kindText},
			{field: "watchHistory", name: "watch_history", kind: kindUUIDArray},
			{field: "createdAt", name: "created_at", kind: kindTime},
			{field: "updatedAt", name: "updated_at", kind: kindTime},
		},
	},
	CollectionSubscriptions: {
		table: "subscriptions",
		columns: []column{
			{field: IDField, name: "id", kind: kindUUID, filterable: true},
			{field: "subscriber", name: "subscriber_id", kind: kindUUID, filterable: true},
			{field: "channel", name: "channel_id", kind: kindUUID, filterable: true},
			{field: "createdAt", name: "created_at", kind: kindTime},
		},
	},
	CollectionVideos: {
		table: "videos",
		columns: []column{
			{field: IDField, name: "id", kind: kindUUID, filterable: true},
			{field: "owner", name: "owner_id", kind: kindUUID, filterable: true},
			{field: "title", name: "title", kind: kindText},
			{field: "description", name: "description", kind: kindText},
			{field: "thumbnail", name: "thumbnail_url", kind: kindText},
			{field: "videoFile", name: "video_url", kind: kindText},
			{field: "duration", name: "duration_seconds", kind: kindInt},
			{field: "views", name: "views", kind: kindInt},
			{field: "isPublished", name: "is_published", kind: kindBool},
			{field: "createdAt", name: "created_at", kind: kindTime},
		},
	},
}

// PostgresStore はPostgreSQLのテーブルをドキュメントとして読み出すストア。
// 集約パイプラインはFinderの上で評価され、Lookupごとに1回のANY検索、
// LookupCountごとに1回のGROUP BY集計が発行される。
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore はPostgresStoreを生成する。
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Find はFinderインターフェースを実装する。
func (s *PostgresStore) Find(ctx context.Context, collection string, filter Filter) ([]Document, error) {
	schema, ok := schemas[collection]
	if !ok {
		return nil, &StoreError{Op: "find", Collection: collection, Err: ErrUnknownCollection}
	}

	query, args, empty, err := schema.buildSelect(filter)
	if err != nil {
		return nil, &StoreError{Op: "find", Collection: collection, Err: err}
	}
	if empty {
		// 条件を満たし得ない場合はクエリを発行しない
		return []Document{}, nil
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &StoreError{Op: "find", Collection: collection, Err: err}
	}
	defer rows.Close()

	docs := make([]Document, 0)
	for rows.Next() {
		d, err := schema.scan(rows)
		if err != nil {
			return nil, &StoreError{Op: "find", Collection: collection, Err: err}
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "find", Collection: collection, Err: err}
	}
	return docs, nil
}

// FindOne はStoreインターフェースを実装する。
func (s *PostgresStore) FindOne(ctx context.Context, collection string, filter Filter) (Document, error) {
	return FindOne(ctx, s, collection, filter)
}

// Aggregate はStoreインターフェースを実装する。
func (s *PostgresStore) Aggregate(ctx context.Context, collection string, pipeline Pipeline) ([]Document, error) {
	return Aggregate(ctx, s, collection, pipeline)
}

// CountBy はCounterインターフェースを実装する。
// fieldの値ごとにCOUNT(*)で集計し、行そのものは読み出さない。
func (s *PostgresStore) CountBy(ctx context.Context, collection, field string, keys []any) (map[any]int, error) {
	schema, ok := schemas[collection]
	if !ok {
		return nil, &StoreError{Op: "count", Collection: collection, Err: ErrUnknownCollection}
	}
	col, ok := schema.lookupColumn(field)
	if !ok || !col.filterable {
		return nil, &StoreError{Op: "count", Collection: collection, Err: fmt.Errorf("%w: %s", ErrUnsupportedField, field)}
	}

	counts := make(map[any]int)
	values := col.normalize(keys)
	if len(values) == 0 {
		return counts, nil
	}

	query := fmt.Sprintf("SELECT %[1]s, COUNT(*) FROM %[2]s WHERE %[1]s = ANY($1::%[3]s) GROUP BY %[1]s",
		col.name, schema.table, col.arrayCast())
	rows, err := s.db.QueryContext(ctx, query, pq.Array(values))
	if err != nil {
		return nil, &StoreError{Op: "count", Collection: collection, Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var n int64
		if err := rows.Scan(&key, &n); err != nil {
			return nil, &StoreError{Op: "count", Collection: collection, Err: err}
		}
		counts[key] = int(n)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "count", Collection: collection, Err: err}
	}
	return counts, nil
}

func (t tableSchema) lookupColumn(field string) (column, bool) {
	for _, c := range t.columns {
		if c.field == field {
			return c, true
		}
	}
	return column{}, false
}

// buildSelect はフィルタからSELECT文を組み立てる。
// emptyがtrueの場合、結果が必ず空になるためクエリは不要。
func (t tableSchema) buildSelect(filter Filter) (query string, args []any, empty bool, err error) {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.name
	}

	var where []string
	for _, cond := range filter {
		col, ok := t.lookupColumn(cond.Field)
		if !ok || !col.filterable {
			return "", nil, false, fmt.Errorf("%w: %s", ErrUnsupportedField, cond.Field)
		}

		values := col.normalize(cond.Values)
		if len(values) == 0 {
			return "", nil, true, nil
		}

		switch cond.Op {
		case OpEq:
			args = append(args, values[0])
			where = append(where, fmt.Sprintf("%s = $%d", col.name, len(args)))
		case OpIn:
			args = append(args, pq.Array(values))
			where = append(where, fmt.Sprintf("%s = ANY($%d::%s)", col.name, len(args), col.arrayCast()))
		default:
			return "", nil, false, fmt.Errorf("unsupported operator %d", cond.Op)
		}
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(names, ", "))
	b.WriteString(" FROM ")
	b.WriteString(t.table)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY created_at, id")
	return b.String(), args, false, nil
}

func (c column) arrayCast() string {
	if c.kind == kindUUID {
		return "uuid[]"
	}
	return "text[]"
}

// normalize は条件値を文字列に揃える。UUID列では不正な値を取り除く。
func (c column) normalize(values []any) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if c.kind == kindUUID {
			if _, err := uuid.Parse(s); err != nil {
				continue
			}
		}
		out = append(out, s)
	}
	return out
}

func (t tableSchema) scan(rows *sql.Rows) (Document, error) {
	dest := make([]any, len(t.columns))
	for i, c := range t.columns {
		switch c.kind {
		case kindText, kindUUID:
			dest[i] = new(string)
		case kindInt:
			dest[i] = new(int64)
		case kindBool:
			dest[i] = new(bool)
		case kindTime:
			dest[i] = new(time.Time)
		case kindUUIDArray:
			dest[i] = new(pq.StringArray)
		}
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, err
	}

	d := make(Document, len(t.columns))
	for i, c := range t.columns {
		switch p := dest[i].(type) {
		case *string:
			d[c.field] = *p
		case *int64:
			d[c.field] = int(*p)
		case *bool:
			d[c.field] = *p
		case *time.Time:
			d[c.field] = *p
		case *pq.StringArray:
			d[c.field] = []string(*p)
		}
	}
	return d, nil
}

var (
	_ Store   = (*PostgresStore)(nil)
	_ Counter = (*PostgresStore)(nil)
)

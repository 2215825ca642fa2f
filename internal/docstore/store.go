package docstore

import (
	"context"
	"fmt"
)

// Finder はフィルタに一致するドキュメントを返す最小の検索インターフェース。
// 返されたドキュメントは呼び出し側が所有し、ストア内部の状態と共有されない。
type Finder interface {
	Find(ctx context.Context, collection string, filter Filter) ([]Document, error)
}

// Counter は外部キーの値ごとの件数を返せるFinder。
// 戻り値のキーはkeysのうち1件以上存在した値で、件数0の値は含まれない。
type Counter interface {
	CountBy(ctx context.Context, collection, field string, keys []any) (map[any]int, error)
}

// Store は読み取りモデル構築に使うドキュメントストアのインターフェース。
type Store interface {
	// FindOne はフィルタに一致する最初のドキュメントを返す。見つからない場合はnilを返す。
	FindOne(ctx context.Context, collection string, filter Filter) (Document, error)

	// Aggregate はコレクションに対してパイプラインを評価する。
	Aggregate(ctx context.Context, collection string, pipeline Pipeline) ([]Document, error)
}

// StoreError はストア操作の失敗を表す。呼び出し側はerrors.Asで取り出せる。
type StoreError struct {
	Op         string
	Collection string
	Err        error
}

// Error はerrorインターフェースを実装する。
func (e *StoreError) Error() string {
	return fmt.Sprintf("docstore %s %s: %v", e.Op, e.Collection, e.Err)
}

// Unwrap は元のエラーを返す。
func (e *StoreError) Unwrap() error {
	return e.Err
}

// wrapErr はStoreErrorでない場合に限りerrをStoreErrorで包む。
func wrapErr(op, collection string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*StoreError); ok {
		return err
	}
	return &StoreError{Op: op, Collection: collection, Err: err}
}

// FindOne はFinderを使って最初の1件を返す。
func FindOne(ctx context.Context, f Finder, collection string, filter Filter) (Document, error) {
	docs, err := f.Find(ctx, collection, filter)
	if err != nil {
		return nil, wrapErr("findOne", collection, err)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return docs[0], nil
}

// Aggregate はFinderの上でパイプラインを評価する。
//
// 先頭のMatchは検索条件としてFinderに渡される。
// Lookupは入力全件のLocalFieldの値をまとめて1回のIn検索で取得し、
// ドキュメントごとに振り分ける。LookupCountはFinderがCounterであれば件数の集計だけを発行する。
// 入力ドキュメントは変更されない。
func Aggregate(ctx context.Context, f Finder, collection string, pipeline Pipeline) ([]Document, error) {
	var initial Filter
	rest := pipeline
	if len(rest) > 0 {
		if m, ok := rest[0].(Match); ok {
			initial = m.Filter
			rest = rest[1:]
		}
	}

	docs, err := f.Find(ctx, collection, initial)
	if err != nil {
		return nil, wrapErr("aggregate", collection, err)
	}
	out, err := apply(ctx, f, docs, rest)
	if err != nil {
		return nil, wrapErr("aggregate", collection, err)
	}
	return out, nil
}

func apply(ctx context.Context, f Finder, docs []Document, pipeline Pipeline) ([]Document, error) {
	for _, st := range pipeline {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var err error
		switch s := st.(type) {
		case Match:
			docs = applyMatch(docs, s)
		case Lookup:
			docs, err = applyLookup(ctx, f, docs, s)
		case LookupCount:
			docs, err = applyLookupCount(ctx, f, docs, s)
		case AddFields:
			docs = applyAddFields(docs, s)
		case Project:
			docs = applyProject(docs, s)
		default:
			err = fmt.Errorf("unsupported stage %T", st)
		}
		if err != nil {
			return nil, err
		}
	}
	return docs, nil
}

func applyMatch(docs []Document, m Match) []Document {
	out := make([]Document, 0, len(docs))
	for _, d := range docs {
		if m.Filter.Matches(d) {
			out = append(out, d)
		}
	}
	return out
}

// lookupKeys は入力全件のfieldの値を重複なく集める。
func lookupKeys(docs []Document, field string) []any {
	seen := make(map[any]struct{})
	var keys []any
	for _, d := range docs {
		for _, v := range valuesAt(d, field) {
			if !isComparable(v) {
				continue
			}
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			keys = append(keys, v)
		}
	}
	return keys
}

func applyLookup(ctx context.Context, f Finder, docs []Document, l Lookup) ([]Document, error) {
	var foreign []Document
	if keys := lookupKeys(docs, l.LocalField); len(keys) > 0 {
		filter := append(Filter{In(l.ForeignField, keys...)}, l.Filter...)
		found, err := f.Find(ctx, l.From, filter)
		if err != nil {
			return nil, wrapErr("lookup", l.From, err)
		}
		foreign = found
	}

	out := make([]Document, 0, len(docs))
	for _, d := range docs {
		match := Filter{In(l.ForeignField, valuesAt(d, l.LocalField)...)}
		joined := make([]Document, 0)
		for _, fd := range foreign {
			if match.Matches(fd) {
				joined = append(joined, fd)
			}
		}
		if len(l.Pipeline) > 0 && len(joined) > 0 {
			var err error
			joined, err = apply(ctx, f, joined, l.Pipeline)
			if err != nil {
				return nil, err
			}
		}
		nd := d.Clone()
		nd[l.As] = joined
		out = append(out, nd)
	}
	return out, nil
}

func applyLookupCount(ctx context.Context, f Finder, docs []Document, l LookupCount) ([]Document, error) {
	c, ok := f.(Counter)
	if !ok {
		// 件数を集計できない場合はLookupとSizeで求める
		joined, err := applyLookup(ctx, f, docs, Lookup{
			From: l.From, LocalField: l.LocalField, ForeignField: l.ForeignField, As: l.As,
		})
		if err != nil {
			return nil, err
		}
		return applyAddFields(joined, AddFields{Fields: map[string]Expr{l.As: Size(l.As)}}), nil
	}

	counts := map[any]int{}
	if keys := lookupKeys(docs, l.LocalField); len(keys) > 0 {
		var err error
		counts, err = c.CountBy(ctx, l.From, l.ForeignField, keys)
		if err != nil {
			return nil, wrapErr("lookupCount", l.From, err)
		}
	}

	out := make([]Document, 0, len(docs))
	for _, d := range docs {
		n := 0
		seen := make(map[any]struct{})
		for _, v := range valuesAt(d, l.LocalField) {
			if !isComparable(v) {
				continue
			}
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			n += counts[v]
		}
		nd := d.Clone()
		nd[l.As] = n
		out = append(out, nd)
	}
	return out, nil
}

func applyAddFields(docs []Document, a AddFields) []Document {
	out := make([]Document, 0, len(docs))
	for _, d := range docs {
		nd := d.Clone()
		for field, expr := range a.Fields {
			// 式はすべて入力ドキュメントに対して評価する
			v := expr.eval(d)
			if v == nil {
				delete(nd, field)
				continue
			}
			nd[field] = v
		}
		out = append(out, nd)
	}
	return out
}

func applyProject(docs []Document, p Project) []Document {
	out := make([]Document, 0, len(docs))
	for _, d := range docs {
		nd := make(Document, len(p.Fields)+1)
		if id, ok := d[IDField]; ok {
			nd[IDField] = id
		}
		for _, field := range p.Fields {
			if v, ok := d[field]; ok {
				nd[field] = v
			}
		}
		out = append(out, nd)
	}
	return out
}

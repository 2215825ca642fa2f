// Package docstore はコレクション単位のドキュメントストア抽象と、
// match → lookup → addFields → project からなる宣言的な集約パイプラインを提供する。
//
// パイプラインはFinder（フィルタ検索のみを持つ最小インターフェース）の上で評価されるため、
// PostgreSQLとインメモリのどちらのストアでも同じ結合ロジックが使われる。
package docstore

import (
	"reflect"
	"strings"
	"time"
)

// IDField はドキュメントの主キーフィールド名。
const IDField = "_id"

// コレクション名
const (
	CollectionUsers         = "users"
	CollectionSubscriptions = "subscriptions"
	CollectionVideos        = "videos"
)

// Document はコレクション内の1件のドキュメントを表す。
// 値はstring、int、bool、time.Time、[]string、Document、[]Documentのいずれかを想定する。
type Document map[string]any

// Clone はトップレベルのフィールドをコピーした新しいDocumentを返す。
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// String はフィールドを文字列として返す。存在しない場合や型が異なる場合は空文字列。
func (d Document) String(field string) string {
	s, _ := d[field].(string)
	return s
}

// Int はフィールドを整数として返す。
func (d Document) Int(field string) int {
	switch v := d[field].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	}
	return 0
}

// Bool はフィールドを真偽値として返す。
func (d Document) Bool(field string) bool {
	b, _ := d[field].(bool)
	return b
}

// Time はフィールドを時刻として返す。
func (d Document) Time(field string) time.Time {
	t, _ := d[field].(time.Time)
	return t
}

// Strings はフィールドを文字列スライスとして返す。
func (d Document) Strings(field string) []string {
	switch v := d[field].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Doc はフィールドを埋め込みドキュメントとして返す。存在しない場合はnil。
func (d Document) Doc(field string) Document {
	sub, _ := d[field].(Document)
	return sub
}

// valueAt はドット区切りのパスを辿って値を返す。配列の展開は行わない。
func valueAt(d Document, path string) (any, bool) {
	var cur any = d
	for _, part := range strings.Split(path, ".") {
		doc, ok := cur.(Document)
		if !ok {
			return nil, false
		}
		cur, ok = doc[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// valuesAt はドット区切りのパスを辿り、途中および末端の配列を展開して値を列挙する。
// "subscribers.subscriber" は subscribers 配列の各要素の subscriber を返す。
func valuesAt(d Document, path string) []any {
	return resolve(d, strings.Split(path, "."))
}

func resolve(v any, parts []string) []any {
	if len(parts) == 0 {
		return flatten(v)
	}
	switch t := v.(type) {
	case Document:
		next, ok := t[parts[0]]
		if !ok {
			return nil
		}
		return resolve(next, parts[1:])
	case []Document:
		var out []any
		for _, sub := range t {
			out = append(out, resolve(sub, parts)...)
		}
		return out
	}
	return nil
}

func flatten(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	case []any:
		return t
	case []Document:
		out := make([]any, len(t))
		for i, sub := range t {
			out[i] = sub
		}
		return out
	}
	return []any{v}
}

// lengthOf は配列値の長さを返す。配列でない場合は0。
func lengthOf(v any) int {
	switch t := v.(type) {
	case []Document:
		return len(t)
	case []string:
		return len(t)
	case []any:
		return len(t)
	}
	return 0
}

// equal は比較可能な値同士のみを等価比較する。
func equal(a, b any) bool {
	if a == nil || b == nil {
		return false
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

// isComparable はmapのキーとして使える値かどうかを返す。
func isComparable(v any) bool {
	return v != nil && reflect.TypeOf(v).Comparable()
}

package docstore

import (
	"context"
	"errors"
	"sync"
)

// ErrUnknownCollection は登録されていないコレクションを参照した場合のエラー。
var ErrUnknownCollection = errors.New("unknown collection")

// MemoryStore はインメモリのドキュメントストア。
// テストやローカル開発で使用する。並行利用に対して安全。
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string][]Document
	// failWith が設定されている場合、すべての検索がこのエラーで失敗する。
	failWith error
}

// NewMemoryStore は users、subscriptions、videos コレクションを持つMemoryStoreを生成する。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: map[string][]Document{
			CollectionUsers:         {},
			CollectionSubscriptions: {},
			CollectionVideos:        {},
		},
	}
}

// Insert はドキュメントを追加する。渡されたドキュメントは複製して保持する。
func (s *MemoryStore) Insert(collection string, docs ...Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.collections[collection]
	if !ok {
		return &StoreError{Op: "insert", Collection: collection, Err: ErrUnknownCollection}
	}
	for _, d := range docs {
		existing = append(existing, deepClone(d))
	}
	s.collections[collection] = existing
	return nil
}

// FailWith は以降の検索をerrで失敗させる。nilを渡すと解除する。
func (s *MemoryStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}

// Find はFinderインターフェースを実装する。
func (s *MemoryStore) Find(ctx context.Context, collection string, filter Filter) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, &StoreError{Op: "find", Collection: collection, Err: err}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.failWith != nil {
		return nil, &StoreError{Op: "find", Collection: collection, Err: s.failWith}
	}
	docs, ok := s.collections[collection]
	if !ok {
		return nil, &StoreError{Op: "find", Collection: collection, Err: ErrUnknownCollection}
	}

	out := make([]Document, 0)
	for _, d := range docs {
		if filter.Matches(d) {
			out = append(out, deepClone(d))
		}
	}
	return out, nil
}

// FindOne はStoreインターフェースを実装する。
func (s *MemoryStore) FindOne(ctx context.Context, collection string, filter Filter) (Document, error) {
	return FindOne(ctx, s, collection, filter)
}

// Aggregate はStoreインターフェースを実装する。
func (s *MemoryStore) Aggregate(ctx context.Context, collection string, pipeline Pipeline) ([]Document, error) {
	return Aggregate(ctx, s, collection, pipeline)
}

func deepClone(d Document) Document {
	out := make(Document, len(d))
	for k, v := range d {
		switch t := v.(type) {
		case []string:
			out[k] = append([]string(nil), t...)
		case Document:
			out[k] = deepClone(t)
		case []Document:
			docs := make([]Document, len(t))
			for i, sub := range t {
				docs[i] = deepClone(sub)
			}
			out[k] = docs
		default:
			out[k] = v
		}
	}
	return out
}

var _ Store = (*MemoryStore)(nil)

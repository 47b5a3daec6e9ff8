package search

import (
	"context"
	"sort"

	"github.com/coderune/rune/internal/vectorstore"
)

// fakeStore is an in-memory vectorstore.Store whose similarity search
// returns canned points, optionally failing to exercise the degraded
// path.
type fakeStore struct {
	points      map[string][]vectorstore.ScoredPoint // by collection
	unavailable bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{points: make(map[string][]vectorstore.ScoredPoint)}
}

func (f *fakeStore) Upsert(_ context.Context, collection string, points []vectorstore.Point) error {
	if f.unavailable {
		return vectorstore.ErrUnavailable
	}
	for _, p := range points {
		f.points[collection] = append(f.points[collection], vectorstore.ScoredPoint{Point: p, Score: 1})
	}
	return nil
}

func (f *fakeStore) Search(_ context.Context, collection string, _ []float32, k int, filter map[string]string) ([]vectorstore.ScoredPoint, error) {
	if f.unavailable {
		return nil, vectorstore.ErrUnavailable
	}
	var out []vectorstore.ScoredPoint
	for _, p := range f.points[collection] {
		if repo, ok := filter["repository"]; ok && repo != "" && p.Repository != repo {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func (f *fakeStore) ExactSearch(ctx context.Context, collection string, vector []float32, k int) ([]vectorstore.ScoredPoint, error) {
	return f.Search(ctx, collection, vector, k, nil)
}

func (f *fakeStore) Delete(_ context.Context, collection string, ids []string) error {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := f.points[collection][:0]
	for _, p := range f.points[collection] {
		if !drop[p.ID] {
			kept = append(kept, p)
		}
	}
	f.points[collection] = kept
	return nil
}

func (f *fakeStore) DeleteByPath(_ context.Context, collection string, path string) error {
	if f.unavailable {
		return vectorstore.ErrUnavailable
	}
	kept := f.points[collection][:0]
	for _, p := range f.points[collection] {
		if p.Path != path {
			kept = append(kept, p)
		}
	}
	f.points[collection] = kept
	return nil
}

func (f *fakeStore) CreateCollection(_ context.Context, _ string, _ int, _ vectorstore.QuantizationMode) error {
	return nil
}

func (f *fakeStore) DeleteCollection(_ context.Context, collection string) error {
	delete(f.points, collection)
	return nil
}

func (f *fakeStore) CollectionExists(_ context.Context, collection string) (bool, error) {
	_, ok := f.points[collection]
	return ok, nil
}

func (f *fakeStore) GetCollectionInfo(_ context.Context, collection string) (*vectorstore.CollectionInfo, error) {
	return &vectorstore.CollectionInfo{Name: collection, PointCount: len(f.points[collection]), VectorSize: 384}, nil
}

func (f *fakeStore) Close() error { return nil }

var _ vectorstore.Store = (*fakeStore)(nil)

// fakeEmbedder returns a constant vector; semantic ranking in tests
// comes from the fake store's canned scores, not real similarity.
type fakeEmbedder struct{}

func (fakeEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, 384)
	}
	return out, nil
}

func (fakeEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	return make([]float32, 384), nil
}

func (fakeEmbedder) Dimension() int { return 384 }

func (fakeEmbedder) Close() error { return nil }

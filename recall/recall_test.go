package recall

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/pkg/utils"
	"github.com/rushteam/hybridrec/store"
)

func adapter(t *testing.T) *store.ModelAdapter {
	t.Helper()
	kv := store.NewMemoryStore(store.WithCleanupInterval(0))
	t.Cleanup(func() { _ = kv.Close() })
	a := store.NewModelAdapter(kv, "test")
	require.NoError(t, a.Save(context.Background(), &store.Snapshot{
		Variant:    "rating",
		NumFactors: 2,
		Users:      map[string][]float64{"u1": {1, 0}, "u2": {0, 1}, "u3": {1, 1}},
		Items:      map[string][]float64{"i1": {2, 0}, "i2": {1, 1}, "i3": {0, 3}},
		Neighbors: map[core.Side]map[string][]store.NeighborEntry{
			core.SideUser: {"u1": {{ID: "u2", Weight: 0.4}, {ID: "ghost", Weight: 0.3}}},
		},
	}))
	return a
}

func ids(items []*core.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestHybridRecall(t *testing.T) {
	ctx := context.Background()
	r := NewHybridRecall(adapter(t), 10)

	items, err := r.Recall(ctx, &core.RecommendContext{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"i1", "i2", "i3"}, ids(items))
	assert.Equal(t, 2.0, items[0].Score)
	assert.Equal(t, "hybrid", items[0].Labels[utils.LabelRecallSource].Value)

	items, err = r.Recall(ctx, &core.RecommendContext{
		UserID:  "u1",
		Exclude: map[string]struct{}{"i1": {}},
		Labels:  map[string]utils.Label{utils.LabelVariant: utils.NewLabel("rating", "request")},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"i2", "i3"}, ids(items))
	assert.Equal(t, "rating", items[0].Labels[utils.LabelVariant].Value)

	items, err = r.Recall(ctx, &core.RecommendContext{UserID: "nobody"})
	assert.NoError(t, err)
	assert.Empty(t, items)

	r.TopK = 1
	r.Refresh()
	items, err = r.Recall(ctx, &core.RecommendContext{UserID: "u3"})
	require.NoError(t, err)
	assert.Equal(t, []string{"i3"}, ids(items))
}

func TestNeighborRecall(t *testing.T) {
	ctx := context.Background()
	r := NewNeighborRecall(adapter(t), 2, 0)

	items, err := r.Recall(ctx, &core.RecommendContext{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"i3", "i2"}, ids(items))
	assert.InDelta(t, 3.0, items[0].Score, 1e-12)
	assert.Equal(t, "neighbor", items[0].Labels[utils.LabelRecallSource].Value)
	assert.Equal(t, "u2", items[0].Labels[utils.LabelNeighbor].Value)

	items, err = r.Recall(ctx, &core.RecommendContext{UserID: "u2"})
	assert.NoError(t, err)
	assert.Empty(t, items)
}

type failing struct{}

func (failing) Name() string { return "failing" }

func (failing) Recall(context.Context, *core.RecommendContext) ([]*core.Item, error) {
	return nil, errors.New("boom")
}

func TestFanoutMerges(t *testing.T) {
	ctx := context.Background()
	a := adapter(t)
	f := &Fanout{
		Sources:       []Source{NewHybridRecall(a, 10), failing{}, NewNeighborRecall(a, 10, 0)},
		Merge:         MergeMax,
		MaxConcurrent: 2,
	}
	items, err := f.Recall(ctx, &core.RecommendContext{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"i3", "i1", "i2"}, ids(items))
	assert.InDelta(t, 3.0, items[0].Score, 1e-12)
	assert.Equal(t, "hybrid|neighbor", items[0].Labels[utils.LabelRecallSource].Value)
	assert.Equal(t, "0", items[0].Labels["recall_priority"].Value)

	f.Merge = MergeUnion
	items, err = f.Recall(ctx, &core.RecommendContext{UserID: "u1"})
	require.NoError(t, err)
	assert.Len(t, items, 6)

	f.Merge = MergeFirst
	f.TopK = 2
	items, err = f.Recall(ctx, &core.RecommendContext{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"i1", "i2"}, ids(items))
}

type sparse struct{}

func (sparse) Name() string { return "sparse" }

func (sparse) Recall(context.Context, *core.RecommendContext) ([]*core.Item, error) {
	it := core.NewItem("x")
	it.Score = 1
	return []*core.Item{nil, it, nil}, nil
}

func TestFanoutSkipsNilItems(t *testing.T) {
	for _, merge := range []MergeStrategy{MergeFirst, MergeMax, MergeUnion} {
		t.Run(string(merge), func(t *testing.T) {
			f := &Fanout{Sources: []Source{sparse{}}, Merge: merge}
			items, err := f.Recall(context.Background(), &core.RecommendContext{UserID: "u1"})
			require.NoError(t, err)
			assert.Equal(t, []string{"x"}, ids(items))
			assert.Equal(t, "0", items[0].Labels["recall_priority"].Value)
		})
	}
}

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/dataset"
	"github.com/rushteam/hybridrec/hybrid"
	"github.com/rushteam/hybridrec/preference"
)

func testSnapshot() *Snapshot {
	return &Snapshot{
		Variant:    "rating",
		NumFactors: 2,
		Users:      map[string][]float64{"u1": {1, 0}, "u2": {0, 1}},
		Items:      map[string][]float64{"i1": {2, 0}, "i2": {1, 1}, "i3": {0, 3}},
		Neighbors: map[core.Side]map[string][]NeighborEntry{
			core.SideUser: {"u1": {{ID: "u2", Weight: 0.4}}},
			core.SideItem: {"i1": {{ID: "i2", Weight: 0.9}, {ID: "i3", Weight: 0.2}}},
		},
	}
}

func TestModelAdapterRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryStore(WithCleanupInterval(0))
	defer kv.Close()
	a := NewModelAdapter(kv, "")
	require.NoError(t, a.Save(ctx, testSnapshot()))

	assert.Contains(t, kv.Keys("hybridrec:"), "hybridrec:user:u1")
	assert.Contains(t, kv.Keys("hybridrec:"), "hybridrec:items")

	vec, err := a.UserVector(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1}, vec)
	_, err = a.UserVector(ctx, "u9")
	assert.True(t, core.IsStoreNotFound(err))

	ids, err := a.ItemIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"i1", "i2", "i3"}, ids)

	vecs, err := a.ItemVectors(ctx, []string{"i3", "i9"})
	require.NoError(t, err)
	assert.Equal(t, map[string][]float64{"i3": {0, 3}}, vecs)

	nbs, err := a.Neighbors(ctx, core.SideItem, "i1", 0)
	require.NoError(t, err)
	assert.Equal(t, []NeighborEntry{{ID: "i2", Weight: 0.9}, {ID: "i3", Weight: 0.2}}, nbs)
	nbs, err = a.Neighbors(ctx, core.SideItem, "i1", 1)
	require.NoError(t, err)
	assert.Len(t, nbs, 1)
	nbs, err = a.Neighbors(ctx, core.SideUser, "u2", 5)
	require.NoError(t, err)
	assert.Empty(t, nbs)

	meta, err := a.Meta(ctx)
	require.NoError(t, err)
	assert.Equal(t, "rating", meta["variant"])
	assert.Equal(t, "2", meta["num_factors"])

	idx, err := a.LoadIndex(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Len())
	assert.Equal(t, 2, idx.Dimension())
}

func TestModelAdapterReplacesNeighbors(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryStore(WithCleanupInterval(0))
	defer kv.Close()
	a := NewModelAdapter(kv, "m")
	require.NoError(t, a.Save(ctx, testSnapshot()))

	snap := testSnapshot()
	snap.Neighbors[core.SideItem]["i1"] = []NeighborEntry{{ID: "i3", Weight: 0.7}}
	require.NoError(t, a.Save(ctx, snap))

	nbs, err := a.Neighbors(ctx, core.SideItem, "i1", 0)
	require.NoError(t, err)
	assert.Equal(t, []NeighborEntry{{ID: "i3", Weight: 0.7}}, nbs)
}

func TestSnapshotFromModel(t *testing.T) {
	users, items := dataset.NewIDMap(), dataset.NewIDMap()
	b := dataset.NewRatingBuilder()
	tags := dataset.NewTagSource()
	for _, r := range []struct {
		u, i string
		v    float64
		tag  string
	}{
		{"alice", "m1", 5, "scifi"},
		{"alice", "m2", 4, "drama"},
		{"bob", "m1", 4, "scifi"},
		{"bob", "m3", 2, "drama"},
		{"carol", "m3", 3, "comedy"},
	} {
		u, i := users.Add(r.u), items.Add(r.i)
		require.NoError(t, b.Set(u, i, r.v))
		tags.AddPairTag(u, i, r.tag)
	}

	cfg := hybrid.DefaultConfig()
	cfg.NumFactors = 2
	cfg.Preference = preference.Config{Classes: preference.SplitSingle}
	m, err := hybrid.New(cfg)
	require.NoError(t, err)
	require.NoError(t, m.Setup(b.Build(users.Len(), items.Len()), tags))
	m.InitFactors(func() float64 { return 0.5 })

	snap := SnapshotFrom(m, users, items, "rating")
	assert.Equal(t, "rating", snap.Variant)
	assert.Len(t, snap.Users, 3)
	assert.Len(t, snap.Items, 3)
	assert.Equal(t, []float64{0.5, 0.5}, snap.Users["carol"])

	userNbs := snap.Neighbors[core.SideUser]
	require.Contains(t, userNbs, "alice")
	assert.Equal(t, "bob", userNbs["alice"][0].ID)
	assert.NotContains(t, userNbs, "carol")
	assert.NotContains(t, snap.Neighbors, core.SideItem)
}

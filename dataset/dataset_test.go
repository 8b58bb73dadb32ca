package dataset

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/hybridrec/core"
)

func TestIDMap(t *testing.T) {
	m := NewIDMap()
	assert.Equal(t, 0, m.Add("u1"))
	assert.Equal(t, 1, m.Add("u2"))
	assert.Equal(t, 0, m.Add("u1"))
	assert.Equal(t, 2, m.Len())

	idx, ok := m.Index("u2")
	assert.True(t, ok)
	assert.Equal(t, 1, idx)
	raw, ok := m.Raw(1)
	assert.True(t, ok)
	assert.Equal(t, "u2", raw)
	_, ok = m.Raw(5)
	assert.False(t, ok)
	assert.Equal(t, []string{"u1", "u2"}, m.Raws())
}

func TestRatingMatrix(t *testing.T) {
	b := NewRatingBuilder()
	require.NoError(t, b.Set(1, 2, 4))
	require.NoError(t, b.Set(0, 1, 3))
	require.NoError(t, b.Set(1, 0, 5))
	require.NoError(t, b.Set(1, 0, 2))
	assert.Error(t, b.Set(0, 0, 0))
	assert.Error(t, b.Set(-1, 0, 1))

	m := b.Build(3, 0)
	assert.Equal(t, 3, m.NumRows())
	assert.Equal(t, 3, m.NumColumns())
	assert.Equal(t, 3, m.Size())
	assert.Equal(t, []int{0, 2}, m.RowIndices(1))
	assert.Empty(t, m.RowIndices(2))
	assert.Equal(t, []int{1}, m.ColumnIndices(0))
	assert.Equal(t, 2.0, m.Get(1, 0))
	assert.Equal(t, 0.0, m.Get(2, 2))

	var seen [][3]float64
	m.ForEachObserved(func(r, c int, v float64) {
		seen = append(seen, [3]float64{float64(r), float64(c), v})
	})
	assert.Equal(t, [][3]float64{{0, 1, 3}, {1, 0, 2}, {1, 2, 4}}, seen)

	lo, hi := m.Range()
	assert.Equal(t, 2.0, lo)
	assert.Equal(t, 4.0, hi)
}

func TestTransposeView(t *testing.T) {
	b := NewRatingBuilder()
	require.NoError(t, b.Set(0, 2, 4))
	require.NoError(t, b.Set(1, 2, 1))
	m := b.Build(2, 3)

	tr := core.Transpose(m)
	assert.Equal(t, 3, tr.NumRows())
	assert.Equal(t, 2, tr.NumColumns())
	assert.Equal(t, []int{0, 1}, tr.RowIndices(2))
	assert.Equal(t, 4.0, tr.Get(2, 0))

	count := 0
	tr.ForEachObserved(func(r, c int, v float64) {
		assert.Equal(t, 2, r)
		assert.Equal(t, m.Get(c, r), v)
		count++
	})
	assert.Equal(t, 2, count)
	assert.Same(t, m, core.Transpose(tr))
}

func TestLoadRatingsSkipsMalformedLines(t *testing.T) {
	input := strings.Join([]string{
		"# user item rating",
		"u1 i1 4",
		"u1,i2,2.5",
		"u2\ti1\t5\t978300760",
		"u3 i3",
		"u3 i3 abc",
		"u3 i3 0",
		"",
	}, "\n")

	users, items := NewIDMap(), NewIDMap()
	m, stats, err := LoadRatings(strings.NewReader(input), users, items)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Loaded)
	assert.Equal(t, 3, stats.Skipped)
	assert.Equal(t, 2, users.Len())
	assert.Equal(t, 2, items.Len())
	assert.Equal(t, 2.5, m.Get(0, 1))
	assert.Equal(t, 5.0, m.Get(1, 0))
}

func TestLoadTags(t *testing.T) {
	users, items := NewIDMap(), NewIDMap()
	users.Add("u1")
	items.Add("i1")

	input := "u1 i1 action 1\nu1 i1 drama\nu9 i1 comedy\nbad line\n"
	src, stats, err := LoadTags(strings.NewReader(input), users, items, TagLoadOptions{UserTags: true, ItemTags: true})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Loaded)
	assert.Equal(t, 2, stats.Skipped)
	assert.Equal(t, []string{"action", "drama"}, src.PairTagsFor(0, 0))
	assert.Equal(t, []string{"action", "drama"}, src.TagsFor(core.SideUser, 0))
	assert.Equal(t, []string{"action", "drama"}, src.TagsFor(core.SideItem, 0))
	assert.Nil(t, src.TagsFor(core.SideUser, 9))

	src, _, err = LoadTags(strings.NewReader(input), users, items, TagLoadOptions{AllowNew: true})
	require.NoError(t, err)
	assert.Equal(t, 2, users.Len())
	assert.Equal(t, []string{"comedy"}, src.PairTagsFor(1, 0))
}

func TestLoadFeatures(t *testing.T) {
	items := NewIDMap()
	items.Add("i1")
	src := NewTagSource()
	stats, err := LoadFeatures(strings.NewReader("i1 action drama\ni2 comedy\ni1\n"), core.SideItem, items, src)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Loaded)
	assert.Equal(t, []string{"action", "drama"}, src.TagsFor(core.SideItem, 0))
}

func TestSplitIsDeterministic(t *testing.T) {
	b := NewRatingBuilder()
	for u := 0; u < 20; u++ {
		for i := 0; i < 10; i++ {
			require.NoError(t, b.Set(u, i, float64(1+(u+i)%5)))
		}
	}
	m := b.Build(0, 0)

	train, test := Split(m, 0.25, 7)
	assert.Equal(t, m.Size(), train.Size()+test.Size())
	assert.Equal(t, m.NumRows(), test.NumRows())
	assert.Greater(t, test.Size(), 0)

	train2, test2 := Split(m, 0.25, 7)
	assert.Equal(t, train.Size(), train2.Size())
	assert.Equal(t, test.Size(), test2.Size())
}

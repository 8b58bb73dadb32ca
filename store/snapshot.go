package store

import (
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/dataset"
	"github.com/rushteam/hybridrec/hybrid"
)

// SnapshotFrom 把训练好的模型按 ID 映射转成原始 ID 表示的快照。
// 模型里有行但 ID 映射中没有原始 ID 的实体会被跳过。
func SnapshotFrom(m *hybrid.Model, users, items *dataset.IDMap, variant string) *Snapshot {
	P, Q := m.Factors()
	snap := &Snapshot{
		Variant:    variant,
		NumFactors: m.Config().NumFactors,
		Users:      rows(P, users),
		Items:      rows(Q, items),
		Neighbors:  make(map[core.Side]map[string][]NeighborEntry),
		TrainedAt:  time.Now(),
	}
	for _, side := range []core.Side{core.SideUser, core.SideItem} {
		g := m.Graph(side)
		if g == nil {
			continue
		}
		ids := users
		if side == core.SideItem {
			ids = items
		}
		lists := make(map[string][]NeighborEntry)
		for i := 0; i < g.Len(); i++ {
			raw, ok := ids.Raw(i)
			if !ok || len(g.Neighbors(i)) == 0 {
				continue
			}
			list := make([]NeighborEntry, 0, len(g.Neighbors(i)))
			for _, nb := range g.Neighbors(i) {
				if nraw, ok := ids.Raw(nb.Index); ok {
					list = append(list, NeighborEntry{ID: nraw, Weight: nb.Weight})
				}
			}
			lists[raw] = list
		}
		snap.Neighbors[side] = lists
	}
	return snap
}

func rows(d *mat.Dense, ids *dataset.IDMap) map[string][]float64 {
	out := make(map[string][]float64, ids.Len())
	if d == nil {
		return out
	}
	n, _ := d.Dims()
	for i := 0; i < n; i++ {
		raw, ok := ids.Raw(i)
		if !ok {
			continue
		}
		out[raw] = append([]float64(nil), d.RawRowView(i)...)
	}
	return out
}

package recall

import (
	"context"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/pkg/utils"
)

// NeighborRecall 用用户近邻的因子加权均值 Σ w*U[n] / Σ|w| 作为查询向量召回物品，
// 与模型中用户侧近邻修正项的形式一致。没有导出近邻的用户不召回。
//
// Label：recall_source=neighbor，neighbor=参与打分的近邻 ID（按相似度降序，以 ',' 连接）。
type NeighborRecall struct {
	Store NeighborStore
	TopK  int
	// Neighbors 参与打分的近邻数，<=0 时使用全部导出的近邻
	Neighbors int

	index factorIndex
}

func NewNeighborRecall(s NeighborStore, topK, neighbors int) *NeighborRecall {
	return &NeighborRecall{Store: s, TopK: topK, Neighbors: neighbors}
}

func (r *NeighborRecall) Name() string { return "recall.neighbor" }

// Refresh 丢弃缓存的物品索引
func (r *NeighborRecall) Refresh() { r.index.reset() }

func (r *NeighborRecall) Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	if r.Store == nil || rctx == nil || rctx.UserID == "" {
		return nil, nil
	}
	nbs, err := r.Store.Neighbors(ctx, core.SideUser, rctx.UserID, r.Neighbors)
	if err != nil || len(nbs) == 0 {
		return nil, err
	}

	var query []float64
	var sum float64
	used := make([]string, 0, len(nbs))
	for _, nb := range nbs {
		vec, err := r.Store.UserVector(ctx, nb.ID)
		if err != nil {
			if core.IsStoreNotFound(err) {
				continue
			}
			return nil, err
		}
		if query == nil {
			query = make([]float64, len(vec))
		}
		if len(vec) != len(query) {
			continue
		}
		floats.AddScaled(query, nb.Weight, vec)
		sum += math.Abs(nb.Weight)
		used = append(used, nb.ID)
	}
	if sum == 0 {
		return nil, nil
	}
	floats.Scale(1/sum, query)

	idx, err := r.index.get(ctx, r.Store)
	if err != nil {
		return nil, err
	}
	hits, err := idx.Search(query, topKOrDefault(r.TopK), rctx.Excluded)
	if err != nil {
		return nil, err
	}
	items := toItems(hits, rctx, "neighbor")
	lbl := utils.NewLabel(strings.Join(used, ","), "recall")
	for _, it := range items {
		it.PutLabel(utils.LabelNeighbor, lbl)
	}
	return items, nil
}

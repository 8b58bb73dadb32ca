package recall

import (
	"context"
	"sync"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/pkg/utils"
	"github.com/rushteam/hybridrec/store"
)

// FactorStore 提供召回需要的模型数据，store.ModelAdapter 实现了它。
type FactorStore interface {
	UserVector(ctx context.Context, raw string) ([]float64, error)
	LoadIndex(ctx context.Context) (*store.FactorIndex, error)
}

// NeighborStore 在 FactorStore 之上还能读取导出的近邻表
type NeighborStore interface {
	FactorStore
	Neighbors(ctx context.Context, side core.Side, raw string, topK int) ([]store.NeighborEntry, error)
}

var _ NeighborStore = (*store.ModelAdapter)(nil)

// factorIndex 懒加载物品因子索引，Refresh 后重新加载
type factorIndex struct {
	mu  sync.Mutex
	idx *store.FactorIndex
}

func (f *factorIndex) get(ctx context.Context, s FactorStore) (*store.FactorIndex, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.idx != nil {
		return f.idx, nil
	}
	idx, err := s.LoadIndex(ctx)
	if err != nil {
		return nil, err
	}
	f.idx = idx
	return idx, nil
}

func (f *factorIndex) reset() {
	f.mu.Lock()
	f.idx = nil
	f.mu.Unlock()
}

// HybridRecall 用导出的用户因子与全部物品因子的内积召回 TopK。
//
// 打分等价于模型的显式点积项；近邻修正项在训练时已经体现在因子里。
// Label：recall_source=hybrid。
type HybridRecall struct {
	Store FactorStore
	// TopK 返回条数，<=0 时为 20
	TopK int

	index factorIndex
}

func NewHybridRecall(s FactorStore, topK int) *HybridRecall {
	return &HybridRecall{Store: s, TopK: topK}
}

func (r *HybridRecall) Name() string { return "recall.hybrid" }

// Refresh 丢弃缓存的物品索引，下次召回时重新从 Store 加载（模型重新导出后调用）
func (r *HybridRecall) Refresh() { r.index.reset() }

func (r *HybridRecall) Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	if r.Store == nil || rctx == nil || rctx.UserID == "" {
		return nil, nil
	}
	vec, err := r.Store.UserVector(ctx, rctx.UserID)
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	idx, err := r.index.get(ctx, r.Store)
	if err != nil {
		return nil, err
	}
	hits, err := idx.Search(vec, topKOrDefault(r.TopK), rctx.Excluded)
	if err != nil {
		return nil, err
	}
	return toItems(hits, rctx, "hybrid"), nil
}

func topKOrDefault(k int) int {
	if k <= 0 {
		return 20
	}
	return k
}

func toItems(hits []store.Scored, rctx *core.RecommendContext, source string) []*core.Item {
	out := make([]*core.Item, 0, len(hits))
	for _, h := range hits {
		it := core.NewItem(h.ID)
		it.Score = h.Score
		it.PutLabel(utils.LabelRecallSource, utils.NewLabel(source, "recall"))
		for k, v := range rctx.Labels {
			it.PutLabel(k, v)
		}
		out = append(out, it)
	}
	return out
}

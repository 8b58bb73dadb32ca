package store

import (
	"sort"
	"sync"

	"gonum.org/v1/gonum/floats"

	"github.com/rushteam/hybridrec/core"
)

// FactorIndex 是物品因子向量的内存索引，按内积（即模型的显式预测）检索 top-K。
//
// 特点：
//   - 维度在第一次写入时确定，之后写入维度不一致的向量会被拒绝
//   - 线程安全，可在召回中并发 Search
type FactorIndex struct {
	mu      sync.RWMutex
	dim     int
	vectors map[string][]float64
}

// Scored 是一条检索结果
type Scored struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

func NewFactorIndex() *FactorIndex {
	return &FactorIndex{vectors: make(map[string][]float64)}
}

// Upsert 写入或覆盖 id 的向量
func (x *FactorIndex) Upsert(id string, vec []float64) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if len(vec) == 0 {
		return core.NewDomainError(core.ModuleStore, core.ErrorCodeInvalidInput, "store: empty factor vector for "+id)
	}
	if x.dim == 0 {
		x.dim = len(vec)
	}
	if len(vec) != x.dim {
		return core.NewDomainError(core.ModuleStore, core.ErrorCodeInvalidInput, "store: factor dimension mismatch for "+id)
	}
	x.vectors[id] = append([]float64(nil), vec...)
	return nil
}

// Delete 删除 id
func (x *FactorIndex) Delete(id string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.vectors, id)
}

func (x *FactorIndex) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.vectors)
}

// Dimension 返回向量维度，空索引为 0
func (x *FactorIndex) Dimension() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.dim
}

// Search 返回与 query 内积最大的 topK 个向量（分数降序、ID 升序），skip 返回 true 的 ID 被跳过。
func (x *FactorIndex) Search(query []float64, topK int, skip func(id string) bool) ([]Scored, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if len(x.vectors) == 0 {
		return nil, nil
	}
	if len(query) != x.dim {
		return nil, core.NewDomainError(core.ModuleStore, core.ErrorCodeInvalidInput, "store: query dimension mismatch")
	}
	result := make([]Scored, 0, len(x.vectors))
	for id, vec := range x.vectors {
		if skip != nil && skip(id) {
			continue
		}
		result = append(result, Scored{ID: id, Score: floats.Dot(query, vec)})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Score != result[j].Score {
			return result[i].Score > result[j].Score
		}
		return result[i].ID < result[j].ID
	})
	if topK > 0 && len(result) > topK {
		result = result[:topK]
	}
	return result, nil
}

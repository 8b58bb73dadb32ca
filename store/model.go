package store

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/rushteam/hybridrec/core"
)

// Snapshot 是导出到 Store 的模型快照，所有实体都以原始 ID 表示。
type Snapshot struct {
	Variant    string
	NumFactors int
	Users      map[string][]float64
	Items      map[string][]float64
	Neighbors  map[core.Side]map[string][]NeighborEntry
	TrainedAt  time.Time
}

// NeighborEntry 是一条导出的近邻
type NeighborEntry struct {
	ID     string  `json:"id"`
	Weight float64 `json:"weight"`
}

// ModelAdapter 把 Snapshot 写入 KeyValueStore 并按 key 读回。
//
// Key 约定：
//   - {prefix}:user:{raw}                用户因子（JSON 数组）
//   - {prefix}:item:{raw}                物品因子（JSON 数组）
//   - {prefix}:items                     全部物品原始 ID（JSON 数组，升序）
//   - {prefix}:neighbors:{side}:{raw}    近邻有序集合，分数为相似度
//   - {prefix}:meta                      哈希表：variant / num_factors / trained_at
type ModelAdapter struct {
	kv     core.KeyValueStore
	prefix string
}

// NewModelAdapter 创建适配器，prefix 为空时使用 "hybridrec"
func NewModelAdapter(kv core.KeyValueStore, prefix string) *ModelAdapter {
	if prefix == "" {
		prefix = "hybridrec"
	}
	return &ModelAdapter{kv: kv, prefix: prefix}
}

func (a *ModelAdapter) userKey(raw string) string { return a.prefix + ":user:" + raw }
func (a *ModelAdapter) itemKey(raw string) string { return a.prefix + ":item:" + raw }
func (a *ModelAdapter) itemsKey() string { return a.prefix + ":items" }
func (a *ModelAdapter) metaKey() string { return a.prefix + ":meta" }

func (a *ModelAdapter) neighborKey(side core.Side, raw string) string {
	return a.prefix + ":neighbors:" + string(side) + ":" + raw
}

// Save 写入快照，ttl 单位为秒（只作用于因子 key）
func (a *ModelAdapter) Save(ctx context.Context, snap *Snapshot, ttl ...int) error {
	kvs := make(map[string][]byte, len(snap.Users)+len(snap.Items)+1)
	for raw, vec := range snap.Users {
		b, err := json.Marshal(vec)
		if err != nil {
			return fmt.Errorf("encode user %s: %w", raw, err)
		}
		kvs[a.userKey(raw)] = b
	}
	ids := make([]string, 0, len(snap.Items))
	for raw, vec := range snap.Items {
		b, err := json.Marshal(vec)
		if err != nil {
			return fmt.Errorf("encode item %s: %w", raw, err)
		}
		kvs[a.itemKey(raw)] = b
		ids = append(ids, raw)
	}
	sort.Strings(ids)
	b, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	kvs[a.itemsKey()] = b
	if err := a.kv.BatchSet(ctx, kvs, ttl...); err != nil {
		return fmt.Errorf("save factors: %w", err)
	}

	for side, lists := range snap.Neighbors {
		for raw, list := range lists {
			if err := a.saveNeighbors(ctx, a.neighborKey(side, raw), list); err != nil {
				return fmt.Errorf("save neighbors of %s %s: %w", side, raw, err)
			}
		}
	}

	meta := map[string]string{
		"variant":     snap.Variant,
		"num_factors": strconv.Itoa(snap.NumFactors),
	}
	if !snap.TrainedAt.IsZero() {
		meta["trained_at"] = snap.TrainedAt.UTC().Format(time.RFC3339)
	}
	for f, v := range meta {
		if err := a.kv.HSet(ctx, a.metaKey(), f, []byte(v)); err != nil {
			return fmt.Errorf("save meta: %w", err)
		}
	}
	return nil
}

func (a *ModelAdapter) saveNeighbors(ctx context.Context, key string, list []NeighborEntry) error {
	members := make(map[string]float64, len(list))
	for _, nb := range list {
		members[nb.ID] = nb.Weight
	}
	if r, ok := a.kv.(ZSetReplacer); ok {
		return r.ZReplace(ctx, key, members)
	}
	if err := a.kv.Delete(ctx, key); err != nil {
		return err
	}
	for id, w := range members {
		if err := a.kv.ZAdd(ctx, key, w, id); err != nil {
			return err
		}
	}
	return nil
}

func (a *ModelAdapter) vector(ctx context.Context, key string) ([]float64, error) {
	b, err := a.kv.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var vec []float64
	if err := json.Unmarshal(b, &vec); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return vec, nil
}

// UserVector 读取用户因子，不存在时返回 core.ErrStoreNotFound
func (a *ModelAdapter) UserVector(ctx context.Context, raw string) ([]float64, error) {
	return a.vector(ctx, a.userKey(raw))
}

// ItemVector 读取物品因子，不存在时返回 core.ErrStoreNotFound
func (a *ModelAdapter) ItemVector(ctx context.Context, raw string) ([]float64, error) {
	return a.vector(ctx, a.itemKey(raw))
}

// ItemVectors 批量读取物品因子，缺失的物品不出现在结果中
func (a *ModelAdapter) ItemVectors(ctx context.Context, raws []string) (map[string][]float64, error) {
	keys := make([]string, len(raws))
	for i, raw := range raws {
		keys[i] = a.itemKey(raw)
	}
	vals, err := a.kv.BatchGet(ctx, keys)
	if err != nil {
		return nil, err
	}
	result := make(map[string][]float64, len(vals))
	for i, raw := range raws {
		b, ok := vals[keys[i]]
		if !ok {
			continue
		}
		var vec []float64
		if err := json.Unmarshal(b, &vec); err != nil {
			return nil, fmt.Errorf("decode item %s: %w", raw, err)
		}
		result[raw] = vec
	}
	return result, nil
}

// ItemIDs 返回全部物品原始 ID（升序）
func (a *ModelAdapter) ItemIDs(ctx context.Context) ([]string, error) {
	b, err := a.kv.Get(ctx, a.itemsKey())
	if err != nil {
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal(b, &ids); err != nil {
		return nil, fmt.Errorf("decode item ids: %w", err)
	}
	return ids, nil
}

// Neighbors 返回 side 一侧 raw 的前 topK 个近邻（topK<=0 时全部），按相似度降序
func (a *ModelAdapter) Neighbors(ctx context.Context, side core.Side, raw string, topK int) ([]NeighborEntry, error) {
	key := a.neighborKey(side, raw)
	stop := int64(topK) - 1
	if topK <= 0 {
		stop = -1
	}
	members, err := a.kv.ZRange(ctx, key, 0, stop)
	if err != nil {
		return nil, err
	}
	list := make([]NeighborEntry, 0, len(members))
	for _, id := range members {
		w, err := a.kv.ZScore(ctx, key, id)
		if err != nil {
			return nil, err
		}
		list = append(list, NeighborEntry{ID: id, Weight: w})
	}
	return list, nil
}

// Meta 读取模型元信息
func (a *ModelAdapter) Meta(ctx context.Context) (map[string]string, error) {
	vals, err := a.kv.HGetAll(ctx, a.metaKey())
	if err != nil {
		return nil, err
	}
	meta := make(map[string]string, len(vals))
	for k, v := range vals {
		meta[k] = string(v)
	}
	return meta, nil
}

// LoadIndex 把全部物品因子装入内存索引
func (a *ModelAdapter) LoadIndex(ctx context.Context) (*FactorIndex, error) {
	ids, err := a.ItemIDs(ctx)
	if err != nil {
		return nil, err
	}
	vecs, err := a.ItemVectors(ctx, ids)
	if err != nil {
		return nil, err
	}
	idx := NewFactorIndex()
	for _, id := range ids {
		vec, ok := vecs[id]
		if !ok {
			continue
		}
		if err := idx.Upsert(id, vec); err != nil {
			return nil, err
		}
	}
	return idx, nil
}

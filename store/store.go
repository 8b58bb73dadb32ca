// Package store 实现 core.Store / core.KeyValueStore（内存与 Redis），
// 以及把训练好的混合模型导出到 Store、再读回用于召回的 ModelAdapter。
//
//	var kv core.KeyValueStore = store.NewMemoryStore()
//	adapter := store.NewModelAdapter(kv, "hybridrec")
//	_ = adapter.Save(ctx, store.SnapshotFrom(model, users, items, "rating"))
package store

import "context"

// ZSetReplacer 原子地用 members 替换整个有序集合。
// MemoryStore 与 RedisStore 都实现了它；ModelAdapter 在后端不支持时退化为逐个 ZAdd。
type ZSetReplacer interface {
	ZReplace(ctx context.Context, key string, members map[string]float64) error
}

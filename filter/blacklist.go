package filter

import (
	"context"
	"sync"

	"github.com/goccy/go-json"

	"github.com/rushteam/hybridrec/core"
)

// BlacklistFilter 过滤黑名单物品。
//
// 黑名单来自 ItemIDs 与 Store[Key]（JSON 字符串数组）的并集；
// Store 中的列表在第一次使用时读取一次，Key 不存在视为空列表。
type BlacklistFilter struct {
	ItemIDs []string
	Store   core.Store
	Key     string

	once sync.Once
	set  map[string]struct{}
	err  error
}

func NewBlacklistFilter(itemIDs []string, s core.Store, key string) *BlacklistFilter {
	return &BlacklistFilter{ItemIDs: itemIDs, Store: s, Key: key}
}

func (f *BlacklistFilter) Name() string { return "filter.blacklist" }

func (f *BlacklistFilter) load(ctx context.Context) {
	f.set = make(map[string]struct{}, len(f.ItemIDs))
	for _, id := range f.ItemIDs {
		f.set[id] = struct{}{}
	}
	if f.Store == nil || f.Key == "" {
		return
	}
	data, err := f.Store.Get(ctx, f.Key)
	if err != nil {
		if !core.IsStoreNotFound(err) {
			f.err = err
		}
		return
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		f.err = core.NewDomainError(core.ModuleStore, core.ErrorCodeInvalidInput, "blacklist: "+err.Error())
		return
	}
	for _, id := range ids {
		f.set[id] = struct{}{}
	}
}

func (f *BlacklistFilter) ShouldFilter(ctx context.Context, _ *core.RecommendContext, item *core.Item) (bool, error) {
	f.once.Do(func() { f.load(ctx) })
	if _, ok := f.set[item.ID]; ok {
		return true, nil
	}
	return false, f.err
}

// SetBlacklist 把黑名单写入 Store，供 BlacklistFilter 读取
func SetBlacklist(ctx context.Context, s core.Store, key string, ids []string) error {
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return s.Set(ctx, key, data)
}

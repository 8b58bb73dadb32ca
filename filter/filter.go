// Package filter 在召回之后剔除不应展示的物品。
package filter

import (
	"context"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/logging"
	"github.com/rushteam/hybridrec/pkg/utils"
)

// Filter 判断一个 Item 是否应该被过滤掉，返回 true 表示移除。
type Filter interface {
	Name() string
	ShouldFilter(ctx context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error)
}

// Apply 依次执行过滤器，任一过滤器返回 true 即移除。
// 过滤器出错时记录日志并跳过该过滤器；被移除的物品在 Label 中记下原因后丢弃。
func Apply(ctx context.Context, rctx *core.RecommendContext, items []*core.Item, filters ...Filter) []*core.Item {
	if len(filters) == 0 || len(items) == 0 {
		return items
	}
	log := logging.With("filter")
	out := make([]*core.Item, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		reason := ""
		for _, f := range filters {
			ok, err := f.ShouldFilter(ctx, rctx, item)
			if err != nil {
				log.Warn().Err(err).Str("filter", f.Name()).Str("item", item.ID).Msg("filter failed")
				continue
			}
			if ok {
				reason = f.Name()
				break
			}
		}
		if reason != "" {
			item.PutLabel("filtered", utils.NewLabel("true", reason))
			continue
		}
		out = append(out, item)
	}
	return out
}

// ExcludeFilter 过滤 RecommendContext.Exclude 中的物品（通常是用户已评分的物品）
type ExcludeFilter struct{}

func (ExcludeFilter) Name() string { return "filter.exclude" }

func (ExcludeFilter) ShouldFilter(_ context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error) {
	return rctx.Excluded(item.ID), nil
}

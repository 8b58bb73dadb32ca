package core

import "github.com/rushteam/hybridrec/pkg/utils"

// RecommendContext 承载一次召回请求的用户与场景信息。
type RecommendContext struct {
	UserID string // 原始用户 ID
	Scene  string

	// Exclude 为需要过滤的物品（通常是用户已评分的物品）
	Exclude map[string]struct{}

	// Labels 是请求级标签，会合并到每个召回结果上
	Labels map[string]utils.Label

	Params map[string]any
}

// PutLabel 写入请求级 Label。
func (rctx *RecommendContext) PutLabel(key string, lbl utils.Label) {
	if rctx.Labels == nil {
		rctx.Labels = make(map[string]utils.Label)
	}
	if old, ok := rctx.Labels[key]; ok {
		rctx.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	rctx.Labels[key] = lbl
}

// Excluded 判断物品是否应被过滤
func (rctx *RecommendContext) Excluded(itemID string) bool {
	if rctx == nil || rctx.Exclude == nil {
		return false
	}
	_, ok := rctx.Exclude[itemID]
	return ok
}

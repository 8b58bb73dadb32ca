// Package recall 从导出到 Store 的混合模型中为用户召回物品。
package recall

import (
	"context"

	"github.com/rushteam/hybridrec/core"
)

// Source 表示一个召回源（隐因子 / 近邻 / ...），可由 Fanout 并发执行。
type Source interface {
	Name() string
	Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error)
}

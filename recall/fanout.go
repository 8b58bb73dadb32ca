package recall

import (
	"context"
	"sort"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/logging"
	"github.com/rushteam/hybridrec/pkg/utils"
)

// MergeStrategy 决定 Fanout 如何合并多个召回源的同一物品
type MergeStrategy string

const (
	// MergeFirst 保留先出现的（按 Sources 顺序），合并 Label
	MergeFirst MergeStrategy = "first"
	// MergeMax 保留分数最高的，合并 Label
	MergeMax MergeStrategy = "max"
	// MergeUnion 不去重
	MergeUnion MergeStrategy = "union"
)

// Fanout 并发执行多个召回源并合并结果，本身也是一个 Source。
// 单个召回源出错或超时只记录日志，不影响其他召回源。
type Fanout struct {
	Sources       []Source
	Timeout       time.Duration // 每个召回源的超时时间
	MaxConcurrent int           // 最大并发数，0 表示不限制
	Merge         MergeStrategy
	// TopK 合并后按分数截断，<=0 时不截断
	TopK int
}

func (n *Fanout) Name() string { return "recall.fanout" }

func (n *Fanout) Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	if len(n.Sources) == 0 {
		return nil, nil
	}
	log := logging.With("recall")
	results := make([][]*core.Item, len(n.Sources))

	var eg errgroup.Group
	if n.MaxConcurrent > 0 {
		eg.SetLimit(n.MaxConcurrent)
	}
	for i, src := range n.Sources {
		eg.Go(func() error {
			sctx := ctx
			if n.Timeout > 0 {
				var cancel context.CancelFunc
				sctx, cancel = context.WithTimeout(ctx, n.Timeout)
				defer cancel()
			}
			items, err := src.Recall(sctx, rctx)
			if err != nil {
				log.Warn().Err(err).Str("source", src.Name()).Msg("recall source failed")
				return nil
			}
			kept := make([]*core.Item, 0, len(items))
			for _, it := range items {
				if it == nil {
					continue
				}
				it.PutLabel("recall_priority", utils.NewLabel(strconv.Itoa(i), "recall"))
				kept = append(kept, it)
			}
			results[i] = kept
			return nil
		})
	}
	_ = eg.Wait()

	var merged []*core.Item
	switch n.Merge {
	case MergeUnion:
		for _, items := range results {
			merged = append(merged, items...)
		}
	default:
		merged = n.dedupe(results)
	}
	if n.Merge == MergeMax || n.TopK > 0 {
		sort.SliceStable(merged, func(i, j int) bool { return merged[i].Score > merged[j].Score })
	}
	if n.TopK > 0 && len(merged) > n.TopK {
		merged = merged[:n.TopK]
	}
	return merged, nil
}

func (n *Fanout) dedupe(results [][]*core.Item) []*core.Item {
	seen := make(map[string]*core.Item)
	var out []*core.Item
	for _, items := range results {
		for _, it := range items {
			if it == nil {
				continue
			}
			old, ok := seen[it.ID]
			if !ok {
				seen[it.ID] = it
				out = append(out, it)
				continue
			}
			if n.Merge == MergeMax && it.Score > old.Score {
				old.Score = it.Score
			}
			for k, v := range it.Labels {
				if k == "recall_priority" {
					continue
				}
				old.PutLabel(k, v)
			}
		}
	}
	return out
}

package main

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/filter"
	"github.com/rushteam/hybridrec/recall"
	"github.com/rushteam/hybridrec/store"
)

var (
	recUser        string
	recTop         int
	recNeighbors   int
	recFromStore   bool
	recVariant     string
	recRatings     string
	recTags        string
	recMerge       string
	recTimeout     time.Duration
	recIncludeSeen bool
	recBlacklist   []string
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Recommend items for a user",
	Long: `Recommend items for one user by combining factor recall with
neighbor recall.

Without --from-store the model is trained in-process and exported to an
in-memory store first; with --from-store the factors previously exported
to Redis are used.

Examples:
  hybridrec recommend --ratings ratings.txt --tags tags.txt --user 42 --top 10
  hybridrec recommend -c app.yaml --from-store --user 42`,
	RunE: runRecommend,
}

func init() {
	rootCmd.AddCommand(recommendCmd)
	f := recommendCmd.Flags()
	f.StringVar(&recUser, "user", "", "raw user ID (required)")
	f.IntVar(&recTop, "top", 10, "number of items to return")
	f.IntVar(&recNeighbors, "neighbors", 10, "neighbors used by neighbor recall")
	f.BoolVar(&recFromStore, "from-store", false, "read the exported model from Redis instead of training")
	f.StringVar(&recVariant, "variant", "", "model variant when training in-process")
	f.StringVar(&recRatings, "ratings", "", "ratings file")
	f.StringVar(&recTags, "tags", "", "tag file")
	f.StringVar(&recMerge, "merge", string(recall.MergeMax), "merge strategy: first, max, union")
	f.DurationVar(&recTimeout, "timeout", 2*time.Second, "per-source recall timeout")
	f.BoolVar(&recIncludeSeen, "include-seen", false, "keep items the user already rated")
	f.StringSliceVar(&recBlacklist, "blacklist", nil, "item IDs never to recommend (merged with <prefix>:blacklist in the store)")
	_ = recommendCmd.MarkFlagRequired("user")
}

func runRecommend(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	rctx := &core.RecommendContext{UserID: recUser, Scene: "cli"}
	var (
		adapter *store.ModelAdapter
		kv      core.KeyValueStore
	)

	if recFromStore {
		if !appCfg.Redis.Enabled {
			return core.NewConfigError(core.ModuleConfig, "--from-store requires redis.enabled")
		}
		redis, err := store.NewRedisStore(ctx, appCfg.Redis)
		if err != nil {
			return err
		}
		defer redis.Close()
		kv = redis
		adapter = store.NewModelAdapter(kv, appCfg.Export.Prefix)
	} else {
		applyDataFlags(recRatings, recTags, "", 0)
		if err := appCfg.Validate(); err != nil {
			return err
		}
		variant, mc, err := modelConfig(appCfg, recVariant, "")
		if err != nil {
			return err
		}
		t, err := trainModel(ctx, appCfg, variant, mc)
		if err != nil {
			return err
		}
		mem := store.NewMemoryStore()
		defer mem.Close()
		kv = mem
		if adapter, err = export(ctx, kv, appCfg, t); err != nil {
			return err
		}
		if !recIncludeSeen {
			rctx.Exclude = ratedItems(t, recUser)
		}
	}

	fanout := &recall.Fanout{
		Sources: []recall.Source{
			recall.NewHybridRecall(adapter, recTop),
			recall.NewNeighborRecall(adapter, recTop, recNeighbors),
		},
		Timeout: recTimeout,
		Merge:   recall.MergeStrategy(recMerge),
		TopK:    recTop,
	}
	items, err := fanout.Recall(ctx, rctx)
	if err != nil {
		return err
	}
	items = filter.Apply(ctx, rctx, items,
		filter.ExcludeFilter{},
		filter.NewBlacklistFilter(recBlacklist, kv, appCfg.Export.Prefix+":blacklist"),
	)
	b, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return nil
}

// ratedItems 返回训练集中该用户评过分的物品
func ratedItems(t *trained, user string) map[string]struct{} {
	row, ok := t.data.Users.Index(user)
	if !ok || row >= t.train.NumRows() {
		return nil
	}
	out := make(map[string]struct{})
	for _, col := range t.train.RowIndices(row) {
		if raw, ok := t.data.Items.Raw(col); ok {
			out[raw] = struct{}{}
		}
	}
	return out
}

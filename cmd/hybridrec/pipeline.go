package main

import (
	"context"
	"fmt"

	"github.com/rushteam/hybridrec/config"
	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/dataset"
	"github.com/rushteam/hybridrec/hybrid"
	"github.com/rushteam/hybridrec/logging"
	"github.com/rushteam/hybridrec/sgd"
	"github.com/rushteam/hybridrec/store"
)

// trained 是一次训练的全部产物
type trained struct {
	variant    string
	data       *dataset.Dataset
	train      *dataset.RatingMatrix
	model      *hybrid.Model
	report     *sgd.Report
	evaluation *sgd.Evaluation
}

// modelConfig 解析模型配置：变体文件优先，其次 --variant，最后配置文件中的 model 段
func modelConfig(cfg *config.AppConfig, variant, variantFile string) (string, hybrid.Config, error) {
	if variantFile != "" {
		mc, err := config.LoadVariantFile(variantFile)
		return variantFile, mc, err
	}
	if variant != "" {
		cfg.Model.Variant = variant
	}
	mc, err := cfg.Model.Build()
	return cfg.Model.Variant, mc, err
}

func trainModel(ctx context.Context, cfg *config.AppConfig, variant string, mc hybrid.Config) (*trained, error) {
	log := logging.With("cli")
	if cfg.Data.Ratings == "" {
		return nil, core.NewConfigError(core.ModuleConfig, "data.ratings is required")
	}
	ds, err := dataset.Load(dataset.Paths{
		Ratings:      cfg.Data.Ratings,
		Tags:         cfg.Data.Tags,
		ItemFeatures: cfg.Data.ItemFeatures,
	}, dataset.TagLoadOptions{
		UserTags: cfg.Data.UserTags,
		ItemTags: cfg.Data.ItemTags,
		AllowNew: cfg.Data.AllowNew,
	})
	if err != nil {
		return nil, err
	}

	out := &trained{variant: variant, data: ds, train: ds.Ratings}
	var test *dataset.RatingMatrix
	if cfg.Eval.TestRatio > 0 {
		out.train, test = dataset.Split(ds.Ratings, cfg.Eval.TestRatio, cfg.Eval.Seed)
		log.Info().Int("train", out.train.Size()).Int("test", test.Size()).Msg("ratings split")
	}

	m, err := hybrid.New(mc)
	if err != nil {
		return nil, err
	}
	if err := m.Setup(out.train, ds.Tags); err != nil {
		return nil, err
	}
	out.model = m

	report, err := sgd.Train(ctx, m, out.train, cfg.Train)
	if err != nil {
		return nil, fmt.Errorf("train %s: %w", variant, err)
	}
	out.report = report

	if test != nil && test.Size() > 0 {
		var opts []sgd.EvalOption
		if cfg.Eval.Clamp {
			opts = append(opts, sgd.WithClamp(out.train.Range()))
		}
		ev := sgd.Evaluate(m, test, opts...)
		out.evaluation = &ev
		log.Info().Float64("rmse", ev.RMSE).Float64("mae", ev.MAE).Int("count", ev.Count).Msg("evaluation finished")
	}
	return out, nil
}

// openStore 按配置打开 Redis，未启用时返回内存实现
func openStore(ctx context.Context, cfg *config.AppConfig) (core.KeyValueStore, error) {
	if cfg.Redis.Enabled {
		return store.NewRedisStore(ctx, cfg.Redis)
	}
	return store.NewMemoryStore(), nil
}

func export(ctx context.Context, kv core.KeyValueStore, cfg *config.AppConfig, t *trained) (*store.ModelAdapter, error) {
	adapter := store.NewModelAdapter(kv, cfg.Export.Prefix)
	snap := store.SnapshotFrom(t.model, t.data.Users, t.data.Items, t.variant)
	if err := adapter.Save(ctx, snap, cfg.Export.TTL); err != nil {
		return nil, fmt.Errorf("export model: %w", err)
	}
	log := logging.With("cli")
	log.Info().
		Str("store", kv.Name()).
		Str("prefix", cfg.Export.Prefix).
		Int("users", len(snap.Users)).
		Int("items", len(snap.Items)).
		Msg("model exported")
	return adapter, nil
}

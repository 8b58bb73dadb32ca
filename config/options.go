package config

import (
	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/hybrid"
	"github.com/rushteam/hybridrec/pkg/conv"
	"github.com/rushteam/hybridrec/preference"
	"github.com/rushteam/hybridrec/similarity"
)

// ApplyOptions 把通用 options 覆盖到变体预设上，未出现的 key 保留预设值。
//
// 支持的 key：num_factors, explicit_weight, top_k, side, user_share, item_share, implicit, gradient,
// reg_user, reg_item, reg_implicit, dis_weight, pos_weight, neg_weight, repel_negative,
// smooth_side, smooth_implicit, classes, thresholds, comparator, rules, weighting, scope,
// source, metric, strategy, workers, include_neutral。
func ApplyOptions(cfg hybrid.Config, opts map[string]any) hybrid.Config {
	if len(opts) == 0 {
		return cfg
	}
	cfg.NumFactors = conv.ConfigGetInt(opts, "num_factors", cfg.NumFactors)
	cfg.ExplicitWeight = conv.ConfigGetFloat64(opts, "explicit_weight", cfg.ExplicitWeight)
	cfg.TopK = conv.ConfigGetInt(opts, "top_k", cfg.TopK)
	cfg.Side = hybrid.GraphSide(conv.ConfigGet(opts, "side", string(cfg.Side)))
	cfg.UserShare = conv.ConfigGetFloat64(opts, "user_share", cfg.UserShare)
	cfg.ItemShare = conv.ConfigGetFloat64(opts, "item_share", cfg.ItemShare)
	cfg.Implicit = conv.ConfigGetBool(opts, "implicit", cfg.Implicit)
	cfg.Gradient = hybrid.GradientMode(conv.ConfigGet(opts, "gradient", string(cfg.Gradient)))

	cfg.RegUser = conv.ConfigGetFloat64(opts, "reg_user", cfg.RegUser)
	cfg.RegItem = conv.ConfigGetFloat64(opts, "reg_item", cfg.RegItem)
	cfg.RegImplicit = conv.ConfigGetFloat64(opts, "reg_implicit", cfg.RegImplicit)
	cfg.DisWeight = conv.ConfigGetFloat64(opts, "dis_weight", cfg.DisWeight)
	cfg.PosWeight = conv.ConfigGetFloat64(opts, "pos_weight", cfg.PosWeight)
	cfg.NegWeight = conv.ConfigGetFloat64(opts, "neg_weight", cfg.NegWeight)
	cfg.RepelNegative = conv.ConfigGetBool(opts, "repel_negative", cfg.RepelNegative)
	cfg.SmoothSide = core.Side(conv.ConfigGet(opts, "smooth_side", string(cfg.SmoothSide)))
	cfg.SmoothImplicit = conv.ConfigGetBool(opts, "smooth_implicit", cfg.SmoothImplicit)

	p := &cfg.Preference
	if c := conv.ConfigGet(opts, "classes", ""); c != "" {
		p.Classes = preference.ClassSplit(c)
		p.Thresholds = nil
	}
	if th := conv.SliceAnyToFloat64(opts["thresholds"]); th != nil {
		p.Thresholds = th
	}
	p.Comparator = preference.Comparator(conv.ConfigGet(opts, "comparator", string(p.Comparator)))
	if rules := conv.SliceAnyToString(opts["rules"]); rules != nil {
		p.Rules = rules
	}
	p.Weighting = preference.Weighting(conv.ConfigGet(opts, "weighting", string(p.Weighting)))
	p.Scope = preference.Scope(conv.ConfigGet(opts, "scope", string(p.Scope)))
	p.Source = preference.Source(conv.ConfigGet(opts, "source", string(p.Source)))

	s := &cfg.Similarity
	s.Metric = similarity.Metric(conv.ConfigGet(opts, "metric", string(s.Metric)))
	s.Strategy = similarity.Strategy(conv.ConfigGet(opts, "strategy", string(s.Strategy)))
	s.Workers = conv.ConfigGetInt(opts, "workers", s.Workers)
	s.IncludeNeutral = conv.ConfigGetBool(opts, "include_neutral", s.IncludeNeutral)
	return cfg
}

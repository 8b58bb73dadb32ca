// Package builders 注册内置的混合模型变体。每个变体是一组预设，
// 之后再用 config.ApplyOptions 叠加调用方给出的 options。
package builders

import (
	"github.com/rushteam/hybridrec/config"
	"github.com/rushteam/hybridrec/hybrid"
	"github.com/rushteam/hybridrec/preference"
	"github.com/rushteam/hybridrec/similarity"
)

// 平滑项默认强度
const defaultDisWeight = 0.003

func init() {
	config.Register("mf", BuildMF)
	config.Register("rating", BuildRating)
	config.Register("user_tag", BuildUserTag)
	config.Register("tf", BuildTF)
	config.Register("jaccard", BuildJaccard)
	config.Register("classification", BuildClassification)
	config.Register("item_feature", BuildItemFeature)
	config.Register("matrix", BuildMatrix)
	config.Register("count_item", BuildCountItem)
	config.Register("count_synthesis", BuildCountSynthesis)
	config.Register("similarity", BuildSimilarity)
}

func preset(opts map[string]any, mutate func(*hybrid.Config)) (hybrid.Config, error) {
	cfg := hybrid.DefaultConfig()
	mutate(&cfg)
	return config.ApplyOptions(cfg, opts), nil
}

func single() preference.Config {
	return preference.Config{Classes: preference.SplitSingle, Comparator: preference.LessOrEqual}
}

func counts() preference.Config {
	return preference.Config{Classes: preference.SplitSingle, Source: preference.SourceCount}
}

// BuildMF 是不带近邻项的基线：explicit_weight = 1
func BuildMF(opts map[string]any) (hybrid.Config, error) {
	return preset(opts, func(c *hybrid.Config) {
		c.ExplicitWeight = 1
		c.Preference = single()
	})
}

// BuildRating 三分类（<=2 / (2,3.5] / >3.5），评分级 tag，余弦相似度
func BuildRating(opts map[string]any) (hybrid.Config, error) {
	return preset(opts, func(c *hybrid.Config) {
		c.Preference = preference.DefaultConfig()
	})
}

// BuildUserTag 用户自身 tag 计数，按均值中心化的 Pearson
func BuildUserTag(opts map[string]any) (hybrid.Config, error) {
	return preset(opts, func(c *hybrid.Config) {
		c.Preference = counts()
		c.Similarity.Metric = similarity.Pearson
	})
}

// BuildTF 物品图：评分级 tag 加 TF-IDF 权重，分母使用完整向量范数
func BuildTF(opts map[string]any) (hybrid.Config, error) {
	return preset(opts, func(c *hybrid.Config) {
		c.Side = hybrid.GraphItem
		c.Gradient = hybrid.GradientExact
		c.Preference = single()
		c.Preference.Weighting = preference.WeightTFIDF
		c.Similarity.Metric = similarity.FullCosine
	})
}

// BuildJaccard 物品图：物品 tag 计数上的 Dice 系数 2Σmin/Σ(a+b)
func BuildJaccard(opts map[string]any) (hybrid.Config, error) {
	return preset(opts, func(c *hybrid.Config) {
		c.Side = hybrid.GraphItem
		c.Gradient = hybrid.GradientExact
		c.Preference = counts()
		c.Similarity.Metric = similarity.Dice
	})
}

// BuildClassification 二分类（<4 为负类），负类图上的平滑项把因子推开
func BuildClassification(opts map[string]any) (hybrid.Config, error) {
	return preset(opts, func(c *hybrid.Config) {
		c.Preference = preference.Config{
			Classes:    preference.SplitBinary,
			Thresholds: []float64{4},
			Comparator: preference.Less,
		}
		c.NegWeight = defaultDisWeight
		c.RepelNegative = true
	})
}

// BuildItemFeature 用户对所评物品特征的兴趣，explicit_weight = 0.5
func BuildItemFeature(opts map[string]any) (hybrid.Config, error) {
	return preset(opts, func(c *hybrid.Config) {
		c.ExplicitWeight = 0.5
		c.Preference = single()
		c.Preference.Scope = preference.ScopeCounterpart
		c.Similarity.Metric = similarity.Pearson
	})
}

// BuildMatrix 近邻项读取独立的隐式因子矩阵
func BuildMatrix(opts map[string]any) (hybrid.Config, error) {
	return preset(opts, func(c *hybrid.Config) {
		c.Preference = preference.DefaultConfig()
		c.Implicit = true
		c.Gradient = hybrid.GradientExact
	})
}

// BuildCountItem 物品图：评分级 tag 加 TF 权重，余弦相似度
func BuildCountItem(opts map[string]any) (hybrid.Config, error) {
	return preset(opts, func(c *hybrid.Config) {
		c.Side = hybrid.GraphItem
		c.Gradient = hybrid.GradientExact
		c.Preference = single()
		c.Preference.Weighting = preference.WeightTF
	})
}

// BuildCountSynthesis 用户图与物品图同时参与，(1-ew) 按 0.2 / 0.8 分给两侧
func BuildCountSynthesis(opts map[string]any) (hybrid.Config, error) {
	return preset(opts, func(c *hybrid.Config) {
		c.Side = hybrid.GraphBoth
		c.Gradient = hybrid.GradientExact
		c.Preference = counts()
	})
}

// BuildSimilarity 三分类 + 主相似图上的平滑项
func BuildSimilarity(opts map[string]any) (hybrid.Config, error) {
	return preset(opts, func(c *hybrid.Config) {
		c.Preference = preference.DefaultConfig()
		c.DisWeight = defaultDisWeight
	})
}

package similarity

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/rushteam/hybridrec/metrics"
	"github.com/rushteam/hybridrec/preference"
)

// Metric 是实体间相似度的计算方式
type Metric string

const (
	// Cosine 只在共同 tag 上计算余弦
	Cosine Metric = "cosine"
	// FullCosine 分子取共同 tag，分母取两个完整向量的范数
	FullCosine Metric = "full_cosine"
	// Dice 为 2Σmin(a,b) / Σ(a+b)，分母取完整向量
	Dice Metric = "dice"
	// Pearson 在共同 tag 上按各自向量均值中心化后的余弦
	Pearson Metric = "pearson"
)

// Valid 判断是否为已知度量
func (m Metric) Valid() bool {
	switch m {
	case Cosine, FullCosine, Dice, Pearson:
		return true
	}
	return false
}

// Pair 计算实体 i、j 的相似度。ok 为 false 表示该对不产生边（无交集或分母为 0）。
// 结果与 i、j 的顺序无关。
func Pair(metric Metric, in *Input, i, j int) (float64, bool) {
	in.prepare()
	if i > j {
		i, j = j, i
	}
	s, result := pairScore(metric, in, i, j)
	return s, result == metrics.PairKept
}

// pairScore 返回相似度及其分类结果（用于指标统计）
func pairScore(metric Metric, in *Input, i, j int) (float64, string) {
	a, b := in.Vectors[i], in.Vectors[j]
	if len(a) == 0 || len(b) == 0 {
		return 0, metrics.PairEmptyIntersection
	}
	var sum float64
	n := 0
	intersected := false
	for _, g := range in.Groups {
		common := preference.Intersect(g[i], g[j])
		if len(common) == 0 {
			continue
		}
		intersected = true
		s, ok := groupScore(metric, in, i, j, a, b, common)
		if !ok {
			continue
		}
		sum += s
		n++
	}
	switch {
	case !intersected:
		return 0, metrics.PairEmptyIntersection
	case n == 0:
		return 0, metrics.PairDegenerate
	}
	s := sum / float64(n)
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return 0, metrics.PairDegenerate
	}
	if s <= 0 {
		return s, metrics.PairNonPositive
	}
	return s, metrics.PairKept
}

func groupScore(metric Metric, in *Input, i, j int, a, b preference.Vector, common preference.TagSet) (float64, bool) {
	xs := make([]float64, len(common))
	ys := make([]float64, len(common))
	for k, t := range common {
		xs[k] = a[t]
		ys[k] = b[t]
	}
	var num, denom float64
	switch metric {
	case FullCosine:
		num = floats.Dot(xs, ys)
		denom = in.stats[i].norm * in.stats[j].norm
	case Dice:
		for k := range xs {
			num += math.Min(xs[k], ys[k])
		}
		num *= 2
		denom = in.stats[i].sum + in.stats[j].sum
	case Pearson:
		floats.AddConst(-in.stats[i].mean, xs)
		floats.AddConst(-in.stats[j].mean, ys)
		num = floats.Dot(xs, ys)
		denom = floats.Norm(xs, 2) * floats.Norm(ys, 2)
	default:
		num = floats.Dot(xs, ys)
		denom = floats.Norm(xs, 2) * floats.Norm(ys, 2)
	}
	if denom == 0 || math.IsNaN(denom) || math.IsInf(denom, 0) {
		return 0, false
	}
	s := num / denom
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return 0, false
	}
	return s, true
}

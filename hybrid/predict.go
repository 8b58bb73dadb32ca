package hybrid

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/similarity"
)

var sideOrder = []core.Side{core.SideUser, core.SideItem}

// PredictWithNeighbors 计算单侧（用户近邻）混合预测：
//
//	temp1 = ew * dot(U[entity], V[counterpart])
//	temp2 = (1-ew) * Σ w*dot(U[n], V[counterpart]) / Σ|w|
//
// 近邻表为空或 Σ|w| 为 0 时返回原始点积；ew 为 1 时恒等于原始点积。
func PredictWithNeighbors(user, item mat.RawRowViewer, neighbors []similarity.Neighbor, entity, counterpart int, explicitWeight float64) float64 {
	vc := item.RawRowView(counterpart)
	dot := floats.Dot(user.RawRowView(entity), vc)
	if explicitWeight == 1 {
		return dot
	}
	var num, den float64
	for _, nb := range neighbors {
		num += nb.Weight * floats.Dot(user.RawRowView(nb.Index), vc)
		den += math.Abs(nb.Weight)
	}
	if den == 0 {
		return dot
	}
	return explicitWeight*dot + (1-explicitWeight)*num/den
}

// neighborMean 返回 side 一侧实体的近邻因子加权均值 Σ w*X[n] / Σ|w|；
// 没有近邻或权重和为 0 时返回 nil。
func (m *Model) neighborMean(side core.Side, entity int) ([]float64, []similarity.Neighbor, float64) {
	list := m.graphs[side].Neighbors(entity)
	var sum float64
	for _, nb := range list {
		sum += math.Abs(nb.Weight)
	}
	if sum == 0 {
		return nil, nil, 0
	}
	src := m.neighborSource(side)
	mean := make([]float64, m.cfg.NumFactors)
	for _, nb := range list {
		floats.AddScaled(mean, nb.Weight/sum, src.RawRowView(nb.Index))
	}
	return mean, list, sum
}

// neighborSource 返回近邻项读取的因子矩阵
func (m *Model) neighborSource(side core.Side) *mat.Dense {
	if m.cfg.Implicit {
		return m.implicit[side]
	}
	if side == core.SideItem {
		return m.item
	}
	return m.user
}

func entityOf(side core.Side, user, item int) int {
	if side == core.SideItem {
		return item
	}
	return user
}

// Predict 返回 (user, item) 的预测评分。
//
// 某一侧的近邻项为空时，该侧的系数回到显式点积项上；
// 所有侧都为空时结果就是原始点积。
func (m *Model) Predict(user, item int) float64 {
	pu, qi := m.user.RawRowView(user), m.item.RawRowView(item)
	dot := floats.Dot(pu, qi)
	explicit := m.cfg.ExplicitWeight
	var correction float64
	contributed := false
	for _, side := range sideOrder {
		share, ok := m.shares[side]
		if !ok {
			continue
		}
		mean, _, _ := m.neighborMean(side, entityOf(side, user, item))
		if mean == nil {
			explicit += share
			continue
		}
		contributed = true
		if side == core.SideUser {
			correction += share * floats.Dot(mean, qi)
		} else {
			correction += share * floats.Dot(pu, mean)
		}
	}
	if !contributed {
		return dot
	}
	return explicit*dot + correction
}

package hybrid

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/rushteam/hybridrec/core"
)

// Penalty 是一次梯度步贡献的正则损失与平滑损失（未乘 0.5）。
type Penalty struct {
	Reg    float64
	Smooth float64
}

// Total 返回两项之和
func (p Penalty) Total() float64 { return p.Reg + p.Smooth }

type rowDelta struct {
	m     *mat.Dense
	row   int
	delta []float64
}

// AccumulateGradient 对一条评分做一次 SGD 更新，err = rating - Predict(user, item)。
//
// 所有增量先基于更新前的因子算出再统一写回：
//   - 用户/物品因子：plain 时为 e*对方因子；exact 时为显式项与近邻项的精确梯度；都减去 L2 正则
//   - 隐式因子（Implicit）：近邻行按 share*w/Σ|w| 接收梯度
//   - 平滑项：对 side 一侧的实体行加 -sign*λ*w*(x - x_n)，损失加 sign*λ*w*(x - x_n)²
func (m *Model) AccumulateGradient(user, item int, err, lr float64) Penalty {
	cfg := m.cfg
	pu, qi := m.user.RawRowView(user), m.item.RawRowView(item)
	puOld := append([]float64(nil), pu...)
	qiOld := append([]float64(nil), qi...)

	dP := make([]float64, cfg.NumFactors)
	dQ := make([]float64, cfg.NumFactors)
	var pen Penalty
	var updates []rowDelta

	exact := cfg.Gradient == GradientExact
	explicit := 1.0
	if exact {
		explicit = cfg.ExplicitWeight
	}
	for _, side := range sideOrder {
		share, ok := m.shares[side]
		if !ok || (!exact && !cfg.Implicit) {
			continue
		}
		mean, list, sum := m.neighborMean(side, entityOf(side, user, item))
		if mean == nil {
			if exact {
				explicit += share
			}
			continue
		}
		// 用户近邻项 share*dot(mean_u, q_i) 对 q_i 求导；物品近邻项对 p_u 求导
		if exact {
			if side == core.SideUser {
				floats.AddScaled(dQ, err*share, mean)
			} else {
				floats.AddScaled(dP, err*share, mean)
			}
		}
		if !cfg.Implicit {
			continue
		}
		other := qiOld
		if side == core.SideItem {
			other = puOld
		}
		imp := m.implicit[side]
		for _, nb := range list {
			row := imp.RawRowView(nb.Index)
			delta := make([]float64, cfg.NumFactors)
			floats.AddScaled(delta, err*share*nb.Weight/sum, other)
			floats.AddScaled(delta, -cfg.RegImplicit, row)
			pen.Reg += cfg.RegImplicit * floats.Dot(row, row)
			updates = append(updates, rowDelta{imp, nb.Index, delta})
		}
	}
	floats.AddScaled(dP, err*explicit, qiOld)
	floats.AddScaled(dP, -cfg.RegUser, puOld)
	floats.AddScaled(dQ, err*explicit, puOld)
	floats.AddScaled(dQ, -cfg.RegItem, qiOld)
	pen.Reg += cfg.RegUser*floats.Dot(puOld, puOld) + cfg.RegItem*floats.Dot(qiOld, qiOld)

	for _, t := range m.smooth {
		x := entityOf(t.side, user, item)
		target := m.user
		own, acc := puOld, dP
		if t.side == core.SideItem {
			target, own, acc = m.item, qiOld, dQ
		}
		if t.implicit {
			target = m.implicit[t.side]
			own = append([]float64(nil), target.RawRowView(x)...)
			acc = make([]float64, cfg.NumFactors)
			updates = append(updates, rowDelta{target, x, acc})
		}
		for _, nb := range t.graph.Neighbors(x) {
			nRow := target.RawRowView(nb.Index)
			coef := t.sign * t.weight * nb.Weight
			for f := range own {
				diff := own[f] - nRow[f]
				acc[f] -= coef * diff
				pen.Smooth += coef * diff * diff
			}
		}
	}

	floats.AddScaled(pu, lr, dP)
	floats.AddScaled(qi, lr, dQ)
	for _, u := range updates {
		floats.AddScaled(u.m.RawRowView(u.row), lr, u.delta)
	}
	return pen
}

package dataset

import "math/rand/v2"

// Split 按比例随机切分训练集与测试集，两者维度与原矩阵一致。
// 同一 seed 得到同样的切分。
func Split(m *RatingMatrix, testRatio float64, seed uint64) (train, test *RatingMatrix) {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	tb, sb := NewRatingBuilder(), NewRatingBuilder()
	m.ForEachObserved(func(r, c int, v float64) {
		if rng.Float64() < testRatio {
			_ = sb.Set(r, c, v)
			return
		}
		_ = tb.Set(r, c, v)
	})
	return tb.Build(m.NumRows(), m.NumColumns()), sb.Build(m.NumRows(), m.NumColumns())
}

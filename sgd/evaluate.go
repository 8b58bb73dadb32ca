package sgd

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/rushteam/hybridrec/core"
)

// Predictor 只需要预测能力
type Predictor interface {
	Predict(user, item int) float64
}

// Evaluation 离线评估指标
type Evaluation struct {
	RMSE  float64 `json:"rmse"`
	MAE   float64 `json:"mae"`
	Count int     `json:"count"`
}

// EvalOption 评估选项
type EvalOption func(*evalOptions)

type evalOptions struct {
	clamp  bool
	lo, hi float64
}

// WithClamp 把预测值截断到 [lo, hi]，通常是训练集的评分范围
func WithClamp(lo, hi float64) EvalOption {
	return func(o *evalOptions) {
		o.clamp, o.lo, o.hi = true, lo, hi
	}
}

// Evaluate 在 test 的每条观测评分上计算 RMSE 与 MAE；test 为空时各项为 0。
func Evaluate(model Predictor, test core.RatingStore, opts ...EvalOption) Evaluation {
	var o evalOptions
	for _, opt := range opts {
		opt(&o)
	}
	var sq, abs []float64
	test.ForEachObserved(func(u, i int, r float64) {
		p := model.Predict(u, i)
		if o.clamp {
			p = math.Max(o.lo, math.Min(o.hi, p))
		}
		e := r - p
		sq = append(sq, e*e)
		abs = append(abs, math.Abs(e))
	})
	if len(sq) == 0 {
		return Evaluation{}
	}
	return Evaluation{
		RMSE:  math.Sqrt(stat.Mean(sq, nil)),
		MAE:   stat.Mean(abs, nil),
		Count: len(sq),
	}
}

// Package sgd 是混合模型的随机梯度下降训练框架：
// 因子初始化、epoch 循环、学习率调度、收敛判断与离线评估。
package sgd

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/hybrid"
	"github.com/rushteam/hybridrec/logging"
	"github.com/rushteam/hybridrec/metrics"
)

// Trainable 是训练框架驱动的模型，*hybrid.Model 实现了它。
type Trainable interface {
	InitFactors(init func() float64)
	Predict(user, item int) float64
	AccumulateGradient(user, item int, err, lr float64) hybrid.Penalty
}

var _ Trainable = (*hybrid.Model)(nil)

// Config 训练配置
type Config struct {
	MaxIterations int     `yaml:"max_iterations" koanf:"max_iterations" validate:"gt=0"`
	LearnRate     float64 `yaml:"learn_rate" koanf:"learn_rate" validate:"gt=0"`
	// MaxLearnRate 学习率上限，0 表示不限制
	MaxLearnRate float64 `yaml:"max_learn_rate" koanf:"max_learn_rate" validate:"gte=0"`
	// Decay 每个 epoch 乘到学习率上，1 表示不衰减；BoldDriver 开启时忽略
	Decay      float64 `yaml:"decay" koanf:"decay" validate:"gt=0,lte=1"`
	BoldDriver bool    `yaml:"bold_driver" koanf:"bold_driver"`
	Tolerance  float64 `yaml:"tolerance" koanf:"tolerance" validate:"gte=0"`
	// EarlyStop 为 true 时 |Δloss| < Tolerance 即停止
	EarlyStop bool    `yaml:"early_stop" koanf:"early_stop"`
	InitMean  float64 `yaml:"init_mean" koanf:"init_mean"`
	InitStd   float64 `yaml:"init_std" koanf:"init_std" validate:"gte=0"`
	Seed      uint64  `yaml:"seed" koanf:"seed"`
}

// DefaultConfig 返回默认训练配置
func DefaultConfig() Config {
	return Config{
		MaxIterations: 100,
		LearnRate:     0.01,
		Decay:         1,
		Tolerance:     1e-5,
		EarlyStop:     true,
		InitStd:       0.1,
		Seed:          42,
	}
}

var validate = validator.New()

// Validate 校验训练配置
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return core.NewConfigError(core.ModuleSGD, "%v", err)
	}
	return nil
}

// Epoch 记录单个 epoch 的统计
type Epoch struct {
	Loss      float64 `json:"loss"`
	Smooth    float64 `json:"smooth"`
	LearnRate float64 `json:"learn_rate"`
}

// Report 训练结果
type Report struct {
	RunID     string        `json:"run_id"`
	Epochs    []Epoch       `json:"epochs"`
	Converged bool          `json:"converged"`
	LearnRate float64       `json:"learn_rate"`
	Duration  time.Duration `json:"duration"`
}

// FinalLoss 返回最后一个 epoch 的损失，未训练时为 NaN
func (r *Report) FinalLoss() float64 {
	if len(r.Epochs) == 0 {
		return math.NaN()
	}
	return r.Epochs[len(r.Epochs)-1].Loss
}

// Train 用正态分布初始化因子，然后对 ratings 中的每条观测评分逐一做梯度步。
//
// 每个 epoch 的损失为 0.5·Σ(e² + reg + smooth)。ctx 只在 epoch 之间检查，
// 取消时返回已完成部分的 Report 与 ctx.Err()。损失出现 NaN / Inf 时返回 INTERNAL_ERROR。
func Train(ctx context.Context, model Trainable, ratings core.RatingStore, cfg Config) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	report := &Report{RunID: uuid.NewString(), LearnRate: cfg.LearnRate}
	log := logging.With("sgd").With().Str("run_id", report.RunID).Logger()
	start := time.Now()

	init := distuv.Normal{Mu: cfg.InitMean, Sigma: cfg.InitStd, Src: rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)}
	model.InitFactors(init.Rand)

	lr := cfg.LearnRate
	prev := math.NaN()
	for epoch := 1; epoch <= cfg.MaxIterations; epoch++ {
		select {
		case <-ctx.Done():
			report.Duration = time.Since(start)
			return report, ctx.Err()
		default:
		}

		var sum, smooth float64
		ratings.ForEachObserved(func(u, i int, r float64) {
			e := r - model.Predict(u, i)
			pen := model.AccumulateGradient(u, i, e, lr)
			sum += e*e + pen.Reg + pen.Smooth
			smooth += pen.Smooth
		})
		loss := 0.5 * sum
		report.Epochs = append(report.Epochs, Epoch{Loss: loss, Smooth: 0.5 * smooth, LearnRate: lr})
		metrics.TrainingEpochs.Inc()
		metrics.TrainingLoss.Set(loss)
		metrics.SmoothnessLoss.Set(0.5 * smooth)
		metrics.LearningRate.Set(lr)
		log.Debug().Int("epoch", epoch).Float64("loss", loss).Float64("learn_rate", lr).Msg("epoch finished")

		if math.IsNaN(loss) || math.IsInf(loss, 0) {
			report.Duration = time.Since(start)
			return report, core.NewDomainError(core.ModuleSGD, core.ErrorCodeInternalError,
				fmt.Sprintf("sgd: loss is %v at epoch %d", loss, epoch))
		}
		converged := epoch > 1 && math.Abs(prev-loss) < cfg.Tolerance
		lr = nextLearnRate(cfg, lr, prev, loss, epoch)
		prev = loss
		report.LearnRate = lr
		if converged && cfg.EarlyStop {
			report.Converged = true
			break
		}
	}

	report.Duration = time.Since(start)
	log.Info().
		Int("epochs", len(report.Epochs)).
		Float64("loss", report.FinalLoss()).
		Bool("converged", report.Converged).
		Dur("duration", report.Duration).
		Msg("training finished")
	return report, nil
}

// nextLearnRate 计算下一个 epoch 的学习率：
// bold driver 时损失下降 ×1.05、否则 ×0.5（从第二个 epoch 起）；否则乘以 Decay；最后按 MaxLearnRate 截断。
func nextLearnRate(cfg Config, lr, prev, loss float64, epoch int) float64 {
	switch {
	case cfg.BoldDriver && epoch > 1:
		if math.Abs(prev) > math.Abs(loss) {
			lr *= 1.05
		} else {
			lr *= 0.5
		}
	case !cfg.BoldDriver && cfg.Decay > 0 && cfg.Decay < 1:
		lr *= cfg.Decay
	}
	if cfg.MaxLearnRate > 0 && lr > cfg.MaxLearnRate {
		lr = cfg.MaxLearnRate
	}
	return lr
}

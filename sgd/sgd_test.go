package sgd

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/dataset"
	"github.com/rushteam/hybridrec/hybrid"
	"github.com/rushteam/hybridrec/preference"
)

type constModel struct {
	value float64
	inits int
}

func (m *constModel) InitFactors(func() float64) { m.inits++ }

func (m *constModel) Predict(int, int) float64 { return m.value }

func (m *constModel) AccumulateGradient(int, int, float64, float64) hybrid.Penalty {
	return hybrid.Penalty{}
}

func ratings(t *testing.T) (*dataset.RatingMatrix, *dataset.TagSource) {
	t.Helper()
	b := dataset.NewRatingBuilder()
	tags := dataset.NewTagSource()
	data := []struct {
		u, i int
		r    float64
		tags []string
	}{
		{0, 0, 5, []string{"action"}},
		{0, 1, 3, []string{"drama"}},
		{0, 3, 4, []string{"action", "space"}},
		{1, 0, 4, []string{"action"}},
		{1, 2, 1, []string{"romance"}},
		{1, 3, 5, []string{"space"}},
		{2, 1, 2, []string{"drama"}},
		{2, 2, 5, []string{"romance"}},
		{3, 0, 3, []string{"action"}},
		{3, 3, 4, []string{"space"}},
	}
	for _, d := range data {
		require.NoError(t, b.Set(d.u, d.i, d.r))
		for _, tag := range d.tags {
			tags.AddPairTag(d.u, d.i, tag)
		}
	}
	return b.Build(4, 4), tags
}

func newModel(t *testing.T, ew float64) *hybrid.Model {
	t.Helper()
	r, tags := ratings(t)
	cfg := hybrid.DefaultConfig()
	cfg.NumFactors = 4
	cfg.ExplicitWeight = ew
	cfg.Preference = preference.Config{Classes: preference.SplitSingle}
	m, err := hybrid.New(cfg)
	require.NoError(t, err)
	require.NoError(t, m.Setup(r, tags))
	return m
}

func TestTrainReducesLoss(t *testing.T) {
	r, _ := ratings(t)
	cfg := DefaultConfig()
	cfg.EarlyStop = false
	cfg.MaxIterations = 200
	cfg.LearnRate = 0.02

	for _, ew := range []float64{1, 0.8} {
		m := newModel(t, ew)
		report, err := Train(context.Background(), m, r, cfg)
		require.NoError(t, err)
		require.Len(t, report.Epochs, cfg.MaxIterations)
		assert.NotEmpty(t, report.RunID)
		assert.Less(t, report.FinalLoss(), report.Epochs[0].Loss, "ew=%v", ew)
	}
}

// recorder 透传给真实模型，并按更新前的因子独立重算每一步的正则与平滑损失
type recorder struct {
	*hybrid.Model
	t      *testing.T
	sum    float64
	smooth float64
	steps  int
}

func (r *recorder) AccumulateGradient(u, i int, e, lr float64) hybrid.Penalty {
	cfg := r.Config()
	P, Q := r.Factors()
	p, q := P.RawRowView(u), Q.RawRowView(i)
	reg := cfg.RegUser*floats.Dot(p, p) + cfg.RegItem*floats.Dot(q, q)
	smooth := 0.0
	d := make([]float64, len(p))
	for _, nb := range r.Graph(core.SideUser).Neighbors(u) {
		floats.SubTo(d, p, P.RawRowView(nb.Index))
		smooth += cfg.DisWeight * nb.Weight * floats.Dot(d, d)
	}

	pen := r.Model.AccumulateGradient(u, i, e, lr)
	assert.InDelta(r.t, reg, pen.Reg, 1e-12)
	assert.InDelta(r.t, smooth, pen.Smooth, 1e-12)
	r.sum += e*e + reg + smooth
	r.smooth += smooth
	r.steps++
	return pen
}

func TestEpochLossIsHalfErrorPlusPenalties(t *testing.T) {
	r, tags := ratings(t)
	mcfg := hybrid.DefaultConfig()
	mcfg.NumFactors = 4
	mcfg.Preference = preference.Config{Classes: preference.SplitSingle}
	mcfg.DisWeight = 0.05
	m, err := hybrid.New(mcfg)
	require.NoError(t, err)
	require.NoError(t, m.Setup(r, tags))
	require.NotEmpty(t, m.Graph(core.SideUser).Neighbors(0))

	rec := &recorder{Model: m, t: t}
	cfg := DefaultConfig()
	cfg.MaxIterations = 1
	cfg.LearnRate = 1e-4

	report, err := Train(context.Background(), rec, r, cfg)
	require.NoError(t, err)
	require.Len(t, report.Epochs, 1)
	assert.Equal(t, r.Size(), rec.steps)
	assert.Greater(t, rec.smooth, 0.0)
	assert.InDelta(t, 0.5*rec.sum, report.Epochs[0].Loss, 1e-9)
	assert.InDelta(t, 0.5*rec.smooth, report.Epochs[0].Smooth, 1e-9)
}

func TestTrainIsDeterministicForSeed(t *testing.T) {
	r, _ := ratings(t)
	cfg := DefaultConfig()
	cfg.MaxIterations = 20

	a, err := Train(context.Background(), newModel(t, 0.8), r, cfg)
	require.NoError(t, err)
	b, err := Train(context.Background(), newModel(t, 0.8), r, cfg)
	require.NoError(t, err)
	assert.Equal(t, a.Epochs, b.Epochs)
	assert.NotEqual(t, a.RunID, b.RunID)
}

func TestTrainConvergesOnFlatLoss(t *testing.T) {
	r, _ := ratings(t)
	cfg := DefaultConfig()
	m := &constModel{value: 3}

	report, err := Train(context.Background(), m, r, cfg)
	require.NoError(t, err)
	assert.True(t, report.Converged)
	assert.Len(t, report.Epochs, 2)
	assert.Equal(t, 1, m.inits)

	cfg.EarlyStop = false
	cfg.MaxIterations = 5
	report, err = Train(context.Background(), m, r, cfg)
	require.NoError(t, err)
	assert.False(t, report.Converged)
	assert.Len(t, report.Epochs, 5)
}

func TestTrainStopsOnCanceledContext(t *testing.T) {
	r, _ := ratings(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := Train(ctx, &constModel{value: 3}, r, DefaultConfig())
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	assert.Empty(t, report.Epochs)
}

func TestTrainRejectsDivergence(t *testing.T) {
	r, _ := ratings(t)
	report, err := Train(context.Background(), &constModel{value: math.NaN()}, r, DefaultConfig())
	require.Error(t, err)
	de := core.GetDomainError(err)
	require.NotNil(t, de)
	assert.Equal(t, core.ErrorCodeInternalError, de.Code)
	assert.Equal(t, core.ModuleSGD, de.Module)
	assert.Len(t, report.Epochs, 1)
}

func TestTrainRejectsBadConfig(t *testing.T) {
	r, _ := ratings(t)
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no iterations", func(c *Config) { c.MaxIterations = 0 }},
		{"zero learn rate", func(c *Config) { c.LearnRate = 0 }},
		{"decay above one", func(c *Config) { c.Decay = 1.5 }},
		{"negative std", func(c *Config) { c.InitStd = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := Train(context.Background(), &constModel{}, r, cfg)
			assert.True(t, core.IsInvalidConfig(err), "got %v", err)
		})
	}
}

func TestNextLearnRate(t *testing.T) {
	tests := []struct {
		name  string
		cfg   Config
		prev  float64
		loss  float64
		epoch int
		want  float64
	}{
		{"constant", Config{Decay: 1}, 10, 9, 2, 0.1},
		{"decay", Config{Decay: 0.9}, 10, 9, 2, 0.09},
		{"bold driver improves", Config{Decay: 1, BoldDriver: true}, 10, 9, 2, 0.105},
		{"bold driver worsens", Config{Decay: 1, BoldDriver: true}, 9, 10, 2, 0.05},
		{"bold driver first epoch", Config{Decay: 1, BoldDriver: true}, math.NaN(), 10, 1, 0.1},
		{"capped", Config{Decay: 1, BoldDriver: true, MaxLearnRate: 0.102}, 10, 9, 2, 0.102},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, nextLearnRate(tt.cfg, 0.1, tt.prev, tt.loss, tt.epoch), 1e-12)
		})
	}
}

func TestEvaluate(t *testing.T) {
	b := dataset.NewRatingBuilder()
	require.NoError(t, b.Set(0, 0, 5))
	require.NoError(t, b.Set(1, 1, 1))
	test := b.Build(2, 2)
	m := &constModel{value: 3}

	ev := Evaluate(m, test)
	assert.Equal(t, 2, ev.Count)
	assert.InDelta(t, 2, ev.RMSE, 1e-12)
	assert.InDelta(t, 2, ev.MAE, 1e-12)

	ev = Evaluate(m, test, WithClamp(4, 5))
	assert.InDelta(t, math.Sqrt(5), ev.RMSE, 1e-12)
	assert.InDelta(t, 2, ev.MAE, 1e-12)

	assert.Equal(t, Evaluation{}, Evaluate(m, dataset.NewRatingBuilder().Build(1, 1)))
}

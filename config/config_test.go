package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/hybridrec/config"
	_ "github.com/rushteam/hybridrec/config/builders"
	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/hybrid"
	"github.com/rushteam/hybridrec/preference"
	"github.com/rushteam/hybridrec/similarity"
)

func TestVariantsRegistered(t *testing.T) {
	want := []string{
		"classification", "count_item", "count_synthesis", "item_feature", "jaccard", "matrix",
		"mf", "rating", "similarity", "tf", "user_tag",
	}
	assert.Equal(t, want, config.Variants())

	for _, name := range want {
		t.Run(name, func(t *testing.T) {
			cfg, err := config.Build(name, nil)
			require.NoError(t, err)
			_, err = hybrid.New(cfg)
			assert.NoError(t, err)
		})
	}
}

func TestBuildUnknownVariant(t *testing.T) {
	_, err := config.Build("svd++", nil)
	require.Error(t, err)
	assert.True(t, core.IsInvalidConfig(err))
	assert.Contains(t, err.Error(), `unsupported variant "svd++"`)
	assert.Contains(t, err.Error(), "count_synthesis")
}

func TestBuildAppliesOptions(t *testing.T) {
	cfg, err := config.Build("rating", map[string]any{
		"explicit_weight": "0.6",
		"num_factors":     20,
		"top_k":           5,
		"thresholds":      []any{1, 3},
		"comparator":      "<",
		"metric":          "dice",
		"implicit":        "true",
	})
	require.NoError(t, err)
	assert.Equal(t, 0.6, cfg.ExplicitWeight)
	assert.Equal(t, 20, cfg.NumFactors)
	assert.Equal(t, 5, cfg.TopK)
	assert.Equal(t, []float64{1, 3}, cfg.Preference.Thresholds)
	assert.Equal(t, preference.Less, cfg.Preference.Comparator)
	assert.Equal(t, similarity.Dice, cfg.Similarity.Metric)
	assert.True(t, cfg.Implicit)

	cfg, err = config.Build("rating", map[string]any{"classes": "binary"})
	require.NoError(t, err)
	assert.Equal(t, preference.SplitBinary, cfg.Preference.Classes)
	assert.Nil(t, cfg.Preference.Thresholds)
}

func TestBuildRejectsOutOfRangeOptions(t *testing.T) {
	tests := []struct {
		variant string
		opts    map[string]any
	}{
		{"rating", map[string]any{"explicit_weight": 0}},
		{"rating", map[string]any{"explicit_weight": 1.2}},
		{"rating", map[string]any{"top_k": -3}},
		{"count_synthesis", map[string]any{"user_share": 0.5, "item_share": 0.5}},
		{"rating", map[string]any{"side": "diagonal"}},
	}
	for _, tt := range tests {
		_, err := config.Build(tt.variant, tt.opts)
		assert.True(t, core.IsInvalidConfig(err), "%s %v: %v", tt.variant, tt.opts, err)
	}
}

func TestVariantPresets(t *testing.T) {
	mf, err := config.Build("mf", nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, mf.ExplicitWeight)

	cls, err := config.Build("classification", nil)
	require.NoError(t, err)
	assert.Equal(t, preference.SplitBinary, cls.Preference.Classes)
	assert.Equal(t, preference.Less, cls.Preference.Comparator)
	assert.True(t, cls.RepelNegative)
	assert.Greater(t, cls.NegWeight, 0.0)

	cs, err := config.Build("count_synthesis", nil)
	require.NoError(t, err)
	assert.Equal(t, hybrid.GraphBoth, cs.Side)
	assert.Equal(t, preference.SourceCount, cs.Preference.Source)

	ut, err := config.Build("user_tag", nil)
	require.NoError(t, err)
	assert.Equal(t, similarity.Pearson, ut.Similarity.Metric)

	tf, err := config.Build("tf", nil)
	require.NoError(t, err)
	assert.Equal(t, preference.WeightTFIDF, tf.Preference.Weighting)
	assert.Equal(t, similarity.FullCosine, tf.Similarity.Metric)

	mx, err := config.Build("matrix", nil)
	require.NoError(t, err)
	assert.True(t, mx.Implicit)
}

func TestVariantGraphSideAndGradient(t *testing.T) {
	tests := []struct {
		variant  string
		side     hybrid.GraphSide
		gradient hybrid.GradientMode
	}{
		{"mf", hybrid.GraphUser, hybrid.GradientPlain},
		{"rating", hybrid.GraphUser, hybrid.GradientPlain},
		{"user_tag", hybrid.GraphUser, hybrid.GradientPlain},
		{"classification", hybrid.GraphUser, hybrid.GradientPlain},
		{"item_feature", hybrid.GraphUser, hybrid.GradientPlain},
		{"similarity", hybrid.GraphUser, hybrid.GradientPlain},
		{"tf", hybrid.GraphItem, hybrid.GradientExact},
		{"jaccard", hybrid.GraphItem, hybrid.GradientExact},
		{"count_item", hybrid.GraphItem, hybrid.GradientExact},
		{"matrix", hybrid.GraphUser, hybrid.GradientExact},
		{"count_synthesis", hybrid.GraphBoth, hybrid.GradientExact},
	}
	for _, tt := range tests {
		t.Run(tt.variant, func(t *testing.T) {
			cfg, err := config.Build(tt.variant, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.side, cfg.Side)
			assert.Equal(t, tt.gradient, cfg.Gradient)
		})
	}

	jc, err := config.Build("jaccard", nil)
	require.NoError(t, err)
	assert.Equal(t, preference.SourceCount, jc.Preference.Source)
	assert.Equal(t, similarity.Dice, jc.Similarity.Metric)

	ci, err := config.Build("count_item", nil)
	require.NoError(t, err)
	assert.Equal(t, preference.WeightTF, ci.Preference.Weighting)

	cfg, err := config.Build("rating", map[string]any{"gradient": "exact"})
	require.NoError(t, err)
	assert.Equal(t, hybrid.GradientExact, cfg.Gradient)
	_, err = config.Build("rating", map[string]any{"gradient": "approx"})
	assert.True(t, core.IsInvalidConfig(err))
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadVariantFile(t *testing.T) {
	path := writeFile(t, "variant.yaml", `
variant: classification
options:
  explicit_weight: 0.7
  neg_weight: 0.01
`)
	cfg, err := config.LoadVariantFile(path)
	require.NoError(t, err)
	assert.Equal(t, 0.7, cfg.ExplicitWeight)
	assert.Equal(t, 0.01, cfg.NegWeight)

	_, err = config.LoadVariantFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadLayers(t *testing.T) {
	path := writeFile(t, "app.yaml", `
data:
  ratings: ratings.txt
model:
  variant: classification
  options:
    explicit_weight: 0.7
train:
  max_iterations: 30
eval:
  test_ratio: 0.2
`)
	t.Setenv("HYBRIDREC_TRAIN__LEARN_RATE", "0.05")
	t.Setenv("HYBRIDREC_LOG__LEVEL", "debug")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ratings.txt", cfg.Data.Ratings)
	assert.True(t, cfg.Data.UserTags)
	assert.Equal(t, 30, cfg.Train.MaxIterations)
	assert.Equal(t, 0.05, cfg.Train.LearnRate)
	assert.Equal(t, 1.0, cfg.Train.Decay)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 0.2, cfg.Eval.TestRatio)
	assert.Equal(t, "hybridrec", cfg.Export.Prefix)

	model, err := cfg.Model.Build()
	require.NoError(t, err)
	assert.Equal(t, 0.7, model.ExplicitWeight)

	out, err := config.Dump(model)
	require.NoError(t, err)
	assert.Contains(t, string(out), "explicit_weight: 0.7")
}

func TestLoadDefaultsAndValidation(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "rating", cfg.Model.Variant)
	assert.Equal(t, 100, cfg.Train.MaxIterations)

	path := writeFile(t, "bad.yaml", "eval:\n  test_ratio: 1.5\n")
	_, err = config.Load(path)
	assert.True(t, core.IsInvalidConfig(err), "got %v", err)
}

package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/hybridrec/core"
)

const testRatings = `# user item rating
u1 i1 5
u1 i2 4
u2 i1 5
u2 i2 4
u2 i3 3
u3 i1 3
u3 i3 2
u3 i4 4
u4 i2 4
u4 i4 5
`

const testTags = `u1 i1 action
u1 i2 drama
u2 i1 action
u2 i3 comedy
u3 i4 drama
u4 i4 drama
`

const testConfig = `log:
  level: error
train:
  max_iterations: 5
  learn_rate: 0.01
`

func fixture(t *testing.T) (ratings, tags, cfg string) {
	t.Helper()
	dir := t.TempDir()
	ratings = filepath.Join(dir, "ratings.txt")
	tags = filepath.Join(dir, "tags.txt")
	cfg = filepath.Join(dir, "app.yaml")
	require.NoError(t, os.WriteFile(ratings, []byte(testRatings), 0o644))
	require.NoError(t, os.WriteFile(tags, []byte(testTags), 0o644))
	require.NoError(t, os.WriteFile(cfg, []byte(testConfig), 0o644))
	return ratings, tags, cfg
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return buf.String()
}

func TestVariantsCommand(t *testing.T) {
	out := execute(t, "variants")
	names := strings.Fields(out)
	assert.Contains(t, names, "mf")
	assert.Contains(t, names, "classification")
	assert.Contains(t, names, "similarity")
}

func TestTrainCommand(t *testing.T) {
	ratings, tags, cfg := fixture(t)
	out := execute(t, "train", "-c", cfg, "--ratings", ratings, "--tags", tags,
		"--variant", "user_tag", "--json")

	var got trainOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "user_tag", got.Variant)
	require.NotNil(t, got.Report)
	assert.NotEmpty(t, got.Report.RunID)
	assert.NotEmpty(t, got.Report.Epochs)
	assert.LessOrEqual(t, len(got.Report.Epochs), 5)
	assert.False(t, got.Exported)
}

func TestRecommendExcludesRatedItems(t *testing.T) {
	ratings, tags, cfg := fixture(t)
	out := execute(t, "recommend", "-c", cfg, "--ratings", ratings, "--tags", tags,
		"--variant", "rating", "--user", "u1", "--top", "5")

	var items []core.Item
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.NotEmpty(t, items)
	for _, it := range items {
		assert.NotContains(t, []string{"i1", "i2"}, it.ID)
		assert.Contains(t, it.Labels, "recall_source")
	}
}

func TestRecommendBlacklist(t *testing.T) {
	ratings, tags, cfg := fixture(t)
	out := execute(t, "recommend", "-c", cfg, "--ratings", ratings, "--tags", tags,
		"--variant", "rating", "--user", "u1", "--blacklist", "i3")

	var items []core.Item
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "i4", items[0].ID)
}

func TestConfigShow(t *testing.T) {
	_, _, cfg := fixture(t)
	out := execute(t, "config", "show", "-c", cfg, "--variant", "classification")
	assert.Contains(t, out, "app:")
	assert.Contains(t, out, "resolved_model:")
	assert.Contains(t, out, "max_iterations: 5")
}

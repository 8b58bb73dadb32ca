package conv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigGetters(t *testing.T) {
	m := map[string]any{
		"explicit_weight": 1,
		"top_k":           30.0,
		"implicit":        "true",
		"side":            "item",
		"thresholds":      []any{2, 3.5},
		"rules":           []any{"rating < mean", 4},
	}

	assert.Equal(t, 1.0, ConfigGetFloat64(m, "explicit_weight", 0.5))
	assert.Equal(t, 0.5, ConfigGetFloat64(m, "missing", 0.5))
	assert.Equal(t, 30, ConfigGetInt(m, "top_k", 20))
	assert.True(t, ConfigGetBool(m, "implicit", false))
	assert.Equal(t, "item", ConfigGet(m, "side", "user"))
	assert.Equal(t, "user", ConfigGet(m, "top_k", "user"))
	assert.Equal(t, []float64{2, 3.5}, SliceAnyToFloat64(m["thresholds"]))
	assert.Equal(t, []string{"rating < mean", "4"}, SliceAnyToString(m["rules"]))
	assert.Nil(t, SliceAnyToFloat64(nil))
	assert.Equal(t, 20, ConfigGetInt(nil, "top_k", 20))
}

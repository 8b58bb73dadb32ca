package hybrid

import (
	"math"

	"github.com/go-playground/validator/v10"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/preference"
	"github.com/rushteam/hybridrec/similarity"
)

// GraphSide 决定近邻修正项使用哪一侧的相似图
type GraphSide string

const (
	GraphUser GraphSide = "user"
	GraphItem GraphSide = "item"
	GraphBoth GraphSide = "both"
)

// GradientMode 决定用户 / 物品因子的更新方式
type GradientMode string

const (
	// GradientPlain 普通矩阵分解的一步：p += lr*(e*q - reg*p)，q 同理；近邻项不参与
	GradientPlain GradientMode = "plain"
	// GradientExact 对混合预测精确求导：显式项按 ew 缩放，近邻项按 share 贡献梯度
	GradientExact GradientMode = "exact"
)

// Config 选择混合模型的各个维度：
//   - 相似图建在用户侧、物品侧还是两侧（Side / UserShare / ItemShare）
//   - 行为类别数与切分点（Preference）
//   - tag 权重 TF / TF-IDF（Preference.Weighting）
//   - 近邻项是否读取独立的隐式因子矩阵（Implicit）
//   - 因子更新是普通矩阵分解的一步还是对混合预测精确求导（Gradient）
//   - 平滑项作用在哪张图、吸引还是排斥、作用于主矩阵还是隐式矩阵
type Config struct {
	NumFactors int `yaml:"num_factors" koanf:"num_factors" validate:"gt=0"`
	// ExplicitWeight 为显式点积项的权重，取值 (0, 1]，含 1：1 时退化为普通矩阵分解
	ExplicitWeight float64 `yaml:"explicit_weight" koanf:"explicit_weight" validate:"gt=0,lte=1"`
	TopK           int     `yaml:"top_k" koanf:"top_k" validate:"gte=0"`

	Side GraphSide `yaml:"side" koanf:"side" validate:"omitempty,oneof=user item both"`
	// UserShare / ItemShare 仅在 Side 为 both 时使用，两者之和必须等于 1-ExplicitWeight；
	// 都为 0 时按 0.2 / 0.8 分配
	UserShare float64 `yaml:"user_share" koanf:"user_share" validate:"gte=0,lte=1"`
	ItemShare float64 `yaml:"item_share" koanf:"item_share" validate:"gte=0,lte=1"`
	Implicit  bool    `yaml:"implicit" koanf:"implicit"`
	// Gradient 为空时按 plain
	Gradient GradientMode `yaml:"gradient" koanf:"gradient" validate:"omitempty,oneof=plain exact"`

	RegUser     float64 `yaml:"reg_user" koanf:"reg_user" validate:"gte=0"`
	RegItem     float64 `yaml:"reg_item" koanf:"reg_item" validate:"gte=0"`
	RegImplicit float64 `yaml:"reg_implicit" koanf:"reg_implicit" validate:"gte=0"`

	// DisWeight 平滑主相似图上的近邻
	DisWeight float64 `yaml:"dis_weight" koanf:"dis_weight" validate:"gte=0"`
	// PosWeight / NegWeight 平滑只由正类 / 负类 tag 建出的图
	PosWeight     float64 `yaml:"pos_weight" koanf:"pos_weight" validate:"gte=0"`
	NegWeight     float64 `yaml:"neg_weight" koanf:"neg_weight" validate:"gte=0"`
	RepelNegative bool    `yaml:"repel_negative" koanf:"repel_negative"`
	// SmoothSide 为平滑项所在侧，为空时取 Side（both 时取 user）
	SmoothSide     core.Side `yaml:"smooth_side,omitempty" koanf:"smooth_side" validate:"omitempty,oneof=user item"`
	SmoothImplicit bool      `yaml:"smooth_implicit" koanf:"smooth_implicit"`

	Preference preference.Config `yaml:"preference" koanf:"preference"`
	Similarity similarity.Config `yaml:"similarity" koanf:"similarity"`
}

// DefaultConfig 返回用户侧、三分类、ew=0.8、top 20 的配置
func DefaultConfig() Config {
	return Config{
		NumFactors:     10,
		ExplicitWeight: 0.8,
		TopK:           similarity.DefaultTopK,
		Side:           GraphUser,
		Gradient:       GradientPlain,
		RegUser:        0.01,
		RegItem:        0.01,
		RegImplicit:    0.01,
		Preference:     preference.DefaultConfig(),
		Similarity:     similarity.DefaultConfig(),
	}
}

var validate = validator.New()

const shareTolerance = 1e-9

// Validate 校验取值范围与字段间约束，失败时返回 INVALID_CONFIG 领域错误。
func (c *Config) Validate() error {
	if math.IsNaN(c.ExplicitWeight) {
		return core.NewConfigError(core.ModuleHybrid, "explicit_weight is NaN")
	}
	if err := validate.Struct(c); err != nil {
		return core.NewConfigError(core.ModuleHybrid, "%v", err)
	}
	if c.Side == GraphBoth && (c.UserShare != 0 || c.ItemShare != 0) {
		if sum := c.UserShare + c.ItemShare; math.Abs(sum-(1-c.ExplicitWeight)) > shareTolerance {
			return core.NewConfigError(core.ModuleHybrid,
				"user_share + item_share must equal 1 - explicit_weight (%v), got %v", 1-c.ExplicitWeight, sum)
		}
	}
	if c.SmoothImplicit && !c.Implicit {
		return core.NewConfigError(core.ModuleHybrid, "smooth_implicit requires implicit")
	}
	if c.Similarity.TopK < 0 {
		return core.NewConfigError(core.ModuleHybrid, "similarity.top_k must not be negative")
	}
	return nil
}

// withDefaults 补全可省略字段
func (c Config) withDefaults() Config {
	if c.Side == "" {
		c.Side = GraphUser
	}
	if c.TopK == 0 {
		c.TopK = similarity.DefaultTopK
	}
	if c.Gradient == "" {
		c.Gradient = GradientPlain
	}
	if c.SmoothSide == "" {
		c.SmoothSide = core.SideUser
		if c.Side == GraphItem {
			c.SmoothSide = core.SideItem
		}
	}
	if c.Side == GraphBoth && c.UserShare == 0 && c.ItemShare == 0 {
		rest := 1 - c.ExplicitWeight
		c.UserShare = 0.2 * rest
		c.ItemShare = 0.8 * rest
	}
	c.Similarity.TopK = c.TopK
	return c
}

// shares 返回各侧近邻项的系数
func (c Config) shares() map[core.Side]float64 {
	rest := 1 - c.ExplicitWeight
	switch c.Side {
	case GraphItem:
		return map[core.Side]float64{core.SideItem: rest}
	case GraphBoth:
		return map[core.Side]float64{core.SideUser: c.UserShare, core.SideItem: c.ItemShare}
	default:
		return map[core.Side]float64{core.SideUser: rest}
	}
}

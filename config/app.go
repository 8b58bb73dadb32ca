package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/hybrid"
	"github.com/rushteam/hybridrec/logging"
	"github.com/rushteam/hybridrec/sgd"
	"github.com/rushteam/hybridrec/store"
)

// EnvPrefix 是环境变量前缀，嵌套层级用 "__" 分隔：
// HYBRIDREC_TRAIN__LEARN_RATE=0.02 -> train.learn_rate
const EnvPrefix = "HYBRIDREC_"

// AppConfig 是 CLI 的完整配置
type AppConfig struct {
	Log     logging.Config    `koanf:"log" yaml:"log"`
	Data    DataConfig        `koanf:"data" yaml:"data"`
	Model   ModelConfig       `koanf:"model" yaml:"model"`
	Train   sgd.Config        `koanf:"train" yaml:"train"`
	Eval    EvalConfig        `koanf:"eval" yaml:"eval"`
	Redis   store.RedisConfig `koanf:"redis" yaml:"redis"`
	Export  ExportConfig      `koanf:"export" yaml:"export"`
	Metrics MetricsConfig     `koanf:"metrics" yaml:"metrics"`
}

// DataConfig 数据文件路径与 tag 归属
type DataConfig struct {
	Ratings      string `koanf:"ratings" yaml:"ratings"`
	Tags         string `koanf:"tags" yaml:"tags"`
	ItemFeatures string `koanf:"item_features" yaml:"item_features"`
	// UserTags / ItemTags 决定 tag 文件中的 tag 是否同时记到用户 / 物品的实体级 tag 上
	UserTags bool `koanf:"user_tags" yaml:"user_tags"`
	ItemTags bool `koanf:"item_tags" yaml:"item_tags"`
	// AllowNew 允许 tag 文件引入评分文件中没有的用户 / 物品
	AllowNew bool `koanf:"allow_new" yaml:"allow_new"`
}

// ModelConfig 按变体名 + options 描述模型
type ModelConfig struct {
	Variant string         `koanf:"variant" yaml:"variant" validate:"required"`
	Options map[string]any `koanf:"options" yaml:"options,omitempty"`
}

// Build 通过注册表构建模型配置
func (m ModelConfig) Build() (hybrid.Config, error) {
	return Build(m.Variant, m.Options)
}

// EvalConfig 离线评估
type EvalConfig struct {
	TestRatio float64 `koanf:"test_ratio" yaml:"test_ratio" validate:"gte=0,lt=1"`
	Seed      uint64  `koanf:"seed" yaml:"seed"`
	// Clamp 评估时把预测截断到训练集评分范围
	Clamp bool `koanf:"clamp" yaml:"clamp"`
}

// ExportConfig 模型导出
type ExportConfig struct {
	Prefix string `koanf:"prefix" yaml:"prefix"`
	TTL    int    `koanf:"ttl" yaml:"ttl" validate:"gte=0"`
}

// MetricsConfig Prometheus 暴露地址，为空时不启动
type MetricsConfig struct {
	Addr string `koanf:"addr" yaml:"addr"`
}

// DefaultAppConfig 返回默认配置：rating 变体、不切分测试集、不导出
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		Log:    logging.DefaultConfig(),
		Data:   DataConfig{UserTags: true, ItemTags: true},
		Model:  ModelConfig{Variant: "rating", Options: map[string]any{}},
		Train:  sgd.DefaultConfig(),
		Eval:   EvalConfig{Seed: 1, Clamp: true},
		Redis:  store.RedisConfig{Addr: "127.0.0.1:6379"},
		Export: ExportConfig{Prefix: "hybridrec"},
	}
}

var appValidate = validator.New()

// Validate 校验字段取值
func (c *AppConfig) Validate() error {
	if err := appValidate.Struct(c); err != nil {
		return core.NewConfigError(core.ModuleConfig, "%v", err)
	}
	return nil
}

// Load 依次加载：结构体默认值 -> YAML 文件（path 非空时）-> HYBRIDREC_ 环境变量，然后校验。
func Load(path string) (*AppConfig, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(DefaultAppConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &AppConfig{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envKey: HYBRIDREC_MODEL__OPTIONS__EXPLICIT_WEIGHT -> model.options.explicit_weight
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

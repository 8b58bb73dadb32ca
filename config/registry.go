// Package config 提供混合模型变体的注册表与应用级分层配置。
//
// 使用变体时，需在 main 或入口处 import _ "github.com/rushteam/hybridrec/config/builders"
// 以触发内置变体（mf、rating、classification、count_synthesis 等）的 init 注册。
package config

import (
	"sort"
	"sync"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/hybrid"
)

// VariantBuilder 根据 options 构建一个混合模型配置。
// 各变体在 init 中调用 Register(name, builder) 即可被配置驱动。
type VariantBuilder func(options map[string]any) (hybrid.Config, error)

var (
	variants   = make(map[string]VariantBuilder)
	variantsMu sync.RWMutex
)

// Register 注册一个变体，同名覆盖。
func Register(name string, builder VariantBuilder) {
	if name == "" || builder == nil {
		return
	}
	variantsMu.Lock()
	defer variantsMu.Unlock()
	variants[name] = builder
}

// Variants 返回已注册的变体名（排序），用于错误提示与 CLI 展示。
func Variants() []string {
	variantsMu.RLock()
	defer variantsMu.RUnlock()
	names := make([]string, 0, len(variants))
	for n := range variants {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Build 按变体名构建并校验模型配置；未注册的变体返回包含已支持列表的 INVALID_CONFIG 错误。
func Build(variant string, options map[string]any) (hybrid.Config, error) {
	variantsMu.RLock()
	builder, ok := variants[variant]
	variantsMu.RUnlock()
	if !ok {
		return hybrid.Config{}, core.NewConfigError(core.ModuleConfig,
			"unsupported variant %q (supported: %v)", variant, Variants())
	}
	cfg, err := builder(options)
	if err != nil {
		return hybrid.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return hybrid.Config{}, err
	}
	return cfg, nil
}

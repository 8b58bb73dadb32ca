package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rushteam/hybridrec/hybrid"
)

// VariantFile 是单独的变体文件：
//
//	variant: classification
//	options:
//	  explicit_weight: 0.7
//	  neg_weight: 0.01
type VariantFile struct {
	Variant string         `yaml:"variant"`
	Options map[string]any `yaml:"options"`
}

// LoadVariantFile 读取变体文件并通过注册表构建模型配置
func LoadVariantFile(path string) (hybrid.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return hybrid.Config{}, fmt.Errorf("read variant file: %w", err)
	}
	var vf VariantFile
	if err := yaml.Unmarshal(data, &vf); err != nil {
		return hybrid.Config{}, fmt.Errorf("parse variant file %s: %w", path, err)
	}
	return Build(vf.Variant, vf.Options)
}

// Dump 把配置渲染为 YAML，用于 `hybridrec config show`
func Dump(v any) ([]byte, error) {
	return yaml.Marshal(v)
}

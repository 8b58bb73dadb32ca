// Package dsl 提供基于 CEL (Common Expression Language) 的评分规则表达式。
//
// 规则在编译期校验类型，编译后的 Program 线程安全，可在聚合循环中反复求值。
//
// 可用变量：
//   - rating：当前评分（double）
//   - mean：该实体所有评分的均值（double）
//
// 示例：
//   - `rating <= 2.0`
//   - `rating < mean`
//   - `rating > 2.0 && rating <= 3.5`
package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

var (
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once
)

func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable("rating", cel.DoubleType),
			cel.Variable("mean", cel.DoubleType),
			cel.CrossTypeNumericComparisons(true),
		)
	})
	return celEnv, celEnvErr
}

// RatingRule 是编译后的布尔评分规则。
type RatingRule struct {
	expr string
	prg  cel.Program
}

// Compile 编译表达式；表达式必须返回 bool。
func Compile(expr string) (*RatingRule, error) {
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile %q: %w", expr, issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("compile %q: expression must return bool, got %v", expr, ast.OutputType())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program %q: %w", expr, err)
	}
	return &RatingRule{expr: expr, prg: prg}, nil
}

// String 返回原始表达式
func (r *RatingRule) String() string { return r.expr }

// Match 对一条评分求值。
func (r *RatingRule) Match(rating, mean float64) (bool, error) {
	out, _, err := r.prg.Eval(map[string]any{
		"rating": rating,
		"mean":   mean,
	})
	if err != nil {
		return false, fmt.Errorf("eval %q: %w", r.expr, err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("eval %q: expression must return boolean, got %T", r.expr, out.Value())
	}
	return result, nil
}

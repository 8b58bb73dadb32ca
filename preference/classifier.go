package preference

import (
	"math"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/pkg/dsl"
)

// Class 是行为类别下标：0 为最低（dislike / negative），NumClasses-1 为最高（like / positive）。
type Class int

const (
	Dislike Class = 0
	Neutral Class = 1
	Like    Class = 2
)

// ClassSplit 决定使用几个行为类别
type ClassSplit string

const (
	SplitSingle  ClassSplit = "single"  // 不区分类别
	SplitBinary  ClassSplit = "binary"  // negative / positive
	SplitTernary ClassSplit = "ternary" // dislike / neutral / like
)

// NumClasses 返回类别数
func (s ClassSplit) NumClasses() int {
	switch s {
	case SplitBinary:
		return 2
	case SplitTernary:
		return 3
	default:
		return 1
	}
}

// DefaultThresholds 返回各划分方式的默认切分点
func (s ClassSplit) DefaultThresholds() []float64 {
	switch s {
	case SplitBinary:
		return []float64{3.5}
	case SplitTernary:
		return []float64{2, 3.5}
	default:
		return nil
	}
}

// Comparator 决定评分恰好等于切分点时的归属。
type Comparator string

const (
	// LessOrEqual：rating <= cut 归入较低类别（如 "<=2 为 dislike"）
	LessOrEqual Comparator = "<="
	// Less：rating < cut 归入较低类别，等于切分点归入较高类别
	Less Comparator = "<"
)

// Classifier 把评分映射到行为类别。mean 为该实体评分均值，供相对规则使用。
type Classifier interface {
	Classify(rating, mean float64) Class
	NumClasses() int
}

// ThresholdClassifier 按升序切分点划分类别。
type ThresholdClassifier struct {
	cuts []float64
	cmp  Comparator
}

// NewThresholdClassifier 校验切分点严格递增且有限。
func NewThresholdClassifier(cuts []float64, cmp Comparator) (*ThresholdClassifier, error) {
	if cmp == "" {
		cmp = LessOrEqual
	}
	if cmp != LessOrEqual && cmp != Less {
		return nil, core.NewConfigError(core.ModulePreference, "unknown comparator %q", cmp)
	}
	for i, c := range cuts {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return nil, core.NewConfigError(core.ModulePreference, "threshold %v is not finite", c)
		}
		if i > 0 && c <= cuts[i-1] {
			return nil, core.NewConfigError(core.ModulePreference, "thresholds must be strictly increasing: %v", cuts)
		}
	}
	return &ThresholdClassifier{cuts: append([]float64(nil), cuts...), cmp: cmp}, nil
}

func (c *ThresholdClassifier) NumClasses() int { return len(c.cuts) + 1 }

func (c *ThresholdClassifier) Classify(rating, _ float64) Class {
	k := 0
	for _, cut := range c.cuts {
		if (c.cmp == Less && rating < cut) || (c.cmp == LessOrEqual && rating <= cut) {
			break
		}
		k++
	}
	return Class(k)
}

// RuleClassifier 依次匹配 CEL 规则，第 i 条命中即为类别 i，都不命中时为最高类别。
type RuleClassifier struct {
	rules []*dsl.RatingRule
}

func NewRuleClassifier(exprs []string) (*RuleClassifier, error) {
	rc := &RuleClassifier{}
	for _, expr := range exprs {
		rule, err := dsl.Compile(expr)
		if err != nil {
			return nil, core.NewConfigError(core.ModulePreference, "class rule: %v", err)
		}
		rc.rules = append(rc.rules, rule)
	}
	return rc, nil
}

func (c *RuleClassifier) NumClasses() int { return len(c.rules) + 1 }

func (c *RuleClassifier) Classify(rating, mean float64) Class {
	for i, rule := range c.rules {
		if ok, err := rule.Match(rating, mean); err == nil && ok {
			return Class(i)
		}
	}
	return Class(len(c.rules))
}

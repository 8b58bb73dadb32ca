package preference

import (
	"math"

	"github.com/rushteam/hybridrec/core"
)

// Weighting 是语料级 tag 权重
type Weighting string

const (
	WeightNone  Weighting = "none"
	WeightTF    Weighting = "tf"    // occ(t) / Σocc
	WeightTFIDF Weighting = "tfidf" // tf(t) * log(N / (df(t)+1))
)

// Scope 决定一条评分上的 tag 从哪里取
type Scope string

const (
	ScopePair        Scope = "pair"        // 附着在该条评分上的 tag
	ScopeCounterpart Scope = "counterpart" // 被评分一方的实体级 tag（如物品类型）
)

// Source 决定偏好向量的来源
type Source string

const (
	SourceRating Source = "rating" // 评分加权聚合
	SourceCount  Source = "count"  // 实体自身的 tag 计数，不看评分
)

// Config 是偏好聚合的配置
type Config struct {
	Classes    ClassSplit `yaml:"classes" koanf:"classes" validate:"omitempty,oneof=single binary ternary"`
	Thresholds []float64  `yaml:"thresholds,omitempty" koanf:"thresholds"`
	Comparator Comparator `yaml:"comparator" koanf:"comparator" validate:"omitempty,oneof=<= <"`
	// Rules 为 CEL 规则，非空时替代 Thresholds，类别数为 len(Rules)+1
	Rules     []string  `yaml:"rules,omitempty" koanf:"rules"`
	Weighting Weighting `yaml:"weighting" koanf:"weighting" validate:"omitempty,oneof=none tf tfidf"`
	Scope     Scope     `yaml:"scope" koanf:"scope" validate:"omitempty,oneof=pair counterpart"`
	Source    Source    `yaml:"source" koanf:"source" validate:"omitempty,oneof=rating count"`
}

// DefaultConfig 返回三分类、<= 比较、评分级 tag 的配置
func DefaultConfig() Config {
	return Config{
		Classes:    SplitTernary,
		Thresholds: SplitTernary.DefaultThresholds(),
		Comparator: LessOrEqual,
		Weighting:  WeightNone,
		Scope:      ScopePair,
		Source:     SourceRating,
	}
}

// Aggregator 把评分历史与辅助 tag 聚合成每个实体的偏好向量。
type Aggregator struct {
	cfg        Config
	classifier Classifier
}

// NewAggregator 应用默认值并构造分类器。
func NewAggregator(cfg Config) (*Aggregator, error) {
	if cfg.Classes == "" {
		cfg.Classes = SplitSingle
	}
	if cfg.Weighting == "" {
		cfg.Weighting = WeightNone
	}
	if cfg.Scope == "" {
		cfg.Scope = ScopePair
	}
	if cfg.Source == "" {
		cfg.Source = SourceRating
	}
	switch cfg.Weighting {
	case WeightNone, WeightTF, WeightTFIDF:
	default:
		return nil, core.NewConfigError(core.ModulePreference, "unknown weighting %q", cfg.Weighting)
	}
	switch cfg.Scope {
	case ScopePair, ScopeCounterpart:
	default:
		return nil, core.NewConfigError(core.ModulePreference, "unknown scope %q", cfg.Scope)
	}

	a := &Aggregator{cfg: cfg}
	switch {
	case cfg.Source == SourceCount:
		a.classifier, _ = NewThresholdClassifier(nil, LessOrEqual)
	case cfg.Source != SourceRating:
		return nil, core.NewConfigError(core.ModulePreference, "unknown source %q", cfg.Source)
	case len(cfg.Rules) > 0:
		rc, err := NewRuleClassifier(cfg.Rules)
		if err != nil {
			return nil, err
		}
		a.classifier = rc
	default:
		want := cfg.Classes.NumClasses()
		if cfg.Classes != SplitSingle && cfg.Classes != SplitBinary && cfg.Classes != SplitTernary {
			return nil, core.NewConfigError(core.ModulePreference, "unknown class split %q", cfg.Classes)
		}
		cuts := cfg.Thresholds
		if len(cuts) == 0 {
			cuts = cfg.Classes.DefaultThresholds()
		}
		if len(cuts) != want-1 {
			return nil, core.NewConfigError(core.ModulePreference,
				"class split %q needs %d thresholds, got %d", cfg.Classes, want-1, len(cuts))
		}
		tc, err := NewThresholdClassifier(cuts, cfg.Comparator)
		if err != nil {
			return nil, err
		}
		a.classifier = tc
	}
	return a, nil
}

// Classifier 返回使用中的分类器
func (a *Aggregator) Classifier() Classifier { return a.classifier }

// Profile 是一个实体的偏好：合并后的整体向量与各类别向量（无数据的类别为 nil）。
type Profile struct {
	Overall Vector
	Classes []Vector
}

// Result 是一次聚合的输出。没有偏好数据的实体不出现在 Profiles 中。
type Result struct {
	Side        core.Side
	NumEntities int
	NumClasses  int
	Profiles    map[int]*Profile
}

// Positive 返回最高类别
func (r *Result) Positive() Class { return Class(r.NumClasses - 1) }

// Negative 返回最低类别；单类别时不存在
func (r *Result) Negative() (Class, bool) { return 0, r.NumClasses > 1 }

// Vectors 返回整体偏好向量
func (r *Result) Vectors() map[int]Vector {
	out := make(map[int]Vector, len(r.Profiles))
	for e, p := range r.Profiles {
		out[e] = p.Overall
	}
	return out
}

// ClassTags 返回每个实体在类别 c 下的 tag 集合，没有该类 tag 的实体不出现。
func (r *Result) ClassTags(c Class) map[int]TagSet {
	out := make(map[int]TagSet)
	for e, p := range r.Profiles {
		if int(c) < len(p.Classes) && len(p.Classes[c]) > 0 {
			out[e] = p.Classes[c].Keys()
		}
	}
	return out
}

// AllTags 返回每个实体整体向量的 tag 集合
func (r *Result) AllTags() map[int]TagSet {
	out := make(map[int]TagSet, len(r.Profiles))
	for e, p := range r.Profiles {
		out[e] = p.Overall.Keys()
	}
	return out
}

type key struct {
	entity int
	class  Class
	tag    string
}

type acc struct {
	sum   float64
	count int
}

// Aggregate 计算 side 一侧所有实体的偏好向量。
//
// 评分源：side 为 item 时对评分矩阵做转置，实体为物品、对方为用户。
func (a *Aggregator) Aggregate(ratings core.RatingStore, aux core.AuxiliarySource, side core.Side) *Result {
	if side != core.SideItem {
		side = core.SideUser
	}
	rs := ratings
	if side == core.SideItem {
		rs = core.Transpose(ratings)
	}
	res := &Result{
		Side:        side,
		NumEntities: rs.NumRows(),
		NumClasses:  a.classifier.NumClasses(),
		Profiles:    make(map[int]*Profile),
	}
	if a.cfg.Source == SourceCount {
		a.aggregateCounts(res, aux)
		return res
	}

	n := rs.NumRows()
	norm := make([]float64, n)
	mean := make([]float64, n)
	for e := 0; e < n; e++ {
		var sumSq, sum float64
		idx := rs.RowIndices(e)
		for _, c := range idx {
			r := rs.Get(e, c)
			if r > 0 {
				sumSq += r * r
			}
			sum += r
		}
		norm[e] = math.Sqrt(sumSq)
		if len(idx) > 0 {
			mean[e] = sum / float64(len(idx))
		}
	}

	tagsFor := func(e, c int) []string {
		if a.cfg.Scope == ScopeCounterpart {
			return aux.TagsFor(side.Other(), c)
		}
		if side == core.SideItem {
			return aux.PairTagsFor(c, e)
		}
		return aux.PairTagsFor(e, c)
	}

	table := make(map[key]*acc)
	occ := make(map[string]int)
	total := 0
	rs.ForEachObserved(func(e, c int, r float64) {
		if r <= 0 || norm[e] == 0 {
			return
		}
		w := r / norm[e]
		class := a.classifier.Classify(r, mean[e])
		for _, t := range dedupe(tagsFor(e, c)) {
			k := key{e, class, t}
			v := table[k]
			if v == nil {
				v = &acc{}
				table[k] = v
			}
			v.sum += w
			v.count++
			occ[t]++
			total++
		}
	})

	weights := a.tagWeights(table, occ, total, n)
	for k, v := range table {
		score := v.sum / float64(v.count)
		if weights != nil {
			score *= weights[k.tag]
		}
		res.put(k.entity, k.class, k.tag, score)
	}
	res.merge()
	return res
}

// aggregateCounts 使用实体自身 tag 的出现次数作为偏好
func (a *Aggregator) aggregateCounts(res *Result, aux core.AuxiliarySource) {
	table := make(map[key]*acc)
	occ := make(map[string]int)
	total := 0
	for e := 0; e < res.NumEntities; e++ {
		for _, t := range aux.TagsFor(res.Side, e) {
			k := key{e, 0, t}
			v := table[k]
			if v == nil {
				v = &acc{}
				table[k] = v
			}
			v.count++
			occ[t]++
			total++
		}
	}
	weights := a.tagWeights(table, occ, total, res.NumEntities)
	for k, v := range table {
		score := float64(v.count)
		if weights != nil {
			score *= weights[k.tag]
		}
		res.put(k.entity, 0, k.tag, score)
	}
	res.merge()
}

// tagWeights 计算 TF 或 TF-IDF 权重；WeightNone 返回 nil。
// IDF 为负时截断为 0，保证分数非负。
func (a *Aggregator) tagWeights(table map[key]*acc, occ map[string]int, total, numEntities int) map[string]float64 {
	if a.cfg.Weighting == WeightNone || total == 0 {
		return nil
	}
	weights := make(map[string]float64, len(occ))
	for t, n := range occ {
		weights[t] = float64(n) / float64(total)
	}
	if a.cfg.Weighting != WeightTFIDF {
		return weights
	}
	type entityTag struct {
		entity int
		tag    string
	}
	seen := make(map[entityTag]struct{})
	df := make(map[string]int)
	for k := range table {
		et := entityTag{k.entity, k.tag}
		if _, ok := seen[et]; ok {
			continue
		}
		seen[et] = struct{}{}
		df[k.tag]++
	}
	for t, w := range weights {
		idf := math.Log(float64(numEntities) / float64(df[t]+1))
		weights[t] = w * math.Max(0, idf)
	}
	return weights
}

func (r *Result) put(entity int, class Class, tag string, score float64) {
	p := r.Profiles[entity]
	if p == nil {
		p = &Profile{Classes: make([]Vector, r.NumClasses)}
		r.Profiles[entity] = p
	}
	if p.Classes[class] == nil {
		p.Classes[class] = make(Vector)
	}
	p.Classes[class][tag] = score
}

func (r *Result) merge() {
	for _, p := range r.Profiles {
		p.Overall = MergeClasses(p.Classes)
	}
}

// MergeClasses 把各类别向量合并为整体向量。
//
// 只出现在一个类别的 tag 保留该类分数；出现在多个类别时，从低到高找到第一对
// 相邻且都含该 tag 的类别取平均；不存在相邻对时取含该 tag 的最高类别的分数。
func MergeClasses(classes []Vector) Vector {
	out := make(Vector)
	for _, v := range classes {
		for t := range v {
			if _, done := out[t]; done {
				continue
			}
			out[t] = mergeTag(classes, t)
		}
	}
	return out
}

func mergeTag(classes []Vector, tag string) float64 {
	present := 0
	highest := 0.0
	for _, v := range classes {
		if s, ok := v[tag]; ok {
			present++
			highest = s
		}
	}
	if present == 1 {
		return highest
	}
	for k := 0; k+1 < len(classes); k++ {
		a, okA := classes[k][tag]
		b, okB := classes[k+1][tag]
		if okA && okB {
			return (a + b) / 2
		}
	}
	return highest
}

// dedupe 去掉同一条评分上重复的 tag，保持首次出现的顺序
func dedupe(tags []string) []string {
	if len(tags) < 2 {
		return tags
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

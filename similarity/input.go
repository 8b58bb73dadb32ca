package similarity

import (
	"sort"
	"sync"

	"gonum.org/v1/gonum/floats"

	"github.com/rushteam/hybridrec/preference"
)

// Input 是建图的输入。
//
// Groups 中每一组是一个类别的 tag 集合（如 positive、negative）；一对实体在某组上
// 有非空交集时才计算该组的相似度，最终相似度为各有效组的算术平均。
type Input struct {
	N       int
	Vectors map[int]preference.Vector
	Groups  []map[int]preference.TagSet

	once  sync.Once
	stats map[int]entityStats
}

type entityStats struct {
	norm float64 // 整体向量的 L2 范数
	sum  float64
	mean float64
}

// NewInput 构造输入，groups 为空时使用每个实体整体向量的 tag 集合作为唯一一组。
func NewInput(n int, vectors map[int]preference.Vector, groups ...map[int]preference.TagSet) *Input {
	if len(groups) == 0 {
		all := make(map[int]preference.TagSet, len(vectors))
		for e, v := range vectors {
			all[e] = v.Keys()
		}
		groups = []map[int]preference.TagSet{all}
	}
	return &Input{N: n, Vectors: vectors, Groups: groups}
}

// FromResult 按聚合结果的类别构造输入：
// 单类别时只有一组；多类别时依次为 positive、negative，includeNeutral 时再追加中间类别。
func FromResult(res *preference.Result, includeNeutral bool) *Input {
	vectors := res.Vectors()
	if res.NumClasses <= 1 {
		return NewInput(res.NumEntities, vectors, res.AllTags())
	}
	groups := []map[int]preference.TagSet{res.ClassTags(res.Positive())}
	neg, _ := res.Negative()
	groups = append(groups, res.ClassTags(neg))
	if includeNeutral {
		for c := neg + 1; c < res.Positive(); c++ {
			groups = append(groups, res.ClassTags(c))
		}
	}
	return NewInput(res.NumEntities, vectors, groups...)
}

// FromClasses 只用指定类别构造输入，用于正类图 / 负类图。
func FromClasses(res *preference.Result, classes ...preference.Class) *Input {
	groups := make([]map[int]preference.TagSet, 0, len(classes))
	for _, c := range classes {
		groups = append(groups, res.ClassTags(c))
	}
	return NewInput(res.NumEntities, res.Vectors(), groups...)
}

// entities 返回有向量的实体下标（升序）
func (in *Input) entities() []int {
	out := make([]int, 0, len(in.Vectors))
	for e, v := range in.Vectors {
		if len(v) > 0 && e >= 0 && e < in.N {
			out = append(out, e)
		}
	}
	sort.Ints(out)
	return out
}

func (in *Input) prepare() {
	in.once.Do(func() {
		in.stats = make(map[int]entityStats, len(in.Vectors))
		for e, v := range in.Vectors {
			keys := v.Keys()
			vals := make([]float64, len(keys))
			for k, t := range keys {
				vals[k] = v[t]
			}
			st := entityStats{norm: floats.Norm(vals, 2), sum: floats.Sum(vals)}
			if len(vals) > 0 {
				st.mean = st.sum / float64(len(vals))
			}
			in.stats[e] = st
		}
	})
}

package similarity

import "sort"

// DefaultTopK 是每个实体保留的近邻数
const DefaultTopK = 20

// Neighbor 是近邻表中的一项，Weight 恒大于 0
type Neighbor struct {
	Index  int     `json:"index"`
	Weight float64 `json:"weight"`
}

// Graph 是建好的近邻图，建好后只读。
type Graph struct {
	lists [][]Neighbor
}

// NewGraph 由每个实体的近邻表构造图，表会按权重降序、下标升序排序并截断到 topK。
func NewGraph(lists [][]Neighbor, topK int) *Graph {
	for i := range lists {
		lists[i] = rank(lists[i], topK)
	}
	return &Graph{lists: lists}
}

// Len 返回实体数
func (g *Graph) Len() int {
	if g == nil {
		return 0
	}
	return len(g.lists)
}

// Neighbors 返回实体 i 的近邻表；越界或没有近邻时返回 nil。调用方不得修改返回值。
func (g *Graph) Neighbors(i int) []Neighbor {
	if g == nil || i < 0 || i >= len(g.lists) {
		return nil
	}
	return g.lists[i]
}

// Edges 返回所有近邻表长度之和
func (g *Graph) Edges() int {
	n := 0
	for i := 0; i < g.Len(); i++ {
		n += len(g.lists[i])
	}
	return n
}

func rank(list []Neighbor, topK int) []Neighbor {
	sort.Slice(list, func(a, b int) bool {
		if list[a].Weight != list[b].Weight {
			return list[a].Weight > list[b].Weight
		}
		return list[a].Index < list[b].Index
	})
	if topK > 0 && len(list) > topK {
		list = list[:topK:topK]
	}
	if len(list) == 0 {
		return nil
	}
	return list
}

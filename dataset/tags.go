package dataset

import "github.com/rushteam/hybridrec/core"

// TagSource 保存实体级标签与评分级标签，实现 core.AuxiliarySource。
// 标签为多重集：同一标签重复出现会被保留。
type TagSource struct {
	entity map[core.Side]map[int][]string
	pair   map[cell][]string
}

var _ core.AuxiliarySource = (*TagSource)(nil)

func NewTagSource() *TagSource {
	return &TagSource{
		entity: map[core.Side]map[int][]string{
			core.SideUser: {},
			core.SideItem: {},
		},
		pair: make(map[cell][]string),
	}
}

// AddEntityTag 给用户或物品追加一个标签
func (s *TagSource) AddEntityTag(side core.Side, entity int, tag string) {
	m := s.entity[side]
	if m == nil {
		m = make(map[int][]string)
		s.entity[side] = m
	}
	m[entity] = append(m[entity], tag)
}

// AddPairTag 给一条 (user, item) 评分追加一个标签
func (s *TagSource) AddPairTag(user, item int, tag string) {
	k := cell{user, item}
	s.pair[k] = append(s.pair[k], tag)
}

func (s *TagSource) TagsFor(side core.Side, entity int) []string {
	return s.entity[side][entity]
}

func (s *TagSource) PairTagsFor(user, item int) []string {
	return s.pair[cell{user, item}]
}

// NumPairs 返回带标签的评分数
func (s *TagSource) NumPairs() int { return len(s.pair) }

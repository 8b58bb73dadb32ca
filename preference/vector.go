package preference

import "sort"

// Vector 是 tag -> 偏好分数。所有分数有限且非负，缺失的 tag 视为 0。
type Vector map[string]float64

// Keys 返回排序后的 tag 集合
func (v Vector) Keys() TagSet {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return TagSet(keys)
}

// TagSet 是有序、去重的 tag 集合。
// 使用有序切片而不是 map，保证相似度累加顺序固定，结果逐位可复现。
type TagSet []string

// NewTagSet 从任意 tag 列表构造 TagSet
func NewTagSet(tags ...string) TagSet {
	if len(tags) == 0 {
		return nil
	}
	s := append([]string(nil), tags...)
	sort.Strings(s)
	out := s[:1]
	for _, t := range s[1:] {
		if t != out[len(out)-1] {
			out = append(out, t)
		}
	}
	return TagSet(out)
}

// Contains 二分查找
func (s TagSet) Contains(tag string) bool {
	i := sort.SearchStrings(s, tag)
	return i < len(s) && s[i] == tag
}

// Intersect 返回两个有序集合的交集
func Intersect(a, b TagSet) TagSet {
	var out TagSet
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			out = append(out, a[i])
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return out
}

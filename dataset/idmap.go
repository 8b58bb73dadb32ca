package dataset

// IDMap 是原始字符串 ID 与稠密整数下标之间的双向映射。
// 下标从 0 开始连续分配，一旦分配不再改变。
type IDMap struct {
	index map[string]int
	raws  []string
}

func NewIDMap() *IDMap {
	return &IDMap{index: make(map[string]int)}
}

// Add 返回 raw 对应的下标，不存在时分配新下标。
func (m *IDMap) Add(raw string) int {
	if idx, ok := m.index[raw]; ok {
		return idx
	}
	idx := len(m.raws)
	m.index[raw] = idx
	m.raws = append(m.raws, raw)
	return idx
}

func (m *IDMap) Index(raw string) (int, bool) {
	idx, ok := m.index[raw]
	return idx, ok
}

func (m *IDMap) Raw(idx int) (string, bool) {
	if idx < 0 || idx >= len(m.raws) {
		return "", false
	}
	return m.raws[idx], true
}

func (m *IDMap) Len() int { return len(m.raws) }

// Raws 返回按下标排列的原始 ID（副本）
func (m *IDMap) Raws() []string {
	out := make([]string, len(m.raws))
	copy(out, m.raws)
	return out
}

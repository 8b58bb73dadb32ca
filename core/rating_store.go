package core

// Side 标识实体所在的一侧：用户或物品。
type Side string

const (
	SideUser Side = "user"
	SideItem Side = "item"
)

// Other 返回另一侧
func (s Side) Other() Side {
	if s == SideItem {
		return SideUser
	}
	return SideItem
}

// Valid 判断是否为已知的一侧
func (s Side) Valid() bool {
	return s == SideUser || s == SideItem
}

// RatingStore 是稀疏评分矩阵的领域接口（行 = 用户，列 = 物品）。
//
// 未观测的位置没有条目，Get 返回 0；已观测的评分一定为正数。
// 实现：dataset.RatingMatrix。
type RatingStore interface {
	NumRows() int
	NumColumns() int

	// ForEachObserved 按行、行内按列升序遍历所有已观测条目
	ForEachObserved(fn func(row, col int, value float64))

	// RowIndices 返回某行已观测的列下标（升序）
	RowIndices(row int) []int

	// ColumnIndices 返回某列已观测的行下标（升序）
	ColumnIndices(col int) []int

	// Get 点查，未观测返回 0
	Get(row, col int) float64
}

// AuxiliarySource 是辅助信号（标签/特征）的领域接口。
//
// TagsFor 返回实体级的标签多重集；PairTagsFor 返回附着在某条评分上的标签多重集。
// 两者都可能返回空，表示该实体没有辅助数据。
type AuxiliarySource interface {
	TagsFor(side Side, entity int) []string
	PairTagsFor(user, item int) []string
}

// Transpose 返回行列互换的只读视图，使物品侧的计算可以复用用户侧代码。
func Transpose(rs RatingStore) RatingStore {
	if t, ok := rs.(transposed); ok {
		return t.RatingStore
	}
	return transposed{rs}
}

type transposed struct {
	RatingStore
}

func (t transposed) NumRows() int    { return t.RatingStore.NumColumns() }
func (t transposed) NumColumns() int { return t.RatingStore.NumRows() }

func (t transposed) ForEachObserved(fn func(row, col int, value float64)) {
	n := t.RatingStore.NumColumns()
	for col := 0; col < n; col++ {
		for _, row := range t.RatingStore.ColumnIndices(col) {
			fn(col, row, t.RatingStore.Get(row, col))
		}
	}
}

func (t transposed) RowIndices(row int) []int    { return t.RatingStore.ColumnIndices(row) }
func (t transposed) ColumnIndices(col int) []int { return t.RatingStore.RowIndices(col) }
func (t transposed) Get(row, col int) float64    { return t.RatingStore.Get(col, row) }

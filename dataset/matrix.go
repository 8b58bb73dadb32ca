package dataset

import (
	"math"
	"sort"

	"github.com/rushteam/hybridrec/core"
)

// RatingBuilder 收集评分条目，Build 后冻结为 RatingMatrix。
// 同一 (row, col) 多次写入时以最后一次为准。
type RatingBuilder struct {
	entries map[cell]float64
	rows    int
	cols    int
}

type cell struct {
	row, col int
}

func NewRatingBuilder() *RatingBuilder {
	return &RatingBuilder{entries: make(map[cell]float64)}
}

// Set 写入一条评分；value 必须为正数（未观测不等于 0 分）。
func (b *RatingBuilder) Set(row, col int, value float64) error {
	if row < 0 || col < 0 {
		return core.NewDomainError(core.ModuleDataset, core.ErrorCodeInvalidInput, "dataset: negative index")
	}
	if !(value > 0) || math.IsInf(value, 0) {
		return core.NewDomainError(core.ModuleDataset, core.ErrorCodeInvalidInput, "dataset: rating must be a positive finite number")
	}
	b.entries[cell{row, col}] = value
	if row >= b.rows {
		b.rows = row + 1
	}
	if col >= b.cols {
		b.cols = col + 1
	}
	return nil
}

// Len 返回已收集的条目数
func (b *RatingBuilder) Len() int { return len(b.entries) }

// Build 冻结为 CSR + CSC 双索引矩阵。numRows/numCols 小于实际观测范围时自动扩展，
// 用于让 ID 映射中没有评分的实体也占据一行。
func (b *RatingBuilder) Build(numRows, numCols int) *RatingMatrix {
	m := &RatingMatrix{
		rows:  max(numRows, b.rows),
		cols:  max(numCols, b.cols),
		index: make(map[cell]float64, len(b.entries)),
	}
	cells := make([]cell, 0, len(b.entries))
	for c, v := range b.entries {
		cells = append(cells, c)
		m.index[c] = v
	}

	sort.Slice(cells, func(i, j int) bool {
		if cells[i].row != cells[j].row {
			return cells[i].row < cells[j].row
		}
		return cells[i].col < cells[j].col
	})
	m.rowPtr = make([]int, m.rows+1)
	m.colIdx = make([]int, len(cells))
	for k, c := range cells {
		m.rowPtr[c.row+1]++
		m.colIdx[k] = c.col
	}
	for r := 0; r < m.rows; r++ {
		m.rowPtr[r+1] += m.rowPtr[r]
	}

	sort.Slice(cells, func(i, j int) bool {
		if cells[i].col != cells[j].col {
			return cells[i].col < cells[j].col
		}
		return cells[i].row < cells[j].row
	})
	m.colPtr = make([]int, m.cols+1)
	m.rowIdx = make([]int, len(cells))
	for k, c := range cells {
		m.colPtr[c.col+1]++
		m.rowIdx[k] = c.row
	}
	for c := 0; c < m.cols; c++ {
		m.colPtr[c+1] += m.colPtr[c]
	}
	return m
}

// RatingMatrix 是只读稀疏评分矩阵，实现 core.RatingStore。
type RatingMatrix struct {
	rows, cols int
	rowPtr     []int
	colIdx     []int
	colPtr     []int
	rowIdx     []int
	index      map[cell]float64
}

var _ core.RatingStore = (*RatingMatrix)(nil)

func (m *RatingMatrix) NumRows() int    { return m.rows }
func (m *RatingMatrix) NumColumns() int { return m.cols }

// Size 返回已观测条目数
func (m *RatingMatrix) Size() int { return len(m.colIdx) }

func (m *RatingMatrix) ForEachObserved(fn func(row, col int, value float64)) {
	for r := 0; r < m.rows; r++ {
		for _, c := range m.colIdx[m.rowPtr[r]:m.rowPtr[r+1]] {
			fn(r, c, m.index[cell{r, c}])
		}
	}
}

func (m *RatingMatrix) RowIndices(row int) []int {
	if row < 0 || row >= m.rows {
		return nil
	}
	return m.colIdx[m.rowPtr[row]:m.rowPtr[row+1]]
}

func (m *RatingMatrix) ColumnIndices(col int) []int {
	if col < 0 || col >= m.cols {
		return nil
	}
	return m.rowIdx[m.colPtr[col]:m.colPtr[col+1]]
}

func (m *RatingMatrix) Get(row, col int) float64 {
	return m.index[cell{row, col}]
}

// Range 返回已观测评分的最小值与最大值；空矩阵返回 (0, 0)。
func (m *RatingMatrix) Range() (lo, hi float64) {
	first := true
	for _, v := range m.index {
		if first {
			lo, hi, first = v, v, false
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

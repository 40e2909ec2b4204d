// Package kernelcache 维护训练集的 N×N Gram 矩阵：并行构建、预计算矩阵校验、
// 行列删除、文本编解码以及按 (N, 标签) 存取的持久化缓存。
package kernelcache

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/gykovacs/vessel-sub003/xerrors"
)

// symmetryTol 是预计算矩阵对称性检查的相对容差。
const symmetryTol = 1e-9

// Matrix 是按行主序存储的完整对称矩阵，At 为 O(1)。
type Matrix struct {
	n    int
	data []float64
}

func newMatrix(n int) *Matrix {
	return &Matrix{n: n, data: make([]float64, n*n)}
}

// N 矩阵阶数。
func (m *Matrix) N() int { return m.n }

// At 返回 K(i, j)。
func (m *Matrix) At(i, j int) float64 { return m.data[i*m.n+j] }

// Row 返回第 i 行的视图，调用方不得修改。
func (m *Matrix) Row(i int) []float64 { return m.data[i*m.n : (i+1)*m.n] }

// Sign 是 2N 下标空间中的符号：前 N 个为 +1，后 N 个为 -1。
func (m *Matrix) Sign(k int) float64 {
	if k < m.n {
		return 1
	}
	return -1
}

// Q 返回扩展矩阵元素 Q(i,j) = s(i)·s(j)·K(i mod N, j mod N)，i, j ∈ [0, 2N)。
func (m *Matrix) Q(i, j int) float64 {
	v := m.data[(i%m.n)*m.n+j%m.n]
	if (i < m.n) != (j < m.n) {
		return -v
	}
	return v
}

// Sym 返回共享底层数据的 gonum 对称矩阵视图。
func (m *Matrix) Sym() *mat.SymDense {
	return mat.NewSymDense(m.n, m.data)
}

// FromPrecomputed 校验并采用调用方提供的 Gram 矩阵（复制数据）。
func FromPrecomputed(rows [][]float64) (*Matrix, error) {
	n := len(rows)
	if n == 0 {
		return nil, xerrors.ErrEmptyData.With("precomputed kernel matrix is empty")
	}
	m := newMatrix(n)
	for i, r := range rows {
		if len(r) != n {
			return nil, xerrors.ErrNotSquare.With("row %d has %d columns, expected %d", i, len(r), n)
		}
		copy(m.data[i*n:], r)
	}
	if err := m.check(); err != nil {
		return nil, err
	}
	return m, nil
}

// check 要求所有元素有限且矩阵在 symmetryTol 相对误差内对称。
func (m *Matrix) check() error {
	for i := 0; i < m.n; i++ {
		for j := i; j < m.n; j++ {
			a, b := m.At(i, j), m.At(j, i)
			if !finite(a) {
				return xerrors.ErrInvalidKernel.With("K(%d,%d) = %v", i, j, a)
			}
			if !finite(b) {
				return xerrors.ErrInvalidKernel.With("K(%d,%d) = %v", j, i, b)
			}
			scale := math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
			if math.Abs(a-b) > symmetryTol*scale {
				return xerrors.ErrNotSymmetric.With("K(%d,%d)=%v but K(%d,%d)=%v", i, j, a, j, i, b)
			}
		}
	}
	return nil
}

// Remove 返回删除给定行列后的新矩阵；下标越界时返回错误。
func (m *Matrix) Remove(indices []int) (*Matrix, error) {
	if len(indices) == 0 {
		return m, nil
	}
	drop := make([]bool, m.n)
	for _, i := range indices {
		if i < 0 || i >= m.n {
			return nil, xerrors.ErrInvalidMask.With("index %d outside kernel matrix of order %d", i, m.n)
		}
		drop[i] = true
	}
	keep := make([]int, 0, m.n)
	for i, d := range drop {
		if !d {
			keep = append(keep, i)
		}
	}
	out := newMatrix(len(keep))
	for a, i := range keep {
		row := m.Row(i)
		dst := out.data[a*out.n : (a+1)*out.n]
		for b, j := range keep {
			dst[b] = row[j]
		}
	}
	return out, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

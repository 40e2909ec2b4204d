package svr

import (
	"math"

	"github.com/sourcegraph/conc/iter"
)

// tauSelect 在 a_st ≤ 0 时替代二阶项分母。
const tauSelect = 1e-3

// candidate 是分段归约的局部最优。idx < 0 表示该段没有合格下标。
type candidate struct {
	idx int
	val float64
}

// better 按 less 指定的方向合并两个候选，数值相同时保留较小下标。
func better(a, b candidate, less bool) candidate {
	switch {
	case a.idx < 0:
		return b
	case b.idx < 0:
		return a
	case less && b.val < a.val, !less && b.val > a.val:
		return b
	case b.val == a.val && b.idx < a.idx:
		return b
	default:
		return a
	}
}

// selector 选择最大违反对并做二阶修正。
type selector struct {
	pr      *problem
	workers int
}

func newSelector(pr *problem, workers int) *selector {
	if workers < 1 {
		workers = 1
	}
	return &selector{pr: pr, workers: workers}
}

// reduce 对 [0, 2N) 分段扫描后合并；less 为 true 时取最小值。
func (s *selector) reduce(scan func(span) candidate, less bool) candidate {
	total := 2 * s.pr.n
	if total < parallelThreshold || s.workers == 1 {
		return scan(span{0, total})
	}
	spans := partition(total, s.workers)
	parts := iter.Mapper[span, candidate]{MaxGoroutines: s.workers}.Map(spans, func(sp *span) candidate {
		return scan(*sp)
	})
	best := candidate{idx: -1}
	for _, c := range parts {
		best = better(best, c, less)
	}
	return best
}

// Select 返回工作集 (s, t)：t 使 -y·g 在 upFree 集合上最大，
// s 在互补集合中使 -b²/a 最小。ok 为 false 表示不存在违反对。
func (s *selector) Select() (int, int, bool) {
	pr := s.pr

	top := s.reduce(func(sp span) candidate {
		best := candidate{idx: -1, val: math.Inf(-1)}
		for k := sp.lo; k < sp.hi; k++ {
			if !pr.upFree(k) {
				continue
			}
			if v := -pr.y(k) * pr.g[k]; best.idx < 0 || v > best.val {
				best = candidate{idx: k, val: v}
			}
		}
		return best
	}, false)
	if top.idx < 0 {
		return 0, 0, false
	}

	t, ygMax := top.idx, top.val
	qtt := pr.k.Q(t, t)
	low := s.reduce(func(sp span) candidate {
		best := candidate{idx: -1, val: math.Inf(1)}
		for k := sp.lo; k < sp.hi; k++ {
			if !pr.lowFree(k) {
				continue
			}
			yg := -pr.y(k) * pr.g[k]
			if yg >= ygMax {
				continue
			}
			ast := pr.k.Q(k, k) + qtt - 2*pr.k.Q(k, t)
			if ast <= 0 {
				ast = tauSelect
			}
			bst := ygMax - yg
			if v := -bst * bst / ast; best.idx < 0 || v < best.val {
				best = candidate{idx: k, val: v}
			}
		}
		return best
	}, true)
	if low.idx < 0 {
		return 0, 0, false
	}
	return low.idx, t, true
}

package svr

import (
	"github.com/sourcegraph/conc"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// parallelThreshold 以下的问题规模直接顺序扫描。
var parallelThreshold = 2048

// span 是下标区间 [lo, hi)。
type span struct{ lo, hi int }

// partition 把 [0, n) 切成至多 parts 段连续且互不相交的区间。
func partition(n, parts int) []span {
	if parts < 1 {
		parts = 1
	}
	if parts > n {
		parts = n
	}
	out := make([]span, 0, parts)
	size := (n + parts - 1) / parts
	for lo := 0; lo < n; lo += size {
		hi := lo + size
		if hi > n {
			hi = n
		}
		out = append(out, span{lo, hi})
	}
	return out
}

// gradientTracker 维护 g(k) = Σ_j α(j)·Q(k,j) + p(k)。
type gradientTracker struct {
	pr      *problem
	workers int
}

func newGradientTracker(pr *problem, workers int) *gradientTracker {
	if workers < 1 {
		workers = 2
	}
	return &gradientTracker{pr: pr, workers: workers}
}

// Init α 全零时 g = p。
func (gt *gradientTracker) Init() {
	copy(gt.pr.g, gt.pr.p)
}

// Recompute 按定义从头计算梯度，O(N²)。
func (gt *gradientTracker) Recompute() {
	pr := gt.pr
	beta := mat.NewVecDense(pr.n, pr.beta())
	var kb mat.VecDense
	kb.MulVec(pr.k.Sym(), beta)
	for i := 0; i < pr.n; i++ {
		v := kb.AtVec(i)
		pr.g[i] = pr.p[i] + v
		pr.g[i+pr.n] = pr.p[i+pr.n] - v
	}
}

// Update 在 α(i)、α(j) 分别变化 dai、daj 后增量更新全部 2N 个梯度分量。
// 每个 worker 独占样本区间 [lo, hi) 及其 "-ε" 镜像，无需加锁。
func (gt *gradientTracker) Update(i, j int, dai, daj float64) {
	pr := gt.pr
	ci := pr.y(i) * dai
	cj := pr.y(j) * daj
	ri := pr.k.Row(i % pr.n)
	rj := pr.k.Row(j % pr.n)

	sweep := func(s span) {
		upper := pr.g[s.lo:s.hi]
		lower := pr.g[pr.n+s.lo : pr.n+s.hi]
		if ci != 0 {
			floats.AddScaled(upper, ci, ri[s.lo:s.hi])
			floats.AddScaled(lower, -ci, ri[s.lo:s.hi])
		}
		if cj != 0 {
			floats.AddScaled(upper, cj, rj[s.lo:s.hi])
			floats.AddScaled(lower, -cj, rj[s.lo:s.hi])
		}
	}

	if pr.n < parallelThreshold || gt.workers == 1 {
		sweep(span{0, pr.n})
		return
	}
	var wg conc.WaitGroup
	for _, s := range partition(pr.n, gt.workers) {
		wg.Go(func() { sweep(s) })
	}
	wg.Wait()
}

package svr

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/gykovacs/vessel-sub003/kernel"
	"github.com/gykovacs/vessel-sub003/kernelcache"
)

func sineData(n int) ([][]float64, []float64) {
	x := make([][]float64, n)
	t := make([]float64, n)
	for i := range x {
		v := float64(i) * 0.2
		x[i] = []float64{v}
		t[i] = math.Sin(v)
	}
	return x, t
}

func randomProblem(t *testing.T, n int, c float64) *problem {
	t.Helper()
	rng := rand.New(rand.NewPCG(7, 11))
	x := make([][]float64, n)
	y := make([]float64, n)
	for i := range x {
		x[i] = []float64{rng.Float64()*4 - 2, rng.Float64()*4 - 2}
		y[i] = math.Sin(x[i][0]) + 0.5*x[i][1] + 0.1*rng.NormFloat64()
	}
	km, err := kernelcache.Build(t.Context(), x, kernel.Gaussian{Sigma: 0.7}, kernelcache.BuildOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return newProblem(km, y, c, 0.05)
}

func TestQSymmetry(t *testing.T) {
	pr := randomProblem(t, 12, 1)
	for i := 0; i < 2*pr.n; i++ {
		for j := 0; j < 2*pr.n; j++ {
			if pr.k.Q(i, j) != pr.k.Q(j, i) {
				t.Fatalf("Q(%d,%d)=%v, Q(%d,%d)=%v", i, j, pr.k.Q(i, j), j, i, pr.k.Q(j, i))
			}
		}
	}
}

func TestStepKeepsFeasibilityAndGradient(t *testing.T) {
	pr := randomProblem(t, 25, 0.8)
	gt := newGradientTracker(pr, 2)
	gt.Init()
	sel := newSelector(pr, 1)
	check := make([]float64, 2*pr.n)

	for it := 0; it < 300; it++ {
		i, j, ok := sel.Select()
		if !ok {
			break
		}
		sum := pr.alpha[i] + pr.alpha[j]
		diff := pr.alpha[i] - pr.alpha[j]
		step(pr, gt, i, j)

		for k, a := range pr.alpha {
			if a < 0 || a > pr.c {
				t.Fatalf("iteration %d: alpha[%d]=%v outside [0,%v]", it, k, a, pr.c)
			}
		}
		if pr.y(i) == pr.y(j) {
			if got := pr.alpha[i] + pr.alpha[j]; math.Abs(got-sum) > 1e-9 {
				t.Fatalf("iteration %d: pair sum %v, want %v", it, got, sum)
			}
		} else if got := pr.alpha[i] - pr.alpha[j]; math.Abs(got-diff) > 1e-9 {
			t.Fatalf("iteration %d: pair difference %v, want %v", it, got, diff)
		}

		if it%25 == 0 {
			copy(check, pr.g)
			gt.Recompute()
			for k := range check {
				if math.Abs(check[k]-pr.g[k]) > 1e-8 {
					t.Fatalf("iteration %d: incremental g[%d]=%v, recomputed %v", it, k, check[k], pr.g[k])
				}
			}
		}
	}
}

func TestParallelSweepsMatchSequential(t *testing.T) {
	old := parallelThreshold
	parallelThreshold = 4
	defer func() { parallelThreshold = old }()

	seq := randomProblem(t, 31, 1.5)
	par := randomProblem(t, 31, 1.5)
	gs, gp := newGradientTracker(seq, 1), newGradientTracker(par, 3)
	gs.Init()
	gp.Init()
	ss, sp := newSelector(seq, 1), newSelector(par, 4)

	for it := 0; it < 100; it++ {
		i1, j1, ok1 := ss.Select()
		i2, j2, ok2 := sp.Select()
		if i1 != i2 || j1 != j2 || ok1 != ok2 {
			t.Fatalf("iteration %d: sequential (%d,%d,%v) parallel (%d,%d,%v)", it, i1, j1, ok1, i2, j2, ok2)
		}
		if !ok1 {
			break
		}
		step(seq, gs, i1, j1)
		step(par, gp, i2, j2)
		for k := range seq.g {
			if math.Abs(seq.g[k]-par.g[k]) > 1e-12 {
				t.Fatalf("iteration %d: g[%d] %v != %v", it, k, seq.g[k], par.g[k])
			}
		}
	}
}

func TestPartition(t *testing.T) {
	spans := partition(10, 3)
	if len(spans) != 3 || spans[0] != (span{0, 4}) || spans[2] != (span{8, 10}) {
		t.Errorf("partition(10,3) = %v", spans)
	}
	if got := partition(2, 8); len(got) != 2 {
		t.Errorf("partition(2,8) = %v", got)
	}
}

func TestSelectorNoViolatingPair(t *testing.T) {
	km, _ := kernelcache.FromPrecomputed([][]float64{{1, 0.5}, {0.5, 1}})
	// 目标值都落在 ε 管道内，初始 α=0 已是最优。
	pr := newProblem(km, []float64{0.1, 0.12}, 1, 0.5)
	newGradientTracker(pr, 1).Init()
	if _, _, ok := newSelector(pr, 1).Select(); ok {
		t.Error("expected no working set at the optimum")
	}
	if b := bias(pr); math.Abs(b+0.11) > 1e-12 {
		t.Errorf("bias = %v, want -0.11", b)
	}
}

func TestSelectorTieBreakLowestIndex(t *testing.T) {
	a := candidate{idx: 5, val: 1}
	b := candidate{idx: 2, val: 1}
	if got := better(a, b, false); got.idx != 2 {
		t.Errorf("max tie picked %d", got.idx)
	}
	if got := better(b, candidate{idx: -1}, true); got.idx != 2 {
		t.Errorf("empty candidate won: %d", got.idx)
	}
	if got := better(a, candidate{idx: 9, val: 0}, true); got.idx != 9 {
		t.Errorf("min picked %d", got.idx)
	}
}

func TestMonitorGap(t *testing.T) {
	km, _ := kernelcache.FromPrecomputed([][]float64{{1, 0}, {0, 1}})
	pr := newProblem(km, []float64{1, -1}, 1, 0.1)
	newGradientTracker(pr, 1).Init()
	mo := &monitor{pr: pr, tol: 1e-3, maxIteration: 10}
	// α=0: gap = t_max - t_min - 2ε
	if st := mo.Check(1); st != Running {
		t.Fatalf("status = %v", st)
	}
	if math.Abs(mo.Gap()-1.8) > 1e-12 {
		t.Errorf("gap = %v, want 1.8", mo.Gap())
	}
	if st := mo.Check(11); st != MaxIterations {
		t.Errorf("status = %v, want max_iterations", st)
	}

	pr.alpha[0] = 0.5
	pr.alpha[3] = 0.5
	pr.alpha[1] = 0.5
	pr.alpha[2] = 0.5
	if got := mo.gapNow(); !math.IsInf(got, 1) {
		t.Errorf("gap with empty bound sets = %v, want +Inf", got)
	}
}

func TestExtractIsIdempotent(t *testing.T) {
	pr := randomProblem(t, 20, 1)
	gt := newGradientTracker(pr, 2)
	gt.Init()
	sel := newSelector(pr, 2)
	for it := 0; it < 50; it++ {
		i, j, ok := sel.Select()
		if !ok {
			break
		}
		step(pr, gt, i, j)
	}
	x := make([][]float64, pr.n)
	for i := range x {
		x[i] = []float64{float64(i)}
	}
	sv1, c1, b1 := extract(pr, x)
	sv2, c2, b2 := extract(pr, x)
	if len(sv1) == 0 {
		t.Fatal("no support vectors extracted")
	}
	if len(sv1) != len(sv2) || b1 != b2 {
		t.Fatalf("extraction changed: %d/%d vectors, bias %v/%v", len(sv1), len(sv2), b1, b2)
	}
	for i := range sv1 {
		if sv1[i][0] != sv2[i][0] || c1[i] != c2[i] {
			t.Errorf("vector %d differs", i)
		}
	}
}

func TestObjectiveMatchesDefinition(t *testing.T) {
	pr := randomProblem(t, 8, 1)
	gt := newGradientTracker(pr, 1)
	gt.Init()
	sel := newSelector(pr, 1)
	for it := 0; it < 10; it++ {
		i, j, ok := sel.Select()
		if !ok {
			break
		}
		step(pr, gt, i, j)
	}
	var want float64
	for i := range pr.alpha {
		for j := range pr.alpha {
			want += 0.5 * pr.alpha[i] * pr.alpha[j] * pr.k.Q(i, j)
		}
		want += pr.p[i] * pr.alpha[i]
	}
	if got := pr.objective(); math.Abs(got-want) > 1e-9 {
		t.Errorf("objective = %v, want %v", got, want)
	}
}

package kernel

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/gykovacs/vessel-sub003/xerrors"
)

func TestKernelValues(t *testing.T) {
	a := []float64{1, 2}
	b := []float64{4, 6} // ‖a-b‖ = 5, a·b = 16

	cases := []struct {
		name string
		k    Function
		want float64
	}{
		{"linear", Linear{C: 1}, 17},
		{"dot", DotProduct{}, 16},
		{"poly", Polynomial{D: 2, A: 0.5, B: 1}, 81},
		{"gaussian", Gaussian{Sigma: 1}, math.Exp(-2.5)},
		{"exponential", Exponential{Sigma: 1}, math.Exp(-2.5)},
		{"laplacian", Laplacian{Sigma: 5}, math.Exp(-1)},
		{"tanh", HyperbolicTangent{Alpha: 0, C: 0.5}, math.Tanh(0.5)},
		{"rq", RationalQuadratic{C: 25}, 0.5},
		{"mq", Multiquadratic{C: 0}, 5},
		{"imq", InverseMultiquadratic{C: 0}, 0.2},
		{"cauchy", Cauchy{Sigma: 25}, 0.5},
		{"power", Power{D: 2}, -25},
		{"log", Log{D: 1}, -math.Log(6)},
		{"hi", HistogramIntersection{}, 3},
		{"chi2", ChiSquare{}, 2*4/5.0 + 2*12/8.0},
	}
	for _, c := range cases {
		got := c.k.Evaluate(a, b)
		if math.Abs(got-c.want) > 1e-12 {
			t.Errorf("%s: got %v, want %v", c.name, got, c.want)
		}
		if sym := c.k.Evaluate(b, a); math.Abs(sym-got) > 1e-12 {
			t.Errorf("%s: not symmetric: %v vs %v", c.name, got, sym)
		}
	}
}

func TestParseRoundTrip(t *testing.T) {
	kernels := []Function{
		Linear{C: 0.25}, DotProduct{}, Polynomial{D: 3, A: 0.5, B: 1},
		Gaussian{Sigma: 0.1}, Exponential{Sigma: 2}, Laplacian{Sigma: 3},
		HyperbolicTangent{Alpha: 0.1, C: -1}, RationalQuadratic{C: 2},
		Multiquadratic{C: 1}, InverseMultiquadratic{C: 1}, Cauchy{Sigma: 4},
		Power{D: 1.5}, Log{D: 2}, HistogramIntersection{}, ChiSquare{}, NewPET(7),
	}
	x := []float64{0.3, 0.7}
	y := []float64{-0.2, 1.1}
	for _, k := range kernels {
		parsed, err := Parse(k.Descriptor())
		if err != nil {
			t.Fatalf("Parse(%q): %v", k.Descriptor(), err)
		}
		if parsed.Descriptor() != k.Descriptor() {
			t.Errorf("descriptor changed: %q -> %q", k.Descriptor(), parsed.Descriptor())
		}
		if parsed.Evaluate(x, y) != k.Evaluate(x, y) {
			t.Errorf("%s: parsed kernel evaluates differently", k.Descriptor())
		}
	}
}

func TestParseLegacyTrailingFields(t *testing.T) {
	k, err := Parse("GaussianKernel 0.5 0 28")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if g, ok := k.(Gaussian); !ok || g.Sigma != 0.5 {
		t.Errorf("got %#v", k)
	}
}

func TestParseErrors(t *testing.T) {
	for _, d := range []string{"", "FooKernel 1", "GaussianKernel", "GaussianKernel abc", "GaussianKernel -1", "PETKernel 0", "PolynomialKernel 2.5 1 1"} {
		if _, err := Parse(d); !errors.Is(err, xerrors.ErrUnknownKernel) {
			t.Errorf("Parse(%q): expected ErrUnknownKernel, got %v", d, err)
		}
	}
}

func TestTag(t *testing.T) {
	if Tag(Gaussian{Sigma: 1}) != NoResolution {
		t.Errorf("non-PET kernel should use tag %d", NoResolution)
	}
	if Tag(NewPET(12)) != 12 {
		t.Errorf("PET tag should equal its resolution")
	}
}

func TestPETBatchMatchesPairwise(t *testing.T) {
	k := NewPET(10)
	k.Workers = 3
	samples := [][]float64{{0.1, 0.3}, {-0.5, 1.2}, {0.9, 2.5}, {0, -0.7}}

	be, ok := Accelerated(k)
	if !ok {
		t.Fatal("PET should support batch evaluation")
	}
	rows := []int{0, 2, 3}
	dst := make([][]float64, len(rows))
	for i := range dst {
		dst[i] = make([]float64, len(samples))
	}
	if err := be.EvaluateRows(context.Background(), samples, rows, dst); err != nil {
		t.Fatalf("EvaluateRows: %v", err)
	}
	for r, i := range rows {
		for j := range samples {
			if want := k.Evaluate(samples[i], samples[j]); dst[r][j] != want {
				t.Errorf("row %d col %d: batch %v pairwise %v", i, j, dst[r][j], want)
			}
		}
	}
}

func TestPETSymmetricAndPositiveOnDiagonal(t *testing.T) {
	k := NewPET(20)
	a := []float64{0.4, 0.9}
	b := []float64{-0.3, 2.0}
	if d := k.Evaluate(a, b) - k.Evaluate(b, a); math.Abs(d) > 1e-9 {
		t.Errorf("PET not symmetric, diff %v", d)
	}
	if k.Evaluate(a, a) <= 0 {
		t.Errorf("PET self-overlap should be positive")
	}
	if v := k.Evaluate([]float64{1.5, 0}, a); !math.IsNaN(v) {
		t.Errorf("|m| > 1 should produce NaN, got %v", v)
	}
}

func TestAcceleratedRejectsPlainKernels(t *testing.T) {
	if _, ok := Accelerated(Gaussian{Sigma: 1}); ok {
		t.Error("Gaussian has no batch path")
	}
}

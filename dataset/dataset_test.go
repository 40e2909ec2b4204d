package dataset

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/gykovacs/vessel-sub003/xerrors"
)

func sample3() *Dataset {
	ds, _ := New([][]float64{{1, 2}, {3, 4}, {5, 6}}, []float64{0.1, 0.2, 0.3})
	return ds
}

func TestValidate(t *testing.T) {
	if err := sample3().Validate(); err != nil {
		t.Fatalf("valid dataset rejected: %v", err)
	}
	if err := (&Dataset{}).Validate(); !errors.Is(err, xerrors.ErrEmptyData) {
		t.Errorf("empty dataset: got %v", err)
	}
	ragged, _ := New([][]float64{{1, 2}, {3}}, []float64{0, 0})
	if err := ragged.Validate(); !errors.Is(err, xerrors.ErrDimMismatch) {
		t.Errorf("ragged dataset: got %v", err)
	}
	nan, _ := New([][]float64{{1, math.NaN()}}, []float64{0})
	if err := nan.Validate(); !errors.Is(err, xerrors.ErrInvalidSample) {
		t.Errorf("NaN feature: got %v", err)
	}
	if _, err := New([][]float64{{1}}, []float64{1, 2}); !errors.Is(err, xerrors.ErrDimMismatch) {
		t.Errorf("length mismatch: got %v", err)
	}
}

func TestFilter(t *testing.T) {
	ds := sample3()
	sub, idx, err := ds.Filter([]bool{true, false, true})
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if sub.Len() != 2 || idx[0] != 0 || idx[1] != 2 {
		t.Fatalf("unexpected subset %v %v", sub.Samples, idx)
	}
	if sub.Samples[1].Target != 0.3 {
		t.Errorf("wrong sample kept: %v", sub.Samples[1])
	}

	all, idx, err := ds.Filter(nil)
	if err != nil || all.Len() != 3 || len(idx) != 3 {
		t.Errorf("nil mask should keep all: %v %v", all, err)
	}

	if _, _, err := ds.Filter([]bool{true}); !errors.Is(err, xerrors.ErrInvalidMask) {
		t.Errorf("short mask: got %v", err)
	}
}

func TestWithout(t *testing.T) {
	out := sample3().Without([]int{1})
	if out.Len() != 2 || out.Samples[1].Target != 0.3 {
		t.Errorf("Without: %v", out.Samples)
	}
}

func TestAngularDegenerate(t *testing.T) {
	ds, _ := New([][]float64{{0, 0}, {0, 0.7}, {0, math.Pi / 2}, {0, 1.2}}, []float64{0, 0, 0, 0})
	got, err := ds.Degenerate(AngularDegenerate(1, 0.01))
	if err != nil {
		t.Fatalf("Degenerate: %v", err)
	}
	if len(got) != 2 || got[0] != 0 || got[1] != 2 {
		t.Errorf("expected rows [0 2], got %v", got)
	}

	short, _ := New([][]float64{{1}}, []float64{0})
	if _, err := short.Degenerate(AngularDegenerate(1, 0.01)); err == nil {
		t.Error("expected error for missing feature")
	}
}

func TestCompilePredicateMatchesBuiltin(t *testing.T) {
	pred, err := CompilePredicate("abs(sin(x[1])) < 0.01 || abs(cos(x[1])) < 0.01")
	if err != nil {
		t.Fatalf("CompilePredicate: %v", err)
	}
	ds, _ := New([][]float64{{0, 0}, {0, 0.7}, {0, math.Pi / 2}, {0, 1.2}}, []float64{0, 0, 0, 0})
	got, err := ds.Degenerate(pred)
	if err != nil {
		t.Fatalf("Degenerate: %v", err)
	}
	want, _ := ds.Degenerate(AngularDegenerate(1, 0.01))
	if len(got) != len(want) {
		t.Fatalf("expression %v, builtin %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("expression %v, builtin %v", got, want)
		}
	}
}

func TestCompilePredicateTarget(t *testing.T) {
	pred, err := CompilePredicate("y > 1")
	if err != nil {
		t.Fatalf("CompilePredicate: %v", err)
	}
	bad, err := pred(Sample{Features: []float64{0}, Target: 2})
	if err != nil || !bad {
		t.Errorf("y > 1 with y=2: %v %v", bad, err)
	}
}

func TestCompilePredicateErrors(t *testing.T) {
	if _, err := CompilePredicate("x +"); !errors.Is(err, xerrors.ErrInvalidConfig) {
		t.Errorf("syntax error: got %v", err)
	}
	if _, err := CompilePredicate("y + 1"); !errors.Is(err, xerrors.ErrInvalidConfig) {
		t.Errorf("non-bool expression: got %v", err)
	}
}

func TestDegenerateFilterError(t *testing.T) {
	_, err := sample3().Degenerate(AngularDegenerate(5, 0.01))
	if !errors.Is(err, xerrors.ErrInvalidSample) {
		t.Errorf("err = %v, want invalid sample", err)
	}
	if !errors.Is(err, xerrors.ErrDimMismatch) {
		t.Errorf("cause lost: %v", err)
	}

	idx, err := sample3().Degenerate(nil)
	if idx != nil || err != nil {
		t.Errorf("nil predicate = %v, %v", idx, err)
	}
}

func TestReadCSV(t *testing.T) {
	in := "m,mu,target\n0.1, 0.2, 1.5\n0.3,0.4,2.5\n"
	ds, err := ReadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if ds.Len() != 2 || ds.Dim() != 2 {
		t.Fatalf("got %d x %d", ds.Len(), ds.Dim())
	}
	if len(ds.FeatureNames) != 2 || ds.FeatureNames[1] != "mu" {
		t.Errorf("feature names %v", ds.FeatureNames)
	}
	if ds.Samples[1].Target != 2.5 || ds.Samples[0].Features[1] != 0.2 {
		t.Errorf("values %v", ds.Samples)
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, ds); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	again, err := ReadCSV(&buf)
	if err != nil {
		t.Fatalf("re-read: %v", err)
	}
	if again.Len() != 2 || again.Samples[0].Features[0] != 0.1 {
		t.Errorf("round trip %v", again.Samples)
	}
}

func TestReadCSVRejectsBadValue(t *testing.T) {
	if _, err := ReadCSV(strings.NewReader("1,2,3\n4,x,6\n")); !errors.Is(err, xerrors.ErrInvalidSample) {
		t.Errorf("got %v", err)
	}
}

func TestReadMask(t *testing.T) {
	mask, err := ReadMask(strings.NewReader("1 0\n1 true\n"))
	if err != nil {
		t.Fatalf("ReadMask: %v", err)
	}
	if len(mask) != 4 || mask[1] || !mask[3] {
		t.Errorf("mask %v", mask)
	}
	if _, err := ReadMask(strings.NewReader("1 2")); !errors.Is(err, xerrors.ErrInvalidMask) {
		t.Errorf("bad mask: got %v", err)
	}
}

package dataset

import (
	"math"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/gykovacs/vessel-sub003/xerrors"
)

// RowPredicate 判断样本是否退化，退化样本在训练前被移除。
type RowPredicate func(Sample) (bool, error)

// AngularDegenerate 当第 feature 个特征（角度）的正弦或余弦绝对值小于 threshold 时视为退化。
// 维度不足的样本返回错误。
func AngularDegenerate(feature int, threshold float64) RowPredicate {
	return func(s Sample) (bool, error) {
		if feature < 0 || feature >= len(s.Features) {
			return false, xerrors.ErrDimMismatch.With("degenerate filter needs feature %d, sample has %d", feature, len(s.Features))
		}
		v := s.Features[feature]
		return math.Abs(math.Sin(v)) < threshold || math.Abs(math.Cos(v)) < threshold, nil
	}
}

func predicateEnv(s Sample) map[string]any {
	return map[string]any{
		"x":    s.Features,
		"y":    s.Target,
		"sin":  math.Sin,
		"cos":  math.Cos,
		"tan":  math.Tan,
		"sqrt": math.Sqrt,
		"log":  math.Log,
		"exp":  math.Exp,
	}
}

// CompilePredicate 将 expr 布尔表达式编译为 RowPredicate。
// 表达式中 x 为特征向量，y 为目标值，例如 `abs(sin(x[1])) < 0.01 || abs(cos(x[1])) < 0.01`。
func CompilePredicate(expression string) (RowPredicate, error) {
	program, err := expr.Compile(expression, expr.Env(predicateEnv(Sample{})), expr.AsBool())
	if err != nil {
		return nil, xerrors.ErrInvalidConfig.WithCause(err, "compile filter expression %q", expression)
	}
	return runProgram(program), nil
}

func runProgram(program *vm.Program) RowPredicate {
	return func(s Sample) (bool, error) {
		out, err := expr.Run(program, predicateEnv(s))
		if err != nil {
			return false, xerrors.ErrInvalidSample.WithCause(err, "evaluate filter expression")
		}
		return out.(bool), nil
	}
}

// Degenerate 返回满足 pred 的样本下标（升序）。
func (d *Dataset) Degenerate(pred RowPredicate) ([]int, error) {
	if pred == nil {
		return nil, nil
	}
	var out []int
	for i, s := range d.Samples {
		bad, err := pred(s)
		if err != nil {
			return nil, xerrors.ErrInvalidSample.WithCause(err, "degenerate filter failed on sample %d", i)
		}
		if bad {
			out = append(out, i)
		}
	}
	return out, nil
}

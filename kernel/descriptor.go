package kernel

import (
	"strconv"
	"strings"

	"github.com/gykovacs/vessel-sub003/xerrors"
)

func describe(name string, params ...float64) string {
	var sb strings.Builder
	sb.WriteString(name)
	for _, p := range params {
		sb.WriteByte(' ')
		sb.WriteString(strconv.FormatFloat(p, 'g', -1, 64))
	}
	return sb.String()
}

// builder 根据参数构造核函数；need 为必需参数个数，多余的尾部参数（旧格式中的
// plus / unknown 标记）被忽略。
type builder struct {
	need  int
	build func(p []float64) (Function, error)
}

var registry = map[string]builder{
	"LinearKernel":     {1, func(p []float64) (Function, error) { return Linear{C: p[0]}, nil }},
	"DotProductKernel": {0, func([]float64) (Function, error) { return DotProduct{}, nil }},
	"PolynomialKernel": {3, func(p []float64) (Function, error) {
		d, err := integer(p[0])
		if err != nil {
			return nil, err
		}
		return Polynomial{D: d, A: p[1], B: p[2]}, nil
	}},
	"GaussianKernel":    {1, positive(func(v float64) Function { return Gaussian{Sigma: v} })},
	"ExponentialKernel": {1, positive(func(v float64) Function { return Exponential{Sigma: v} })},
	"LaplacianKernel":   {1, positive(func(v float64) Function { return Laplacian{Sigma: v} })},
	"HyperbolicTangentKernel": {2, func(p []float64) (Function, error) {
		return HyperbolicTangent{Alpha: p[0], C: p[1]}, nil
	}},
	"RationalQuadraticKernel":     {1, func(p []float64) (Function, error) { return RationalQuadratic{C: p[0]}, nil }},
	"MultiquadraticKernel":        {1, func(p []float64) (Function, error) { return Multiquadratic{C: p[0]}, nil }},
	"InverseMultiquadraticKernel": {1, func(p []float64) (Function, error) { return InverseMultiquadratic{C: p[0]}, nil }},
	"CauchyKernel":                {1, positive(func(v float64) Function { return Cauchy{Sigma: v} })},
	"PowerKernel":                 {1, func(p []float64) (Function, error) { return Power{D: p[0]}, nil }},
	"LogKernel":                   {1, func(p []float64) (Function, error) { return Log{D: p[0]}, nil }},
	"HistogramIntersectionKernel": {0, func([]float64) (Function, error) { return HistogramIntersection{}, nil }},
	"ChiSquareKernel":             {0, func([]float64) (Function, error) { return ChiSquare{}, nil }},
	"PETKernel": {1, func(p []float64) (Function, error) {
		res, err := integer(p[0])
		if err != nil {
			return nil, err
		}
		if res < 1 {
			return nil, xerrors.ErrUnknownKernel.With("PETKernel resolution must be >= 1, got %d", res)
		}
		return NewPET(res), nil
	}},
}

func integer(v float64) (int, error) {
	if v != float64(int(v)) {
		return 0, xerrors.ErrUnknownKernel.With("expected integer parameter, got %v", v)
	}
	return int(v), nil
}

func positive(mk func(float64) Function) func([]float64) (Function, error) {
	return func(p []float64) (Function, error) {
		if !(p[0] > 0) {
			return nil, xerrors.ErrUnknownKernel.With("kernel width must be positive, got %v", p[0])
		}
		return mk(p[0]), nil
	}
}

// Parse 由文本描述还原核函数，例如 "GaussianKernel 0.5"。
func Parse(descriptor string) (Function, error) {
	fields := strings.Fields(descriptor)
	if len(fields) == 0 {
		return nil, xerrors.ErrUnknownKernel.With("empty kernel descriptor")
	}
	b, ok := registry[fields[0]]
	if !ok {
		return nil, xerrors.ErrUnknownKernel.With("unknown kernel %q", fields[0])
	}
	if len(fields)-1 < b.need {
		return nil, xerrors.ErrUnknownKernel.With("%s expects %d parameters, got %d", fields[0], b.need, len(fields)-1)
	}
	params := make([]float64, b.need)
	for i := range params {
		v, err := strconv.ParseFloat(fields[i+1], 64)
		if err != nil {
			return nil, xerrors.ErrUnknownKernel.WithCause(err, "%s parameter %d", fields[0], i)
		}
		params[i] = v
	}
	return b.build(params)
}

// Names 返回所有可解析的核函数名。
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	return names
}

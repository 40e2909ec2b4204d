package svr

import (
	"slices"

	"github.com/gykovacs/vessel-sub003/kernel"
	"github.com/gykovacs/vessel-sub003/xerrors"
)

// Model 是训练得到的回归模型：f(x) = Σ c_i·K'(sv_i, x) - b，K' 为交叉核。
type Model struct {
	Kernel         kernel.Function
	CrossKernel    kernel.Function // 为空时使用 Kernel
	FeatureNames   []string
	SupportVectors [][]float64
	Coefficients   []float64
	Bias           float64
	Dim            int
}

func (m *Model) cross() kernel.Function {
	if m.CrossKernel != nil {
		return m.CrossKernel
	}
	return m.Kernel
}

func (m *Model) check(x []float64) error {
	if m == nil || m.Kernel == nil {
		return xerrors.ErrNotTrained.With("no support vectors have been extracted")
	}
	if len(x) != m.Dim {
		return xerrors.ErrDimMismatch.With("input has %d features, model expects %d", len(x), m.Dim)
	}
	return nil
}

// Regress 计算 x 处的回归值。模型未训练或维度不符时返回错误。
func (m *Model) Regress(x []float64) (float64, error) {
	if err := m.check(x); err != nil {
		return 0, err
	}
	k := m.cross()
	var sum float64
	for i, sv := range m.SupportVectors {
		sum += m.Coefficients[i] * k.Evaluate(sv, x)
	}
	return sum - m.Bias, nil
}

// Contribution 返回第 i 个支持向量对 x 处回归值的贡献 c_i·K'(sv_i, x)，不含偏置。
func (m *Model) Contribution(x []float64, i int) (float64, error) {
	if err := m.check(x); err != nil {
		return 0, err
	}
	if i < 0 || i >= len(m.SupportVectors) {
		return 0, xerrors.InvalidArg("support vector index out of range").WithContext("index", i)
	}
	return m.Coefficients[i] * m.cross().Evaluate(m.SupportVectors[i], x), nil
}

// WithCrossKernel 返回替换了推理核的模型副本，支持向量与系数共享。
func (m *Model) WithCrossKernel(k kernel.Function) *Model {
	out := *m
	out.CrossKernel = k
	return &out
}

// extract 从当前 α 中提取系数非零的样本及偏置。对未变化的 α 多次调用结果相同。
func extract(pr *problem, samples [][]float64) (svs [][]float64, coef []float64, b float64) {
	for i, c := range pr.beta() {
		if c != 0 {
			svs = append(svs, slices.Clone(samples[i]))
			coef = append(coef, c)
		}
	}
	return svs, coef, bias(pr)
}

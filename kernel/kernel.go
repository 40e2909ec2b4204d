// Package kernel 定义核函数接口、常用核函数实现以及文本描述的解析与生成。
//
// 核函数可以选择性地实现 BatchEvaluator（批量/加速计算）和 Resolutioner（缓存键中的分辨率标签），
// 调用方通过接口断言探测这些能力，而不是检查具体类型。
package kernel

import (
	"context"
	"math"

	"gonum.org/v1/gonum/floats"
)

// NoResolution 是未实现 Resolutioner 的核函数在缓存键中使用的标签。
const NoResolution = -1

// Function 是对称的二元核函数 K(a, b)。
type Function interface {
	Evaluate(a, b []float64) float64
	// Descriptor 返回可由 Parse 还原的文本描述。
	Descriptor() string
}

// BatchEvaluator 是可选能力：一次计算 Gram 矩阵的若干行。
// dst[k] 的长度为 len(samples)，必须与逐对调用 Evaluate 的结果逐位一致。
type BatchEvaluator interface {
	SupportsAcceleratedBatchEvaluation() bool
	EvaluateRows(ctx context.Context, samples [][]float64, rows []int, dst [][]float64) error
}

// Resolutioner 暴露核函数的分辨率参数，用于区分不同精度下的缓存。
type Resolutioner interface {
	Resolution() int
}

// Tag 返回核函数的缓存标签。
func Tag(f Function) int {
	if r, ok := f.(Resolutioner); ok {
		return r.Resolution()
	}
	return NoResolution
}

// Accelerated 判断核函数是否可以走批量计算路径。
func Accelerated(f Function) (BatchEvaluator, bool) {
	b, ok := f.(BatchEvaluator)
	if !ok || !b.SupportsAcceleratedBatchEvaluation() {
		return nil, false
	}
	return b, true
}

func distance(a, b []float64) float64 {
	return floats.Distance(a, b, 2)
}

func sqDistance(a, b []float64) float64 {
	var s float64
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}

// Linear K = a·b + c
type Linear struct {
	C float64
}

func (k Linear) Evaluate(a, b []float64) float64 { return floats.Dot(a, b) + k.C }
func (k Linear) Descriptor() string              { return describe("LinearKernel", k.C) }

// DotProduct K = a·b
type DotProduct struct{}

func (DotProduct) Evaluate(a, b []float64) float64 { return floats.Dot(a, b) }
func (DotProduct) Descriptor() string              { return "DotProductKernel" }

// Polynomial K = (B + A·(a·b))^D
type Polynomial struct {
	D    int
	A, B float64
}

func (k Polynomial) Evaluate(a, b []float64) float64 {
	return math.Pow(k.B+k.A*floats.Dot(a, b), float64(k.D))
}

func (k Polynomial) Descriptor() string {
	return describe("PolynomialKernel", float64(k.D), k.A, k.B)
}

// Gaussian K = exp(-‖a-b‖ / (2σ²))，注意距离未平方。
type Gaussian struct {
	Sigma float64
}

func (k Gaussian) Evaluate(a, b []float64) float64 {
	return math.Exp(-distance(a, b) / (2 * k.Sigma * k.Sigma))
}

func (k Gaussian) Descriptor() string { return describe("GaussianKernel", k.Sigma) }

// Exponential K = exp(-‖a-b‖ / (2σ))
type Exponential struct {
	Sigma float64
}

func (k Exponential) Evaluate(a, b []float64) float64 {
	return math.Exp(-distance(a, b) / (2.0 * k.Sigma))
}

func (k Exponential) Descriptor() string { return describe("ExponentialKernel", k.Sigma) }

// Laplacian K = exp(-‖a-b‖ / σ)
type Laplacian struct {
	Sigma float64
}

func (k Laplacian) Evaluate(a, b []float64) float64 {
	return math.Exp(-distance(a, b) / k.Sigma)
}

func (k Laplacian) Descriptor() string { return describe("LaplacianKernel", k.Sigma) }

// HyperbolicTangent K = tanh(α·(a·b) + c)
type HyperbolicTangent struct {
	Alpha, C float64
}

func (k HyperbolicTangent) Evaluate(a, b []float64) float64 {
	return math.Tanh(k.Alpha*floats.Dot(a, b) + k.C)
}

func (k HyperbolicTangent) Descriptor() string {
	return describe("HyperbolicTangentKernel", k.Alpha, k.C)
}

// RationalQuadratic K = 1 - s/(s+c)，s = ‖a-b‖²
type RationalQuadratic struct {
	C float64
}

func (k RationalQuadratic) Evaluate(a, b []float64) float64 {
	s := sqDistance(a, b)
	return 1.0 - s/(s+k.C)
}

func (k RationalQuadratic) Descriptor() string { return describe("RationalQuadraticKernel", k.C) }

// Multiquadratic K = √(s + c²)
type Multiquadratic struct {
	C float64
}

func (k Multiquadratic) Evaluate(a, b []float64) float64 {
	return math.Sqrt(sqDistance(a, b) + k.C*k.C)
}

func (k Multiquadratic) Descriptor() string { return describe("MultiquadraticKernel", k.C) }

// InverseMultiquadratic K = 1/√(s + c²)
type InverseMultiquadratic struct {
	C float64
}

func (k InverseMultiquadratic) Evaluate(a, b []float64) float64 {
	return 1.0 / math.Sqrt(sqDistance(a, b)+k.C*k.C)
}

func (k InverseMultiquadratic) Descriptor() string {
	return describe("InverseMultiquadraticKernel", k.C)
}

// Cauchy K = 1/(1 + s/σ)
type Cauchy struct {
	Sigma float64
}

func (k Cauchy) Evaluate(a, b []float64) float64 {
	return 1.0 / (1.0 + sqDistance(a, b)/k.Sigma)
}

func (k Cauchy) Descriptor() string { return describe("CauchyKernel", k.Sigma) }

// Power K = -‖a-b‖^d（条件正定）
type Power struct {
	D float64
}

func (k Power) Evaluate(a, b []float64) float64 {
	return -math.Pow(distance(a, b), k.D)
}

func (k Power) Descriptor() string { return describe("PowerKernel", k.D) }

// Log K = -log(‖a-b‖^d + 1)
type Log struct {
	D float64
}

func (k Log) Evaluate(a, b []float64) float64 {
	return -math.Log(math.Pow(distance(a, b), k.D) + 1.0)
}

func (k Log) Descriptor() string { return describe("LogKernel", k.D) }

// HistogramIntersection K = Σ min(a_i, b_i)
type HistogramIntersection struct{}

func (HistogramIntersection) Evaluate(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += math.Min(a[i], b[i])
	}
	return s
}

func (HistogramIntersection) Descriptor() string { return "HistogramIntersectionKernel" }

// ChiSquare K = Σ 2·a_i·b_i/(a_i + b_i)。a_i + b_i = 0 时结果为 NaN，构建核矩阵时会被拒绝。
type ChiSquare struct{}

func (ChiSquare) Evaluate(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += 2 * a[i] * b[i] / (a[i] + b[i])
	}
	return s
}

func (ChiSquare) Descriptor() string { return "ChiSquareKernel" }

package svr

import "math"

// Status 训练循环的状态。
type Status int

const (
	// Running 仍在迭代。
	Running Status = iota
	// Converged 对偶间隙低于 tol，或已不存在违反对。
	Converged
	// MaxIterations 迭代次数超过上限，不视为错误。
	MaxIterations
)

func (s Status) String() string {
	switch s {
	case Running:
		return "running"
	case Converged:
		return "converged"
	case MaxIterations:
		return "max_iterations"
	default:
		return "unknown"
	}
}

// monitor 周期性计算对偶间隙并决定何时停止。
type monitor struct {
	pr           *problem
	tol          float64
	maxIteration int
	gap          float64
}

// gapNow 计算 gap = m - M，其中 M、m 为两个边界集合上 y·g 的最值取负。
// 任一集合为空时返回 +Inf。
func (mo *monitor) gapNow() float64 {
	maxA, minB := mo.pr.boundExtrema()
	if math.IsInf(maxA, -1) || math.IsInf(minB, 1) {
		return math.Inf(1)
	}
	bigM, m := -maxA, -minB
	return m - bigM
}

// Check 在第 iteration 次迭代后评估停止条件。
func (mo *monitor) Check(iteration int) Status {
	mo.gap = mo.gapNow()
	switch {
	case mo.gap < mo.tol:
		return Converged
	case iteration > mo.maxIteration:
		return MaxIterations
	default:
		return Running
	}
}

// Gap 最近一次检查得到的间隙。
func (mo *monitor) Gap() float64 { return mo.gap }

// bias 按自由变量 (0<α<C) 的 y·g 均值计算偏置；
// 没有自由变量时取两个边界集合最值的中点，仍不可得时为 0。
func bias(pr *problem) float64 {
	var sum float64
	var free int
	for k, a := range pr.alpha {
		if a > 0 && a < pr.c {
			sum += pr.y(k) * pr.g[k]
			free++
		}
	}
	if free > 0 {
		return sum / float64(free)
	}

	maxA, minB := pr.boundExtrema()
	if math.IsInf(maxA, -1) || math.IsInf(minB, 1) {
		return 0
	}
	return (maxA + minB) / 2
}

package kernel

import (
	"context"
	"math"
	"runtime"

	"github.com/sourcegraph/conc/pool"
)

// PET 是针对 (m, μ) 两维特征的线积分重叠核：在 (Resolution+1)² 个网格点上
// 对两条投影线段的逐点最小值累加，再按线段长度归一化。
// |m| > 1 时长度为 NaN，构建核矩阵时会被识别为非法核值。
type PET struct {
	Res int
	// Workers 限制批量计算的并发数，<= 0 时使用 GOMAXPROCS。
	Workers int
}

// NewPET 创建分辨率为 res 的 PET 核。
func NewPET(res int) *PET {
	return &PET{Res: res}
}

// petTerms 是单个样本在积分中用到的不变量，批量计算时每个样本只算一次。
type petTerms struct {
	am, cm, sm, a, c float64
}

func newPETTerms(x []float64) petTerms {
	m, mu := x[0], x[1]
	cm, sm := math.Cos(mu), math.Sin(mu)
	return petTerms{
		am: math.Sqrt(1 - m*m),
		cm: cm,
		sm: sm,
		a:  m * cm,
		c:  m * sm,
	}
}

func (k *PET) overlap(p, q petTerms) float64 {
	res := k.Res
	du1 := p.am * 2 / float64(res)
	du2 := q.am * 2 / float64(res)

	var d float64
	u1 := -p.am
	for i := 0; i <= res; i++ {
		u2 := -q.am
		e := p.a + u1*p.sm
		g := p.c - u1*p.cm
		for j := 0; j <= res; j++ {
			f := q.a + u2*q.sm
			h := q.c - u2*q.cm
			d += (2 + math.Min(e, f)) * (2 + math.Min(g, h))
			u2 += du2
		}
		u1 += du1
	}

	d *= 2 * p.am * 2 * q.am
	d /= float64((res + 1) * (res + 1))
	return d
}

// Evaluate 计算两条测量线的重叠度。
func (k *PET) Evaluate(a, b []float64) float64 {
	return k.overlap(newPETTerms(a), newPETTerms(b))
}

func (k *PET) Descriptor() string { return describe("PETKernel", float64(k.Res)) }

// Resolution 实现 Resolutioner。
func (k *PET) Resolution() int { return k.Res }

// SupportsAcceleratedBatchEvaluation 分辨率为正时可批量计算。
func (k *PET) SupportsAcceleratedBatchEvaluation() bool { return k.Res > 0 }

// EvaluateRows 计算 rows 指定的 Gram 矩阵行：先为每个样本预计算三角项，再并行填充各行。
// 与 Evaluate 使用相同的运算顺序，结果逐位一致。
func (k *PET) EvaluateRows(ctx context.Context, samples [][]float64, rows []int, dst [][]float64) error {
	terms := make([]petTerms, len(samples))
	for i, s := range samples {
		terms[i] = newPETTerms(s)
	}

	workers := k.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	p := pool.New().WithContext(ctx).WithMaxGoroutines(workers).WithCancelOnError()
	for r, i := range rows {
		row := dst[r]
		ti := terms[i]
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for j := range terms {
				row[j] = k.overlap(ti, terms[j])
			}
			return nil
		})
	}
	return p.Wait()
}

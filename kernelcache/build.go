package kernelcache

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/gykovacs/vessel-sub003/kernel"
	"github.com/gykovacs/vessel-sub003/xerrors"
)

// BuildOptions 控制 Gram 矩阵构建。
type BuildOptions struct {
	// Workers 并发行数上限，<= 0 时使用 GOMAXPROCS。
	Workers int
	// BatchRows 走批量路径时每次请求的行数，<= 0 时为 64。
	BatchRows int
}

// Build 计算样本的 Gram 矩阵。
// 普通核：每个任务独占若干行，只计算上三角 j >= i，最后统一镜像。
// 支持批量计算的核：按行块委托给 EvaluateRows。
// 任一元素为 NaN/Inf 时返回 ErrInvalidKernel 并指明 (i, j)。
func Build(ctx context.Context, samples [][]float64, k kernel.Function, opts BuildOptions) (*Matrix, error) {
	n := len(samples)
	if n == 0 {
		return nil, xerrors.ErrEmptyData.With("no samples to build kernel matrix")
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	m := newMatrix(n)

	var err error
	if be, ok := kernel.Accelerated(k); ok {
		err = buildBatched(ctx, m, samples, be, opts.BatchRows)
	} else {
		err = buildPairwise(ctx, m, samples, k, workers)
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func buildPairwise(ctx context.Context, m *Matrix, samples [][]float64, k kernel.Function, workers int) error {
	n := m.n
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			row := m.data[i*n : (i+1)*n]
			for j := i; j < n; j++ {
				v := k.Evaluate(samples[i], samples[j])
				if !finite(v) {
					return xerrors.ErrInvalidKernel.With("%s returned %v for pair (%d, %d)", k.Descriptor(), v, i, j)
				}
				row[j] = v
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	mirror(m)
	return nil
}

func buildBatched(ctx context.Context, m *Matrix, samples [][]float64, be kernel.BatchEvaluator, batch int) error {
	n := m.n
	if batch <= 0 {
		batch = 64
	}
	for start := 0; start < n; start += batch {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+batch, n)
		rows := make([]int, 0, end-start)
		dst := make([][]float64, 0, end-start)
		for i := start; i < end; i++ {
			rows = append(rows, i)
			dst = append(dst, m.data[i*n:(i+1)*n])
		}
		if err := be.EvaluateRows(ctx, samples, rows, dst); err != nil {
			return xerrors.Wrap(err, xerrors.ErrInternal, "batch kernel evaluation")
		}
	}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			if v := m.At(i, j); !finite(v) {
				return xerrors.ErrInvalidKernel.With("batch kernel returned %v for pair (%d, %d)", v, i, j)
			}
		}
	}
	mirror(m)
	return nil
}

// mirror 将上三角复制到下三角。
func mirror(m *Matrix) {
	n := m.n
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			m.data[j*n+i] = m.data[i*n+j]
		}
	}
}

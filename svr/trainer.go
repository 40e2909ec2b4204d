package svr

import (
	"context"
	"errors"
	"io"
	"math"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/gykovacs/vessel-sub003/dataset"
	"github.com/gykovacs/vessel-sub003/idgen"
	"github.com/gykovacs/vessel-sub003/kernel"
	"github.com/gykovacs/vessel-sub003/kernelcache"
	"github.com/gykovacs/vessel-sub003/logging"
	"github.com/gykovacs/vessel-sub003/metrics"
	"github.com/gykovacs/vessel-sub003/retry"
	"github.com/gykovacs/vessel-sub003/tracing"
	"github.com/gykovacs/vessel-sub003/xerrors"
)

var validate = validator.New()

// Config 训练参数。C、Epsilon、Tol、MaxIteration 必须由调用方给出。
type Config struct {
	C                float64 `validate:"gt=0"`
	Epsilon          float64 `validate:"gte=0"`
	Tol              float64 `validate:"gt=0"`
	MaxIteration     int     `validate:"gt=0"`
	CheckInterval    int     `validate:"gt=0"` // 每隔多少次迭代检查对偶间隙
	SnapshotInterval int     `validate:"gt=0"` // 每隔多少次迭代计算目标函数并更新最优快照
	GradientWorkers  int     `validate:"gte=0"`
	SelectionWorkers int     `validate:"gte=0"`
	KernelWorkers    int     `validate:"gte=0"`
}

// Option 配置 Trainer。
type Option func(*Trainer)

// WithKernel 设置训练核函数。
func WithKernel(k kernel.Function) Option {
	return func(t *Trainer) { t.kernel = k }
}

// WithCrossKernel 设置推理时使用的交叉核，默认与训练核相同。
func WithCrossKernel(k kernel.Function) Option {
	return func(t *Trainer) { t.cross = k }
}

// WithStore 设置核矩阵缓存后端；namespace 用于隔离不同数据集。
func WithStore(s kernelcache.Store, namespace string) Option {
	return func(t *Trainer) {
		t.loader.Store = s
		t.loader.Namespace = namespace
	}
}

// WithStoreRetry 设置缓存后端暂时不可用时的重试策略。
func WithStoreRetry(c retry.Config) Option {
	return func(t *Trainer) { t.loader.Retry = c }
}

// WithLogger 设置日志记录器。
func WithLogger(l *logging.Logger) Option {
	return func(t *Trainer) { t.logger = l }
}

// WithMetrics 设置训练指标。
func WithMetrics(m *metrics.SVRMetrics) Option {
	return func(t *Trainer) { t.metrics = m }
}

// WithDegenerateFilter 设置退化样本判定，命中的样本在优化前从数据与核矩阵中移除。
func WithDegenerateFilter(p dataset.RowPredicate) Option {
	return func(t *Trainer) { t.filter = p }
}

// WithRunIDs 设置训练任务 ID 生成器。
func WithRunIDs(g idgen.Generator) Option {
	return func(t *Trainer) { t.ids = g }
}

// Result 描述一次训练的结果。
type Result struct {
	RunID            string
	Status           Status
	Iterations       int
	Gap              float64
	Objective        float64   // 最终迭代点的目标函数值
	BestObjective    float64   // 快照中的最小目标函数值
	ObjectiveTrail   []float64 // 每次刷新最优快照时记录的目标函数值
	UsedBestSnapshot bool
	SupportVectors   int
	KernelSource     string
	Removed          []int // 被退化过滤移除的样本在原数据集中的下标
	Duration         time.Duration
}

// Trainer 是 SMO ε-SVR 训练器，训练完成或加载模型后可并发调用 Regress。
type Trainer struct {
	cfg     Config
	kernel  kernel.Function
	cross   kernel.Function
	loader  kernelcache.Loader
	logger  *logging.Logger
	metrics *metrics.SVRMetrics
	filter  dataset.RowPredicate
	ids     idgen.Generator

	mu    sync.RWMutex
	model *Model
}

// NewTrainer 校验配置并创建训练器。
func NewTrainer(cfg Config, opts ...Option) (*Trainer, error) {
	if err := validate.Struct(cfg); err != nil {
		return nil, xerrors.ErrInvalidConfig.WithCause(err, "trainer config")
	}
	t := &Trainer{cfg: cfg}
	for _, opt := range opts {
		opt(t)
	}
	if t.kernel == nil {
		return nil, xerrors.ErrInvalidConfig.With("a training kernel is required")
	}
	if t.logger == nil {
		t.logger = logging.Default()
	}
	t.loader.Logger = t.logger
	t.loader.Metrics = t.metrics
	t.loader.Build = kernelcache.BuildOptions{Workers: cfg.KernelWorkers}
	return t, nil
}

// Train 在 mask 选中的样本上训练模型。mask 为 nil 时使用全部样本。
func (t *Trainer) Train(ctx context.Context, ds *dataset.Dataset, mask []bool) (*Result, error) {
	return t.train(ctx, ds, mask, nil)
}

// TrainWithPrecomputedKernel 使用调用方提供的 Gram 矩阵训练，矩阵阶数必须等于掩码过滤后的样本数。
// 预计算矩阵不会写入核缓存。rows 为 nil 时等价于 Train。
func (t *Trainer) TrainWithPrecomputedKernel(ctx context.Context, ds *dataset.Dataset, mask []bool, rows [][]float64) (*Result, error) {
	if rows == nil {
		return t.train(ctx, ds, mask, nil)
	}
	if len(rows) == 0 {
		return nil, xerrors.ErrEmptyData.With("precomputed kernel matrix is empty")
	}
	return t.train(ctx, ds, mask, rows)
}

func (t *Trainer) runID() string {
	if t.ids == nil {
		return ""
	}
	return idgen.Format(t.ids.Generate())
}

func (t *Trainer) countRun(status string) {
	if t.metrics != nil {
		t.metrics.TrainingRuns.WithLabelValues(status).Inc()
	}
}

func (t *Trainer) train(ctx context.Context, ds *dataset.Dataset, mask []bool, pre [][]float64) (res *Result, err error) {
	start := time.Now()
	runID := t.runID()
	ctx, span := tracing.StartSpan(ctx, "svr.Train")
	defer span.End()
	log := t.logger
	if runID != "" {
		tracing.AddTag(ctx, "svr.run_id", runID)
		log = log.With("run_id", runID)
	}
	defer func() {
		switch {
		case err == nil:
			t.countRun(res.Status.String())
		case errors.Is(err, xerrors.ErrTrainingCanceled):
			t.countRun("canceled")
			tracing.SetError(ctx, err)
		default:
			t.countRun("error")
			tracing.SetError(ctx, err)
		}
	}()

	if ds == nil {
		return nil, xerrors.ErrEmptyData.With("dataset is nil")
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	data, kept, err := ds.Filter(mask)
	if err != nil {
		return nil, err
	}
	if data.Len() == 0 {
		return nil, xerrors.ErrEmptyData.With("mask excludes every sample")
	}
	log.InfoContext(ctx, "filter input data", "samples", ds.Len(), "kept", data.Len(), "dim", data.Dim())

	var km *kernelcache.Matrix
	source := metrics.CachePrecomputed
	if pre != nil {
		if km, err = kernelcache.FromPrecomputed(pre); err != nil {
			return nil, err
		}
		if km.N() != data.Len() {
			return nil, xerrors.ErrDimMismatch.With("precomputed kernel has order %d, dataset has %d samples", km.N(), data.Len())
		}
		if t.metrics != nil {
			t.metrics.KernelCache.WithLabelValues(metrics.CachePrecomputed).Inc()
		}
	} else if km, source, err = t.loader.Get(ctx, data.Features(), t.kernel); err != nil {
		return nil, err
	}

	removed, err := data.Degenerate(t.filter)
	if err != nil {
		return nil, err
	}
	if len(removed) > 0 {
		if km, err = km.Remove(removed); err != nil {
			return nil, err
		}
		data = data.Without(removed)
		log.InfoContext(ctx, "degenerate samples removed", "removed", len(removed), "remaining", data.Len())
		if data.Len() == 0 {
			return nil, xerrors.ErrEmptyData.With("every sample was removed as degenerate")
		}
	}

	opt, err := t.optimize(ctx, km, data, log)
	if err != nil {
		return nil, err
	}

	model := &Model{
		Kernel:         t.kernel,
		CrossKernel:    t.cross,
		FeatureNames:   data.FeatureNames,
		SupportVectors: opt.svs,
		Coefficients:   opt.coef,
		Bias:           opt.bias,
		Dim:            data.Dim(),
	}
	t.mu.Lock()
	t.model = model
	t.mu.Unlock()

	res = &Result{
		RunID:            runID,
		Status:           opt.status,
		Iterations:       opt.iterations,
		Gap:              opt.gap,
		Objective:        opt.objective,
		BestObjective:    opt.best,
		ObjectiveTrail:   opt.trail,
		UsedBestSnapshot: opt.usedBest,
		SupportVectors:   len(opt.svs),
		KernelSource:     source,
		Duration:         time.Since(start),
	}
	for _, r := range removed {
		res.Removed = append(res.Removed, kept[r])
	}
	if t.metrics != nil {
		t.metrics.SupportVectors.Set(float64(res.SupportVectors))
	}
	tracing.AddTag(ctx, "svr.status", res.Status.String())
	tracing.AddTag(ctx, "svr.support_vectors", res.SupportVectors)
	log.InfoContext(ctx, "training finished",
		"status", res.Status.String(),
		"iterations", res.Iterations,
		"support_vectors", res.SupportVectors,
		"bias", model.Bias,
		"duration", res.Duration,
	)
	return res, nil
}

type optimum struct {
	status     Status
	iterations int
	gap        float64
	objective  float64
	best       float64
	trail      []float64
	usedBest   bool
	svs        [][]float64
	coef       []float64
	bias       float64
}

// optimize 运行 SMO 主循环，直到收敛、达到迭代上限或 ctx 被取消。
func (t *Trainer) optimize(ctx context.Context, km *kernelcache.Matrix, data *dataset.Dataset, log *logging.Logger) (*optimum, error) {
	ctx, span := tracing.StartSpan(ctx, "svr.Optimize")
	defer span.End()

	pr := newProblem(km, data.Targets(), t.cfg.C, t.cfg.Epsilon)
	gt := newGradientTracker(pr, t.cfg.GradientWorkers)
	gt.Init()
	sel := newSelector(pr, t.cfg.SelectionWorkers)
	mon := &monitor{pr: pr, tol: t.cfg.Tol, maxIteration: t.cfg.MaxIteration, gap: math.Inf(1)}
	samples := data.Features()

	best := &optimum{best: math.Inf(1)}
	haveBest := false

	if err := ctx.Err(); err != nil {
		return nil, xerrors.ErrTrainingCanceled.WithCause(err, "before optimization")
	}
	log.InfoContext(ctx, "start sequential minimal optimization", "variables", 2*pr.n, "c", pr.c, "epsilon", pr.eps)

	status := Running
	iteration := 0
	for status == Running {
		s, j, ok := sel.Select()
		if !ok {
			mon.gap = mon.gapNow()
			if math.IsNaN(mon.gap) || math.IsInf(mon.gap, 0) {
				return nil, xerrors.ErrInvalidKernel.With("working set selection stopped with gap %v after %d iterations", mon.gap, iteration)
			}
			status = Converged
			break
		}
		step(pr, gt, s, j)

		if iteration%t.cfg.SnapshotInterval == 0 {
			obj := pr.objective()
			if obj < best.best {
				best.best = obj
				best.trail = append(best.trail, obj)
				best.svs, best.coef, best.bias = extract(pr, samples)
				haveBest = true
			}
			if t.metrics != nil {
				t.metrics.Objective.Set(obj)
			}
			log.DebugContext(ctx, "smo progress", "objective", obj, "iteration", iteration, "gap", mon.Gap())
		}

		iteration++

		if iteration%t.cfg.CheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				tracing.AddTag(ctx, "svr.iterations", iteration)
				return nil, xerrors.ErrTrainingCanceled.WithCause(err, "after %d iterations", iteration)
			}
			status = mon.Check(iteration)
			if t.metrics != nil {
				t.metrics.DualityGap.Set(mon.Gap())
			}
		}
	}

	if t.metrics != nil {
		t.metrics.Iterations.Add(float64(iteration))
	}
	tracing.AddTag(ctx, "svr.iterations", iteration)

	out := &optimum{
		status:     status,
		iterations: iteration,
		gap:        mon.Gap(),
		objective:  pr.objective(),
		best:       best.best,
		trail:      best.trail,
	}
	out.svs, out.coef, out.bias = extract(pr, samples)
	if haveBest && best.best < out.objective {
		out.svs, out.coef, out.bias = best.svs, best.coef, best.bias
		out.usedBest = true
	}
	if math.IsInf(out.best, 1) || out.objective < out.best {
		out.best = out.objective
	}

	switch status {
	case Converged:
		log.InfoContext(ctx, "m-M below tolerance", "gap", out.gap, "tol", t.cfg.Tol)
	case MaxIterations:
		log.WarnContext(ctx, "maximum iteration reached", "max_iteration", t.cfg.MaxIteration, "gap", out.gap)
	}
	log.InfoContext(ctx, "sequential minimal optimization finished",
		"objective", out.objective,
		"best_objective", out.best,
		"used_best_snapshot", out.usedBest,
	)
	return out, nil
}

// Model 返回当前模型，未训练时为 nil。
func (t *Trainer) Model() *Model {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.model
}

// Regress 用当前模型预测 x 处的值。训练或加载模型之前调用返回 ErrNotTrained。
func (t *Trainer) Regress(x []float64) (float64, error) {
	v, err := t.Model().Regress(x)
	if t.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		t.metrics.RegressRequests.WithLabelValues(status).Inc()
	}
	return v, err
}

// SaveModel 将当前模型写入 w。
func (t *Trainer) SaveModel(w io.Writer) error {
	return t.Model().Encode(w)
}

// LoadModel 从 r 读取模型并替换当前模型。
// 流不以模型标记开头时返回 (false, nil)，当前模型保持不变。
func (t *Trainer) LoadModel(r io.Reader) (bool, error) {
	m, ok, err := DecodeModel(r)
	if !ok || err != nil {
		return ok, err
	}
	if t.cross != nil {
		m.CrossKernel = t.cross
	}
	t.mu.Lock()
	t.model = m
	t.mu.Unlock()
	t.logger.Info("model loaded", "support_vectors", len(m.SupportVectors), "kernel", m.Kernel.Descriptor())
	return true, nil
}

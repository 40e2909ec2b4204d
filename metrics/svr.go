package metrics

import "github.com/prometheus/client_golang/prometheus"

// 核矩阵来源标签。
const (
	CacheHit         = "hit"
	CacheMiss        = "miss"
	CacheBuild       = "build"
	CachePrecomputed = "precomputed"
)

// SVRMetrics 训练与推理相关指标。
type SVRMetrics struct {
	TrainingRuns    *prometheus.CounterVec // 维度: status (converged / max_iterations / error / canceled)
	Iterations      prometheus.Counter
	DualityGap      prometheus.Gauge
	Objective       prometheus.Gauge
	SupportVectors  prometheus.Gauge
	KernelCache     *prometheus.CounterVec // 维度: result
	KernelBuild     prometheus.Histogram
	RegressRequests *prometheus.CounterVec // 维度: status
}

// NewSVRMetrics 在给定注册表上注册 SVR 指标。
func NewSVRMetrics(m *Metrics) *SVRMetrics {
	return &SVRMetrics{
		TrainingRuns: m.NewCounterVec(prometheus.CounterOpts{
			Name: "svr_training_runs_total",
			Help: "Total number of SVR training runs by terminal status",
		}, []string{"status"}),
		Iterations: m.NewCounter(prometheus.CounterOpts{
			Name: "svr_iterations_total",
			Help: "Total number of SMO iterations performed",
		}),
		DualityGap: m.NewGauge(prometheus.GaugeOpts{
			Name: "svr_duality_gap",
			Help: "Most recent KKT gap observed by the convergence monitor",
		}),
		Objective: m.NewGauge(prometheus.GaugeOpts{
			Name: "svr_objective",
			Help: "Most recent dual objective value",
		}),
		SupportVectors: m.NewGauge(prometheus.GaugeOpts{
			Name: "svr_support_vectors",
			Help: "Support vector count of the latest model",
		}),
		KernelCache: m.NewCounterVec(prometheus.CounterOpts{
			Name: "svr_kernel_cache_total",
			Help: "Kernel matrix acquisitions by source",
		}, []string{"result"}),
		KernelBuild: m.NewHistogram(prometheus.HistogramOpts{
			Name:    "svr_kernel_build_seconds",
			Help:    "Time spent computing the Gram matrix",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		RegressRequests: m.NewCounterVec(prometheus.CounterOpts{
			Name: "svr_regress_requests_total",
			Help: "Regression requests served by status",
		}, []string{"status"}),
	}
}

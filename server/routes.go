package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gykovacs/vessel-sub003/config"
	"github.com/gykovacs/vessel-sub003/health"
	"github.com/gykovacs/vessel-sub003/idgen"
	"github.com/gykovacs/vessel-sub003/logging"
	"github.com/gykovacs/vessel-sub003/metrics"
	"github.com/gykovacs/vessel-sub003/middleware"
	"github.com/gykovacs/vessel-sub003/response"
	"github.com/gykovacs/vessel-sub003/svr"
	"github.com/gykovacs/vessel-sub003/xerrors"
)

// Predictor 是路由依赖的推理能力，*svr.Trainer 满足该接口。
type Predictor interface {
	Regress(x []float64) (float64, error)
	Model() *svr.Model
}

// RegressRequest 单条预测请求。
type RegressRequest struct {
	Features []float64 `json:"features" binding:"required"`
}

// BatchRegressRequest 批量预测请求。
type BatchRegressRequest struct {
	Samples [][]float64 `json:"samples" binding:"required"`
}

// ModelInfo 模型概要。
type ModelInfo struct {
	Kernel         string   `json:"kernel"`
	CrossKernel    string   `json:"cross_kernel,omitempty"`
	SupportVectors int      `json:"support_vectors"`
	Dim            int      `json:"dim"`
	Bias           float64  `json:"bias"`
	FeatureNames   []string `json:"feature_names,omitempty"`
}

// RouterOptions 路由与中间件参数，零值可用。
type RouterOptions struct {
	ServiceName  string
	Logger       *logging.Logger
	Metrics      *metrics.Metrics
	MetricsPath  string
	RateLimit    config.RateLimitConfig
	MaxBodyBytes int64
	RequestIDs   idgen.Generator
	// Checkers 为 /healthz 附加的依赖检查，任一失败返回 503。
	Checkers map[string]health.Checker
}

// NewRouter 组装预测服务的 Gin 引擎。
func NewRouter(p Predictor, opts RouterOptions) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}
	name := opts.ServiceName
	if name == "" {
		name = "svr"
	}
	metricsPath := opts.MetricsPath
	if metricsPath == "" {
		metricsPath = "/metrics"
	}

	engine := NewDefaultGinEngine(
		middleware.Recovery(logger.Logger),
		middleware.Tracing(name, metricsPath, "/healthz"),
		middleware.TraceIDHeader(),
		middleware.RequestID(opts.RequestIDs),
		middleware.Logger(logger.Logger),
		middleware.HTTPMetrics(opts.Metrics, metricsPath, "/healthz"),
		middleware.HTTPErrorHandler(),
	)

	engine.GET("/healthz", func(c *gin.Context) {
		report := health.Run(opts.Checkers)
		body := gin.H{"status": "ok", "model_loaded": p.Model() != nil, "checks": report.Checks}
		if !report.Healthy {
			body["status"] = "degraded"
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
		response.SuccessWithRawData(c, body)
	})
	if opts.Metrics != nil {
		engine.GET(metricsPath, gin.WrapH(opts.Metrics.Handler()))
	}

	h := &handler{p: p}
	v1 := engine.Group("/v1", middleware.RateLimit(opts.RateLimit), middleware.MaxBodyBytes(opts.MaxBodyBytes))
	v1.POST("/regress", h.regress)
	v1.POST("/regress/batch", h.regressBatch)
	v1.GET("/model", h.model)
	return engine
}

type handler struct {
	p Predictor
}

func (h *handler) regress(c *gin.Context) {
	var req RegressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(xerrors.InvalidArg("invalid request body").WithContext("error", err.Error()))
		return
	}
	c.Set(middleware.CtxKeySamples, 1)
	v, err := h.p.Regress(req.Features)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, gin.H{"value": v})
}

func (h *handler) regressBatch(c *gin.Context) {
	var req BatchRegressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(xerrors.InvalidArg("invalid request body").WithContext("error", err.Error()))
		return
	}
	c.Set(middleware.CtxKeySamples, len(req.Samples))
	values := make([]float64, len(req.Samples))
	for i, x := range req.Samples {
		v, err := h.p.Regress(x)
		if err != nil {
			if e, ok := xerrors.FromError(err); ok {
				err = e.WithContext("sample", i)
			}
			_ = c.Error(err)
			return
		}
		values[i] = v
	}
	response.Success(c, gin.H{"values": values})
}

func (h *handler) model(c *gin.Context) {
	m := h.p.Model()
	if m == nil {
		_ = c.Error(xerrors.ErrNotTrained.With("no model loaded"))
		return
	}
	info := ModelInfo{
		Kernel:         m.Kernel.Descriptor(),
		SupportVectors: len(m.SupportVectors),
		Dim:            m.Dim,
		Bias:           m.Bias,
		FeatureNames:   m.FeatureNames,
	}
	if m.CrossKernel != nil {
		info.CrossKernel = m.CrossKernel.Descriptor()
	}
	response.Success(c, info)
}

package metrics

import (
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
)

// RegisterBuildInfo 注册 svr_build_info，附带可读取的模型文件格式，便于核对训练端与服务端版本。
func (m *Metrics) RegisterBuildInfo(serviceName, version, modelFormat string) {
	if m == nil || m.BuildInfo != nil {
		return
	}
	if serviceName == "" {
		serviceName = "unknown"
	}
	if version == "" {
		version = "unknown"
	}

	m.BuildInfo = m.NewGaugeVec(prometheus.GaugeOpts{
		Name: "svr_build_info",
		Help: "Build and model format of the SVR binary",
	}, []string{"service", "version", "go_version", "model_format"})

	m.BuildInfo.WithLabelValues(serviceName, version, runtime.Version(), modelFormat).Set(1)
}

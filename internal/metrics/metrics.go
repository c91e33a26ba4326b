// Package metrics 提供Prometheus监控指标
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/paiban/kebiao/pkg/errors"
	"github.com/paiban/kebiao/pkg/scheduler/solver"
)

const namespace = "kebiao"

// Metrics 排课服务指标集合，每个实例使用独立注册表
type Metrics struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	solvesTotal      *prometheus.CounterVec
	solveDuration    *prometheus.HistogramVec
	solveErrors      *prometheus.CounterVec
	presolveReasons  *prometheus.CounterVec
	penalty          prometheus.Histogram
	modelVariables   prometheus.Gauge
	modelConstraints prometheus.Gauge
	qualityScore     prometheus.Gauge
	conflicts        prometheus.Counter
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Default 获取全局指标集合
func Default() *Metrics {
	once.Do(func() {
		defaultMetrics = New()
	})
	return defaultMetrics
}

// New 创建并注册全部指标
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "http_requests_total", Help: "HTTP请求总数",
		}, []string{"method", "path", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds", Help: "HTTP请求延迟",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120},
		}, []string{"method", "path"}),
		solvesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "solves_total", Help: "求解次数（按状态）",
		}, []string{"status"}),
		solveDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "solve_duration_seconds", Help: "求解耗时",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"status"}),
		solveErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "solve_errors_total", Help: "求解失败次数（按错误码）",
		}, []string{"code"}),
		presolveReasons: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "presolve_infeasible_total", Help: "求解前不可行原因计数",
		}, []string{"kind"}),
		penalty: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "solution_penalty", Help: "解的软约束惩罚",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
		modelVariables: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "model_variables", Help: "最近一次模型的变量数",
		}),
		modelConstraints: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "model_constraints", Help: "最近一次模型的约束数",
		}),
		qualityScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "quality_score", Help: "最近一次课表的综合评分",
		}),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "conflicts_total", Help: "解码后检测到的冲突数",
		}),
	}

	reg.MustRegister(
		m.requestsTotal, m.requestDuration,
		m.solvesTotal, m.solveDuration, m.solveErrors, m.presolveReasons,
		m.penalty, m.modelVariables, m.modelConstraints, m.qualityScore, m.conflicts,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m.handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	return m
}

// Handler 返回 /metrics 处理器
func (m *Metrics) Handler() http.Handler {
	return m.handler
}

// Registry 返回注册表
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRequest 记录请求指标
func (m *Metrics) RecordRequest(method, path string, status int, duration time.Duration) {
	m.requestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordSolve 记录一次完成的求解
func (m *Metrics) RecordSolve(out *solver.Outcome) {
	res := out.Result
	status := string(res.Status)
	m.solvesTotal.WithLabelValues(status).Inc()
	m.solveDuration.WithLabelValues(status).Observe(out.Duration.Seconds())

	if res.Built != nil {
		m.modelVariables.Set(float64(res.Built.Stats.Variables))
		m.modelConstraints.Set(float64(res.Built.Stats.Constraints))
	}
	if res.PreSolve != nil {
		for _, r := range res.PreSolve.Reasons {
			m.presolveReasons.WithLabelValues(r.Kind).Inc()
		}
	}
	if out.Decoded != nil && out.Decoded.Evaluation != nil {
		m.penalty.Observe(float64(out.Decoded.Evaluation.TotalPenalty))
	}
	if out.Metrics != nil {
		m.qualityScore.Set(out.Metrics.OverallScore)
	}
	m.conflicts.Add(float64(len(out.Conflicts)))
}

// RecordSolveError 记录求解失败
func (m *Metrics) RecordSolveError(err error) {
	m.solveErrors.WithLabelValues(string(errors.GetCode(err))).Inc()
}

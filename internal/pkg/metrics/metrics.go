// Package metrics 定义 Prometheus 业务指标。
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// HTTPRequestTotal HTTP 请求总数，按方法与状态码分类。
	HTTPRequestTotal *prometheus.CounterVec

	// AuthFailureTotal 鉴权失败（401）总数。
	AuthFailureTotal prometheus.Counter

	// SignupTotal 成功注册总数。
	SignupTotal prometheus.Counter

	// SigninTotal 成功登录总数。
	SigninTotal prometheus.Counter

	// RateLimitRejectedTotal 被限流拒绝（429）的请求总数。
	RateLimitRejectedTotal prometheus.Counter
)

var initOnce sync.Once

// InitMetrics 注册所有指标，可安全地重复调用。
func InitMetrics() {
	initOnce.Do(func() {
		HTTPRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskhub_http_requests_total",
			Help: "Total HTTP requests by method and status code.",
		}, []string{"method", "status"})

		AuthFailureTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskhub_auth_failures_total",
			Help: "Total requests rejected by the auth middleware.",
		})

		SignupTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskhub_signups_total",
			Help: "Total successful signups.",
		})

		SigninTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskhub_signins_total",
			Help: "Total successful signins.",
		})

		RateLimitRejectedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskhub_ratelimit_rejected_total",
			Help: "Total requests rejected by the rate limiter.",
		})

		prometheus.MustRegister(
			HTTPRequestTotal,
			AuthFailureTotal,
			SignupTotal,
			SigninTotal,
			RateLimitRejectedTotal,
		)
	})
}

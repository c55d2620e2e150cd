package middleware

import (
	"Formpay/pkg/context"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// 路由分组，回调单独统计，便于区分微信侧重试与用户侧请求
const (
	GroupNotify  = "notify"
	GroupPay     = "pay"
	GroupWechat  = "wechat"
	GroupOps     = "ops"
	GroupUnknown = "unknown"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formpay_http_requests_total",
			Help: "HTTP requests by route group, route and status",
		},
		[]string{"group", "method", "path", "status"},
	)

	// 统一下单与同步查询会等待网关，最长 10s
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "formpay_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"group", "path"},
	)

	httpInFlight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "formpay_http_in_flight_requests",
			Help: "Requests currently being served",
		},
		[]string{"group"},
	)

	// HTTP 200 但业务失败的响应，code 见 response 包
	httpBizErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formpay_http_biz_errors_total",
			Help: "Responses carrying a non-zero business code",
		},
		[]string{"path", "code"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal, httpRequestDuration, httpInFlight, httpBizErrors)
}

func routeGroup(path string) string {
	switch {
	case path == "":
		return GroupUnknown
	case strings.HasPrefix(path, "/api/v1/pay/notify"):
		return GroupNotify
	case strings.HasPrefix(path, "/api/v1/pay"):
		return GroupPay
	case strings.HasPrefix(path, "/api/v1/auth"), strings.HasPrefix(path, "/api/v1/wechat"):
		return GroupWechat
	case path == "/metrics", path == "/healthz":
		return GroupOps
	}
	return GroupUnknown
}

func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath() // 路由模板，避免 payment_id 撑爆标签
		group := routeGroup(path)
		if path == "" {
			path = "unknown"
		}

		inFlight := httpInFlight.WithLabelValues(group)
		inFlight.Inc()
		defer inFlight.Dec()

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		httpRequestsTotal.WithLabelValues(group, c.Request.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(group, path).Observe(time.Since(start).Seconds())
		if code := c.GetInt(context.CtxBizCode); code != 0 {
			httpBizErrors.WithLabelValues(path, strconv.Itoa(code)).Inc()
		}
	}
}

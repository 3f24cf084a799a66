package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "warbler",
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	LoginSuccess = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "warbler",
		Name:      "login_success_total",
		Help:      "Total successful login attempts",
	})

	LoginFailure = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "warbler",
		Name:      "login_failure_total",
		Help:      "Total failed login attempts",
	}, []string{"reason"})

	RegisterSuccess = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "warbler",
		Name:      "register_success_total",
		Help:      "Total successful signups",
	})

	MessagesPosted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "warbler",
		Name:      "messages_posted_total",
		Help:      "Total messages successfully posted",
	})

	FollowsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "warbler",
		Name:      "follows_created_total",
		Help:      "Total follow requests that succeeded",
	})
)

// login failure reasons
const (
	ReasonBadCredentials = "bad_credentials"
	ReasonInvalidRequest = "invalid_request"
	ReasonRateLimited    = "rate_limited"
)

func init() {
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(LoginSuccess)
	prometheus.MustRegister(LoginFailure)
	prometheus.MustRegister(RegisterSuccess)
	prometheus.MustRegister(MessagesPosted)
	prometheus.MustRegister(FollowsCreated)
}

// Middleware records request duration labelled by the matched route template,
// so /users/1 and /users/2 share one series.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		RequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

// Handler 暴露 /metrics
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the application's prometheus collectors on a private registry
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	usersRegisteredTotal prometheus.Counter
	loginsTotal          *prometheus.CounterVec
	recipesCreatedTotal  prometheus.Counter
	recipesViewedTotal   prometheus.Counter
	recipesUpdatedTotal  prometheus.Counter
	recipesDeletedTotal  prometheus.Counter
	uploadsTotal         *prometheus.CounterVec
}

// NewMetrics registers all collectors on a new registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		usersRegisteredTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "recipebox_users_registered_total",
			Help: "Total number of registered users",
		}),
		loginsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recipebox_logins_total",
				Help: "Login attempts by result",
			},
			[]string{"result"},
		),
		recipesCreatedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "recipebox_recipes_created_total",
			Help: "Total number of recipes created",
		}),
		recipesViewedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "recipebox_recipes_viewed_total",
			Help: "Total number of recipe detail views",
		}),
		recipesUpdatedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "recipebox_recipes_updated_total",
			Help: "Total number of recipes updated",
		}),
		recipesDeletedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "recipebox_recipes_deleted_total",
			Help: "Total number of recipes deleted",
		}),
		uploadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recipebox_image_uploads_total",
				Help: "Recipe image uploads by result",
			},
			[]string{"result"},
		),
	}
}

// Middleware records request counts and latency by route
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.httpRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the prometheus exposition format
func (m *Metrics) Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) UserRegistered()      { m.usersRegisteredTotal.Inc() }
func (m *Metrics) Login(result string)  { m.loginsTotal.WithLabelValues(result).Inc() }
func (m *Metrics) RecipeCreated()       { m.recipesCreatedTotal.Inc() }
func (m *Metrics) RecipeViewed()        { m.recipesViewedTotal.Inc() }
func (m *Metrics) RecipeUpdated()       { m.recipesUpdatedTotal.Inc() }
func (m *Metrics) RecipeDeleted()       { m.recipesDeletedTotal.Inc() }
func (m *Metrics) Upload(result string) { m.uploadsTotal.WithLabelValues(result).Inc() }

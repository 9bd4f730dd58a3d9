package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/vapter/vaptord/internal/apierr"
	"github.com/vapter/vaptord/internal/metrics"
)

// requestLogger logs one structured line per request, in the teacher's
// logrus.WithFields idiom rather than gin's built-in text logger, and
// records the same request in the Prometheus collectors scraped off
// /metrics.
func requestLogger(log *logrus.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		status := strconv.Itoa(c.Writer.Status())

		log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": duration.String(),
		}).Info("request handled")

		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(duration.Seconds())
	}
}

// errorMapper renders the last error attached to the context as
// {"error": "..."} with the status code apierr.KindOf maps it to (§7).
// Handlers call c.Error(err) and return without writing a response
// themselves; this middleware does the writing after c.Next() completes.
func errorMapper() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		status := http.StatusInternalServerError
		switch apierr.KindOf(err) {
		case apierr.KindValidation:
			status = http.StatusBadRequest
		case apierr.KindNotFound:
			status = http.StatusNotFound
		case apierr.KindConflict:
			status = http.StatusConflict
		case apierr.KindUpstream:
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{"error": err.Error()})
	}
}

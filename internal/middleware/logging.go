package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"shop-assistant/internal/infra/logger"
	"shop-assistant/internal/metrics"
)

const RequestIDHeader = "X-Request-ID"

// LoggingMiddleware assigns a request id, logs every request once it completes and
// records it in the HTTP metrics under its route template.
func LoggingMiddleware(log *logger.Logger, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, requestID)

			wrappedWriter := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			start := time.Now()

			next.ServeHTTP(wrappedWriter, r)

			elapsed := time.Since(start)
			route := routeTemplate(r)
			m.RecordHTTPRequest(r.Method, route, wrappedWriter.statusCode, elapsed)

			fields := logrus.Fields{
				"request_id":  requestID,
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      wrappedWriter.statusCode,
				"duration_ms": elapsed.Milliseconds(),
				"remote_addr": r.RemoteAddr,
			}
			if id := mux.Vars(r)["id"]; id != "" {
				fields["conversation_id"] = id
			}
			msg := fmt.Sprintf("Request: %s %s -> %d", r.Method, r.URL.Path, wrappedWriter.statusCode)
			if wrappedWriter.statusCode >= http.StatusInternalServerError {
				log.Error(msg, fields)
				return
			}
			log.Info(msg, fields)
		})
	}
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

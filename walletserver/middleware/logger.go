// Package middleware holds cross-cutting gorilla/mux middleware for the
// wallet sync API.
package middleware

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger logs method, path, status and latency for every request.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logrus.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.RequestURI,
			"status":   rec.status,
			"duration": time.Since(start),
		}).Info("request handled")
	})
}

// Auth is a pass-through hook for the out-of-scope authentication/
// authorization layer named in the design's non-goals: a real auth check
// can be slotted in here. routes.Register does not mount it.
func Auth(next http.Handler) http.Handler {
	return next
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

package httpapi

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/filestore/internal/common"
	prometheus "github.com/dmitrijs2005/filestore/internal/metrics"
	"github.com/dmitrijs2005/filestore/internal/server/auth"
	"github.com/gorilla/handlers"
)

var (
	requestCount   = prometheus.HTTPNamespace.NewLabeledCounter("requests", "The number of API requests served", "method", "code")
	requestLatency = prometheus.HTTPNamespace.NewLabeledTimer("request", "Number of seconds taken to serve API requests", "method")
)

// requireIdentity authenticates the bearer token and stores the caller's
// identity in the request context.
func (s *Server) requireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "bearer") || token == "" {
			w.Header().Set("WWW-Authenticate", "Bearer")
			s.writeError(w, r, common.ErrorUnauthorized)
			return
		}

		id, err := s.deps.Users.Authenticate(r.Context(), strings.TrimSpace(token))
		if err != nil {
			w.Header().Set("WWW-Authenticate", "Bearer")
			s.writeError(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
	})
}

func (s *Server) logRequest(_ io.Writer, p handlers.LogFormatterParams) {
	requestCount.WithValues(p.Request.Method, strconv.Itoa(p.StatusCode)).Inc(1)
	requestLatency.WithValues(p.Request.Method).UpdateSince(p.TimeStamp)

	s.logger.Info(p.Request.Context(), "request",
		"method", p.Request.Method,
		"uri", p.URL.RequestURI(),
		"status", p.StatusCode,
		"size", p.Size,
		"duration", time.Since(p.TimeStamp),
	)
}

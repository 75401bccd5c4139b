package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/filestore/internal/common"
)

type errorResponse struct {
	Detail string `json:"detail"`
}

// statusFor maps a service error onto an HTTP status and a client-safe
// detail. Unknown errors become 500 without leaking the cause.
func statusFor(err error) (int, string) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, "upload too large"
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, common.ErrInvalidPath),
		errors.Is(err, common.ErrUnsupportedFormat),
		errors.Is(err, common.ErrAlreadyExists):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, common.ErrAccessDenied):
		return http.StatusForbidden, "access denied"
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrRefreshTokenExpired):
		return http.StatusUnauthorized, "could not validate credentials"
	case errors.Is(err, common.ErrCatalogUnavailable):
		return http.StatusServiceUnavailable, "catalog unavailable"
	}
	return http.StatusInternalServerError, "internal error"
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code, detail := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed", "uri", r.URL.RequestURI(), "error", err)
	} else {
		s.logger.Debug(r.Context(), "request rejected", "uri", r.URL.RequestURI(), "status", code, "error", err)
	}
	writeJSON(w, code, errorResponse{Detail: detail})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

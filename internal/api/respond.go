package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/coverage-cli/internal/analysis"
	"github.com/sells-group/coverage-cli/internal/insights"
	"github.com/sells-group/coverage-cli/internal/store"
)

type ctxKey struct{}

// requireUser rejects requests without a user header.
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := strings.TrimSpace(r.Header.Get(UserHeader))
		if user == "" {
			writeError(w, http.StatusUnauthorized, UserHeader+" header is required")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, user)))
	})
}

func userID(r *http.Request) string {
	u, _ := r.Context().Value(ctxKey{}).(string)
	return u
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps service errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case analysis.IsValidation(err):
		return http.StatusBadRequest
	case eris.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case eris.Is(err, analysis.ErrOfficeLimit):
		return http.StatusConflict
	case eris.Is(err, insights.ErrNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with its mapped status. Internal errors are logged and
// reported generically.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		zap.L().Error("api: request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, status, "internal error")
		return
	}
	msg := err.Error()
	switch status {
	case http.StatusNotFound:
		msg = "not found"
	case http.StatusConflict:
		msg = "office limit reached"
	case http.StatusServiceUnavailable:
		msg = "AI insights are not configured"
	}
	writeError(w, status, msg)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return eris.Wrap(err, "invalid request body")
	}
	return nil
}

// radiusParam reads radius_km from the query, falling back to the configured
// default when absent.
func (s *server) radiusParam(r *http.Request) (float64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("radius_km"))
	if raw == "" {
		return s.defaultRadius, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, eris.Errorf("invalid radius_km %q", raw)
	}
	return v, nil
}

// radiusOrDefault applies the default only when radius_km was omitted. An
// explicit zero is passed through so validation rejects it.
func (s *server) radiusOrDefault(v *float64) float64 {
	if v == nil {
		return s.defaultRadius
	}
	return *v
}

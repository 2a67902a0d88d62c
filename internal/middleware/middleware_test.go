package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"apod_etl/internal/logger"
	"apod_etl/internal/middleware"

	"github.com/stretchr/testify/require"
)

func init() {
	logger.Discard()
}

func TestRequestIDMiddleware_Generates(t *testing.T) {
	var seen string
	h := middleware.RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = middleware.RequestID(r.Context())
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Len(t, seen, 12)
	require.Equal(t, seen, w.Header().Get(middleware.RequestIDHeader))
}

func TestRequestIDMiddleware_KeepsIncoming(t *testing.T) {
	h := middleware.LoggingMiddleware(middleware.RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(middleware.RequestIDHeader, "abc")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusTeapot, w.Code)
	require.Equal(t, "abc", w.Header().Get(middleware.RequestIDHeader))
}

package obs_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/paynet-bridge/internal/obs"
)

func TestRequestLoggerOmitsQueryString(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	r := chi.NewRouter()
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Get("/payments/{orderId}/return", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	req := httptest.NewRequest(http.MethodGet, "/payments/ord-7/return?control=deadbeef&status=approved", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusAccepted, rr.Code)
	line := buf.String()
	require.Contains(t, line, `"status":202`)
	require.Contains(t, line, `"path":"/payments/ord-7/return"`)
	require.Contains(t, line, `"route":"/payments/{orderId}/return"`)
	require.Contains(t, line, `"merchant_order_id":"ord-7"`)
	require.NotContains(t, line, "deadbeef")
}

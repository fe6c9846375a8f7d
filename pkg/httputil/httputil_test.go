package httputil_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopstock/stock-backend/pkg/errors"
	"github.com/shopstock/stock-backend/pkg/httputil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) httputil.Response {
	t.Helper()
	var resp httputil.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestError_AppError(t *testing.T) {
	rec := httptest.NewRecorder()
	httputil.Error(rec, fmt.Errorf("reserve: %w", errors.InsufficientStock("A1", 5, 3)))

	assert.Equal(t, http.StatusConflict, rec.Code)
	resp := decode(t, rec)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INSUFFICIENT_STOCK", resp.Error.Code)
	assert.Equal(t, "3", resp.Error.Details["available"])
}

func TestError_HidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	httputil.Error(rec, fmt.Errorf("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decode(t, rec)
	assert.Equal(t, "INTERNAL_ERROR", resp.Error.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestJSONWithMeta(t *testing.T) {
	rec := httptest.NewRecorder()
	httputil.JSONWithMeta(rec, http.StatusOK, []string{"a"}, &httputil.Meta{PerPage: 25, Total: 1})

	resp := decode(t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, 25, resp.Meta.PerPage)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestValidate(t *testing.T) {
	type reserve struct {
		SKU      string `json:"sku" validate:"required"`
		Quantity int    `json:"quantity" validate:"gt=0"`
	}

	err := httputil.Validate(reserve{Quantity: 0})
	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "this field is required", appErr.Details["SKU"])
	assert.Equal(t, "must be greater than 0", appErr.Details["Quantity"])

	assert.NoError(t, httputil.Validate(reserve{SKU: "A1", Quantity: 1}))
}

func TestRequestID(t *testing.T) {
	var seen string
	h := httputil.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = httputil.GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "req-123", seen)
	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/fixedmarket/internal/auth"
	"github.com/alanyoungcy/fixedmarket/internal/clock"
	"github.com/alanyoungcy/fixedmarket/internal/domain"
	"github.com/alanyoungcy/fixedmarket/internal/service"
	"github.com/alanyoungcy/fixedmarket/internal/store/memory"
)

func newTestMux(t *testing.T) *http.ServeMux {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	lifecycle := service.NewItemLifecycle(
		memory.NewKVStore(), clock.NewManual(1000), auth.AllowAll{}, logger,
	)
	h := NewItemHandler(lifecycle, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/items", h.ListItem)
	mux.HandleFunc("POST /api/items/{id}/buy", h.BuyItem)
	mux.HandleFunc("POST /api/items/{id}/unlist", h.UnlistItem)
	mux.HandleFunc("GET /api/items/{id}", h.ViewItem)
	mux.HandleFunc("GET /api/items", h.ListBySeller)
	return mux
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func TestListBuyViewFlow(t *testing.T) {
	mux := newTestMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/api/items", map[string]any{
		"seller":           "0xseller",
		"price":            100,
		"description":      "lamp",
		"duration_seconds": 3600,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[map[string]int64](t, rec)
	assert.Equal(t, int64(1), created["item_id"])

	rec = doJSON(t, mux, http.MethodPost, "/api/items/1/buy", map[string]any{
		"buyer": "0xbuyer",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	bought := decodeBody[map[string]bool](t, rec)
	assert.True(t, bought["success"])

	rec = doJSON(t, mux, http.MethodGet, "/api/items/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	item := decodeBody[domain.Item](t, rec)
	assert.Equal(t, domain.ItemStatusSold, item.Status)
	require.NotNil(t, item.Buyer)
	assert.Equal(t, domain.Identity("0xbuyer"), *item.Buyer)
}

func TestUnlistFlow(t *testing.T) {
	mux := newTestMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/api/items", map[string]any{
		"seller": "0xseller", "price": 10, "duration_seconds": 60,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, mux, http.MethodPost, "/api/items/1/unlist", map[string]any{
		"seller": "0xseller",
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, mux, http.MethodGet, "/api/items/1", nil)
	item := decodeBody[domain.Item](t, rec)
	assert.Equal(t, domain.ItemStatusUnlisted, item.Status)
}

func TestListBySellerEndpoint(t *testing.T) {
	mux := newTestMux(t)

	for _, desc := range []string{"one", "two"} {
		rec := doJSON(t, mux, http.MethodPost, "/api/items", map[string]any{
			"seller": "0xseller", "price": 5, "description": desc, "duration_seconds": 60,
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := doJSON(t, mux, http.MethodGet, "/api/items?seller=0xseller", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[listBySellerResponse](t, rec)
	assert.Equal(t, "0xseller", resp.Seller)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "one", resp.Items[0].Description)

	// Unknown seller yields an empty list, not an error.
	rec = doJSON(t, mux, http.MethodGet, "/api/items?seller=0xnobody", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decodeBody[listBySellerResponse](t, rec)
	assert.Empty(t, resp.Items)

	rec = doJSON(t, mux, http.MethodGet, "/api/items", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRequestValidation(t *testing.T) {
	mux := newTestMux(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"list missing seller", http.MethodPost, "/api/items", map[string]any{"price": 1}, http.StatusBadRequest},
		{"buy missing buyer", http.MethodPost, "/api/items/1/buy", map[string]any{}, http.StatusBadRequest},
		{"unlist missing seller", http.MethodPost, "/api/items/1/unlist", map[string]any{}, http.StatusBadRequest},
		{"view bad id", http.MethodGet, "/api/items/abc", nil, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, mux, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

// stubService returns a fixed error from every operation so the status
// mapping can be exercised directly.
type stubService struct {
	err error
}

func (s stubService) ListItem(context.Context, domain.Identity, int64, string, int64) (int64, error) {
	return 0, s.err
}
func (s stubService) BuyItem(context.Context, int64, domain.Identity) (bool, error) {
	return false, s.err
}
func (s stubService) UnlistItem(context.Context, int64, domain.Identity) (bool, error) {
	return false, s.err
}
func (s stubService) ViewItem(context.Context, int64) (domain.Item, error) {
	return domain.Item{}, s.err
}
func (s stubService) ListBySeller(context.Context, domain.Identity) ([]domain.Item, error) {
	return nil, s.err
}

func TestDomainErrorStatusMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrUnauthorized, http.StatusUnauthorized},
		{domain.ErrInvalidPrice, http.StatusBadRequest},
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrNotOwner, http.StatusForbidden},
		{domain.ErrSelfTrade, http.StatusForbidden},
		{domain.ErrNotAvailable, http.StatusConflict},
		{domain.ErrExpired, http.StatusConflict},
		{assert.AnError, http.StatusInternalServerError},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			h := NewItemHandler(stubService{err: tt.err}, logger)
			mux := http.NewServeMux()
			mux.HandleFunc("POST /api/items/{id}/buy", h.BuyItem)

			rec := doJSON(t, mux, http.MethodPost, "/api/items/1/buy", map[string]any{"buyer": "0xbuyer"})
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())

			body := decodeBody[map[string]string](t, rec)
			assert.NotEmpty(t, body["error"])
		})
	}
}

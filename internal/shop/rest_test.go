package shop

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestClient(handler http.HandlerFunc) (*RESTClient, *httptest.Server) {
	server := httptest.NewServer(handler)
	client := NewRESTClient(RESTClientConfig{
		BaseURL:        server.URL,
		RequestsPerSec: 1000,
		Timeout:        time.Second,
	})
	return client, server
}

func TestGetProducts_DecodesAndNeverReturnsNil(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/t-1/products.json", r.URL.Path)
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Write([]byte(`{"products":[{"id":"p-1","title":"Tote","tags":"bags, canvas","variants":[{"title":"S","sku":"T-S","price":"9.99","inventory_quantity":3}]}]}`))
	})
	defer server.Close()

	products, err := client.GetProducts(context.Background(), "t-1", "tok", ListOptions{})
	require.NoError(t, err)
	require.Len(t, products, 1)
	require.Equal(t, []string{"bags", "canvas"}, products[0].Tags)
	require.Equal(t, 3, products[0].Variants[0].Stock)

	empty, server2 := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"products":[]}`))
	})
	defer server2.Close()
	products, err = empty.GetProducts(context.Background(), "t-1", "tok", ListOptions{})
	require.NoError(t, err)
	require.NotNil(t, products)
	require.Empty(t, products)
}

func TestGet_ModifiedSincePropagated(t *testing.T) {
	since := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "2026-02-01T12:00:00Z", r.URL.Query().Get("updated_at_min"))
		w.Write([]byte(`{"orders":[]}`))
	})
	defer server.Close()

	_, err := client.GetOrders(context.Background(), "t-1", "tok", ListOptions{ModifiedSince: since})
	require.NoError(t, err)
}

func TestGet_ErrorMapping(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrAuthExpired},
		{http.StatusForbidden, ErrAuthExpired},
		{http.StatusTooManyRequests, ErrRateLimited},
	}
	for _, tc := range cases {
		client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		})
		_, err := client.GetCustomers(context.Background(), "t-1", "tok", ListOptions{})
		require.ErrorIs(t, err, tc.want, "status %d", tc.status)
		server.Close()
	}
}

package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silverpoint/price-search/internal/http/ratelimit"
)

func TestClientDoJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Write([]byte(`{"name":"milk"}`))
	}))
	defer srv.Close()

	c := NewClientDefault()
	var out struct {
		Name string `json:"name"`
	}
	err := c.GetJSON(context.Background(), srv.URL, http.Header{"Authorization": {"Bearer abc"}}, &out)
	require.NoError(t, err)
	assert.Equal(t, "milk", out.Name)
}

func TestClientStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("invalid_client"))
	}))
	defer srv.Close()

	c := NewClientDefault()
	_, err := c.Do(context.Background(), Request{Method: http.MethodGet, URL: srv.URL + "/x?key=secret"})
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusUnauthorized, se.Status)
	assert.Equal(t, "invalid_client", se.Body)
	assert.NotContains(t, err.Error(), "secret")
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "payload", string(body), "body is replayed on every attempt")
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := ratelimit.Config{MaxRetries: 3, InitialBackoffMs: 1, MaxBackoffMs: 5}
	c := NewClient(cfg, time.Second)

	resp, err := c.Do(context.Background(), Request{Method: http.MethodPost, URL: srv.URL, Body: []byte("payload")})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, int32(3), calls.Load())
}

func TestClientNoRetryByDefault(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClientDefault().Do(context.Background(), Request{Method: http.MethodGet, URL: srv.URL})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClientTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	c := NewClient(ratelimit.DefaultConfig(), 50*time.Millisecond)
	_, err := c.Do(context.Background(), Request{Method: http.MethodGet, URL: srv.URL})
	require.Error(t, err)
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "https://maps.example.com/place/json", redact("https://maps.example.com/place/json?key=k&location=1,2"))
}

package places

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, status int, body string) *Client {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/maps/api/place/nearbysearch/json", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "34.05,-118.24", q.Get("location"))
		assert.Equal(t, "16093", q.Get("radius"))
		assert.Equal(t, "supermarket", q.Get("type"))
		assert.Equal(t, "grocery", q.Get("keyword"))
		assert.Equal(t, "test-key", q.Get("key"))
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	cfg := DefaultConfig()
	cfg.APIKey = "test-key"
	cfg.BaseURL = srv.URL
	return NewClient(cfg, nil, nil, nil)
}

func TestNearby(t *testing.T) {
	c := newTestClient(t, http.StatusOK, `{"status":"OK","results":[
		{"place_id":"a","name":"Ralphs","geometry":{"location":{"lat":34.06,"lng":-118.25}}},
		{"place_id":"b","geometry":{"location":{"lat":34.07,"lng":-118.26}}},
		{"place_id":"c","name":"No Geometry"},
		{"place_id":"d","name":"Bad","geometry":{"location":{"lat":"x","lng":1}}}
	]}`)

	stores := c.Nearby(context.Background(), 34.05, -118.24)

	require.Len(t, stores, 2)
	assert.Equal(t, "Ralphs", stores[0].Name)
	assert.Equal(t, 34.06, stores[0].Lat)
	assert.Equal(t, UnknownStoreName, stores[1].Name)
}

func TestNearbyFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"zero results", http.StatusOK, `{"status":"ZERO_RESULTS","results":[]}`},
		{"denied", http.StatusOK, `{"status":"REQUEST_DENIED","error_message":"bad key"}`},
		{"server error", http.StatusInternalServerError, `oops`},
		{"malformed", http.StatusOK, `{"status":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.status, tt.body)
			assert.Empty(t, c.Nearby(context.Background(), 34.05, -118.24))
		})
	}
}

func TestNearbyDisabled(t *testing.T) {
	c := NewClient(DefaultConfig(), nil, nil, nil)
	assert.False(t, c.Enabled())
	assert.Empty(t, c.Nearby(context.Background(), 34.05, -118.24))
}

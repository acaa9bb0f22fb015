package kroger

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

// fakeUpstream serves the token, locations and products endpoints.
type fakeUpstream struct {
	t            *testing.T
	tokenStatus  int
	expiresIn    int
	locations    string
	products     map[string]string // locationId -> body
	productsCode int

	tokenCalls    atomic.Int32
	locationCalls atomic.Int32
	productCalls  atomic.Int32
	lastTerm      atomic.Value
}

func newFakeUpstream(t *testing.T) *fakeUpstream {
	return &fakeUpstream{
		t:           t,
		tokenStatus: http.StatusOK,
		expiresIn:   1800,
		locations:   `{"data":[]}`,
		products:    map[string]string{},
	}
}

func (f *fakeUpstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/v1/connect/oauth2/token":
		f.tokenCalls.Add(1)
		assert.Equal(f.t, http.MethodPost, r.Method)
		want := "Basic " + base64.StdEncoding.EncodeToString([]byte("id:secret"))
		assert.Equal(f.t, want, r.Header.Get("Authorization"))
		assert.NoError(f.t, r.ParseForm())
		assert.Equal(f.t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(f.t, "product.compact", r.PostForm.Get("scope"))
		if f.tokenStatus != http.StatusOK {
			w.WriteHeader(f.tokenStatus)
			w.Write([]byte(`{"error":"invalid_client"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":"tok-%d","token_type":"bearer","expires_in":%d}`, f.tokenCalls.Load(), f.expiresIn)

	case r.URL.Path == "/v1/locations":
		f.locationCalls.Add(1)
		assert.True(f.t, strings.HasPrefix(r.Header.Get("Authorization"), "Bearer tok-"))
		w.Write([]byte(f.locations))

	case r.URL.Path == "/v1/products":
		f.productCalls.Add(1)
		f.lastTerm.Store(r.URL.Query().Get("filter.term"))
		assert.Equal(f.t, "1", r.URL.Query().Get("filter.limit"))
		if f.productsCode != 0 {
			w.WriteHeader(f.productsCode)
			return
		}
		body, ok := f.products[r.URL.Query().Get("filter.locationId")]
		if !ok {
			body = `{"data":[]}`
		}
		w.Write([]byte(body))

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeUpstream) start() (*httptest.Server, Config) {
	srv := httptest.NewServer(f)
	f.t.Cleanup(srv.Close)
	cfg := DefaultConfig()
	cfg.ClientID = "id"
	cfg.ClientSecret = "secret"
	cfg.BaseURL = srv.URL
	return srv, cfg
}

package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/driftsync/pkg/errors"
)

func TestBearerAuth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://example.com/users", nil)
	auth := &BearerAuth{}
	auth.Apply(req, "secret-token")

	assert.Equal(t, "Bearer secret-token", req.Header.Get("Authorization"))
}

func TestHeaderAuth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://example.com/users", nil)
	auth := &HeaderAuth{Header: "X-Api-Key"}
	auth.Apply(req, "secret-token")

	assert.Equal(t, "secret-token", req.Header.Get("X-Api-Key"))
}

func TestQueryAuth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://example.com/users?page=2", nil)
	auth := &QueryAuth{Param: "api_key"}
	auth.Apply(req, "secret-token")

	query := req.URL.Query()
	assert.Equal(t, "secret-token", query.Get("api_key"))
	assert.Equal(t, "2", query.Get("page"))
}

func TestNoAuth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://example.com/users", nil)
	auth := &NoAuth{}
	auth.Apply(req, "secret-token")

	assert.Empty(t, req.Header.Get("Authorization"))
}

func TestForScheme(t *testing.T) {
	assert.IsType(t, &BearerAuth{}, ForScheme("bearer", ""))
	assert.IsType(t, &HeaderAuth{}, ForScheme("header", "X-Api-Key"))
	assert.IsType(t, &QueryAuth{}, ForScheme("query", "key"))
	assert.IsType(t, &NoAuth{}, ForScheme("", ""))
	assert.IsType(t, &NoAuth{}, ForScheme("basic", ""))
}

func TestClientAppliesAuthAndHeaders(t *testing.T) {
	var gotAuth, gotCustom, gotAccept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotCustom = r.Header.Get("X-Tenant")
		gotAccept = r.Header.Get("Accept")
		w.Write([]byte(`[]`)) //nolint:errcheck
	}))
	defer server.Close()

	client := New(&BearerAuth{}, "tok", 0, map[string]string{"X-Tenant": "acme"})
	resp, err := client.Get(context.Background(), server.URL)
	require.NoError(t, err)
	DiscardBody(resp)

	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "acme", gotCustom)
	assert.Equal(t, "application/json", gotAccept)
}

func TestDecodeResponseNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer server.Close()

	client := New(nil, "", 0, nil)
	resp, err := client.Get(context.Background(), server.URL)
	require.NoError(t, err)

	var target []any
	err = DecodeResponse(resp, "remote", &target)
	require.Error(t, err)
	assert.True(t, errors.IsStoreUnavailable(err))
}

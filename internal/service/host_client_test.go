package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mongods/internal/core"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostClient_QueryData(t *testing.T) {
	var gotBody map[string]interface{}
	var gotHeader http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/ds/query", r.URL.Path)
		gotHeader = r.Header.Clone()
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &gotBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":{"A":{"frames":[{"schema":{"name":"x"}}]}}}`))
	}))
	defer srv.Close()

	client := NewHostClient(srv.URL+"/", "secret-token", 5*time.Second)
	resp, err := client.QueryData(context.Background(), &core.QueryDataRequest{
		RequestID: "req-7",
		Queries:   []core.Query{core.Query{RefID: "A"}.WithQueryText("db.c.find()")},
		From:      "now-6h",
		To:        "now",
	})

	require.NoError(t, err)
	assert.JSONEq(t, `{"frames":[{"schema":{"name":"x"}}]}`, string(resp.Results["A"]))

	assert.Equal(t, "Bearer secret-token", gotHeader.Get("Authorization"))
	assert.Equal(t, "req-7", gotHeader.Get("X-Request-Id"))
	assert.Equal(t, "application/json", gotHeader.Get("Content-Type"))
	assert.Equal(t, "now-6h", gotBody["from"])
	queries := gotBody["queries"].([]interface{})
	require.Len(t, queries, 1)
	assert.Equal(t, "db.c.find()", queries[0].(map[string]interface{})["queryText"])
}

func TestHostClient_QueryDataNoToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-Id"))
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	resp, err := NewHostClient(srv.URL, "", time.Second).QueryData(context.Background(), &core.QueryDataRequest{})

	require.NoError(t, err)
	assert.NotNil(t, resp.Results)
	assert.Empty(t, resp.Results)
}

func TestHostClient_QueryDataHostError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"bad query"}`))
	}))
	defer srv.Close()

	_, err := NewHostClient(srv.URL, "", time.Second).QueryData(context.Background(), &core.QueryDataRequest{})

	var hostErr *HostError
	require.True(t, errors.As(err, &hostErr))
	assert.Equal(t, http.StatusBadRequest, hostErr.StatusCode)
	assert.Equal(t, "bad query", hostErr.Message)
}

func TestHostClient_QueryDataPlainTextError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gateway down", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewHostClient(srv.URL, "", time.Second).QueryData(context.Background(), &core.QueryDataRequest{})

	var hostErr *HostError
	require.True(t, errors.As(err, &hostErr))
	assert.Equal(t, "gateway down", hostErr.Message)
}

func TestHostClient_QueryDataUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	_, err := NewHostClient(srv.URL, "", time.Second).QueryData(context.Background(), &core.QueryDataRequest{})

	assert.Error(t, err)
	var hostErr *HostError
	assert.False(t, errors.As(err, &hostErr))
}

func TestHostClient_CheckHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/datasources/uid/mongo-uid/health", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":"OK","message":"Successfully connected"}`))
	}))
	defer srv.Close()

	result, err := NewHostClient(srv.URL, "", time.Second).CheckHealth(context.Background(), "mongo-uid")

	require.NoError(t, err)
	assert.Equal(t, &core.HealthResult{Status: "OK", Message: "Successfully connected"}, result)
}

func TestHostClient_CheckHealthFailedCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":"ERROR","message":"connection refused"}`))
	}))
	defer srv.Close()

	result, err := NewHostClient(srv.URL, "", time.Second).CheckHealth(context.Background(), "mongo-uid")

	require.NoError(t, err)
	assert.Equal(t, "ERROR", result.Status)
	assert.Equal(t, "connection refused", result.Message)
}

func TestHostClient_CheckHealthNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Data source not found"}`))
	}))
	defer srv.Close()

	_, err := NewHostClient(srv.URL, "", time.Second).CheckHealth(context.Background(), "missing")

	var hostErr *HostError
	require.True(t, errors.As(err, &hostErr))
	assert.Equal(t, http.StatusNotFound, hostErr.StatusCode)
	assert.Equal(t, "Data source not found", hostErr.Message)
}

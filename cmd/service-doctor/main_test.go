package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bundle-storefront/internal/config"
	"bundle-storefront/internal/observability"
)

func TestRunChecks_SkipsUnconfigured(t *testing.T) {
	called := false
	checks := []Check{
		{Name: "ok", Func: func(context.Context) error { return nil }},
		{Name: "bad", Func: func(context.Context) error { return errors.New("down") }},
		{Name: "off", Skipped: true, Func: func(context.Context) error { called = true; return nil }},
	}
	runChecks(checks, time.Second)

	assert.NoError(t, checks[0].Error)
	assert.EqualError(t, checks[1].Error, "down")
	assert.False(t, called)

	color.NoColor = true
	assert.True(t, report(checks))
	assert.False(t, report(checks[:1]))
}

func TestBuildChecks_FollowsStorageDriver(t *testing.T) {
	names := func(cs []Check) []string {
		out := make([]string, 0, len(cs))
		for _, c := range cs {
			out = append(out, c.Name)
		}
		return out
	}

	cfg := &config.Config{}
	cfg.Storage.Driver = "mongo"
	checks := buildChecks(cfg, "http://localhost:3000", observability.NopLogger())
	assert.Contains(t, names(checks), "MongoDB")
	assert.NotContains(t, names(checks), "PostgreSQL")
	for _, c := range checks {
		if c.Name == "Redis" || c.Name == "Kafka Cluster" || c.Name == "ClickHouse" {
			assert.True(t, c.Skipped, c.Name)
		}
	}

	cfg.Storage.Driver = "memory"
	assert.NotContains(t, names(buildChecks(cfg, "", observability.NopLogger())), "MongoDB")
}

func TestHTTPChecks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/health":
			w.WriteHeader(http.StatusOK)
		case "/unauthorized":
			w.WriteHeader(http.StatusUnauthorized)
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	logger := observability.NopLogger()
	require.NoError(t, checkHTTPHealth(ctx, srv.URL+"/api/health", logger))
	assert.Error(t, checkHTTPHealth(ctx, srv.URL+"/unauthorized", logger))
	assert.NoError(t, checkReachable(ctx, srv.URL+"/unauthorized", logger))
	assert.Error(t, checkReachable(ctx, srv.URL+"/down", logger))
}

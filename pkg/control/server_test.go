package control

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/small-frappuccino/wikiguide/pkg/metrics"
	"github.com/small-frappuccino/wikiguide/pkg/registry"
	"github.com/stretchr/testify/require"
)

type staticStatus struct{}

func (staticStatus) ActiveSessions() int { return 2 }
func (staticStatus) CachedEntries() int  { return 5 }
func (staticStatus) Bindings() []registry.ChannelBinding {
	return []registry.ChannelBinding{{GuildID: "1", ChannelID: "10"}}
}

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.CacheHit()
	s := NewServer("127.0.0.1:0", staticStatus{}, reg)
	require.NotNil(t, s)
	return s.httpServer.Handler
}

func TestNewServerDisabledWithoutAddr(t *testing.T) {
	require.Nil(t, NewServer("  ", staticStatus{}, nil))
	var s *Server
	require.NoError(t, s.Start())
	require.NoError(t, s.Stop(context.Background()))
}

func TestHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestHandler(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, healthResponse{Status: "ok", ActiveSessions: 2, CachedEntries: 5, BoundGuilds: 1}, got)
}

func TestHealthzRejectsPost(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestHandler(t).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/healthz", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestBindings(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestHandler(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/bindings", nil))
	require.JSONEq(t, `[{"guild_id":"1","channel_id":"10"}]`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestHandler(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "wikiguide_cache_hits_total 1")
}

func TestStartServesAndStops(t *testing.T) {
	s := NewServer("127.0.0.1:0", staticStatus{}, prometheus.NewRegistry())
	require.NoError(t, s.Start())
	t.Cleanup(func() { _ = s.Stop(context.Background()) })

	resp, err := http.Get("http://" + s.Addr() + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	require.True(t, strings.Contains(string(body), `"status":"ok"`))
}

// Package control serves health and Prometheus metrics for a running bot.
package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/small-frappuccino/wikiguide/pkg/log"
	"github.com/small-frappuccino/wikiguide/pkg/registry"
)

// Status reports live counters for /healthz.
type Status interface {
	ActiveSessions() int
	CachedEntries() int
	Bindings() []registry.ChannelBinding
}

// Server exposes operational endpoints for a running instance.
type Server struct {
	addr       string
	status     Status
	httpServer *http.Server
	listener   net.Listener
}

// NewServer returns nil if addr is empty.
func NewServer(addr string, status Status, gatherer prometheus.Gatherer) *Server {
	addr = strings.TrimSpace(addr)
	if addr == "" || status == nil {
		return nil
	}

	s := &Server{addr: addr, status: status}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.routes(gatherer),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) routes(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/v1/bindings", s.handleBindings)
	if gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

// Start opens the control server listening socket.
func (s *Server) Start() error {
	if s == nil {
		return nil
	}

	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("bind control server: %w", err)
	}
	s.listener = ln

	log.ApplicationLogger().Info("Control server listening", "addr", ln.Addr().String())

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.ApplicationLogger().Error("Control server stopped unexpectedly", "err", err)
		}
	}()

	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts down the control server.
func (s *Server) Stop(ctx context.Context) error {
	if s == nil || s.httpServer == nil {
		return nil
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("shutdown control server: %w", err)
	}

	log.ApplicationLogger().Info("Control server stopped", "addr", s.addr)
	return nil
}

type healthResponse struct {
	Status         string `json:"status"`
	ActiveSessions int    `json:"active_sessions"`
	CachedEntries  int    `json:"cached_entries"`
	BoundGuilds    int    `json:"bound_guilds"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, healthResponse{
		Status:         "ok",
		ActiveSessions: s.status.ActiveSessions(),
		CachedEntries:  s.status.CachedEntries(),
		BoundGuilds:    len(s.status.Bindings()),
	})
}

type bindingJSON struct {
	GuildID   string `json:"guild_id"`
	ChannelID string `json:"channel_id"`
}

func (s *Server) handleBindings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	bindings := s.status.Bindings()
	out := make([]bindingJSON, 0, len(bindings))
	for _, b := range bindings {
		out = append(out, bindingJSON{GuildID: b.GuildID, ChannelID: b.ChannelID})
	}
	writeJSON(w, out)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.ApplicationLogger().Error("Failed to encode control response", "err", err)
	}
}

// Package server exposes the pipeline over HTTP: a pollable REST surface,
// Prometheus metrics, and the websocket stream backed by the hub.
package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"quantpaper/internal/hub"
)

// Server wires the REST and websocket handlers to one hub.
type Server struct {
	log       zerolog.Logger
	hub       *hub.Hub
	name      string
	keepalive time.Duration
	started   time.Time
}

// New builds a server. keepalive bounds how long a silent websocket client
// survives and doubles as the read deadline.
func New(name string, h *hub.Hub, keepalive time.Duration, log zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	return &Server{
		log:       log,
		hub:       h,
		name:      name,
		keepalive: keepalive,
		started:   time.Now().UTC(),
	}
}

// Router assembles the gin engine with every route mounted.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api")
	api.GET("/snapshot", s.handleSnapshot)
	api.GET("/health", s.handleHealth)
	api.GET("/ws_clients", s.handleWSClients)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/ws", s.handleWS)
	return r
}

func (s *Server) handleSnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, s.hub.Snapshot())
}

func (s *Server) handleHealth(c *gin.Context) {
	snap := s.hub.Snapshot()

	status := "ok"
	for _, sym := range snap.Symbols {
		if snap.ProviderHealth.LastError[sym] != nil && snap.ProviderHealth.LastOkTs[sym] == nil {
			status = "degraded"
			break
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   status,
		"app":      s.name,
		"ts":       time.Now().UTC(),
		"uptime_s": int64(time.Since(s.started).Seconds()),
		"symbols":  snap.Symbols,
		"provider": snap.ProviderHealth,
	})
}

func (s *Server) handleWSClients(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"clients": s.hub.Count()})
}

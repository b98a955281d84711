package server

import (
	"lsmkv/internal/storage/engine"

	"github.com/gin-gonic/gin"
)

type Server struct {
	router *gin.Engine
	db     *engine.Engine
}

// New creates a new server instance
func New(db *engine.Engine) *Server {
	s := &Server{
		db:     db,
		router: gin.Default(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/", s.handleHealthCheck())
	s.router.GET("/v1/stats", s.handleStats())
	s.router.POST("/v1/compact", s.handleCompact())

	s.router.PUT("/v1/keys/:key", s.handlePutKey())
	s.router.GET("/v1/keys/:key", s.handleGetKey())
	s.router.DELETE("/v1/keys/:key", s.handleDeleteKey())
}

// Run starts the HTTP server on addr.
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

package server

import (
	"errors"
	"net/http"

	"lsmkv/internal/storage/engine"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleHealthCheck() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func (s *Server) handlePutKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.Param("key")
		var req PutKeyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if err := s.db.Insert(c.Request.Context(), key, req.Value); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, engine.ErrEmptyKey) {
				status = http.StatusBadRequest
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, GetKeyResponse{Key: key, Value: req.Value})
	}
}

func (s *Server) handleGetKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.Param("key")
		value, found, err := s.db.Get(c.Request.Context(), key)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, engine.ErrEmptyKey) {
				status = http.StatusBadRequest
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		if !found {
			c.JSON(http.StatusNotFound, gin.H{"error": "key not found"})
			return
		}

		c.JSON(http.StatusOK, GetKeyResponse{Key: key, Value: value})
	}
}

func (s *Server) handleDeleteKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.Param("key")
		if err := s.db.Delete(c.Request.Context(), key); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, engine.ErrEmptyKey) {
				status = http.StatusBadRequest
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		c.Status(http.StatusNoContent)
	}
}

func (s *Server) handleCompact() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.db.Compact(c.Request.Context()); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "compacted"})
	}
}

func (s *Server) handleStats() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, s.db.Stats())
	}
}

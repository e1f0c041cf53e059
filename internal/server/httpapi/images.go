package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) handlePresignPut(c *gin.Context) {
	key, url, err := s.images.PresignedPutURL(c.Request.Context())
	if err != nil {
		s.logger.Error(c.Request.Context(), "presigning upload failed", "error", err)
		c.JSON(http.StatusInternalServerError, errBody(errors.New("internal error")))
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key, "url": url})
}

func (s *Server) handlePresignGet(c *gin.Context) {
	key := c.Query("key")
	if key == "" {
		c.JSON(http.StatusBadRequest, errBody(errors.New("missing key")))
		return
	}

	url, err := s.images.PresignedGetURL(c.Request.Context(), key)
	if err != nil {
		s.logger.Error(c.Request.Context(), "presigning download failed", "error", err)
		c.JSON(http.StatusInternalServerError, errBody(errors.New("internal error")))
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

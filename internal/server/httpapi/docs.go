package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sultumov/allergyTracker/internal/common"
)

func docPath(c *gin.Context) string {
	return strings.Trim(c.Param("path"), "/")
}

func (s *Server) docError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, common.ErrNotFound):
		c.JSON(http.StatusNotFound, errBody(err))
	case errors.Is(err, common.ErrNotAuthenticated):
		c.JSON(http.StatusForbidden, errBody(err))
	case errors.Is(err, common.ErrInvalidEntity):
		c.JSON(http.StatusBadRequest, errBody(err))
	default:
		s.logger.Error(c.Request.Context(), "document operation failed", "error", err)
		c.JSON(http.StatusInternalServerError, errBody(errors.New("internal error")))
	}
}

// handleGetDoc serves both single documents and, with ?modifiedSince=N,
// incremental collection queries.
func (s *Server) handleGetDoc(c *gin.Context) {
	userID := c.GetString(userIDKey)
	path := docPath(c)

	if sinceParam, ok := c.GetQuery("modifiedSince"); ok {
		since, err := strconv.ParseInt(sinceParam, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, errBody(errors.New("bad modifiedSince")))
			return
		}
		docs, err := s.documents.ModifiedSince(c.Request.Context(), userID, path, since)
		if err != nil {
			s.docError(c, err)
			return
		}
		c.JSON(http.StatusOK, docs)
		return
	}

	body, err := s.documents.Get(c.Request.Context(), userID, path)
	if err != nil {
		s.docError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", body)
}

func (s *Server) handlePutDoc(c *gin.Context) {
	userID := c.GetString(userIDKey)
	path := docPath(c)

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, errBody(errors.New("unreadable body")))
		return
	}

	if err := s.documents.Put(c.Request.Context(), userID, path, json.RawMessage(body)); err != nil {
		s.docError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (s *Server) handlePatchDoc(c *gin.Context) {
	userID := c.GetString(userIDKey)
	path := docPath(c)

	var fields map[string]any
	if err := c.ShouldBindJSON(&fields); err != nil {
		c.JSON(http.StatusBadRequest, errBody(errors.New("bad patch body")))
		return
	}

	if err := s.documents.Patch(c.Request.Context(), userID, path, fields); err != nil {
		s.docError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (s *Server) handleDeleteDoc(c *gin.Context) {
	userID := c.GetString(userIDKey)
	path := docPath(c)

	if err := s.documents.Delete(c.Request.Context(), userID, path); err != nil {
		s.docError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

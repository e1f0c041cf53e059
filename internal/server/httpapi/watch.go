package httpapi

import (
	"context"
	"errors"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/sultumov/allergyTracker/internal/common"
)

const watchWriteTimeout = 10 * time.Second

// handleWatch upgrades to a websocket and streams snapshots of the watched
// path: one on attach, then one after every mutation underneath it. The
// client unsubscribes by closing the connection.
func (s *Server) handleWatch(c *gin.Context) {
	userID := c.GetString(userIDKey)
	path := c.Query("path")

	// validate before upgrading so bad requests fail with a plain status
	if _, err := s.documents.Snapshot(c.Request.Context(), userID, path); err != nil {
		s.docError(c, err)
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusInternalError, "watch closed")

	kicks, release := s.hub.Watch(path)
	defer release()

	ctx := c.Request.Context()

	// reads are discarded; their only job is detecting the peer going away
	readCtx := conn.CloseRead(ctx)

	send := func() error {
		snap, err := s.documents.Snapshot(ctx, userID, path)
		if err != nil {
			return err
		}
		writeCtx, cancel := context.WithTimeout(ctx, watchWriteTimeout)
		defer cancel()
		return wsjson.Write(writeCtx, conn, snap)
	}

	if err := send(); err != nil {
		return
	}

	for {
		select {
		case <-kicks:
			if err := send(); err != nil {
				if !errors.Is(err, common.ErrNotFound) {
					s.logger.Warn(ctx, "watch feed send failed", "path", path, "error", err)
				}
				return
			}
		case <-readCtx.Done():
			conn.Close(websocket.StatusNormalClosure, "client closed")
			return
		case <-ctx.Done():
			return
		}
	}
}

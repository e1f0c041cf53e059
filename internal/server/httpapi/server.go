// Package httpapi exposes the server's REST and websocket API with gin.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sultumov/allergyTracker/internal/logging"
	"github.com/sultumov/allergyTracker/internal/server/services"
)

// Server wires the service layer into HTTP routes:
//
//	POST /v1/auth/register, /v1/auth/login, /v1/auth/refresh
//	GET/PUT/PATCH/DELETE /v1/docs/*path
//	GET  /v1/watch?path=...   (websocket)
//	POST /v1/images/presign-put, GET /v1/images/presign-get
//	GET  /v1/ping
type Server struct {
	address   string
	logger    logging.Logger
	users     *services.UserService
	documents *services.DocumentService
	images    *services.ImageService
	hub       *Hub
	jwtSecret []byte
}

func NewServer(address string, logger logging.Logger, us *services.UserService, ds *services.DocumentService, is *services.ImageService, hub *Hub, secretKey string) *Server {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Server{
		address:   address,
		logger:    logger.With("module", "httpapi"),
		users:     us,
		documents: ds,
		images:    is,
		hub:       hub,
		jwtSecret: []byte(secretKey),
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	v1 := r.Group("/v1")
	v1.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	authGroup := v1.Group("/auth")
	authGroup.POST("/register", s.handleRegister)
	authGroup.POST("/login", s.handleLogin)
	authGroup.POST("/refresh", s.handleRefresh)

	protected := v1.Group("")
	protected.Use(s.accessTokenMiddleware())
	protected.GET("/docs/*path", s.handleGetDoc)
	protected.PUT("/docs/*path", s.handlePutDoc)
	protected.PATCH("/docs/*path", s.handlePatchDoc)
	protected.DELETE("/docs/*path", s.handleDeleteDoc)
	protected.GET("/watch", s.handleWatch)
	protected.POST("/images/presign-put", s.handlePresignPut)
	protected.GET("/images/presign-get", s.handlePresignGet)

	return r
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.address,
		Handler: s.Router(),
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

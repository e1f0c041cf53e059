package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sultumov/allergyTracker/internal/common"
	"github.com/sultumov/allergyTracker/internal/server/auth"
)

const userIDKey = "userID"

type credentialsRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type tokenPairResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type sessionResponse struct {
	UserID string `json:"userId"`
	tokenPairResponse
}

func errBody(err error) gin.H {
	return gin.H{"error": err.Error()}
}

// accessTokenMiddleware verifies the bearer token and stores the user id in
// the request context. An expired token is reported verbatim so clients can
// refresh and retry.
func (s *Server) accessTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(common.AuthorizationHeaderName)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errBody(common.ErrNotAuthenticated))
			return
		}

		userID, err := auth.GetUserIDFromToken(token, s.jwtSecret)
		if err != nil {
			if errors.Is(err, common.ErrTokenExpired) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, errBody(common.ErrTokenExpired))
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, errBody(common.ErrInvalidToken))
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

func (s *Server) handleRegister(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errBody(common.ErrInvalidLoginOrPassword))
		return
	}

	if _, err := s.users.Register(c.Request.Context(), req.Login, req.Password); err != nil {
		switch {
		case errors.Is(err, common.ErrLoginAlreadyExists):
			c.JSON(http.StatusConflict, errBody(err))
		case errors.Is(err, common.ErrInvalidLoginOrPassword):
			c.JSON(http.StatusBadRequest, errBody(err))
		default:
			s.logger.Error(c.Request.Context(), "register failed", "error", err)
			c.JSON(http.StatusInternalServerError, errBody(errors.New("internal error")))
		}
		return
	}

	c.Status(http.StatusOK)
}

func (s *Server) handleLogin(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errBody(common.ErrInvalidLoginOrPassword))
		return
	}

	userID, pair, err := s.users.Login(c.Request.Context(), req.Login, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrInvalidLoginOrPassword) {
			c.JSON(http.StatusUnauthorized, errBody(err))
			return
		}
		s.logger.Error(c.Request.Context(), "login failed", "error", err)
		c.JSON(http.StatusInternalServerError, errBody(errors.New("internal error")))
		return
	}

	c.JSON(http.StatusOK, sessionResponse{
		UserID: userID,
		tokenPairResponse: tokenPairResponse{
			AccessToken:  pair.AccessToken,
			RefreshToken: pair.RefreshToken,
		},
	})
}

func (s *Server) handleRefresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refreshToken" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errBody(common.ErrInvalidToken))
		return
	}

	pair, err := s.users.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrRefreshTokenExpired):
			c.JSON(http.StatusUnauthorized, errBody(err))
		default:
			s.logger.Error(c.Request.Context(), "token refresh failed", "error", err)
			c.JSON(http.StatusInternalServerError, errBody(errors.New("internal error")))
		}
		return
	}

	c.JSON(http.StatusOK, tokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

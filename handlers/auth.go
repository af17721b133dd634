package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/workoutlog/workoutlog/backend/go-services/internal/config"
	"github.com/workoutlog/workoutlog/backend/go-services/internal/models"
	"github.com/workoutlog/workoutlog/backend/go-services/internal/sessions"
	"github.com/workoutlog/workoutlog/backend/go-services/internal/tokens"
	"github.com/workoutlog/workoutlog/backend/go-services/internal/users"
	"github.com/workoutlog/workoutlog/backend/go-services/pkg/logger"
	"github.com/workoutlog/workoutlog/backend/go-services/pkg/metrics"
	"github.com/workoutlog/workoutlog/backend/go-services/pkg/middleware"
)

const invalidCredentialsDetail = "Incorrect username or password"

// CreateUserRequest is the body of POST /auth/.
type CreateUserRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// TokenRequest accepts OAuth2 password-form fields or the same names as JSON.
type TokenRequest struct {
	Username string `form:"username" json:"username" binding:"required"`
	Password string `form:"password" json:"password" binding:"required"`
}

// TokenResponse is returned by /auth/token and /auth/refresh.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// AuthHandler holds dependencies
type AuthHandler struct {
	cfg         *config.Config
	usersSvc    *users.Service
	sessionsSvc *sessions.Service
	public      []gin.HandlerFunc
}

func NewAuthHandler(cfg *config.Config, u *users.Service, s *sessions.Service) *AuthHandler {
	return &AuthHandler{cfg: cfg, usersSvc: u, sessionsSvc: s}
}

// WithPublic runs mw in front of the routes that need no bearer token.
func (h *AuthHandler) WithPublic(mw ...gin.HandlerFunc) *AuthHandler {
	h.public = mw
	return h
}

// Register routes under /auth. protected guards /auth/me and must set a principal.
func (h *AuthHandler) Register(rg gin.IRouter, protected ...gin.HandlerFunc) {
	a := rg.Group("/auth")
	open := a.Group("", h.public...)
	open.POST("/", h.CreateUser)
	open.POST("/token", h.Token)
	open.POST("/refresh", h.Refresh)
	open.POST("/logout", h.Logout)
	a.GET("/me", append(protected[:len(protected):len(protected)], h.Me)...)
}

func authEvent(event, result string) {
	metrics.AuthEvents.WithLabelValues(event, result).Inc()
}

func unauthorized(c *gin.Context, detail string) {
	c.Header("WWW-Authenticate", "Bearer")
	c.JSON(http.StatusUnauthorized, gin.H{"error": detail})
}

// CreateUser registers a local user.
func (h *AuthHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	u, err := h.usersSvc.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		var ve *users.ValidationError
		switch {
		case errors.As(err, &ve):
			authEvent("register", "invalid")
			c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error()})
		case errors.Is(err, users.ErrUsernameTaken):
			authEvent("register", "conflict")
			c.JSON(http.StatusConflict, gin.H{"error": "Username already registered"})
		default:
			authEvent("register", "error")
			logger.Errorf("register user: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		}
		return
	}
	authEvent("register", "ok")
	c.JSON(http.StatusCreated, gin.H{"id": u.ID, "username": u.Username})
}

func (h *AuthHandler) issue(c *gin.Context, u *models.User, refresh string) {
	ttl := h.cfg.Auth.AccessTokenTTL
	if ttl <= 0 {
		ttl = tokens.DefaultTTL
	}
	access, err := tokens.GenerateAccessToken(h.cfg, u, ttl)
	if err != nil {
		logger.Errorf("sign access token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create access token"})
		return
	}
	c.JSON(http.StatusOK, TokenResponse{
		AccessToken:  access,
		TokenType:    "bearer",
		RefreshToken: refresh,
		ExpiresIn:    int(ttl / time.Second),
	})
}

// Token exchanges a username and password for an access and refresh token.
func (h *AuthHandler) Token(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBind(&req); err != nil {
		authEvent("login", "invalid")
		unauthorized(c, invalidCredentialsDetail)
		return
	}
	u, err := h.usersSvc.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) {
			authEvent("login", "denied")
			unauthorized(c, invalidCredentialsDetail)
			return
		}
		authEvent("login", "error")
		logger.Errorf("authenticate: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "authentication failed"})
		return
	}
	refresh, err := h.sessionsSvc.CreateSession(c.Request.Context(), u.ID, u.Username, h.cfg.Auth.RefreshTokenTTL)
	if err != nil {
		authEvent("login", "error")
		logger.Errorf("create session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}
	authEvent("login", "ok")
	h.issue(c, u, refresh)
}

// Refresh consumes a refresh token and returns a new token pair.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sess, next, err := h.sessionsSvc.Rotate(c.Request.Context(), req.RefreshToken, h.cfg.Auth.RefreshTokenTTL)
	if err != nil {
		authEvent("refresh", "error")
		logger.Errorf("rotate refresh token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "validation failed"})
		return
	}
	if sess == nil {
		authEvent("refresh", "denied")
		unauthorized(c, "invalid refresh token")
		return
	}
	authEvent("refresh", "ok")
	h.issue(c, &models.User{ID: sess.UserID, Username: sess.Username}, next)
}

// Logout removes the refresh session and revokes the presented access token until it expires.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if at, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer "); ok && at != "" {
		if _, err := tokens.ParseAccessToken(h.cfg, at); err == nil {
			if exp, err := tokens.ExpiryUnverified(at); err == nil {
				if err := sessions.BlacklistAccessToken(c.Request.Context(), at, time.Until(exp)); err != nil {
					authEvent("logout", "error")
					logger.Errorf("blacklist access token: %v", err)
					c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to blacklist access token"})
					return
				}
			}
		}
	}
	if err := h.sessionsSvc.DeleteRefresh(c.Request.Context(), req.RefreshToken); err != nil {
		authEvent("logout", "error")
		logger.Errorf("delete session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to remove session"})
		return
	}
	authEvent("logout", "ok")
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(c *gin.Context) {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		unauthorized(c, "Could not validate user")
		return
	}
	u, err := h.usersSvc.GetByID(c.Request.Context(), p.ID)
	if err != nil {
		logger.Errorf("load user %d: %v", p.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user lookup failed"})
		return
	}
	if u == nil {
		unauthorized(c, "Could not validate user")
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": u.ID, "username": u.Username})
}

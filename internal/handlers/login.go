package handlers

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/scribesync/scribesync/internal/auth"
	"github.com/scribesync/scribesync/internal/config"
)

type LoginHandler struct {
	cfg    config.AuthConfig
	logger *slog.Logger
}

func NewLoginHandler(log *slog.Logger, cfg config.AuthConfig) *LoginHandler {
	return &LoginHandler{
		cfg:    cfg,
		logger: log.With(slog.String("handler", "login")),
	}
}

func (h *LoginHandler) Register(e *echo.Echo) {
	e.POST("/auth/login", h.Login)
}

type loginRequest struct {
	Token string `json:"token" validate:"required"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login exchanges the configured admin token for a signed JWT.
func (h *LoginHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if h.cfg.AdminToken == "" {
		return echo.NewHTTPError(http.StatusForbidden, "login disabled: no admin token configured")
	}
	if subtle.ConstantTimeCompare([]byte(req.Token), []byte(h.cfg.AdminToken)) != 1 {
		h.logger.Warn("login rejected", slog.String("remote", c.RealIP()))
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	signed, expiresAt, err := auth.GenerateToken("admin", h.cfg.JWTSecret, h.cfg.ExpiresIn())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, loginResponse{Token: signed, ExpiresAt: expiresAt})
}

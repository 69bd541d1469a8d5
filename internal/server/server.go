package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/scribesync/scribesync/internal/auth"
)

// Handler is anything that can attach routes to the echo instance.
type Handler interface {
	Register(e *echo.Echo)
}

type Options struct {
	Addr      string
	JWTSecret string
	Logger    *slog.Logger
}

type Server struct {
	echo *echo.Echo
	addr string
}

type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i any) error {
	if err := v.validate.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func New(opts Options, handlers []Handler) *Server {
	addr := opts.Addr
	if addr == "" {
		addr = ":8080"
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = &requestValidator{validate: validator.New()}
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Info("request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("remote_ip", c.RealIP()),
			)
			return nil
		},
	}))
	e.Use(auth.JWTMiddleware(opts.JWTSecret, func(c echo.Context) bool {
		return shouldSkipJWT(c.Request().URL.Path)
	}))

	for _, h := range handlers {
		if h != nil {
			h.Register(e)
		}
	}

	return &Server{echo: e, addr: addr}
}

var jwtExactSkipPaths = map[string]struct{}{
	"/ping":       {},
	"/health":     {},
	"/auth/login": {},
}

func shouldSkipJWT(path string) bool {
	_, ok := jwtExactSkipPaths[path]
	return ok
}

func (s *Server) Start() error { return s.echo.Start(s.addr) }

func (s *Server) Shutdown(ctx context.Context) error { return s.echo.Shutdown(ctx) }

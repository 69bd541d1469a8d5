package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/scribesync/scribesync/internal/config"
	"github.com/scribesync/scribesync/internal/handlers"
	"github.com/scribesync/scribesync/internal/kv"
	"github.com/scribesync/scribesync/internal/logger"
	"github.com/scribesync/scribesync/internal/platform"
	"github.com/scribesync/scribesync/internal/platform/adapters/dingtalk"
	"github.com/scribesync/scribesync/internal/platform/adapters/feishu"
	"github.com/scribesync/scribesync/internal/platform/adapters/wecom"
	"github.com/scribesync/scribesync/internal/rewrite"
	"github.com/scribesync/scribesync/internal/server"
	"github.com/scribesync/scribesync/internal/store"
	"github.com/scribesync/scribesync/internal/version"
)

func runServe() {
	fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			provideKVStore,
			store.NewModelConfigService,
			store.NewRecordService,
			provideRewriteService,
			providePlatformRegistry,
			platform.NewFactory,
			provideServerHandler(handlers.NewPingHandler),
			provideServerHandler(provideLoginHandler),
			provideServerHandler(handlers.NewModelsHandler),
			provideServerHandler(handlers.NewRecordsHandler),
			provideServerHandler(handlers.NewRewriteHandler),
			provideServerHandler(handlers.NewMessageHandler),
			provideServerHandler(handlers.NewPlatformsHandler),
			provideServer,
		),
		fx.Invoke(startServer),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	).Run()
}

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}

func provideConfig() (config.Config, error) {
	cfgPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideKVStore(lc fx.Lifecycle, log *slog.Logger, cfg config.Config) (kv.Store, error) {
	rc := cfg.Storage.Redis
	if !rc.Enabled {
		log.Warn("redis disabled, using in-memory storage")
		return kv.NewMemoryStore(), nil
	}
	store, err := kv.NewRedisStore(context.Background(), log, rc.Addr, rc.Password, rc.DB, rc.KeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("redis connect: %w", err)
	}
	lc.Append(fx.Hook{OnStop: func(ctx context.Context) error { return store.Close() }})
	return store, nil
}

func provideRewriteService(log *slog.Logger, cfg config.Config) *rewrite.Service {
	return rewrite.NewService(log, cfg.Rewrite)
}

func providePlatformRegistry(log *slog.Logger) *platform.Registry {
	reg := platform.NewRegistry()
	feishu.Register(reg, log)
	dingtalk.Register(reg, log)
	wecom.Register(reg, log)
	return reg
}

func provideLoginHandler(log *slog.Logger, cfg config.Config) *handlers.LoginHandler {
	return handlers.NewLoginHandler(log, cfg.Auth)
}

type serverParams struct {
	fx.In
	Logger         *slog.Logger
	Config         config.Config
	ServerHandlers []server.Handler `group:"server_handlers"`
}

func provideServer(params serverParams) *server.Server {
	return server.New(server.Options{
		Addr:      params.Config.Server.Addr,
		JWTSecret: params.Config.Auth.JWTSecret,
		Logger:    params.Logger,
	}, params.ServerHandlers)
}

func startServer(lc fx.Lifecycle, logger *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner) {
	fmt.Printf("Starting scribesync %s\n", version.GetInfo())
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}

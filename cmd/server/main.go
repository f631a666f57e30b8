package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/garyjia/procurement-engine/internal/config"
	"github.com/garyjia/procurement-engine/internal/container"
	httpserver "github.com/garyjia/procurement-engine/internal/interfaces/http"
	"github.com/garyjia/procurement-engine/pkg/utils"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML configuration file")
	tokenFor := flag.String("issue-token", "", "print a bearer token for this actor id and exit")
	tokenName := flag.String("token-name", "", "display name carried by the issued token")
	tokenGroups := flag.String("token-groups", "", "comma separated approver group ids carried by the issued token")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
		Service:    "procurement-engine",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if *tokenFor != "" {
		req := tokenRequest{ActorID: *tokenFor, Name: *tokenName, Groups: *tokenGroups}
		exp, err := issueToken(cfg.ToContainerConfig().Server, req, os.Stdout)
		if err != nil {
			logger.Error("Failed to issue token", zap.Error(err))
			os.Exit(1)
		}
		logger.Info("Token issued", zap.String("actor_id", req.ActorID), zap.Time("expires_at", exp))
		return
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("Server exited with error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("Server exited successfully")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	containerCfg := cfg.ToContainerConfig()
	c, err := container.NewContainer(containerCfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create container: %w", err)
	}
	if err := c.Start(ctx); err != nil {
		return fmt.Errorf("failed to start container: %w", err)
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Error("Failed to close container", zap.Error(err))
		}
	}()

	opts, err := serverOptions(containerCfg.Server)
	if err != nil {
		return err
	}

	services := c.Services()
	server := httpserver.NewServer(
		httpserver.ServerConfig{
			Host:           containerCfg.Server.Host,
			Port:           containerCfg.Server.Port,
			ReadTimeout:    containerCfg.Server.ReadTimeout,
			WriteTimeout:   containerCfg.Server.WriteTimeout,
			AllowedOrigins: containerCfg.Server.AllowedOrigins,
		},
		httpserver.Services{
			Levels:        services.Levels,
			Approvals:     services.Approvals,
			Requisitions:  services.Requisitions,
			RFQs:          services.RFQs,
			Comparisons:   services.Comparisons,
			Confirmations: services.Confirmations,
			MasterData:    services.MasterData,
		},
		container.NewLoggerAdapter(logger),
		opts...,
	)

	logger.Info("Starting procurement engine",
		zap.String("address", server.Address()),
		zap.String("lock_driver", containerCfg.Lock.Driver),
		zap.Bool("lark", containerCfg.Lark.Enabled))

	// Start blocks until the signal context ends or listening fails
	return server.Start(ctx)
}

func serverOptions(cfg container.ServerConfig) ([]httpserver.Option, error) {
	var opts []httpserver.Option

	if cfg.AuthEnabled {
		auth, err := httpserver.NewAuthenticator(cfg.JWTSecret, cfg.TokenTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to create authenticator: %w", err)
		}
		opts = append(opts, httpserver.WithAuthenticator(auth))
	}

	if cfg.RateLimitEnabled {
		limiter, err := httpserver.NewRateLimiter(cfg.RateLimit)
		if err != nil {
			return nil, fmt.Errorf("failed to create rate limiter: %w", err)
		}
		opts = append(opts, httpserver.WithRateLimiter(limiter))
	}

	return opts, nil
}

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"comanda/internal/commons"
	"comanda/internal/infrastructure/logger"
	"comanda/internal/infrastructure/mysql"
	"comanda/internal/infrastructure/redis"
	"comanda/internal/menu"
	"comanda/internal/order"
	"comanda/internal/realtime"
	"comanda/internal/server"
	"comanda/internal/session"
	"comanda/internal/user"
)

func main() {
	flags := pflag.NewFlagSet("server", pflag.ExitOnError)
	configPath := flags.String("config", "internal/config/config.yaml", "path to the YAML config file")
	flags.Int("port", 0, "HTTP port, overrides the config file")
	flags.String("log-level", "", "log level, overrides the config file")
	flags.String("log-encoding", "", "json or console, overrides the config file")
	_ = flags.Parse(os.Args[1:])

	cfg, err := commons.LoadConfig(*configPath, flags)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	zapLogger, err := logger.New(cfg.Log, "comanda-server")
	if err != nil {
		log.Fatalf("creating logger: %v", err)
	}
	defer zapLogger.Sync()

	db, err := mysql.NewConnection(cfg.Database)
	if err != nil {
		zapLogger.Fatal("connecting to database", zap.Error(err))
	}
	defer db.Close()

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelStartup()

	if err := mysql.EnsureSchema(startupCtx, db); err != nil {
		zapLogger.Fatal("ensuring schema", zap.Error(err))
	}
	zapLogger.Info("database connected")

	redisClient, err := redis.NewClient(startupCtx, cfg.Redis)
	if err != nil {
		zapLogger.Fatal("connecting to redis", zap.Error(err))
	}
	defer redisClient.Close()
	zapLogger.Info("redis connected")

	broadcaster, err := realtime.NewBroadcaster(cfg.Broker, zapLogger)
	if err != nil {
		zapLogger.Fatal("connecting to broker", zap.Error(err))
	}
	defer broadcaster.Close()
	zapLogger.Info("broker connected", zap.String("exchange", cfg.Broker.Exchange))

	sessions := session.NewRedisStore(redisClient, cfg.Session.TTL)

	menuModule := menu.NewModule(db, zapLogger)
	orderCtrl := order.NewModule(menuModule.Foods, redisClient, broadcaster, cfg, zapLogger)
	userModule := user.NewModule(db, sessions, cfg, zapLogger)

	if err := userModule.Auth.EnsureAdmin(startupCtx, cfg.Session.BootstrapAdmin, cfg.Session.BootstrapPassword); err != nil {
		zapLogger.Fatal("creating bootstrap admin", zap.Error(err))
	}

	router := server.NewRouter(server.Controllers{
		Foods:  menuModule.Controller,
		Orders: orderCtrl,
		Users:  userModule.Controller,
	}, sessions, zapLogger)

	srv := server.New(cfg.Server.Port, router, zapLogger,
		server.WithWriteTimeout(cfg.Server.WriteTimeout),
		server.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil {
			zapLogger.Fatal("server error", zap.Error(err))
		}
	}()

	<-quit
	zapLogger.Info("received shutdown signal")

	ctx, cancel := context.WithTimeout(context.Background(), srv.ShutdownTimeout())
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Fatal("server shutdown failed", zap.Error(err))
	}

	zapLogger.Info("server stopped gracefully")
}

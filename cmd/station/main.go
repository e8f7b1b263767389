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

	"comanda/internal/apiclient"
	"comanda/internal/clock"
	"comanda/internal/commons"
	"comanda/internal/domain"
	"comanda/internal/infrastructure/logger"
	"comanda/internal/realtime"
	"comanda/internal/server"
	"comanda/internal/station"
	"comanda/internal/ticket"
)

func main() {
	flags := pflag.NewFlagSet("station", pflag.ExitOnError)
	configPath := flags.String("config", "internal/config/config.yaml", "path to the YAML config file")
	flags.Int("station-port", 0, "local HTTP port for the operator view")
	flags.String("api-url", "", "backend base URL")
	flags.String("username", "", "operator username")
	flags.String("password", "", "operator password")
	flags.String("spool-dir", "", "printer spool directory; tickets go to stdout when empty")
	flags.String("log-level", "", "log level, overrides the config file")
	flags.String("log-encoding", "", "json or console, overrides the config file")
	_ = flags.Parse(os.Args[1:])

	cfg, err := commons.LoadConfig(*configPath, flags)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	zapLogger, err := logger.New(cfg.Log, "comanda-station")
	if err != nil {
		log.Fatalf("creating logger: %v", err)
	}
	defer zapLogger.Sync()

	client, err := apiclient.New(cfg.Station.APIURL, nil, zapLogger)
	if err != nil {
		zapLogger.Fatal("creating api client", zap.Error(err))
	}

	loginCtx, cancelLogin := context.WithTimeout(context.Background(), 15*time.Second)
	sess, err := client.Login(loginCtx, cfg.Station.Username, cfg.Station.Password)
	cancelLogin()
	if err != nil {
		zapLogger.Fatal("logging in", zap.String("username", cfg.Station.Username), zap.Error(err))
	}

	runCtx, stop := context.WithCancel(context.Background())
	defer stop()

	deps := station.Deps{
		Backend: client,
		Clock:   clock.NewSystem(),
		Group:   cfg.Realtime.Group,
		Logger:  zapLogger,
	}

	var channel *realtime.Client
	if sess.Capability() == domain.CapabilityAdminView {
		channel = realtime.NewClient(realtime.NewAMQPTransport(cfg.Broker), realtime.Options{
			InitialBackoff: cfg.Realtime.InitialBackoff,
			MaxBackoff:     cfg.Realtime.MaxBackoff,
			PollInterval:   cfg.Realtime.PollInterval,
		}, zapLogger)
		channel.OnStateChange(func(status realtime.Status) {
			zapLogger.Info("channel state changed", zap.String("state", status.Label), zap.Bool("polling", status.Polling))
		})
		channel.Connect(runCtx)
		defer channel.Close()

		printer, err := newPrinter(cfg.Station.SpoolDir)
		if err != nil {
			zapLogger.Fatal("creating printer", zap.Error(err))
		}
		deps.Channel = channel
		deps.Printer = printer
	}

	view, err := station.NewView(sess, deps)
	if err != nil {
		zapLogger.Fatal("building station view", zap.Error(err))
	}

	st := station.New(sess, view, zapLogger)
	client.OnUnauthorized(st.EndSession)

	srv := server.New(cfg.Station.Port, st.Handler(), zapLogger, server.WithShutdownTimeout(cfg.Server.ShutdownTimeout))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil {
			zapLogger.Fatal("station error", zap.Error(err))
		}
	}()

	zapLogger.Info("station ready",
		zap.String("username", sess.Username),
		zap.String("capability", sess.Capability().String()),
		zap.Int("port", cfg.Station.Port),
	)

	<-quit
	zapLogger.Info("received shutdown signal")

	ctx, cancel := context.WithTimeout(context.Background(), srv.ShutdownTimeout())
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("station shutdown failed", zap.Error(err))
	}
	view.Close()
	if err := client.Logout(ctx); err != nil {
		zapLogger.Warn("logging out", zap.Error(err))
	}

	zapLogger.Info("station stopped")
}

func newPrinter(spoolDir string) (ticket.Printer, error) {
	if spoolDir == "" {
		return ticket.NewWriterPrinter(os.Stdout), nil
	}
	return ticket.NewSpoolPrinter(spoolDir)
}

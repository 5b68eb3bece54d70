package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"robot-gateway/backend/global"
	"robot-gateway/backend/initialize"
	"robot-gateway/backend/server"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to gateway config file")
	flag.Parse()

	app, err := initialize.Build(*configPath)
	if err != nil {
		global.Logger.Fatal().Err(err).Msg("failed to build application")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app.Hub.StartSweeper(ctx, app.Cfg.Dispatch.SweepInterval)
	app.Dispatcher.StartRetryLoop(ctx)

	if err := server.StartHTTPServer(app.Cfg.Server.Host, app.Cfg.Server.Port, app.Router); err != nil {
		global.Logger.Fatal().Err(err).Msg("failed to start http server")
	}
	global.Logger.Info().
		Str("host", app.Cfg.Server.Host).
		Int("port", app.Cfg.Server.Port).
		Msg("robot gateway is listening")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	global.Logger.Info().Msg("shutting down")
}

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/dmitrijs2005/incidentdesk/internal/buildinfo"
	"github.com/dmitrijs2005/incidentdesk/internal/mockapi"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	cfg := mockapi.LoadConfig()
	app, err := mockapi.NewApp(cfg, logger)
	if err != nil {
		logger.Fatal("init", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		logger.Error("server stopped", zap.Error(err))
	}

}

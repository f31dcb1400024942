package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/MKhiriev/go-refsync/internal/client"
	"github.com/MKhiriev/go-refsync/internal/config"
	"github.com/MKhiriev/go-refsync/internal/logger"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

// usage: client [watch|sync|full] [flags]
func main() {
	printBuildInfo()

	args := os.Args[1:]
	var command string
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		command, args = args[0], args[1:]
	}

	log := logger.NewClientLogger("refsync-client", os.Getenv("REFSYNC_LOG"))

	mode, err := client.ParseMode(command)
	if err != nil {
		log.Fatal().Err(err).Msg("error parsing command")
	}

	cfg, err := config.GetClientConfig(args)
	if err != nil {
		log.Fatal().Err(err).Msg("error getting configs")
	}
	cfg.App.Version = buildVersion

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer stop()

	app, err := client.NewApp(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("init client app error")
	}
	defer app.Close()

	if err = app.Run(ctx, mode); err != nil {
		log.Err(err).Str("mode", string(mode)).Msg("client run error")
		app.Close()
		os.Exit(1)
	}
}

func printBuildInfo() {
	if buildVersion == "" {
		buildVersion = "N/A"
	}
	if buildDate == "" {
		buildDate = "N/A"
	}
	if buildCommit == "" {
		buildCommit = "N/A"
	}

	fmt.Printf("Build version: %s\n", buildVersion)
	fmt.Printf("Build date: %s\n", buildDate)
	fmt.Printf("Build commit: %s\n", buildCommit)
}

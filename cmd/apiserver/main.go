package main

import (
	"fmt"
	"os"

	"github.com/MKhiriev/go-refsync/internal/config"
	apihttp "github.com/MKhiriev/go-refsync/internal/handler/http"
	"github.com/MKhiriev/go-refsync/internal/logger"
	"github.com/MKhiriev/go-refsync/internal/remote"
	"github.com/MKhiriev/go-refsync/internal/server"
	"github.com/MKhiriev/go-refsync/models"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	printBuildInfo()

	log := logger.NewLogger("refsync-apiserver")
	cfg, err := config.GetAPIServerConfig(os.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Msg("error getting configs")
	}

	log.Debug().
		Str("address", cfg.APIServer.Address).
		Int64("user_id", cfg.APIServer.UserID).
		Ints64("groups", cfg.App.Groups).
		Msg("received configs")

	registry := remote.NewRegistry()
	registry.AddLibrary(models.LibraryUser, cfg.APIServer.UserID)
	for _, groupID := range cfg.App.Groups {
		registry.AddLibrary(models.LibraryGroup, groupID)
	}

	handler := apihttp.NewHandler(registry, cfg.App.APIKey, buildVersion, log)
	srv, err := server.NewServer(log, server.NewHTTPServer("api", cfg.APIServer.Address, handler.Init(), log))
	if err != nil {
		log.Fatal().Err(err).Msg("error creating server")
	}

	srv.RunServer()
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

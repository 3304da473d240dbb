package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/loomworks/stitchsync/internal/adapter"
	"github.com/loomworks/stitchsync/internal/config"
	"github.com/loomworks/stitchsync/internal/logger"
	"github.com/loomworks/stitchsync/internal/service"
	"github.com/loomworks/stitchsync/internal/store"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	printBuildInfo()

	log := logger.NewClientLogger("stitchsync-client")
	cfg, err := config.GetClientConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("error getting configs")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api, err := adapter.NewHTTPDesignAPI(cfg.API, log)
	if err != nil {
		log.Fatal().Err(err).Msg("create remote design api")
	}
	if cfg.API.Token != "" {
		api.SetToken(cfg.API.Token)
	}

	connectivity := adapter.NewConnectivityMonitor(cfg.API, log)

	storages, err := store.NewStorages(ctx, cfg.Storage, log)
	if err != nil {
		log.Fatal().Err(err).Msg("create local storage")
	}

	services := service.NewClientServices(storages, api, connectivity, cfg.Sync, log)
	defer services.Sync.Close()

	if err := services.Recover(ctx); err != nil {
		log.Fatal().Err(err).Msg("recover previous session state")
	}

	unsubscribe := services.Sync.Subscribe(func(e service.Event) {
		log.Info().
			Str("event", string(e.Type)).
			Str("design_id", e.DesignID).
			Int("pending", e.Pending).
			Msg("sync event")
	})
	defer unsubscribe()

	connectivity.Start(ctx)
	defer connectivity.Stop()

	services.SyncJob.Start(ctx, cfg.Sync.Interval)
	defer services.SyncJob.Stop()

	// opportunistic first drain; the job and connectivity triggers take
	// over from here
	services.Sync.SyncNow(ctx)

	log.Info().Msg("stitchsync client running")
	<-ctx.Done()
	log.Info().Msg("shutting down")
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

package rtpcast

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/m1k1o/go-rtpcast/internal/api"
	"github.com/m1k1o/go-rtpcast/internal/config"
	"github.com/m1k1o/go-rtpcast/internal/server"
	"github.com/m1k1o/go-rtpcast/pkg/broadcast"
	"github.com/m1k1o/go-rtpcast/pkg/devices"
)

// extra time given to the encoder on shutdown after the stop timeout elapsed
const shutdownGrace = 2 * time.Second

var Service *Main

func init() {
	Service = &Main{
		BroadcastConfig: &config.Broadcast{},
		ServerConfig:    &config.Server{},
	}
}

type Main struct {
	// guarded by mu once the config file is watched
	BroadcastConfig *config.Broadcast
	ServerConfig    *config.Server
	mu              sync.Mutex

	logger           zerolog.Logger
	broadcastManager *broadcast.ManagerCtx
	apiManager       *api.ApiManagerCtx
	server           *server.ServerManagerCtx
}

func (main *Main) Preflight() {
	main.logger = log.With().Str("service", "main").Logger()
}

// LoadConfig reads configuration and applies it to running managers.
// Reloaded broadcast options take effect on the next start.
func (main *Main) LoadConfig() {
	main.mu.Lock()
	defer main.mu.Unlock()

	main.BroadcastConfig.Set()
	main.ServerConfig.Set()

	if main.broadcastManager == nil {
		return
	}

	cfg := *main.BroadcastConfig
	main.broadcastManager.SetOptions(cfg.Options())
	main.apiManager.Configure(cfg, devices.New(cfg.Devices()))
	main.logger.Info().Msg("configuration reloaded")
}

// Broadcast returns a copy of the current broadcast configuration.
func (main *Main) Broadcast() config.Broadcast {
	main.mu.Lock()
	defer main.mu.Unlock()

	return *main.BroadcastConfig
}

// Server returns a copy of the current server configuration.
func (main *Main) Server() config.Server {
	main.mu.Lock()
	defer main.mu.Unlock()

	return *main.ServerConfig
}

func (main *Main) Start() {
	main.mu.Lock()
	defer main.mu.Unlock()

	cfg := *main.BroadcastConfig
	main.broadcastManager = broadcast.New(cfg.Options())

	main.apiManager = api.New(
		cfg,
		main.ServerConfig.RateLimit,
		main.broadcastManager,
		devices.New(cfg.Devices()),
	)

	serverConfig := *main.ServerConfig
	main.server = server.New(&serverConfig)
	main.server.Mount(main.apiManager.Mount)
	main.server.Start()
}

func (main *Main) Shutdown() {
	if err := main.server.Shutdown(); err != nil {
		main.logger.Err(err).Msg("server shutdown with an error")
	} else {
		main.logger.Debug().Msg("server shutdown")
	}

	ctx, cancel := context.WithTimeout(context.Background(), main.Broadcast().StopTimeout+shutdownGrace)
	defer cancel()

	if err := main.broadcastManager.Shutdown(ctx); err != nil {
		main.logger.Err(err).Msg("broadcast shutdown with an error")
	} else {
		main.logger.Debug().Msg("broadcast shutdown")
	}
}

func (main *Main) ServeCommand(cmd *cobra.Command, args []string) {
	main.logger.Info().Msg("starting main server")
	main.Start()
	main.logger.Info().Msg("main ready")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	sig := <-quit

	main.logger.Warn().Msgf("received %s, attempting graceful shutdown", sig)
	main.Shutdown()
	main.logger.Info().Msg("shutdown complete")
}

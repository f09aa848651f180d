package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/m1k1o/go-rtpcast/internal/config"
	"github.com/m1k1o/go-rtpcast/pkg/broadcast"
	"github.com/m1k1o/go-rtpcast/pkg/media"
)

type DeviceLister interface {
	List(ctx context.Context) ([]string, error)
}

type ApiManagerCtx struct {
	logger    zerolog.Logger
	rateLimit int
	broadcast broadcast.Manager

	mu      sync.RWMutex
	ffprobe string
	devices DeviceLister
	library *media.Library
}

func New(config config.Broadcast, rateLimit int, manager broadcast.Manager, devices DeviceLister) *ApiManagerCtx {
	a := &ApiManagerCtx{
		logger:    log.With().Str("module", "api").Logger(),
		rateLimit: rateLimit,
		broadcast: manager,
	}

	a.Configure(config, devices)
	return a
}

// Configure swaps the file and device collaborators, requests in flight keep the previous ones.
func (a *ApiManagerCtx) Configure(config config.Broadcast, devices DeviceLister) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.ffprobe = config.FFprobeBinary
	a.devices = devices
	a.library = media.NewLibrary(config.MediaDir)
}

func (a *ApiManagerCtx) files() (*media.Library, string) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.library, a.ffprobe
}

func (a *ApiManagerCtx) deviceLister() DeviceLister {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.devices
}

func (a *ApiManagerCtx) Mount(r *chi.Mux) {
	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		//nolint
		w.Write([]byte("pong"))
	})

	r.Route("/api", func(r chi.Router) {
		if a.rateLimit > 0 {
			r.Use(httprate.LimitByIP(a.rateLimit, time.Minute))
		}

		r.Route("/broadcast", a.Broadcast)
		r.Route("/files", a.Files)
		r.Get("/devices", a.listDevices)
	})
}

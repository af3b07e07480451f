package internal

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/hbomb79/Mediagate/internal/api"
	"github.com/hbomb79/Mediagate/internal/delivery"
	"github.com/hbomb79/Mediagate/internal/http/fetch"
	"github.com/hbomb79/Mediagate/internal/ytdlp"
	"github.com/hbomb79/Mediagate/pkg/logger"
	"github.com/spf13/afero"
)

var log = logger.Get("Core")

type RunnableService interface {
	Run(context.Context) error
}

// Mediagate represents the top-level object for the server, and is responsible
// for wiring the yt-dlp client, the delivery service and the REST gateway
// together.
type mediagateImpl struct {
	config      MediagateConfig
	restGateway RunnableService
}

func New(config MediagateConfig) (*mediagateImpl, error) {
	logger.SetMinLoggingLevel(config.logLevel())
	log.Emit(logger.DEBUG, "Bootstrapping Mediagate services using config: %#v\n", config)

	tempDir := config.Delivery.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}

	fs := afero.NewOsFs()
	client := ytdlp.NewClient(ytdlp.NewInvoker(config.YtDlp.BinPath), config.YtDlp, config.MaxOutputBytes())
	provisioner := ytdlp.NewProvisioner(config.Cookies, fs, tempDir)
	fetcher := fetch.NewClient(config.Fetch)

	service, err := delivery.New(config.Delivery, client, provisioner, fetcher, fs)
	if err != nil {
		return nil, fmt.Errorf("failed to construct delivery service: %w", err)
	}

	return &mediagateImpl{
		config:      config,
		restGateway: api.NewRestGateway(&config.RestConfig, service),
	}, nil
}

// Run will start Mediagate by bringing up the REST gateway.
//
// This function will not return until Mediagate is stopped.
// To stop Mediagate, the provided context must be cancelled. Errors from which
// Mediagate cannot recover will also cause it to stop, and are returned.
func (mediagate *mediagateImpl) Run(parent context.Context) error {
	ctx, cancel := context.WithCancelCause(parent)
	defer cancel(nil)

	crashHandler := func(label string, err error) {
		log.Emit(logger.FATAL, "Service crash (%s)! %s\n", label, err.Error())
		cancel(fmt.Errorf("%s: %w", label, err))
	}

	wg := &sync.WaitGroup{}
	mediagate.spawnAsyncService(ctx, wg, mediagate.restGateway, "rest-gateway", crashHandler)
	log.Emit(logger.SUCCESS, "Mediagate services spawned!\n")

	wg.Wait()
	log.Emit(logger.STOP, "Mediagate services stopped\n")

	if cause := context.Cause(ctx); cause != nil && cause != ctx.Err() {
		return cause
	}

	return nil
}

// spawnAsyncService will run the provided service as it's own
// go-routine, ensuring that the service waitgroup is updated correctly
func (mediagate *mediagateImpl) spawnAsyncService(ctx context.Context, wg *sync.WaitGroup, service RunnableService, serviceLabel string, crashHandler func(string, error)) {
	log.Emit(logger.NEW, "Spawning %s\n", serviceLabel)
	wg.Add(1)

	go func(wg *sync.WaitGroup, label string, crash func(string, error)) {
		defer wg.Done()
		defer func() {
			if r := recover(); r != nil {
				crash(label, fmt.Errorf("panic %v", r))
			}
		}()

		if err := service.Run(ctx); err != nil {
			crash(label, err)
		}
	}(wg, serviceLabel, crashHandler)
}

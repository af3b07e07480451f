package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/hbomb79/Mediagate/internal/api/apierr"
	"github.com/hbomb79/Mediagate/internal/api/extract"
	"github.com/hbomb79/Mediagate/internal/api/health"
	"github.com/hbomb79/Mediagate/internal/api/images"
	"github.com/hbomb79/Mediagate/internal/api/streams"
	"github.com/hbomb79/Mediagate/pkg/logger"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

var log = logger.Get("API")

type (
	RestConfig struct {
		HostAddr  string `yaml:"host" env:"HOST_ADDR" env-default:"0.0.0.0" env-description:"Address the HTTP server binds to"`
		HostPort  string `yaml:"port" env:"PORT" env-default:"3000" env-description:"Port the HTTP server listens on"`
		BodyLimit string `yaml:"request_body_limit" env:"REQUEST_BODY_LIMIT" env-default:"256KiB" env-description:"Maximum accepted request body size"`
	}

	controller interface {
		SetRoutes(*echo.Group)
	}

	// deliveryService represents a union of all the controller service requirements
	deliveryService interface {
		extract.Service
		streams.Service
		images.Service
	}

	// The RestGateway is a thin-wrapper around the Echo HTTP router. It's sole responsbility
	// is to create the routes Mediagate exposes and to translate the delivery services
	// results in to HTTP responses.
	RestGateway struct {
		config            *RestConfig
		ec                *echo.Echo
		healthController  controller
		extractController controller
		streamsController controller
		imagesController  controller
	}
)

// Address returns the host:port the gateway will listen on.
func (config *RestConfig) Address() string {
	return fmt.Sprintf("%s:%s", config.HostAddr, config.HostPort)
}

// NewRestGateway constructs the Echo router and populates it with all the
// routes defined by the various controllers.
func NewRestGateway(config *RestConfig, service deliveryService) *RestGateway {
	ec := echo.New()
	ec.OnAddRouteHandler = func(host string, route echo.Route, handler echo.HandlerFunc, middleware []echo.MiddlewareFunc) {
		log.Emit(logger.DEBUG, "Registered new route %s %s\n", route.Method, route.Path)
	}
	ec.HidePort = true
	ec.HideBanner = true

	validate := validator.New()
	ec.HTTPErrorHandler = apierr.GetHTTPErrorHandler(ec.DefaultHTTPErrorHandler)

	gateway := &RestGateway{
		config:            config,
		ec:                ec,
		healthController:  health.New(),
		extractController: extract.New(validate, service),
		streamsController: streams.New(service),
		imagesController:  images.New(service),
	}

	ec.Use(middleware.Recover())
	ec.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	ec.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURIPath:   true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(ec echo.Context, v middleware.RequestLoggerValues) error {
			status := logger.INFO
			if v.Status >= http.StatusInternalServerError {
				status = logger.WARNING
			}

			log.Emit(status, "%s %s -> %d (%s) [%s]\n", v.Method, v.URIPath, v.Status, v.Latency, v.RequestID)
			return nil
		},
	}))
	ec.Use(middleware.BodyLimit(config.BodyLimit))

	root := ec.Group("")
	gateway.healthController.SetRoutes(root)
	gateway.extractController.SetRoutes(root)
	gateway.streamsController.SetRoutes(root)
	gateway.imagesController.SetRoutes(root)

	return gateway
}

// ServeHTTP allows the gateway to be driven directly, without binding
// a listener.
func (gateway *RestGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	gateway.ec.ServeHTTP(w, r)
}

func (gateway *RestGateway) Run(parentCtx context.Context) error {
	ctx, ctxCancel := context.WithCancelCause(parentCtx)
	wg := &sync.WaitGroup{}

	// Start echo router
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Emit(logger.NEW, "Listening on %s\n", gateway.config.Address())
		if err := gateway.ec.Start(gateway.config.Address()); err != nil && err != http.ErrServerClosed {
			ctxCancel(err)
		}
	}()

	// Start thread to listen for context cancellation
	go func(ec *echo.Echo) {
		<-ctx.Done()
		ec.Close()
	}(gateway.ec)

	wg.Wait()

	// Return cancellation cause if any, otherwise nil as parent context
	// cancellation is not an error case we should report.
	if cause := context.Cause(ctx); cause != ctx.Err() {
		return cause
	}

	return nil
}

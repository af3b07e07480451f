package extract

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/hbomb79/Mediagate/internal/api/apierr"
	"github.com/hbomb79/Mediagate/internal/delivery"
	"github.com/labstack/echo/v4"
)

type (
	// Request is the body accepted by both extraction endpoints. The URL is
	// left untyped as the sanitizer is responsible for rejecting anything
	// other than a string.
	Request struct {
		URL any `json:"url" validate:"required"`
	}

	Service interface {
		Info(ctx context.Context, rawURL any) (*delivery.InfoResult, error)
		Media(ctx context.Context, rawURL any) (*delivery.MediaResult, error)
	}

	Controller struct {
		service  Service
		validate *validator.Validate
	}
)

var (
	infoMessages  = apierr.Messages{BadInput: "Bad URL", Failure: "Failed"}
	mediaMessages = apierr.Messages{BadInput: "Bad URL", Failure: "Media extraction failed"}
)

func New(validate *validator.Validate, service Service) *Controller {
	return &Controller{service: service, validate: validate}
}

func (controller *Controller) SetRoutes(eg *echo.Group) {
	eg.POST("/info", controller.info)
	eg.POST("/media", controller.media)
}

// info resolves the title, extractor and direct media URL for the
// post provided.
func (controller *Controller) info(ec echo.Context) error {
	request, err := controller.bind(ec)
	if err != nil {
		return apierr.Translate(err, infoMessages)
	}

	result, err := controller.service.Info(ec.Request().Context(), request.URL)
	if err != nil {
		return apierr.Translate(err, infoMessages)
	}

	return ec.JSON(http.StatusOK, result)
}

// media lists every image and video URL found in the post provided.
func (controller *Controller) media(ec echo.Context) error {
	request, err := controller.bind(ec)
	if err != nil {
		return apierr.Translate(err, mediaMessages)
	}

	result, err := controller.service.Media(ec.Request().Context(), request.URL)
	if err != nil {
		return apierr.Translate(err, mediaMessages)
	}

	return ec.JSON(http.StatusOK, result)
}

// bind decodes the request body. A body which cannot be decoded, or
// which does not carry a URL, is reported as a ValidationError.
func (controller *Controller) bind(ec echo.Context) (*Request, error) {
	var request Request
	if err := ec.Bind(&request); err != nil {
		return nil, &delivery.ValidationError{Value: nil}
	}

	if err := controller.validate.Struct(request); err != nil {
		return nil, &delivery.ValidationError{Value: request.URL}
	}

	return &request, nil
}

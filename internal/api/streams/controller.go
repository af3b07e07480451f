package streams

import (
	"context"
	"net/http"

	"github.com/hbomb79/Mediagate/internal/api/apierr"
	"github.com/labstack/echo/v4"
)

type (
	Service interface {
		Redirect(ctx context.Context, rawURL any) (string, error)
		ServeDownload(w http.ResponseWriter, r *http.Request, rawURL any) error
		ServeImageArchive(w http.ResponseWriter, r *http.Request, rawURL any) error
	}

	Controller struct{ service Service }
)

var (
	streamMessages   = apierr.Messages{BadInput: "Bad URL", Failure: "Stream failed"}
	downloadMessages = apierr.Messages{BadInput: "Bad URL", Failure: "Download failed"}
	archiveMessages  = apierr.Messages{BadInput: "Bad post url", Failure: "zip failed"}
)

func New(service Service) *Controller {
	return &Controller{service: service}
}

func (controller *Controller) SetRoutes(eg *echo.Group) {
	eg.GET("/stream", controller.stream)
	eg.GET("/download", controller.download)
	eg.GET("/x-images", controller.archive)
}

// stream redirects the caller to the direct media URL so that the
// client fetches the media itself.
func (controller *Controller) stream(ec echo.Context) error {
	direct, err := controller.service.Redirect(ec.Request().Context(), queryParam(ec, "url"))
	if err != nil {
		return apierr.Translate(err, streamMessages)
	}

	return ec.Redirect(http.StatusFound, direct)
}

func (controller *Controller) download(ec echo.Context) error {
	err := controller.service.ServeDownload(ec.Response(), ec.Request(), queryParam(ec, "url"))
	return apierr.Translate(err, downloadMessages)
}

func (controller *Controller) archive(ec echo.Context) error {
	err := controller.service.ServeImageArchive(ec.Response(), ec.Request(), queryParam(ec, "post"))
	return apierr.Translate(err, archiveMessages)
}

// queryParam returns the query parameter with the given name, or nil if
// it was not supplied at all.
func queryParam(ec echo.Context, name string) any {
	if !ec.QueryParams().Has(name) {
		return nil
	}

	return ec.QueryParam(name)
}

package images

import (
	"net/http"

	"github.com/hbomb79/Mediagate/internal/api/apierr"
	"github.com/labstack/echo/v4"
)

type (
	Service interface {
		ServeImage(w http.ResponseWriter, r *http.Request, rawURL any) error
	}

	Controller struct{ service Service }
)

var imageMessages = apierr.Messages{BadInput: "Bad image url", Failure: "image download failed"}

func New(service Service) *Controller {
	return &Controller{service: service}
}

func (controller *Controller) SetRoutes(eg *echo.Group) {
	eg.GET("/image", controller.proxy)
}

func (controller *Controller) proxy(ec echo.Context) error {
	var rawURL any
	if ec.QueryParams().Has("url") {
		rawURL = ec.QueryParam("url")
	}

	return apierr.Translate(controller.service.ServeImage(ec.Response(), ec.Request(), rawURL), imageMessages)
}

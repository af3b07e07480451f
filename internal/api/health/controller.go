package health

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type (
	StatusDto struct {
		Ok      bool   `json:"ok"`
		Message string `json:"message"`
	}

	Controller struct{}
)

func New() *Controller {
	return &Controller{}
}

func (controller *Controller) SetRoutes(eg *echo.Group) {
	eg.GET("/", controller.status)
}

func (controller *Controller) status(ec echo.Context) error {
	return ec.JSON(http.StatusOK, StatusDto{Ok: true, Message: "ytdlp api running"})
}

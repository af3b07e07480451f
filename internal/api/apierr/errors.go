package apierr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/hbomb79/Mediagate/internal/delivery"
	"github.com/hbomb79/Mediagate/internal/http/fetch"
	"github.com/hbomb79/Mediagate/pkg/logger"
	"github.com/labstack/echo/v4"
)

const upstreamFailureMessage = "Failed fetching image"

type (
	APIError struct {
		// Human readable error display message
		Message string `json:"error"`

		// Diagnostic detail describing the underlying failure, if any
		Details string `json:"details,omitempty"`

		// The HTTP status an upstream server responded with, only present
		// when the failure is due to a remote fetch
		UpstreamStatus int `json:"status,omitempty"`

		// Used to alter the HTTP response status in accordance with the error
		Status int `json:"-"`

		// Additional message for internal logging only. Will not be included in the message
		// sent to the user.
		InternalMessage string `json:"-"`
	}

	// Messages are the route specific error messages used when translating
	// a delivery failure in to an APIError.
	Messages struct {
		// BadInput is used when the URL supplied by the caller was rejected
		BadInput string

		// Failure is used for any other failure (typically the tool failing)
		Failure string
	}
)

// Error satisifies the Go error interface and simply exposes the
// message contained by this APIError.
func (err APIError) Error() string {
	return fmt.Sprintf("api error: %s", err.Message)
}

// Translate maps an error returned by the delivery service to the APIError
// which should be returned to the caller:
//   - ValidationError: 400 with messages.BadInput
//   - NotFoundError: 404 with the reason given
//   - UpstreamError: 502 with the upstream status
//   - anything else: 500 with messages.Failure and the error as the detail
func Translate(err error, messages Messages) error {
	if err == nil {
		return nil
	}

	var (
		validationErr *delivery.ValidationError
		notFoundErr   *delivery.NotFoundError
		upstreamErr   *fetch.UpstreamError
	)
	switch {
	case errors.As(err, &validationErr):
		return APIError{Status: http.StatusBadRequest, Message: messages.BadInput, InternalMessage: err.Error()}
	case errors.As(err, &notFoundErr):
		return APIError{Status: http.StatusNotFound, Message: notFoundErr.Reason}
	case errors.As(err, &upstreamErr):
		return APIError{Status: http.StatusBadGateway, Message: upstreamFailureMessage, UpstreamStatus: upstreamErr.Status, InternalMessage: err.Error()}
	default:
		return APIError{Status: http.StatusInternalServerError, Message: messages.Failure, Details: err.Error(), InternalMessage: err.Error()}
	}
}

// GetHTTPErrorHandler returns an echo HTTP error handler
// which understands how to interpret APIError. If an error is
// provided which is not recognized, it will be passed off to the
// fallback HTTP handler provided.
//
// Once a response has been committed (e.g. a zip stream is part way
// through) the status can no longer be changed, so the error is logged
// and nothing is written.
func GetHTTPErrorHandler(fallbackHandler echo.HTTPErrorHandler) echo.HTTPErrorHandler {
	logger := logger.Get("API")
	return func(err error, ctx echo.Context) {
		if ctx.Response().Committed {
			logger.Errorf("%s request to %s failed after the response was committed: %v\n", ctx.Request().Method, ctx.Request().RequestURI, err)
			return
		}

		var apiErr APIError
		if ok := errors.As(err, &apiErr); ok {
			if apiErr.Status == 0 {
				apiErr.Status = http.StatusInternalServerError
			}
			if len(apiErr.Message) == 0 {
				apiErr.Message = http.StatusText(apiErr.Status)
			}
			if len(apiErr.InternalMessage) > 0 {
				logger.Warnf("Request failure (HTTP %d), internal error: %s\n", apiErr.Status, apiErr.InternalMessage)
			}

			if err := ctx.JSON(apiErr.Status, apiErr); err == nil {
				return
			}
		}

		// Not an APIError (e.g. echo's own 404/405 or a body limit
		// rejection), let Echo handle it as it normally would.
		logger.Debugf(
			"%s request to %s caused error response which is not an APIError. Falling back to default HTTP error handling\n",
			ctx.Request().Method, ctx.Request().RequestURI,
		)
		fallbackHandler(err, ctx)
	}
}

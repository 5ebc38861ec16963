package authhandler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/authrelay/services/identity"
	"github.com/tech-arch1tect/authrelay/services/logging"
	"go.uber.org/zap"
)

// ErrorHandler renders every error as {success:false,message}. Causes of
// internal errors are logged and never sent to the client.
func ErrorHandler(logger *logging.Service) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := render(err)
		if status >= http.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.Error(err))
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			logger.Warn("failed to write error response", zap.Error(err))
		}
	}
}

func render(err error) (int, ErrorResponse) {
	var idErr *identity.Error
	if errors.As(err, &idErr) {
		if idErr.Kind == identity.KindInternal {
			return http.StatusInternalServerError, ErrorResponse{Message: "Internal Server Error"}
		}
		body := ErrorResponse{Message: idErr.Message}
		if idErr.Kind == identity.KindValidation {
			body.Errors = idErr.Fields
		}
		return idErr.Kind.HTTPStatus(), body
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Code >= http.StatusInternalServerError {
			return he.Code, ErrorResponse{Message: http.StatusText(he.Code)}
		}
		return he.Code, ErrorResponse{Message: httpErrorMessage(he)}
	}

	return http.StatusInternalServerError, ErrorResponse{Message: "Internal Server Error"}
}

func httpErrorMessage(he *echo.HTTPError) string {
	switch {
	case he.Code == http.StatusNotFound:
		return "Not found"
	case he.Message == nil:
		return http.StatusText(he.Code)
	}
	if msg, ok := he.Message.(string); ok && msg != "" {
		return msg
	}
	return http.StatusText(he.Code)
}

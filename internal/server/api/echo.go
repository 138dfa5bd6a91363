package api

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/dmitrijs2005/gophrelay/internal/common"
	"github.com/dmitrijs2005/gophrelay/internal/logging"
	goerrors "github.com/go-errors/errors"
	"github.com/go-playground/validator/v10"
	"github.com/karagenc/fj4echo"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// NewEchoApp builds the echo instance shared by the gateway and the storage
// node. Every request gets a fresh security slot.
func NewEchoApp(l logging.Logger) *echo.Echo {
	app := echo.New()
	app.HideBanner = true
	app.HidePort = true

	app.Use(middleware.Recover())
	app.Use(middleware.Secure())
	app.Use(SecurityContext())

	app.JSONSerializer = fj4echo.New()
	app.HTTPErrorHandler = NewHTTPErrorHandler(l)

	return app
}

// NewHTTPErrorHandler renders errors as ErrorResponse. Errors carrying a stack
// are logged with it and answered with a bare 500.
func NewHTTPErrorHandler(l logging.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		ctx := c.Request().Context()

		var (
			resp   *ErrorResponse
			httpEr *echo.HTTPError
			stackE *goerrors.Error
		)
		switch {
		case errors.As(err, &resp):
		case errors.As(err, &httpEr):
			resp = NewErrorResponse(httpEr.Code, fmt.Sprint(httpEr.Message))
		case errors.As(err, &stackE):
			l.Error(ctx, stackE.Error(), "stack", stackE.ErrorStack())
			resp = InternalServerError(http.StatusText(http.StatusInternalServerError))
		case errors.Is(err, common.ErrorUnauthorized):
			resp = UnauthorizedError(http.StatusText(http.StatusUnauthorized))
		case errors.Is(err, common.ErrorNotFound):
			resp = NotFoundError(http.StatusText(http.StatusNotFound))
		default:
			l.Error(ctx, "request failed", "path", c.Path(), "error", err.Error())
			resp = InternalServerError(http.StatusText(http.StatusInternalServerError))
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(resp.Code)
		} else {
			err = c.JSON(resp.Code, resp)
		}
		if err != nil {
			l.Warn(ctx, "unable to write error response", "error", err.Error())
		}
	}
}

// NewValidator reports fields by their query or json tag.
func NewValidator() *validator.Validate {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		tag := fld.Tag.Get("query")
		if tag == "" {
			tag = fld.Tag.Get("json")
		}
		name := strings.SplitN(tag, ",", 2)[0]
		switch name {
		case "-":
			return ""
		case "":
			return fld.Name
		}
		return name
	})
	return validate
}

func friendlyValidationErrors(err error) map[string]string {
	out := map[string]string{}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		out["_"] = err.Error()
		return out
	}
	for _, e := range ve {
		switch e.Tag() {
		case "required":
			out[e.Field()] = "This field is required"
		case "max":
			out[e.Field()] = "Must be at most " + e.Param() + " characters"
		default:
			out[e.Field()] = "This field is invalid"
		}
	}
	return out
}

package handler

import (
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/theater-ticket-booking/internal/service"
)

// respondError translates a service error into the JSON error shape used by
// every endpoint.  Unknown errors are logged by Echo upstream and surface as
// a plain 500.
func respondError(c echo.Context, err error) error {
    var se *service.Error
    if !errors.As(err, &se) {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
    }
    switch se.Kind {
    case service.KindValidation:
        return c.JSON(http.StatusBadRequest, echo.Map{"error": se.Message})
    case service.KindNotFound:
        return c.JSON(http.StatusNotFound, echo.Map{"error": se.Message})
    case service.KindConflict:
        return c.JSON(http.StatusConflict, echo.Map{"error": se.Message})
    case service.KindUnavailable:
        return c.JSON(http.StatusBadGateway, echo.Map{"error": se.Message})
    default:
        c.Logger().Errorf("internal: %v", se)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
    }
}

package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-reservation/internal/model"
	"github.com/iliyamo/venue-reservation/internal/repository"
	"github.com/iliyamo/venue-reservation/internal/service"
)

// getUserID extracts the user_id claim stored by the JWT middleware.  JWT
// numeric claims arrive as float64; seeded tokens sometimes carry strings.
func getUserID(c echo.Context) (uint64, error) {
	switch t := c.Get("user_id").(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// pathID parses the :id path parameter.
func pathID(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}

// writeBookingError maps the booking engine's typed errors onto HTTP
// responses.  Everything it does not recognize is a 500.
func writeBookingError(c echo.Context, err error) error {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{
			"error":   "validation_failed",
			"field":   verr.Field,
			"message": verr.Reason,
		})
	}
	var terr *model.InvalidTransitionError
	if errors.As(err, &terr) {
		return c.JSON(http.StatusConflict, echo.Map{
			"error":     "invalid_status_transition",
			"current":   terr.Current,
			"requested": terr.Requested,
		})
	}
	switch {
	case errors.Is(err, repository.ErrInsufficientInventory):
		return c.JSON(http.StatusConflict, echo.Map{"error": "insufficient_inventory", "message": "the selected time slot is fully booked"})
	case errors.Is(err, repository.ErrOrderNotFound),
		errors.Is(err, repository.ErrPackageNotFound),
		errors.Is(err, repository.ErrTierNotFound),
		errors.Is(err, repository.ErrSlotNotFound),
		errors.Is(err, repository.ErrAddonNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found", "message": err.Error()})
	}
	c.Logger().Errorf("booking: %v", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal"})
}

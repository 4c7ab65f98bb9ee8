package routes

import (
	"net/http"
	"strings"

	"github.com/chmielvu/Forge-Text/internal/server/middleware"

	"github.com/labstack/echo/v4"
)

// GetGraphHandler returns the full graph including layout positions.
func GetGraphHandler(c echo.Context) error {
	ctrl := c.(*middleware.AppContext).App.Controller
	return c.JSON(http.StatusOK, ctrl.Graph().Get())
}

func GetSpotlightHandler(c echo.Context) error {
	type getSpotlightParams struct {
		Subject  string `query:"subject"`
		Location string `query:"location"`
		Active   string `query:"active"`
	}

	params := new(getSpotlightParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}

	var active []string
	for _, a := range strings.Split(params.Active, ",") {
		if a = strings.TrimSpace(a); a != "" {
			active = append(active, a)
		}
	}

	ctrl := c.(*middleware.AppContext).App.Controller
	return c.JSON(http.StatusOK, ctrl.Spotlight(params.Subject, params.Location, active))
}

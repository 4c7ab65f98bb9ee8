package routes

import (
	"net/http"

	"github.com/chmielvu/Forge-Text/internal/server/middleware"

	"github.com/labstack/echo/v4"
)

func GetPathHandler(c echo.Context) error {
	type getPathParams struct {
		From string `query:"from" validate:"required"`
		To   string `query:"to" validate:"required"`
	}

	params := new(getPathParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	ctrl := c.(*middleware.AppContext).App.Controller
	path, ok := ctrl.DominancePath(params.From, params.To)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "No path between entities"})
	}
	return c.JSON(http.StatusOK, map[string][]string{"path": path})
}

func GetCommunitiesHandler(c echo.Context) error {
	ctrl := c.(*middleware.AppContext).App.Controller
	return c.JSON(http.StatusOK, ctrl.Communities())
}

func PostCentralityHandler(c echo.Context) error {
	ctrl := c.(*middleware.AppContext).App.Controller
	return c.JSON(http.StatusOK, map[string]bool{"betweenness": ctrl.UpdateMetrics()})
}

// PostPruneHandler removes edges below the threshold; without one the
// configured threshold applies.
func PostPruneHandler(c echo.Context) error {
	type postPruneBody struct {
		Threshold float64 `json:"threshold" validate:"gte=0,lte=1"`
	}

	body := new(postPruneBody)
	if err := c.Bind(body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	ctrl := c.(*middleware.AppContext).App.Controller
	return c.JSON(http.StatusOK, map[string]int{"removed": ctrl.Prune(body.Threshold)})
}

func PostLayoutHandler(c echo.Context) error {
	type postLayoutBody struct {
		Iterations int `json:"iterations" validate:"gte=0,lte=1000"`
	}

	body := new(postLayoutBody)
	if err := c.Bind(body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	ctrl := c.(*middleware.AppContext).App.Controller
	if err := ctrl.RunLayout(c.Request().Context(), body.Iterations); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}

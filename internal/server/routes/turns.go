package routes

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/chmielvu/Forge-Text/internal/server/middleware"
	"github.com/chmielvu/Forge-Text/pkg/engine"
	"github.com/chmielvu/Forge-Text/pkg/mutation"
	"github.com/chmielvu/Forge-Text/pkg/query"

	"github.com/labstack/echo/v4"
)

// PostTurnHandler applies one generator turn and returns the tension and
// augmented prompt for the next one.
func PostTurnHandler(c echo.Context) error {
	type postTurnBody struct {
		Query     string          `json:"query"`
		Mode      string          `json:"mode" validate:"omitempty,oneof=local global"`
		Hops      int             `json:"hops" validate:"gte=-1,lte=5"`
		Mutations json.RawMessage `json:"mutations"`
	}

	body := new(postTurnBody)
	if err := c.Bind(body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	var muts []mutation.Mutation
	if len(body.Mutations) > 0 && string(body.Mutations) != "null" {
		var err error
		if muts, err = mutation.Decode(string(body.Mutations)); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
	}

	ctrl := c.(*middleware.AppContext).App.Controller
	res := ctrl.ProcessTurn(c.Request().Context(), engine.TurnInput{
		Query:     body.Query,
		Mutations: muts,
		Retrieve:  query.RetrieveOptions{Mode: query.Mode(body.Mode), Hops: body.Hops},
	})
	return c.JSON(http.StatusOK, res)
}

// PostMutationsHandler applies a raw mutation batch without advancing the
// turn.
func PostMutationsHandler(c echo.Context) error {
	raw, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	ctrl := c.(*middleware.AppContext).App.Controller
	report, err := ctrl.ApplyBatch(c.Request().Context(), string(raw))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, report)
}

func GetMutationSchemaHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, mutation.BatchSchema())
}

package routes

import (
	"net/http"

	"github.com/chmielvu/Forge-Text/internal/server/middleware"
	"github.com/chmielvu/Forge-Text/pkg/query"

	"github.com/labstack/echo/v4"
)

func PostQueryHandler(c echo.Context) error {
	type postQueryBody struct {
		Query string `json:"query" validate:"required"`
		Mode  string `json:"mode" validate:"omitempty,oneof=local global"`
		Hops  int    `json:"hops" validate:"gte=-1,lte=5"`
		Trace bool   `json:"trace"`
	}
	type postQueryResponse struct {
		Result query.Result              `json:"result"`
		Prompt string                    `json:"prompt"`
		Trace  *query.QueryTraceSnapshot `json:"trace,omitempty"`
	}

	body := new(postQueryBody)
	if err := c.Bind(body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	opts := query.RetrieveOptions{Mode: query.Mode(body.Mode), Hops: body.Hops}
	var trace *query.QueryTrace
	if body.Trace {
		trace = query.NewQueryTrace()
		opts.Tracer = trace
	}

	ctrl := c.(*middleware.AppContext).App.Controller
	res := ctrl.Retrieve(c.Request().Context(), body.Query, opts)
	out := postQueryResponse{Result: res, Prompt: ctrl.Indexer().AugmentPrompt(res)}
	if trace != nil {
		snap := trace.Snapshot()
		out.Trace = &snap
	}
	return c.JSON(http.StatusOK, out)
}

func GetResolveHandler(c echo.Context) error {
	type getResolveParams struct {
		Text string `query:"text" validate:"required"`
	}

	params := new(getResolveParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	ctrl := c.(*middleware.AppContext).App.Controller
	id, ok := ctrl.ResolveEntityID(params.Text)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "No matching entity"})
	}
	return c.JSON(http.StatusOK, map[string]string{"id": id})
}

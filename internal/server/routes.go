package server

import (
	"github.com/chmielvu/Forge-Text/internal/server/middleware"
	"github.com/chmielvu/Forge-Text/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo, apiKey string) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api", middleware.APIKeyMiddleware(apiKey))

	// Graph routes
	apiRoutes.GET("/graph", routes.GetGraphHandler)
	apiRoutes.GET("/spotlight", routes.GetSpotlightHandler)

	// Turn and mutation routes
	apiRoutes.POST("/turns", routes.PostTurnHandler)
	apiRoutes.POST("/mutations", routes.PostMutationsHandler)
	apiRoutes.GET("/schema/mutations", routes.GetMutationSchemaHandler)

	// Retrieval routes
	apiRoutes.POST("/query", routes.PostQueryHandler)
	apiRoutes.GET("/resolve", routes.GetResolveHandler)

	// Analytics routes
	apiRoutes.GET("/path", routes.GetPathHandler)
	apiRoutes.GET("/communities", routes.GetCommunitiesHandler)
	apiRoutes.POST("/analytics/centrality", routes.PostCentralityHandler)
	apiRoutes.POST("/analytics/prune", routes.PostPruneHandler)
	apiRoutes.POST("/layout", routes.PostLayoutHandler)

	// Snapshot routes
	apiRoutes.GET("/snapshots", routes.GetSnapshotsHandler)
	apiRoutes.PUT("/snapshots/:name", routes.PutSnapshotHandler)
	apiRoutes.GET("/snapshots/:name", routes.GetSnapshotHandler)
	apiRoutes.POST("/snapshots/:name/restore", routes.PostRestoreSnapshotHandler)
}

package middleware

import (
	"github.com/chmielvu/Forge-Text/internal/storage"
	"github.com/chmielvu/Forge-Text/pkg/engine"

	"github.com/labstack/echo/v4"
)

// App holds what every handler needs. Snapshots may be nil when no
// snapshot store is configured.
type App struct {
	Controller *engine.Controller
	Snapshots  storage.SnapshotStore
}

type AppContext struct {
	echo.Context
	App *App
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			return next(&AppContext{c, app})
		}
	}
}

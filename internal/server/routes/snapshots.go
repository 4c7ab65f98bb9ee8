package routes

import (
	"errors"
	"net/http"

	"github.com/chmielvu/Forge-Text/internal/server/middleware"
	"github.com/chmielvu/Forge-Text/internal/storage"
	"github.com/chmielvu/Forge-Text/pkg/logger"

	"github.com/labstack/echo/v4"
)

func snapshotError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, storage.ErrInvalidName):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, storage.ErrSnapshotNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}
	logger.Error("[Server] Snapshot store failed", "err", err)
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
}

func snapshotStore(c echo.Context) (storage.SnapshotStore, bool) {
	s := c.(*middleware.AppContext).App.Snapshots
	return s, s != nil
}

func GetSnapshotsHandler(c echo.Context) error {
	s, ok := snapshotStore(c)
	if !ok {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Snapshot store not configured"})
	}
	names, err := s.List(c.Request().Context())
	if err != nil {
		return snapshotError(c, err)
	}
	return c.JSON(http.StatusOK, map[string][]string{"snapshots": names})
}

// PutSnapshotHandler saves the current graph under :name.
func PutSnapshotHandler(c echo.Context) error {
	s, ok := snapshotStore(c)
	if !ok {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Snapshot store not configured"})
	}
	ctrl := c.(*middleware.AppContext).App.Controller
	if err := s.Save(c.Request().Context(), c.Param("name"), ctrl.Snapshot()); err != nil {
		return snapshotError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func GetSnapshotHandler(c echo.Context) error {
	s, ok := snapshotStore(c)
	if !ok {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Snapshot store not configured"})
	}
	snap, err := s.Load(c.Request().Context(), c.Param("name"))
	if err != nil {
		return snapshotError(c, err)
	}
	return c.JSON(http.StatusOK, snap)
}

// PostRestoreSnapshotHandler replaces the live graph with a saved one.
func PostRestoreSnapshotHandler(c echo.Context) error {
	s, ok := snapshotStore(c)
	if !ok {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Snapshot store not configured"})
	}
	snap, err := s.Load(c.Request().Context(), c.Param("name"))
	if err != nil {
		return snapshotError(c, err)
	}

	ctrl := c.(*middleware.AppContext).App.Controller
	ctrl.Restore(snap)
	return c.JSON(http.StatusOK, map[string]int{"nodes": ctrl.Graph().Order(), "edges": ctrl.Graph().Size()})
}

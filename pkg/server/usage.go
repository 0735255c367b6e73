package server

import (
	"net/http"

	"sunflower/pkg/diskusage"
	"sunflower/pkg/log"

	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"
)

// UsageResponse is returned by the /fs/usage endpoints.
type UsageResponse struct {
	diskusage.Result

	Path      string `json:"path"`
	InFlight  bool   `json:"in_flight"`
	SizeHuman string `json:"size_human"`
}

// startUsage starts a background calculation. A calculation already running
// for the path is left alone.
func (s *Server) startUsage(ctx echo.Context) error {
	path, p, err := s.resolve(ctx)
	if err != nil {
		return respond(ctx, err)
	}
	if !p.IsDir(path, "") {
		return ctx.JSON(http.StatusNotFound, map[string]string{
			"error": "directory not found",
		})
	}

	started := s.manager.DiskUsage(p).Calculate(path, nil)
	log.Info().Str("path", path).Bool("started", started).Msg("Disk usage request")

	return ctx.JSON(http.StatusAccepted, map[string]interface{}{
		"path":    path,
		"started": started,
	})
}

func (s *Server) getUsage(ctx echo.Context) error {
	path, p, err := s.resolve(ctx)
	if err != nil {
		return respond(ctx, err)
	}

	calc := s.manager.DiskUsage(p)
	result, ok := calc.Get(path)
	if !ok {
		return ctx.JSON(http.StatusNotFound, map[string]string{
			"error": "no calculation for path",
		})
	}

	return ctx.JSON(http.StatusOK, UsageResponse{
		Result:    result,
		Path:      path,
		InFlight:  calc.IsInFlight(path),
		SizeHuman: humanize.IBytes(result.Size),
	})
}

// cancelUsage cancels every calculation at or below path and drops the
// result for path itself.
func (s *Server) cancelUsage(ctx echo.Context) error {
	path, p, err := s.resolve(ctx)
	if err != nil {
		return respond(ctx, err)
	}

	calc := s.manager.DiskUsage(p)
	calc.CancelAll(path)
	calc.Remove(path)
	log.Info().Str("path", path).Msg("Disk usage cancelled")

	return ctx.NoContent(http.StatusNoContent)
}

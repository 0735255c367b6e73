package server

import (
	"net/http"

	"sunflower/pkg/log"
	"sunflower/pkg/models"

	"github.com/labstack/echo/v4"
)

// readFile streams a file through its provider's handle. Local files and gvfs
// locations are addressed by path alone; archive members by archive and path.
func (s *Server) readFile(ctx echo.Context) error {
	path, p, release, err := s.resolveEntry(ctx)
	if err != nil {
		return respond(ctx, err)
	}
	// Deferred first so the archive outlives the entry handle.
	defer release()
	log.Info().Str("path", path).Str("protocol", p.Protocol()).Msg("File read request")

	if !p.IsFile(path, "") {
		return ctx.JSON(http.StatusNotFound, map[string]string{
			"error": "file not found",
		})
	}

	h, err := p.GetFileHandle(path, models.OpenRead, "")
	if err != nil {
		return s.providerError(ctx, err, path, "failed to open file")
	}
	defer h.Close()

	return ctx.Stream(http.StatusOK, echo.MIMEOctetStream, h)
}

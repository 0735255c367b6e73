package server

import (
	"errors"
	"net/http"
	"os"
	"strconv"

	"sunflower/pkg/location"
	"sunflower/pkg/log"
	"sunflower/pkg/models"
	"sunflower/pkg/provider"
	"sunflower/pkg/provider/gio"

	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"
)

// EntryInfo is one listing entry.
type EntryInfo struct {
	Name string `json:"name"`
	// Type shadows the numeric type of the embedded record.
	Type string `json:"type"`
	models.FileInfo
}

// StatResponse is returned by GET /fs/stat.
type StatResponse struct {
	Path string      `json:"path"`
	Type string      `json:"type"`
	Info models.Stat `json:"info"`
}

// SystemSizeResponse is returned by GET /fs/system-size.
type SystemSizeResponse struct {
	models.SystemSize

	Path      string `json:"path"`
	Supported bool   `json:"supported"`
	Total     string `json:"total"`
	Available string `json:"available"`
}

// apiError is an error response not yet written.
type apiError struct {
	status int
	msg    string
}

func (e *apiError) Error() string { return e.msg }

// respond writes err as a JSON error response when it is an apiError.
func respond(ctx echo.Context, err error) error {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		return ctx.JSON(apiErr.status, map[string]string{"error": apiErr.msg})
	}
	return err
}

// resolve reads the path query parameter and finds its provider.
func (s *Server) resolve(ctx echo.Context) (string, provider.Provider, error) {
	path := ctx.QueryParam("path")
	if path == "" {
		return "", nil, &apiError{status: http.StatusBadRequest, msg: "path is required"}
	}

	p, err := s.manager.Provider(path)
	if err != nil {
		if errors.Is(err, provider.ErrUnknownScheme) {
			return "", nil, &apiError{status: http.StatusBadRequest, msg: "unknown scheme"}
		}
		log.Error().Err(err).Str("path", path).Msg("Failed to create provider")
		return "", nil, &apiError{status: http.StatusInternalServerError, msg: "failed to create provider"}
	}
	return path, p, nil
}

// resolveEntry is resolve plus the archive query parameter. When archive is
// set, path names a member inside it (empty for the archive root) and the
// caller must call release once the response is written.
func (s *Server) resolveEntry(ctx echo.Context) (string, provider.Provider, func(), error) {
	archive := ctx.QueryParam("archive")
	if archive == "" {
		path, p, err := s.resolve(ctx)
		return path, p, func() {}, err
	}

	p, err := s.manager.OpenArchive(archive)
	if err != nil {
		if errors.Is(err, provider.ErrUnsupported) {
			return "", nil, nil, &apiError{status: http.StatusBadRequest, msg: "not an archive"}
		}
		log.Error().Err(err).Str("archive", archive).Msg("Failed to open archive")
		return "", nil, nil, &apiError{status: http.StatusInternalServerError, msg: "failed to open archive"}
	}

	release := func() {
		if err := s.manager.ReleaseArchive(p); err != nil {
			log.Warn().Err(err).Str("archive", archive).Msg("Failed to release archive")
		}
	}
	return ctx.QueryParam("path"), p, release, nil
}

// providerError maps provider failures onto status codes.
func (s *Server) providerError(ctx echo.Context, err error, path, msg string) error {
	switch {
	case errors.Is(err, os.ErrNotExist), errors.Is(err, gio.ErrNoMount):
		return ctx.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, os.ErrPermission):
		return ctx.JSON(http.StatusForbidden, map[string]string{"error": "permission denied"})
	case errors.Is(err, provider.ErrUnsupported):
		return ctx.JSON(http.StatusNotImplemented, map[string]string{"error": err.Error()})
	}

	// Unreadable archives are the client's input, not a server failure.
	var archiveErr *provider.ArchiveError
	if errors.As(err, &archiveErr) {
		log.Warn().Err(err).Str("path", path).Msg(msg)
		return ctx.JSON(http.StatusUnprocessableEntity, map[string]string{"error": "invalid archive"})
	}

	log.Error().Err(err).Str("path", path).Msg(msg)
	return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": msg})
}

func (s *Server) listDir(ctx echo.Context) error {
	path, p, release, err := s.resolveEntry(ctx)
	if err != nil {
		return respond(ctx, err)
	}
	defer release()

	names, err := p.ListDir(path, "")
	if err != nil {
		return s.providerError(ctx, err, path, "failed to list directory")
	}

	// Stat every entry without following links
	base := location.Parse(path)
	entries := make([]EntryInfo, 0, len(names))
	for _, name := range names {
		info := p.GetStat(base.Child(name).String(), "", false, false).Base()
		entries = append(entries, EntryInfo{Name: name, Type: info.Type.String(), FileInfo: info})
	}

	return ctx.JSON(http.StatusOK, map[string]interface{}{
		"path":     path,
		"protocol": p.Protocol(),
		"entries":  entries,
	})
}

func (s *Server) getStat(ctx echo.Context) error {
	path, p, release, err := s.resolveEntry(ctx)
	if err != nil {
		return respond(ctx, err)
	}
	defer release()

	extended, _ := strconv.ParseBool(ctx.QueryParam("extended"))
	follow, _ := strconv.ParseBool(ctx.QueryParam("follow"))

	stat := p.GetStat(path, "", extended, follow)
	if !stat.Base().IsValid() {
		return ctx.JSON(http.StatusNotFound, map[string]string{
			"error": "not found",
		})
	}

	return ctx.JSON(http.StatusOK, StatResponse{
		Path: path,
		Type: stat.Base().Type.String(),
		Info: stat,
	})
}

func (s *Server) getSystemSize(ctx echo.Context) error {
	path, p, err := s.resolve(ctx)
	if err != nil {
		return respond(ctx, err)
	}

	size := p.GetSystemSize(path)
	return ctx.JSON(http.StatusOK, SystemSizeResponse{
		Path:       path,
		Supported:  !size.IsZero(),
		SystemSize: size,
		Total:      humanize.IBytes(size.SizeTotal),
		Available:  humanize.IBytes(size.SizeAvailable),
	})
}

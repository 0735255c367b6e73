package server

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"sunflower/pkg/log"

	"github.com/labstack/echo/v4"
)

const (
	swaggerTemplate = "web/swagger-ui.html"
	swaggerSpec     = "web/swagger.yml"
)

//go:embed web
var webFS embed.FS

func (s *Server) serveSwaggerUI(ctx echo.Context) error {
	tmpl, err := template.ParseFS(webFS, swaggerTemplate)
	if err != nil {
		log.Error().Err(err).Str("template_path", swaggerTemplate).Msg("Failed to load template")
		return ctx.String(http.StatusInternalServerError, fmt.Sprintf("Failed to load template: %v", err))
	}

	data := struct {
		Title       string
		SwaggerPath string
		Version     string
	}{
		Title:       "Sunflower Inspection API",
		SwaggerPath: "/swagger.yml",
		Version:     s.version,
	}

	ctx.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	ctx.Response().WriteHeader(http.StatusOK)
	return tmpl.Execute(ctx.Response().Writer, data)
}

func (s *Server) serveSwaggerSpec(ctx echo.Context) error {
	spec, err := webFS.ReadFile(swaggerSpec)
	if err != nil {
		log.Error().Err(err).Str("spec_path", swaggerSpec).Msg("Failed to load API description")
		return ctx.String(http.StatusInternalServerError, "Failed to load API description")
	}
	return ctx.Blob(http.StatusOK, "application/yaml", spec)
}

package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (s *Server) getQueues(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]interface{}{
		"default": s.manager.QueueName(""),
		"queues":  s.manager.Queues().Snapshot(),
	})
}

package api

import (
	"net/http"

	models "ChumRoom/internal/domain/models"
	"ChumRoom/internal/service/ratelimit"
	"ChumRoom/internal/usecase"
	xhttp "ChumRoom/pkg/http"
	xlogger "ChumRoom/pkg/logger"

	"github.com/labstack/echo/v4"
)

// RoomEchoHandler exposes the room read surface over Echo.
type RoomEchoHandler struct {
	logger  *xlogger.Logger
	scanner *usecase.RoomScanner
	rl      *ratelimit.Limiter
}

func NewRoomEchoHandler(logger *xlogger.Logger, scanner *usecase.RoomScanner) *RoomEchoHandler {
	return &RoomEchoHandler{logger: logger, scanner: scanner, rl: ratelimit.New()}
}

func (h *RoomEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/room")
	g.GET("/messages", h.Messages)
	g.GET("/stats", h.Stats)
	g.GET("/health", h.Health)
}

func (h *RoomEchoHandler) Messages(c echo.Context) error {
	req := &models.RoomMessagesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow(c.RealIP()+":messages", 10, 5) {
		return xhttp.DataResponse(c, http.StatusTooManyRequests, "rate limited")
	}

	msgs := h.scanner.ReadMessages(c.Request().Context(), req.Limit)
	return xhttp.SuccessResponse(c, msgs)
}

func (h *RoomEchoHandler) Stats(c echo.Context) error {
	req := &models.RoomStatsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow(c.RealIP()+":stats", 10, 5) {
		return xhttp.DataResponse(c, http.StatusTooManyRequests, "rate limited")
	}

	msgs := h.scanner.ReadMessages(c.Request().Context(), req.Limit)
	return xhttp.SuccessResponse(c, usecase.BuildRoomStats(msgs))
}

func (h *RoomEchoHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.scanner.Health(c.Request().Context()))
}

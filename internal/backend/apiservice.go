package backend

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/jo-hoe/gopicker/internal/backend/database"
	"github.com/jo-hoe/gopicker/internal/core"
	"github.com/jo-hoe/gopicker/internal/hexcolor"
	"github.com/labstack/echo/v4"
)

type APIService struct {
	config      *core.ServiceConfig
	coreService *core.CoreService
}

type EncodeRequest struct {
	Hex string `query:"hex" validate:"required,len=7,hexcolor"`
}

type EncodeResponse struct {
	Hex string `json:"hex"`
	RGB string `json:"rgb"`
	HSL string `json:"hsl"`
}

// SessionResponse is a session snapshot without the image payload
type SessionResponse struct {
	ID            string    `json:"id"`
	Status        string    `json:"status"`
	SamplingReady bool      `json:"samplingReady"`
	ImageMIMEType string    `json:"imageMimeType,omitempty"`
	Hex           string    `json:"hex,omitempty"`
	RGB           string    `json:"rgb,omitempty"`
	Error         string    `json:"error,omitempty"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func NewAPIService(config *core.ServiceConfig, coreService *core.CoreService) *APIService {
	return &APIService{
		config:      config,
		coreService: coreService,
	}
}

func (s *APIService) SetRoutes(e *echo.Echo) {
	// Set probe route
	e.GET("/probe", func(c echo.Context) error {
		return c.String(http.StatusOK, "API Service is running")
	})

	api := e.Group("/api/v1")
	api.GET("/encode", s.encodeHandler)
	api.GET("/sessions/:id", s.sessionHandler)
}

func (s *APIService) encodeHandler(c echo.Context) error {
	var req EncodeRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	color, err := hexcolor.Parse(req.Hex)
	if err != nil {
		// the validator and the parser disagree only on malformed input
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, EncodeResponse{
		Hex: color.Hex(),
		RGB: color.RGBString(),
		HSL: color.HSLString(),
	})
}

func (s *APIService) sessionHandler(c echo.Context) error {
	id := c.Param("id")
	session, err := s.coreService.GetSession(c.Request().Context(), id)
	if errors.Is(err, database.ErrSessionNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	if err != nil {
		slog.Error("sessionHandler: failed to read session",
			"status", http.StatusInternalServerError, "session_id", id, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to read session")
	}

	resp := SessionResponse{
		ID:            session.ID,
		Status:        string(session.Status),
		SamplingReady: session.CanSample(),
		Hex:           session.HexText(),
		RGB:           session.RGBText(),
		Error:         session.Error,
		UpdatedAt:     session.UpdatedAt,
	}
	if session.Image != nil {
		resp.ImageMIMEType = session.Image.MIMEType
	}
	return c.JSON(http.StatusOK, resp)
}

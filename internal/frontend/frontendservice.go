package frontend

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/jo-hoe/gopicker/internal/backend/database"
	"github.com/jo-hoe/gopicker/internal/backend/eyedropper"
	"github.com/jo-hoe/gopicker/internal/backend/imageloader"
	"github.com/jo-hoe/gopicker/internal/core"
	"github.com/jo-hoe/gopicker/internal/picker"
	"github.com/labstack/echo/v4"
)

const (
	MainPageName    = "index.html"
	SessionIDHeader = "X-Session-ID"
	sessionIDQuery  = "sid"
	// CopyEvent is the htmx event that hands a copied value to the page
	CopyEvent = "copy-color"
)

type FrontendService struct {
	coreService *core.CoreService
	config      *core.ServiceConfig
}

func NewFrontendService(config *core.ServiceConfig, coreService *core.CoreService) *FrontendService {
	return &FrontendService{
		coreService: coreService,
		config:      config,
	}
}

// rootRedirectHandler redirects root path to index.html
func (service *FrontendService) rootRedirectHandler(ctx echo.Context) error {
	return ctx.Redirect(http.StatusMovedPermanently, "/"+MainPageName)
}

func (service *FrontendService) SetRoutes(e *echo.Echo) {
	e.Renderer = newTemplate()

	e.GET("/", service.rootRedirectHandler) // Redirect root to index.html
	e.GET("/"+MainPageName, service.indexHandler)

	e.GET("/htmx/image", service.htmxGetImageHandler)
	e.POST("/htmx/image", service.htmxUploadImageHandler)
	e.DELETE("/htmx/image", service.htmxClearImageHandler)

	// Eyedropper: pick waits for a sample or cancel of the same session
	e.POST("/htmx/pick", service.htmxPickHandler)
	e.POST("/htmx/sample", service.htmxSampleHandler)
	e.POST("/htmx/cancel", service.htmxCancelHandler)

	e.POST("/htmx/copy", service.htmxCopyHandler)
	e.POST("/htmx/copy/failed", service.htmxCopyFailedHandler)

	// Favicon (SVG) route
	e.GET("/icon.svg", service.iconHandler)
}

// indexHandler starts a fresh session on every page load
func (service *FrontendService) indexHandler(ctx echo.Context) error {
	session, err := service.coreService.NewSession(ctx.Request().Context())
	if err != nil {
		slog.Error("indexHandler: failed to create session",
			"status", http.StatusInternalServerError, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to create session")
	}

	service.setNoCache(ctx)
	return ctx.Render(http.StatusOK, MainPageName, newSessionView(session))
}

func (service *FrontendService) htmxGetImageHandler(ctx echo.Context) error {
	id, err := service.sessionID(ctx)
	if err != nil {
		return err
	}
	session, err := service.coreService.GetSession(ctx.Request().Context(), id)
	if err != nil {
		return service.sessionError(ctx, "htmxGetImageHandler", id, err)
	}
	if session.Image == nil {
		slog.Warn("htmxGetImageHandler: no image loaded",
			"status", http.StatusNotFound, "session_id", id)
		return ctx.String(http.StatusNotFound, "Image not available")
	}

	service.setNoCache(ctx)
	return ctx.Blob(http.StatusOK, session.Image.MIMEType, session.Image.Data)
}

func (service *FrontendService) htmxUploadImageHandler(ctx echo.Context) error {
	id, err := service.sessionID(ctx)
	if err != nil {
		return err
	}

	// Get uploaded file
	file, err := ctx.FormFile("image")
	if err != nil {
		slog.Error("htmxUploadImageHandler: failed to get uploaded file",
			"status", http.StatusBadRequest, "error", err)
		return ctx.String(http.StatusBadRequest, "Failed to get uploaded file")
	}

	src, err := file.Open()
	if err != nil {
		slog.Error("htmxUploadImageHandler: failed to open uploaded file",
			"status", http.StatusInternalServerError, "error", err, "filename", file.Filename)
		return ctx.String(http.StatusInternalServerError, "Failed to open uploaded file")
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			slog.Error("htmxUploadImageHandler: failed to close uploaded file reader", "error", cerr, "filename", file.Filename)
		}
	}()

	// one byte past the limit is enough for the loader to reject it
	reader := io.Reader(src)
	if limit := service.config.Image.MaxUploadBytes; limit > 0 {
		reader = io.LimitReader(src, limit+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		slog.Error("htmxUploadImageHandler: failed to read uploaded file",
			"status", http.StatusInternalServerError, "error", err, "filename", file.Filename)
		return ctx.String(http.StatusInternalServerError, "Failed to read uploaded file")
	}

	reqCtx := ctx.Request().Context()
	session, err := service.coreService.LoadImage(reqCtx, id, data)
	if isUploadError(err) {
		slog.Warn("htmxUploadImageHandler: rejected upload",
			"session_id", id, "error", err, "filename", file.Filename)
		current, getErr := service.coreService.GetSession(reqCtx, id)
		if getErr != nil {
			return service.sessionError(ctx, "htmxUploadImageHandler", id, getErr)
		}
		view := newSessionView(current)
		view.UploadError = uploadErrorMessage(err)
		return ctx.Render(http.StatusOK, "image", view)
	}
	if err != nil {
		return service.sessionError(ctx, "htmxUploadImageHandler", id, err)
	}

	return ctx.Render(http.StatusOK, "image", newSessionView(session))
}

func (service *FrontendService) htmxClearImageHandler(ctx echo.Context) error {
	id, err := service.sessionID(ctx)
	if err != nil {
		return err
	}
	session, err := service.coreService.ClearImage(ctx.Request().Context(), id)
	if err != nil {
		return service.sessionError(ctx, "htmxClearImageHandler", id, err)
	}

	service.setNoCache(ctx)
	return ctx.Render(http.StatusOK, "workspace", newSessionView(session))
}

// htmxPickHandler blocks until the user sampled a pixel or cancelled. A
// client that goes away while waiting cancels the pick.
func (service *FrontendService) htmxPickHandler(ctx echo.Context) error {
	id, err := service.sessionID(ctx)
	if err != nil {
		return err
	}
	session, err := service.coreService.Pick(ctx.Request().Context(), id)
	if errors.Is(err, picker.ErrSampleInProgress) {
		slog.Warn("htmxPickHandler: pick already pending",
			"status", http.StatusConflict, "session_id", id)
		return ctx.String(http.StatusConflict, "Color sample already in progress")
	}
	if err != nil {
		return service.sessionError(ctx, "htmxPickHandler", id, err)
	}

	service.setNoCache(ctx)
	return ctx.Render(http.StatusOK, "result", newSessionView(session))
}

func (service *FrontendService) htmxSampleHandler(ctx echo.Context) error {
	id, err := service.sessionID(ctx)
	if err != nil {
		return err
	}

	var x, y int
	if err := echo.FormFieldBinder(ctx).
		MustInt("x", &x).
		MustInt("y", &y).
		BindError(); err != nil {
		slog.Warn("htmxSampleHandler: invalid coordinates",
			"status", http.StatusBadRequest, "session_id", id, "error", err)
		return ctx.String(http.StatusBadRequest, "Invalid coordinates")
	}

	if err := service.coreService.DeliverClick(id, x, y); err != nil {
		return service.pickError(ctx, "htmxSampleHandler", id, err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (service *FrontendService) htmxCancelHandler(ctx echo.Context) error {
	id, err := service.sessionID(ctx)
	if err != nil {
		return err
	}
	if err := service.coreService.AbortPick(ctx.Request().Context(), id); err != nil {
		return service.pickError(ctx, "htmxCancelHandler", id, err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

// htmxCopyHandler answers with the toast text plus an out-of-band result
// panel, so a clipboard failure shows up in the error slot. When the browser
// owns the clipboard the value travels in an HX-Trigger event instead and the
// page shows the toast once its own write succeeded.
func (service *FrontendService) htmxCopyHandler(ctx echo.Context) error {
	id, err := service.sessionID(ctx)
	if err != nil {
		return err
	}
	field := picker.Field(ctx.QueryParam("field"))

	session, value, err := service.coreService.Copy(ctx.Request().Context(), id, field)
	switch {
	case errors.Is(err, picker.ErrUnknownField), errors.Is(err, picker.ErrNothingToCopy):
		slog.Warn("htmxCopyHandler: nothing to copy",
			"status", http.StatusBadRequest, "session_id", id, "field", field, "error", err)
		return ctx.String(http.StatusBadRequest, "Nothing to copy")
	case errors.Is(err, picker.ErrClipboardWriteFailed):
		slog.Error("htmxCopyHandler: clipboard write failed", "session_id", id, "error", err)
		view := newSessionView(session)
		view.OOB = true
		return ctx.Render(http.StatusOK, "copy", view)
	case err != nil:
		return service.sessionError(ctx, "htmxCopyHandler", id, err)
	}

	view := newSessionView(session)
	view.OOB = true
	if !service.coreService.ClipboardInBrowser() {
		view.Message = picker.MessageCopied
		return ctx.Render(http.StatusOK, "copy", view)
	}

	trigger, err := json.Marshal(map[string]copyEventDetail{
		CopyEvent: {Value: value, Message: picker.MessageCopied},
	})
	if err != nil {
		slog.Error("htmxCopyHandler: failed to encode copy event",
			"status", http.StatusInternalServerError, "session_id", id, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to copy")
	}
	ctx.Response().Header().Set("HX-Trigger", string(trigger))
	return ctx.Render(http.StatusOK, "copy", view)
}

type copyEventDetail struct {
	Value   string `json:"value"`
	Message string `json:"message"`
}

// htmxCopyFailedHandler records a clipboard write the page could not finish
func (service *FrontendService) htmxCopyFailedHandler(ctx echo.Context) error {
	id, err := service.sessionID(ctx)
	if err != nil {
		return err
	}
	reason := ctx.FormValue("reason")
	slog.Warn("htmxCopyFailedHandler: browser clipboard write failed", "session_id", id, "reason", reason)

	session, err := service.coreService.ReportClipboardFailure(ctx.Request().Context(), id, reason)
	if err != nil {
		return service.sessionError(ctx, "htmxCopyFailedHandler", id, err)
	}
	return ctx.Render(http.StatusOK, "result", newSessionView(session))
}

// sessionID reads the page session from the request header or, for plain
// links, from the sid query parameter
func (service *FrontendService) sessionID(ctx echo.Context) (string, error) {
	id := ctx.Request().Header.Get(SessionIDHeader)
	if id == "" {
		id = ctx.QueryParam(sessionIDQuery)
	}
	if id == "" {
		slog.Warn("missing session id",
			"status", http.StatusBadRequest, "route", ctx.Path())
		return "", echo.NewHTTPError(http.StatusBadRequest, "Missing session ID")
	}
	return id, nil
}

func (service *FrontendService) sessionError(ctx echo.Context, handler string, id string, err error) error {
	if errors.Is(err, database.ErrSessionNotFound) {
		slog.Warn(handler+": session not found",
			"status", http.StatusNotFound, "session_id", id)
		return ctx.String(http.StatusNotFound, "Session expired, reload the page")
	}
	slog.Error(handler+": session operation failed",
		"status", http.StatusInternalServerError, "session_id", id, "error", err)
	return ctx.String(http.StatusInternalServerError, "Session operation failed")
}

func (service *FrontendService) pickError(ctx echo.Context, handler string, id string, err error) error {
	switch {
	case errors.Is(err, eyedropper.ErrNoPendingPick):
		slog.Debug(handler+": no pending pick", "session_id", id)
		return ctx.String(http.StatusConflict, "No color sample in progress")
	case errors.Is(err, picker.ErrCapabilityUnavailable):
		slog.Warn(handler+": sampling unavailable",
			"status", http.StatusConflict, "session_id", id)
		return ctx.String(http.StatusConflict, picker.AdvisoryUnavailable)
	}
	slog.Error(handler+": failed to forward to pick",
		"status", http.StatusInternalServerError, "session_id", id, "error", err)
	return ctx.String(http.StatusInternalServerError, "Failed to forward to pick")
}

func isUploadError(err error) bool {
	return errors.Is(err, imageloader.ErrEmptyImage) ||
		errors.Is(err, imageloader.ErrImageTooLarge) ||
		errors.Is(err, imageloader.ErrUndecodableImage)
}

func uploadErrorMessage(err error) string {
	switch {
	case errors.Is(err, imageloader.ErrEmptyImage):
		return "The uploaded file is empty"
	case errors.Is(err, imageloader.ErrImageTooLarge):
		return "The uploaded file is too large"
	default:
		return "The uploaded file is not a supported image"
	}
}

func (service *FrontendService) setNoCache(ctx echo.Context) {
	ctx.Response().Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	ctx.Response().Header().Set("Pragma", "no-cache")
	ctx.Response().Header().Set("Expires", "0")
}

func (service *FrontendService) iconHandler(ctx echo.Context) error {
	data, err := templateFS.ReadFile("views/icon.svg")
	if err != nil {
		slog.Error("iconHandler: failed to read icon.svg", "status", http.StatusInternalServerError, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to load icon")
	}
	// Cache for 7 days
	ctx.Response().Header().Set("Cache-Control", "public, max-age=604800, immutable")
	return ctx.Blob(http.StatusOK, "image/svg+xml", data)
}

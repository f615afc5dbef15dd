package frontend

import (
	"embed"
	"html/template"
	"io"

	"github.com/jo-hoe/gopicker/internal/picker"
	"github.com/labstack/echo/v4"
)

const viewsPattern = "views/*.html"

//go:embed views
var templateFS embed.FS

// Template renders the embedded views for echo
type Template struct {
	templates *template.Template
}

func newTemplate() *Template {
	return &Template{
		templates: template.Must(template.New("").ParseFS(templateFS, viewsPattern)),
	}
}

func (t *Template) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	return t.templates.ExecuteTemplate(w, name, data)
}

// sessionView is what the page and its fragments see of a session
type sessionView struct {
	SessionID   string
	Status      string
	Supported   bool
	CanSample   bool
	Sampling    bool
	HasImage    bool
	ImageSrc    template.URL
	HasColor    bool
	Hex         string
	RGB         string
	HSL         string
	Error       string
	Message     string
	UploadError string
	OOB         bool
}

func newSessionView(s *picker.Session) sessionView {
	view := sessionView{
		SessionID: s.ID,
		Status:    string(s.Status),
		Supported: s.Status != picker.StatusUnavailable,
		CanSample: s.CanSample(),
		Sampling:  s.Status == picker.StatusSampling,
		Hex:       s.HexText(),
		RGB:       s.RGBText(),
		Error:     s.Error,
	}
	if s.Image != nil {
		view.HasImage = true
		// data: URLs are only accepted by html/template when typed
		view.ImageSrc = template.URL(s.Image.DataURI())
	}
	if s.Color != nil {
		view.HasColor = true
		view.HSL = s.Color.HSLString()
	}
	return view
}

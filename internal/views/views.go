package views

import (
	"embed"
	"html/template"
	"io"
	"strings"

	"github.com/bryanwahyu/scamguard/internal/application/session"
	domain "github.com/bryanwahyu/scamguard/internal/domain/analysis"
)

//go:embed templates/*.html
var files embed.FS

// Page is the data every view renders from.
type Page struct {
	Session session.Session
	Tabs    []Tab
	CanScan bool
}

func (p Page) Result() *domain.Result { return p.Session.State.Result }

// Renderer executes the embedded templates.
type Renderer struct {
	tmpl *template.Template
}

func New() (*Renderer, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"riskClass": RiskClass,
		"riskIcon":  RiskIcon,
		"riskLabel": RiskLabel,
		"imageSrc":  imageSrc,
	}).ParseFS(files, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Render writes the view for the session's phase: loading, result, or the
// input view for idle and error.
func (r *Renderer) Render(w io.Writer, s session.Session) error {
	page := Page{Session: s, Tabs: tabs(s.Mode), CanScan: s.CanScan()}
	name := "input.html"
	switch s.State.Phase() {
	case domain.PhaseLoading:
		name = "loading.html"
	case domain.PhaseResult:
		name = "result.html"
	}
	return r.tmpl.ExecuteTemplate(w, name, page)
}

// imageSrc lets an uploaded image data URI through the URL sanitizer.
func imageSrc(dataURI string) template.URL {
	if !strings.HasPrefix(dataURI, "data:image/") {
		return ""
	}
	return template.URL(dataURI)
}

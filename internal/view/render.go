package view

import (
	"embed"
	"errors"
	"html/template"
	"io"
	"io/fs"
	"sync"
)

//go:embed templates static
var viewsFS embed.FS

var (
	tmplMu        sync.RWMutex
	dashboardTmpl *template.Template
)

// loadTemplatesFromFS parses the dashboard templates under dir of fsys.
func loadTemplatesFromFS(fsys fs.FS, dir string) error {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return err
	}
	t, err := template.ParseFS(sub, "*.html", "partials/*.html")
	if err != nil {
		return err
	}

	tmplMu.Lock()
	dashboardTmpl = t
	tmplMu.Unlock()
	return nil
}

// LoadTemplates loads the embedded dashboard templates. Call during startup;
// if it returns an error, do not start the server.
func LoadTemplates() error {
	return loadTemplatesFromFS(viewsFS, "templates")
}

// StaticFS returns the embedded stylesheet and icon assets.
func StaticFS() fs.FS {
	sub, err := fs.Sub(viewsFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// RenderDashboard writes the dashboard page for d.
func RenderDashboard(w io.Writer, d *Display) error {
	tmplMu.RLock()
	t := dashboardTmpl
	tmplMu.RUnlock()
	if t == nil {
		return errors.New("dashboard template not loaded: call view.LoadTemplates during startup")
	}
	return t.ExecuteTemplate(w, "dashboard.html", d)
}

// Render writes the current display as HTML.
func (u *Updater) Render(w io.Writer) error {
	d := u.Display()
	return RenderDashboard(w, &d)
}

// Package views renders the HTML pages of the site from embedded templates.
package views

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"strings"
	"time"

	ginrender "github.com/gin-gonic/gin/render"
)

//go:embed templates/*.html
var templates embed.FS

const layout = "layout.html"

// Renderer is a gin HTMLRender keeping one template set per page, each
// combined with the shared layout.
type Renderer struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"deref": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
	"date": func(t time.Time) string {
		return t.Local().Format("Jan 2, 2006 15:04")
	},
	"isVote": func(userVote *int, value int) bool {
		return userVote != nil && *userVote == value
	},
}

func New() (*Renderer, error) {
	entries, err := fs.Glob(templates, "templates/*.html")
	if err != nil {
		return nil, err
	}

	r := &Renderer{pages: map[string]*template.Template{}}
	for _, path := range entries {
		file := strings.TrimPrefix(path, "templates/")
		if file == layout {
			continue
		}
		tmpl, err := template.New(layout).Funcs(funcs).ParseFS(templates, "templates/"+layout, path)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		r.pages[strings.TrimSuffix(file, ".html")] = tmpl
	}
	return r, nil
}

// Instance implements ginrender.HTMLRender.
func (r *Renderer) Instance(name string, data any) ginrender.Render {
	tmpl, ok := r.pages[name]
	if !ok {
		tmpl = r.pages["error"]
		data = map[string]any{"Title": "Error", "Error": fmt.Sprintf("unknown page %q", name)}
	}
	return ginrender.HTML{Template: tmpl, Name: layout, Data: data}
}

// Has reports whether a page exists.
func (r *Renderer) Has(name string) bool {
	_, ok := r.pages[name]
	return ok
}

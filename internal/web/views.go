// Package web renders the HTML pages of the application.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/ayush/feedback-app/internal/form"
	"github.com/ayush/feedback-app/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

const layoutFile = "templates/layout.html"

// Page is the data handed to every template.
type Page struct {
	Title       string
	CurrentUser string
	Action      string
	Form        any
	Errors      form.Errors
	User        *models.User
	Feedback    []models.Feedback
	Item        *models.Feedback
	Activity    []models.Activity
	CanExport   bool
}

// Views holds one parsed template set per page.
type Views struct {
	pages map[string]*template.Template
	log   *logrus.Logger
}

func NewViews(log *logrus.Logger) (*Views, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.Linkify, extension.Strikethrough))
	funcs := template.FuncMap{
		"userPath": UserPath,
		"markdown": func(src string) template.HTML {
			var buf bytes.Buffer
			if err := md.Convert([]byte(src), &buf); err != nil {
				return template.HTML(template.HTMLEscapeString(src))
			}
			// Raw HTML and dangerous URLs are dropped by goldmark's default renderer.
			return template.HTML(buf.String())
		},
	}

	files, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	pages := make(map[string]*template.Template, len(files))
	for _, f := range files {
		if f == layoutFile {
			continue
		}
		name := strings.TrimSuffix(path.Base(f), ".html")
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS, layoutFile, f)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		pages[name] = t
	}
	return &Views{pages: pages, log: log}, nil
}

// Render executes page into a buffer and writes it with status.
func (v *Views) Render(w http.ResponseWriter, status int, page string, p Page) {
	t, ok := v.pages[page]
	if !ok {
		v.log.WithField("page", page).Error("unknown template")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", p); err != nil {
		v.log.WithError(err).WithField("page", page).Error("render template")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func (v *Views) NotFound(w http.ResponseWriter, currentUser string) {
	v.Render(w, http.StatusNotFound, "not_found", Page{Title: "Not found", CurrentUser: currentUser})
}

func (v *Views) ServerError(w http.ResponseWriter, currentUser string) {
	v.Render(w, http.StatusInternalServerError, "error", Page{Title: "Something went wrong", CurrentUser: currentUser})
}

package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/markdown"
)

//go:embed templates/*.html
var templateFS embed.FS

// DisplayTimeLayout is how timestamps are shown to people.
const DisplayTimeLayout = "Jan 02, 2006 03:04 PM"

var pages = []string{"login", "register", "pending", "tickets", "ticket", "admin", "error"}

type pageData struct {
	Title string
	User  *domain.User
	Flash *Flash
	CSRF  string
	Data  any
}

type renderer struct {
	pages map[string]*template.Template
}

func newRenderer(loc *time.Location) (*renderer, error) {
	funcs := template.FuncMap{
		"formatTime": func(t time.Time) string { return FormatTime(t, loc) },
		"markdown":   markdown.RenderHTML,
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
		"add": func(a, b int) int { return a + b },
		"sub": func(a, b int) int { return a - b },
	}

	r := &renderer{pages: make(map[string]*template.Template, len(pages))}
	for _, name := range pages {
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		r.pages[name] = tmpl
	}
	return r, nil
}

func (r *renderer) render(c *fiber.Ctx, status int, page string, data pageData) error {
	tmpl, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return err
	}
	c.Type("html", "utf-8")
	return c.Status(status).Send(buf.Bytes())
}

// FormatTime renders t in loc using DisplayTimeLayout.
func FormatTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DisplayTimeLayout)
}

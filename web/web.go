// Package web provides the embedded browser UI for holomorph.
package web

import (
	"bytes"
	"embed"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/lemonberrylabs/holomorph/pkg/api"
	"github.com/lemonberrylabs/holomorph/pkg/expr"
	"github.com/lemonberrylabs/holomorph/pkg/imageio"
	"github.com/lemonberrylabs/holomorph/pkg/preset"
	"github.com/lemonberrylabs/holomorph/pkg/store"
)

//go:embed templates/*.html
var templateFS embed.FS

// Handler serves the web UI pages.
type Handler struct {
	store   *store.Store
	funcMap template.FuncMap
}

// pageData wraps all page-specific data with common fields.
type pageData struct {
	NavActive string
	Data      interface{}
}

// New creates a new web UI handler.
func New(s *store.Store) *Handler {
	return &Handler{
		store: s,
		funcMap: template.FuncMap{
			"age":   age,
			"stamp": stamp,
			"clip":  clip,
			"bytes": formatBytes,
		},
	}
}

func (h *Handler) render(c *fiber.Ctx, page string, navActive string, data interface{}) error {
	// Layout and page are parsed together per request so each page's
	// define blocks stay separate.
	tmpl := template.Must(
		template.New("").Funcs(h.funcMap).ParseFS(templateFS, "templates/layout.html", "templates/"+page),
	)

	pd := pageData{
		NavActive: navActive,
		Data:      data,
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, page, pd); err != nil {
		return c.Status(500).SendString(fmt.Sprintf("template error: %v", err))
	}

	c.Set("Content-Type", "text/html; charset=utf-8")
	return c.Send(buf.Bytes())
}

// Register adds web UI routes to the Fiber app.
func (h *Handler) Register(app *fiber.App) {
	app.Get("/ui", h.dashboard)
	app.Get("/ui/expressions/:name", h.expressionDetail)
	app.Get("/ui/functions", h.functions)
	app.Get("/ui/render", h.renderForm)
	app.Post("/ui/render", h.renderImage)

	// Redirect root to UI
	app.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect("/ui")
	})
}

// --- Page Data Types ---

type dashboardContent struct {
	Expressions []*store.Expression
	Stats       store.Stats
}

type expressionDetailContent struct {
	Expression *store.Expression
	Nodes      int
}

type functionsContent struct {
	Functions   []string
	Resolutions []preset.Resolution
}

type renderContent struct {
	Expressions []*store.Expression
	// Form echoes the submitted values back into the form.
	Expression string
	Name       string
	Mode       string
	Error      string
	Result     *renderResult
}

type renderResult struct {
	DataURI    template.URL
	Expression string
	Width      int
	Height     int
	Mode       string
	Elapsed    time.Duration
}

type notFoundContent struct {
	Message string
}

// --- Page Handlers ---

func (h *Handler) dashboard(c *fiber.Ctx) error {
	return h.render(c, "dashboard.html", "dashboard", dashboardContent{
		Expressions: h.store.ListExpressions(),
		Stats:       h.store.Stats(),
	})
}

func (h *Handler) expressionDetail(c *fiber.Ctx) error {
	name := c.Params("name")
	e, err := h.store.GetExpression(name)
	if err != nil {
		return h.render(c, "notfound.html", "", notFoundContent{
			Message: fmt.Sprintf("Expression %q not found", name),
		})
	}
	return h.render(c, "expression.html", "dashboard", expressionDetailContent{
		Expression: e,
		Nodes:      expr.NodeCount(e.Tree),
	})
}

func (h *Handler) functions(c *fiber.Ctx) error {
	return h.render(c, "functions.html", "functions", functionsContent{
		Functions:   expr.FuncNames(),
		Resolutions: preset.Resolutions(),
	})
}

func (h *Handler) renderForm(c *fiber.Ctx) error {
	return h.render(c, "render.html", "render", renderContent{
		Expressions: h.store.ListExpressions(),
		Expression:  c.Query("expression", "z^2"),
		Name:        c.Query("name"),
		Mode:        api.ModeDirect,
	})
}

func (h *Handler) renderImage(c *fiber.Ctx) error {
	content := renderContent{
		Expressions: h.store.ListExpressions(),
		Expression:  strings.TrimSpace(c.FormValue("expression")),
		Name:        c.FormValue("name"),
		Mode:        c.FormValue("mode", api.ModeDirect),
	}
	// A chosen stored expression wins over the text field.
	if content.Name != "" {
		content.Expression = ""
	}

	fh, err := c.FormFile("image")
	if err != nil {
		content.Error = "Choose an image to upload."
		return h.render(c.Status(400), "render.html", "render", content)
	}
	f, err := fh.Open()
	if err != nil {
		content.Error = fmt.Sprintf("Could not read upload: %v", err)
		return h.render(c.Status(400), "render.html", "render", content)
	}
	defer f.Close()

	start := time.Now()
	res, err := api.Render(h.store, api.RenderRequest{
		Image:      f,
		Expression: content.Expression,
		Name:       content.Name,
		Format:     imageio.FormatPNG,
		Mode:       content.Mode,
	})
	if err != nil {
		content.Error = err.Error()
		if errors.Is(err, store.ErrNotFound) {
			return h.render(c.Status(404), "render.html", "render", content)
		}
		return h.render(c.Status(400), "render.html", "render", content)
	}

	content.Result = &renderResult{
		DataURI:    template.URL("data:" + res.ContentType + ";base64," + base64.StdEncoding.EncodeToString(res.Data)),
		Expression: res.Expression,
		Width:      res.Width,
		Height:     res.Height,
		Mode:       content.Mode,
		Elapsed:    time.Since(start).Round(time.Millisecond),
	}
	return h.render(c, "render.html", "render", content)
}

// --- Template Helpers ---

// ageUnits are tried largest first; the first with a non-zero count wins.
var ageUnits = []struct {
	size time.Duration
	name string
}{
	{24 * time.Hour, "day"},
	{time.Hour, "hour"},
	{time.Minute, "minute"},
}

func age(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	elapsed := time.Since(t)
	for _, u := range ageUnits {
		n := int(elapsed / u.size)
		switch {
		case n == 1:
			return "1 " + u.name + " ago"
		case n > 1:
			return fmt.Sprintf("%d %ss ago", n, u.name)
		}
	}
	return "just now"
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.DateTime) + " UTC"
}

// clip shortens s to at most n runes, marking the cut with an ellipsis.
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

func formatBytes(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

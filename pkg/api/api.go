// Package api implements the REST API for parsing expressions and remapping
// images through them.
package api

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/lemonberrylabs/holomorph/pkg/expr"
	"github.com/lemonberrylabs/holomorph/pkg/preset"
	"github.com/lemonberrylabs/holomorph/pkg/remap"
	"github.com/lemonberrylabs/holomorph/pkg/store"
	"github.com/lemonberrylabs/holomorph/pkg/types"
)

// MaxBodySize bounds request bodies: raw frames and uploaded images.
const MaxBodySize = 64 << 20

// Server is the HTTP API server.
type Server struct {
	app   *fiber.App
	store *store.Store
}

// New creates a new API server. Request logging is off when quiet is true.
func New(s *store.Store, quiet bool) *Server {
	srv := &Server{store: s}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		BodyLimit:             MaxBodySize,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
	})
	app.Use(recover.New())
	if !quiet {
		app.Use(logger.New())
	}

	app.Post("/v1/parse", srv.parse)
	app.Post("/v1/transform", srv.transform)
	app.Post("/v1/render", srv.render)

	// Expressions API
	app.Post("/v1/expressions", srv.createExpression)
	app.Get("/v1/expressions", srv.listExpressions)
	app.Get("/v1/expressions/:expression", srv.getExpression)
	app.Patch("/v1/expressions/:expression", srv.updateExpression)
	app.Delete("/v1/expressions/:expression", srv.deleteExpression)
	app.Post("/v1/expressions/:expression\\:apply", srv.applyExpression)

	app.Get("/v1/stats", srv.stats)

	srv.app = app
	return srv
}

// Listen starts the HTTP server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App returns the underlying Fiber app (useful for testing).
func (s *Server) App() *fiber.App {
	return s.app
}

// LoadPresets stores presets as named expressions.
func (s *Server) LoadPresets(presets []*preset.Preset) error {
	if err := preset.Install(s.store, presets); err != nil {
		return err
	}
	log.Printf("Loaded %d presets", len(presets))
	return nil
}

// --- Expression Handlers ---

type parseRequest struct {
	Expression string `json:"expression"`
}

func (s *Server) parse(c *fiber.Ctx) error {
	var req parseRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, 400, "INVALID_ARGUMENT", fmt.Sprintf("invalid request body: %v", err))
	}
	tree, err := expr.Parse(req.Expression)
	if err != nil {
		return sendError(c, err)
	}
	return c.JSON(fiber.Map{
		"expression": expr.Format(tree),
		"nodes":      expr.NodeCount(tree),
		"tree":       expr.Describe(tree),
	})
}

type expressionRequest struct {
	Source      string `json:"source"`
	Description string `json:"description"`
}

func (s *Server) createExpression(c *fiber.Ctx) error {
	name := c.Query("expressionId")
	if name == "" {
		return errorJSON(c, 400, "INVALID_ARGUMENT", "expressionId query parameter is required")
	}

	var req expressionRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, 400, "INVALID_ARGUMENT", fmt.Sprintf("invalid request body: %v", err))
	}
	if req.Source == "" {
		return errorJSON(c, 400, "INVALID_ARGUMENT", "source is required")
	}

	e, err := s.store.CreateExpression(name, req.Source, req.Description)
	if err != nil {
		return sendError(c, err)
	}
	return c.Status(200).JSON(expressionToJSON(e))
}

func (s *Server) getExpression(c *fiber.Ctx) error {
	e, err := s.store.GetExpression(c.Params("expression"))
	if err != nil {
		return sendError(c, err)
	}
	return c.JSON(expressionToJSON(e))
}

func (s *Server) listExpressions(c *fiber.Ctx) error {
	list := s.store.ListExpressions()
	items := make([]fiber.Map, len(list))
	for i, e := range list {
		items[i] = expressionToJSON(e)
	}
	return c.JSON(fiber.Map{
		"expressions": items,
	})
}

func (s *Server) updateExpression(c *fiber.Ctx) error {
	var req expressionRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, 400, "INVALID_ARGUMENT", fmt.Sprintf("invalid request body: %v", err))
	}
	if req.Source == "" && req.Description == "" {
		return errorJSON(c, 400, "INVALID_ARGUMENT", "source or description is required")
	}

	e, err := s.store.UpdateExpression(c.Params("expression"), req.Source, req.Description)
	if err != nil {
		return sendError(c, err)
	}
	return c.JSON(expressionToJSON(e))
}

func (s *Server) deleteExpression(c *fiber.Ctx) error {
	name := c.Params("expression")
	if err := s.store.DeleteExpression(name); err != nil {
		return sendError(c, err)
	}
	return c.JSON(fiber.Map{
		"name": name,
		"done": true,
	})
}

func (s *Server) stats(c *fiber.Ctx) error {
	return c.JSON(s.store.Stats())
}

// --- Pixel Handlers ---

// transform remaps a raw RGB body on the direct bilinear path.
func (s *Server) transform(c *fiber.Ctx) error {
	width, height, err := dimensions(c)
	if err != nil {
		return sendError(c, err)
	}
	tree, err := expr.Parse(c.Query("expression"))
	if err != nil {
		return sendError(c, err)
	}
	src, err := types.FromRaw(c.Body(), width, height)
	if err != nil {
		return sendError(c, err)
	}

	out := remap.Transform(src, tree)
	c.Set("X-Expression", expr.Format(tree))
	c.Set(fiber.HeaderContentType, fiber.MIMEOctetStream)
	return c.Send(out.Pix)
}

// applyExpression remaps a raw RGB body through the cached lookup table of a
// stored expression.
func (s *Server) applyExpression(c *fiber.Ctx) error {
	width, height, err := dimensions(c)
	if err != nil {
		return sendError(c, err)
	}
	name := c.Params("expression")
	src, err := types.FromRaw(c.Body(), width, height)
	if err != nil {
		return sendError(c, err)
	}
	t, err := s.store.Table(name, width, height)
	if err != nil {
		return sendError(c, err)
	}

	out, err := t.Apply(src)
	if err != nil {
		return sendError(c, err)
	}
	c.Set("X-Fallback-Pixels", fmt.Sprintf("%d", t.FallbackCount()))
	c.Set(fiber.HeaderContentType, fiber.MIMEOctetStream)
	return c.Send(out.Pix)
}

func (s *Server) render(c *fiber.Ctx) error {
	fh, err := c.FormFile("image")
	if err != nil {
		return errorJSON(c, 400, "INVALID_ARGUMENT", "image file is required")
	}
	f, err := fh.Open()
	if err != nil {
		return errorJSON(c, 400, "INVALID_ARGUMENT", fmt.Sprintf("reading upload: %v", err))
	}
	defer f.Close()

	req := RenderRequest{
		Image:      f,
		Expression: c.FormValue("expression"),
		Name:       c.FormValue("name"),
		Format:     c.FormValue("format", "png"),
		Mode:       c.FormValue("mode", ModeDirect),
	}
	if req.Width, req.Height, err = optionalDimensions(c.FormValue("width"), c.FormValue("height")); err != nil {
		return sendError(c, err)
	}
	if q := c.FormValue("quality"); q != "" {
		if _, err := fmt.Sscanf(q, "%d", &req.Quality); err != nil {
			return errorJSON(c, 400, "INVALID_ARGUMENT", fmt.Sprintf("invalid quality '%s'", q))
		}
	}

	res, err := Render(s.store, req)
	if err != nil {
		return sendError(c, err)
	}
	c.Set("X-Expression", res.Expression)
	c.Set(fiber.HeaderContentType, res.ContentType)
	return c.Send(res.Data)
}

// --- Helpers ---

// badRequest marks an error as the caller's fault.
type badRequest struct{ msg string }

func (e *badRequest) Error() string { return e.msg }

func invalidf(format string, args ...interface{}) error {
	return &badRequest{msg: fmt.Sprintf(format, args...)}
}

func dimensions(c *fiber.Ctx) (int, int, error) {
	width, height := c.QueryInt("width"), c.QueryInt("height")
	if width <= 0 || height <= 0 {
		return 0, 0, invalidf("width and height query parameters must be positive integers")
	}
	return width, height, nil
}

func optionalDimensions(w, h string) (int, int, error) {
	if w == "" && h == "" {
		return 0, 0, nil
	}
	var width, height int
	_, errW := fmt.Sscanf(w, "%d", &width)
	_, errH := fmt.Sscanf(h, "%d", &height)
	if errW != nil || errH != nil || width <= 0 || height <= 0 {
		return 0, 0, invalidf("width and height must both be positive integers")
	}
	return width, height, nil
}

func errorJSON(c *fiber.Ctx, code int, status, message string) error {
	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": message,
			"status":  status,
		},
	})
}

// sendError maps domain errors to HTTP status codes.
func sendError(c *fiber.Ctx, err error) error {
	var pe *types.ParseError
	var br *badRequest
	switch {
	case errors.As(err, &pe):
		return c.Status(400).JSON(fiber.Map{
			"error": fiber.Map{
				"code":     400,
				"message":  err.Error(),
				"status":   "INVALID_ARGUMENT",
				"position": pe.Pos,
			},
		})
	case errors.As(err, &br),
		errors.Is(err, types.ErrDimensionMismatch),
		errors.Is(err, types.ErrTooLarge),
		errors.Is(err, store.ErrInvalidName):
		return errorJSON(c, 400, "INVALID_ARGUMENT", err.Error())
	case errors.Is(err, store.ErrNotFound):
		return errorJSON(c, 404, "NOT_FOUND", err.Error())
	case errors.Is(err, store.ErrAlreadyExists):
		return errorJSON(c, 409, "ALREADY_EXISTS", err.Error())
	default:
		return errorJSON(c, 500, "INTERNAL", err.Error())
	}
}

func expressionToJSON(e *store.Expression) fiber.Map {
	return fiber.Map{
		"name":        e.Name,
		"source":      e.Source,
		"canonical":   e.Canonical,
		"description": e.Description,
		"revisionId":  e.RevisionID,
		"createTime":  e.CreateTime.Format(time.RFC3339),
		"updateTime":  e.UpdateTime.Format(time.RFC3339),
	}
}

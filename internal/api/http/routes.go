package httpapi

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/rs/zerolog"

	"github.com/i474232898/weather-dashboard/internal/location"
	"github.com/i474232898/weather-dashboard/internal/prefs"
	"github.com/i474232898/weather-dashboard/internal/view"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

var validate = validator.New()

// Dashboard is the view state driven by the HTTP surface.
type Dashboard interface {
	Search(ctx context.Context, city string) error
	Refresh(ctx context.Context) error
	ToggleUnit(ctx context.Context) error
	ToggleTheme(ctx context.Context) error
	ApplySettings(ctx context.Context, s view.Settings) error
	Display() view.Display
	Render(w io.Writer) error
}

// Options holds the optional collaborators of RegisterRoutes.
type Options struct {
	Static  fs.FS
	Metrics http.Handler
	Logger  zerolog.Logger
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, dash Dashboard, opts Options) {
	h := &handlers{dash: dash, logger: opts.Logger}

	if opts.Static != nil {
		app.Use("/static", filesystem.New(filesystem.Config{
			Root:   http.FS(opts.Static),
			MaxAge: 3600,
		}))
	}
	if opts.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(opts.Metrics))
	}

	// Page and plain HTML form targets.
	app.Get("/", h.page)
	app.Post("/search", h.form(func(c *fiber.Ctx) error {
		var req searchRequest
		if err := c.BodyParser(&req); err != nil {
			return err
		}
		return dash.Search(c.UserContext(), req.City)
	}))
	app.Post("/toggle/unit", h.form(func(c *fiber.Ctx) error { return dash.ToggleUnit(c.UserContext()) }))
	app.Post("/toggle/theme", h.form(func(c *fiber.Ctx) error { return dash.ToggleTheme(c.UserContext()) }))
	app.Post("/settings", h.form(func(c *fiber.Ctx) error {
		s, err := parseSettings(c)
		if err != nil {
			return err
		}
		return dash.ApplySettings(c.UserContext(), s)
	}))

	v1 := app.Group("/api/v1")

	v1.Get("/view", func(c *fiber.Ctx) error {
		return c.JSON(dash.Display())
	})

	v1.Post("/search", func(c *fiber.Ctx) error {
		var req searchRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return h.respond(c, dash.Search(c.UserContext(), req.City))
	})

	v1.Post("/refresh", func(c *fiber.Ctx) error {
		return h.respond(c, dash.Refresh(c.UserContext()))
	})

	v1.Post("/toggle/unit", func(c *fiber.Ctx) error {
		return h.respond(c, dash.ToggleUnit(c.UserContext()))
	})

	v1.Post("/toggle/theme", func(c *fiber.Ctx) error {
		return h.respond(c, dash.ToggleTheme(c.UserContext()))
	})

	v1.Put("/settings", func(c *fiber.Ctx) error {
		s, err := parseSettings(c)
		if err != nil {
			return err
		}
		return h.respond(c, dash.ApplySettings(c.UserContext(), s))
	})
}

// searchRequest is the body of a city search.
type searchRequest struct {
	City string `json:"city" form:"city" validate:"max=100"`
}

// settingsRequest is a partial settings update; empty fields are unchanged.
type settingsRequest struct {
	Theme      string `json:"theme" form:"theme" validate:"omitempty,oneof=light dark"`
	Unit       string `json:"unit" form:"unit" validate:"omitempty,oneof=metric imperial"`
	Forecast   string `json:"forecast" form:"forecast" validate:"omitempty,oneof=hourly daily"`
	Animations string `json:"animations" form:"animations" validate:"omitempty,oneof=on off"`
	APIKey     string `json:"apiKey" form:"apiKey" validate:"omitempty,max=128,printascii"`
}

func (r settingsRequest) toSettings() view.Settings {
	return view.Settings{
		Theme:        prefs.Theme(r.Theme),
		Unit:         weather.Unit(r.Unit),
		ForecastMode: prefs.ForecastMode(r.Forecast),
		Animations:   prefs.Toggle(r.Animations),
		APIKey:       r.APIKey,
	}
}

func parseSettings(c *fiber.Ctx) (view.Settings, error) {
	var req settingsRequest
	if err := c.BodyParser(&req); err != nil {
		return view.Settings{}, fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return view.Settings{}, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return req.toSettings(), nil
}

type handlers struct {
	dash   Dashboard
	logger zerolog.Logger
}

func (h *handlers) page(c *fiber.Ctx) error {
	var buf bytes.Buffer
	if err := h.dash.Render(&buf); err != nil {
		h.logger.Error().Err(err).Msg("render dashboard failed")
		return fiber.NewError(fiber.StatusInternalServerError, "failed to render dashboard")
	}
	c.Type("html", "utf-8")
	return c.Send(buf.Bytes())
}

// form runs action and sends the browser back to the dashboard. Flow errors
// are already reflected in the status line.
func (h *handlers) form(action fiber.Handler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := action(c); err != nil {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return fe
			}
			h.logger.Debug().Err(err).Str("path", c.Path()).Msg("form action failed")
		}
		return c.Redirect("/", fiber.StatusSeeOther)
	}
}

// respond writes the display, using the flow error to pick the status code.
func (h *handlers) respond(c *fiber.Ctx, err error) error {
	display := h.dash.Display()
	if err == nil {
		return c.JSON(display)
	}

	code := statusCode(err)
	if code >= fiber.StatusInternalServerError {
		h.logger.Error().Err(err).Str("path", c.Path()).Msg("dashboard flow failed")
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": display.Status,
		"view":    display,
	})
}

func statusCode(err error) int {
	switch {
	case weather.IsNotFound(err):
		return fiber.StatusNotFound
	case errors.Is(err, weather.ErrMissingCredential):
		return fiber.StatusUnauthorized
	case errors.Is(err, location.ErrEmptyQuery):
		return fiber.StatusBadRequest
	case weather.IsNetwork(err):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

package httpapi

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/smart-city-dashboard/internal/dashboard"
)

var validate = validator.New()

// Dashboard is the part of dashboard.Service the handlers use.
type Dashboard interface {
	Run(ctx context.Context, city string) (dashboard.Pass, error)
	RunSelection(ctx context.Context, sel dashboard.PlaceSelection) (dashboard.Pass, error)
	Current() dashboard.Projection
	ToggleChartMode() (dashboard.ChartMode, dashboard.Projection)
	Recent() []string
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service Dashboard) {
	app.Get("/", func(c *fiber.Ctx) error {
		return renderPage(c, fiber.StatusOK, service, "")
	})

	app.Post("/search", func(c *fiber.Ctx) error {
		req, err := bindSearch(c)
		if err != nil {
			return renderPage(c, fiber.StatusBadRequest, service, "Please enter a city name")
		}
		if _, err := service.Run(c.UserContext(), req.City); err != nil {
			switch {
			case errors.Is(err, dashboard.ErrInvalidInput):
				return renderPage(c, fiber.StatusBadRequest, service, "Please enter a city name")
			case errors.Is(err, dashboard.ErrSuperseded):
				// A newer search owns the page now.
			default:
				return err
			}
		}
		return c.Redirect("/", fiber.StatusSeeOther)
	})

	app.Post("/chart-mode", func(c *fiber.Ctx) error {
		service.ToggleChartMode()
		return c.Redirect("/", fiber.StatusSeeOther)
	})

	v1 := app.Group("/api/v1")

	v1.Get("/dashboard", func(c *fiber.Ctx) error {
		return c.JSON(service.Current())
	})

	v1.Post("/search", func(c *fiber.Ctx) error {
		req, err := bindSearch(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		pass, err := service.Run(c.UserContext(), req.City)
		if err != nil {
			return mapError(err)
		}
		return c.JSON(pass)
	})

	v1.Post("/places/select", func(c *fiber.Ctx) error {
		var sel dashboard.PlaceSelection
		if err := c.BodyParser(&sel); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid place selection body")
		}
		if err := validate.Struct(sel); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		pass, err := service.RunSelection(c.UserContext(), sel)
		if err != nil {
			return mapError(err)
		}
		return c.JSON(pass)
	})

	v1.Post("/chart-mode/toggle", func(c *fiber.Ctx) error {
		mode, proj := service.ToggleChartMode()
		return c.JSON(fiber.Map{
			"chartMode":  mode,
			"projection": proj,
		})
	})

	v1.Get("/recent", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"cities": service.Recent(),
		})
	})
}

// ErrorHandler renders every error as {"error":true,"message":...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

func mapError(err error) error {
	switch {
	case errors.Is(err, dashboard.ErrInvalidInput):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, dashboard.ErrSuperseded):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}

// searchRequest is accepted as JSON, form or query parameters.
type searchRequest struct {
	City string `json:"city" form:"city" validate:"required"`
}

func bindSearch(c *fiber.Ctx) (searchRequest, error) {
	var req searchRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return req, errors.New("invalid search body")
		}
	}
	if req.City == "" {
		req.City = c.Query("city")
	}
	req.City = strings.TrimSpace(req.City)

	if err := validate.Struct(req); err != nil {
		return req, err
	}
	return req, nil
}

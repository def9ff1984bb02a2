package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"

	"github.com/simple-bank/simple_bank/docs"
	"github.com/simple-bank/simple_bank/internal/config"
)

// RegisterSwaggerRoutes serves the generated API docs under /swagger. Docs are
// only exposed in development environments.
func RegisterSwaggerRoutes(app *fiber.App, cfg config.Config) {
	if !cfg.IsDevelopment() {
		return
	}
	docs.SwaggerInfo.Title = cfg.AppName + " API"
	docs.SwaggerInfo.Host = ""
	app.Get("/swagger/*", swagger.HandlerDefault)
}

package public

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ncecere/image_studio/internal/app"
	"github.com/ncecere/image_studio/internal/httpserver/httputil"
)

const (
	routeEdit     = "/api/edit"
	routeGenerate = "/api/generate"
)

// Register wires up the image studio routes. Unsupported methods on a known
// path answer 405, so the catch-all handlers must be registered last.
func Register(app *fiber.App, container *app.Container) {
	h := &handler{container: container}

	app.Options(routeEdit, preflight)
	app.Post(routeEdit, h.edit)

	app.Options(routeGenerate, preflight)
	app.Get(routeGenerate, h.generateUsage)
	app.Post(routeGenerate, h.generate)

	app.All(routeEdit, methodNotAllowed)
	app.All(routeGenerate, methodNotAllowed)
}

// preflight answers OPTIONS requests the CORS middleware passed through.
func preflight(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusNoContent)
}

func methodNotAllowed(c *fiber.Ctx) error {
	return httputil.WriteError(c, fiber.StatusMethodNotAllowed, "method not allowed")
}

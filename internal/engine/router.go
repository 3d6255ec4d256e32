package engine

import "github.com/gofiber/fiber/v2"

func RegisterRoutes(app *fiber.App, h *Handler) {
	api := app.Group("/api")

	schemas := api.Group("/schemas")
	schemas.Post("/", h.CreateSchema)
	schemas.Get("/", h.ListSchemas)
	schemas.Get("/id/:id", h.GetSchemaByID)
	schemas.Get("/:name", h.GetSchema)
	schemas.Put("/:name", h.UpdateSchema)
	schemas.Delete("/:name", h.DeleteSchema)

	objects := api.Group("/objects")
	objects.Post("/:schema", h.CreateInstance)
	objects.Post("/:schema/bulk", h.CreateInstances)
	objects.Post("/:schema/upsert", h.UpsertInstances)
	objects.Post("/:schema/filter", h.FilterInstances)
	objects.Post("/:schema/update", h.UpdateInstances)
	objects.Post("/:schema/delete", h.DeleteInstances)
	objects.Get("/:schema/:id", h.GetInstance)
	objects.Put("/:schema/:id", h.UpdateInstance)
	objects.Delete("/:schema/:id", h.DeleteInstance)
}

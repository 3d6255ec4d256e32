package engine

import (
	"github.com/gofiber/fiber/v2"

	"objectstore/internal/metadata"
)

// Handler exposes the object store over HTTP. It is a thin layer: bodies are
// decoded, the store is called, results are rendered.
type Handler struct {
	store *ObjectStore
}

func NewHandler(store *ObjectStore) *Handler {
	return &Handler{store: store}
}

func (h *Handler) CreateSchema(c *fiber.Ctx) error {
	var req metadata.CreateSchemaRequest
	if err := c.BodyParser(&req); err != nil {
		return ValidationError("Invalid request body")
	}
	schema, err := h.store.CreateSchema(c.Context(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(schema)
}

func (h *Handler) ListSchemas(c *fiber.Ctx) error {
	schemas, err := h.store.ListSchemas(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": schemas})
}

func (h *Handler) GetSchema(c *fiber.Ctx) error {
	schema, err := h.store.GetSchema(c.Context(), c.Params("name"))
	if err != nil {
		return err
	}
	return c.JSON(schema)
}

func (h *Handler) GetSchemaByID(c *fiber.Ctx) error {
	schema, err := h.store.GetSchemaByID(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(schema)
}

func (h *Handler) UpdateSchema(c *fiber.Ctx) error {
	var req metadata.UpdateSchemaRequest
	if err := c.BodyParser(&req); err != nil {
		return ValidationError("Invalid request body")
	}
	schema, err := h.store.UpdateSchema(c.Context(), c.Params("name"), req)
	if err != nil {
		return err
	}
	return c.JSON(schema)
}

func (h *Handler) DeleteSchema(c *fiber.Ctx) error {
	if err := h.store.DeleteSchema(c.Context(), c.Params("name")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type createInstanceRequest struct {
	Properties map[string]any `json:"properties"`
}

func (h *Handler) CreateInstance(c *fiber.Ctx) error {
	var req createInstanceRequest
	if err := c.BodyParser(&req); err != nil {
		return ValidationError("Invalid request body")
	}
	id, err := h.store.CreateInstance(c.Context(), c.Params("schema"), req.Properties)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
}

type bulkCreateRequest struct {
	Instances []map[string]any `json:"instances"`
}

func (h *Handler) CreateInstances(c *fiber.Ctx) error {
	var req bulkCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return ValidationError("Invalid request body")
	}
	affected, err := h.store.CreateInstances(c.Context(), c.Params("schema"), req.Instances)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"rowsAffected": affected})
}

type upsertRequest struct {
	Instances       []map[string]any `json:"instances"`
	ConflictColumns []string         `json:"conflictColumns"`
}

func (h *Handler) UpsertInstances(c *fiber.Ctx) error {
	var req upsertRequest
	if err := c.BodyParser(&req); err != nil {
		return ValidationError("Invalid request body")
	}
	affected, err := h.store.UpsertInstances(c.Context(), c.Params("schema"), req.Instances, req.ConflictColumns)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"rowsAffected": affected})
}

func (h *Handler) FilterInstances(c *fiber.Ctx) error {
	req := NewFilterRequest()
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return ValidationError("Invalid request body")
		}
	}
	instances, total, err := h.store.FilterInstances(c.Context(), c.Params("schema"), req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": instances, "total": total})
}

func (h *Handler) GetInstance(c *fiber.Ctx) error {
	instance, err := h.store.GetInstance(c.Context(), c.Params("schema"), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(instance)
}

func (h *Handler) UpdateInstance(c *fiber.Ctx) error {
	var req createInstanceRequest
	if err := c.BodyParser(&req); err != nil {
		return ValidationError("Invalid request body")
	}
	schema := c.Params("schema")
	id := c.Params("id")
	if err := h.store.UpdateInstance(c.Context(), schema, id, req.Properties); err != nil {
		return err
	}
	instance, err := h.store.GetInstance(c.Context(), schema, id)
	if err != nil {
		return err
	}
	return c.JSON(instance)
}

func (h *Handler) DeleteInstance(c *fiber.Ctx) error {
	if err := h.store.DeleteInstance(c.Context(), c.Params("schema"), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type bulkUpdateRequest struct {
	Properties map[string]any `json:"properties"`
	Condition  *Condition     `json:"condition,omitempty"`
}

func (h *Handler) UpdateInstances(c *fiber.Ctx) error {
	var req bulkUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return ValidationError("Invalid request body")
	}
	affected, err := h.store.UpdateInstances(c.Context(), c.Params("schema"), req.Properties, req.Condition)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"rowsAffected": affected})
}

type bulkDeleteRequest struct {
	Condition *Condition `json:"condition,omitempty"`
}

func (h *Handler) DeleteInstances(c *fiber.Ctx) error {
	var req bulkDeleteRequest
	if err := c.BodyParser(&req); err != nil {
		return ValidationError("Invalid request body")
	}
	affected, err := h.store.DeleteInstances(c.Context(), c.Params("schema"), req.Condition)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"rowsAffected": affected})
}

package web

import (
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/seoforge/intent-engine/pkg/persistence"
	"github.com/seoforge/intent-engine/pkg/services"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func unauthorized(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(401).
		WithInstance(c.Path()).
		WithType("unauthorized").
		WithDetail(detail)

	return c.Status(fiber.StatusUnauthorized).JSON(problem)
}

func tooManyRequests(c fiber.Ctx) error {
	problem := problems.NewStatusProblem(429).
		WithInstance(c.Path()).
		WithType("rate_limited").
		WithDetail("transition rate limit exceeded for organization")

	return c.Status(fiber.StatusTooManyRequests).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleServiceError maps service and persistence errors to RFC 7807
// responses.
func handleServiceError(c fiber.Ctx, err error) error {
	switch {
	case services.IsForbidden(err):
		problem := problems.NewStatusProblem(403).
			WithInstance(c.Path()).
			WithType("forbidden").
			WithDetail(err.Error())

		return c.Status(fiber.StatusForbidden).JSON(problem)

	case persistence.IsWorkflowNotFound(err):
		problem := problems.NewStatusProblem(404).
			WithInstance(c.Path()).
			WithType("workflow_not_found").
			WithDetail("workflow not found")

		return c.Status(fiber.StatusNotFound).JSON(problem)

	case services.IsConflictError(err):
		problem := problems.NewStatusProblem(409).
			WithInstance(c.Path()).
			WithType("conflict").
			WithDetail(err.Error())

		return c.Status(fiber.StatusConflict).JSON(problem)

	case services.IsValidationError(err):
		problem := problems.NewStatusProblem(400).
			WithInstance(c.Path()).
			WithType("validation_error").
			WithDetail(err.Error())

		return c.Status(fiber.StatusBadRequest).JSON(problem)

	default:
		// Unexpected errors never leak internals.
		problem := problems.NewStatusProblem(500).
			WithInstance(c.Path()).
			WithType("internal_error").
			WithError(err)

		return c.Status(fiber.StatusInternalServerError).JSON(problem)
	}
}

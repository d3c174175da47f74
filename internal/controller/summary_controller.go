package controller

import (
	"errors"
	"strconv"

	"couple-summary-be/internal/dto"
	"couple-summary-be/internal/pkg/serverutils"
	"couple-summary-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ISummaryController interface {
	RegisterRoutes(r fiber.Router)
	Generate(ctx *fiber.Ctx) error
	GetStatus(ctx *fiber.Ctx) error
}

type summaryController struct {
	service service.ISummaryService
	auth    fiber.Handler
}

func NewSummaryController(service service.ISummaryService, auth fiber.Handler) ISummaryController {
	return &summaryController{service: service, auth: auth}
}

func (c *summaryController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/ai-summary", c.auth)
	h.Post("/", c.Generate)
	h.Get("/:sessionId", c.GetStatus)
}

func (c *summaryController) Generate(ctx *fiber.Ctx) error {
	userId, ok := serverutils.UserID(ctx)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(fiber.StatusUnauthorized, "User not found"))
	}

	var req dto.SummaryRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponseWithDetails(fiber.StatusBadRequest, "Invalid request body", err.Error()))
	}
	if req.SessionId == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(fiber.StatusBadRequest, "Missing sessionId"))
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponseWithDetails(fiber.StatusBadRequest, "Invalid sessionId", err.Error()))
	}
	sessionId, err := uuid.Parse(req.SessionId)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponseWithDetails(fiber.StatusBadRequest, "Invalid sessionId", err.Error()))
	}

	res, err := c.service.GenerateSummary(ctx.UserContext(), userId, sessionId)
	if err != nil {
		return err
	}
	if res.RetryAfterSeconds > 0 {
		ctx.Set(fiber.HeaderRetryAfter, strconv.Itoa(res.RetryAfterSeconds))
	}
	return ctx.Status(res.StatusCode).JSON(res.Body)
}

func (c *summaryController) GetStatus(ctx *fiber.Ctx) error {
	userId, ok := serverutils.UserID(ctx)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(fiber.StatusUnauthorized, "User not found"))
	}
	sessionId, err := uuid.Parse(ctx.Params("sessionId"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(fiber.StatusBadRequest, "Invalid sessionId"))
	}

	res, err := c.service.GetSummaryStatus(ctx.UserContext(), userId, sessionId)
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(fiber.StatusNotFound, "Session not found"))
	case errors.Is(err, service.ErrNotParticipant):
		return ctx.Status(fiber.StatusForbidden).JSON(serverutils.ErrorResponse(fiber.StatusForbidden, "Not a participant in this session"))
	case err != nil:
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponseWithDetails(fiber.StatusInternalServerError, "Failed to load summary", err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse("Summary status", res))
}

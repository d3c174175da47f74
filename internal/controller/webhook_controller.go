package controller

import (
	"crypto/subtle"
	"errors"
	"strings"

	"couple-summary-be/internal/dto"
	"couple-summary-be/internal/pkg/logger"
	"couple-summary-be/internal/pkg/serverutils"
	"couple-summary-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IWebhookController interface {
	RegisterRoutes(r fiber.Router)
	RevenueCat(ctx *fiber.Ctx) error
}

type webhookController struct {
	service service.IEntitlementService
	secret  string
	logger  logger.ILogger
}

func NewWebhookController(service service.IEntitlementService, secret string, log logger.ILogger) IWebhookController {
	return &webhookController{service: service, secret: secret, logger: log}
}

func (c *webhookController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/webhooks")
	h.Post("/revenuecat", c.RevenueCat)
}

// authorized accepts the raw secret or "Bearer <secret>"; RevenueCat sends
// whichever was configured on its dashboard.
func (c *webhookController) authorized(header string) bool {
	header = strings.TrimSpace(header)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		header = header[7:]
	}
	return subtle.ConstantTimeCompare([]byte(header), []byte(c.secret)) == 1
}

func (c *webhookController) RevenueCat(ctx *fiber.Ctx) error {
	if c.secret == "" {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(fiber.StatusInternalServerError, "Missing REVENUECAT_WEBHOOK_SECRET"))
	}
	if !c.authorized(ctx.Get(fiber.HeaderAuthorization)) {
		c.logger.Warn("WEBHOOK", "Rejected RevenueCat webhook", map[string]interface{}{"ip": ctx.IP()})
		return ctx.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponseWithDetails(fiber.StatusUnauthorized, "Unauthorized",
			"Authorization may be the raw secret or 'Bearer <secret>'."))
	}

	var req dto.RevenueCatWebhookRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponseWithDetails(fiber.StatusBadRequest, "Invalid request body", err.Error()))
	}

	res, err := c.service.HandleRevenueCatEvent(ctx.UserContext(), &req)
	switch {
	case errors.Is(err, service.ErrMissingAppUser), errors.Is(err, service.ErrInvalidAppUser):
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(fiber.StatusBadRequest, err.Error()))
	case err != nil:
		c.logger.Error("WEBHOOK", "RevenueCat grant failed", map[string]interface{}{"error": err.Error()})
		// 500 makes RevenueCat retry the delivery.
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponseWithDetails(fiber.StatusInternalServerError, "Insert failed", err.Error()))
	}
	return ctx.JSON(res)
}

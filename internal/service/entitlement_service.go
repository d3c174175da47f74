package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"couple-summary-be/internal/dto"
	"couple-summary-be/internal/entity"
	"couple-summary-be/internal/pkg/logger"
	"couple-summary-be/internal/repository/specification"
	"couple-summary-be/internal/repository/unitofwork"
	"couple-summary-be/pkg/events"

	"github.com/google/uuid"
)

var (
	ErrMissingAppUser = errors.New("missing app_user_id")
	ErrInvalidAppUser = errors.New("app_user_id is not a valid user id")
)

// RevenueCat event types that imply the user owns the entitlement.
var grantingEventTypes = map[string]bool{
	"INITIAL_PURCHASE":      true,
	"NON_RENEWING_PURCHASE": true,
	"RENEWAL":               true,
	"UNCANCELLATION":        true,
	"PRODUCT_CHANGE":        true,
	"TRANSFER":              true,
	"TEST":                  true,
}

type EntitlementConfig struct {
	PurchaseType  string
	EntitlementId string
}

type IEntitlementService interface {
	HasAccess(ctx context.Context, userId uuid.UUID) (bool, error)
	HandleRevenueCatEvent(ctx context.Context, req *dto.RevenueCatWebhookRequest) (*dto.RevenueCatWebhookResponse, error)
}

type entitlementService struct {
	uowFactory unitofwork.RepositoryFactory
	cfg        EntitlementConfig
	bus        EventPublisher
	logger     logger.ILogger
}

func NewEntitlementService(uowFactory unitofwork.RepositoryFactory, cfg EntitlementConfig, bus EventPublisher, log logger.ILogger) IEntitlementService {
	if cfg.PurchaseType == "" {
		cfg.PurchaseType = entity.PurchaseTypeLifetimeUnlock
	}
	return &entitlementService{
		uowFactory: uowFactory,
		cfg:        cfg,
		bus:        bus,
		logger:     log,
	}
}

func (s *entitlementService) HasAccess(ctx context.Context, userId uuid.UUID) (bool, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	n, err := uow.PurchaseRepository().Count(ctx,
		specification.ByUserID{UserID: userId},
		specification.PurchaseOfType{Type: s.cfg.PurchaseType},
	)
	if err != nil {
		return false, fmt.Errorf("count purchases: %w", err)
	}
	return n > 0, nil
}

func (s *entitlementService) HandleRevenueCatEvent(ctx context.Context, req *dto.RevenueCatWebhookRequest) (*dto.RevenueCatWebhookResponse, error) {
	var e dto.RevenueCatEventBody
	if req != nil && req.Event != nil {
		e = *req.Event
	}
	entitlementIds := e.EntitlementIds
	if entitlementIds == nil {
		entitlementIds = []string{}
	}

	hasEntitlement := false
	for _, id := range entitlementIds {
		if id == s.cfg.EntitlementId {
			hasEntitlement = true
			break
		}
	}

	if !hasEntitlement || !grantingEventTypes[e.Type] {
		reason := "missing_entitlement"
		if hasEntitlement {
			reason = "event_type_not_granting"
		}
		s.logger.Info("WEBHOOK", "RevenueCat event ignored", map[string]interface{}{
			"type":   e.Type,
			"reason": reason,
		})
		return &dto.RevenueCatWebhookResponse{
			Ok:             true,
			Ignored:        true,
			Reason:         reason,
			Type:           e.Type,
			EntitlementIds: entitlementIds,
			AppUserId:      optional(e.AppUserId),
		}, nil
	}

	if e.AppUserId == "" {
		return nil, ErrMissingAppUser
	}
	userId, err := uuid.Parse(e.AppUserId)
	if err != nil {
		return nil, ErrInvalidAppUser
	}

	platform := MapStorePlatform(e.Store)
	tx := TransactionId(&e, platform, s.cfg.EntitlementId)

	raw, _ := json.Marshal(e)
	purchase := &entity.Purchase{
		Id:            uuid.New(),
		UserId:        userId,
		Type:          s.cfg.PurchaseType,
		Platform:      platform,
		TransactionId: tx,
		Raw:           raw,
		CreatedAt:     time.Now(),
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.PurchaseRepository().Upsert(ctx, purchase); err != nil {
		return nil, fmt.Errorf("upsert purchase: %w", err)
	}

	s.logger.Info("ENTITLEMENT", "Entitlement granted", map[string]interface{}{
		"user_id":  userId.String(),
		"type":     e.Type,
		"platform": platform,
		"tx":       tx,
	})
	s.publishGranted(ctx, userId, platform, tx, e.Type)

	return &dto.RevenueCatWebhookResponse{
		Ok:        true,
		Granted:   true,
		AppUserId: optional(e.AppUserId),
		Tx:        tx,
		Type:      e.Type,
		Platform:  platform,
	}, nil
}

func (s *entitlementService) publishGranted(ctx context.Context, userId uuid.UUID, platform, tx, eventType string) {
	if s.bus == nil {
		return
	}
	now := time.Now()
	evt := events.BaseEvent{
		Type: "ENTITLEMENT_GRANTED",
		Data: map[string]interface{}{
			"user_id":        userId.String(),
			"purchase_type":  s.cfg.PurchaseType,
			"platform":       platform,
			"transaction_id": tx,
			"source_event":   eventType,
			"entity_type":    "purchase",
			"entity_id":      userId.String(),
			"occurred_at":    now,
		},
		OccurredAt: now,
	}
	if err := s.bus.Publish(ctx, evt); err != nil {
		s.logger.Warn("ENTITLEMENT", "Failed to publish ENTITLEMENT_GRANTED event", map[string]interface{}{"error": err.Error()})
	}
}

// MapStorePlatform maps a RevenueCat store name to our platform label.
func MapStorePlatform(store string) string {
	switch strings.ToLower(store) {
	case "app_store":
		return "ios"
	case "play_store":
		return "android"
	case "stripe":
		return "web"
	}
	return "unknown"
}

// TransactionId prefers the store's ids and otherwise builds a stable key so
// webhook retries upsert the same row.
func TransactionId(e *dto.RevenueCatEventBody, platform, entitlementId string) string {
	if e.TransactionId != nil && *e.TransactionId != "" {
		return *e.TransactionId
	}
	if e.OriginalTransactionId != nil && *e.OriginalTransactionId != "" {
		return *e.OriginalTransactionId
	}
	return fmt.Sprintf("%s:%s:%s:%s", platform, e.AppUserId, entitlementId, e.Type)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

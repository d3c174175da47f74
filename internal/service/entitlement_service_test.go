package service

import (
	"context"
	"errors"
	"testing"

	"couple-summary-be/internal/dto"
	"couple-summary-be/internal/entity"
	"couple-summary-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEntitlementService(purchases *fakePurchases, bus *fakeBus) IEntitlementService {
	return NewEntitlementService(
		&fakeFactory{uow: &fakeUoW{purchases: purchases}},
		EntitlementConfig{EntitlementId: "aligna_pro"},
		bus,
		logger.NewNop(),
	)
}

func strPtr(s string) *string { return &s }

func TestHasAccess(t *testing.T) {
	purchases := &fakePurchases{count: 1}
	svc := newEntitlementService(purchases, nil)

	ok, err := svc.HasAccess(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.True(t, ok)

	purchases.count = 0
	ok, err = svc.HasAccess(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)

	purchases.countErr = errors.New("db down")
	_, err = svc.HasAccess(context.Background(), uuid.New())
	assert.Error(t, err)
}

func TestHandleRevenueCatEvent_Ignored(t *testing.T) {
	tests := []struct {
		name   string
		event  *dto.RevenueCatEventBody
		reason string
	}{
		{"no event", nil, "missing_entitlement"},
		{"null entitlements", &dto.RevenueCatEventBody{Type: "TEST", AppUserId: uuid.NewString()}, "missing_entitlement"},
		{"other entitlement", &dto.RevenueCatEventBody{Type: "INITIAL_PURCHASE", EntitlementIds: []string{"other"}}, "missing_entitlement"},
		{"cancellation", &dto.RevenueCatEventBody{Type: "CANCELLATION", EntitlementIds: []string{"aligna_pro"}}, "event_type_not_granting"},
		{"expiration", &dto.RevenueCatEventBody{Type: "EXPIRATION", EntitlementIds: []string{"aligna_pro"}}, "event_type_not_granting"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			purchases := &fakePurchases{}
			svc := newEntitlementService(purchases, nil)

			res, err := svc.HandleRevenueCatEvent(context.Background(), &dto.RevenueCatWebhookRequest{Event: tt.event})
			require.NoError(t, err)
			assert.True(t, res.Ok)
			assert.True(t, res.Ignored)
			assert.Equal(t, tt.reason, res.Reason)
			assert.NotNil(t, res.EntitlementIds)
			assert.Empty(t, purchases.upserted)
		})
	}
}

func TestHandleRevenueCatEvent_Grants(t *testing.T) {
	userId := uuid.New()
	purchases := &fakePurchases{}
	bus := &fakeBus{}
	svc := newEntitlementService(purchases, bus)

	res, err := svc.HandleRevenueCatEvent(context.Background(), &dto.RevenueCatWebhookRequest{Event: &dto.RevenueCatEventBody{
		Type:           "INITIAL_PURCHASE",
		AppUserId:      userId.String(),
		EntitlementIds: []string{"aligna_pro"},
		TransactionId:  strPtr("tx-1"),
		Store:          "APP_STORE",
	}})
	require.NoError(t, err)

	assert.True(t, res.Granted)
	assert.Equal(t, "tx-1", res.Tx)
	assert.Equal(t, "ios", res.Platform)

	require.Len(t, purchases.upserted, 1)
	p := purchases.upserted[0]
	assert.Equal(t, userId, p.UserId)
	assert.Equal(t, entity.PurchaseTypeLifetimeUnlock, p.Type)
	assert.Equal(t, "ios", p.Platform)
	assert.Equal(t, "tx-1", p.TransactionId)

	published := bus.snapshot()
	require.Len(t, published, 1)
	assert.Equal(t, "ENTITLEMENT_GRANTED", published[0].EventType())
}

func TestHandleRevenueCatEvent_BadUser(t *testing.T) {
	svc := newEntitlementService(&fakePurchases{}, nil)

	_, err := svc.HandleRevenueCatEvent(context.Background(), &dto.RevenueCatWebhookRequest{Event: &dto.RevenueCatEventBody{
		Type:           "RENEWAL",
		EntitlementIds: []string{"aligna_pro"},
	}})
	assert.ErrorIs(t, err, ErrMissingAppUser)

	_, err = svc.HandleRevenueCatEvent(context.Background(), &dto.RevenueCatWebhookRequest{Event: &dto.RevenueCatEventBody{
		Type:           "RENEWAL",
		AppUserId:      "$RCAnonymousID:abc",
		EntitlementIds: []string{"aligna_pro"},
	}})
	assert.ErrorIs(t, err, ErrInvalidAppUser)
}

func TestMapStorePlatform(t *testing.T) {
	assert.Equal(t, "ios", MapStorePlatform("app_store"))
	assert.Equal(t, "android", MapStorePlatform("PLAY_STORE"))
	assert.Equal(t, "web", MapStorePlatform("Stripe"))
	assert.Equal(t, "unknown", MapStorePlatform("amazon"))
	assert.Equal(t, "unknown", MapStorePlatform(""))
}

func TestTransactionId(t *testing.T) {
	e := &dto.RevenueCatEventBody{Type: "TRANSFER", AppUserId: "u1"}
	assert.Equal(t, "android:u1:aligna_pro:TRANSFER", TransactionId(e, "android", "aligna_pro"))

	e.OriginalTransactionId = strPtr("orig")
	assert.Equal(t, "orig", TransactionId(e, "android", "aligna_pro"))

	e.TransactionId = strPtr("tx")
	assert.Equal(t, "tx", TransactionId(e, "android", "aligna_pro"))
}

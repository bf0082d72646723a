package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/factorybridge/erp-mes-bridge/internal/domain"
	"github.com/factorybridge/erp-mes-bridge/internal/translate/tomes"
)

func testProductionOrder(plant string) domain.ProductionOrder {
	return domain.ProductionOrder{
		Material:               "FG-1",
		ManufacturingOrder:     "1004143",
		ProductionPlant:        plant,
		TotalQuantity:          "100",
		ProductionUnitISOCode:  "PCE",
		ScheduledStartDateTime: "2026-08-01T06:00:00",
		ScheduledEndDateTime:   "2026-08-15T18:00:00",
		Components: []domain.ProductionOrderComponent{{
			Material:         "RAW-1",
			RequiredQuantity: "2.5",
			Sequence:         "0",
			Operation:        "10",
			UnitISOCode:      "LBR",
			StorageLocation:  "2000",
		}},
		Operations: []domain.ProductionOrderOperation{{
			WorkCenter:      "WC-10",
			Operation:       "10",
			Sequence:        "0",
			Text:            "Extrude",
			ScheduledStart:  "2026-08-01T06:00:00",
			ScheduledEnd:    "2026-08-02T06:00:00",
			PlannedQuantity: 100,
			IsReleased:      "X",
		}},
		OrderIsReleased: "X",
	}
}

func orderBody(t *testing.T, order domain.ProductionOrder) string {
	t.Helper()
	body, err := json.Marshal(order)
	require.NoError(t, err)
	return string(body)
}

func TestProductionOrderSendsFiveDocumentManifest(t *testing.T) {
	f := newFixture(t, true)
	body := orderBody(t, testProductionOrder("1014"))

	require.NoError(t, f.bridge.ProductionOrder(context.Background(), inbound(body)))

	archive := f.archives[handlerProductionOrder]
	require.Equal(t, []string{
		"input.json",
		"create-production-order.xml",
		"update-production-order.xml",
		"create-production-order-operations.xml",
		"update-production-order-operations.xml",
		"update-production-order-components.xml",
		"mes-message.json",
	}, archive.names)
	require.Contains(t, string(archive.objects["create-production-order.xml"]), `TransactionType="ERPWOStart"`)
	require.Contains(t, string(archive.objects["create-production-order.xml"]), "<Status>40</Status>")

	sent := f.sender.onTopic("production-order-to-mes1")
	require.Len(t, sent, 1)
	require.Equal(t, "1004143", sent[0].SessionKey)
	require.Equal(t, "application/json", sent[0].ContentType)

	var manifest tomes.OrderMessage
	require.NoError(t, json.Unmarshal(sent[0].Body, &manifest))
	require.Equal(t, "B346", manifest.Plant)
	require.Equal(t, "WO-1004143-B346-msg-1.xml", manifest.ProductionOrderFilename)
	require.Equal(t, "archive/create-production-order.xml", manifest.CreateProductionOrder)
	require.Equal(t, "archive/update-production-order-components.xml", manifest.UpdateProductionOrderComponents)
}

func TestProductionOrderSecondaryPlantUsesSecondaryQueue(t *testing.T) {
	// The secondary instance keeps receiving even while the primary is gated.
	f := newFixture(t, false)
	body := orderBody(t, testProductionOrder("1015"))

	require.NoError(t, f.bridge.ProductionOrder(context.Background(), inbound(body)))

	require.Empty(t, f.sender.onTopic("production-order-to-mes1"))
	sent := f.sender.onTopic("production-order-to-mes")
	require.Len(t, sent, 1)

	var manifest tomes.OrderMessage
	require.NoError(t, json.Unmarshal(sent[0].Body, &manifest))
	require.Equal(t, "B024", manifest.Plant)
}

func TestProductionOrderConfirmedMapsToStatus95(t *testing.T) {
	f := newFixture(t, true)
	order := testProductionOrder("1014")
	order.OrderIsConfirmed = "X"
	order.Operations[0].IsClosed = "X"

	require.NoError(t, f.bridge.ProductionOrder(context.Background(), inbound(orderBody(t, order))))

	archive := f.archives[handlerProductionOrder]
	require.Contains(t, string(archive.objects["create-production-order.xml"]), "<Status>95</Status>")
	require.Contains(t, string(archive.objects["update-production-order-operations.xml"]), "<OperationStatus>30</OperationStatus>")
}

func TestProductionOrderCreatedStatusIsSkipped(t *testing.T) {
	f := newFixture(t, true)
	order := testProductionOrder("1014")
	order.OrderIsReleased = ""
	order.OrderIsCreated = "X"

	require.NoError(t, f.bridge.ProductionOrder(context.Background(), inbound(orderBody(t, order))))

	require.Empty(t, f.sender.sent)
	// The input is still archived before the skip decision.
	require.Equal(t, []string{"input.json"}, f.archives[handlerProductionOrder].names)
}

func TestProductionOrderUnmappedPlantIsSkipped(t *testing.T) {
	f := newFixture(t, true)
	body := orderBody(t, testProductionOrder("9999"))

	require.NoError(t, f.bridge.ProductionOrder(context.Background(), inbound(body)))

	require.Empty(t, f.sender.sent)
}

func TestProductionOrderPrimaryGateSkipsPrimaryPlants(t *testing.T) {
	f := newFixture(t, false)
	body := orderBody(t, testProductionOrder("1014"))

	require.NoError(t, f.bridge.ProductionOrder(context.Background(), inbound(body)))

	require.Empty(t, f.sender.sent)
}

func TestProductionOrderDualMappedPlantChecksClassification(t *testing.T) {
	f := newFixture(t, true)
	body := orderBody(t, testProductionOrder("1017"))

	f.erp.On("CharacteristicInternalID", mock.Anything, "MES_SYSTEM").Return("4711", nil).Once()
	f.erp.On("CharacteristicValues", mock.Anything, "FG-1", "4711").
		Return([]string{"1017_COMPASS"}, nil).Once()

	require.NoError(t, f.bridge.ProductionOrder(context.Background(), inbound(body)))

	f.erp.AssertExpectations(t)
	sent := f.sender.onTopic("production-order-to-mes1")
	require.Len(t, sent, 1)

	var manifest tomes.OrderMessage
	require.NoError(t, json.Unmarshal(sent[0].Body, &manifest))
	require.Equal(t, "B005", manifest.Plant)
}

func TestProductionOrderUnmappableStatusIsRedelivered(t *testing.T) {
	f := newFixture(t, true)
	order := testProductionOrder("1014")
	order.OrderIsReleased = ""

	err := f.bridge.ProductionOrder(context.Background(), inbound(orderBody(t, order)))

	require.Error(t, err)
	var consistency *domain.ConsistencyError
	require.ErrorAs(t, err, &consistency)
	require.Empty(t, f.sender.sent)
}

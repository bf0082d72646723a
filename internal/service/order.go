package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/factorybridge/erp-mes-bridge/internal/domain"
	"github.com/factorybridge/erp-mes-bridge/internal/ports"
	"github.com/factorybridge/erp-mes-bridge/internal/translate/tomes"
)

// ProductionOrder translates an ERP production-order snapshot into the five
// MES documents, archives them, and queues the document manifest for the
// plant's MES instance. ERP-origin events have no tracking token; any failure
// leaves the message uncommitted for redelivery.
func (b *Bridge) ProductionOrder(ctx context.Context, msg ports.InboundMessage) error {
	archive, erp, err := b.invocation(handlerProductionOrder, msg.MessageID)
	if err != nil {
		return err
	}
	loc, err := archive.Store(ctx, msg.Body, "input.json")
	if err != nil {
		return err
	}

	var order domain.ProductionOrder
	if err := json.Unmarshal(msg.Body, &order); err != nil {
		return fmt.Errorf("parse production order message: %w", err)
	}
	logger := b.logger.With(
		"order", order.ManufacturingOrder, "plant", order.ProductionPlant,
		"material", order.Material)
	logger.Info("received production order message", "input", loc.Link)

	eligible, err := b.filter.PlantEligible(ctx, erp, order.ProductionPlant, order.Material)
	if err != nil {
		return err
	}
	if !eligible {
		return nil
	}

	orderStatus, err := order.OrderStatus()
	if err != nil {
		return err
	}
	if orderStatus == domain.OrderStatusCreated {
		logger.Info("skipping this message, production order has status Created")
		return nil
	}

	mesPlant, err := b.tables.Plant.ToMes(order.ProductionPlant)
	if err != nil {
		return err
	}
	docs, err := tomes.OrderXML(&order, orderStatus, mesPlant, b.tables.UOM)
	if err != nil {
		return err
	}

	var keys tomes.OrderKeys
	for _, doc := range []struct {
		name string
		body []byte
		key  *string
	}{
		{"create-production-order.xml", docs.Create, &keys.Create},
		{"update-production-order.xml", docs.Update, &keys.Update},
		{"create-production-order-operations.xml", docs.CreateOperations, &keys.CreateOperations},
		{"update-production-order-operations.xml", docs.UpdateOperations, &keys.UpdateOperations},
		{"update-production-order-components.xml", docs.UpdateComponents, &keys.UpdateComponents},
	} {
		loc, err := archive.Store(ctx, doc.body, doc.name)
		if err != nil {
			return err
		}
		*doc.key = loc.Key
	}
	logger.Info("archived production order documents")

	out := tomes.NewOrderMessage(&order, mesPlant, msg.MessageID, keys)
	body, err := json.Marshal(out)
	if err != nil {
		return err
	}
	if _, err := archive.Store(ctx, body, "mes-message.json"); err != nil {
		return err
	}

	err = b.sender.Send(ctx, ports.OutboundMessage{
		Topic:         b.routes.OrderQueues.Destination(order.ProductionPlant),
		Body:          body,
		ContentType:   "application/json",
		CorrelationID: msg.CorrelationID,
		SessionKey:    order.ManufacturingOrder,
	})
	if err != nil {
		return err
	}
	logger.Info("sent production order to MES", "mes_plant", mesPlant)
	return nil
}

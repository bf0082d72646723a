package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/factorybridge/erp-mes-bridge/internal/domain"
	"github.com/factorybridge/erp-mes-bridge/internal/ports"
	"github.com/factorybridge/erp-mes-bridge/internal/translate/tomes"
)

// InventoryLocationMove translates an ERP warehouse stock snapshot into a
// lot-master update for the batch's MES instance.
func (b *Bridge) InventoryLocationMove(ctx context.Context, msg ports.InboundMessage) error {
	archive, erp, err := b.invocation(handlerInventoryMove, msg.MessageID)
	if err != nil {
		return err
	}
	loc, err := archive.Store(ctx, msg.Body, "input.json")
	if err != nil {
		return err
	}

	var move domain.InventoryLocationMove
	if err := json.Unmarshal(msg.Body, &move); err != nil {
		return fmt.Errorf("parse inventory location move message: %w", err)
	}
	logger := b.logger.With(
		"plant", move.Warehouse, "material", move.Product.Product,
		"location", move.StorageBin)
	logger.Info("received inventory location move message", "input", loc.Link)

	// Stock snapshots without a batch describe unbatched materials the MES
	// does not track.
	if move.Batch == nil {
		logger.Info("skipping message, it does not contain a batch")
		return nil
	}
	if !domain.IsMesRelevant(move.Product.ProductClass) {
		logger.Info("skipping message, material is not MES relevant")
		return nil
	}

	eligible, err := b.filter.PlantEligible(ctx, erp, move.Warehouse, move.Product.Product)
	if err != nil {
		return err
	}
	if !eligible {
		return nil
	}

	mesPlant, err := b.tables.Plant.ToMes(move.Warehouse)
	if err != nil {
		return err
	}
	document, err := tomes.InventoryMoveXML(&move, mesPlant, b.tables.UOM, b.tables.InventoryMove)
	if err != nil {
		return err
	}
	docLoc, err := archive.Store(ctx, document, "update.xml")
	if err != nil {
		return err
	}

	out := tomes.NewInventoryMoveMessage(&move, mesPlant, msg.MessageID, docLoc.Key)
	return b.sendLotMessage(ctx, archive, out, move.Warehouse, msg.CorrelationID, logger)
}

// InspectionLot translates an ERP quality-inspection snapshot into a
// lot-master update. Inspection lots share the inventory-move queues; the MES
// applies both as lot updates.
func (b *Bridge) InspectionLot(ctx context.Context, msg ports.InboundMessage) error {
	archive, erp, err := b.invocation(handlerInspectionLot, msg.MessageID)
	if err != nil {
		return err
	}
	loc, err := archive.Store(ctx, msg.Body, "input.json")
	if err != nil {
		return err
	}

	var lot domain.InspectionLot
	if err := json.Unmarshal(msg.Body, &lot); err != nil {
		return fmt.Errorf("parse inspection lot message: %w", err)
	}
	logger := b.logger.With("plant", lot.Plant, "material", lot.Material)
	logger.Info("received inspection lot message", "input", loc.Link)

	if lot.Batch == nil {
		logger.Info("skipping message, it does not contain a batch")
		return nil
	}

	eligible, err := b.filter.PlantEligible(ctx, erp, lot.Plant, lot.Material)
	if err != nil {
		return err
	}
	if !eligible {
		return nil
	}

	mesPlant, err := b.tables.Plant.ToMes(lot.Plant)
	if err != nil {
		return err
	}
	document, err := tomes.InspectionLotXML(&lot, mesPlant, b.tables.UOM)
	if err != nil {
		return err
	}
	docLoc, err := archive.Store(ctx, document, "output.xml")
	if err != nil {
		return err
	}

	out := tomes.NewInspectionLotMessage(&lot, mesPlant, msg.MessageID, docLoc.Key)
	return b.sendLotMessage(ctx, archive, out, lot.Plant, msg.CorrelationID, logger)
}

func (b *Bridge) sendLotMessage(ctx context.Context, archive ports.Archive, out tomes.LotMessage, erpPlant, correlationID string, logger *slog.Logger) error {
	body, err := json.Marshal(out)
	if err != nil {
		return err
	}
	if _, err := archive.Store(ctx, body, "mes-message.json"); err != nil {
		return err
	}

	err = b.sender.Send(ctx, ports.OutboundMessage{
		Topic:         b.routes.LotQueues.Destination(erpPlant),
		Body:          body,
		ContentType:   "application/json",
		CorrelationID: correlationID,
		SessionKey:    out.Batch,
	})
	if err != nil {
		return err
	}
	logger.Info("sent lot update to MES", "batch", out.Batch, "mes_plant", out.Plant)
	return nil
}

package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/factorybridge/erp-mes-bridge/internal/domain"
	"github.com/factorybridge/erp-mes-bridge/internal/ports"
	"github.com/factorybridge/erp-mes-bridge/internal/translate/toerp"
)

// GoodsReceipt posts the SuperBackFlush records that carry a physical receipt
// as goods-receipt confirmations. Records without the receipt flag belong to
// ProductionConfirmation and are skipped here; the completed status is only
// reported when this handler actually owned part of the file.
func (b *Bridge) GoodsReceipt(ctx context.Context, msg ports.InboundMessage) error {
	env, err := domain.ParseBackflushEnvelope(msg.Body)
	if err != nil {
		return err
	}
	_, erp, err := b.invocation(handlerGoodsReceipt, msg.MessageID)
	if err != nil {
		return err
	}

	logger := b.backflushLogger(env)
	logger.Info("received goods receipt message")

	hasReceipt := false
	for _, rec := range env.Records {
		if !rec.Receipt.Bool() {
			logger.Info("skipping record, it is a production order confirmation without a goods receipt",
				"order", rec.Order, "operation", rec.Operation)
			continue
		}
		hasReceipt = true

		if !b.tables.Plant.HasErp(rec.Plant) {
			logger.Info("skipping record, plant has no ERP mapping",
				"order", rec.Order, "operation", rec.Operation, "plant", rec.Plant)
			continue
		}

		// The parent order supplies the produced material and its unit.
		order, err := erp.ProductionOrder(ctx, rec.Order)
		if err != nil {
			b.failBackflush(ctx, logger, env.FileGuid, "goods receipt", err)
			return nil
		}
		body, err := toerp.GoodsReceipt(rec, order, b.tables.Plant, b.now())
		if err != nil {
			b.failBackflush(ctx, logger, env.FileGuid, "goods receipt", err)
			return nil
		}
		if err := b.dispatcher.SendConfirmation(ctx, erp, body, true); err != nil {
			b.failBackflush(ctx, logger, env.FileGuid, "goods receipt", err)
			return nil
		}
		logger.Info("posted goods receipt", "order", rec.Order, "operation", rec.Operation)
	}

	if hasReceipt {
		b.status.MarkCompleted(ctx, env.FileGuid, "successfully processed all goods receipt messages")
	}
	return nil
}

// ProductionConfirmation posts the SuperBackFlush records without a receipt
// flag as yield/scrap confirmations, the mirror image of GoodsReceipt on the
// same topic.
func (b *Bridge) ProductionConfirmation(ctx context.Context, msg ports.InboundMessage) error {
	env, err := domain.ParseBackflushEnvelope(msg.Body)
	if err != nil {
		return err
	}
	_, erp, err := b.invocation(handlerProductionConfirmation, msg.MessageID)
	if err != nil {
		return err
	}

	logger := b.backflushLogger(env)
	logger.Info("received production order confirmation message")

	hasConfirmation := false
	for _, rec := range env.Records {
		if rec.Receipt.Bool() {
			logger.Info("skipping record, it is a goods receipt",
				"order", rec.Order, "operation", rec.Operation)
			continue
		}
		hasConfirmation = true

		if !b.tables.Plant.HasErp(rec.Plant) {
			logger.Info("skipping record, plant has no ERP mapping",
				"order", rec.Order, "operation", rec.Operation, "plant", rec.Plant)
			continue
		}

		body, err := toerp.Confirmation(rec, b.tables.Plant)
		if err != nil {
			b.failBackflush(ctx, logger, env.FileGuid, "production order confirmation", err)
			return nil
		}
		if err := b.dispatcher.SendConfirmation(ctx, erp, body, true); err != nil {
			b.failBackflush(ctx, logger, env.FileGuid, "production order confirmation", err)
			return nil
		}
		logger.Info("confirmed production order", "order", rec.Order, "operation", rec.Operation)
	}

	if hasConfirmation {
		b.status.MarkCompleted(ctx, env.FileGuid, "finished processing production order confirmations")
	}
	return nil
}

func (b *Bridge) backflushLogger(env *domain.BackflushEnvelope) *slog.Logger {
	first := env.Records[0]
	return b.logger.With(
		"order", first.Order, "plant", first.Plant,
		"batch", first.Batch, "user", env.UserName)
}

func (b *Bridge) failBackflush(ctx context.Context, logger *slog.Logger, fileGuid, kind string, err error) {
	message := fmt.Sprintf("failed to process %s: %v", kind, err)
	logger.Error(message)
	b.status.MarkFailed(ctx, fileGuid, message)
}

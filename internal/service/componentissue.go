package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/factorybridge/erp-mes-bridge/internal/domain"
	"github.com/factorybridge/erp-mes-bridge/internal/ports"
	"github.com/factorybridge/erp-mes-bridge/internal/translate/toerp"
)

// ComponentIssue posts a WorkOrderIssues envelope as one grouped component
// consumption confirmation. Failures past the parse boundary are reported to
// the transaction manager and the message is committed; only infrastructure
// failures before that point leave it for redelivery.
func (b *Bridge) ComponentIssue(ctx context.Context, msg ports.InboundMessage) error {
	env, err := domain.ParseComponentIssueEnvelope(msg.Body)
	if err != nil {
		return err
	}
	_, erp, err := b.invocation(handlerComponentIssue, msg.MessageID)
	if err != nil {
		return err
	}

	first := env.Records[0]
	logger := b.logger.With(
		"order", first.Order, "operation", first.Operation,
		"material", first.Material, "plant", first.Plant, "user", env.UserName)
	logger.Info("received components goods issue message")

	// A record for a plant outside the ERP mapping is a normal outcome for
	// the originating user, not a failure.
	for _, rec := range env.Records {
		if !b.tables.Plant.HasErp(rec.Plant) {
			message := fmt.Sprintf("skipped this message, %q is not an ERP plant", rec.Plant)
			logger.Info(message)
			b.status.MarkCompleted(ctx, env.FileGuid, message)
			return nil
		}
	}

	if err := env.ConsistentIssueRecords(); err != nil {
		logger.Error("inconsistent envelope", "error", err)
		b.status.MarkFailed(ctx, env.FileGuid, err.Error())
		return nil
	}

	lines, err := erp.ProductionOrderComponents(ctx, first.Order)
	if err != nil {
		b.failIssue(ctx, logger, env.FileGuid, err)
		return nil
	}
	reservations := domain.BuildReservationIndex(lines)
	if len(reservations) == 0 {
		message := fmt.Sprintf("no reservation with variable quantity found for the production order %s", first.Order)
		logger.Error(message)
		b.status.MarkFailed(ctx, env.FileGuid, message)
		return nil
	}

	body, err := toerp.ComponentIssue(env, reservations, b.tables.Plant, b.tables.UOM)
	if err != nil {
		b.failIssue(ctx, logger, env.FileGuid, err)
		return nil
	}
	if err := b.dispatcher.SendConfirmation(ctx, erp, body, false); err != nil {
		b.failIssue(ctx, logger, env.FileGuid, err)
		return nil
	}

	message := "successfully confirmed components goods issues"
	logger.Info(message)
	b.status.MarkCompleted(ctx, env.FileGuid, message)
	return nil
}

func (b *Bridge) failIssue(ctx context.Context, logger *slog.Logger, fileGuid string, err error) {
	message := fmt.Sprintf("failed to confirm components goods issues: %v", err)
	logger.Error(message)
	b.status.MarkFailed(ctx, fileGuid, message)
}

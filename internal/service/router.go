package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/factorybridge/erp-mes-bridge/internal/domain"
	"github.com/factorybridge/erp-mes-bridge/internal/ports"
)

// mesEventV2 is the JSON rendition of a routed MES envelope published on the
// second-generation topics alongside the raw XML.
type mesEventV2 struct {
	MessageType string `json:"MessageType"`
	FileGuid    string `json:"FileGuid"`
	UserName    string `json:"UserName"`
	Records     any    `json:"Records"`
}

// RouteMesOutput classifies a raw MES XML document and forwards it to the
// per-type topics: the original XML on the v1 topic, session-keyed by order
// number, and a JSON rendition on the v2 topic. It also opens the status
// lifecycle for the file; completion is reported by the downstream handlers.
func (b *Bridge) RouteMesOutput(ctx context.Context, msg ports.InboundMessage) error {
	archive, err := b.newArchive(handlerRouteMesOutput, msg.MessageID)
	if err != nil {
		return err
	}
	loc, err := archive.Store(ctx, msg.Body, "input.xml")
	if err != nil {
		return err
	}
	b.logger.Info("archived MES XML", "link", loc.Link)

	header, err := domain.ParseEnvelopeHeader(msg.Body)
	if errors.Is(err, domain.ErrNoTransactions) {
		b.logger.Warn("no TxnWrapper nodes found in the MES XML document", "message_id", msg.MessageID)
		return nil
	}
	if err != nil {
		return err
	}

	// Completion is reported by the downstream handler that ends up
	// processing the file.
	b.status.MarkInProcess(ctx, header.FileGuid)

	var (
		topicV1, topicV2 string
		sessionKey       string
		v2               mesEventV2
	)
	switch header.MessageType {
	case domain.MessageTypeSuperBackflush:
		env, err := domain.ParseBackflushEnvelope(msg.Body)
		if err != nil {
			b.failRoute(ctx, header.FileGuid, err)
			return nil
		}
		b.logger.Info("forwarding SuperBackFlush message", "order", env.Records[0].Order)
		topicV1, topicV2 = b.routes.Backflush, b.routes.BackflushV2
		sessionKey = env.Records[0].Order
		v2 = mesEventV2{
			MessageType: header.MessageType,
			FileGuid:    env.FileGuid,
			UserName:    env.UserName,
			Records:     env.Records,
		}

	case domain.MessageTypeWorkOrderIssues:
		env, err := domain.ParseComponentIssueEnvelope(msg.Body)
		if err != nil {
			b.failRoute(ctx, header.FileGuid, err)
			return nil
		}
		b.logger.Info("forwarding WorkOrderIssues message", "order", env.Records[0].Order)
		topicV1, topicV2 = b.routes.Issues, b.routes.IssuesV2
		sessionKey = env.Records[0].Order
		v2 = mesEventV2{
			MessageType: header.MessageType,
			FileGuid:    env.FileGuid,
			UserName:    env.UserName,
			Records:     env.Records,
		}

	default:
		message := fmt.Sprintf("unable to identify the message type %q", header.MessageType)
		b.logger.Warn(message, "message_id", msg.MessageID)
		b.status.MarkFailed(ctx, header.FileGuid, message)
		return nil
	}

	err = b.sender.Send(ctx, ports.OutboundMessage{
		Topic:         topicV1,
		Body:          msg.Body,
		ContentType:   "application/xml",
		CorrelationID: msg.CorrelationID,
		SessionKey:    sessionKey,
	})
	if err != nil {
		b.failRoute(ctx, header.FileGuid, err)
		return nil
	}

	v2Body, err := json.Marshal(v2)
	if err != nil {
		b.failRoute(ctx, header.FileGuid, err)
		return nil
	}
	err = b.sender.Send(ctx, ports.OutboundMessage{
		Topic:         topicV2,
		Body:          v2Body,
		ContentType:   "application/json",
		CorrelationID: msg.CorrelationID,
	})
	if err != nil {
		b.failRoute(ctx, header.FileGuid, err)
		return nil
	}
	return nil
}

func (b *Bridge) failRoute(ctx context.Context, fileGuid string, err error) {
	message := fmt.Sprintf("failed to route MES XML: %v", err)
	b.logger.Error(message)
	b.status.MarkFailed(ctx, fileGuid, message)
}

// Package service wires the bridge's message handlers: one per inbound topic,
// plus the MES output router. Handlers own the control flow (archival,
// eligibility, translation, dispatch, status reporting); the translation rules
// themselves live in internal/translate and internal/domain.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/factorybridge/erp-mes-bridge/internal/codetable"
	"github.com/factorybridge/erp-mes-bridge/internal/dispatch"
	"github.com/factorybridge/erp-mes-bridge/internal/eligibility"
	"github.com/factorybridge/erp-mes-bridge/internal/ports"
	"github.com/factorybridge/erp-mes-bridge/internal/status"
)

// Handler names, used to scope the archive prefix of each invocation.
const (
	handlerRouteMesOutput         = "route-mes-output"
	handlerComponentIssue         = "component-issue-to-erp"
	handlerGoodsReceipt           = "goods-receipt-to-erp"
	handlerProductionConfirmation = "production-confirmation-to-erp"
	handlerProductionOrder        = "production-order-to-mes"
	handlerInventoryMove          = "inventory-location-move-to-mes"
	handlerInspectionLot          = "inspection-lot-to-mes"
	handlerMaterialMaster         = "material-master-to-mes"
)

// ArchiveFactory builds the archive scoped to one invocation.
type ArchiveFactory func(handler, messageID string) (ports.Archive, error)

// ErpFactory builds an ERP client whose artifacts land in the given archive.
type ErpFactory func(archive ports.Archive) (ports.ErpClient, error)

// Routes is the outbound topology: forwarding topics for routed MES events and
// the queue pair per ERP-to-MES document flow.
type Routes struct {
	Backflush   string
	BackflushV2 string
	Issues      string
	IssuesV2    string

	OrderQueues    dispatch.QueuePair
	LotQueues      dispatch.QueuePair
	MaterialQueues dispatch.QueuePair
}

// Config wires a Bridge.
type Config struct {
	Sender     ports.BusSender
	Status     *status.Reporter
	Dispatcher *dispatch.Dispatcher
	Filter     *eligibility.Filter
	Tables     *codetable.Set
	NewArchive ArchiveFactory
	NewErp     ErpFactory
	Routes     Routes
	Logger     *slog.Logger

	// Now stamps manufacture dates on goods receipts. Defaults to time.Now.
	Now func() time.Time
}

// Bridge hosts the topic handlers. Archives and ERP clients are created per
// inbound message so every artifact of an invocation shares one prefix.
type Bridge struct {
	sender     ports.BusSender
	status     *status.Reporter
	dispatcher *dispatch.Dispatcher
	filter     *eligibility.Filter
	tables     *codetable.Set
	newArchive ArchiveFactory
	newErp     ErpFactory
	routes     Routes
	logger     *slog.Logger
	now        func() time.Time
}

// NewBridge constructs a Bridge.
func NewBridge(cfg Config) (*Bridge, error) {
	switch {
	case cfg.Sender == nil:
		return nil, fmt.Errorf("sender must not be nil")
	case cfg.Status == nil:
		return nil, fmt.Errorf("status reporter must not be nil")
	case cfg.Dispatcher == nil:
		return nil, fmt.Errorf("dispatcher must not be nil")
	case cfg.Filter == nil:
		return nil, fmt.Errorf("eligibility filter must not be nil")
	case cfg.Tables == nil:
		return nil, fmt.Errorf("code tables must not be nil")
	case cfg.NewArchive == nil:
		return nil, fmt.Errorf("archive factory must not be nil")
	case cfg.NewErp == nil:
		return nil, fmt.Errorf("erp factory must not be nil")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Bridge{
		sender:     cfg.Sender,
		status:     cfg.Status,
		dispatcher: cfg.Dispatcher,
		filter:     cfg.Filter,
		tables:     cfg.Tables,
		newArchive: cfg.NewArchive,
		newErp:     cfg.NewErp,
		routes:     cfg.Routes,
		logger:     cfg.Logger,
		now:        cfg.Now,
	}, nil
}

// Handler processes one inbound message. A nil return commits the message; an
// error leaves it uncommitted for redelivery.
type Handler func(ctx context.Context, msg ports.InboundMessage) error

// Run consumes messages from the given consumer and feeds them to the handler
// until the context is cancelled or the consumer fails. Handler errors leave
// the message uncommitted and are logged; they do not stop the loop.
func (b *Bridge) Run(ctx context.Context, consumer ports.BusConsumer, name string, handler Handler) error {
	msgCh, errCh := consumer.Consume(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			return fmt.Errorf("consumer %s: %w", name, err)
		case msg, ok := <-msgCh:
			if !ok {
				return nil
			}
			if err := handler(ctx, msg); err != nil {
				b.logger.Error("message processing failed, leaving it uncommitted",
					"handler", name, "message_id", msg.MessageID, "error", err)
				continue
			}
			if msg.Commit != nil {
				if err := msg.Commit(ctx); err != nil {
					b.logger.Error("failed to commit message",
						"handler", name, "message_id", msg.MessageID, "error", err)
				}
			}
		}
	}
}

// invocation builds the archive and ERP client scoped to one inbound message.
func (b *Bridge) invocation(handler, messageID string) (ports.Archive, ports.ErpClient, error) {
	archive, err := b.newArchive(handler, messageID)
	if err != nil {
		return nil, nil, fmt.Errorf("build archive for %s: %w", handler, err)
	}
	erp, err := b.newErp(archive)
	if err != nil {
		return nil, nil, fmt.Errorf("build ERP client for %s: %w", handler, err)
	}
	return archive, erp, nil
}

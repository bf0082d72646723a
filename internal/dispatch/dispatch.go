// Package dispatch drives outbound deliveries: confirmation posting towards
// the ERP, with optional work-proposal enrichment and a settle delay, and
// queue selection towards the two MES instances.
package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/factorybridge/erp-mes-bridge/internal/domain"
	"github.com/factorybridge/erp-mes-bridge/internal/eligibility"
	"github.com/factorybridge/erp-mes-bridge/internal/ports"
)

// QueuePair names the primary and secondary MES queue for one document flow.
type QueuePair struct {
	Primary   string
	Secondary string
}

// Destination returns the queue serving the MES instance the plant belongs
// to. The secondary-only plant is hard-wired; every other plant maps to the
// primary instance.
func (p QueuePair) Destination(erpPlant string) string {
	if erpPlant == eligibility.PlantSecondaryOnly {
		return p.Secondary
	}
	return p.Primary
}

// Dispatcher posts confirmations to the ERP. The client is taken per call
// because clients are scoped to the inbound message that produced the
// confirmation.
type Dispatcher struct {
	settleDelay time.Duration
	logger      *slog.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// NewDispatcher constructs a Dispatcher. settleDelay compensates for the
// ERP's asynchronous confirmation post-processing; zero disables it.
func NewDispatcher(settleDelay time.Duration, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{settleDelay: settleDelay, logger: logger, sleep: sleepCtx}
}

// SendConfirmation posts the confirmation. When enrich is set and the request
// carries a yield quantity, the ERP's proposed work quantities are merged in
// first so capacity postings follow the routing's standard values.
func (d *Dispatcher) SendConfirmation(ctx context.Context, client ports.ErpClient, req *domain.ConfirmationRequest, enrich bool) error {
	if enrich && req.SupportsEnrichment() {
		proposal, err := client.ConfirmationProposal(ctx, req)
		if err != nil {
			return err
		}
		req.WorkQuantity1 = proposal.WorkQuantity1
		req.WorkQuantity2 = proposal.WorkQuantity2
		req.WorkQuantity3 = proposal.WorkQuantity3
		req.WorkQuantity4 = proposal.WorkQuantity4
		req.WorkQuantity5 = proposal.WorkQuantity5
		req.WorkQuantity6 = proposal.WorkQuantity6
	}

	if err := client.SendConfirmation(ctx, req); err != nil {
		return err
	}

	if d.settleDelay > 0 {
		d.logger.Info("waiting for confirmation to settle",
			"order", req.OrderID, "operation", req.OrderOperation, "delay", d.settleDelay)
		return d.sleep(ctx, d.settleDelay)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

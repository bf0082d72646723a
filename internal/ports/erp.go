package ports

import (
	"context"

	"github.com/factorybridge/erp-mes-bridge/internal/domain"
)

// ErpClient is the outbound REST surface of the ERP system's OData-style API.
// Every call archives the raw response before interpreting it, so failures
// always reference a stored artifact.
type ErpClient interface {
	// ProductionOrder fetches the order entity for the given order number.
	ProductionOrder(ctx context.Context, order string) (domain.OrderInfo, error)

	// ProductionOrderComponents fetches the order's reservation lines.
	ProductionOrderComponents(ctx context.Context, order string) ([]domain.ComponentLine, error)

	// SendConfirmation posts a production-order confirmation. Lock conflicts
	// are retried internally with exponential backoff before failing.
	SendConfirmation(ctx context.Context, body *domain.ConfirmationRequest) error

	// ConfirmationProposal fetches the proposed work quantities for the given
	// confirmation.
	ConfirmationProposal(ctx context.Context, body *domain.ConfirmationRequest) (domain.WorkProposal, error)

	// CharacteristicInternalID resolves the internal ID of a characteristic
	// by its description.
	CharacteristicInternalID(ctx context.Context, description string) (string, error)

	// CharacteristicValues fetches the values of the given characteristic for
	// a product.
	CharacteristicValues(ctx context.Context, product, charcInternalID string) ([]string, error)
}

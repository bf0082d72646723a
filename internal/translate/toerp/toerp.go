// Package toerp builds ERP confirmation requests from parsed MES
// transactions. All functions are pure over their inputs; remote lookups
// (reservations, parent orders) are fetched by the caller and passed in.
package toerp

import (
	"fmt"
	"strconv"
	"time"

	"github.com/factorybridge/erp-mes-bridge/internal/codetable"
	"github.com/factorybridge/erp-mes-bridge/internal/domain"
)

const (
	// storageLocation is fixed for all goods movements posted by the bridge.
	storageLocation = "2000"

	// sequence is the confirmation sequence; the MES only reports against the
	// primary sequence.
	sequence = "00"

	// parentBatchCharacteristic carries the MES parent batch on receipt
	// batches.
	parentBatchCharacteristic = "ZLOBM_PARENTBATCH"
)

// PadOperation left-pads an operation number to the ERP's fixed 4-digit
// format.
func PadOperation(op string) string {
	for len(op) < 4 {
		op = "0" + op
	}
	return op
}

// formatQuantity renders a quantity the way the ERP expects decimal strings:
// shortest representation, no exponent for ordinary magnitudes.
func formatQuantity(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}

// ComponentIssue assembles one grouped confirmation request from a
// WorkOrderIssues envelope. Each record resolves its reservation line from the
// index; a material without a variable-quantity reservation fails the whole
// envelope. Negative quantities post as reversals with the absolute quantity.
func ComponentIssue(env *domain.ComponentIssueEnvelope, reservations domain.ReservationIndex, plants, uoms *codetable.Table) (*domain.ConfirmationRequest, error) {
	first := env.Records[0]

	var items []domain.MaterialDocumentItem
	for _, rec := range env.Records {
		reservation, ok := reservations[rec.Material]
		if !ok {
			return nil, fmt.Errorf("no reservation with variable quantity found for the material %s", rec.Material)
		}
		erpPlant, err := plants.ToErp(rec.Plant)
		if err != nil {
			return nil, err
		}
		erpUnit, err := uoms.ToErp(rec.Unit)
		if err != nil {
			return nil, err
		}

		quantity := rec.Quantity
		movementType := domain.MovementIssue
		if quantity < 0 {
			movementType = domain.MovementIssueReversal
			quantity = -quantity
		}

		items = append(items, domain.MaterialDocumentItem{
			OrderID:             rec.Order,
			Material:            rec.Material,
			Reservation:         reservation.Reservation,
			ReservationItem:     reservation.ReservationItem,
			Plant:               erpPlant,
			StorageLocation:     storageLocation,
			GoodsMovementType:   movementType,
			EntryUnitISOCode:    erpUnit,
			QuantityInEntryUnit: formatQuantity(quantity),
			Batch:               rec.Batch,
			StorageBin:          rec.Location,
			Warehouse:           erpPlant,
		})
	}

	return &domain.ConfirmationRequest{
		OrderID:               first.Order,
		OrderOperation:        PadOperation(first.Operation),
		Sequence:              sequence,
		MaterialDocumentItems: items,
	}, nil
}

// GoodsReceipt builds the confirmation request for one SuperBackFlush record
// carrying a physical receipt. A negative completed quantity posts as a
// receipt reversal and zeroes the yield and scrap quantities, since a
// reversal is not production output. order supplies the produced material and
// its unit; now stamps the manufacture date.
func GoodsReceipt(rec domain.BackflushRecord, order domain.OrderInfo, plants *codetable.Table, now time.Time) (*domain.ConfirmationRequest, error) {
	erpPlant, err := plants.ToErp(rec.Plant)
	if err != nil {
		return nil, err
	}

	quantity := rec.QuantityCompleted
	yield := rec.QuantityCompleted
	scrap := rec.QuantityCanceled
	movementType := domain.MovementReceipt
	if quantity < 0 {
		quantity = -quantity
		movementType = domain.MovementReceiptReversal
		yield = 0
		scrap = 0
	}

	body := &domain.ConfirmationRequest{
		OrderID:                   rec.Order,
		Plant:                     erpPlant,
		OrderOperation:            PadOperation(rec.Operation),
		Sequence:                  sequence,
		ConfirmationYieldQuantity: formatQuantity(yield),
		ConfirmationScrapQuantity: formatQuantity(scrap),
		MaterialDocumentItems: []domain.MaterialDocumentItem{{
			OrderID:                 rec.Order,
			OrderItem:               "0001",
			Material:                order.Material,
			Plant:                   erpPlant,
			StorageLocation:         storageLocation,
			GoodsMovementType:       movementType,
			GoodsMovementRefDocType: "F",
			EntryUnit:               order.ProductionUnit,
			QuantityInEntryUnit:     formatQuantity(quantity),
			Batch:                   rec.Batch,
			StorageBin:              rec.Location,
			Warehouse:               erpPlant,
			ManufactureDate:         fmt.Sprintf("/Date(%d)/", now.UnixMilli()),
			BatchCharacteristics: []domain.BatchCharacteristic{{
				Characteristic: parentBatchCharacteristic,
				CharcValue:     rec.ParentBatch,
			}},
		}},
	}

	// A closed route step becomes a final confirmation.
	if rec.OperationStatus == domain.OperationStatusCompleted {
		body.IsFinalConfirmation = true
		body.FinalConfirmationType = "X"
	}

	return body, nil
}

// Confirmation builds the confirmation request for one SuperBackFlush record
// without a goods receipt: yield and scrap only, no material movements.
func Confirmation(rec domain.BackflushRecord, plants *codetable.Table) (*domain.ConfirmationRequest, error) {
	erpPlant, err := plants.ToErp(rec.Plant)
	if err != nil {
		return nil, err
	}

	body := &domain.ConfirmationRequest{
		OrderID:                   rec.Order,
		Plant:                     erpPlant,
		OrderOperation:            PadOperation(rec.Operation),
		Sequence:                  sequence,
		ConfirmationYieldQuantity: formatQuantity(rec.QuantityCompleted),
		ConfirmationScrapQuantity: formatQuantity(rec.QuantityCanceled),
	}

	if rec.OperationStatus == domain.OperationStatusCompleted {
		body.OpenReservationsIsCleared = true
		body.IsFinalConfirmation = true
		body.FinalConfirmationType = "X"
	}

	return body, nil
}

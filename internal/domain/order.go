package domain

import (
	"fmt"
	"strings"
)

// ProductionOrder is the ERP production-order snapshot received as JSON.
// The seven OrderIs* flags come from the ERP as "X" / "" markers.
type ProductionOrder struct {
	Material                       string                     `json:"Material"`
	ManufacturingOrder             string                     `json:"ManufacturingOrder"`
	ProductionPlant                string                     `json:"ProductionPlant"`
	TotalQuantity                  string                     `json:"TotalQuantity"`
	ProductionUnitISOCode          string                     `json:"ProductionUnitISOCode"`
	ScheduledStartDateTime         string                     `json:"MfgOrderScheduledStartDateTimeISO"`
	ScheduledEndDateTime           string                     `json:"MfgOrderScheduledEndDateTimeISO"`
	Components                     []ProductionOrderComponent `json:"ProductionOrderComponents"`
	Operations                     []ProductionOrderOperation `json:"ProductionOrderOperations"`
	OrderIsCreated                 string                     `json:"OrderIsCreated"`
	OrderIsReleased                string                     `json:"OrderIsReleased"`
	OrderIsPartiallyConfirmed      string                     `json:"OrderIsPartiallyConfirmed"`
	OrderIsConfirmed               string                     `json:"OrderIsConfirmed"`
	OrderIsDelivered               string                     `json:"OrderIsDelivered"`
	OrderIsPartiallyDelivered      string                     `json:"OrderIsPartiallyDelivered"`
	OrderIsTechnicallyCompleted    string                     `json:"OrderIsTechnicallyCompleted"`
}

// ProductionOrderComponent is one BOM line of the order snapshot.
type ProductionOrderComponent struct {
	Material            string `json:"Material"`
	RequiredQuantity    string `json:"RequiredQuantity"`
	Sequence            string `json:"ManufacturingOrderSequence"`
	Operation           string `json:"ManufacturingOrderOperation"`
	UnitISOCode         string `json:"BaseUnitISOCode"`
	StorageLocation     string `json:"StorageLocation"`
	MarkedForBackflush  bool   `json:"MatlCompIsMarkedForBackflush"`
	IsBulk              bool   `json:"IsBulkMaterialComponent"`
	MarkedForDeletion   bool   `json:"MatlCompIsMarkedForDeletion"`
	IsPhantom           bool   `json:"MaterialComponentIsPhantomItem"`
}

// ProductionOrderOperation is one route step of the order snapshot.
type ProductionOrderOperation struct {
	WorkCenter            string  `json:"WorkCenter"`
	Operation             string  `json:"ManufacturingOrderOperation"`
	Sequence              string  `json:"ManufacturingOrderSequence"`
	Text                  string  `json:"MfgOrderOperationText"`
	ScheduledStart        string  `json:"OpErlstSchedldExecStrtDteTmeISO"`
	ScheduledEnd          string  `json:"OpErlstSchedldExecEndDteTmeISO"`
	PlannedQuantity       float64 `json:"OpPlannedTotalQuantity"`
	ConfirmedYieldQty     float64 `json:"OpTotalConfirmedYieldQty"`
	IsPartiallyConfirmed  string  `json:"OperationIsPartiallyConfirmed"`
	IsReleased            string  `json:"OperationIsReleased"`
	IsClosed              string  `json:"OperationIsClosed"`
	IsDeleted             string  `json:"OperationIsDeleted"`
}

// OrderStatusCreated marks an order the MES has no interest in yet; messages
// with this status are skipped rather than forwarded.
const OrderStatusCreated = "-1"

// OrderStatus maps the ERP's status flag combination to the MES work-order
// status code. The rules are priority-ordered and the first match wins. The
// set of valid combinations is business-defined, so an unmatched combination
// is a hard error rather than a silent default.
func (o *ProductionOrder) OrderStatus() (string, error) {
	switch {
	case o.OrderIsReleased == "X" && o.OrderIsPartiallyConfirmed == "X" && o.OrderIsDelivered == "":
		return "45", nil
	case o.OrderIsReleased == "X" && o.OrderIsPartiallyDelivered == "X":
		return "90", nil
	case o.OrderIsReleased == "X" && o.OrderIsConfirmed == "X":
		return "95", nil
	case o.OrderIsTechnicallyCompleted == "X":
		return "95", nil
	case o.OrderIsReleased == "X":
		return "40", nil
	case o.OrderIsCreated == "X":
		return OrderStatusCreated, nil
	default:
		return "", &ConsistencyError{Reason: fmt.Sprintf(
			"failed to map order status. OrderIsReleased: %q, OrderIsPartiallyConfirmed: %q, OrderIsDelivered: %q, OrderIsPartiallyDelivered: %q, OrderIsConfirmed: %q, OrderIsTechnicallyCompleted: %q, OrderIsCreated: %q",
			o.OrderIsReleased, o.OrderIsPartiallyConfirmed, o.OrderIsDelivered,
			o.OrderIsPartiallyDelivered, o.OrderIsConfirmed, o.OrderIsTechnicallyCompleted,
			o.OrderIsCreated)}
	}
}

// StepStatus maps the operation's status flags to the MES route-step status
// code, again priority-ordered and fail-fast on an unmatched combination.
func (op *ProductionOrderOperation) StepStatus() (string, error) {
	switch {
	case op.IsClosed == "X":
		return "30", nil
	case op.IsPartiallyConfirmed == "X":
		return "20", nil
	case op.IsReleased == "X":
		return "10", nil
	default:
		return "", &ConsistencyError{Reason: fmt.Sprintf(
			"failed to map operation status. OperationIsClosed: %q, OperationIsReleased: %q, OperationIsPartiallyConfirmed: %q",
			op.IsClosed, op.IsReleased, op.IsPartiallyConfirmed)}
	}
}

// PrimaryOperations returns the route steps of the primary sequence ("0"),
// skipping deleted steps. Alternative sequences are not modelled in the MES.
func (o *ProductionOrder) PrimaryOperations() []ProductionOrderOperation {
	var out []ProductionOrderOperation
	for _, op := range o.Operations {
		if op.IsDeleted == "X" {
			continue
		}
		if strings.TrimSpace(op.Sequence) != "0" {
			continue
		}
		out = append(out, op)
	}
	return out
}

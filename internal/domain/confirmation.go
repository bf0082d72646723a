package domain

// Goods movement type codes posted with confirmations. The reversal code is
// used when the MES reports a negative quantity.
const (
	MovementIssue          = "261"
	MovementIssueReversal  = "262"
	MovementReceipt        = "101"
	MovementReceiptReversal = "102"
)

// ConfirmationRequest is the JSON body of the ERP production-order
// confirmation endpoint. Component issues and goods receipts share the same
// endpoint; fields not applicable to a variant stay empty and are omitted.
type ConfirmationRequest struct {
	OrderID                   string                 `json:"OrderID"`
	Plant                     string                 `json:"Plant,omitempty"`
	OrderOperation            string                 `json:"OrderOperation"`
	Sequence                  string                 `json:"Sequence"`
	ConfirmationYieldQuantity string                 `json:"ConfirmationYieldQuantity,omitempty"`
	ConfirmationScrapQuantity string                 `json:"ConfirmationScrapQuantity,omitempty"`
	WorkQuantity1             string                 `json:"OpConfirmedWorkQuantity1,omitempty"`
	WorkQuantity2             string                 `json:"OpConfirmedWorkQuantity2,omitempty"`
	WorkQuantity3             string                 `json:"OpConfirmedWorkQuantity3,omitempty"`
	WorkQuantity4             string                 `json:"OpConfirmedWorkQuantity4,omitempty"`
	WorkQuantity5             string                 `json:"OpConfirmedWorkQuantity5,omitempty"`
	WorkQuantity6             string                 `json:"OpConfirmedWorkQuantity6,omitempty"`
	IsFinalConfirmation       bool                   `json:"IsFinalConfirmation,omitempty"`
	FinalConfirmationType     string                 `json:"FinalConfirmationType,omitempty"`
	OpenReservationsIsCleared bool                   `json:"OpenReservationsIsCleared,omitempty"`
	MaterialDocumentItems     []MaterialDocumentItem `json:"to_ProdnOrdConfMatlDocItm,omitempty"`
}

// SupportsEnrichment reports whether the work-proposal endpoint can enrich
// this request: only confirmations carrying yield quantities qualify.
func (r *ConfirmationRequest) SupportsEnrichment() bool {
	return r.ConfirmationYieldQuantity != ""
}

// MaterialDocumentItem is one goods-movement line within a confirmation.
type MaterialDocumentItem struct {
	OrderID              string                `json:"OrderID"`
	OrderItem            string                `json:"OrderItem,omitempty"`
	Material             string                `json:"Material"`
	Reservation          string                `json:"Reservation,omitempty"`
	ReservationItem      string                `json:"ReservationItem,omitempty"`
	Plant                string                `json:"Plant"`
	StorageLocation      string                `json:"StorageLocation"`
	GoodsMovementType    string                `json:"GoodsMovementType"`
	GoodsMovementRefDocType string             `json:"GoodsMovementRefDocType,omitempty"`
	EntryUnit            string                `json:"EntryUnit,omitempty"`
	EntryUnitISOCode     string                `json:"EntryUnitISOCode,omitempty"`
	QuantityInEntryUnit  string                `json:"QuantityInEntryUnit"`
	Batch                string                `json:"Batch"`
	StorageBin           string                `json:"EWMStorageBin"`
	Warehouse            string                `json:"EWMWarehouse"`
	ManufactureDate      string                `json:"ManufactureDate,omitempty"`
	BatchCharacteristics []BatchCharacteristic `json:"to_ProdnOrderConfBatchCharc,omitempty"`
}

// BatchCharacteristic is one classification value posted on a receipt batch.
type BatchCharacteristic struct {
	Characteristic string `json:"Characteristic"`
	CharcValue     string `json:"CharcValue"`
}

// OrderInfo is the slice of the ERP production-order entity the goods-receipt
// translation needs: the produced material and its production unit.
type OrderInfo struct {
	Material       string `json:"Material"`
	ProductionUnit string `json:"ProductionUnit"`
}

// ComponentLine is one reservation line of a production order as returned by
// the ERP components endpoint.
type ComponentLine struct {
	Material        string `json:"Material"`
	Reservation     string `json:"Reservation"`
	ReservationItem string `json:"ReservationItem"`
	QuantityIsFixed *bool  `json:"QuantityIsFixed"`
}

// IsVariableQuantity reports whether the reservation quantity is not fixed by
// the bill of materials. Only such lines accept component consumption
// postings; an absent flag does not count as variable.
func (c ComponentLine) IsVariableQuantity() bool {
	return c.QuantityIsFixed != nil && !*c.QuantityIsFixed
}

// WorkProposal carries the six proposed work quantities returned by the ERP
// for a confirmation.
type WorkProposal struct {
	WorkQuantity1 string `json:"OpConfirmedWorkQuantity1"`
	WorkQuantity2 string `json:"OpConfirmedWorkQuantity2"`
	WorkQuantity3 string `json:"OpConfirmedWorkQuantity3"`
	WorkQuantity4 string `json:"OpConfirmedWorkQuantity4"`
	WorkQuantity5 string `json:"OpConfirmedWorkQuantity5"`
	WorkQuantity6 string `json:"OpConfirmedWorkQuantity6"`
}

// ReservationIndex maps a material to its first-seen variable-quantity
// reservation line. Built fresh per request and discarded after use.
type ReservationIndex map[string]ComponentLine

// BuildReservationIndex folds the ERP component lines into a reservation
// index, keeping only variable-quantity reservations, first seen per
// material.
func BuildReservationIndex(lines []ComponentLine) ReservationIndex {
	index := make(ReservationIndex)
	for _, line := range lines {
		if _, ok := index[line.Material]; ok {
			continue
		}
		if line.IsVariableQuantity() {
			index[line.Material] = line
		}
	}
	return index
}

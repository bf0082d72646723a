package domain

// Batch identifies an ERP batch together with the supplier's own lot number.
type Batch struct {
	Batch           string `json:"Batch"`
	BatchBySupplier string `json:"BatchBySupplier"`
}

// InventoryLocationMove is the ERP warehouse stock snapshot received as JSON
// whenever a batch moves or changes status.
type InventoryLocationMove struct {
	Warehouse           string  `json:"EWMWarehouse"`
	Batch               *Batch  `json:"Batch"`
	Product             Product `json:"Product"`
	AvailableQty        float64 `json:"AvailableEWMStockQty"`
	UnitISOCode         string  `json:"EWMStockQtyBaseUnitISOCode"`
	StorageBin          string  `json:"EWMStorageBin"`
	StockType           string  `json:"EWMStockType"`
	ShelfLifeExpiration string  `json:"ShelfLifeExpirationDate"`
	RestrictedUseStock  bool    `json:"EWMBatchIsInRestrictedUseStock"`
}

// Product pairs a material number with its classification assignments.
type Product struct {
	Product      string            `json:"Product"`
	ProductClass []ClassAssignment `json:"ProductClass"`
}

// InspectionLot is the ERP quality-inspection snapshot received as JSON when
// an inspection lot is created for a batch.
type InspectionLot struct {
	Plant            string `json:"Plant"`
	Batch            *Batch `json:"Batch"`
	Material         string `json:"Material"`
	Quantity         string `json:"InspectionLotQuantity"`
	QuantityUnit     string `json:"InspectionLotQuantityUnit"`
	StorageLocation  string `json:"BatchStorageLocation"`
	BatchBySupplier  string `json:"BatchBySupplier"`
}

// SupplierLot resolves the supplier lot with a fallback: the top-level field
// is preferred, but when the supplier lot was recorded on the batch after the
// inspection lot was created, only the batch carries it.
func (l *InspectionLot) SupplierLot() string {
	if l.BatchBySupplier != "" {
		return l.BatchBySupplier
	}
	if l.Batch != nil {
		return l.Batch.BatchBySupplier
	}
	return ""
}

// RestrictedUseStatus is the MES status override for restricted-use stock
// whose translated status is blank.
const RestrictedUseStatus = "X"

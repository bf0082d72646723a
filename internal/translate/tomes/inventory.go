package tomes

import (
	"encoding/xml"
	"fmt"

	"github.com/factorybridge/erp-mes-bridge/internal/codetable"
	"github.com/factorybridge/erp-mes-bridge/internal/domain"
)

// LotMessage is the queue message for a batch-level update (inventory
// location move or inspection lot): one archived XML document applied under a
// per-batch filename.
type LotMessage struct {
	Plant         string `json:"Plant"`
	Batch         string `json:"Batch"`
	Filename      string `json:"Filename"`
	UpdateXmlBlob string `json:"UpdateXmlBlob"`
}

type lotRoot struct {
	XMLName         xml.Name  `xml:"Root"`
	TransactionType string    `xml:"TransactionType,attr"`
	UnitStart       unitStart `xml:"UnitStart"`
}

type unitStart struct {
	BranchPlant    string  `xml:"BranchPlant"`
	Container      string  `xml:"Container"`
	Product        string  `xml:"Product"`
	Qty            string  `xml:"Qty"`
	UOM            string  `xml:"UOM"`
	Location       string  `xml:"Location"`
	Status         string  `xml:"Status"`
	MemoLot1       string  `xml:"MemoLot1"`
	MemoLot2       string  `xml:"MemoLot2"`
	MemoLot3       string  `xml:"MemoLot3"`
	SupplierLot    string  `xml:"SupplierLot"`
	Shipped        *string `xml:"Shipped,omitempty"`
	ExpirationDate *string `xml:"ExpirationDate,omitempty"`
	SellByDate     *string `xml:"SellByDate,omitempty"`
	Source         *string `xml:"Source,omitempty"`
}

// MoveStatus derives the MES lot status for a stock snapshot. Empty stock has
// no status; otherwise the raw stock type translates through the code table,
// and a blank translation on restricted-use stock overrides to the
// restricted marker.
func MoveStatus(m *domain.InventoryLocationMove, statuses *codetable.Table) (string, error) {
	if m.AvailableQty == 0 {
		return "", nil
	}
	status, err := statuses.ToMes(m.StockType)
	if err != nil {
		return "", err
	}
	if status == "" && m.RestrictedUseStock {
		return domain.RestrictedUseStatus, nil
	}
	return status, nil
}

// InventoryMoveXML generates the lot-master update document for a warehouse
// stock snapshot.
func InventoryMoveXML(m *domain.InventoryLocationMove, mesPlant string, uoms, statuses *codetable.Table) ([]byte, error) {
	mesUnit, err := uoms.ToMes(m.UnitISOCode)
	if err != nil {
		return nil, err
	}
	status, err := MoveStatus(m, statuses)
	if err != nil {
		return nil, err
	}

	empty := ""
	expiration := m.ShelfLifeExpiration
	return renderXML(lotRoot{
		TransactionType: "ipdERPLotMasterUpdate",
		UnitStart: unitStart{
			BranchPlant:    mesPlant,
			Container:      m.Batch.Batch,
			Product:        m.Product.Product,
			Qty:            formatQuantity(m.AvailableQty),
			UOM:            mesUnit,
			Location:       m.StorageBin,
			Status:         status,
			SupplierLot:    m.Batch.BatchBySupplier,
			Shipped:        &empty,
			ExpirationDate: &expiration,
			SellByDate:     &empty,
			Source:         &empty,
		},
	})
}

// NewInventoryMoveMessage assembles the queue message referencing the
// archived document.
func NewInventoryMoveMessage(m *domain.InventoryLocationMove, mesPlant, messageID, documentKey string) LotMessage {
	return LotMessage{
		Plant:         mesPlant,
		Batch:         m.Batch.Batch,
		Filename:      SanitizeFilename(fmt.Sprintf("IM-%s-%s.xml", m.Batch.Batch, messageID)),
		UpdateXmlBlob: documentKey,
	}
}

// InspectionLotXML generates the lot-master update document for an inspection
// lot. The status stays blank; quality decisions arrive as separate stock
// snapshots.
func InspectionLotXML(l *domain.InspectionLot, mesPlant string, uoms *codetable.Table) ([]byte, error) {
	mesUnit, err := uoms.ToMes(l.QuantityUnit)
	if err != nil {
		return nil, err
	}
	return renderXML(lotRoot{
		TransactionType: "ipdERPLotMasterUpdate",
		UnitStart: unitStart{
			BranchPlant: mesPlant,
			Container:   l.Batch.Batch,
			Product:     l.Material,
			Qty:         l.Quantity,
			UOM:         mesUnit,
			Location:    l.StorageLocation,
			SupplierLot: l.SupplierLot(),
		},
	})
}

// NewInspectionLotMessage assembles the queue message referencing the
// archived document.
func NewInspectionLotMessage(l *domain.InspectionLot, mesPlant, messageID, documentKey string) LotMessage {
	return LotMessage{
		Plant:         mesPlant,
		Batch:         l.Batch.Batch,
		Filename:      SanitizeFilename(fmt.Sprintf("IL-%s-%s-%s.xml", l.Batch.Batch, mesPlant, messageID)),
		UpdateXmlBlob: documentKey,
	}
}

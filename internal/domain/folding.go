package domain

import (
	"github.com/shopspring/decimal"
)

// Issue type codes derived from the bulk/backflush component flags.
const (
	IssueTypeManual    = "I" // issued by hand in the MES
	IssueTypeFloorStock = "F" // bulk floor stock, not individually issued
	IssueTypeBackflush = "B" // consumed automatically on confirmation
)

// IssueTypeCode derives the MES issue type from the component flags. A
// component marked both bulk and backflush is a data error in the ERP.
func (c *ProductionOrderComponent) IssueTypeCode() (string, error) {
	switch {
	case !c.IsBulk && !c.MarkedForBackflush:
		return IssueTypeManual, nil
	case c.IsBulk && !c.MarkedForBackflush:
		return IssueTypeFloorStock, nil
	case !c.IsBulk && c.MarkedForBackflush:
		return IssueTypeBackflush, nil
	default:
		return "", &ConsistencyError{
			Reason: "both IsBulkMaterialComponent and MatlCompIsMarkedForBackflush are true, which is a data error",
		}
	}
}

// BOMLine is one folded component line ready for MES document emission.
type BOMLine struct {
	Material        string
	Quantity        string
	Operation       string
	UnitISOCode     string
	StorageLocation string
	IssueTypeCode   string
}

type foldKey struct {
	material  string
	operation string
	unit      string
}

// FoldComponents reduces the order's component list to the BOM lines the MES
// consumes. Deleted, phantom, bulk, backflush-marked, and empty-material
// lines are dropped; the remainder is folded by (material, operation, unit)
// with quantities summed to three decimal places; folded lines that end up as
// non-consumable noise (floor-stock issue type with a zero or unparseable
// quantity) are removed. Output order follows first appearance in the input,
// so folding is insensitive to how split quantities are ordered.
func FoldComponents(components []ProductionOrderComponent) ([]BOMLine, error) {
	type folded struct {
		component ProductionOrderComponent
		quantity  decimal.Decimal
		parseable bool
	}

	var order []foldKey
	byKey := make(map[foldKey]*folded)

	for _, c := range components {
		if c.Material == "" || c.MarkedForDeletion || c.IsPhantom || c.IsBulk || c.MarkedForBackflush {
			continue
		}
		qty, qtyErr := decimal.NewFromString(c.RequiredQuantity)

		key := foldKey{material: c.Material, operation: c.Operation, unit: c.UnitISOCode}
		if existing, ok := byKey[key]; ok {
			if qtyErr == nil {
				existing.quantity = existing.quantity.Add(qty).Round(3)
			}
			continue
		}
		f := &folded{component: c, quantity: qty, parseable: qtyErr == nil}
		byKey[key] = f
		order = append(order, key)
	}

	var lines []BOMLine
	for _, key := range order {
		f := byKey[key]
		issueType, err := f.component.IssueTypeCode()
		if err != nil {
			return nil, err
		}
		// Non-consumables such as labels or dies show up as floor stock with
		// no quantity; they carry no meaning for the MES.
		if issueType == IssueTypeFloorStock && (!f.parseable || f.quantity.IsZero()) {
			continue
		}
		quantity := f.component.RequiredQuantity
		if f.parseable {
			quantity = f.quantity.String()
		}
		lines = append(lines, BOMLine{
			Material:        f.component.Material,
			Quantity:        quantity,
			Operation:       f.component.Operation,
			UnitISOCode:     f.component.UnitISOCode,
			StorageLocation: f.component.StorageLocation,
			IssueTypeCode:   issueType,
		})
	}
	return lines, nil
}

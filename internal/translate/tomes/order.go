package tomes

import (
	"encoding/xml"
	"fmt"

	"github.com/factorybridge/erp-mes-bridge/internal/codetable"
	"github.com/factorybridge/erp-mes-bridge/internal/domain"
)

// OrderDocuments holds the five XML documents generated for one production
// order snapshot, in the order they are archived.
type OrderDocuments struct {
	Create           []byte // new work order (ERPWOStart)
	Update           []byte // existing work order (ERPWOChange)
	CreateOperations []byte // new route (ERPRouteStart)
	UpdateOperations []byte // existing route (ERPRouteChange)
	UpdateComponents []byte // material list (ERPMatlListChange)
}

// OrderMessage is the queue message telling the MES which archived documents
// to apply for one production order.
type OrderMessage struct {
	Plant                             string `json:"Plant"`
	ProductionOrder                   string `json:"ProductionOrder"`
	ProductionOrderFilename           string `json:"ProductionOrderFilename"`
	CreateProductionOrder             string `json:"CreateProductionOrder"`
	UpdateProductionOrder             string `json:"UpdateProductionOrder"`
	ProductionOrderOperationsFilename string `json:"ProductionOrderOperationsFilename"`
	CreateProductionOrderOperations   string `json:"CreateProductionOrderOperations"`
	UpdateProductionOrderOperations   string `json:"UpdateProductionOrderOperations"`
	ProductionOrderComponentsFilename string `json:"ProductionOrderComponentsFilename"`
	UpdateProductionOrderComponents   string `json:"UpdateProductionOrderComponents"`
}

// NewOrderMessage assembles the queue message for one translated order. keys
// names the archived documents; messageID makes the MES-side filenames unique.
func NewOrderMessage(o *domain.ProductionOrder, mesPlant, messageID string, docs OrderKeys) OrderMessage {
	prefix := fmt.Sprintf("%s-%s", o.ManufacturingOrder, mesPlant)
	suffix := fmt.Sprintf("%s.xml", messageID)
	return OrderMessage{
		Plant:                             mesPlant,
		ProductionOrder:                   o.ManufacturingOrder,
		ProductionOrderFilename:           SanitizeFilename(fmt.Sprintf("WO-%s-%s", prefix, suffix)),
		CreateProductionOrder:             docs.Create,
		UpdateProductionOrder:             docs.Update,
		ProductionOrderOperationsFilename: SanitizeFilename(fmt.Sprintf("WOO-%s-route-%s", prefix, suffix)),
		CreateProductionOrderOperations:   docs.CreateOperations,
		UpdateProductionOrderOperations:   docs.UpdateOperations,
		ProductionOrderComponentsFilename: SanitizeFilename(fmt.Sprintf("WOC-%s-components-%s", prefix, suffix)),
		UpdateProductionOrderComponents:   docs.UpdateComponents,
	}
}

// OrderKeys are the archive keys the five order documents were stored under.
type OrderKeys struct {
	Create           string
	Update           string
	CreateOperations string
	UpdateOperations string
	UpdateComponents string
}

type woRoot struct {
	XMLName         xml.Name `xml:"Root"`
	TransactionType string   `xml:"TransactionType,attr"`
	WOStart         woStart  `xml:"WOStart"`
}

type woStart struct {
	BranchPlant  string    `xml:"BranchPlant"`
	WONumber     string    `xml:"WONumber"`
	Product      string    `xml:"Product"`
	Qty          string    `xml:"Qty"`
	UOM          string    `xml:"UOM"`
	Status       string    `xml:"Status"`
	StartDate    string    `xml:"StartDate"`
	CompDate     string    `xml:"CompDate"`
	ERPRoute     string    `xml:"ERPRoute"`
	ItemList     *itemList `xml:"ItemList,omitempty"`
	ERPOrderType string    `xml:"ERPOrderType"`
}

type itemList struct {
	Items []bomItem `xml:"BOMItem"`
}

type bomItem struct {
	Qty           string `xml:"Qty"`
	Item          string `xml:"Item"`
	SeqNum        string `xml:"SeqNum"`
	ItemUOM       string `xml:"ItemUOM"`
	ItemLocation  string `xml:"ItemLocation"`
	IssueTypeCode string `xml:"IssueTypeCode"`
}

type routeRoot struct {
	XMLName         xml.Name         `xml:"Root"`
	TransactionType string           `xml:"TransactionType,attr"`
	Name            string           `xml:"Name"`
	Revision        string           `xml:"Revision"`
	Description     string           `xml:"Description"`
	Notes           string           `xml:"Notes"`
	Status          string           `xml:"Status"`
	EOC             string           `xml:"EOC"`
	Product         string           `xml:"Product"`
	ERPItem         string           `xml:"ERPItem"`
	StepDelete      *routeStepDelete `xml:"RouteStepDelete,omitempty"`
	Steps           []routeStep      `xml:"RouteStepAdd"`
}

type routeStepDelete struct {
	StepIndex string `xml:"StepIndex"`
}

type routeStep struct {
	StepName          string  `xml:"StepName"`
	Operation         string  `xml:"Operation"`
	Sequence          string  `xml:"Sequence"`
	StepDescription   string  `xml:"StepDescription"`
	WCStartDate       string  `xml:"WCStartDate"`
	WCEndDate         string  `xml:"WCEndDate"`
	OperationStatus   string  `xml:"OperationStatus"`
	PlannedQuantity   string  `xml:"PlannedQuantity"`
	CompletedQuantity *string `xml:"CompletedQuantity,omitempty"`
}

type matlListRoot struct {
	XMLName         xml.Name   `xml:"Root"`
	TransactionType string     `xml:"TransactionType,attr"`
	WOrder          matlWOrder `xml:"WOrder"`
}

type matlWOrder struct {
	WONumber   string   `xml:"WONumber"`
	ItemDelete string   `xml:"ItemDelete"`
	ItemList   itemList `xml:"ItemList"`
}

// OrderXML generates all five MES documents for a production order snapshot.
// status is the already-derived work-order status and mesPlant the translated
// plant code.
func OrderXML(o *domain.ProductionOrder, status, mesPlant string, uoms *codetable.Table) (*OrderDocuments, error) {
	items, err := orderBOMItems(o, uoms)
	if err != nil {
		return nil, err
	}
	createSteps, err := orderRouteSteps(o, false)
	if err != nil {
		return nil, err
	}
	updateSteps, err := orderRouteSteps(o, true)
	if err != nil {
		return nil, err
	}

	mesUnit, err := uoms.ToMes(o.ProductionUnitISOCode)
	if err != nil {
		return nil, err
	}
	startDate, err := shortDate(o.ScheduledStartDateTime)
	if err != nil {
		return nil, err
	}
	endDate, err := shortDate(o.ScheduledEndDateTime)
	if err != nil {
		return nil, err
	}

	start := woStart{
		BranchPlant:  mesPlant,
		WONumber:     o.ManufacturingOrder,
		Product:      o.Material,
		Qty:          o.TotalQuantity,
		UOM:          mesUnit,
		Status:       status,
		StartDate:    startDate,
		CompDate:     endDate,
		ERPRoute:     o.ManufacturingOrder,
		ERPOrderType: "ERPWO",
	}

	createStart := start
	createStart.ItemList = &itemList{Items: items}
	create, err := renderXML(woRoot{TransactionType: "ERPWOStart", WOStart: createStart})
	if err != nil {
		return nil, err
	}
	update, err := renderXML(woRoot{TransactionType: "ERPWOChange", WOStart: start})
	if err != nil {
		return nil, err
	}

	route := routeRoot{
		Name:     o.ManufacturingOrder,
		Revision: "1",
		Status:   "1",
		Product:  o.Material,
	}

	createRoute := route
	createRoute.TransactionType = "ERPRouteStart"
	createRoute.Steps = createSteps
	createOperations, err := renderXML(createRoute)
	if err != nil {
		return nil, err
	}

	updateRoute := route
	updateRoute.TransactionType = "ERPRouteChange"
	updateRoute.StepDelete = &routeStepDelete{}
	updateRoute.Steps = updateSteps
	updateOperations, err := renderXML(updateRoute)
	if err != nil {
		return nil, err
	}

	updateComponents, err := renderXML(matlListRoot{
		TransactionType: "ERPMatlListChange",
		WOrder: matlWOrder{
			WONumber: o.ManufacturingOrder,
			ItemList: itemList{Items: items},
		},
	})
	if err != nil {
		return nil, err
	}

	return &OrderDocuments{
		Create:           create,
		Update:           update,
		CreateOperations: createOperations,
		UpdateOperations: updateOperations,
		UpdateComponents: updateComponents,
	}, nil
}

func orderBOMItems(o *domain.ProductionOrder, uoms *codetable.Table) ([]bomItem, error) {
	lines, err := domain.FoldComponents(o.Components)
	if err != nil {
		return nil, err
	}
	items := make([]bomItem, 0, len(lines))
	for _, line := range lines {
		op, err := operationNumber(line.Operation)
		if err != nil {
			return nil, err
		}
		mesUnit, err := uoms.ToMes(line.UnitISOCode)
		if err != nil {
			return nil, err
		}
		items = append(items, bomItem{
			Qty:           line.Quantity,
			Item:          line.Material,
			SeqNum:        fmt.Sprintf("%d00", op),
			ItemUOM:       mesUnit,
			ItemLocation:  line.StorageLocation,
			IssueTypeCode: line.IssueTypeCode,
		})
	}
	return items, nil
}

// orderRouteSteps emits one step per primary-sequence operation. The update
// variant additionally reports the confirmed yield back to the MES.
func orderRouteSteps(o *domain.ProductionOrder, withCompleted bool) ([]routeStep, error) {
	operations := o.PrimaryOperations()
	steps := make([]routeStep, 0, len(operations))
	for _, op := range operations {
		num, err := operationNumber(op.Operation)
		if err != nil {
			return nil, err
		}
		status, err := op.StepStatus()
		if err != nil {
			return nil, err
		}
		startDate, err := shortDate(op.ScheduledStart)
		if err != nil {
			return nil, err
		}
		endDate, err := shortDate(op.ScheduledEnd)
		if err != nil {
			return nil, err
		}
		step := routeStep{
			StepName:        op.WorkCenter,
			Sequence:        fmt.Sprintf("%d", num),
			StepDescription: op.Text,
			WCStartDate:     startDate,
			WCEndDate:       endDate,
			OperationStatus: status,
			PlannedQuantity: formatQuantity(op.PlannedQuantity),
		}
		if withCompleted {
			completed := formatQuantity(op.ConfirmedYieldQty)
			step.CompletedQuantity = &completed
		}
		steps = append(steps, step)
	}
	return steps, nil
}

package tomes

import (
	"encoding/xml"
	"fmt"

	"github.com/factorybridge/erp-mes-bridge/internal/codetable"
	"github.com/factorybridge/erp-mes-bridge/internal/domain"
)

// MaterialDocuments holds the create and update XML documents generated per
// eligible plant of a material master.
type MaterialDocuments struct {
	Create []byte // new product (ERPProductNew)
	Update []byte // existing product (ERPProductChange)
}

// MaterialMessage is the queue message telling the MES which archived
// documents to apply for one material at one plant.
type MaterialMessage struct {
	MaterialNumber string `json:"MaterialNumber"`
	Plant          string `json:"Plant"`
	Filename       string `json:"Filename"`
	CreateXmlBlob  string `json:"CreateXmlBlob"`
	UpdateXmlBlob  string `json:"UpdateXmlBlob"`
}

type productRoot struct {
	XMLName         xml.Name    `xml:"Root"`
	TransactionType string      `xml:"TransactionType,attr"`
	ProductInfo     productInfo `xml:"ProductInfo"`
}

type productInfo struct {
	Product           cdata   `xml:"Product"`
	Revision          string  `xml:"Revision"`
	ERPDescription    cdata   `xml:"ERPDescription"`
	PrimaryUOM        string  `xml:"PrimaryUOM"`
	ProductType       string  `xml:"ProductType,omitempty"`
	NonAccretiveIssue string  `xml:"NonAccretiveIssue,omitempty"`
	LotControlled     string  `xml:"LotControlled,omitempty"`
	CountryOfOrigin   *string `xml:"CountryOfOrigin,omitempty"`
}

// MaterialXML generates the create and update documents for one plant of a
// material master. The English description is resolved by the caller since
// its absence fails the whole envelope, not just one plant.
func MaterialXML(m *domain.MaterialMaster, description string, plant domain.PlantData, uoms *codetable.Table) (*MaterialDocuments, error) {
	mesUnit, err := uoms.ToMes(m.BaseUnitISOCode)
	if err != nil {
		return nil, err
	}

	create, err := renderXML(productRoot{
		TransactionType: "ERPProductNew",
		ProductInfo: productInfo{
			Product:           cdata{Value: m.Product},
			Revision:          "1",
			ERPDescription:    cdata{Value: description},
			PrimaryUOM:        mesUnit,
			ProductType:       "UNMODELED",
			NonAccretiveIssue: "True",
			LotControlled:     "True",
		},
	})
	if err != nil {
		return nil, err
	}

	origin := plant.CountryOfOrigin
	update, err := renderXML(productRoot{
		TransactionType: "ERPProductChange",
		ProductInfo: productInfo{
			Product:         cdata{Value: m.Product},
			Revision:        "1",
			ERPDescription:  cdata{Value: description},
			PrimaryUOM:      mesUnit,
			CountryOfOrigin: &origin,
		},
	})
	if err != nil {
		return nil, err
	}

	return &MaterialDocuments{Create: create, Update: update}, nil
}

// NewMaterialMessage assembles the queue message referencing the archived
// per-plant documents.
func NewMaterialMessage(m *domain.MaterialMaster, mesPlant, messageID, createKey, updateKey string) MaterialMessage {
	return MaterialMessage{
		MaterialNumber: m.Product,
		Plant:          mesPlant,
		Filename:       SanitizeFilename(fmt.Sprintf("MM-%s-%s-%s.xml", m.Product, mesPlant, messageID)),
		CreateXmlBlob:  createKey,
		UpdateXmlBlob:  updateKey,
	}
}

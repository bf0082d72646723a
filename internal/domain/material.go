package domain

// MaterialMaster is the ERP material-master snapshot received as JSON.
type MaterialMaster struct {
	Product            string               `json:"Product"`
	ProductDescription []ProductDescription `json:"ProductDescription"`
	BaseUnitISOCode    string               `json:"BaseUnitISOCode"`
	PlantData          []PlantData          `json:"PlantData"`
	ProductClass       []ClassAssignment    `json:"ProductClass"`
}

// ProductDescription is one language-tagged material description.
type ProductDescription struct {
	Language           string `json:"Language"`
	ProductDescription string `json:"ProductDescription"`
}

// PlantData is the per-plant view of the material master.
type PlantData struct {
	Plant           string `json:"Plant"`
	ProfileCode     string `json:"ProfileCode"`
	CountryOfOrigin string `json:"CountryOfOrigin"`
}

// ClassAssignment is one ERP classification assignment on a product.
type ClassAssignment struct {
	ClassDetails      *ClassDetails          `json:"ClassDetails"`
	ProductClassCharc []ProductClassCharc    `json:"ProductClassCharc"`
}

// ClassDetails identifies the class an assignment belongs to.
type ClassDetails struct {
	ClassTypeName string `json:"ClassTypeName"`
	Class         string `json:"Class"`
}

// ProductClassCharc is one characteristic within a class assignment.
type ProductClassCharc struct {
	Description *CharcDescription `json:"Description"`
	Valuation   []CharcValuation  `json:"Valuation"`
}

// CharcDescription names a characteristic.
type CharcDescription struct {
	CharcDescription string `json:"CharcDescription"`
}

// CharcValuation is one value assigned to a characteristic.
type CharcValuation struct {
	CharcValue string `json:"CharcValue"`
}

// EnglishDescription returns the English-language material description. The
// MES mandates one; its absence fails the whole envelope.
func (m *MaterialMaster) EnglishDescription() (string, error) {
	for _, d := range m.ProductDescription {
		if d.Language == "EN" {
			return d.ProductDescription, nil
		}
	}
	return "", &ConsistencyError{Reason: "no english description found for material " + m.Product}
}

// IsMesRelevant reports whether the product's classification marks it as
// relevant for the MES: the INTERFACE_DATA material class must carry an
// "IS MES RELEVANT" characteristic whose first valuation is "YES".
func IsMesRelevant(assignments []ClassAssignment) bool {
	for _, a := range assignments {
		if a.ClassDetails == nil ||
			a.ClassDetails.ClassTypeName != "Material Class" ||
			a.ClassDetails.Class != "INTERFACE_DATA" {
			continue
		}
		for _, c := range a.ProductClassCharc {
			if c.Description == nil || c.Description.CharcDescription != "IS MES RELEVANT" {
				continue
			}
			if len(c.Valuation) == 0 {
				continue
			}
			if c.Valuation[0].CharcValue == "YES" {
				return true
			}
		}
	}
	return false
}

package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/factorybridge/erp-mes-bridge/internal/domain"
	"github.com/factorybridge/erp-mes-bridge/internal/translate/tomes"
)

func testMaterial() domain.MaterialMaster {
	return domain.MaterialMaster{
		Product: "MAT-42",
		ProductDescription: []domain.ProductDescription{
			{Language: "DE", ProductDescription: "Membran"},
			{Language: "EN", ProductDescription: "Membrane"},
		},
		BaseUnitISOCode: "PCE",
		PlantData: []domain.PlantData{
			{Plant: "1014", ProfileCode: "G3", CountryOfOrigin: "US"},
			{Plant: "1015", ProfileCode: "G3", CountryOfOrigin: "US"},
			{Plant: "2000", ProfileCode: "G3"},
			{Plant: "1014", ProfileCode: "G1"},
		},
		ProductClass: mesRelevantClass(),
	}
}

func materialBody(t *testing.T, m domain.MaterialMaster) string {
	t.Helper()
	body, err := json.Marshal(m)
	require.NoError(t, err)
	return string(body)
}

func TestMaterialMasterSendsOneMessagePerEligiblePlant(t *testing.T) {
	f := newFixture(t, true)

	require.NoError(t, f.bridge.MaterialMaster(context.Background(), inbound(materialBody(t, testMaterial()))))

	// Plant 2000 is unmapped and the G1 entry fails the profile filter.
	primary := f.sender.onTopic("material-master-to-mes1")
	require.Len(t, primary, 1)
	secondary := f.sender.onTopic("material-master-to-mes")
	require.Len(t, secondary, 1)
	require.Equal(t, "MAT-42", primary[0].SessionKey)
	require.Equal(t, "MAT-42", secondary[0].SessionKey)

	var msg tomes.MaterialMessage
	require.NoError(t, json.Unmarshal(primary[0].Body, &msg))
	require.Equal(t, "B346", msg.Plant)
	require.Equal(t, "MM-MAT-42-B346-msg-1.xml", msg.Filename)
	require.Equal(t, "archive/create-B346.xml", msg.CreateXmlBlob)
	require.Equal(t, "archive/update-B346.xml", msg.UpdateXmlBlob)

	archive := f.archives[handlerMaterialMaster]
	create := string(archive.objects["create-B346.xml"])
	require.Contains(t, create, `TransactionType="ERPProductNew"`)
	require.Contains(t, create, "<![CDATA[Membrane]]>")
	require.Contains(t, create, "<ProductType>UNMODELED</ProductType>")
	update := string(archive.objects["update-B346.xml"])
	require.Contains(t, update, `TransactionType="ERPProductChange"`)
	require.Contains(t, update, "<CountryOfOrigin>US</CountryOfOrigin>")
}

func TestMaterialMasterWithoutPlantDataIsSkipped(t *testing.T) {
	f := newFixture(t, true)
	m := testMaterial()
	m.PlantData = nil

	require.NoError(t, f.bridge.MaterialMaster(context.Background(), inbound(materialBody(t, m))))

	require.Empty(t, f.sender.sent)
}

func TestMaterialMasterNonRelevantMaterialIsSkipped(t *testing.T) {
	f := newFixture(t, true)
	m := testMaterial()
	m.ProductClass = nil

	require.NoError(t, f.bridge.MaterialMaster(context.Background(), inbound(materialBody(t, m))))

	require.Empty(t, f.sender.sent)
}

func TestMaterialMasterNoEligiblePlantsIsSkipped(t *testing.T) {
	f := newFixture(t, true)
	m := testMaterial()
	m.PlantData = []domain.PlantData{{Plant: "1014", ProfileCode: "G1"}}

	require.NoError(t, f.bridge.MaterialMaster(context.Background(), inbound(materialBody(t, m))))

	require.Empty(t, f.sender.sent)
}

func TestMaterialMasterMissingEnglishDescriptionIsRedelivered(t *testing.T) {
	f := newFixture(t, true)
	m := testMaterial()
	m.ProductDescription = []domain.ProductDescription{{Language: "DE", ProductDescription: "Membran"}}

	err := f.bridge.MaterialMaster(context.Background(), inbound(materialBody(t, m)))

	require.Error(t, err)
	require.Empty(t, f.sender.sent)
}

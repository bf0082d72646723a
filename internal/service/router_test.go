package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRouteMesOutputForwardsBackflush(t *testing.T) {
	f := newFixture(t, true)
	body := backflushXML("guid-1",
		`<InterfaceControlBranchPlant>B346</InterfaceControlBranchPlant>`+
			`<mnOrderNumber_DOCO>1004143</mnOrderNumber_DOCO>`+
			`<mnSequenceNumber_SEQU>10</mnSequenceNumber_SEQU>`+
			`<mnInputQtyCompleted_QT01>12</mnInputQtyCompleted_QT01>`)

	require.NoError(t, f.bridge.RouteMesOutput(context.Background(), inbound(body)))

	v1 := f.sender.onTopic("superbackflush-from-mes")
	require.Len(t, v1, 1)
	require.Equal(t, body, string(v1[0].Body))
	require.Equal(t, "application/xml", v1[0].ContentType)
	require.Equal(t, "1004143", v1[0].SessionKey)
	require.Equal(t, "corr-1", v1[0].CorrelationID)

	v2 := f.sender.onTopic("superbackflush-from-mes-v2")
	require.Len(t, v2, 1)
	require.Equal(t, "application/json", v2[0].ContentType)
	var event map[string]any
	require.NoError(t, json.Unmarshal(v2[0].Body, &event))
	require.Equal(t, "SuperBackFlush", event["MessageType"])
	require.Equal(t, "guid-1", event["FileGuid"])

	// The router only opens the status lifecycle.
	f.requireStatus(t, 1, "XML file is being processed")
	require.Contains(t, f.archives[handlerRouteMesOutput].objects, "input.xml")
}

func TestRouteMesOutputForwardsWorkOrderIssues(t *testing.T) {
	f := newFixture(t, true)
	body := issueXML("guid-2",
		`<szBranchPlant_MCU>B346</szBranchPlant_MCU>`+
			`<mnDocumentOrderInvoiceE_DOCO>1004143</mnDocumentOrderInvoiceE_DOCO>`+
			`<mnSequenceNoOperations_OPSQ>20</mnSequenceNoOperations_OPSQ>`)

	require.NoError(t, f.bridge.RouteMesOutput(context.Background(), inbound(body)))

	v1 := f.sender.onTopic("workorderissues-from-mes")
	require.Len(t, v1, 1)
	require.Equal(t, "1004143", v1[0].SessionKey)
	require.Len(t, f.sender.onTopic("workorderissues-from-mes-v2"), 1)
}

func TestRouteMesOutputUnknownTypeFailsTheFile(t *testing.T) {
	f := newFixture(t, true)
	body := `<TxnList><TxnWrapper><FileGuid>guid-3</FileGuid>` +
		`<Txn><Request><MessageHeader><MessageType>LaborEntry</MessageType></MessageHeader>` +
		`<MessageDetail /></Request></Txn></TxnWrapper></TxnList>`

	require.NoError(t, f.bridge.RouteMesOutput(context.Background(), inbound(body)))

	require.Empty(t, f.sender.onTopic("superbackflush-from-mes"))
	require.Empty(t, f.sender.onTopic("workorderissues-from-mes"))
	f.requireStatus(t, 0, "LaborEntry")
}

func TestRouteMesOutputEmptyEnvelopeIsCommittedSilently(t *testing.T) {
	f := newFixture(t, true)

	require.NoError(t, f.bridge.RouteMesOutput(context.Background(), inbound(`<TxnList></TxnList>`)))

	require.Empty(t, f.sender.sent)
}

func TestRouteMesOutputInvalidXMLIsRedelivered(t *testing.T) {
	f := newFixture(t, true)

	err := f.bridge.RouteMesOutput(context.Background(), inbound(`not xml at all <`))

	require.Error(t, err)
	require.Empty(t, f.sender.sent)
}

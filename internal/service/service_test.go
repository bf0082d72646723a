package service

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/factorybridge/erp-mes-bridge/internal/codetable"
	"github.com/factorybridge/erp-mes-bridge/internal/dispatch"
	"github.com/factorybridge/erp-mes-bridge/internal/domain"
	"github.com/factorybridge/erp-mes-bridge/internal/eligibility"
	"github.com/factorybridge/erp-mes-bridge/internal/ports"
	"github.com/factorybridge/erp-mes-bridge/internal/status"
)

const statusTopic = "transaction-manager-status-updates"

type erpMock struct {
	mock.Mock
}

func (m *erpMock) ProductionOrder(ctx context.Context, order string) (domain.OrderInfo, error) {
	args := m.Called(ctx, order)
	return args.Get(0).(domain.OrderInfo), args.Error(1)
}

func (m *erpMock) ProductionOrderComponents(ctx context.Context, order string) ([]domain.ComponentLine, error) {
	args := m.Called(ctx, order)
	return args.Get(0).([]domain.ComponentLine), args.Error(1)
}

func (m *erpMock) SendConfirmation(ctx context.Context, body *domain.ConfirmationRequest) error {
	args := m.Called(ctx, body)
	return args.Error(0)
}

func (m *erpMock) ConfirmationProposal(ctx context.Context, body *domain.ConfirmationRequest) (domain.WorkProposal, error) {
	args := m.Called(ctx, body)
	return args.Get(0).(domain.WorkProposal), args.Error(1)
}

func (m *erpMock) CharacteristicInternalID(ctx context.Context, description string) (string, error) {
	args := m.Called(ctx, description)
	return args.String(0), args.Error(1)
}

func (m *erpMock) CharacteristicValues(ctx context.Context, product, charcInternalID string) ([]string, error) {
	args := m.Called(ctx, product, charcInternalID)
	return args.Get(0).([]string), args.Error(1)
}

type captureSender struct {
	sent []ports.OutboundMessage
	err  error
}

func (s *captureSender) Send(_ context.Context, msg ports.OutboundMessage) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

// onTopic returns the messages published to one topic.
func (s *captureSender) onTopic(topic string) []ports.OutboundMessage {
	var out []ports.OutboundMessage
	for _, msg := range s.sent {
		if msg.Topic == topic {
			out = append(out, msg)
		}
	}
	return out
}

type memArchive struct {
	objects map[string][]byte
	names   []string
}

func (a *memArchive) Store(_ context.Context, content []byte, name string) (ports.Locator, error) {
	if a.objects == nil {
		a.objects = make(map[string][]byte)
	}
	a.objects[name] = content
	a.names = append(a.names, name)
	return ports.Locator{
		Key:  "archive/" + name,
		Link: "https://archive.example.com/archive/" + name,
	}, nil
}

func testTables(t *testing.T) *codetable.Set {
	t.Helper()
	plant := codetable.NewTable("Plant")
	plant.Add("B005", "1017")
	plant.Add("B024", "1015")
	plant.Add("B346", "1014")

	uom := codetable.NewTable("UOM")
	uom.Add("EA", "PCE")
	uom.Add("LB", "LBR")
	uom.Add("FT", "FOT")

	location := codetable.NewTable("Location")
	location.Add("STOCK", "2000")

	moves := codetable.NewTable("Inventory Move Status")
	moves.Add("", "F2")
	moves.Add("Q", "Q4")

	return &codetable.Set{UOM: uom, Plant: plant, Location: location, InventoryMove: moves}
}

type fixture struct {
	bridge   *Bridge
	sender   *captureSender
	erp      *erpMock
	archives map[string]*memArchive
}

func newFixture(t *testing.T, primaryEnabled bool) *fixture {
	t.Helper()
	logger := slog.Default()
	tables := testTables(t)
	sender := &captureSender{}
	erp := &erpMock{}
	archives := make(map[string]*memArchive)

	reporter, err := status.NewReporter(sender, statusTopic, "erp-mes-bridge", logger)
	require.NoError(t, err)
	filter, err := eligibility.NewFilter(tables.Plant, primaryEnabled, &eligibility.CharacteristicIDCache{}, logger)
	require.NoError(t, err)

	bridge, err := NewBridge(Config{
		Sender:     sender,
		Status:     reporter,
		Dispatcher: dispatch.NewDispatcher(0, logger),
		Filter:     filter,
		Tables:     tables,
		NewArchive: func(handler, messageID string) (ports.Archive, error) {
			a, ok := archives[handler]
			if !ok {
				a = &memArchive{}
				archives[handler] = a
			}
			return a, nil
		},
		NewErp: func(ports.Archive) (ports.ErpClient, error) {
			return erp, nil
		},
		Routes: Routes{
			Backflush:   "superbackflush-from-mes",
			BackflushV2: "superbackflush-from-mes-v2",
			Issues:      "workorderissues-from-mes",
			IssuesV2:    "workorderissues-from-mes-v2",
			OrderQueues: dispatch.QueuePair{
				Primary:   "production-order-to-mes1",
				Secondary: "production-order-to-mes",
			},
			LotQueues: dispatch.QueuePair{
				Primary:   "inventory-location-move-to-mes1",
				Secondary: "inventory-location-move-to-mes",
			},
			MaterialQueues: dispatch.QueuePair{
				Primary:   "material-master-to-mes1",
				Secondary: "material-master-to-mes",
			},
		},
		Logger: logger,
	})
	require.NoError(t, err)

	return &fixture{bridge: bridge, sender: sender, erp: erp, archives: archives}
}

// statusUpdates returns the raw status documents published for the file.
func (f *fixture) statusUpdates() []string {
	var out []string
	for _, msg := range f.sender.onTopic(statusTopic) {
		out = append(out, string(msg.Body))
	}
	return out
}

func (f *fixture) requireStatus(t *testing.T, wantStatus int, wantContains string) {
	t.Helper()
	updates := f.statusUpdates()
	require.NotEmpty(t, updates)
	last := updates[len(updates)-1]
	if wantStatus == 0 {
		require.Contains(t, last, "<Status>0</Status>")
	} else {
		require.Contains(t, last, "<Status>1</Status>")
	}
	require.Contains(t, last, wantContains)
}

func inbound(body string) ports.InboundMessage {
	return ports.InboundMessage{
		Body:          []byte(body),
		MessageID:     "msg-1",
		CorrelationID: "corr-1",
	}
}

// backflushXML renders a SuperBackFlush envelope with the given detail blocks.
func backflushXML(fileGuid string, details ...string) string {
	var b strings.Builder
	b.WriteString(`<TxnList>`)
	for _, detail := range details {
		b.WriteString(`<TxnWrapper><FileGuid>` + fileGuid + `</FileGuid><UserName>MILLER</UserName>`)
		b.WriteString(`<Txn><Request><MessageHeader><MessageType>SuperBackFlush</MessageType></MessageHeader>`)
		b.WriteString(`<MessageDetail>` + detail + `</MessageDetail></Request></Txn></TxnWrapper>`)
	}
	b.WriteString(`</TxnList>`)
	return b.String()
}

// issueXML renders a WorkOrderIssues envelope with the given detail blocks.
func issueXML(fileGuid string, details ...string) string {
	var b strings.Builder
	b.WriteString(`<TxnList>`)
	for _, detail := range details {
		b.WriteString(`<TxnWrapper><FileGuid>` + fileGuid + `</FileGuid><UserName>MILLER</UserName>`)
		b.WriteString(`<Txn><Request><MessageHeader><MessageType>WorkOrderIssues</MessageType></MessageHeader>`)
		b.WriteString(`<MessageDetail>` + detail + `</MessageDetail></Request></Txn></TxnWrapper>`)
	}
	b.WriteString(`</TxnList>`)
	return b.String()
}

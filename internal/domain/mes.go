// Package domain holds the wire models exchanged with the ERP and MES
// systems and the pure translation rules that operate on them. Values are
// immutable once parsed; all remote I/O lives in the adapters.
package domain

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
)

// ErrNoTransactions marks a well-formed document without any TxnWrapper
// nodes. There is nothing to process, but nothing failed either.
var ErrNoTransactions = errors.New("no TxnWrapper nodes found")

// MES transaction types carried in the envelope header.
const (
	MessageTypeSuperBackflush  = "SuperBackFlush"
	MessageTypeWorkOrderIssues = "WorkOrderIssues"
)

// ParseError reports an inbound document that does not match the expected
// schema. It is raised at the parse boundary rather than surfacing as a nil
// dereference deep inside a translator.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse MES message: %s: %v", e.Reason, e.Err)
	}
	return "parse MES message: " + e.Reason
}

func (e *ParseError) Unwrap() error { return e.Err }

// ConsistencyError reports records within one envelope that disagree on the
// fields that must match for them to form a single unit of work, or a flag
// combination the business rules do not cover.
type ConsistencyError struct {
	Reason string
}

func (e *ConsistencyError) Error() string { return e.Reason }

// EnvelopeHeader carries the envelope-level identification used for routing
// and status correlation before the message type is known.
type EnvelopeHeader struct {
	MessageType string
	FileGuid    string
	UserName    string
}

// ReceiptFlag is the MES goods-receipt marker. The MES emits it as an opaque
// string; anything other than an explicit false-ish value counts as set.
type ReceiptFlag string

// Bool reports whether the flag marks the record as a physical goods receipt.
func (f ReceiptFlag) Bool() bool {
	s := strings.TrimSpace(string(f))
	return s != "" && s != "0" && !strings.EqualFold(s, "false")
}

// ComponentIssueRecord is one WorkOrderIssues transaction: a component
// quantity issued (or returned) against a production order operation.
type ComponentIssueRecord struct {
	Plant     string  `xml:"szBranchPlant_MCU"`
	Order     string  `xml:"mnDocumentOrderInvoiceE_DOCO"`
	Operation string  `xml:"mnSequenceNoOperations_OPSQ"`
	Material  string  `xml:"szItemNoUnknownFormat_UITM"`
	Quantity  float64 `xml:"mnQuantityToIssue_QNTOW"`
	Unit      string  `xml:"szUnitOfMeasureAsInput_UOM"`
	Batch     string  `xml:"szLot_LOTN"`
	Location  string  `xml:"szLocation_LOCN"`
}

// BackflushRecord is one SuperBackFlush transaction: a production
// confirmation that may or may not include a physical goods receipt.
type BackflushRecord struct {
	Plant             string      `xml:"InterfaceControlBranchPlant"`
	Order             string      `xml:"mnOrderNumber_DOCO"`
	Operation         string      `xml:"mnSequenceNumber_SEQU"`
	QuantityCompleted float64     `xml:"mnInputQtyCompleted_QT01"`
	QuantityCanceled  float64     `xml:"mnInputQtyCanceled_TRQT"`
	OperationStatus   int         `xml:"szInputOpStatusCode_OPST"`
	Receipt           ReceiptFlag `xml:"szSAPReceiptFlag"`
	Batch             string      `xml:"szLot_LOTN"`
	ParentBatch       string      `xml:"szMemoLotField1"`
	Location          string      `xml:"szLocation_LOCN"`
}

// ComponentIssueEnvelope wraps the WorkOrderIssues records sharing one
// envelope header.
type ComponentIssueEnvelope struct {
	FileGuid string
	UserName string
	Records  []ComponentIssueRecord
}

// BackflushEnvelope wraps the SuperBackFlush records sharing one envelope
// header.
type BackflushEnvelope struct {
	FileGuid string
	UserName string
	Records  []BackflushRecord
}

// OperationStatusCompleted signals that the MES closed the route step, which
// maps to a final confirmation on the ERP side.
const OperationStatusCompleted = 30

type rawHeaderEnvelope struct {
	XMLName  xml.Name `xml:"TxnList"`
	Wrappers []struct {
		FileGuid string `xml:"FileGuid"`
		UserName string `xml:"UserName"`
		Request  struct {
			Header struct {
				MessageType string `xml:"MessageType"`
			} `xml:"MessageHeader"`
		} `xml:"Txn>Request"`
	} `xml:"TxnWrapper"`
}

// ParseEnvelopeHeader extracts the message type and tracking identity from a
// MES XML document without committing to a record schema. Element matching is
// by local name, so namespace prefixes on the wire are ignored, and a single
// TxnWrapper node is handled the same as a repeated one.
func ParseEnvelopeHeader(data []byte) (EnvelopeHeader, error) {
	var raw rawHeaderEnvelope
	if err := xml.Unmarshal(data, &raw); err != nil {
		return EnvelopeHeader{}, &ParseError{Reason: "invalid XML", Err: err}
	}
	if len(raw.Wrappers) == 0 {
		return EnvelopeHeader{}, &ParseError{Reason: "empty envelope", Err: ErrNoTransactions}
	}
	// When multiple records are batched they belong to the same unit of work,
	// so the first wrapper identifies the whole envelope.
	first := raw.Wrappers[0]
	return EnvelopeHeader{
		MessageType: first.Request.Header.MessageType,
		FileGuid:    first.FileGuid,
		UserName:    first.UserName,
	}, nil
}

type rawComponentIssueEnvelope struct {
	XMLName  xml.Name `xml:"TxnList"`
	Wrappers []struct {
		FileGuid string `xml:"FileGuid"`
		UserName string `xml:"UserName"`
		Detail   ComponentIssueRecord `xml:"Txn>Request>MessageDetail"`
	} `xml:"TxnWrapper"`
}

// ParseComponentIssueEnvelope decodes a WorkOrderIssues document.
func ParseComponentIssueEnvelope(data []byte) (*ComponentIssueEnvelope, error) {
	var raw rawComponentIssueEnvelope
	if err := xml.Unmarshal(data, &raw); err != nil {
		return nil, &ParseError{Reason: "invalid WorkOrderIssues XML", Err: err}
	}
	if len(raw.Wrappers) == 0 {
		return nil, &ParseError{Reason: "empty envelope", Err: ErrNoTransactions}
	}
	env := &ComponentIssueEnvelope{
		FileGuid: raw.Wrappers[0].FileGuid,
		UserName: raw.Wrappers[0].UserName,
	}
	for _, w := range raw.Wrappers {
		if w.Detail.Order == "" {
			return nil, &ParseError{Reason: "WorkOrderIssues record without an order number"}
		}
		env.Records = append(env.Records, w.Detail)
	}
	return env, nil
}

type rawBackflushEnvelope struct {
	XMLName  xml.Name `xml:"TxnList"`
	Wrappers []struct {
		FileGuid string `xml:"FileGuid"`
		UserName string `xml:"UserName"`
		Detail   BackflushRecord `xml:"Txn>Request>MessageDetail"`
	} `xml:"TxnWrapper"`
}

// ParseBackflushEnvelope decodes a SuperBackFlush document.
func ParseBackflushEnvelope(data []byte) (*BackflushEnvelope, error) {
	var raw rawBackflushEnvelope
	if err := xml.Unmarshal(data, &raw); err != nil {
		return nil, &ParseError{Reason: "invalid SuperBackFlush XML", Err: err}
	}
	if len(raw.Wrappers) == 0 {
		return nil, &ParseError{Reason: "empty envelope", Err: ErrNoTransactions}
	}
	env := &BackflushEnvelope{
		FileGuid: raw.Wrappers[0].FileGuid,
		UserName: raw.Wrappers[0].UserName,
	}
	for _, w := range raw.Wrappers {
		if w.Detail.Order == "" {
			return nil, &ParseError{Reason: "SuperBackFlush record without an order number"}
		}
		env.Records = append(env.Records, w.Detail)
	}
	return env, nil
}

// ConsistentIssueRecords verifies that all records in a batched envelope
// agree on the order and operation they post against.
func (e *ComponentIssueEnvelope) ConsistentIssueRecords() error {
	first := e.Records[0]
	for _, r := range e.Records[1:] {
		if r.Order != first.Order || r.Operation != first.Operation {
			return &ConsistencyError{Reason: fmt.Sprintf(
				"invalid envelope for order %s: records disagree on order or operation", first.Order)}
		}
	}
	return nil
}

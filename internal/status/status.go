// Package status reports per-message processing outcomes back to the MES
// transaction manager. Status reporting is best-effort: its own failures are
// logged and swallowed so they can never mask the outcome already determined
// by the caller.
package status

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"strings"

	"github.com/factorybridge/erp-mes-bridge/internal/ports"
)

const (
	statusFailed  = 0
	statusSuccess = 1
)

// Reporter sends transaction-manager status updates on a dedicated topic,
// keyed by the file tracking token so updates for one file stay ordered.
type Reporter struct {
	sender  ports.BusSender
	topic   string
	appName string
	logger  *slog.Logger
}

// NewReporter constructs a Reporter.
func NewReporter(sender ports.BusSender, topic, appName string, logger *slog.Logger) (*Reporter, error) {
	if sender == nil {
		return nil, fmt.Errorf("sender must not be nil")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic must not be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{sender: sender, topic: topic, appName: appName, logger: logger}, nil
}

// MarkInProcess records that the file's message is being processed.
func (r *Reporter) MarkInProcess(ctx context.Context, fileGuid string) {
	r.send(ctx, fileGuid, statusSuccess, "XML file is being processed")
}

// MarkCompleted records successful processing. message also covers normal
// skips, whose reason the originating user should see.
func (r *Reporter) MarkCompleted(ctx context.Context, fileGuid, message string) {
	r.send(ctx, fileGuid, statusSuccess, message)
}

// MarkFailed records failed processing with a human-readable reason.
func (r *Reporter) MarkFailed(ctx context.Context, fileGuid, message string) {
	r.send(ctx, fileGuid, statusFailed, message)
}

type request struct {
	XMLName       xml.Name `xml:"Request"`
	FileGuiId     string   `xml:"FileGuiId"`
	AppName       string   `xml:"AppName"`
	Status        int      `xml:"Status"`
	StatusMessage string   `xml:"StatusMessage"`
}

func (r *Reporter) send(ctx context.Context, fileGuid string, status int, message string) {
	// Without a tracking token the transaction manager cannot relate the
	// update to a file, so there is no point sending one.
	if fileGuid == "" {
		return
	}

	body, err := xml.Marshal(request{
		FileGuiId:     fileGuid,
		AppName:       r.appName,
		Status:        status,
		StatusMessage: message,
	})
	if err != nil {
		r.logger.Error("failed to build status update", "file_guid", fileGuid, "error", err)
		return
	}

	// The transaction manager errors on literal newlines in the message body.
	document := strings.ReplaceAll(xml.Header+string(body), "\n", "")

	err = r.sender.Send(ctx, ports.OutboundMessage{
		Topic:       r.topic,
		Body:        []byte(document),
		ContentType: "application/xml",
		SessionKey:  fileGuid,
	})
	if err != nil {
		r.logger.Error("failed to send status update",
			"file_guid", fileGuid, "status", status, "error", err)
		return
	}
	r.logger.Info("sent status update", "file_guid", fileGuid, "status", status)
}

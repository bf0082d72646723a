// Package erp talks to the ERP system's OData-style REST API. Every call
// archives the raw response before interpreting it, and lock conflicts on the
// confirmation endpoint are retried with exponential backoff.
package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/factorybridge/erp-mes-bridge/internal/domain"
	"github.com/factorybridge/erp-mes-bridge/internal/ports"
)

const (
	// maxLockRetries bounds retries of a confirmation POST that hit a lock
	// conflict. The delay before retry n is 2^n * lockRetryBase.
	maxLockRetries = 3
	lockRetryBase  = 2 * time.Second

	pathConfirmation    = "/prodorderconf/v1/ProdnOrdConf2"
	pathConfProposal    = "/prodorderconf/v1/GetConfProposal"
	pathProductionOrder = "/productionorder/v1/A_ProductionOrder_2"
	pathCharcValues     = "/materialclassification/v1/A_ProductCharcValue"
	pathCharcDesc       = "/classificationcharacteristic/v1/A_ClfnCharcDescForKeyDate"
)

// RemoteError is a non-success response from the ERP API. Message is the
// human-readable text extracted from the error envelope and ResponseLink
// points at the archived raw response.
type RemoteError struct {
	Op           string
	StatusCode   int
	Message      string
	ResponseLink string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s (%d): %s. For more details, see the archived response: %s",
		e.Op, e.StatusCode, e.Message, e.ResponseLink)
}

// Config carries the pieces of a Client shared across invocations.
type Config struct {
	HTTPClient *http.Client
	BaseURL    string
	APIKey     string
	Telemetry  ports.Telemetry
	Logger     *slog.Logger
}

// Client implements ports.ErpClient. Clients are cheap and scoped to a single
// inbound message so responses land in that message's archive prefix.
type Client struct {
	http      *http.Client
	baseURL   string
	apiKey    string
	archive   ports.Archive
	telemetry ports.Telemetry
	logger    *slog.Logger
	sleep     func(ctx context.Context, d time.Duration) error
}

// New constructs a Client writing its response archives through archive.
func New(cfg Config, archive ports.Archive) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL must not be empty")
	}
	if archive == nil {
		return nil, fmt.Errorf("archive must not be nil")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		http:      httpClient,
		baseURL:   cfg.BaseURL,
		apiKey:    cfg.APIKey,
		archive:   archive,
		telemetry: cfg.Telemetry,
		logger:    logger,
		sleep:     sleepCtx,
	}, nil
}

// ProductionOrder fetches the order entity for the given order number.
func (c *Client) ProductionOrder(ctx context.Context, order string) (domain.OrderInfo, error) {
	var payload struct {
		D domain.OrderInfo `json:"d"`
	}
	err := c.getJSON(ctx,
		fmt.Sprintf("%s('%s')", pathProductionOrder, url.PathEscape(order)),
		nil,
		"erp-api-production-order-response-body.json",
		fmt.Sprintf("failed to retrieve production order %s", order),
		&payload)
	if err != nil {
		return domain.OrderInfo{}, err
	}
	return payload.D, nil
}

// ProductionOrderComponents fetches the order's reservation lines.
func (c *Client) ProductionOrderComponents(ctx context.Context, order string) ([]domain.ComponentLine, error) {
	var payload struct {
		D struct {
			Results []domain.ComponentLine `json:"results"`
		} `json:"d"`
	}
	err := c.getJSON(ctx,
		fmt.Sprintf("%s('%s')/to_ProductionOrderComponent", pathProductionOrder, url.PathEscape(order)),
		nil,
		"erp-api-production-order-components-response-body.json",
		fmt.Sprintf("failed to retrieve production order %s components", order),
		&payload)
	if err != nil {
		return nil, err
	}
	return payload.D.Results, nil
}

// ConfirmationProposal fetches the proposed work quantities for the given
// confirmation.
func (c *Client) ConfirmationProposal(ctx context.Context, body *domain.ConfirmationRequest) (domain.WorkProposal, error) {
	query := url.Values{}
	// string parameters are wrapped in single quotes, quantities carry the
	// OData decimal suffix
	query.Set("OrderID", "'"+body.OrderID+"'")
	query.Set("OrderOperation", "'"+body.OrderOperation+"'")
	query.Set("Sequence", "'"+body.Sequence+"'")
	query.Set("ConfirmationYieldQuantity", body.ConfirmationYieldQuantity+"M")
	query.Set("ConfirmationScrapQuantity", body.ConfirmationScrapQuantity+"M")
	query.Set("ActivityIsToBeProposed", "true")

	var payload struct {
		D struct {
			GetConfProposal domain.WorkProposal `json:"GetConfProposal"`
		} `json:"d"`
	}
	err := c.call(ctx, http.MethodPost, pathConfProposal, query, nil,
		"erp-api-getconfproposal-response-body.json",
		"failed to retrieve proposed work quantities",
		&payload)
	if err != nil {
		return domain.WorkProposal{}, err
	}
	return payload.D.GetConfProposal, nil
}

// CharacteristicInternalID resolves a characteristic's internal ID by its
// English description. Exactly one match is required.
func (c *Client) CharacteristicInternalID(ctx context.Context, description string) (string, error) {
	query := url.Values{}
	query.Set("$filter", fmt.Sprintf("CharcDescription eq '%s' and Language eq 'EN'", description))

	var payload struct {
		D struct {
			Results []struct {
				CharcInternalID string `json:"CharcInternalID"`
			} `json:"results"`
		} `json:"d"`
	}
	err := c.getJSON(ctx, pathCharcDesc, query,
		"erp-api-characteristic-internal-id-response-body.json",
		fmt.Sprintf("failed to retrieve %s characteristic internal ID", description),
		&payload)
	if err != nil {
		return "", err
	}
	if len(payload.D.Results) != 1 {
		return "", fmt.Errorf("expected exactly one %s characteristic, but found %d",
			description, len(payload.D.Results))
	}
	return payload.D.Results[0].CharcInternalID, nil
}

// CharacteristicValues fetches the values of the given characteristic for a
// product.
func (c *Client) CharacteristicValues(ctx context.Context, product, charcInternalID string) ([]string, error) {
	query := url.Values{}
	query.Set("$filter", fmt.Sprintf("Product eq '%s' and CharcInternalID eq '%s'", product, charcInternalID))

	var payload struct {
		D struct {
			Results []struct {
				CharcValue string `json:"CharcValue"`
			} `json:"results"`
		} `json:"d"`
	}
	err := c.getJSON(ctx, pathCharcValues, query,
		"erp-api-get-product-class-response-body.json",
		fmt.Sprintf("failed to retrieve characteristic valuations for '%s'", product),
		&payload)
	if err != nil {
		return nil, err
	}
	values := make([]string, 0, len(payload.D.Results))
	for _, r := range payload.D.Results {
		values = append(values, r.CharcValue)
	}
	return values, nil
}

// SendConfirmation posts a production-order confirmation. The request body is
// archived before sending; lock conflicts (423) are retried with exponential
// backoff, tracking each failed attempt, before becoming a RemoteError.
func (c *Client) SendConfirmation(ctx context.Context, body *domain.ConfirmationRequest) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode confirmation: %w", err)
	}

	reqName := fmt.Sprintf("erp-api-ProdnOrdConf2-request-%s-%s.json", body.OrderID, body.OrderOperation)
	reqLoc, err := c.archive.Store(ctx, encoded, reqName)
	if err != nil {
		return fmt.Errorf("archive confirmation request: %w", err)
	}
	c.logger.Info("archived confirmation request body",
		"order", body.OrderID, "operation", body.OrderOperation, "link", reqLoc.Link)

	target, err := url.JoinPath(c.baseURL, pathConfirmation)
	if err != nil {
		return fmt.Errorf("build confirmation URL: %w", err)
	}

	var resp *http.Response
	var duration time.Duration
	for attempt := 0; ; attempt++ {
		resp, duration, err = c.do(ctx, http.MethodPost, target, encoded)
		if err != nil {
			return fmt.Errorf("post confirmation for order %s: %w", body.OrderID, err)
		}
		if resp.StatusCode != http.StatusLocked || attempt >= maxLockRetries {
			break
		}
		resp.Body.Close()

		c.logger.Warn("confirmation POST hit a lock conflict, retrying",
			"order", body.OrderID, "operation", body.OrderOperation, "attempt", attempt)
		c.track(http.MethodPost, pathConfirmation, target, http.StatusLocked, duration, false)

		if err := c.sleep(ctx, time.Duration(1<<attempt)*lockRetryBase); err != nil {
			return err
		}
	}
	defer resp.Body.Close()
	c.track(http.MethodPost, pathConfirmation, target, resp.StatusCode, duration, resp.StatusCode < 300)

	responseText, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read confirmation response: %w", err)
	}
	respName := fmt.Sprintf("erp-api-ProdnOrdConf2-response-%s.json", body.OrderOperation)
	respLoc, err := c.archive.Store(ctx, responseText, respName)
	if err != nil {
		return fmt.Errorf("archive confirmation response: %w", err)
	}
	c.logger.Info("archived confirmation response",
		"order", body.OrderID, "operation", body.OrderOperation,
		"status", resp.StatusCode, "link", respLoc.Link)

	if resp.StatusCode >= 300 {
		return &RemoteError{
			Op:           fmt.Sprintf("failed to confirm production order %s, operation %s", body.OrderID, body.OrderOperation),
			StatusCode:   resp.StatusCode,
			Message:      prettyError(responseText),
			ResponseLink: respLoc.Link,
		}
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, archiveName, opDesc string, out any) error {
	return c.call(ctx, http.MethodGet, path, query, nil, archiveName, opDesc, out)
}

// call performs one request, archives the raw response, and decodes it into
// out on success.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, body []byte, archiveName, opDesc string, out any) error {
	target, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return fmt.Errorf("build URL for %s: %w", path, err)
	}
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	resp, duration, err := c.do(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("%s: %w", opDesc, err)
	}
	defer resp.Body.Close()
	c.track(method, path, target, resp.StatusCode, duration, resp.StatusCode < 300)

	responseText, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read response: %w", opDesc, err)
	}
	loc, err := c.archive.Store(ctx, responseText, archiveName)
	if err != nil {
		return fmt.Errorf("archive response %s: %w", archiveName, err)
	}
	c.logger.Info("archived ERP API response",
		"path", path, "status", resp.StatusCode, "link", loc.Link)

	if resp.StatusCode >= 300 {
		return &RemoteError{
			Op:           opDesc,
			StatusCode:   resp.StatusCode,
			Message:      prettyError(responseText),
			ResponseLink: loc.Link,
		}
	}
	if err := json.Unmarshal(responseText, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", opDesc, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, target string, body []byte) (*http.Response, time.Duration, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("APIKey", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	return resp, time.Since(start), err
}

func (c *Client) track(method, path, target string, status int, duration time.Duration, success bool) {
	if c.telemetry == nil {
		return
	}
	c.telemetry.TrackDependency(ports.Dependency{
		Name:       method + " " + path,
		Target:     c.baseURL,
		Data:       target,
		ResultCode: status,
		Duration:   duration,
		Success:    success,
	})
}

// prettyError extracts a human-readable message from an ERP error envelope.
// The message node is either a single {lang, value} object or a list of them;
// the English entry wins when several languages are present. Anything
// unparseable is returned verbatim.
func prettyError(responseText []byte) string {
	var envelope struct {
		Error struct {
			Message json.RawMessage `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(responseText, &envelope); err != nil || len(envelope.Error.Message) == 0 {
		return string(responseText)
	}

	type message struct {
		Lang  string `json:"lang"`
		Value string `json:"value"`
	}

	var single message
	if err := json.Unmarshal(envelope.Error.Message, &single); err == nil && single.Value != "" {
		return single.Value
	}

	var many []message
	if err := json.Unmarshal(envelope.Error.Message, &many); err == nil && len(many) > 0 {
		for _, m := range many {
			if m.Lang == "en" {
				return m.Value
			}
		}
		return many[0].Value
	}

	return string(responseText)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

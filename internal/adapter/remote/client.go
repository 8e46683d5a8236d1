package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"sync/atomic"
	"time"

	domainErrors "github.com/dukasync/storesync/internal/domain/errors"
	"github.com/dukasync/storesync/internal/domain/model"
	"github.com/dukasync/storesync/internal/pkg/retry"
)

// RejectReason is a commit rejection reason the remote store reports.
type RejectReason string

const (
	RejectDuplicate      RejectReason = "duplicate"
	RejectAmountMismatch RejectReason = "amountMismatch"
	RejectDateMismatch   RejectReason = "dateMismatch"
)

// RejectionError carries an order rejection from the remote store. Only
// recognized reasons authorize rolling back a locally committed order.
type RejectionError struct {
	Reason  RejectReason
	Message string
}

func (e RejectionError) Error() string {
	return fmt.Sprintf("remote rejected order: %s", e.Reason)
}

// Recognized reports whether the reason authorizes a local rollback.
func (e RejectionError) Recognized() bool {
	switch e.Reason {
	case RejectDuplicate, RejectAmountMismatch, RejectDateMismatch:
		return true
	}
	return false
}

// TooManyRequestsError represents a rate limiting signal from the remote store.
type TooManyRequestsError struct {
	RetryAfter time.Duration
}

func (e TooManyRequestsError) Error() string {
	return fmt.Sprintf("too many requests, retry after %s", e.RetryAfter)
}

// Client exposes operations against the authoritative remote store.
type Client interface {
	Ping(ctx context.Context) error
	Reachable() bool
	FetchProducts(ctx context.Context, includeImages bool) ([]model.Product, error)
	CreateProduct(ctx context.Context, p model.Product) (string, error)
	UpdateProduct(ctx context.Context, p model.Product) error
	UpdateQuantity(ctx context.Context, remoteID string, quantity int) error
	DeleteProduct(ctx context.Context, remoteID string) error
	VerifyCode(ctx context.Context, code string, amount float64, date time.Time) (*model.RemoteTransaction, error)
	CreateOrder(ctx context.Context, order *model.Order) (string, error)
	FetchOrders(ctx context.Context) ([]model.Order, error)
	UpdateDeliveryStatus(ctx context.Context, remoteID, status string) error
}

// Per-endpoint timeout budget. The probe stays short so reachability checks
// never stall a reconciliation pass; bulk product pulls get the widest one.
const (
	probeTimeout  = 2 * time.Second
	writeTimeout  = 10 * time.Second
	verifyTimeout = 10 * time.Second
	pullTimeout   = 20 * time.Second
)

// HTTPClient implements Client via the remote REST API.
type HTTPClient struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *slog.Logger
	reachable  atomic.Bool
}

// NewHTTPClient creates an HTTP remote store client.
func NewHTTPClient(baseURL string, logger *slog.Logger) (*HTTPClient, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse remote url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("remote url must be absolute")
	}
	return &HTTPClient{
		baseURL:    parsed,
		logger:     logger,
		httpClient: &http.Client{},
	}, nil
}

type productPayload struct {
	ID       string  `json:"id,omitempty"`
	Name     string  `json:"name"`
	Size     string  `json:"size"`
	Category string  `json:"category,omitempty"`
	Price    float64 `json:"price"`
	Discount int     `json:"discount"`
	Quantity int     `json:"quantity"`
	Image    []byte  `json:"image,omitempty"`
}

type verifyRequest struct {
	Code   string  `json:"code"`
	Amount float64 `json:"amount"`
	Date   string  `json:"date"`
}

type verifyResponse struct {
	Valid           bool     `json:"valid"`
	Verified        bool     `json:"verified"`
	Reason          string   `json:"reason,omitempty"`
	AmountMatch     *bool    `json:"amountMatch,omitempty"`
	DateValid       *bool    `json:"dateValid,omitempty"`
	FoundInMpesa    *bool    `json:"foundInMpesa,omitempty"`
	Amount          *float64 `json:"amount,omitempty"`
	TransactionDate string   `json:"transactionDate,omitempty"`
}

type orderPayload struct {
	ID             string             `json:"id,omitempty"`
	Items          []model.OrderItem  `json:"items"`
	Total          float64            `json:"total"`
	TotalPaid      float64            `json:"totalPaid"`
	Codes          []codePayload      `json:"codes"`
	Verification   string             `json:"verification"`
	DeliveryStatus string             `json:"deliveryStatus,omitempty"`
	CreatedAt      time.Time          `json:"createdAt,omitzero"`
}

type codePayload struct {
	Code            string  `json:"code"`
	Amount          float64 `json:"amount"`
	TransactionDate string  `json:"transactionDate,omitempty"`
}

type rejectionPayload struct {
	Reason  string `json:"reason"`
	Message string `json:"message,omitempty"`
}

// Ping probes the remote health endpoint with a short timeout. The result
// only informs reachability decisions, never correctness.
func (c *HTTPClient) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodGet, "/api/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.reachable.Store(false)
		return fmt.Errorf("remote probe: %w", domainErrors.ErrNetworkUnavailable)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		c.reachable.Store(false)
		return fmt.Errorf("remote probe status %d: %w", resp.StatusCode, domainErrors.ErrRemoteService)
	}

	c.reachable.Store(true)
	return nil
}

// Reachable reports the last known connectivity state.
func (c *HTTPClient) Reachable() bool {
	return c.reachable.Load()
}

// FetchProducts pulls the full product set from the remote store.
func (c *HTTPClient) FetchProducts(ctx context.Context, includeImages bool) ([]model.Product, error) {
	var products []model.Product

	err := retry.Do(ctx, retry.Reads(), func() error {
		ctx, cancel := context.WithTimeout(ctx, pullTimeout)
		defer cancel()

		endpoint := "/api/products"
		if includeImages {
			endpoint += "?includeImages=true"
		}
		req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return retry.Permanent(err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("fetch products: %w", domainErrors.ErrNetworkUnavailable)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return retry.Permanent(c.unexpectedStatus("fetch products", resp))
		}

		var payload []productPayload
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return retry.Permanent(fmt.Errorf("decode products: %w", err))
		}

		products = make([]model.Product, 0, len(payload))
		for _, p := range payload {
			products = append(products, p.toModel())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.reachable.Store(true)
	return products, nil
}

// CreateProduct creates a product remotely and returns its assigned id.
func (c *HTTPClient) CreateProduct(ctx context.Context, p model.Product) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	var created productPayload
	if err := c.doJSON(ctx, http.MethodPost, "/api/products", fromModel(p), http.StatusCreated, &created); err != nil {
		return "", err
	}
	return created.ID, nil
}

// UpdateProduct updates a product by its remote id. An empty image is
// omitted from the payload and the remote keeps its stored copy, so a
// republish built from an image-less pull never wipes a remote-held image.
func (c *HTTPClient) UpdateProduct(ctx context.Context, p model.Product) error {
	if p.IDs.Remote == "" {
		return fmt.Errorf("update product: missing remote id: %w", domainErrors.ErrNotFound)
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	endpoint := path.Join("/api/products", p.IDs.Remote)
	return c.doJSON(ctx, http.MethodPut, endpoint, fromModel(p), http.StatusOK, nil)
}

// UpdateQuantity adjusts remote stock for a product.
func (c *HTTPClient) UpdateQuantity(ctx context.Context, remoteID string, quantity int) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	endpoint := path.Join("/api/products", remoteID, "quantity")
	body := map[string]int{"quantity": quantity}
	return c.doJSON(ctx, http.MethodPatch, endpoint, body, http.StatusOK, nil)
}

// DeleteProduct removes a product from the remote store.
func (c *HTTPClient) DeleteProduct(ctx context.Context, remoteID string) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	endpoint := path.Join("/api/products", remoteID)
	return c.doJSON(ctx, http.MethodDelete, endpoint, nil, http.StatusOK, nil)
}

// VerifyCode asks the remote verification service about a payment code and
// returns the ledger's view of the transaction. Transport failures map to
// the network/service error kinds so the verifier can fail closed.
func (c *HTTPClient) VerifyCode(ctx context.Context, code string, amount float64, date time.Time) (*model.RemoteTransaction, error) {
	ctx, cancel := context.WithTimeout(ctx, verifyTimeout)
	defer cancel()

	body := verifyRequest{Code: code, Amount: amount, Date: date.Format(time.RFC3339)}
	req, err := c.newJSONRequest(ctx, http.MethodPost, "/api/orders/verify", body)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.reachable.Store(false)
		return nil, fmt.Errorf("verify code: %w", domainErrors.ErrNetworkUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, TooManyRequestsError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.unexpectedStatus("verify code", resp)
	}

	var payload verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode verification: %w", domainErrors.ErrRemoteService)
	}

	c.reachable.Store(true)

	tx := &model.RemoteTransaction{}
	if payload.FoundInMpesa != nil {
		tx.Found = *payload.FoundInMpesa
	} else {
		tx.Found = payload.Valid || payload.Verified
	}
	if payload.Amount != nil {
		tx.Amount = *payload.Amount
	}
	if payload.TransactionDate != "" {
		if ts, err := time.Parse(time.RFC3339, payload.TransactionDate); err == nil {
			tx.TransactionAt = ts
		}
	}
	tx.AlreadyUsed = payload.Reason == "duplicate" || payload.Reason == "used"
	return tx, nil
}

// CreateOrder commits an order remotely and returns its assigned id.
// Recognized rejections surface as RejectionError.
func (c *HTTPClient) CreateOrder(ctx context.Context, order *model.Order) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	req, err := c.newJSONRequest(ctx, http.MethodPost, "/api/orders", orderToPayload(order))
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.reachable.Store(false)
		return "", fmt.Errorf("create order: %w", domainErrors.ErrNetworkUnavailable)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated, http.StatusOK:
		var created orderPayload
		if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
			return "", fmt.Errorf("decode created order: %w", domainErrors.ErrRemoteService)
		}
		c.reachable.Store(true)
		return created.ID, nil
	case http.StatusConflict, http.StatusUnprocessableEntity:
		var rejection rejectionPayload
		if err := json.NewDecoder(resp.Body).Decode(&rejection); err != nil {
			return "", fmt.Errorf("decode rejection: %w", domainErrors.ErrRemoteService)
		}
		return "", RejectionError{Reason: RejectReason(rejection.Reason), Message: rejection.Message}
	case http.StatusTooManyRequests:
		return "", TooManyRequestsError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	default:
		return "", c.unexpectedStatus("create order", resp)
	}
}

// FetchOrders pulls the remote order ledger.
func (c *HTTPClient) FetchOrders(ctx context.Context) ([]model.Order, error) {
	var orders []model.Order

	err := retry.Do(ctx, retry.Reads(), func() error {
		ctx, cancel := context.WithTimeout(ctx, pullTimeout)
		defer cancel()

		req, err := c.newRequest(ctx, http.MethodGet, "/api/orders", nil)
		if err != nil {
			return retry.Permanent(err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("fetch orders: %w", domainErrors.ErrNetworkUnavailable)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return retry.Permanent(c.unexpectedStatus("fetch orders", resp))
		}

		var payload []orderPayload
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return retry.Permanent(fmt.Errorf("decode orders: %w", err))
		}

		orders = make([]model.Order, 0, len(payload))
		for _, o := range payload {
			orders = append(orders, o.toModel())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.reachable.Store(true)
	return orders, nil
}

// UpdateDeliveryStatus patches the delivery status of a remote order.
func (c *HTTPClient) UpdateDeliveryStatus(ctx context.Context, remoteID, status string) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	endpoint := path.Join("/api/orders", remoteID, "delivery-status")
	body := map[string]string{"status": status}
	return c.doJSON(ctx, http.MethodPatch, endpoint, body, http.StatusOK, nil)
}

func (c *HTTPClient) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	u := *c.baseURL
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	u.Path = path.Join(u.Path, parsed.Path)
	u.RawQuery = parsed.RawQuery

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *HTTPClient) newJSONRequest(ctx context.Context, method, endpoint string, body any) (*http.Request, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := c.newRequest(ctx, method, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *HTTPClient) doJSON(ctx context.Context, method, endpoint string, body any, wantStatus int, out any) error {
	var req *http.Request
	var err error
	if body != nil {
		req, err = c.newJSONRequest(ctx, method, endpoint, body)
	} else {
		req, err = c.newRequest(ctx, method, endpoint, nil)
	}
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.reachable.Store(false)
		return fmt.Errorf("%s %s: %w", method, endpoint, domainErrors.ErrNetworkUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		return c.unexpectedStatus(method+" "+endpoint, resp)
	}

	c.reachable.Store(true)
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", domainErrors.ErrRemoteService)
	}
	return nil
}

func (c *HTTPClient) unexpectedStatus(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	c.logger.Error("remote request failed",
		slog.String("op", op),
		slog.Int("status", resp.StatusCode),
		slog.String("body", string(body)),
	)
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", op, domainErrors.ErrNotFound)
	}
	return fmt.Errorf("%s status %d: %w", op, resp.StatusCode, domainErrors.ErrRemoteService)
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 5 * time.Second
	}
	if seconds, err := strconv.Atoi(header); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		return time.Until(t)
	}
	return 5 * time.Second
}

func (p productPayload) toModel() model.Product {
	return model.Product{
		Name:     p.Name,
		Size:     p.Size,
		Category: p.Category,
		Price:    p.Price,
		Discount: p.Discount,
		Quantity: p.Quantity,
		Image:    p.Image,
		IDs:      model.StoreIDs{Remote: p.ID},
	}
}

func fromModel(p model.Product) productPayload {
	return productPayload{
		ID:       p.IDs.Remote,
		Name:     p.Name,
		Size:     p.Size,
		Category: p.Category,
		Price:    p.Price,
		Discount: p.Discount,
		Quantity: p.Quantity,
		Image:    p.Image,
	}
}

func orderToPayload(o *model.Order) orderPayload {
	codes := make([]codePayload, 0, len(o.Codes))
	for _, c := range o.Codes {
		cp := codePayload{Code: c.Code, Amount: c.Amount}
		if !c.TransactionAt.IsZero() {
			cp.TransactionDate = c.TransactionAt.Format(time.RFC3339)
		}
		codes = append(codes, cp)
	}
	return orderPayload{
		ID:             o.ID,
		Items:          o.Items,
		Total:          o.Total,
		TotalPaid:      o.TotalPaid,
		Codes:          codes,
		Verification:   string(o.Verification),
		DeliveryStatus: o.DeliveryStatus,
		CreatedAt:      o.CreatedAt,
	}
}

func (p orderPayload) toModel() model.Order {
	codes := make([]model.PaymentCode, 0, len(p.Codes))
	for _, c := range p.Codes {
		code := model.PaymentCode{Code: c.Code, Amount: c.Amount, OrderID: p.ID}
		if c.TransactionDate != "" {
			if ts, err := time.Parse(time.RFC3339, c.TransactionDate); err == nil {
				code.TransactionAt = ts
			}
		}
		codes = append(codes, code)
	}
	return model.Order{
		ID:             p.ID,
		RemoteID:       p.ID,
		Items:          p.Items,
		Total:          p.Total,
		TotalPaid:      p.TotalPaid,
		Codes:          codes,
		Verification:   model.VerificationStatus(p.Verification),
		Status:         model.OrderStatusCommittedRemote,
		DeliveryStatus: p.DeliveryStatus,
		CreatedAt:      p.CreatedAt,
	}
}

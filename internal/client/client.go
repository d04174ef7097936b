package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/imrishuroy/go-omnikassa-orderflow/internal/omnikassa"
)

// Processor base URLs.
const (
	ProductionURL = "https://betalen.rabobank.nl/omnikassa-api/"
	SandboxURL    = "https://betalen.rabobank.nl/omnikassa-api-sandbox/"
)

const (
	pathRefresh = "gatekeeper/refresh"
	pathOrder   = "order/server/api/v2/order"
	pathResults = "order/server/api/events/results/" + omnikassa.EventOrderStatusChanged
	pathRefund  = "order/server/api/v2/refund/transactions/{transactionId}/refunds"
)

// APIError is returned for non-2xx processor responses.
type APIError struct {
	Status       int    `json:"-"`
	ErrorCode    int    `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
	Reason       string `json:"consumerMessage,omitempty"`
}

func (e *APIError) Error() string {
	if e.ErrorMessage == "" {
		return fmt.Sprintf("omnikassa: http %d", e.Status)
	}
	return fmt.Sprintf("omnikassa: http %d: error %d: %s", e.Status, e.ErrorCode, e.ErrorMessage)
}

// Options configures a Client.
type Options struct {
	BaseURL      string
	RefreshToken string
	Timeout      time.Duration
	// RequestsPerSecond limits outbound calls; zero disables limiting.
	RequestsPerSecond float64
	Burst             int
}

// Client talks to the processor's REST API. It is safe for concurrent use.
type Client struct {
	http         *resty.Client
	refreshToken string
	limiter      *rate.Limiter
	newRequestID func() string
}

// New returns a configured Client.
func New(opts Options) *Client {
	base := opts.BaseURL
	if base == "" {
		base = ProductionURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(base, "/")).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
		refreshToken: opts.RefreshToken,
		newRequestID: func() string { return uuid.NewString() },
	}
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return c
}

func (c *Client) request(ctx context.Context) (*resty.Request, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}
	return c.http.R().SetContext(ctx), nil
}

// RefreshAccessToken exchanges the refresh token for an access token.
func (c *Client) RefreshAccessToken(ctx context.Context) (omnikassa.AccessToken, error) {
	var tok omnikassa.AccessToken
	req, err := c.request(ctx)
	if err != nil {
		return tok, err
	}
	resp, err := req.SetHeader("Refresh-Token", c.refreshToken).Get(pathRefresh)
	if err := decode(resp, err, &tok); err != nil {
		return tok, fmt.Errorf("refresh token: %w", err)
	}
	if tok.Token == "" {
		return tok, fmt.Errorf("refresh token: empty token in response")
	}
	return tok, nil
}

// AnnounceOrder registers a signed order and returns the payment page URL.
func (c *Client) AnnounceOrder(ctx context.Context, accessToken string, order *omnikassa.Order) (omnikassa.AnnounceResponse, error) {
	var out omnikassa.AnnounceResponse
	if !order.Signed() {
		return out, fmt.Errorf("announce order %s: order is not signed", order.MerchantOrderID())
	}
	req, err := c.request(ctx)
	if err != nil {
		return out, err
	}
	resp, err := req.
		SetAuthToken(accessToken).
		SetHeader("Content-Type", "application/json").
		SetBody(order).
		Post(pathOrder)
	if err := decode(resp, err, &out); err != nil {
		return out, fmt.Errorf("announce order %s: %w", order.MerchantOrderID(), err)
	}
	return out, nil
}

// FetchOrderResults retrieves one page of results for a notification.
// authentication is the token carried by the notification.
func (c *Client) FetchOrderResults(ctx context.Context, accessToken, authentication string, page int) (omnikassa.OrderResults, error) {
	var out omnikassa.OrderResults
	req, err := c.request(ctx)
	if err != nil {
		return out, err
	}
	resp, err := req.
		SetAuthToken(accessToken).
		SetHeader("X-Authentication-Reference", authentication).
		SetQueryParam("page", strconv.Itoa(page)).
		Get(pathResults)
	if err := decode(resp, err, &out); err != nil {
		return out, fmt.Errorf("fetch order results page %d: %w", page, err)
	}
	return out, nil
}

// Refund registers a refund for a settled transaction.
func (c *Client) Refund(ctx context.Context, accessToken, transactionID string, r omnikassa.RefundRequest) (omnikassa.RefundResponse, error) {
	var out omnikassa.RefundResponse
	if err := r.Validate(); err != nil {
		return out, err
	}
	req, err := c.request(ctx)
	if err != nil {
		return out, err
	}
	resp, err := req.
		SetAuthToken(accessToken).
		SetHeader("Content-Type", "application/json").
		SetHeader("Request-ID", c.newRequestID()).
		SetPathParam("transactionId", transactionID).
		SetBody(r).
		Post(pathRefund)
	if err := decode(resp, err, &out); err != nil {
		return out, fmt.Errorf("refund transaction %s: %w", transactionID, err)
	}
	return out, nil
}

func decode(resp *resty.Response, err error, out interface{}) error {
	if err != nil {
		return err
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		apiErr := &APIError{Status: resp.StatusCode()}
		_ = json.Unmarshal(resp.Body(), apiErr)
		return apiErr
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/go-omnikassa-orderflow/internal/omnikassa"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := New(Options{BaseURL: srv.URL + "/omnikassa-api/", RefreshToken: "refresh-123", Timeout: 2 * time.Second})
	c.newRequestID = func() string { return "req-1" }
	return c
}

func TestRefreshAccessToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/omnikassa-api/gatekeeper/refresh", r.URL.Path)
		require.Equal(t, "refresh-123", r.Header.Get("Refresh-Token"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"token":"access-abc","validUntil":"2026-10-16T14:00:00.000+02:00","durationInMillis":28800000}`)
	})

	tok, err := c.RefreshAccessToken(context.Background())
	require.NoError(t, err)
	require.Equal(t, "access-abc", tok.Token)
	require.Equal(t, int64(28800000), tok.DurationInMillis)
	require.True(t, tok.ValidUntil.Equal(time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)))
}

func TestRefreshAccessToken_APIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"errorCode":5001,"errorMessage":"refresh token is invalid"}`)
	})

	_, err := c.RefreshAccessToken(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "expected APIError, got %v", err)
	require.Equal(t, http.StatusUnauthorized, apiErr.Status)
	require.Equal(t, 5001, apiErr.ErrorCode)
	require.Equal(t, "refresh token is invalid", apiErr.ErrorMessage)
}

func TestAnnounceOrder(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/omnikassa-api/order/server/api/v2/order", r.URL.Path)
		require.Equal(t, "Bearer access-abc", r.Header.Get("Authorization"))
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "1001", body["merchantOrderId"])
		require.NotEmpty(t, body["signature"])
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"omnikassaOrderId":"ok-1","redirectUrl":"https://betalen.rabobank.nl/pay/ok-1"}`)
	})

	amount, err := omnikassa.NewMoney("EUR", 1500)
	require.NoError(t, err)
	order, err := omnikassa.NewOrder("1001", amount, "https://shop.example.com/return")
	require.NoError(t, err)

	_, err = c.AnnounceOrder(context.Background(), "access-abc", order)
	require.Error(t, err, "unsigned orders are rejected")

	require.NoError(t, order.Sign([]byte("key")))
	out, err := c.AnnounceOrder(context.Background(), "access-abc", order)
	require.NoError(t, err)
	require.Equal(t, "ok-1", out.OmnikassaOrderID)
	require.Equal(t, "https://betalen.rabobank.nl/pay/ok-1", out.RedirectURL)
}

func TestFetchOrderResults(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/omnikassa-api/order/server/api/events/results/merchant.order.status.changed", r.URL.Path)
		require.Equal(t, "notify-token", r.Header.Get("X-Authentication-Reference"))
		require.Equal(t, "2", r.URL.Query().Get("page"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"moreOrderResultsAvailable":true,"orderResults":[{"merchantOrderId":"1001","omnikassaOrderId":"ok-1","poiId":1,"orderStatus":"COMPLETED","paidAmount":{"currency":"EUR","amount":1500},"totalAmount":{"currency":"EUR","amount":1500}}],"signature":"abc"}`)
	})

	page, err := c.FetchOrderResults(context.Background(), "access-abc", "notify-token", 2)
	require.NoError(t, err)
	require.True(t, page.MoreOrderResultsAvailable)
	require.Len(t, page.OrderResults, 1)
	require.Equal(t, "ok-1", page.OrderResults[0].OmnikassaOrderID)
	require.Equal(t, "abc", page.Signature())
}

func TestRefund(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/omnikassa-api/order/server/api/v2/refund/transactions/tx-9/refunds", r.URL.Path)
		require.Equal(t, "req-1", r.Header.Get("Request-ID"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"refundId":"rf-1","refundTransactionId":"tx-10","amount":{"currency":"EUR","amount":500},"status":"PENDING","transactionId":"tx-9"}`)
	})

	amount, err := omnikassa.NewMoney("EUR", 500)
	require.NoError(t, err)
	out, err := c.Refund(context.Background(), "access-abc", "tx-9", omnikassa.RefundRequest{Amount: amount, Description: "Damaged"})
	require.NoError(t, err)
	require.Equal(t, "rf-1", out.ID)
	require.Equal(t, "tx-10", out.TransactionID)
	require.Equal(t, "tx-9", out.OriginalTransaction)

	_, err = c.Refund(context.Background(), "access-abc", "tx-9", omnikassa.RefundRequest{})
	require.ErrorIs(t, err, omnikassa.ErrInvalidValue)
}

func TestRateLimiterHonoursContext(t *testing.T) {
	c := New(Options{BaseURL: "http://127.0.0.1:1", RequestsPerSecond: 0.001, Burst: 1})
	_, _ = c.request(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.request(ctx)
	require.Error(t, err)
}

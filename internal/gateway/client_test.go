package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestCreateOrder_OK(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/v1/orders" {
			t.Fatalf("path = %s, want /v1/orders", r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "key_id" || pass != "key_secret" {
			t.Fatalf("unexpected basic auth: %q %q %v", user, pass, ok)
		}

		var req CreateOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if req.Amount != 8000 || req.Currency != CurrencyINR || req.Notes["order_id"] != "ord-1" {
			t.Fatalf("unexpected request: %+v", req)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Order{ID: "order_rzp_1", Amount: req.Amount, Currency: req.Currency, Receipt: req.Receipt})
	}))
	defer ts.Close()

	client := NewClient(ts.URL, "key_id", "key_secret")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	res, err := client.CreateOrder(ctx, CreateOrderRequest{
		Amount:   8000,
		Currency: CurrencyINR,
		Receipt:  "ord-1",
		Notes:    map[string]string{"order_id": "ord-1"},
	})
	if err != nil {
		t.Fatalf("CreateOrder error: %v", err)
	}
	if res.ID != "order_rzp_1" || res.Amount != 8000 {
		t.Fatalf("unexpected response: %+v", res)
	}
}

func TestCreateOrder_UnexpectedStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	client := NewClient(ts.URL, "key_id", "key_secret")

	_, err := client.CreateOrder(context.Background(), CreateOrderRequest{Amount: 100, Currency: CurrencyINR})
	if err == nil {
		t.Fatalf("expected error for 502")
	}
}

func TestCreateOrder_Timeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer ts.Close()

	client := NewClient(ts.URL, "key_id", "key_secret")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.CreateOrder(ctx, CreateOrderRequest{Amount: 100, Currency: CurrencyINR})
	if err == nil {
		t.Fatalf("expected error on timeout")
	}
}

func TestCreateOrder_NotConfigured(t *testing.T) {
	client := NewClient("", "", "")

	_, err := client.CreateOrder(context.Background(), CreateOrderRequest{})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if client.Configured() {
		t.Fatalf("client without keys must not be configured")
	}
}

func TestToMinorUnits(t *testing.T) {
	tests := []struct {
		amount string
		want   int64
	}{
		{"80", 8000},
		{"80.5", 8050},
		{"0.015", 2},
		{"1234.99", 123499},
	}

	for _, tt := range tests {
		got := ToMinorUnits(decimal.RequireFromString(tt.amount))
		if got != tt.want {
			t.Fatalf("ToMinorUnits(%s) = %d, want %d", tt.amount, got, tt.want)
		}
	}
}

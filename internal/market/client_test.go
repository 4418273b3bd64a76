package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGetCandlesParsesKlines(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/klines" {
			t.Errorf("Expected /api/v3/klines, got %s", r.URL.Path)
		}
		if r.URL.Query().Get("symbol") != "BTCUSDT" {
			t.Errorf("Expected symbol BTCUSDT, got %s", r.URL.Query().Get("symbol"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			[1700000000000,"67000.0","67500.0","66800.0","67200.0","120.5",1700003599999,"8100000.0",3400,"60.2","4050000.0","0"],
			[1700003600000,"67200.0","67400.0","66900.0","67100.0","95.0",1700007199999,"6370000.0",2900,"47.5","3185000.0","0"]
		]`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	candles, err := client.GetCandles(context.Background(), "BTCUSDT", "1h", 2)
	if err != nil {
		t.Fatalf("GetCandles failed: %v", err)
	}
	if len(candles) != 2 {
		t.Fatalf("Expected 2 candles, got %d", len(candles))
	}
	first := candles[0]
	if first.OpenTime != 1700000000000 {
		t.Errorf("Expected open time 1700000000000, got %d", first.OpenTime)
	}
	if first.High != 67500.0 {
		t.Errorf("Expected high 67500.0, got %f", first.High)
	}
	if first.Volume != 120.5 {
		t.Errorf("Expected volume 120.5, got %f", first.Volume)
	}
	if first.TradeCount != 3400 {
		t.Errorf("Expected 3400 trades, got %d", first.TradeCount)
	}
}

func TestGetCandlesMalformedRow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[[1700000000000,"67000.0"]]`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	if _, err := client.GetCandles(context.Background(), "BTCUSDT", "1h", 1); err == nil {
		t.Error("Expected error for malformed kline row, got nil")
	}
}

func TestGetOrderBookParsesDepth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/depth" {
			t.Errorf("Expected /api/v3/depth, got %s", r.URL.Path)
		}
		w.Write([]byte(`{
			"lastUpdateId": 42,
			"bids": [["67000.0","1.5"],["66950.0","2.0"],["bad","row"]],
			"asks": [["67100.0","0.8"]]
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	book, err := client.GetOrderBook(context.Background(), "BTCUSDT", 100)
	if err != nil {
		t.Fatalf("GetOrderBook failed: %v", err)
	}
	if book.LastUpdateID != 42 {
		t.Errorf("Expected lastUpdateId 42, got %d", book.LastUpdateID)
	}
	if len(book.Bids) != 2 {
		t.Errorf("Expected 2 parseable bids, got %d", len(book.Bids))
	}
	if len(book.Asks) != 1 {
		t.Errorf("Expected 1 ask, got %d", len(book.Asks))
	}
	if book.Bids[0].Price != 67000.0 || book.Bids[0].Quantity != 1.5 {
		t.Errorf("Unexpected best bid: %+v", book.Bids[0])
	}
}

func TestGetCurrentPrice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbol":"BTCUSDT","price":"67250.50"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	price, err := client.GetCurrentPrice(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("GetCurrentPrice failed: %v", err)
	}
	if price != 67250.50 {
		t.Errorf("Expected price 67250.50, got %f", price)
	}
}

func TestGetCurrentPriceAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	if _, err := client.GetCurrentPrice(context.Background(), "NOPE"); err == nil {
		t.Error("Expected error for API error response, got nil")
	}
}

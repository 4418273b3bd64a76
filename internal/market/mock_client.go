package market

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"
)

// MockProvider provides simulated market data for development/testing
type MockProvider struct {
	prices map[string]float64
	mu     sync.RWMutex
	rng    *rand.Rand
}

// NewMockProvider creates a new mock provider with realistic base prices
func NewMockProvider() *MockProvider {
	return &MockProvider{
		prices: map[string]float64{
			"BTCUSDT":  67000.00,
			"ETHUSDT":  3500.00,
			"BNBUSDT":  590.00,
			"SOLUSDT":  160.00,
			"XRPUSDT":  0.55,
			"ADAUSDT":  0.45,
			"DOGEUSDT": 0.12,
		},
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// GetCandles returns a simulated trending series around the base price
func (mp *MockProvider) GetCandles(_ context.Context, symbol, _ string, limit int) ([]Candle, error) {
	base := mp.basePrice(symbol)

	mp.mu.Lock()
	defer mp.mu.Unlock()

	now := time.Now().UnixMilli()
	candles := make([]Candle, limit)
	price := base * 0.96
	for i := 0; i < limit; i++ {
		// Mild upward drift with sinusoidal wobble
		drift := base * 0.0002
		wobble := base * 0.003 * math.Sin(float64(i)/7.0)
		noise := (mp.rng.Float64() - 0.5) * base * 0.004

		open := price
		price = price + drift + wobble + noise
		high := math.Max(open, price) + mp.rng.Float64()*base*0.002
		low := math.Min(open, price) - mp.rng.Float64()*base*0.002

		openTime := now - int64(limit-i)*3600_000
		candles[i] = Candle{
			OpenTime:  openTime,
			Open:      open,
			High:      high,
			Low:       low,
			Close:     price,
			Volume:    50 + mp.rng.Float64()*100,
			CloseTime: openTime + 3599_999,
		}
	}

	return candles, nil
}

// GetOrderBook returns a simulated depth snapshot around the base price
func (mp *MockProvider) GetOrderBook(_ context.Context, symbol string, depth int) (*OrderBook, error) {
	base := mp.basePrice(symbol)
	if depth <= 0 {
		depth = 50
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	book := &OrderBook{LastUpdateID: time.Now().UnixNano()}
	for i := 1; i <= depth; i++ {
		step := base * 0.0005 * float64(i)
		book.Bids = append(book.Bids, BookLevel{
			Price:    base - step,
			Quantity: 0.5 + mp.rng.Float64()*3,
		})
		book.Asks = append(book.Asks, BookLevel{
			Price:    base + step,
			Quantity: 0.5 + mp.rng.Float64()*3,
		})
	}

	return book, nil
}

// GetCurrentPrice returns the simulated latest price
func (mp *MockProvider) GetCurrentPrice(_ context.Context, symbol string) (float64, error) {
	return mp.basePrice(symbol), nil
}

func (mp *MockProvider) basePrice(symbol string) float64 {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	if price, ok := mp.prices[symbol]; ok {
		return price
	}
	return 100.0
}

package market

import "context"

// Candle represents a single OHLCV bar
type Candle struct {
	OpenTime    int64   `json:"openTime"`
	Open        float64 `json:"open,string"`
	High        float64 `json:"high,string"`
	Low         float64 `json:"low,string"`
	Close       float64 `json:"close,string"`
	Volume      float64 `json:"volume,string"`
	CloseTime   int64   `json:"closeTime"`
	QuoteVolume float64 `json:"quoteVolume,string"`
	TradeCount  int     `json:"tradeCount"`
}

// BookLevel is a single price level in the order book
type BookLevel struct {
	Price    float64 `json:"price,string"`
	Quantity float64 `json:"quantity,string"`
}

// Notional returns the quote-denominated value resting at this level
func (l BookLevel) Notional() float64 {
	return l.Price * l.Quantity
}

// OrderBook represents a depth snapshot. Bids are ordered descending by
// price, asks ascending.
type OrderBook struct {
	LastUpdateID int64       `json:"lastUpdateId"`
	Bids         []BookLevel `json:"bids"`
	Asks         []BookLevel `json:"asks"`
}

// IsEmpty reports whether the snapshot carries no usable depth
func (ob *OrderBook) IsEmpty() bool {
	return ob == nil || (len(ob.Bids) == 0 && len(ob.Asks) == 0)
}

// Provider supplies market data to the engine. The order book is optional:
// implementations may return (nil, nil) when depth is unavailable and level
// detection degrades gracefully.
type Provider interface {
	GetCandles(ctx context.Context, symbol, interval string, limit int) ([]Candle, error)
	GetOrderBook(ctx context.Context, symbol string, depth int) (*OrderBook, error)
	GetCurrentPrice(ctx context.Context, symbol string) (float64, error)
}

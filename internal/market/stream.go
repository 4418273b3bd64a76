package market

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// CandleHandler receives closed candles from the stream
type CandleHandler func(symbol string, candle Candle)

// KlineStream subscribes to live kline updates over websocket and delivers
// closed candles to a handler. Reconnects automatically until stopped.
type KlineStream struct {
	wsBaseURL string
	interval  string
	logger    zerolog.Logger

	mu       sync.Mutex
	conn     *websocket.Conn
	handler  CandleHandler
	stopChan chan struct{}
	stopped  bool
	wg       sync.WaitGroup
}

// NewKlineStream creates a stream client. wsBaseURL defaults to the Binance
// combined stream endpoint when empty.
func NewKlineStream(wsBaseURL, interval string, logger zerolog.Logger) *KlineStream {
	if wsBaseURL == "" {
		wsBaseURL = "wss://stream.binance.com:9443"
	}
	if interval == "" {
		interval = "1h"
	}
	return &KlineStream{
		wsBaseURL: wsBaseURL,
		interval:  interval,
		logger:    logger.With().Str("component", "KlineStream").Logger(),
		stopChan:  make(chan struct{}),
	}
}

// klineEvent mirrors the Binance kline stream payload
type klineEvent struct {
	Stream string `json:"stream"`
	Data   struct {
		Symbol string `json:"s"`
		Kline  struct {
			OpenTime  int64  `json:"t"`
			CloseTime int64  `json:"T"`
			Open      string `json:"o"`
			High      string `json:"h"`
			Low       string `json:"l"`
			Close     string `json:"c"`
			Volume    string `json:"v"`
			Closed    bool   `json:"x"`
		} `json:"k"`
	} `json:"data"`
}

// Start connects and begins delivering closed candles for the given symbols
func (ks *KlineStream) Start(symbols []string, handler CandleHandler) error {
	if len(symbols) == 0 {
		return fmt.Errorf("no symbols to subscribe")
	}

	ks.mu.Lock()
	ks.handler = handler
	ks.mu.Unlock()

	streams := make([]string, len(symbols))
	for i, s := range symbols {
		streams[i] = fmt.Sprintf("%s@kline_%s", strings.ToLower(s), ks.interval)
	}
	endpoint := fmt.Sprintf("%s/stream?streams=%s", ks.wsBaseURL, strings.Join(streams, "/"))

	ks.wg.Add(1)
	go ks.readLoop(endpoint)

	return nil
}

func (ks *KlineStream) readLoop(endpoint string) {
	defer ks.wg.Done()

	for {
		select {
		case <-ks.stopChan:
			return
		default:
		}

		conn, _, err := websocket.DefaultDialer.Dial(endpoint, nil)
		if err != nil {
			ks.logger.Warn().Err(err).Msg("stream dial failed, retrying")
			select {
			case <-time.After(5 * time.Second):
				continue
			case <-ks.stopChan:
				return
			}
		}

		ks.mu.Lock()
		ks.conn = conn
		ks.mu.Unlock()
		ks.logger.Info().Str("endpoint", endpoint).Msg("kline stream connected")

		ks.consume(conn)

		conn.Close()

		select {
		case <-ks.stopChan:
			return
		case <-time.After(2 * time.Second):
		}
	}
}

func (ks *KlineStream) consume(conn *websocket.Conn) {
	for {
		select {
		case <-ks.stopChan:
			return
		default:
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			ks.logger.Warn().Err(err).Msg("stream read error, reconnecting")
			return
		}

		var event klineEvent
		if err := json.Unmarshal(msg, &event); err != nil {
			continue
		}

		k := event.Data.Kline
		if !k.Closed {
			continue
		}

		candle := Candle{
			OpenTime:  k.OpenTime,
			CloseTime: k.CloseTime,
			Open:      mustFloat(k.Open),
			High:      mustFloat(k.High),
			Low:       mustFloat(k.Low),
			Close:     mustFloat(k.Close),
			Volume:    mustFloat(k.Volume),
		}

		ks.mu.Lock()
		handler := ks.handler
		ks.mu.Unlock()
		if handler != nil {
			handler(event.Data.Symbol, candle)
		}
	}
}

// Stop closes the stream and waits for the read loop to exit
func (ks *KlineStream) Stop() {
	ks.mu.Lock()
	if ks.stopped {
		ks.mu.Unlock()
		return
	}
	ks.stopped = true
	close(ks.stopChan)
	if ks.conn != nil {
		ks.conn.Close()
	}
	ks.mu.Unlock()

	ks.wg.Wait()
}

func mustFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

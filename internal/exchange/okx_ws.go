package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"arbscan/internal/domain"
)

const (
	defaultOKXWSURL = "wss://ws.okx.com:8443/ws/v5/public"

	// okxMaxQuoteAge bounds how stale a streamed ticker may be before
	// FetchQuotes stops serving it.
	okxMaxQuoteAge = 2 * time.Minute

	okxPingEvery   = 25 * time.Second
	okxReconnectIn = 2 * time.Second
)

// OKX streams spot tickers from the OKX public v5 websocket and maintains an
// in-memory snapshot per pair. FetchQuotes serves the snapshot, so a scan
// cycle never blocks on the OKX network path; Run must be started for the
// snapshot to populate.
type OKX struct {
	wsURL   string
	symbols symbolMap
	logger  *slog.Logger

	mu     sync.RWMutex
	latest map[string]domain.Quote // keyed by normalized pair

	closeOnce sync.Once
	done      chan struct{}
}

// OKXConfig configures the OKX adapter.
type OKXConfig struct {
	WSURL string
	Pairs []string
}

// NewOKX creates an OKX streaming adapter for the given normalized pairs.
func NewOKX(cfg OKXConfig, logger *slog.Logger) *OKX {
	if cfg.WSURL == "" {
		cfg.WSURL = defaultOKXWSURL
	}
	return &OKX{
		wsURL:   cfg.WSURL,
		symbols: newSymbolMap(cfg.Pairs, "-"),
		logger:  logger.With(slog.String("component", "okx_ws")),
		latest:  make(map[string]domain.Quote),
		done:    make(chan struct{}),
	}
}

// Name returns the venue identifier.
func (o *OKX) Name() string { return "okx" }

// FetchQuotes returns the current snapshot, dropping entries older than the
// staleness bound. It never touches the network.
func (o *OKX) FetchQuotes(ctx context.Context) ([]domain.Quote, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	cutoff := time.Now().UTC().Add(-okxMaxQuoteAge)
	quotes := make([]domain.Quote, 0, len(o.latest))
	for _, q := range o.latest {
		if q.ObservedAt.Before(cutoff) {
			continue
		}
		quotes = append(quotes, q)
	}
	if len(quotes) == 0 {
		return nil, fmt.Errorf("okx: %w: no live tickers", domain.ErrSourceUnavailable)
	}
	return quotes, nil
}

// Run connects, subscribes to tickers for the configured pairs, and keeps the
// snapshot current until ctx is cancelled. Reconnects on disconnect.
func (o *OKX) Run(ctx context.Context) error {
	if len(o.symbols.toVenue) == 0 {
		o.logger.Info("no pairs to subscribe, exiting")
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-o.done:
			return nil
		default:
		}

		if err := o.runConnection(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			o.logger.Warn("okx ws disconnected, reconnecting",
				slog.String("error", err.Error()))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-o.done:
			return nil
		case <-time.After(okxReconnectIn):
		}
	}
}

// Close stops the adapter.
func (o *OKX) Close() {
	o.closeOnce.Do(func() { close(o.done) })
}

type okxSubArg struct {
	Channel string `json:"channel"`
	InstID  string `json:"instId"`
}

type okxTicker struct {
	InstID string `json:"instId"`
	BidPx  string `json:"bidPx"`
	AskPx  string `json:"askPx"`
	Vol24h string `json:"vol24h"`
	TS     string `json:"ts"`
}

type okxMessage struct {
	Event string      `json:"event"`
	Code  string      `json:"code"`
	Msg   string      `json:"msg"`
	Arg   *okxSubArg  `json:"arg"`
	Data  []okxTicker `json:"data"`
}

func (o *OKX) runConnection(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, o.wsURL, nil)
	cancel()
	if err != nil {
		return fmt.Errorf("okx: dial %s: %w", o.wsURL, err)
	}
	defer conn.Close()

	args := make([]okxSubArg, 0, len(o.symbols.toVenue))
	for _, instID := range o.symbols.venueSymbols() {
		args = append(args, okxSubArg{Channel: "tickers", InstID: instID})
	}
	sub := map[string]interface{}{"op": "subscribe", "args": args}
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("okx: subscribe: %w", err)
	}
	o.logger.Info("okx ws subscribed", slog.Int("pairs", len(args)))

	// The reader owns the connection; cancelling ctx or closing the adapter
	// closes the socket out from under it to unblock ReadMessage.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(okxPingEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				conn.Close()
				return
			case <-o.done:
				conn.Close()
				return
			case <-stop:
				return
			case <-ticker.C:
				if err := conn.WriteMessage(websocket.TextMessage, []byte("ping")); err != nil {
					conn.Close()
					return
				}
			}
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("okx: read: %w", err)
		}
		if string(raw) == "pong" {
			continue
		}

		var msg okxMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		if msg.Event == "error" || (msg.Code != "" && msg.Code != "0") {
			o.logger.Warn("okx ws error event",
				slog.String("code", msg.Code), slog.String("msg", msg.Msg))
			continue
		}
		if msg.Arg == nil || msg.Arg.Channel != "tickers" || len(msg.Data) == 0 {
			continue
		}
		for _, t := range msg.Data {
			o.apply(t)
		}
	}
}

func (o *OKX) apply(t okxTicker) {
	pair, ok := o.symbols.toNormal[t.InstID]
	if !ok {
		return
	}
	bid, okBid := parsePrice(t.BidPx)
	ask, okAsk := parsePrice(t.AskPx)
	vol, okVol := parsePrice(t.Vol24h)
	if !okBid || !okAsk || !okVol {
		return
	}

	observed := time.Now().UTC()
	if ms, err := strconv.ParseInt(t.TS, 10, 64); err == nil && ms > 0 {
		observed = time.UnixMilli(ms).UTC()
	}

	o.mu.Lock()
	o.latest[pair] = domain.Quote{
		Venue:      o.Name(),
		Symbol:     pair,
		Bid:        bid,
		Ask:        ask,
		Volume:     vol,
		ObservedAt: observed,
	}
	o.mu.Unlock()
}

// Compile-time interface check.
var _ domain.VenueAdapter = (*OKX)(nil)

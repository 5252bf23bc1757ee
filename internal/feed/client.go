package feed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"

	"tradingdesk/pkg/exception"
	"tradingdesk/pkg/market"
)

const (
	DefaultReadTimeout = 60 * time.Second
	maxMessageSize     = 1 << 20
)

// message is the wire form of a tick, ts is unix milliseconds.
type message struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
	TS     int64           `json:"ts"`
}

// Decode parses one tick message.
func Decode(payload []byte) (market.Tick, error) {
	var m message
	if err := sonic.ConfigFastest.Unmarshal(payload, &m); err != nil {
		return market.Tick{}, fmt.Errorf("%w: %w", exception.ErrFeedMalformedTick, err)
	}
	if m.Symbol == "" {
		return market.Tick{}, fmt.Errorf("%w: empty symbol", exception.ErrFeedMalformedTick)
	}
	if !m.Price.IsPositive() {
		return market.Tick{}, fmt.Errorf("%w: price %s", exception.ErrFeedMalformedTick, m.Price)
	}

	at := time.Now().UTC()
	if m.TS > 0 {
		at = time.UnixMilli(m.TS).UTC()
	}
	return market.Tick{Symbol: m.Symbol, Price: market.NewPrice(m.Price.InexactFloat64()), At: at}, nil
}

// Client reads ticks from a websocket price feed and reconnects with backoff.
type Client struct {
	URL         string
	Header      http.Header
	Dialer      *websocket.Dialer
	Backoff     Backoff
	ReadTimeout time.Duration
	// MaxAttempts stops reconnecting after that many failed dials in a row, 0 retries forever.
	MaxAttempts int

	wait func(ctx context.Context, d time.Duration) error
}

func NewClient(url string) *Client {
	return &Client{
		URL:         url,
		Dialer:      websocket.DefaultDialer,
		Backoff:     DefaultBackoff(),
		ReadTimeout: DefaultReadTimeout,
	}
}

// Run delivers ticks to handle until ctx is done. Malformed messages are
// logged and skipped.
func (c *Client) Run(ctx context.Context, handle func(market.Tick)) error {
	if c.URL == "" {
		return exception.ErrFeedEmptyURL
	}

	attempt := 0
	for {
		conn, _, err := c.Dialer.DialContext(ctx, c.URL, c.Header)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			attempt++
			if c.MaxAttempts > 0 && attempt >= c.MaxAttempts {
				return fmt.Errorf("dial %s after %d attempts: %w", c.URL, attempt, err)
			}
			wait := c.Backoff.Next(attempt)
			logs.Errorf("dial feed %s, retry in %s, err: %+v", c.URL, wait, err)
			if err := c.sleep(ctx, wait); err != nil {
				return err
			}
			continue
		}

		attempt = 0
		logs.Infof("connected to feed %s", c.URL)
		err = c.read(ctx, conn, handle)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logs.Errorf("feed %s disconnected, err: %+v", c.URL, err)
	}
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	if c.wait != nil {
		return c.wait(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (c *Client) read(ctx context.Context, conn *websocket.Conn, handle func(market.Tick)) error {
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = conn.Close()
	})
	defer stop()

	conn.SetReadLimit(maxMessageSize)
	timeout := c.ReadTimeout
	if timeout <= 0 {
		timeout = DefaultReadTimeout
	}
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(timeout))
	})

	for {
		msgType, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return errors.Join(exception.ErrFeedConnectionClose, err)
			}
			return err
		}
		_ = conn.SetReadDeadline(time.Now().Add(timeout))
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}

		tick, err := Decode(payload)
		if err != nil {
			logs.Errorf("decode tick, err: %+v", err)
			continue
		}
		handle(tick)
	}
}

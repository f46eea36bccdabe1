package binance

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

// MarkPriceStream follows the <symbol>@markPrice websocket stream. It only
// feeds observability (gauges, staleness logs); the decision path always uses
// the mark price read together with the position so a cycle stays consistent.
type MarkPriceStream struct {
	url            string
	reconnectDelay time.Duration
	log            *zap.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	lastPrice float64
	lastAt    time.Time
}

type markPriceEvent struct {
	EventType string `json:"e"`
	EventTime int64  `json:"E"`
	Symbol    string `json:"s"`
	MarkPrice string `json:"p"`
}

func NewMarkPriceStream(streamURL, symbol string, reconnectDelay time.Duration, log *zap.Logger) *MarkPriceStream {
	return &MarkPriceStream{
		url:            strings.TrimRight(streamURL, "/") + "/" + strings.ToLower(symbol) + "@markPrice",
		reconnectDelay: reconnectDelay,
		log:            log,
	}
}

// Last returns the most recent mark price and its receive time. ok is false
// until the first event arrives.
func (s *MarkPriceStream) Last() (price float64, at time.Time, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPrice, s.lastAt, !s.lastAt.IsZero()
}

// Run reads events until ctx is done, reconnecting after read failures.
func (s *MarkPriceStream) Run(ctx context.Context, onPrice func(float64)) error {
	for {
		if err := s.connect(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logWarn("mark price stream connect failed", err)
		} else if err := s.readLoop(ctx, onPrice); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logWarn("mark price stream read failed", err)
		}
		s.resetConn()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.reconnectDelay):
		}
	}
}

func (s *MarkPriceStream) connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		return nil
	}
	conn, _, err := websocket.Dial(ctx, s.url, nil)
	if err != nil {
		return err
	}
	// The venue caps frame sizes well below this; the default is too small
	// for combined streams.
	conn.SetReadLimit(1 << 20)
	s.conn = conn
	return nil
}

func (s *MarkPriceStream) readLoop(ctx context.Context, onPrice func(float64)) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		var event markPriceEvent
		if err := json.Unmarshal(data, &event); err != nil || event.EventType != "markPriceUpdate" {
			continue
		}
		price, err := strconv.ParseFloat(event.MarkPrice, 64)
		if err != nil {
			continue
		}
		s.mu.Lock()
		s.lastPrice = price
		s.lastAt = time.Now()
		s.mu.Unlock()
		if onPrice != nil {
			onPrice(price)
		}
	}
}

func (s *MarkPriceStream) resetConn() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		_ = s.conn.Close(websocket.StatusNormalClosure, "reconnect")
		s.conn = nil
	}
}

func (s *MarkPriceStream) logWarn(msg string, err error) {
	if s.log != nil {
		s.log.Warn(msg, zap.Error(err))
	}
}

package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"ChumRoom/pkg/logger"
	"ChumRoom/pkg/solana"
)

// Watcher subscribes to ledger log notifications mentioning the room
// address and invokes the refresh callback whenever new activity lands.
// This keeps the window cache warm between HTTP reads without polling.
type Watcher struct {
	wsURL          string
	room           solana.PublicKey
	commitment     string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	onActivity     func(ctx context.Context)
	logger         *logger.Logger
}

// New creates a room activity watcher. onActivity runs on the watcher's
// goroutine and should return quickly.
func New(wsURL string, room solana.PublicKey, reconnectDelay, pingInterval time.Duration,
	log *logger.Logger, onActivity func(ctx context.Context)) *Watcher {
	return &Watcher{
		wsURL:          wsURL,
		room:           room,
		commitment:     "confirmed",
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		onActivity:     onActivity,
		logger:         log,
	}
}

// Run connects, subscribes, and processes notifications until ctx ends.
// Connection failures trigger reconnects after the configured delay.
func (w *Watcher) Run(ctx context.Context) {
	for {
		conn, err := w.connect(ctx)
		if err != nil {
			w.logger.Warn("room watcher connect failed", logger.Error(err))
		} else {
			w.readLoop(ctx, conn)
			_ = conn.Close()
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.reconnectDelay):
		}
	}
}

func (w *Watcher) connect(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, w.wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", w.wsURL, err)
	}

	sub := map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "logsSubscribe",
		"params": []any{
			map[string]any{"mentions": []string{w.room.String()}},
			map[string]any{"commitment": w.commitment},
		},
	}
	if err := conn.WriteJSON(sub); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	w.logger.Info("room watcher subscribed", logger.String("room", w.room.String()))
	return conn, nil
}

type wsFrame struct {
	Method string `json:"method"`
	Params struct {
		Result struct {
			Value struct {
				Signature string          `json:"signature"`
				Err       json.RawMessage `json:"err"`
			} `json:"value"`
		} `json:"result"`
	} `json:"params"`
}

// readLoop owns conn; the ping goroutine gets its own reference so it
// never reads shared state while the connection is being torn down.
func (w *Watcher) readLoop(ctx context.Context, conn *websocket.Conn) {
	stopPing := make(chan struct{})
	defer close(stopPing)
	go w.pingLoop(ctx, conn, stopPing)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, b, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				w.logger.Warn("room watcher read failed", logger.Error(err))
			}
			return
		}

		var frame wsFrame
		if err := json.Unmarshal(b, &frame); err != nil {
			continue // subscription confirmations and other frames
		}
		if frame.Method != "logsNotification" {
			continue
		}
		v := frame.Params.Result.Value
		if len(v.Err) > 0 && string(v.Err) != "null" {
			continue // failed transaction, nothing to decode
		}

		w.logger.Debug("room activity observed", logger.String("signature", v.Signature))
		w.onActivity(ctx)
	}
}

func (w *Watcher) pingLoop(ctx context.Context, conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(w.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			_ = conn.WriteMessage(websocket.PingMessage, nil)
		}
	}
}

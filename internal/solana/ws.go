package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// pingPeriod sends pings to the peer at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// AccountUpdate is one push notification for a subscribed account.
type AccountUpdate struct {
	Lamports uint64
	Slot     uint64
}

// AccountSubscription is a live accountSubscribe stream. Updates are
// delivered on Updates until Unsubscribe is called; after Unsubscribe
// returns, the channel is closed and nothing more is ever delivered.
type AccountSubscription struct {
	id      uint64
	client  *WSClient
	updates chan AccountUpdate
	once    sync.Once
}

// Updates returns the notification channel.
func (s *AccountSubscription) Updates() <-chan AccountUpdate {
	return s.updates
}

// Unsubscribe releases the subscription. Safe to call multiple times.
func (s *AccountSubscription) Unsubscribe() {
	s.client.unsubscribeAccount(s)
}

// markClosed closes the update channel exactly once.
func (s *AccountSubscription) markClosed() {
	s.once.Do(func() {
		close(s.updates)
	})
}

// WSClient is a websocket client for the Solana pubsub RPC endpoint. It
// manages the connection lifecycle and dispatches account notifications to
// their subscriptions.
type WSClient struct {
	wsURL string
	conn  *websocket.Conn

	mu     sync.Mutex
	closed bool
	nextID uint64

	// pending maps request id -> response channel for in-flight RPCs.
	pending map[uint64]chan wsResponse

	// subs maps server-side subscription id -> subscription.
	subs map[uint64]*AccountSubscription

	done chan struct{}
}

type wsResponse struct {
	result json.RawMessage
	err    *RPCError
}

// NewWSClient creates a pubsub client for the given websocket endpoint,
// e.g. "wss://api.mainnet-beta.solana.com".
func NewWSClient(wsURL string) *WSClient {
	return &WSClient{
		wsURL:   wsURL,
		pending: make(map[uint64]chan wsResponse),
		subs:    make(map[uint64]*AccountSubscription),
		done:    make(chan struct{}),
	}
}

// Connect establishes the websocket connection and starts the read and
// ping loops.
func (w *WSClient) Connect(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("solana/ws: client is closed")
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 15 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, w.wsURL, nil)
	if err != nil {
		return fmt.Errorf("solana/ws: connect: %w", err)
	}
	w.conn = conn

	w.conn.SetReadDeadline(time.Now().Add(pongWait))
	w.conn.SetPongHandler(func(string) error {
		w.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go w.readLoop()
	go w.pingLoop()
	return nil
}

// SubscribeAccount opens an accountSubscribe stream for the given address.
// Lamport changes are pushed on the returned subscription's channel.
func (w *WSClient) SubscribeAccount(ctx context.Context, pk PublicKey, commitment Commitment) (*AccountSubscription, error) {
	params := []any{
		pk.String(),
		map[string]any{"encoding": "base64", "commitment": string(commitment)},
	}
	result, err := w.request(ctx, "accountSubscribe", params)
	if err != nil {
		return nil, fmt.Errorf("solana/ws: subscribe %s: %w", pk, err)
	}

	var subID uint64
	if err := json.Unmarshal(result, &subID); err != nil {
		return nil, fmt.Errorf("solana/ws: decode subscription id: %w", err)
	}

	sub := &AccountSubscription{
		id:      subID,
		client:  w,
		updates: make(chan AccountUpdate, 16),
	}

	w.mu.Lock()
	w.subs[subID] = sub
	w.mu.Unlock()
	return sub, nil
}

// unsubscribeAccount removes the subscription from the dispatch table,
// closes its channel, and tells the server to stop. Removal happens before
// the close so the read loop can never send on a closed channel.
func (w *WSClient) unsubscribeAccount(sub *AccountSubscription) {
	w.mu.Lock()
	_, present := w.subs[sub.id]
	delete(w.subs, sub.id)
	w.mu.Unlock()
	sub.markClosed()
	if !present {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, _ = w.request(ctx, "accountUnsubscribe", []any{sub.id})
}

// request performs one JSON-RPC call over the websocket.
func (w *WSClient) request(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	w.mu.Lock()
	if w.conn == nil || w.closed {
		w.mu.Unlock()
		return nil, fmt.Errorf("solana/ws: not connected")
	}
	w.nextID++
	id := w.nextID
	ch := make(chan wsResponse, 1)
	w.pending[id] = ch

	req := map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  method,
		"params":  params,
	}
	w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	err := w.conn.WriteJSON(req)
	w.mu.Unlock()

	if err != nil {
		w.dropPending(id)
		return nil, fmt.Errorf("solana/ws: write %s: %w", method, err)
	}

	select {
	case <-ctx.Done():
		w.dropPending(id)
		return nil, ctx.Err()
	case <-w.done:
		return nil, fmt.Errorf("solana/ws: client closed")
	case resp := <-ch:
		if resp.err != nil {
			return nil, resp.err
		}
		return resp.result, nil
	}
}

func (w *WSClient) dropPending(id uint64) {
	w.mu.Lock()
	delete(w.pending, id)
	w.mu.Unlock()
}

// readLoop reads frames until the connection dies, routing RPC responses to
// their callers and account notifications to their subscriptions.
func (w *WSClient) readLoop() {
	for {
		_, raw, err := w.conn.ReadMessage()
		if err != nil {
			return
		}

		var frame struct {
			ID     uint64          `json:"id"`
			Result json.RawMessage `json:"result"`
			Error  *RPCError       `json:"error"`
			Method string          `json:"method"`
			Params struct {
				Subscription uint64 `json:"subscription"`
				Result       struct {
					Context struct {
						Slot uint64 `json:"slot"`
					} `json:"context"`
					Value struct {
						Lamports uint64 `json:"lamports"`
					} `json:"value"`
				} `json:"result"`
			} `json:"params"`
		}
		if err := json.Unmarshal(raw, &frame); err != nil {
			continue
		}

		if frame.Method == "accountNotification" {
			update := AccountUpdate{
				Lamports: frame.Params.Result.Value.Lamports,
				Slot:     frame.Params.Result.Context.Slot,
			}
			w.mu.Lock()
			sub, ok := w.subs[frame.Params.Subscription]
			if ok {
				select {
				case sub.updates <- update:
				default: // subscriber is slow; drop rather than block the read loop
				}
			}
			w.mu.Unlock()
			continue
		}

		if frame.ID != 0 {
			w.mu.Lock()
			ch, ok := w.pending[frame.ID]
			if ok {
				delete(w.pending, frame.ID)
			}
			w.mu.Unlock()
			if ok {
				ch <- wsResponse{result: frame.Result, err: frame.Error}
			}
		}
	}
}

// pingLoop sends keep-alive pings until the client is closed.
func (w *WSClient) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.mu.Lock()
			if w.conn != nil {
				w.conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = w.conn.WriteMessage(websocket.PingMessage, nil)
			}
			w.mu.Unlock()
		}
	}
}

// Close shuts the connection down. Open subscriptions stop delivering.
func (w *WSClient) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	w.closed = true
	close(w.done)

	for id, sub := range w.subs {
		delete(w.subs, id)
		sub.markClosed()
	}
	if w.conn != nil {
		_ = w.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = w.conn.Close()
		w.conn = nil
	}
}

package ipc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"

	"github.com/desertthunder/ytmd/internal/shared"
	"github.com/gorilla/websocket"
)

// Client is the renderer-side messaging handle. It speaks the same Frame
// format as the host bus over one websocket connection.
type Client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	mu       sync.Mutex
	subs     map[string]map[int]Handler
	nextSub  int
	invokers map[string]InvokeHandler
	pending  map[string]chan Frame
	closed   bool
	done     chan struct{}
}

var _ Sender = (*Client)(nil)

// Dial connects to a bridge server at host:port.
func Dial(ctx context.Context, addr string) (*Client, error) {
	u := url.URL{Scheme: "ws", Host: addr, Path: BridgePath}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial bridge: %w", err)
	}

	c := &Client{
		conn:     conn,
		subs:     make(map[string]map[int]Handler),
		invokers: make(map[string]InvokeHandler),
		pending:  make(map[string]chan Frame),
		done:     make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Send publishes a fire-and-forget message. Failures after the connection is
// gone are discarded.
func (c *Client) Send(channel string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	_ = c.write(Frame{Channel: channel, Payload: data})
}

// On subscribes to messages arriving from the host on a channel.
func (c *Client) On(channel string, h Handler) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.subs[channel] == nil {
		c.subs[channel] = make(map[int]Handler)
	}
	id := c.nextSub
	c.nextSub++
	c.subs[channel][id] = h

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs[channel], id)
	}
}

// HandleInvoke registers the handler answering host invoke requests.
func (c *Client) HandleInvoke(channel string, h InvokeHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invokers[channel] = h
}

// Invoke sends a request to the host and waits for the correlated reply.
func (c *Client) Invoke(ctx context.Context, channel string, payload any) (json.RawMessage, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	id := shared.GenerateID()
	replyCh := make(chan Frame, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, shared.ErrChannelClosed
	}
	c.pending[id] = replyCh
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err := c.write(Frame{Channel: channel, ID: id, Payload: data}); err != nil {
		return nil, fmt.Errorf("%w: %s", shared.ErrPeerGone, channel)
	}

	select {
	case reply := <-replyCh:
		if reply.Error != "" {
			return nil, fmt.Errorf("invoke %s: %s", channel, reply.Error)
		}
		return reply.Payload, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %s", shared.ErrInvokeTimeout, channel)
	case <-c.done:
		return nil, shared.ErrChannelClosed
	}
}

// Close tears the connection down. Idempotent.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.done)
	c.mu.Unlock()
	_ = c.conn.Close()
}

func (c *Client) write(f Frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(f)
}

func (c *Client) readLoop() {
	defer c.Close()

	for {
		var f Frame
		if err := c.conn.ReadJSON(&f); err != nil {
			return
		}

		switch {
		case f.ReplyTo != "":
			c.mu.Lock()
			ch, ok := c.pending[f.ReplyTo]
			if ok {
				delete(c.pending, f.ReplyTo)
			}
			c.mu.Unlock()
			if ok {
				ch <- f
			}

		case f.ID != "":
			c.mu.Lock()
			handler, ok := c.invokers[f.Channel]
			c.mu.Unlock()

			reply := Frame{ReplyTo: f.ID}
			if !ok {
				reply.Error = fmt.Sprintf("no invoke handler for %s", f.Channel)
			} else if result, err := handler(context.Background(), f.Payload); err != nil {
				reply.Error = err.Error()
			} else if data, err := json.Marshal(result); err != nil {
				reply.Error = err.Error()
			} else {
				reply.Payload = data
			}
			_ = c.write(reply)

		default:
			c.mu.Lock()
			handlers := make([]Handler, 0, len(c.subs[f.Channel]))
			for _, h := range c.subs[f.Channel] {
				handlers = append(handlers, h)
			}
			c.mu.Unlock()
			for _, h := range handlers {
				h(f.Payload)
			}
		}
	}
}

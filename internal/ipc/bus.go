package ipc

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytmd/internal/shared"
)

// Frame is the wire format shared by the in-process bus and the websocket
// bridge. A frame with ID set is an invoke request expecting a reply; a frame
// with ReplyTo set answers such a request; everything else is fire-and-forget.
type Frame struct {
	Channel string          `json:"channel"`
	ID      string          `json:"id,omitempty"`
	ReplyTo string          `json:"replyTo,omitempty"`
	Error   string          `json:"error,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Handler receives the raw payload of a channel message.
type Handler func(payload json.RawMessage)

// InvokeHandler answers an invoke request on a channel. The returned value is
// marshalled into the reply frame.
type InvokeHandler func(ctx context.Context, payload json.RawMessage) (any, error)

// Sender is the messaging handle given to plugins. The renderer-side client
// and the host bus both implement it.
type Sender interface {
	Send(channel string, payload any)
	On(channel string, h Handler) (off func())
	Invoke(ctx context.Context, channel string, payload any) (json.RawMessage, error)
	HandleInvoke(channel string, h InvokeHandler)
}

// Bus is the host-side message hub. Local subscribers and bridged peers see
// the same channel namespace. Handlers on one channel run in subscription
// order; messages are applied in delivery order.
type Bus struct {
	mu       sync.Mutex
	subs     map[string]map[int]Handler
	nextSub  int
	invokers map[string]InvokeHandler
	peers    map[*peer]struct{}
	pending  map[string]chan Frame
	closed   bool
	done     chan struct{}
	logger   *log.Logger
}

var _ Sender = (*Bus)(nil)

// NewBus creates an empty Bus.
func NewBus(logger *log.Logger) *Bus {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Bus{
		subs:     make(map[string]map[int]Handler),
		invokers: make(map[string]InvokeHandler),
		peers:    make(map[*peer]struct{}),
		pending:  make(map[string]chan Frame),
		done:     make(chan struct{}),
		logger:   logger,
	}
}

// Send publishes a message to local subscribers and every bridged peer.
// Marshal failures and writes to gone peers are logged and discarded.
func (b *Bus) Send(channel string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		b.logger.Error("failed to marshal payload", "channel", channel, "err", err)
		return
	}

	b.dispatch(Frame{Channel: channel, Payload: data}, nil)
}

// On subscribes a handler to a channel and returns its unsubscribe func.
// Unsubscribing twice is harmless.
func (b *Bus) On(channel string, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs[channel] == nil {
		b.subs[channel] = make(map[int]Handler)
	}
	id := b.nextSub
	b.nextSub++
	b.subs[channel][id] = h

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[channel], id)
	}
}

// HandleInvoke registers the handler answering invoke requests on a channel.
// At most one handler per channel; the last registration wins.
func (b *Bus) HandleInvoke(channel string, h InvokeHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.invokers[channel] = h
}

// Invoke sends a request on a channel and waits for its reply. A local
// handler is preferred; otherwise the request is broadcast to bridged peers
// and the first reply wins. Cancellation is the caller's context.
func (b *Bus) Invoke(ctx context.Context, channel string, payload any) (json.RawMessage, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	b.mu.Lock()
	handler, ok := b.invokers[channel]
	hasPeers := len(b.peers) > 0
	b.mu.Unlock()

	if ok {
		result, err := handler(ctx, data)
		if err != nil {
			return nil, err
		}
		return json.Marshal(result)
	}

	if !hasPeers {
		return nil, fmt.Errorf("%w: %s", shared.ErrNoInvokeHandler, channel)
	}

	id := shared.GenerateID()
	replyCh := make(chan Frame, 1)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, shared.ErrChannelClosed
	}
	b.pending[id] = replyCh
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.pending, id)
		b.mu.Unlock()
	}()

	b.dispatch(Frame{Channel: channel, ID: id, Payload: data}, nil)

	select {
	case reply := <-replyCh:
		if reply.Error != "" {
			return nil, fmt.Errorf("invoke %s: %s", channel, reply.Error)
		}
		return reply.Payload, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %s", shared.ErrInvokeTimeout, channel)
	case <-b.done:
		return nil, shared.ErrChannelClosed
	}
}

// Close detaches all peers, subscribers, and pending invokes.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	peers := make([]*peer, 0, len(b.peers))
	for p := range b.peers {
		peers = append(peers, p)
	}
	b.peers = make(map[*peer]struct{})
	b.subs = make(map[string]map[int]Handler)
	b.invokers = make(map[string]InvokeHandler)
	b.pending = make(map[string]chan Frame)
	// Waiting invokes see the done channel and fail with ErrChannelClosed
	// instead of reading a zero frame from a closed reply channel.
	close(b.done)
	b.mu.Unlock()

	for _, p := range peers {
		p.close()
	}
}

// SubscriberCount reports the live subscriptions on a channel. Used by tests
// asserting that destroy leaves no listeners behind.
func (b *Bus) SubscriberCount(channel string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[channel])
}

// dispatch delivers a frame to local subscribers and forwards it to every
// peer except the one it arrived from.
func (b *Bus) dispatch(f Frame, from *peer) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	handlers := make([]Handler, 0, len(b.subs[f.Channel]))
	ids := make([]int, 0, len(b.subs[f.Channel]))
	for id := range b.subs[f.Channel] {
		ids = append(ids, id)
	}
	// Map iteration order is random; subscription ids restore it.
	sort.Ints(ids)
	for _, id := range ids {
		handlers = append(handlers, b.subs[f.Channel][id])
	}
	peers := make([]*peer, 0, len(b.peers))
	for p := range b.peers {
		if p != from {
			peers = append(peers, p)
		}
	}
	b.mu.Unlock()

	for _, h := range handlers {
		h(f.Payload)
	}
	for _, p := range peers {
		if err := p.write(f); err != nil {
			b.logger.Debug("dropping write to gone peer", "channel", f.Channel, "err", err)
		}
	}
}

// handleFrame routes one frame arriving from a bridged peer.
func (b *Bus) handleFrame(f Frame, from *peer) {
	switch {
	case f.ReplyTo != "":
		b.mu.Lock()
		ch, ok := b.pending[f.ReplyTo]
		if ok {
			delete(b.pending, f.ReplyTo)
		}
		b.mu.Unlock()
		if ok {
			ch <- f
		}

	case f.ID != "":
		b.mu.Lock()
		handler, ok := b.invokers[f.Channel]
		b.mu.Unlock()

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
		if err := from.write(reply); err != nil {
			b.logger.Debug("dropping reply to gone peer", "channel", f.Channel, "err", err)
		}

	default:
		b.dispatch(f, from)
	}
}

func (b *Bus) addPeer(p *peer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.peers[p] = struct{}{}
}

func (b *Bus) removePeer(p *peer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.peers, p)
}

package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/ytmd/internal/shared"
)

// startBridge runs a bridge on an httptest server and dials one client.
func startBridge(t *testing.T) (*Bus, *Client) {
	t.Helper()

	bus := NewBus(shared.NewLogger(nil))
	bs := NewBridgeServer(bus, "127.0.0.1:0", shared.NewLogger(nil))

	srv := httptest.NewServer(bs.Handler())
	t.Cleanup(srv.Close)
	t.Cleanup(bus.Close)

	addr := strings.TrimPrefix(srv.URL, "http://")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client, err := Dial(ctx, addr)
	if err != nil {
		t.Fatalf("failed to dial bridge: %v", err)
	}
	t.Cleanup(client.Close)

	return bus, client
}

func TestBridge(t *testing.T) {
	t.Run("HostToRenderer", func(t *testing.T) {
		bus, client := startBridge(t)

		var mu sync.Mutex
		var got []ShuffleChanged
		client.On(ChanShuffleChanged, func(payload json.RawMessage) {
			var sc ShuffleChanged
			_ = json.Unmarshal(payload, &sc)
			mu.Lock()
			got = append(got, sc)
			mu.Unlock()
		})

		bus.Send(ChanShuffleChanged, ShuffleChanged{IsShuffled: true})

		waitFor(t, time.Second, func() bool {
			mu.Lock()
			defer mu.Unlock()
			return len(got) == 1
		})

		mu.Lock()
		defer mu.Unlock()
		if !got[0].IsShuffled {
			t.Error("expected shuffled payload")
		}
	})

	t.Run("RendererToHost", func(t *testing.T) {
		bus, client := startBridge(t)

		var mu sync.Mutex
		var got []LikeStatus
		bus.On(ChanLikeStatusChanged, func(payload json.RawMessage) {
			var ls LikeStatus
			_ = json.Unmarshal(payload, &ls)
			mu.Lock()
			got = append(got, ls)
			mu.Unlock()
		})

		client.Send(ChanLikeStatusChanged, LikeStatus{VideoID: "v1", IsLiked: true})

		waitFor(t, time.Second, func() bool {
			mu.Lock()
			defer mu.Unlock()
			return len(got) == 1
		})

		mu.Lock()
		defer mu.Unlock()
		if got[0].VideoID != "v1" {
			t.Errorf("unexpected payload: %+v", got[0])
		}
	})

	t.Run("InvokeAcrossBridge", func(t *testing.T) {
		bus, client := startBridge(t)

		// The renderer answers like-status queries from the host.
		client.HandleInvoke(ChanGetLikeStatus, func(ctx context.Context, payload json.RawMessage) (any, error) {
			return LikeStatus{VideoID: "v2", IsLiked: false}, nil
		})

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		reply, err := bus.Invoke(ctx, ChanGetLikeStatus, nil)
		if err != nil {
			t.Fatalf("invoke across bridge failed: %v", err)
		}

		var status LikeStatus
		if err := json.Unmarshal(reply, &status); err != nil {
			t.Fatalf("failed to unmarshal reply: %v", err)
		}
		if status.VideoID != "v2" || status.IsLiked {
			t.Errorf("unexpected reply: %+v", status)
		}
	})

	t.Run("CloseFailsPendingInvoke", func(t *testing.T) {
		bus, client := startBridge(t)

		// The renderer never answers until the test is over, keeping the
		// invoke pending across the bus shutdown.
		release := make(chan struct{})
		defer close(release)
		client.HandleInvoke(ChanGetLikeStatus, func(ctx context.Context, payload json.RawMessage) (any, error) {
			<-release
			return nil, nil
		})

		errCh := make(chan error, 1)
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_, err := bus.Invoke(ctx, ChanGetLikeStatus, nil)
			errCh <- err
		}()

		time.Sleep(50 * time.Millisecond)
		bus.Close()

		select {
		case err := <-errCh:
			if !errors.Is(err, shared.ErrChannelClosed) {
				t.Fatalf("err = %v, want ErrChannelClosed", err)
			}
		case <-time.After(time.Second):
			t.Fatal("invoke did not return after bus close")
		}
	})

	t.Run("InvokeTimeout", func(t *testing.T) {
		bus, _ := startBridge(t)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		// No handler registered on either side: the invoke frame goes out and
		// the renderer replies with an error, or the context expires first.
		// Either way the call must return an error, not hang.
		if _, err := bus.Invoke(ctx, "ytmd:unhandled", nil); err == nil {
			t.Error("expected error for unhandled invoke")
		}
	})
}

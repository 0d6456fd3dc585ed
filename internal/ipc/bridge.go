package ipc

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

// BridgePath is the websocket endpoint the renderer connects to.
const BridgePath = "/bridge"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4 * 1024,
	WriteBufferSize: 4 * 1024,
	// Connections only come from the local renderer process.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// peer is one bridged websocket connection. Writes are serialized; reads run
// on a dedicated goroutine owned by the bridge server.
type peer struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	once    sync.Once
}

func (p *peer) write(f Frame) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return p.conn.WriteJSON(f)
}

func (p *peer) close() {
	p.once.Do(func() { _ = p.conn.Close() })
}

// BridgeServer exposes a Bus to other processes over a local websocket
// listener.
type BridgeServer struct {
	bus    *Bus
	server *http.Server
	logger *log.Logger
	wg     sync.WaitGroup
}

// NewBridgeServer creates a bridge bound to addr, serving BridgePath.
func NewBridgeServer(bus *Bus, addr string, logger *log.Logger) *BridgeServer {
	bs := &BridgeServer{bus: bus, logger: logger.With("component", "bridge")}

	mux := http.NewServeMux()
	mux.HandleFunc(BridgePath, bs.handleBridge)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	bs.server = &http.Server{Addr: addr, Handler: logRequests(bs.logger, mux)}
	return bs
}

// Handler exposes the bridge's HTTP handler for embedding in another server.
func (bs *BridgeServer) Handler() http.Handler {
	return bs.server.Handler
}

// Serve listens and blocks until the server is shut down.
func (bs *BridgeServer) Serve() error {
	listener, err := net.Listen("tcp", bs.server.Addr)
	if err != nil {
		return err
	}
	bs.logger.Info("bridge listening", "addr", bs.server.Addr)
	err = bs.server.Serve(listener)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Close shuts the listener down and waits for connection goroutines.
func (bs *BridgeServer) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = bs.server.Shutdown(ctx)
	bs.wg.Wait()
}

func (bs *BridgeServer) handleBridge(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		bs.logger.Error("websocket upgrade failed", "err", err)
		return
	}

	p := &peer{conn: conn}
	bs.bus.addPeer(p)
	bs.logger.Info("renderer connected", "remote", r.RemoteAddr)

	bs.wg.Add(1)
	go func() {
		defer bs.wg.Done()
		defer bs.bus.removePeer(p)
		defer p.close()

		for {
			var f Frame
			if err := conn.ReadJSON(&f); err != nil {
				bs.logger.Info("renderer disconnected", "remote", r.RemoteAddr)
				return
			}
			bs.bus.handleFrame(f, p)
		}
	}()
}

// logRequests wraps a handler with request logging middleware.
func logRequests(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug("request", "method", r.Method, "path", r.URL.Path, "took", time.Since(start))
	})
}

package bridge

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
)

const maxMessageSize = 1 << 20

// SocketBridge carries channel messages over a Unix socket. Each line a
// client writes is one JSON value and is handed to the sink in order.
// A web-extension shim in the content process and `web-greeter send` both
// write here.
type SocketBridge struct {
	path     string
	sink     Sink
	logger   *log.Logger
	listener net.Listener
	running  atomic.Bool
	conns    sync.WaitGroup
}

// NewSocketBridge creates a bridge listening on path.
func NewSocketBridge(path string, sink Sink, logger *log.Logger) *SocketBridge {
	return &SocketBridge{
		path:   path,
		sink:   sink,
		logger: logger.With("component", "socket-bridge"),
	}
}

// Start begins accepting connections.
func (b *SocketBridge) Start(ctx context.Context) error {
	return b.start(ctx, nil)
}

// StartWithNotify starts the bridge and closes ready once it is listening.
func (b *SocketBridge) StartWithNotify(ctx context.Context, ready chan<- struct{}) error {
	return b.start(ctx, ready)
}

func (b *SocketBridge) start(ctx context.Context, ready chan<- struct{}) error {
	if err := os.MkdirAll(filepath.Dir(b.path), 0o700); err != nil {
		return fmt.Errorf("create socket dir: %w", err)
	}
	// Remove stale socket file if it exists.
	_ = os.Remove(b.path)

	ln, err := net.Listen("unix", b.path)
	if err != nil {
		return fmt.Errorf("bridge listen on %s: %w", b.path, err)
	}
	if err := os.Chmod(b.path, 0o600); err != nil {
		_ = ln.Close()
		return fmt.Errorf("chmod %s: %w", b.path, err)
	}
	b.listener = ln
	b.running.Store(true)

	if ready != nil {
		close(ready)
	}

	go b.acceptLoop(ctx)

	<-ctx.Done()
	b.Stop()
	b.conns.Wait()
	return nil
}

func (b *SocketBridge) acceptLoop(ctx context.Context) {
	for {
		conn, err := b.listener.Accept()
		if err != nil {
			return
		}
		b.conns.Add(1)
		go func() {
			defer b.conns.Done()
			b.handleConn(ctx, conn)
		}()
	}
}

func (b *SocketBridge) handleConn(ctx context.Context, conn net.Conn) {
	defer func() { _ = conn.Close() }()
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), maxMessageSize)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		msg := append([]byte(nil), line...)
		if err := b.sink(ctx, msg); err != nil {
			if !errors.Is(err, context.Canceled) {
				b.logger.Warn("drop message", "err", err)
			}
			return
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		b.logger.Warn("read bridge connection", "err", err)
	}
}

// Stop tears down the bridge listener and removes the socket file.
func (b *SocketBridge) Stop() {
	if !b.running.Swap(false) {
		return
	}
	if b.listener != nil {
		_ = b.listener.Close()
	}
	_ = os.Remove(b.path)
}

// Status returns the bridge status.
func (b *SocketBridge) Status() string {
	if b.running.Load() {
		return fmt.Sprintf("socket bridge running (%s)", b.path)
	}
	return "socket bridge stopped"
}

// Send writes messages to the bridge socket at path, one JSON value per
// line.
func Send(path string, msgs ...[]byte) error {
	conn, err := net.Dial("unix", path)
	if err != nil {
		return fmt.Errorf("connect to bridge at %s: %w", path, err)
	}
	defer func() { _ = conn.Close() }()
	w := bufio.NewWriter(conn)
	for _, m := range msgs {
		if bytes.ContainsAny(m, "\r\n") {
			return fmt.Errorf("message %q contains a line break", m)
		}
		_, _ = w.Write(m)
		_ = w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("send to bridge: %w", err)
	}
	return nil
}

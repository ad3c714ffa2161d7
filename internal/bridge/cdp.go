package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

const (
	cdpWriteTimeout = 5 * time.Second
	// bindingName is the page-global function the DevTools binding installs.
	bindingName = "__greeterBridge"
)

// bootstrapScript gives themes the message-handler API they expect from a
// WebKit host and routes it through the DevTools binding. Values are sent
// JSON-encoded so the host can tell strings from everything else.
const bootstrapScript = `(() => {
  const send = window.` + bindingName + `;
  if (typeof send !== "function") return;
  window.webkit = window.webkit || {};
  window.webkit.messageHandlers = window.webkit.messageHandlers || {};
  window.webkit.messageHandlers.` + ChannelName + ` = {
    postMessage: (v) => send(JSON.stringify(v === undefined ? null : v)),
  };
})();`

// ErrNotConnected is returned by LoadURI before the DevTools session is up.
var ErrNotConnected = errors.New("devtools session not connected")

// CDPOption configures a CDP client.
type CDPOption func(*CDP)

// WithHTTPClient sets the client used for target discovery.
func WithHTTPClient(c *http.Client) CDPOption {
	return func(b *CDP) { b.httpClient = c }
}

// WithDialer sets the websocket dialer.
func WithDialer(d *websocket.Dialer) CDPOption {
	return func(b *CDP) { b.dialer = d }
}

// CDP drives the rendering engine over the Chrome DevTools Protocol. It is
// both a channel transport (binding calls from the page go to the sink)
// and the visible surface (LoadURI navigates the page).
type CDP struct {
	endpoint   string
	sink       Sink
	logger     *log.Logger
	httpClient *http.Client
	dialer     *websocket.Dialer

	writeMu sync.Mutex
	conn    *websocket.Conn
	nextID  atomic.Int64
	pending sync.Map // id -> method, for error reporting
	running atomic.Bool
	ready   chan struct{}
	target  string
}

// NewCDP creates a client for the DevTools HTTP endpoint, e.g.
// "http://127.0.0.1:9222".
func NewCDP(endpoint string, sink Sink, logger *log.Logger, opts ...CDPOption) *CDP {
	c := &CDP{
		endpoint:   strings.TrimSuffix(endpoint, "/"),
		sink:       sink,
		logger:     logger.With("component", "cdp"),
		httpClient: &http.Client{Timeout: 5 * time.Second},
		dialer:     websocket.DefaultDialer,
		ready:      make(chan struct{}),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Ready is closed once the session is set up and LoadURI can be used.
func (c *CDP) Ready() <-chan struct{} {
	return c.ready
}

// Start connects to the first page target, installs the binding and reads
// events until ctx is cancelled or the engine closes the connection.
func (c *CDP) Start(ctx context.Context) error {
	wsURL, err := c.discover(ctx)
	if err != nil {
		return err
	}
	conn, _, err := c.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial devtools %s: %w", wsURL, err)
	}
	c.conn = conn
	c.target = wsURL
	c.running.Store(true)

	setup := []struct {
		method string
		params any
	}{
		{"Runtime.enable", nil},
		{"Page.enable", nil},
		{"Runtime.addBinding", map[string]string{"name": bindingName}},
		{"Page.addScriptToEvaluateOnNewDocument", map[string]string{"source": bootstrapScript}},
	}
	for _, s := range setup {
		if err := c.send(s.method, s.params); err != nil {
			c.Stop()
			return err
		}
	}
	close(c.ready)

	readErr := make(chan error, 1)
	go func() { readErr <- c.readLoop(ctx) }()

	select {
	case <-ctx.Done():
		c.Stop()
		<-readErr
		return nil
	case err := <-readErr:
		c.Stop()
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("devtools connection lost: %w", err)
	}
}

type cdpTarget struct {
	Type                 string `json:"type"`
	URL                  string `json:"url"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

func (c *CDP) discover(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/json/list", nil)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("list devtools targets: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("list devtools targets: %s", resp.Status)
	}
	var targets []cdpTarget
	if err := json.NewDecoder(resp.Body).Decode(&targets); err != nil {
		return "", fmt.Errorf("decode devtools targets: %w", err)
	}
	for _, t := range targets {
		if t.Type == "page" && t.WebSocketDebuggerURL != "" {
			return t.WebSocketDebuggerURL, nil
		}
	}
	return "", fmt.Errorf("no page target at %s", c.endpoint)
}

type cdpRequest struct {
	ID     int64  `json:"id"`
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
}

type cdpMessage struct {
	ID     int64           `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type bindingCalled struct {
	Name    string `json:"name"`
	Payload string `json:"payload"`
}

// send writes a command without waiting for its reply. Failed replies are
// logged by the read loop.
func (c *CDP) send(method string, params any) error {
	if !c.running.Load() {
		return ErrNotConnected
	}
	id := c.nextID.Add(1)
	c.pending.Store(id, method)

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(cdpWriteTimeout))
	if err := c.conn.WriteJSON(cdpRequest{ID: id, Method: method, Params: params}); err != nil {
		c.pending.Delete(id)
		return fmt.Errorf("devtools %s: %w", method, err)
	}
	return nil
}

func (c *CDP) readLoop(ctx context.Context) error {
	for {
		var msg cdpMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return err
		}
		if msg.ID != 0 {
			method, _ := c.pending.LoadAndDelete(msg.ID)
			if msg.Error != nil {
				c.logger.Error("devtools command failed", "method", method, "code", msg.Error.Code, "err", msg.Error.Message)
			}
			continue
		}
		if msg.Method != "Runtime.bindingCalled" {
			continue
		}
		var call bindingCalled
		if err := json.Unmarshal(msg.Params, &call); err != nil {
			c.logger.Warn("bad bindingCalled event", "err", err)
			continue
		}
		if call.Name != bindingName {
			continue
		}
		if err := c.sink(ctx, []byte(call.Payload)); err != nil {
			return err
		}
	}
}

// LoadURI navigates the page.
func (c *CDP) LoadURI(uri string) error {
	return c.send("Page.navigate", map[string]string{"url": uri})
}

// Stop closes the DevTools connection.
func (c *CDP) Stop() {
	if !c.running.Swap(false) {
		return
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	_ = c.conn.Close()
}

// Status returns the bridge status.
func (c *CDP) Status() string {
	if c.running.Load() {
		return fmt.Sprintf("devtools bridge running (%s)", c.target)
	}
	return "devtools bridge stopped"
}

package daemon

import (
	"encoding/json"
	"fmt"
	"net"
	"time"
)

// Client communicates with a running greeter over its control socket.
type Client struct {
	SocketPath string
}

// NewClient returns a Client for the control socket at sockPath.
func NewClient(sockPath string) *Client {
	return &Client{SocketPath: sockPath}
}

// call sends a request and returns the response.
func (c *Client) call(req Request) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.SocketPath, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("connect to greeter at %s: %w", c.SocketPath, err)
	}
	defer func() { _ = conn.Close() }()

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if !resp.OK {
		return nil, fmt.Errorf("greeter: %s", resp.Error)
	}
	return &resp, nil
}

// Status queries the greeter for its current state.
func (c *Client) Status() (*DaemonStatus, error) {
	resp, err := c.call(Request{Method: "status"})
	if err != nil {
		return nil, err
	}
	return resp.State, nil
}

// Shutdown asks the greeter to quit.
func (c *Client) Shutdown() error {
	_, err := c.call(Request{Method: "shutdown"})
	return err
}

// IsRunning returns true if the control socket is connectable.
func (c *Client) IsRunning() bool {
	conn, err := net.DialTimeout("unix", c.SocketPath, time.Second)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// WaitForReady polls the control socket until it accepts a status request
// or the timeout expires.
func (c *Client) WaitForReady(timeout time.Duration) error {
	deadline := time.After(timeout)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-deadline:
			return fmt.Errorf("greeter not ready within %s", timeout)
		case <-ticker.C:
			if _, err := c.Status(); err == nil {
				return nil
			}
		}
	}
}

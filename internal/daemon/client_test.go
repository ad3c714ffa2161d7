package daemon

import (
	"encoding/json"
	"net"
	"path/filepath"
	"testing"
	"time"
)

func TestClientNotRunning(t *testing.T) {
	c := NewClient("/tmp/definitely-not-a-socket-web-greeter-test.sock")
	if _, err := c.Status(); err == nil {
		t.Fatal("expected error for non-existent socket")
	}
	if c.IsRunning() {
		t.Error("IsRunning = true for non-existent socket")
	}
}

func TestWaitForReady(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "control.sock")

	// Start server after a delay.
	go func() {
		time.Sleep(100 * time.Millisecond)
		ln, err := net.Listen("unix", sockPath)
		if err != nil {
			return
		}
		defer func() { _ = ln.Close() }()
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()
		var req Request
		_ = json.NewDecoder(conn).Decode(&req)
		_ = json.NewEncoder(conn).Encode(Response{OK: true, State: &DaemonStatus{PID: 42}})
	}()

	if err := NewClient(sockPath).WaitForReady(2 * time.Second); err != nil {
		t.Fatalf("WaitForReady: %v", err)
	}
}

func TestWaitForReadyTimeout(t *testing.T) {
	c := NewClient("/tmp/definitely-not-a-socket-web-greeter-test.sock")
	if err := c.WaitForReady(300 * time.Millisecond); err == nil {
		t.Fatal("expected timeout error")
	}
}

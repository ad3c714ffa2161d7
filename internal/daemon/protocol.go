package daemon

import (
	"time"

	"github.com/hopboxdev/webgreeter/internal/supervisor"
)

// Request is sent from a client (web-greeter status, web-greeter stop) to
// the running greeter over the control socket.
type Request struct {
	Method string `json:"method"` // "status" or "shutdown"
}

// Response is sent from the greeter back to the client.
type Response struct {
	OK    bool          `json:"ok"`
	Error string        `json:"error,omitempty"`
	State *DaemonStatus `json:"state,omitempty"`
}

// DaemonStatus is the live state returned by the "status" method.
type DaemonStatus struct {
	PID        int               `json:"pid"`
	StartedAt  time.Time         `json:"started_at"`
	Supervisor supervisor.Status `json:"supervisor"`
	Bridges    []string          `json:"bridges"`
}

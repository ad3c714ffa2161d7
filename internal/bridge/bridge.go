package bridge

import "context"

// ChannelName is the name the content process posts greeter messages to.
const ChannelName = "GreeterBridge"

// Bridge is the interface implemented by every transport between the
// content process and the host.
type Bridge interface {
	// Start brings up the bridge. Blocks until ctx is cancelled.
	Start(ctx context.Context) error
	// Stop immediately tears down the bridge.
	Stop()
	// Status returns a human-readable status string.
	Status() string
}

// Sink receives one raw channel message, a single JSON value. The
// supervisor's Post method is the production Sink.
type Sink func(ctx context.Context, raw []byte) error

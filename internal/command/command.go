package command

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Wire values recognised on the GreeterBridge channel.
const (
	LockHintMessage      = "LockHint"
	HeartbeatMessage     = "Heartbeat"
	HeartbeatExitMessage = "Heartbeat::Exit"
)

// ErrNotString is returned when a channel message is not a JSON string.
var ErrNotString = errors.New("message is not a string")

// Kind identifies a Command variant.
type Kind int

const (
	Unknown Kind = iota
	LockHint
	HeartbeatPing
	HeartbeatExit
)

func (k Kind) String() string {
	switch k {
	case LockHint:
		return "lock_hint"
	case HeartbeatPing:
		return "heartbeat"
	case HeartbeatExit:
		return "heartbeat_exit"
	default:
		return "unknown"
	}
}

// Command is a classified channel message. Raw is only meaningful for Unknown.
type Command struct {
	Kind Kind
	Raw  string
}

// Parse classifies text by exact match. Unmatched text yields an Unknown
// command carrying the text.
func Parse(text string) Command {
	switch text {
	case LockHintMessage:
		return Command{Kind: LockHint}
	case HeartbeatMessage:
		return Command{Kind: HeartbeatPing}
	case HeartbeatExitMessage:
		return Command{Kind: HeartbeatExit}
	default:
		return Command{Kind: Unknown, Raw: text}
	}
}

// Decode extracts the string carried by a single JSON value.
func Decode(raw []byte) (string, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotString, err)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: got %T", ErrNotString, v)
	}
	return s, nil
}

// FromMessage decodes and classifies a raw message. On a decode error the
// command is Unknown("") and the error is returned for logging only.
func FromMessage(raw []byte) (Command, error) {
	text, err := Decode(raw)
	if err != nil {
		return Command{Kind: Unknown}, err
	}
	return Parse(text), nil
}

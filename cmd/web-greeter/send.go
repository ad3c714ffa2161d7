package main

import (
	"encoding/json"
	"fmt"

	"github.com/hopboxdev/webgreeter/internal/bridge"
)

// SendCmd posts messages to the running greeter as if the theme sent them.
type SendCmd struct {
	Messages []string `arg:"" help:"Messages to post, e.g. Heartbeat, Heartbeat::Exit, LockHint."`
	Raw      bool     `help:"Send arguments as raw JSON values instead of strings."`
}

func (c *SendCmd) Run(globals *CLI) error {
	cfg, err := loadConfig(globals)
	if err != nil {
		return err
	}
	msgs := make([][]byte, 0, len(c.Messages))
	for _, m := range c.Messages {
		if c.Raw {
			msgs = append(msgs, []byte(m))
			continue
		}
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("encode %q: %w", m, err)
		}
		msgs = append(msgs, data)
	}
	return bridge.Send(cfg.BridgeSocket(), msgs...)
}

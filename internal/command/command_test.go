package command_test

import (
	"errors"
	"testing"

	"github.com/hopboxdev/webgreeter/internal/command"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		text string
		want command.Command
	}{
		{"lock hint", "LockHint", command.Command{Kind: command.LockHint}},
		{"heartbeat", "Heartbeat", command.Command{Kind: command.HeartbeatPing}},
		{"heartbeat exit", "Heartbeat::Exit", command.Command{Kind: command.HeartbeatExit}},
		{"case differs", "heartbeat", command.Command{Kind: command.Unknown, Raw: "heartbeat"}},
		{"trailing space", "Heartbeat ", command.Command{Kind: command.Unknown, Raw: "Heartbeat "}},
		{"empty", "", command.Command{Kind: command.Unknown}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := command.Parse(tt.text); got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.text, got, tt.want)
			}
		})
	}
}

func TestFromMessageRejectsNonStrings(t *testing.T) {
	for _, raw := range []string{`42`, `{"cmd":"Heartbeat"}`, `null`, `["Heartbeat"]`, `true`, `Heartbeat`, ``} {
		cmd, err := command.FromMessage([]byte(raw))
		if !errors.Is(err, command.ErrNotString) {
			t.Errorf("FromMessage(%q) err = %v, want ErrNotString", raw, err)
		}
		if cmd.Kind != command.Unknown || cmd.Raw != "" {
			t.Errorf("FromMessage(%q) = %+v, want Unknown(\"\")", raw, cmd)
		}
	}
}

func TestFromMessageDecodesUTF8(t *testing.T) {
	cmd, err := command.FromMessage([]byte(`"Heartbeat::Exit"`))
	if err != nil {
		t.Fatalf("FromMessage: %v", err)
	}
	if cmd.Kind != command.HeartbeatExit {
		t.Errorf("Kind = %v, want heartbeat_exit", cmd.Kind)
	}

	cmd, err = command.FromMessage([]byte(`"héllo"`))
	if err != nil {
		t.Fatalf("FromMessage: %v", err)
	}
	if cmd.Raw != "héllo" {
		t.Errorf("Raw = %q, want %q", cmd.Raw, "héllo")
	}
}

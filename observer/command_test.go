package observer

import (
	"testing"

	"github.com/pthm-cable/hideseek/components"
)

func TestParseCommandValid(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		want Command
	}{
		{
			"reset with level",
			`{"type": "reset", "world": 2, "level": 5}`,
			Command{Type: CommandReset, World: 2, Level: 5, X: 5, Y: 5, R: 5},
		},
		{
			"reset defaults to procedural level",
			`{"type": "reset", "world": 0}`,
			Command{Type: CommandReset, World: 0, X: 5, Y: 5, R: 5},
		},
		{
			"full action",
			`{"type": "action", "world": 1, "slot": 3, "x": 10, "y": 0, "r": 5, "g": 1, "l": 0}`,
			Command{Type: CommandAction, World: 1, Slot: 3, X: 10, Y: 0, R: 5, G: 1, L: 0},
		},
		{
			"omitted movement holds still",
			`{"type": "action", "world": 0, "slot": 0, "l": 1}`,
			Command{Type: CommandAction, World: 0, Slot: 0, X: 5, Y: 5, R: 5, L: 1},
		},
	}

	for _, tt := range tests {
		got, err := ParseCommand([]byte(tt.msg))
		if err != nil {
			t.Errorf("%s: %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%s: got %+v, want %+v", tt.name, got, tt.want)
		}
	}
}

func TestParseCommandInvalid(t *testing.T) {
	tests := []struct {
		name string
		msg  string
	}{
		{"not json", `{"type": "reset"`},
		{"unknown type", `{"type": "pause", "world": 0}`},
		{"missing world", `{"type": "reset"}`},
		{"negative world", `{"type": "reset", "world": -1}`},
		{"level too high", `{"type": "reset", "world": 0, "level": 9}`},
		{"slot past capacity table", `{"type": "action", "world": 0, "slot": 16}`},
		{"bucket out of range", `{"type": "action", "world": 0, "x": 11}`},
		{"toggle out of range", `{"type": "action", "world": 0, "g": 2}`},
		{"extra field", `{"type": "reset", "world": 0, "speed": 3}`},
		{"fractional bucket", `{"type": "action", "world": 0, "x": 2.5}`},
	}

	for _, tt := range tests {
		if _, err := ParseCommand([]byte(tt.msg)); err == nil {
			t.Errorf("%s: accepted %s", tt.name, tt.msg)
		}
	}
}

func TestComponentsAction(t *testing.T) {
	cmd := Command{Type: CommandAction, World: 0, Slot: 1, X: 7, Y: 3, R: 9, G: 1, L: 1}
	got := componentsAction(cmd)
	want := components.Action{X: 7, Y: 3, R: 9, G: 1, L: 1}
	if got != want {
		t.Errorf("componentsAction = %+v, want %+v", got, want)
	}
}

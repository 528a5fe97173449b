package observer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/pthm-cable/hideseek/components"
)

// commandSchema constrains inbound control messages: known type,
// non-negative world index, slot within world capacity, movement
// buckets within the discrete range, binary toggles. The active
// agent count varies per episode, so apply still checks the slot
// against the configured capacity.
const commandSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["type", "world"],
  "properties": {
    "type": {"enum": ["reset", "action"]},
    "world": {"type": "integer", "minimum": 0},
    "level": {"type": "integer", "minimum": 0, "maximum": 8},
    "slot": {"type": "integer", "minimum": 0, "maximum": 15},
    "x": {"type": "integer", "minimum": 0, "maximum": 10},
    "y": {"type": "integer", "minimum": 0, "maximum": 10},
    "r": {"type": "integer", "minimum": 0, "maximum": 10},
    "g": {"type": "integer", "minimum": 0, "maximum": 1},
    "l": {"type": "integer", "minimum": 0, "maximum": 1}
  },
  "additionalProperties": false
}`

var compiledCommandSchema = jsonschema.MustCompileString("command.json", commandSchema)

// ParseCommand validates and decodes a raw control message.
func ParseCommand(msg []byte) (Command, error) {
	var raw any
	if err := json.Unmarshal(msg, &raw); err != nil {
		return Command{}, fmt.Errorf("parsing command: %w", err)
	}
	if err := compiledCommandSchema.Validate(raw); err != nil {
		// The validator's multi-line output collapses to one line for
		// the log.
		return Command{}, fmt.Errorf("invalid command: %s",
			strings.ReplaceAll(err.Error(), "\n", " "))
	}

	// Omitted movement fields mean "hold still", not bucket zero
	// (which is full reverse).
	cmd := Command{
		X: components.NeutralAction.X,
		Y: components.NeutralAction.Y,
		R: components.NeutralAction.R,
	}
	if err := json.Unmarshal(msg, &cmd); err != nil {
		return Command{}, fmt.Errorf("decoding command: %w", err)
	}
	return cmd, nil
}

// componentsAction converts a validated action command into the
// simulation's action record.
func componentsAction(cmd Command) components.Action {
	return components.Action{X: cmd.X, Y: cmd.Y, R: cmd.R, G: cmd.G, L: cmd.L}
}

package protocol

import (
	"encoding/json"
	"fmt"
	"os"
)

// Param declares a single command parameter and its primitive type.
// Supported types: "string", "array", "integer", "null".
type Param struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// Command declares an inbound command and its required parameters.
type Command struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Params []Param `json:"params"`
}

// Notification declares an outbound event kind.
type Notification struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Schema is the declarative command/notification protocol, loaded once at
// process start and passed explicitly to whoever needs it.
type Schema struct {
	Commands      []Command      `json:"commands"`
	Notifications []Notification `json:"notifications"`
}

// LoadSchema reads and parses the protocol schema from a JSON file.
func LoadSchema(path string) (*Schema, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read protocol schema: %w", err)
	}

	var schema Schema
	if err := json.Unmarshal(file, &schema); err != nil {
		return nil, fmt.Errorf("failed to parse protocol schema: %w", err)
	}

	if len(schema.Commands) == 0 {
		return nil, fmt.Errorf("protocol schema declares no commands")
	}

	return &schema, nil
}

// Command returns the command declaration for the given id.
func (s *Schema) Command(id string) (Command, bool) {
	for _, cmd := range s.Commands {
		if cmd.ID == id {
			return cmd, true
		}
	}
	return Command{}, false
}

// Notification returns the notification declaration for the given id.
func (s *Schema) Notification(id string) (Notification, bool) {
	for _, ntf := range s.Notifications {
		if ntf.ID == id {
			return ntf, true
		}
	}
	return Notification{}, false
}

package message

import "encoding/json"

// Outbound discriminators.
const (
	TypePing    = "ping"
	TypeAuth    = "auth"
	TypeGet     = "get"
	TypeRequest = TypeTimelapseClips
)

// Ping is the heartbeat.
type Ping struct{}

func (Ping) MessageType() string { return TypePing }

// Session announces the stored session token after connecting.
type Session struct {
	Session string `json:"session"`
}

func (Session) MessageType() string { return TypeAuth }

// Get requests a named status bucket such as "camera" or "settings".
type Get struct {
	Key string `json:"key"`
}

func (Get) MessageType() string { return TypeGet }

// RequestClips asks the device for its clip list.
type RequestClips struct{}

func (RequestClips) MessageType() string { return TypeRequest }

// Command is an application command with free-form fields.
type Command struct {
	Type   string
	Fields map[string]any
}

func (c Command) MessageType() string { return c.Type }

func (c Command) MarshalJSON() ([]byte, error) {
	if c.Fields == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(c.Fields)
}

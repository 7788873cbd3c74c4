package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/livetree-go/livetree/pkg/vdom"
)

// EventMessage is the client→server message: a handler invocation with
// scalar parameters. CacheKey is set when the dispatch went through a
// cache miss, so the client can associate the response with its cache slot.
type EventMessage struct {
	Event    string         `json:"event"`
	Params   map[string]any `json:"params,omitempty"`
	CacheKey string         `json:"cache_key,omitempty"`
}

// UpdateMessage is the server→client success response: the ordered patch
// list and any handler metadata entries not yet transmitted on this
// connection. Handlers is delta-only and usually empty after the first
// few responses.
type UpdateMessage struct {
	Patches  []vdom.Patch          `json:"patches"`
	Handlers map[string][]Modifier `json:"handlers,omitempty"`
	CacheKey string                `json:"cache_key,omitempty"`
}

// ErrorDetail identifies which handler failed and why.
type ErrorDetail struct {
	Handler string `json:"handler"`
	Message string `json:"message"`
}

// ErrorMessage is the server→client error response. It never advances the
// tree; on the client it triggers the optimistic revert for the handler.
type ErrorMessage struct {
	Error ErrorDetail `json:"error"`
}

// BootMessage is the one-time payload sent when a connection is
// established: the initial tree and the full serialized registry.
type BootMessage struct {
	Tree     *vdom.VNode           `json:"tree"`
	Handlers map[string][]Modifier `json:"handlers"`
}

// ServerMessage is the decoded form of any server→client message. Exactly
// one field is non-nil.
type ServerMessage struct {
	Boot   *BootMessage
	Update *UpdateMessage
	Err    *ErrorMessage
}

// DecodeServerMessage decodes a server→client JSON message, discriminating
// on the presence of the "error" and "tree" fields.
func DecodeServerMessage(data []byte) (ServerMessage, error) {
	var probe struct {
		Tree  json.RawMessage `json:"tree"`
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return ServerMessage{}, fmt.Errorf("protocol: invalid server message: %w", err)
	}

	switch {
	case len(probe.Error) > 0 && string(probe.Error) != "null":
		var msg ErrorMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return ServerMessage{}, err
		}
		return ServerMessage{Err: &msg}, nil
	case len(probe.Tree) > 0 && string(probe.Tree) != "null":
		var msg BootMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return ServerMessage{}, err
		}
		return ServerMessage{Boot: &msg}, nil
	default:
		var msg UpdateMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return ServerMessage{}, err
		}
		return ServerMessage{Update: &msg}, nil
	}
}

// DecodeEventMessage decodes a client→server event message.
func DecodeEventMessage(data []byte) (*EventMessage, error) {
	var msg EventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("protocol: invalid event message: %w", err)
	}
	if msg.Event == "" {
		return nil, fmt.Errorf("protocol: event message missing event name")
	}
	return &msg, nil
}

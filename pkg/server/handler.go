package server

import (
	"context"
	"fmt"

	"github.com/livetree-go/livetree/pkg/vdom"
)

// HandlerFunc processes one client event. Params are the scalar event
// parameters from the wire. Returning an error produces a structured error
// response for the client and leaves the session tree unadvanced.
type HandlerFunc func(ctx context.Context, params map[string]any) error

// HandlerMap is the dispatch table from event names to handlers.
type HandlerMap map[string]HandlerFunc

// Application supplies the per-connection view and handler logic. The
// server constructs one Application per connection, so implementations
// hold connection-local state without locking.
type Application interface {
	// Render produces the current UI tree. It must be a pure function of
	// the application's state: the session diffs successive results.
	Render(ctx context.Context) *vdom.VNode

	// Handlers returns the event dispatch table. It is called once at
	// mount time.
	Handlers() HandlerMap
}

// ValidationError is a handler rejection with a user-presentable message.
// The session turns it into an error response verbatim; any other handler
// error is reported with a generic message and logged server-side.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validationf builds a ValidationError.
func Validationf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// StringParam extracts a string parameter, tolerating absent values.
func StringParam(params map[string]any, key string) string {
	v, _ := params[key].(string)
	return v
}

// IntParam extracts an integer parameter. JSON numbers arrive as float64.
func IntParam(params map[string]any, key string) int {
	switch v := params[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

// BoolParam extracts a boolean parameter.
func BoolParam(params map[string]any, key string) bool {
	v, _ := params[key].(bool)
	return v
}

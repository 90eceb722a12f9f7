package bridge

import (
	"encoding/json"
	"sync/atomic"

	"github.com/sourcegraph/go-lsp"
	"github.com/sourcegraph/jsonrpc2"
)

// msgInfo is the subset of a JSON-RPC message the bridge routes on. The id is
// a pointer so that notifications (no id at all) can be told apart from
// requests.
type msgInfo struct {
	Method string       `json:"method"`
	ID     *jsonrpc2.ID `json:"id"`
}

// inspect pulls the method and id out of a message body. Bodies that are not
// JSON objects yield the zero value and are forwarded untouched.
func inspect(body []byte) msgInfo {
	var info msgInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return msgInfo{}
	}
	return info
}

// ensureVersion adds the "jsonrpc":"2.0" field to messages that lack it.
// sclang omits the field on some messages, which strict editors reject.
// Field values are kept as raw JSON so numbers are never reformatted.
func ensureVersion(body []byte) []byte {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil || obj == nil {
		return body
	}
	if _, ok := obj["jsonrpc"]; ok {
		return body
	}
	obj["jsonrpc"] = json.RawMessage(`"2.0"`)
	patched, err := json.Marshal(obj)
	if err != nil {
		return body
	}
	return patched
}

var lastRequestID atomic.Uint64

// nextRequestID allocates an id for a bridge-originated request.
func nextRequestID() jsonrpc2.ID {
	return jsonrpc2.ID{Num: initialRequestID + lastRequestID.Add(1) - 1}
}

// NewRequest builds a request body with a bridge-allocated id.
func NewRequest(method string, params any) ([]byte, jsonrpc2.ID, error) {
	req := jsonrpc2.Request{ID: nextRequestID(), Method: method}
	if params != nil {
		if err := req.SetParams(params); err != nil {
			return nil, jsonrpc2.ID{}, err
		}
	}
	body, err := json.Marshal(&req)
	return body, req.ID, err
}

// NewNotification builds a notification body.
func NewNotification(method string, params any) ([]byte, error) {
	req := jsonrpc2.Request{Method: method, Notif: true}
	if params != nil {
		if err := req.SetParams(params); err != nil {
			return nil, err
		}
	}
	return json.Marshal(&req)
}

// NewExecuteCommandRequest builds a workspace/executeCommand request,
// returning the allocated id alongside the body so callers can report it.
func NewExecuteCommandRequest(command string, args ...any) ([]byte, jsonrpc2.ID, error) {
	return NewRequest("workspace/executeCommand",
		lsp.ExecuteCommandParams{Command: command, Arguments: args})
}

package bridge

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"os"
	"time"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/flowerornament/zed-supercollider/pkg/lspframe"
)

// runEditorReader consumes framed messages from the editor. The blocking read
// runs in an inner goroutine so the loop can notice the shutdown flag even
// when the editor goes quiet.
func (b *Bridge) runEditorReader() {
	defer close(b.stdinDone)

	msgs := make(chan []byte)
	errs := make(chan error, 1)
	go func() {
		r := bufio.NewReader(b.in)
		for {
			msg, err := lspframe.ReadMessage(r)
			if err != nil {
				errs <- err
				return
			}
			msgs <- msg
		}
	}()

	for {
		select {
		case msg := <-msgs:
			b.handleEditorMessage(lspframe.Body(msg))
		case err := <-errs:
			if err != io.EOF {
				logger.Println("reading from editor:", err)
			}
			return
		case <-time.After(senderPollInterval):
			if b.shutdown.Load() {
				return
			}
		}
	}
}

func (b *Bridge) handleEditorMessage(body []byte) {
	info := inspect(body)
	switch info.Method {
	case "initialize":
		if info.ID != nil {
			b.mu.Lock()
			b.cachedInit = body
			// The server's own answer, arriving much later, must not
			// reach the editor a second time.
			b.responded[*info.ID] = true
			b.mu.Unlock()
			b.respondInitialize(*info.ID)
		}
	case "textDocument/didOpen":
		b.mu.Lock()
		b.cachedOpen = body
		b.mu.Unlock()
	case "textDocument/didChange":
		b.mu.Lock()
		b.cachedChange = body
		b.mu.Unlock()
	}
	// Everything is still forwarded, including the intercepted initialize:
	// the server needs it to set up its side of the session.
	b.Enqueue(body)
}

// respondInitialize answers an initialize request on the server's behalf.
func (b *Bridge) respondInitialize(id jsonrpc2.ID) {
	resp := jsonrpc2.Response{ID: id}
	if err := resp.SetResult(defaultInitializeResult()); err != nil {
		logger.Println("building initialize response:", err)
		return
	}
	body, err := json.Marshal(&resp)
	if err != nil {
		logger.Println("marshaling initialize response:", err)
		return
	}
	logger.Println("answered initialize locally, id", id)
	b.forwardToClient(body)
}

// runServerReader consumes datagrams from the server socket and forwards
// reassembled messages to the editor.
func (b *Bridge) runServerReader() {
	buf := make([]byte, udpReadBufferSize)
	ra := lspframe.NewReassembler()
	for !b.shutdown.Load() {
		b.receiver.SetReadDeadline(time.Now().Add(udpReadTimeout))
		n, _, err := b.receiver.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				continue
			}
			if b.shutdown.Load() {
				return
			}
			logger.Println("reading from server:", err)
			continue
		}
		ra.Feed(buf[:n])
		for body, ok := ra.Next(); ok; body, ok = ra.Next() {
			b.handleServerMessage(body)
		}
	}
}

func (b *Bridge) handleServerMessage(body []byte) {
	body = ensureVersion(body)
	info := inspect(body)
	// A message with an id but no method is a response.
	if info.ID != nil && info.Method == "" {
		if b.suppressResponse(*info.ID) {
			return
		}
	}
	b.forwardToClient(body)
}

// forwardToClient hands a body to the writer goroutine. Once the writer has
// exited on a broken editor pipe the body is dropped; the pumps must never
// block on a peer that is gone.
func (b *Bridge) forwardToClient(body []byte) {
	select {
	case b.toClient <- body:
	case <-b.writerDone:
		logger.Printf("editor stream closed; dropping %d-byte message", len(body))
	}
}

// suppressResponse reports whether a server response should be withheld from
// the editor: either the bridge already answered the request locally, or the
// bridge originated the request itself and no editor-side waiter exists. The
// answered set is never pruned: after a recompile replay the server answers
// the same id a second time.
func (b *Bridge) suppressResponse(id jsonrpc2.ID) bool {
	b.mu.Lock()
	answered := b.responded[id]
	b.mu.Unlock()
	if answered {
		logger.Println("dropping server response to locally answered request, id", id)
		return true
	}
	if !id.IsString && id.Num >= initialRequestID {
		logger.Println("dropping response to bridge-originated request, id", id)
		return true
	}
	return false
}

// runClientWriter is the only goroutine that writes to the editor stream.
func (b *Bridge) runClientWriter() {
	for body := range b.toClient {
		if _, err := b.client.Write(lspframe.Format(body)); err != nil {
			logger.Println("writing to editor:", err)
			return
		}
	}
}

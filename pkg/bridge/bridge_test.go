package bridge

import (
	"bufio"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/flowerornament/zed-supercollider/pkg/lspframe"
)

type testBridge struct {
	*Bridge
	editorIn   *io.PipeWriter
	clientOut  *bufio.Reader
	serverRecv *net.UDPConn // the socket a real sclang would read from
	serverSend *net.UDPConn // the socket a real sclang would send from
}

func startTestBridge(t *testing.T) *testBridge {
	t.Helper()

	senderConn, serverRecv := udpPair(t)
	serverSend, receiverConn := udpPair(t)

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()

	b := New(inR, outW, senderConn, receiverConn)
	b.Start()
	t.Cleanup(func() {
		inW.Close()
		outR.Close()
		b.Join()
	})
	return &testBridge{
		Bridge:     b,
		editorIn:   inW,
		clientOut:  bufio.NewReader(outR),
		serverRecv: serverRecv,
		serverSend: serverSend,
	}
}

func (tb *testBridge) editorSends(t *testing.T, body string) {
	t.Helper()
	if _, err := tb.editorIn.Write(lspframe.Format([]byte(body))); err != nil {
		t.Fatal(err)
	}
}

func (tb *testBridge) serverSends(t *testing.T, body string) {
	t.Helper()
	if _, err := tb.serverSend.Write(lspframe.Format([]byte(body))); err != nil {
		t.Fatal(err)
	}
}

// clientReceives reads the next framed message written to the editor.
func (tb *testBridge) clientReceives(t *testing.T) string {
	t.Helper()
	type result struct {
		msg []byte
		err error
	}
	ch := make(chan result, 1)
	go func() {
		msg, err := lspframe.ReadMessage(tb.clientOut)
		ch <- result{msg, err}
	}()
	select {
	case r := <-ch:
		if r.err != nil {
			t.Fatal(r.err)
		}
		return string(lspframe.Body(r.msg))
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a message to the editor")
		return ""
	}
}

// serverReceives reads the next n message bodies arriving at the server.
func (tb *testBridge) serverReceives(t *testing.T, n int) []string {
	t.Helper()
	ra := lspframe.NewReassembler()
	var bodies []string
	buf := make([]byte, udpReadBufferSize)
	for len(bodies) < n {
		tb.serverRecv.SetReadDeadline(time.Now().Add(5 * time.Second))
		read, err := tb.serverRecv.Read(buf)
		if err != nil {
			t.Fatalf("after %d of %d messages: %v", len(bodies), n, err)
		}
		ra.Feed(buf[:read])
		for body, ok := ra.Next(); ok; body, ok = ra.Next() {
			bodies = append(bodies, string(body))
		}
	}
	return bodies
}

func TestBridge_InterceptsInitialize(t *testing.T) {
	tb := startTestBridge(t)

	tb.editorSends(t, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`)

	// The editor gets an immediate local answer, well before the server is
	// even ready.
	resp := tb.clientReceives(t)
	for _, want := range []string{`"id":1`, `"capabilities"`, `sclang:LSPConnection`} {
		if !strings.Contains(resp, want) {
			t.Errorf("initialize response %s\ndoes not contain %s", resp, want)
		}
	}

	// Once ready, the server still gets the original request.
	tb.Ready.SignalReady()
	forwarded := tb.serverReceives(t, 1)
	if !strings.Contains(forwarded[0], `"method":"initialize"`) {
		t.Errorf("server received %s, want the initialize request", forwarded[0])
	}

	// The server's own answer must not reach the editor a second time, but
	// later traffic must.
	tb.serverSends(t, `{"id":1,"result":{"capabilities":{}}}`)
	tb.serverSends(t, `{"method":"textDocument/publishDiagnostics","params":{"uri":"file:///a.scd"}}`)
	next := tb.clientReceives(t)
	if !strings.Contains(next, "publishDiagnostics") {
		t.Errorf("editor received %s, want the diagnostics notification", next)
	}
	if !strings.Contains(next, `"jsonrpc":"2.0"`) {
		t.Errorf("forwarded notification %s is missing the version field", next)
	}
}

func TestBridge_QueuesUntilReadyAndReplaysAfterRecompile(t *testing.T) {
	tb := startTestBridge(t)

	init := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`
	didOpen := `{"jsonrpc":"2.0","method":"textDocument/didOpen","params":{"textDocument":{"uri":"file:///a.scd"}}}`
	didChange := `{"jsonrpc":"2.0","method":"textDocument/didChange","params":{"contentChanges":[]}}`

	tb.editorSends(t, init)
	tb.editorSends(t, didOpen)
	tb.editorSends(t, didChange)
	tb.clientReceives(t) // local initialize answer

	// Nothing reaches the server until it announces readiness; then the
	// whole backlog arrives in order, followed by the cached didOpen and
	// didChange so the server sees the current document state.
	tb.Ready.SignalReady()
	got := tb.serverReceives(t, 5)
	for i, method := range []string{
		"initialize", "textDocument/didOpen", "textDocument/didChange",
		"textDocument/didOpen", "textDocument/didChange",
	} {
		if !strings.Contains(got[i], `"method":"`+method+`"`) {
			t.Errorf("message %d = %s, want method %s", i, got[i], method)
		}
	}

	// A second readiness announcement means the class library recompiled
	// and the session state was lost; the bridge re-establishes it.
	tb.Ready.SignalReady()
	replayed := tb.serverReceives(t, 3)
	for i, method := range []string{"initialize", "textDocument/didOpen", "textDocument/didChange"} {
		if !strings.Contains(replayed[i], `"method":"`+method+`"`) {
			t.Errorf("replayed message %d = %s, want method %s", i, replayed[i], method)
		}
	}
}

func TestBridge_ForceReadyDoesNotTriggerReplay(t *testing.T) {
	tb := startTestBridge(t)

	tb.editorSends(t, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`)
	tb.clientReceives(t)

	// Giving up on the ready marker unblocks the queue without counting as
	// an announcement.
	tb.Ready.ForceReady()
	tb.serverReceives(t, 1)

	// The first real announcement after that is still the first one, not a
	// recompile; nothing may be replayed.
	tb.Ready.SignalReady()
	tb.editorSends(t, `{"jsonrpc":"2.0","method":"initialized"}`)
	got := tb.serverReceives(t, 1)
	if !strings.Contains(got[0], `"method":"initialized"`) {
		t.Errorf("server received %s, want only the initialized notification", got[0])
	}
}

func TestBridge_SuppressesRepeatedResponsesToAnsweredRequest(t *testing.T) {
	tb := startTestBridge(t)

	tb.editorSends(t, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`)
	tb.clientReceives(t) // local answer
	tb.Ready.SignalReady()
	tb.serverReceives(t, 1)

	// After a recompile the replayed initialize gets answered under the same
	// id again; every such answer stays on this side of the bridge.
	tb.serverSends(t, `{"id":1,"result":{"capabilities":{}}}`)
	tb.serverSends(t, `{"id":1,"result":{"capabilities":{}}}`)
	tb.serverSends(t, `{"jsonrpc":"2.0","method":"window/logMessage","params":{}}`)
	if next := tb.clientReceives(t); !strings.Contains(next, "window/logMessage") {
		t.Errorf("editor received %s, want only the log notification", next)
	}
}

func TestBridge_ShutdownWaitsForLateReadiness(t *testing.T) {
	tb := startTestBridge(t)

	if !tb.Enqueue([]byte(`{"jsonrpc":"2.0","method":"initialized"}`)) {
		t.Fatal("enqueue refused")
	}
	tb.Shutdown()

	// The server is still compiling its class library; the final flush must
	// hold on to the backlog until readiness arrives within its deadline.
	go func() {
		time.Sleep(200 * time.Millisecond)
		tb.Ready.SignalReady()
	}()
	got := tb.serverReceives(t, 1)
	if !strings.Contains(got[0], `"method":"initialized"`) {
		t.Errorf("server received %s, want the queued notification", got[0])
	}
}

func TestBridge_ForwardDropsWhenWriterGone(t *testing.T) {
	b := New(strings.NewReader(""), io.Discard, nil, nil)
	close(b.writerDone)
	for i := 0; i < outboundQueueSize; i++ {
		b.toClient <- []byte("{}")
	}

	done := make(chan struct{})
	go func() {
		b.forwardToClient([]byte("{}"))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("forwarding blocked with the editor writer gone and the buffer full")
	}
}

func TestBridge_StdinClosed(t *testing.T) {
	tb := startTestBridge(t)
	tb.editorIn.Close()
	select {
	case <-tb.StdinClosed():
	case <-time.After(5 * time.Second):
		t.Fatal("StdinClosed not signaled after the editor hung up")
	}
}

func TestBridge_ExecuteCommand(t *testing.T) {
	tb := startTestBridge(t)
	tb.Ready.SignalReady()

	id, err := tb.ExecuteCommand(CmdEval, `"hello".postln`)
	if err != nil {
		t.Fatal(err)
	}
	if id.IsString || id.Num < initialRequestID {
		t.Errorf("allocated id = %v, want numeric id >= %d", id, uint64(initialRequestID))
	}
	got := tb.serverReceives(t, 1)
	if !strings.Contains(got[0], CmdEval) {
		t.Errorf("server received %s, want an eval command", got[0])
	}

	// The server's answer stays on this side of the bridge; no editor is
	// waiting for it.
	tb.serverSends(t, `{"id":`+id.String()+`,"result":null}`)
	tb.serverSends(t, `{"jsonrpc":"2.0","method":"window/logMessage","params":{}}`)
	if next := tb.clientReceives(t); !strings.Contains(next, "window/logMessage") {
		t.Errorf("editor received %s, want only the log notification", next)
	}
}

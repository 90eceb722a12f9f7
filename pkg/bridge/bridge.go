// Package bridge relays LSP traffic between an editor on stdio and a sclang
// language server on a pair of UDP sockets.
//
// Besides reframing messages between the two transports, it smooths over the
// ways sclang deviates from what editors expect: it answers the initialize
// request itself (sclang cannot until the class library has compiled), queues
// outbound traffic until the server announces readiness, replays session
// state after a recompile, and patches messages that omit the JSON-RPC
// version field.
package bridge

import (
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/flowerornament/zed-supercollider/pkg/logutil"
	"github.com/flowerornament/zed-supercollider/pkg/lspframe"
)

var logger = logutil.GetLogger("[bridge] ")

// Bridge shuttles messages between an editor and a sclang server. Create one
// with New, start its goroutines with Start, and stop them with Shutdown
// followed by Join.
type Bridge struct {
	in       io.Reader // editor to bridge, usually stdin
	client   io.Writer // bridge to editor, usually stdout
	sender   *net.UDPConn
	receiver *net.UDPConn

	// Ready gates the outbound queue. The launcher signals it when sclang
	// prints its ready marker.
	Ready ReadyState

	outbound   chan []byte   // bodies awaiting transmission to the server
	toClient   chan []byte   // bodies awaiting framing and write to the editor
	stdinDone  chan struct{} // closed when the editor closes its end
	writerDone chan struct{}

	shutdown atomic.Bool
	wg       sync.WaitGroup

	mu        sync.Mutex
	responded map[jsonrpc2.ID]bool // request ids already answered locally
	// Latest session-establishing messages, replayed after a recompile.
	cachedInit   []byte
	cachedOpen   []byte
	cachedChange []byte
}

// New returns a Bridge connecting the editor stream pair to the server socket
// pair. sender must be connected to the server's receive port; receiver must
// be bound to the port the server sends to.
func New(in io.Reader, client io.Writer, sender, receiver *net.UDPConn) *Bridge {
	return &Bridge{
		in:         in,
		client:     client,
		sender:     sender,
		receiver:   receiver,
		outbound:   make(chan []byte, outboundQueueSize),
		toClient:   make(chan []byte, outboundQueueSize),
		stdinDone:  make(chan struct{}),
		writerDone: make(chan struct{}),
		responded:  make(map[jsonrpc2.ID]bool),
	}
}

// Start launches the pump goroutines.
func (b *Bridge) Start() {
	b.wg.Add(3)
	go func() { defer b.wg.Done(); b.runEditorReader() }()
	go func() { defer b.wg.Done(); b.runServerReader() }()
	go func() { defer b.wg.Done(); b.runSender() }()
	go func() { defer close(b.writerDone); b.runClientWriter() }()
}

// Shutdown asks the pumps to stop. It returns immediately; use Join to wait.
func (b *Bridge) Shutdown() { b.shutdown.Store(true) }

// Join stops the pumps and waits for them to finish.
func (b *Bridge) Join() {
	b.shutdown.Store(true)
	b.wg.Wait()
	close(b.toClient)
	<-b.writerDone
}

// StdinClosed returns a channel that is closed once the editor closes its end
// of the stdio stream.
func (b *Bridge) StdinClosed() <-chan struct{} { return b.stdinDone }

// Enqueue queues a message body for delivery to the server, reporting whether
// it was accepted. Delivery waits until the server is ready.
func (b *Bridge) Enqueue(body []byte) bool {
	if b.shutdown.Load() {
		return false
	}
	select {
	case b.outbound <- body:
		return true
	default:
		logger.Printf("outbound queue full; dropping %d-byte message", len(body))
		return false
	}
}

// ExecuteCommand queues a workspace/executeCommand request for the server and
// returns the allocated request id.
func (b *Bridge) ExecuteCommand(command string, args ...any) (jsonrpc2.ID, error) {
	body, id, err := NewExecuteCommandRequest(command, args...)
	if err != nil {
		return jsonrpc2.ID{}, err
	}
	if !b.Enqueue(body) {
		return jsonrpc2.ID{}, errors.New("outbound queue unavailable")
	}
	return id, nil
}

// sendToServer frames a body and transmits it over UDP.
func (b *Bridge) sendToServer(body []byte, budget int) {
	if err := sendReliable(b.sender, lspframe.Format(body), budget); err != nil {
		logger.Println("sending to server:", err)
	}
}

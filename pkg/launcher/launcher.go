// Package launcher spawns and supervises a headless sclang process and runs
// the LSP bridge between it and the editor on stdio.
package launcher

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/flowerornament/zed-supercollider/pkg/bridge"
	"github.com/flowerornament/zed-supercollider/pkg/buildinfo"
	"github.com/flowerornament/zed-supercollider/pkg/launcher/web"
	"github.com/flowerornament/zed-supercollider/pkg/logutil"
	"github.com/flowerornament/zed-supercollider/pkg/lspframe"
	"github.com/flowerornament/zed-supercollider/pkg/prog"
)

var logger = logutil.GetLogger("[launcher] ")

// isRunning guards against a second bridge starting inside one process.
var isRunning atomic.Bool

// Program is the LSP bridge subprogram, selected by -lsp.
type Program struct{}

func (Program) Run(fds [3]*os.File, f *prog.Flags, args []string) error {
	if !f.LSP {
		return prog.ErrNotSuitable
	}
	if len(args) > 0 {
		return prog.BadUsage("-lsp takes no arguments")
	}
	s, err := newSettings(f)
	if err != nil {
		return err
	}
	sclang, err := detectSclang(s.SclangPath)
	if err != nil {
		return err
	}
	return runBridge(fds, s, sclang)
}

// session holds everything alive while sclang runs. runToken tags the log
// lines of one sclang lifetime so overlapping launcher runs can be told apart.
type session struct {
	state    stateVar
	bridge   *bridge.Bridge
	sender   *net.UDPConn
	runToken string

	child      *exec.Cmd
	childStdin io.WriteCloser
	waitCh     chan error
	exited     bool
	exitErr    error
}

func runBridge(fds [3]*os.File, s Settings, sclangPath string) error {
	sweepOrphans()

	lock, err := acquireInstanceLock()
	if err != nil {
		return fmt.Errorf("acquiring instance lock: %w", err)
	}
	defer lock.release()

	if !isRunning.CompareAndSwap(false, true) {
		return errors.New("bridge already running in this process; refusing duplicate spawn")
	}
	defer isRunning.Store(false)

	sn := &session{waitCh: make(chan error, 1), runToken: uuid.NewString()}
	logger.Printf("%s starting LSP bridge (pid=%d, run=%s)",
		buildinfo.Full(), os.Getpid(), sn.runToken)

	if !quarkInstalled() {
		logger.Println(`LanguageServer.quark not found; install it via Quarks.install("LanguageServer")`)
	}

	// The editor-facing receive socket stays bound by the bridge; sclang
	// only needs its port number. The port sclang itself listens on is
	// reserved, released, and handed over via the environment.
	receiver, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		return fmt.Errorf("binding receive port: %w", err)
	}
	defer receiver.Close()
	clientPort := receiver.LocalAddr().(*net.UDPAddr).Port

	serverPort, err := allocateUDPPort()
	if err != nil {
		return fmt.Errorf("reserving server port: %w", err)
	}

	sn.child = sclangCommand(sclangPath, sclangArgs(s, sclangPath)...)
	sn.child.Env = sclangEnv(s, clientPort, serverPort)
	stdin, err := sn.child.StdinPipe()
	if err != nil {
		return err
	}
	sn.childStdin = stdin
	stdout, err := sn.child.StdoutPipe()
	if err != nil {
		return err
	}
	stderr, err := sn.child.StderrPipe()
	if err != nil {
		return err
	}

	if err := sn.child.Start(); err != nil {
		return fmt.Errorf("spawning sclang at %s: %w", sclangPath, err)
	}
	logger.Printf("spawned sclang (pid=%d, client=%d, server=%d, log_level=%s)",
		sn.child.Process.Pid, clientPort, serverPort, orDefault(s.LogLevel, "quark default"))
	go func() { sn.waitCh <- sn.child.Wait() }()

	if err := writePIDFile(sn.child.Process.Pid); err != nil {
		logger.Println("writing pid file:", err)
	}
	defer removePIDFile()

	sn.sender, err = net.DialUDP("udp", nil,
		&net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: serverPort})
	if err != nil {
		sn.terminate()
		return fmt.Errorf("connecting to server port: %w", err)
	}
	defer sn.sender.Close()

	sn.bridge = bridge.New(fds[0], fds[1], sn.sender, receiver)
	stdoutDone := watchChildStream("sclang stdout", stdout, func(line string) {
		if strings.Contains(line, readyMarker) {
			sn.bridge.Ready.SignalReady()
			logger.Println("ready count:", sn.bridge.Ready.ReadyCount())
		}
	})
	stderrDone := watchChildStream("sclang stderr", stderr, nil)
	sn.bridge.Start()
	sn.state.set(StateWaitingForReady)

	ws := web.NewServer(s.HTTPPort, sn.bridge)
	go ws.Serve()
	defer ws.Close()

	err = sn.supervise()

	sn.bridge.Join()
	<-stdoutDone
	<-stderrDone
	return err
}

// supervise drives the session from startup through termination.
func (sn *session) supervise() error {
	if err, early := sn.awaitReady(); early {
		return err
	}

	for {
		if sn.waitChild(mainPollInterval) {
			sn.state.set(StateTerminated)
			if sn.exitErr != nil {
				return fmt.Errorf("sclang exited unexpectedly: %w", sn.exitErr)
			}
			logger.Println("sclang exited on its own")
			return nil
		}
		select {
		case <-sn.bridge.StdinClosed():
			logger.Println("editor closed stdin; shutting down")
			sn.shutdownSequence()
			return nil
		default:
		}
	}
}

// awaitReady waits for the ready marker, handling startup-time failure modes.
// early reports that the session already ended.
func (sn *session) awaitReady() (err error, early bool) {
	begin := time.Now()
	deadline := begin.Add(readyMaxWait)
	for !sn.bridge.Ready.Ready() {
		if sn.waitChild(startupPollInterval) {
			sn.state.set(StateTerminated)
			return fmt.Errorf("sclang exited during startup: %w", sn.exitErr), true
		}
		select {
		case <-sn.bridge.StdinClosed():
			logger.Println("editor closed stdin during startup; shutting down")
			sn.shutdownSequence()
			return nil, true
		default:
		}
		if time.Now().After(deadline) {
			logger.Printf("timed out waiting for ready marker after %v; proceeding anyway", readyMaxWait)
			sn.bridge.Ready.ForceReady()
			break
		}
	}
	if sn.bridge.Ready.ReadyCount() > 0 {
		logger.Printf("sclang ready (startup %v)", time.Since(begin).Round(time.Millisecond))
	}
	sn.state.set(StateRunning)
	return nil, false
}

// waitChild blocks up to d for sclang to exit, remembering the result.
func (sn *session) waitChild(d time.Duration) bool {
	if sn.exited {
		return true
	}
	select {
	case err := <-sn.waitCh:
		sn.exited, sn.exitErr = true, err
		return true
	case <-time.After(d):
		return false
	}
}

// shutdownSequence walks the termination ladder until sclang is gone:
// protocol-level shutdown and exit, closing stdin, a window for a voluntary
// exit, SIGTERM, and finally SIGKILL.
func (sn *session) shutdownSequence() {
	sn.state.set(StateShuttingDown)
	sn.bridge.Shutdown()

	// Attempted even before readiness: a compiling sclang may still pick the
	// pair up, and the bounded send keeps the cost of a deaf one small.
	sn.sendLSPShutdown()
	sn.childStdin.Close()

	deadline := time.Now().Add(gracefulExitTimeout)
	for time.Now().Before(deadline) {
		if sn.waitChild(shutdownPollInterval) {
			logger.Printf("sclang exited gracefully (run=%s)", sn.runToken)
			sn.state.set(StateTerminated)
			return
		}
	}

	pid := sn.child.Process.Pid
	logger.Printf("sclang %d still alive after %v; sending SIGTERM (run=%s)",
		pid, gracefulExitTimeout, sn.runToken)
	sn.terminate()
	sn.state.set(StateTerminated)
}

// terminate force-stops sclang with signals and reaps it.
func (sn *session) terminate() {
	pid := sn.child.Process.Pid
	if err := terminateProcess(pid); err != nil {
		logger.Println("SIGTERM:", err)
	}
	if sn.waitChild(sigtermGrace) {
		return
	}
	logger.Printf("sclang %d ignored SIGTERM; sending SIGKILL (run=%s)", pid, sn.runToken)
	if err := killProcess(pid); err != nil {
		logger.Println("SIGKILL:", err)
	}
	sn.waitChild(sigtermGrace)
}

// sendLSPShutdown delivers the protocol-level shutdown request and exit
// notification straight to the server socket, bypassing the queue. UDP gives
// no delivery confirmation, so the pair is repeated a few times.
func (sn *session) sendLSPShutdown() {
	shutdownReq, _, err := bridge.NewRequest("shutdown", nil)
	if err != nil {
		logger.Println("building shutdown request:", err)
		return
	}
	exitNote, err := bridge.NewNotification("exit", nil)
	if err != nil {
		logger.Println("building exit notification:", err)
		return
	}
	for i := 0; i < shutdownSendAttempts; i++ {
		for _, body := range [][]byte{shutdownReq, exitNote} {
			err := bridge.SendReliableFor(sn.sender, lspframe.Format(body), shutdownSendInterval)
			if err != nil {
				logger.Println("sending shutdown:", err)
			}
		}
		time.Sleep(shutdownSendInterval)
	}
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
